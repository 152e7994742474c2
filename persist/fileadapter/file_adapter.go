// Package fileadapter is the one concrete persist.Adapter kept in this
// module: a plain CSV file, loaded and rewritten whole. Other storage
// backends (SQL, KV, HTTP, ...) live outside this module; this one stays
// because the core's own tests need some adapter to load fixtures from,
// and "one file, one line per rule" is the smallest adapter that can
// exercise persist.Adapter end to end.
package fileadapter

import (
	"bufio"
	"os"
	"strings"

	"github.com/polyauthz/core/model"
)

// Adapter loads and saves policy rules from a single CSV file, one rule
// per line, in the conventional casbin layout: "p, alice, data1, read".
type Adapter struct {
	filePath string
}

// NewAdapter returns a file Adapter bound to path. The file need not exist
// yet; LoadPolicy on a missing file is a no-op, matching the behavior of a
// freshly initialized policy store.
func NewAdapter(path string) *Adapter {
	return &Adapter{filePath: path}
}

func (a *Adapter) LoadPolicy(m model.Model) error {
	f, err := os.Open(a.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		loadLine(scanner.Text(), m)
	}
	return scanner.Err()
}

func loadLine(line string, m model.Model) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return
	}
	tokens := strings.Split(line, ",")
	for i := range tokens {
		tokens[i] = strings.TrimSpace(tokens[i])
	}
	if len(tokens) < 2 {
		return
	}
	ptype := tokens[0]
	rule := tokens[1:]

	sec := "p"
	if strings.HasPrefix(ptype, "g") {
		sec = "g"
	}
	_, _ = m.AddPolicy(sec, ptype, rule)
}

func (a *Adapter) SavePolicy(m model.Model) error {
	var b strings.Builder
	for _, sec := range []string{"p", "g"} {
		am, ok := m[sec]
		if !ok {
			continue
		}
		for ptype, assertion := range am {
			for _, rule := range assertion.Policy {
				b.WriteString(ptype)
				for _, v := range rule {
					b.WriteString(", ")
					b.WriteString(v)
				}
				b.WriteString("\n")
			}
		}
	}
	return os.WriteFile(a.filePath, []byte(b.String()), 0o644)
}

func (a *Adapter) AddPolicy(sec string, ptype string, rule []string) error {
	return appendLine(a.filePath, ptype, rule)
}

func (a *Adapter) RemovePolicy(sec string, ptype string, rule []string) error {
	return a.rewriteWithout(func(lineSec, linePtype string, lineRule []string) bool {
		return linePtype == ptype && equalRule(lineRule, rule)
	})
}

func (a *Adapter) RemoveFilteredPolicy(sec string, ptype string, fieldIndex int, fieldValues ...string) error {
	return a.rewriteWithout(func(lineSec, linePtype string, lineRule []string) bool {
		if linePtype != ptype {
			return false
		}
		for i, v := range fieldValues {
			if v == "" {
				continue
			}
			pos := fieldIndex + i
			if pos >= len(lineRule) || lineRule[pos] != v {
				return false
			}
		}
		return true
	})
}

func equalRule(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func appendLine(path, ptype string, rule []string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	var b strings.Builder
	b.WriteString(ptype)
	for _, v := range rule {
		b.WriteString(", ")
		b.WriteString(v)
	}
	b.WriteString("\n")
	_, err = f.WriteString(b.String())
	return err
}

func (a *Adapter) rewriteWithout(drop func(sec, ptype string, rule []string) bool) error {
	f, err := os.Open(a.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var kept []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		tokens := strings.Split(line, ",")
		for i := range tokens {
			tokens[i] = strings.TrimSpace(tokens[i])
		}
		ptype := tokens[0]
		rule := tokens[1:]
		sec := "p"
		if strings.HasPrefix(ptype, "g") {
			sec = "g"
		}
		if !drop(sec, ptype, rule) {
			kept = append(kept, line)
		}
	}
	f.Close()
	if err := scanner.Err(); err != nil {
		return err
	}
	out := strings.Join(kept, "\n")
	if len(kept) > 0 {
		out += "\n"
	}
	return os.WriteFile(a.filePath, []byte(out), 0o644)
}
