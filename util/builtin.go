// Package util hosts the matcher-callable function library:
// keyMatch family, regexMatch, globMatch, ipMatch family, keyGet family,
// timeMatch; plus the small set of string/assertion helpers the expression
// engine and model loader need. Every exported Func here has the
// `func(args ...interface{}) (interface{}, error)` shape so it assigns
// directly into a govaluate.ExpressionFunction map without this package
// needing to import govaluate itself.
package util

import (
	"errors"
	"net"
	"regexp"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

func asString(name string, args []interface{}, i int) (string, error) {
	if i >= len(args) {
		return "", errors.New(name + ": missing argument")
	}
	s, ok := args[i].(string)
	if !ok {
		return "", errors.New(name + ": argument must be a string")
	}
	return s, nil
}

// KeyMatch treats "*" as a single trailing wildcard segment in key2: key1
// matches if it equals key2, or if key2 ends in "*" and key1 shares that prefix.
func KeyMatch(key1, key2 string) bool {
	i := strings.Index(key2, "*")
	if i == -1 {
		return key1 == key2
	}
	if len(key1) > i {
		return key1[:i] == key2[:i]
	}
	return key1 == key2[:i]
}

// KeyMatchFunc adapts KeyMatch to the matcher function-call signature.
func KeyMatchFunc(args ...interface{}) (interface{}, error) {
	name1, err := asString("keyMatch", args, 0)
	if err != nil {
		return false, err
	}
	name2, err := asString("keyMatch", args, 1)
	if err != nil {
		return false, err
	}
	return KeyMatch(name1, name2), nil
}

var keyMatch2ParamRe = regexp.MustCompile(`:[^/]+`)

// KeyMatch2 supports RESTful-style ":param" placeholders, each matching
// exactly one "/"-delimited path segment, plus a trailing "*" wildcard.
func KeyMatch2(key1, key2 string) bool {
	key2 = strings.Replace(key2, "/*", "/.*", -1)
	key2 = keyMatch2ParamRe.ReplaceAllString(key2, "[^/]+")
	return regexMatchFull(key1, "^"+key2+"$")
}

func KeyMatch2Func(args ...interface{}) (interface{}, error) {
	name1, err := asString("keyMatch2", args, 0)
	if err != nil {
		return false, err
	}
	name2, err := asString("keyMatch2", args, 1)
	if err != nil {
		return false, err
	}
	return KeyMatch2(name1, name2), nil
}

var keyMatch3ParamRe = regexp.MustCompile(`\{[^/]+?\}`)

// KeyMatch3 is KeyMatch2 with "{param}" placeholder syntax instead of ":param".
func KeyMatch3(key1, key2 string) bool {
	key2 = strings.Replace(key2, "/*", "/.*", -1)
	key2 = keyMatch3ParamRe.ReplaceAllString(key2, "[^/]+")
	return regexMatchFull(key1, "^"+key2+"$")
}

func KeyMatch3Func(args ...interface{}) (interface{}, error) {
	name1, err := asString("keyMatch3", args, 0)
	if err != nil {
		return false, err
	}
	name2, err := asString("keyMatch3", args, 1)
	if err != nil {
		return false, err
	}
	return KeyMatch3(name1, name2), nil
}

// KeyMatch4 is KeyMatch3 but additionally requires that repeated placeholder
// names (e.g. "/{id}/resource/{id}") capture the same value on both occurrences.
func KeyMatch4(key1, key2 string) bool {
	tokens := keyMatch3ParamRe.FindAllString(key2, -1)
	pattern := strings.Replace(key2, "/*", "/.*", -1)

	for _, tok := range tokens {
		pattern = strings.Replace(pattern, tok, "([^/]+)", 1)
	}

	re, err := regexp.Compile("^" + pattern + "$")
	if err != nil {
		return false
	}
	m := re.FindStringSubmatch(key1)
	if m == nil {
		return false
	}
	seen := map[string]string{}
	for i, tok := range tokens {
		if v, ok := seen[tok]; ok && v != m[i+1] {
			return false
		}
		seen[tok] = m[i+1]
	}
	return true
}

func KeyMatch4Func(args ...interface{}) (interface{}, error) {
	name1, err := asString("keyMatch4", args, 0)
	if err != nil {
		return false, err
	}
	name2, err := asString("keyMatch4", args, 1)
	if err != nil {
		return false, err
	}
	return KeyMatch4(name1, name2), nil
}

// KeyMatch5 is KeyMatch but ignores a trailing "?query=string" on key1.
func KeyMatch5(key1, key2 string) bool {
	if idx := strings.Index(key1, "?"); idx != -1 {
		key1 = key1[:idx]
	}
	return KeyMatch(key1, key2)
}

func KeyMatch5Func(args ...interface{}) (interface{}, error) {
	name1, err := asString("keyMatch5", args, 0)
	if err != nil {
		return false, err
	}
	name2, err := asString("keyMatch5", args, 1)
	if err != nil {
		return false, err
	}
	return KeyMatch5(name1, name2), nil
}

func regexMatchFull(s, pattern string) bool {
	ok, err := regexp.MatchString(pattern, s)
	if err != nil {
		return false
	}
	return ok
}

// RegexMatch tests whether key1 matches the (unanchored) regular expression key2.
func RegexMatch(key1, key2 string) bool {
	ok, err := regexp.MatchString(key2, key1)
	if err != nil {
		return false
	}
	return ok
}

func RegexMatchFunc(args ...interface{}) (interface{}, error) {
	name1, err := asString("regexMatch", args, 0)
	if err != nil {
		return false, err
	}
	name2, err := asString("regexMatch", args, 1)
	if err != nil {
		return false, err
	}
	return RegexMatch(name1, name2), nil
}

// GlobMatch is shell-style matching delegated to doublestar: "*" matches
// within a single path segment and does not cross "/", "?" matches exactly
// one character other than "/", and "**" as a whole segment crosses
// segments (including none).
func GlobMatch(key1, key2 string) bool {
	ok, err := doublestar.Match(key2, key1)
	if err != nil {
		return false
	}
	return ok
}

func GlobMatchFunc(args ...interface{}) (interface{}, error) {
	name1, err := asString("globMatch", args, 0)
	if err != nil {
		return false, err
	}
	name2, err := asString("globMatch", args, 1)
	if err != nil {
		return false, err
	}
	return GlobMatch(name1, name2), nil
}

// IPMatch tests whether ip is contained in cidrOrIP; a bare IP (exact
// match) or a CIDR block, IPv4 or IPv6.
func IPMatch(ip, cidrOrIP string) bool {
	parsedIP := net.ParseIP(ip)
	if parsedIP == nil {
		return false
	}
	if !strings.Contains(cidrOrIP, "/") {
		target := net.ParseIP(cidrOrIP)
		return target != nil && target.Equal(parsedIP)
	}
	_, ipNet, err := net.ParseCIDR(cidrOrIP)
	if err != nil {
		return false
	}
	return ipNet.Contains(parsedIP)
}

func IPMatchFunc(args ...interface{}) (interface{}, error) {
	name1, err := asString("ipMatch", args, 0)
	if err != nil {
		return false, err
	}
	name2, err := asString("ipMatch", args, 1)
	if err != nil {
		return false, err
	}
	return IPMatch(name1, name2), nil
}

// KeyGet returns the substring of key1 matched by key2's trailing "*"
// wildcard, or "" if key2 has no such wildcard or key1 doesn't share its prefix.
func KeyGet(key1, key2 string) string {
	i := strings.Index(key2, "*")
	if i == -1 {
		return ""
	}
	if len(key1) > i && key1[:i] == key2[:i] {
		return key1[i:]
	}
	return ""
}

func KeyGetFunc(args ...interface{}) (interface{}, error) {
	name1, err := asString("keyGet", args, 0)
	if err != nil {
		return "", err
	}
	name2, err := asString("keyGet", args, 1)
	if err != nil {
		return "", err
	}
	return KeyGet(name1, name2), nil
}

// KeyGet2 returns the value captured by the named ":param" placeholder
// pathParam in key2, following KeyMatch2's grammar, or "" if absent/no match.
func KeyGet2(key1, key2, pathParam string) string {
	key2 = strings.Replace(key2, "/*", "/.*", -1)

	var names []string
	pattern := keyMatch2ParamRe.ReplaceAllStringFunc(key2, func(tok string) string {
		names = append(names, tok[1:])
		return "([^/]+)"
	})

	re, err := regexp.Compile("^" + pattern + "$")
	if err != nil {
		return ""
	}
	m := re.FindStringSubmatch(key1)
	if m == nil {
		return ""
	}
	for i, n := range names {
		if n == pathParam {
			return m[i+1]
		}
	}
	return ""
}

func KeyGet2Func(args ...interface{}) (interface{}, error) {
	name1, err := asString("keyGet2", args, 0)
	if err != nil {
		return "", err
	}
	name2, err := asString("keyGet2", args, 1)
	if err != nil {
		return "", err
	}
	name3, err := asString("keyGet2", args, 2)
	if err != nil {
		return "", err
	}
	return KeyGet2(name1, name2, name3), nil
}

// KeyGet3 is KeyGet2 with "{param}" placeholder syntax instead of ":param".
func KeyGet3(key1, key2, pathParam string) string {
	key2 = strings.Replace(key2, "/*", "/.*", -1)

	var names []string
	pattern := keyMatch3ParamRe.ReplaceAllStringFunc(key2, func(tok string) string {
		names = append(names, tok[1:len(tok)-1])
		return "([^/]+)"
	})

	re, err := regexp.Compile("^" + pattern + "$")
	if err != nil {
		return ""
	}
	m := re.FindStringSubmatch(key1)
	if m == nil {
		return ""
	}
	for i, n := range names {
		if n == pathParam {
			return m[i+1]
		}
	}
	return ""
}

func KeyGet3Func(args ...interface{}) (interface{}, error) {
	name1, err := asString("keyGet3", args, 0)
	if err != nil {
		return "", err
	}
	name2, err := asString("keyGet3", args, 1)
	if err != nil {
		return "", err
	}
	name3, err := asString("keyGet3", args, 2)
	if err != nil {
		return "", err
	}
	return KeyGet3(name1, name2, name3), nil
}

const timeLayout = "2006-01-02 15:04:05"

// TimeMatch reports whether now falls within [start, end], inclusive,
// given times formatted as "2006-01-02 15:04:05".
func TimeMatch(now, start, end string) (bool, error) {
	n, err := time.Parse(timeLayout, now)
	if err != nil {
		return false, err
	}
	s, err := time.Parse(timeLayout, start)
	if err != nil {
		return false, err
	}
	e, err := time.Parse(timeLayout, end)
	if err != nil {
		return false, err
	}
	return !n.Before(s) && !n.After(e), nil
}

func TimeMatchFunc(args ...interface{}) (interface{}, error) {
	name1, err := asString("timeMatch", args, 0)
	if err != nil {
		return false, err
	}
	name2, err := asString("timeMatch", args, 1)
	if err != nil {
		return false, err
	}
	name3, err := asString("timeMatch", args, 2)
	if err != nil {
		return false, err
	}
	return TimeMatch(name1, name2, name3)
}
