package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyMatch(t *testing.T) {
	assert.True(t, KeyMatch("/foo/bar", "/foo/*"))
	assert.True(t, KeyMatch("/foo", "/foo"))
	assert.False(t, KeyMatch("/foo/bar", "/baz/*"))
}

func TestKeyMatch2RESTfulParams(t *testing.T) {
	assert.True(t, KeyMatch2("/alice_data/123", "/alice_data/:id"))
	assert.False(t, KeyMatch2("/bob_data/123", "/alice_data/:id"))
	assert.True(t, KeyMatch2("/alice_data/123/456", "/alice_data/*"))
}

func TestKeyMatch3BraceParams(t *testing.T) {
	assert.True(t, KeyMatch3("/alice_data/123", "/alice_data/{id}"))
	assert.False(t, KeyMatch3("/bob_data/123", "/alice_data/{id}"))
}

func TestKeyMatch4RepeatedPlaceholderMustAgree(t *testing.T) {
	assert.True(t, KeyMatch4("/parent/10/child/10", "/parent/{id}/child/{id}"))
	assert.False(t, KeyMatch4("/parent/10/child/11", "/parent/{id}/child/{id}"))
}

func TestKeyMatch5IgnoresQueryString(t *testing.T) {
	assert.True(t, KeyMatch5("/foo/bar?query=1", "/foo/*"))
}

func TestRegexMatch(t *testing.T) {
	assert.True(t, RegexMatch("repo/my-repo", `^repo/.+$`))
	assert.False(t, RegexMatch("other", `^repo/.+$`))
}

func TestGlobMatch(t *testing.T) {
	assert.True(t, GlobMatch("/foo/bar/baz", "/foo/**"))
	assert.False(t, GlobMatch("/other/bar", "/foo/**"))
}

func TestIPMatch(t *testing.T) {
	assert.True(t, IPMatch("192.168.2.1", "192.168.2.0/24"))
	assert.False(t, IPMatch("10.0.0.1", "192.168.2.0/24"))
	assert.True(t, IPMatch("192.168.2.1", "192.168.2.1"))
}

func TestKeyGet(t *testing.T) {
	assert.Equal(t, "bar", KeyGet("/foo/bar", "/foo/*"))
	assert.Equal(t, "", KeyGet("/foo/bar", "/baz/*"))
}

func TestKeyGet2NamedParam(t *testing.T) {
	assert.Equal(t, "123", KeyGet2("/alice_data/123", "/alice_data/:id", "id"))
	assert.Equal(t, "", KeyGet2("/alice_data/123", "/alice_data/:id", "other"))
}

func TestKeyGet3BraceParam(t *testing.T) {
	assert.Equal(t, "123", KeyGet3("/alice_data/123", "/alice_data/{id}", "id"))
}

func TestTimeMatch(t *testing.T) {
	ok, err := TimeMatch("2024-06-15 10:00:00", "2024-06-01 00:00:00", "2024-06-30 23:59:59")
	assert.NoError(t, err)
	assert.True(t, ok)

	ok, err = TimeMatch("2024-07-01 00:00:00", "2024-06-01 00:00:00", "2024-06-30 23:59:59")
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestEscapeAssertion(t *testing.T) {
	assert.Equal(t, "r_sub == p_sub", EscapeAssertion("r.sub == p.sub"))
	assert.Equal(t, "r2_sub == p3_obj", EscapeAssertion("r2.sub == p3.obj"))
}

func TestIsNumeric(t *testing.T) {
	assert.True(t, IsNumeric("42"))
	assert.True(t, IsNumeric("3.14"))
	assert.False(t, IsNumeric("abc"))
	assert.False(t, IsNumeric(""))
}

func TestJoinRequestKey(t *testing.T) {
	key := JoinRequestKey([]interface{}{"alice", "data1", "read"})
	assert.Equal(t, "alice::data1::read", key)
}
