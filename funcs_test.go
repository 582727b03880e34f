package texttemplate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuiltins(t *testing.T) {
	data := map[string]any{
		"Items":  []string{"a", "b", "c", "d"},
		"Word":   "héllo",
		"Matrix": [][]int{{1, 2}, {3, 4}},
		"M":      map[string]any{"k": "v"},
		"Nil":    nil,
		"Zero":   0,
	}

	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"lower", `{{ lower "ABC" }}`, "abc"},
		{"print concatenates", `{{ print "a" 1 "b" }}`, "a1b"},
		{"println", `{{ println "a" 1 }}`, "a 1\n"},
		{"printf", `{{ printf "%05.1f|%s" 3.14159 "N" }}`, "003.1|N"},
		{"printf width", `{{ printf "[%-4s][%3d]" "ab" 7 }}`, "[ab  ][  7]"},
		{"printf no args", `{{ printf "plain" }}`, "plain"},
		{"html", `{{ html "<a href=\"x\">&'" }}`, "&lt;a href=&#34;x&#34;&gt;&amp;&#39;"},
		{"js", `{{ js "a'b\"<>" }}`, `a\'b\"\u003C\u003E`},
		{"urlquery", `{{ urlquery "a b&c" }}`, "a%20b%26c"},
		{"len list", `{{ len .Items }}`, "4"},
		{"len runes", `{{ len .Word }}`, "5"},
		{"len map", `{{ len .M }}`, "1"},
		{"len nil", `{{ len .Nil }}`, "0"},
		{"len number", `{{ len 5 }}`, "0"},
		{"index list", `{{ index .Items 2 }}`, "c"},
		{"index nested", `{{ index .Matrix 1 0 }}`, "3"},
		{"index map", `{{ index .M "k" }}`, "v"},
		{"index miss", `[{{ index .M "nope" }}]`, "[]"},
		{"index no keys", `{{ index .Word }}`, "héllo"},
		{"slice list", `{{ slice .Items 1 3 }}`, "[b c]"},
		{"slice from", `{{ slice .Items 2 }}`, "[c d]"},
		{"slice clamps", `{{ slice .Items 3 99 }}`, "[d]"},
		{"slice string runes", `{{ slice .Word 1 3 }}`, "él"},
		{"slice empty", `[{{ slice .Word 4 2 }}]`, "[]"},
		{"join", `{{ join .Items "-" }}`, "a-b-c-d"},
		{"join nil", `[{{ join .Nil "-" }}]`, "[]"},
		{"not", `{{ not .Zero }} {{ not 1 }}`, "true false"},
		{"and returns deciding value", `{{ and 1 0 2 }} {{ and 1 "x" }}`, "0 x"},
		{"or returns deciding value", `{{ or 0 "" "y" }} {{ or 0 "" }}`, "y "},
		{"eq any", `{{ eq 2 1 2 3 }} {{ eq "a" "b" }}`, "true false"},
		{"eq mixed numbers", `{{ eq 1 1.0 }}`, "true"},
		{"ne", `{{ ne 1 2 }} {{ ne "a" "a" }}`, "true false"},
		{"ordering", `{{ lt 1 2 }} {{ le 2 2 }} {{ gt 1.5 2 }} {{ ge "b" "a" }}`, "true true false true"},
		{"piped argument comes first", `{{ 3 | lt 1 }} {{ 1 | lt 3 }}`, "false true"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, render(t, tt.source, data))
		})
	}
}

func TestHTMLEscapeString(t *testing.T) {
	assert.Equal(t, "plain", HTMLEscapeString("plain"))
	assert.Equal(t, "a\uFFFDb", HTMLEscapeString("a\x00b"))
	assert.Equal(t, "&lt;&gt;&amp;&#34;&#39;", HTMLEscapeString(`<>&"'`))
}

func TestJSEscapeString(t *testing.T) {
	assert.Equal(t, `\\ \u003D \u0026 \u000A`, JSEscapeString("\\ = & \n"))
	assert.Equal(t, "héllo", JSEscapeString("héllo"))
}

func TestURLQueryEscaper(t *testing.T) {
	assert.Equal(t, "x%3D1%2Fy", URLQueryEscaper("x=1/y"))
	assert.Equal(t, "%20", URLQueryEscaper(" "))
}
