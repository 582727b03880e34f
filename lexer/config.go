package lexer

// SyntaxConfig holds the action delimiters.
type SyntaxConfig struct {
	LeftDelim  string
	RightDelim string
}

// DefaultSyntax returns the default `{{`/`}}` configuration.
func DefaultSyntax() SyntaxConfig {
	return SyntaxConfig{
		LeftDelim:  "{{",
		RightDelim: "}}",
	}
}

// WithDelims returns a copy of the configuration using the given
// delimiters. Empty values select the defaults.
func (c SyntaxConfig) WithDelims(left, right string) SyntaxConfig {
	if left == "" {
		left = "{{"
	}
	if right == "" {
		right = "}}"
	}
	c.LeftDelim = left
	c.RightDelim = right
	return c
}

const (
	trimMarker   = '-'
	commentOpen  = "/*"
	commentClose = "*/"
)
