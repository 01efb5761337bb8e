package aprs

import (
	"regexp"
	"strings"
)

// lexer is a cursor over one info field. Each parse call owns its own.
type lexer struct {
	in  string
	pos int
}

func newLexer(in string) *lexer {
	return &lexer{in: in}
}

// fixed consumes up to n bytes. The result is short at the end of input.
func (l *lexer) fixed(n int) string {
	end := min(l.pos+n, len(l.in))
	s := l.in[l.pos:end]
	l.pos = end
	return s
}

// peek returns up to n bytes without consuming them.
func (l *lexer) peek(n int) string {
	return l.in[l.pos:min(l.pos+n, len(l.in))]
}

// rest consumes and returns everything left.
func (l *lexer) rest() string {
	s := l.in[l.pos:]
	l.pos = len(l.in)
	return s
}

// skip consumes prefix if the input continues with it.
func (l *lexer) skip(prefix string) bool {
	if strings.HasPrefix(l.in[l.pos:], prefix) {
		l.pos += len(prefix)
		return true
	}
	return false
}

// match consumes a match of re at the cursor. re must be anchored with ^.
func (l *lexer) match(re *regexp.Regexp) []string {
	m := re.FindStringSubmatch(l.in[l.pos:])
	if m == nil {
		return nil
	}
	l.pos += len(m[0])
	return m
}
