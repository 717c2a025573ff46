package query

import (
	"strings"

	"github.com/ajitpratap0/cpandas/pkg/errors"
)

// lexer scans the query on demand; what a token means depends on where
// the parser is in the grammar.
type lexer struct {
	input string
	pos   int
}

func newLexer(input string) *lexer {
	return &lexer{input: input}
}

func (l *lexer) peekChar() byte {
	if l.pos >= len(l.input) {
		return 0
	}
	return l.input[l.pos]
}

func (l *lexer) eof() bool {
	return l.pos >= len(l.input)
}

// skipWhitespace skips whitespace characters
func (l *lexer) skipWhitespace() {
	for l.pos < len(l.input) && isSpace(l.input[l.pos]) {
		l.pos++
	}
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}

func isOpChar(ch byte) bool {
	return ch == '=' || ch == '!' || ch == '<' || ch == '>'
}

func isWordChar(ch byte) bool {
	return ch == '_' || ch == '.' || ch >= 0x80 ||
		(ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9')
}

// consume advances past ch if it is next
func (l *lexer) consume(ch byte) bool {
	if l.peekChar() == ch {
		l.pos++
		return true
	}
	return false
}

// keyword consumes word when it appears case-insensitively and is not the
// prefix of a longer identifier
func (l *lexer) keyword(word string) bool {
	end := l.pos + len(word)
	if end > len(l.input) || !strings.EqualFold(l.input[l.pos:end], word) {
		return false
	}
	if end < len(l.input) && isWordChar(l.input[end]) {
		return false
	}
	l.pos = end
	return true
}

// readIdent reads a column name: a backtick-quoted name or a run of
// characters up to whitespace, a parenthesis, a quote or an operator
func (l *lexer) readIdent() (string, error) {
	start := l.pos
	if l.consume('`') {
		end := strings.IndexByte(l.input[l.pos:], '`')
		if end < 0 {
			return "", l.errorf(start, "unterminated quoted column name")
		}
		name := l.input[l.pos : l.pos+end]
		l.pos += end + 1
		return name, nil
	}
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if isSpace(ch) || isOpChar(ch) || ch == '(' || ch == ')' || ch == '\'' || ch == '"' {
			break
		}
		l.pos++
	}
	if l.pos == start {
		return "", l.errorf(start, "expected column name")
	}
	return l.input[start:l.pos], nil
}

// readOp reads a comparison operator
func (l *lexer) readOp() (Op, error) {
	start := l.pos
	two := ""
	if l.pos+2 <= len(l.input) {
		two = l.input[l.pos : l.pos+2]
	}
	switch two {
	case "==":
		l.pos += 2
		return OpEqual, nil
	case "!=":
		l.pos += 2
		return OpNotEqual, nil
	case "<=":
		l.pos += 2
		return OpLessEqual, nil
	case ">=":
		l.pos += 2
		return OpGreaterEqual, nil
	}
	switch l.peekChar() {
	case '=':
		l.pos++
		return OpEqual, nil
	case '<':
		l.pos++
		return OpLess, nil
	case '>':
		l.pos++
		return OpGreater, nil
	}
	return 0, l.errorf(start, "expected comparison operator")
}

// readLiteral reads a quoted string or a bare token. quoted reports which.
func (l *lexer) readLiteral() (text string, quoted bool, err error) {
	start := l.pos
	if q := l.peekChar(); q == '\'' || q == '"' {
		l.pos++
		end := strings.IndexByte(l.input[l.pos:], q)
		if end < 0 {
			return "", true, l.errorf(start, "unterminated string literal")
		}
		text = l.input[l.pos : l.pos+end]
		l.pos += end + 1
		return text, true, nil
	}
	for l.pos < len(l.input) && !isSpace(l.input[l.pos]) && l.input[l.pos] != ')' {
		l.pos++
	}
	if l.pos == start {
		return "", false, l.errorf(start, "expected literal")
	}
	return l.input[start:l.pos], false, nil
}

func (l *lexer) errorf(offset int, format string, args ...interface{}) error {
	return errors.Newf(errors.CodeParse, format, args...).WithDetail("offset", offset)
}
