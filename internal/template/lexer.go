package template

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// TokenType identifies the type of token.
type TokenType int

// TokenType constants for query token types.
const (
	TokenText TokenType = iota // Literal query text
	TokenRef                   // Variable reference
	TokenEOF                   // End of input
)

func (t TokenType) String() string {
	switch t {
	case TokenText:
		return "TEXT"
	case TokenRef:
		return "REF"
	case TokenEOF:
		return "EOF"
	default:
		return "UNKNOWN"
	}
}

// RefForm is the syntax a variable reference was written in.
type RefForm int

// Reference forms.
const (
	FormDotBrace RefForm = iota // {{.name}}
	FormBrace                   // {{name}}
	FormBracket                 // [[name]]
	FormDollar                  // $name
)

func (f RefForm) String() string {
	switch f {
	case FormDotBrace:
		return "{{.name}}"
	case FormBrace:
		return "{{name}}"
	case FormBracket:
		return "[[name]]"
	case FormDollar:
		return "$name"
	default:
		return "unknown"
	}
}

// Token represents a lexical token.
type Token struct {
	Type  TokenType
	Value string // raw source text
	Name  string // referenced variable, for TokenRef
	Form  RefForm
	Pos   Position
}

// Lexer splits a query into literal text and variable references.
type Lexer struct {
	input    string
	file     string
	pos      int // current position in input
	line     int // current line number (1-based)
	col      int // current column number (1-based)
	lastLine int // line at start of current token
	lastCol  int // column at start of current token
}

// NewLexer creates a new lexer for the given input. file only labels
// positions in errors and may be empty.
func NewLexer(input, file string) *Lexer {
	return &Lexer{
		input: input,
		file:  file,
		pos:   0,
		line:  1,
		col:   1,
	}
}

// Tokenize converts the input into a slice of tokens ending with TokenEOF.
func (l *Lexer) Tokenize() ([]Token, error) {
	var tokens []Token

	for {
		tok, err := l.nextToken()
		if err != nil {
			return nil, err
		}
		// Merge adjacent text so callers see one token per literal run.
		if n := len(tokens); n > 0 && tok.Type == TokenText && tokens[n-1].Type == TokenText {
			tokens[n-1].Value += tok.Value
			continue
		}
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF {
			break
		}
	}

	return tokens, nil
}

func (l *Lexer) nextToken() (Token, error) {
	if l.pos >= len(l.input) {
		return Token{Type: TokenEOF, Pos: l.position()}, nil
	}

	switch {
	case l.matchString("{{"):
		return l.scanEnclosed("{{", "}}", true)
	case l.matchString("[["):
		return l.scanEnclosed("[[", "]]", false)
	case l.atDollarRef():
		return l.scanDollar(), nil
	}
	return l.scanText(), nil
}

// scanText scans literal text up to the next possible reference.
func (l *Lexer) scanText() Token {
	l.markStart()
	start := l.pos

	// Always consume at least one rune so a lone '$' or '[' makes progress.
	l.advance()
	for l.pos < len(l.input) {
		if l.matchString("{{") || l.matchString("[[") || l.atDollarRef() {
			break
		}
		l.advance()
	}

	return Token{
		Type:  TokenText,
		Value: l.input[start:l.pos],
		Pos:   l.startPosition(),
	}
}

// scanEnclosed scans a delimited reference. Content that is not a single
// name, such as a template action, is returned as text.
func (l *Lexer) scanEnclosed(open, closer string, allowDot bool) (Token, error) {
	l.markStart()
	start := l.pos

	end := strings.Index(l.input[l.pos+len(open):], closer)
	if end < 0 {
		if open == "{{" {
			return Token{}, NewLexError(l.startPosition(), "unclosed reference: missing '}}'")
		}
		// A lone "[[" is ordinary query text.
		l.advanceBy(len(open))
		return Token{Type: TokenText, Value: open, Pos: l.startPosition()}, nil
	}
	l.advanceBy(len(open) + end + len(closer))
	raw := l.input[start:l.pos]

	inner := strings.TrimSpace(raw[len(open) : len(raw)-len(closer)])
	form := FormBrace
	if open == "[[" {
		form = FormBracket
	}
	if allowDot && strings.HasPrefix(inner, ".") {
		inner = inner[1:]
		form = FormDotBrace
	}
	if !isName(inner) {
		return Token{Type: TokenText, Value: raw, Pos: l.startPosition()}, nil
	}

	return Token{
		Type:  TokenRef,
		Value: raw,
		Name:  inner,
		Form:  form,
		Pos:   l.startPosition(),
	}, nil
}

// scanDollar scans $name where name is a run of word characters.
func (l *Lexer) scanDollar() Token {
	l.markStart()
	start := l.pos
	l.advance() // $
	for l.pos < len(l.input) && isWordRune(l.peek()) {
		l.advance()
	}
	raw := l.input[start:l.pos]
	return Token{
		Type:  TokenRef,
		Value: raw,
		Name:  raw[1:],
		Form:  FormDollar,
		Pos:   l.startPosition(),
	}
}

func (l *Lexer) atDollarRef() bool {
	if !l.matchString("$") || l.pos+1 >= len(l.input) {
		return false
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.pos+1:])
	return isWordRune(r)
}

// isName reports whether s can be a reference: non-empty, no whitespace
// and no nested delimiters.
func isName(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if unicode.IsSpace(r) || r == '{' || r == '}' || r == '[' || r == ']' {
			return false
		}
	}
	return true
}

// isWordRune matches the ASCII \w class used for $name boundaries.
func isWordRune(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// peek returns the current rune without advancing.
func (l *Lexer) peek() rune {
	if l.pos >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.pos:])
	return r
}

// advance moves to the next rune, updating position tracking.
func (l *Lexer) advance() {
	if l.pos >= len(l.input) {
		return
	}

	r, size := utf8.DecodeRuneInString(l.input[l.pos:])
	l.pos += size

	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
}

func (l *Lexer) advanceBy(n int) {
	target := l.pos + n
	for l.pos < target {
		l.advance()
	}
}

// matchString checks if the input at current position matches s.
func (l *Lexer) matchString(s string) bool {
	return strings.HasPrefix(l.input[l.pos:], s)
}

// markStart records the start position for the current token.
func (l *Lexer) markStart() {
	l.lastLine = l.line
	l.lastCol = l.col
}

// position returns the current position.
func (l *Lexer) position() Position {
	return Position{File: l.file, Line: l.line, Column: l.col}
}

// startPosition returns the position where the current token started.
func (l *Lexer) startPosition() Position {
	return Position{File: l.file, Line: l.lastLine, Column: l.lastCol}
}
