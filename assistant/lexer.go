package assistant

import "strings"

// Lexer recognizes opening and closing tag boundaries for a vocabulary.
// Matching is suffix-based: after each appended character the caller asks
// whether the buffer now ends with a tag, so cost per character is bounded by
// vocabulary size times maximum tag length, independent of buffer length.
// The lexer holds no state beyond the precomputed tag strings.
type Lexer struct {
	vocab     Vocabulary
	toolOpen  map[string]string // tool name -> "<name>"
	paramOpen map[string]string // param name -> "<name>"
}

// NewLexer precomputes tag strings for the vocabulary.
func NewLexer(vocab Vocabulary) *Lexer {
	l := &Lexer{
		vocab:     vocab,
		toolOpen:  make(map[string]string),
		paramOpen: make(map[string]string),
	}
	for _, name := range vocab.Tools() {
		l.toolOpen[name] = "<" + name + ">"
	}
	for _, name := range vocab.Params() {
		l.paramOpen[name] = "<" + name + ">"
	}
	return l
}

// Vocabulary returns the vocabulary this lexer was built for.
func (l *Lexer) Vocabulary() Vocabulary {
	return l.vocab
}

// ToolOpening reports the tool whose opening tag the buffer ends with.
func (l *Lexer) ToolOpening(buf string) (string, bool) {
	for name, tag := range l.toolOpen {
		if strings.HasSuffix(buf, tag) {
			return name, true
		}
	}
	return "", false
}

// ParamOpening reports the parameter whose opening tag the buffer ends with.
func (l *Lexer) ParamOpening(buf string) (string, bool) {
	for name, tag := range l.paramOpen {
		if strings.HasSuffix(buf, tag) {
			return name, true
		}
	}
	return "", false
}

// ClosesWith reports whether the buffer ends with the closing tag for name.
func (l *Lexer) ClosesWith(buf, name string) bool {
	return strings.HasSuffix(buf, ClosingTag(name))
}

// OpeningTag returns "<name>".
func OpeningTag(name string) string {
	return "<" + name + ">"
}

// ClosingTag returns "</name>".
func ClosingTag(name string) string {
	return "</" + name + ">"
}
