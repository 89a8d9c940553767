package assistant

import "strings"

// parseMode is the top-level state of the parser.
type parseMode int

const (
	modeText parseMode = iota
	modeToolUse
	modeParam
)

// StreamParser consumes model output one character at a time and maintains
// the ordered sequence of content blocks parsed so far. A parser instance is
// single-owner and single-stream: create one per response, feed it chunks as
// they arrive, and read Blocks() whenever a snapshot is needed. Feeding the
// complete text in one Append yields the same blocks as feeding it byte by
// byte.
type StreamParser struct {
	lexer *Lexer
	buf   strings.Builder

	mode   parseMode
	blocks []ContentBlock

	textStart int

	toolName   string
	toolParams map[string]string

	paramName  string
	paramStart int
}

// NewStreamParser creates a parser for one response stream.
func NewStreamParser(vocab Vocabulary) *StreamParser {
	return &StreamParser{lexer: NewLexer(vocab)}
}

// Parse runs the parser over a complete (or truncated) response in one pass.
func Parse(text string, vocab Vocabulary) []ContentBlock {
	p := NewStreamParser(vocab)
	p.Append(text)
	return p.Blocks()
}

// Append feeds the next chunk of the stream to the parser.
func (p *StreamParser) Append(chunk string) {
	for i := 0; i < len(chunk); i++ {
		p.step(chunk[i])
	}
}

// step appends one byte and reclassifies the buffer suffix. Tag names are
// ASCII, so byte-wise stepping never matches a tag in the middle of a
// multi-byte rune.
func (p *StreamParser) step(c byte) {
	p.buf.WriteByte(c)
	s := p.buf.String()

	switch p.mode {
	case modeParam:
		value := s[p.paramStart:]
		if p.lexer.Vocabulary().IsRawPayload(p.toolName, p.paramName) {
			// The value may legitimately contain its own closing tag, so the
			// parameter ends only with the tool itself. Slice to the last
			// closing-tag occurrence; earlier occurrences are payload.
			// Consequence: the raw-payload parameter must be the tool's last
			// parameter. Anything between its final closing tag and the tool's
			// closing tag is discarded, so a parameter placed after it is never
			// recognized. The protocol docs order path before content/diff.
			if !p.lexer.ClosesWith(s, p.toolName) {
				return
			}
			value = value[:len(value)-len(ClosingTag(p.toolName))]
			if idx := strings.LastIndex(value, ClosingTag(p.paramName)); idx != -1 {
				value = value[:idx]
			}
			p.toolParams[p.paramName] = strings.TrimSpace(value)
			p.paramName = ""
			p.closeToolUse()
			return
		}
		closing := ClosingTag(p.paramName)
		if strings.HasSuffix(value, closing) {
			p.toolParams[p.paramName] = strings.TrimSpace(value[:len(value)-len(closing)])
			p.paramName = ""
			p.mode = modeToolUse
		}

	case modeToolUse:
		if p.lexer.ClosesWith(s, p.toolName) {
			p.closeToolUse()
			return
		}
		if name, ok := p.lexer.ParamOpening(s); ok {
			p.paramName = name
			p.paramStart = len(s)
			p.mode = modeParam
		}

	default: // modeText
		name, ok := p.lexer.ToolOpening(s)
		if !ok {
			return
		}
		// The opening tag was provisionally accumulated into the text span;
		// strip it before closing the span.
		text := strings.TrimSpace(s[p.textStart : len(s)-len(OpeningTag(name))])
		if text != "" {
			p.blocks = append(p.blocks, TextBlock(text))
		}
		p.toolName = name
		p.toolParams = make(map[string]string)
		p.mode = modeToolUse
	}
}

// closeToolUse emits the current tool use as complete and returns to text
// mode with a fresh span starting after the closing tag.
func (p *StreamParser) closeToolUse() {
	p.blocks = append(p.blocks, ContentBlock{
		Kind:   BlockToolUse,
		Name:   p.toolName,
		Params: p.toolParams,
	})
	p.toolName = ""
	p.toolParams = nil
	p.mode = modeText
	p.textStart = p.buf.Len()
}

// Blocks returns the blocks parsed so far. Completed blocks appear in the
// order their spans closed; if a span is still open it is appended as the
// single trailing partial block.
func (p *StreamParser) Blocks() []ContentBlock {
	out := make([]ContentBlock, len(p.blocks))
	copy(out, p.blocks)

	s := p.buf.String()
	switch p.mode {
	case modeText:
		if text := strings.TrimSpace(s[p.textStart:]); text != "" {
			out = append(out, ContentBlock{Kind: BlockText, Text: text, Partial: true})
		}
	case modeToolUse, modeParam:
		params := make(map[string]string, len(p.toolParams)+1)
		for k, v := range p.toolParams {
			params[k] = v
		}
		if p.mode == modeParam {
			value := s[p.paramStart:]
			// A completed closing tag at the very end means the value is done
			// even though the tool is still open.
			if closing := ClosingTag(p.paramName); strings.HasSuffix(value, closing) {
				value = value[:len(value)-len(closing)]
			}
			if value = strings.TrimSpace(value); value != "" {
				params[p.paramName] = value
			}
		}
		out = append(out, ContentBlock{
			Kind:    BlockToolUse,
			Name:    p.toolName,
			Params:  params,
			Partial: true,
		})
	}
	return out
}
