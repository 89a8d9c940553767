package assistant

// BlockKind discriminates the ContentBlock variant.
type BlockKind int

const (
	BlockText BlockKind = iota
	BlockToolUse
)

// ContentBlock is one parsed unit of assistant output: a text span or a tool
// invocation. Partial marks a block whose closing tag had not arrived when
// parsing stopped; at most one block per parse is partial and it is always
// the last.
type ContentBlock struct {
	Kind    BlockKind
	Partial bool

	// BlockText
	Text string

	// BlockToolUse
	Name   string
	Params map[string]string
}

// TextBlock builds a completed text block.
func TextBlock(text string) ContentBlock {
	return ContentBlock{Kind: BlockText, Text: text}
}

// ToolUseBlock builds a completed tool-use block.
func ToolUseBlock(name string, params map[string]string) ContentBlock {
	return ContentBlock{Kind: BlockToolUse, Name: name, Params: params}
}
