// Package assistant reconstructs structured content blocks from the
// tag-delimited text stream produced by the model.
//
// Information Hiding:
// - Tag grammar details hidden behind the lexer
// - Parser state machine internals hidden
// - Vocabulary is supplied by the caller, not hardcoded in the parser
package assistant

// Tool names understood by the default protocol vocabulary.
const (
	ToolExecuteCommand      = "execute_command"
	ToolReadFile            = "read_file"
	ToolWriteToFile         = "write_to_file"
	ToolReplaceInFile       = "replace_in_file"
	ToolSearchFiles         = "search_files"
	ToolListFiles           = "list_files"
	ToolAskFollowupQuestion = "ask_followup_question"
	ToolAttemptCompletion   = "attempt_completion"
)

// Parameter names understood by the default protocol vocabulary.
const (
	ParamCommand     = "command"
	ParamPath        = "path"
	ParamContent     = "content"
	ParamDiff        = "diff"
	ParamRegex       = "regex"
	ParamFilePattern = "file_pattern"
	ParamRecursive   = "recursive"
	ParamQuestion    = "question"
	ParamResult      = "result"
)

// Vocabulary is the closed set of tool and parameter names the parser
// recognizes. Tags outside the vocabulary are inert and flow through as
// ordinary text.
type Vocabulary struct {
	tools      map[string]bool
	params     map[string]bool
	rawPayload map[string]string // tool name -> parameter with free-form payload
}

// NewVocabulary builds a vocabulary from explicit name lists. rawPayload maps
// a tool name to the one parameter whose value may legitimately contain
// tag-like substrings (file content, diffs); termination for that parameter
// uses the last closing-tag occurrence instead of the suffix rule.
func NewVocabulary(tools, params []string, rawPayload map[string]string) Vocabulary {
	v := Vocabulary{
		tools:      make(map[string]bool, len(tools)),
		params:     make(map[string]bool, len(params)),
		rawPayload: make(map[string]string, len(rawPayload)),
	}
	for _, t := range tools {
		v.tools[t] = true
	}
	for _, p := range params {
		v.params[p] = true
	}
	for tool, param := range rawPayload {
		v.rawPayload[tool] = param
	}
	return v
}

// DefaultVocabulary returns the standard coding-assistant protocol.
func DefaultVocabulary() Vocabulary {
	return NewVocabulary(
		[]string{
			ToolExecuteCommand,
			ToolReadFile,
			ToolWriteToFile,
			ToolReplaceInFile,
			ToolSearchFiles,
			ToolListFiles,
			ToolAskFollowupQuestion,
			ToolAttemptCompletion,
		},
		[]string{
			ParamCommand,
			ParamPath,
			ParamContent,
			ParamDiff,
			ParamRegex,
			ParamFilePattern,
			ParamRecursive,
			ParamQuestion,
			ParamResult,
		},
		map[string]string{
			ToolWriteToFile:   ParamContent,
			ToolReplaceInFile: ParamDiff,
		},
	)
}

// HasTool reports whether name is a known tool.
func (v Vocabulary) HasTool(name string) bool {
	return v.tools[name]
}

// HasParam reports whether name is a known parameter.
func (v Vocabulary) HasParam(name string) bool {
	return v.params[name]
}

// IsRawPayload reports whether param carries free-form payload for tool.
func (v Vocabulary) IsRawPayload(tool, param string) bool {
	return v.rawPayload[tool] == param
}

// Tools returns the tool names in unspecified order.
func (v Vocabulary) Tools() []string {
	names := make([]string, 0, len(v.tools))
	for name := range v.tools {
		names = append(names, name)
	}
	return names
}

// Params returns the parameter names in unspecified order.
func (v Vocabulary) Params() []string {
	names := make([]string, 0, len(v.params))
	for name := range v.params {
		names = append(names, name)
	}
	return names
}
