// System prompt construction for the tagged tool-use protocol.
//
// Information Hiding:
// - Prompt layout hidden
// - Protocol instruction wording hidden

package agent

import (
	"fmt"

	"github.com/PrimeOccasion/cline/assistant"
)

const toolUseInstructions = `TOOL USE

You have access to the tools listed below. You use one tool per message and
receive its result in the next message before choosing your next step.

Tool use is formatted with XML-style tags. The tool name becomes the
enclosing tag, and each parameter is a nested tag:

<tool_name>
<parameter_name>value</parameter_name>
</tool_name>

Always use the actual tool name as the tag name. Invoke at most one tool per
message and wait for its result before the next one.`

const interactionToolDocs = `## ask_followup_question
Ask the user for information you need to proceed. Use sparingly.
Parameters:
- question: (required) A clear, specific question.
Usage:
<ask_followup_question>
<question>question here</question>
</ask_followup_question>

## attempt_completion
Present the final result once the task is done. Only use this after
confirming previous tool uses succeeded.
Parameters:
- result: (required) The final result. Formulate it as a definitive
  statement, not a question or an offer of further help.
Usage:
<attempt_completion>
<result>result here</result>
</attempt_completion>`

// noToolNudge is fed back when a reply contains no tool invocation.
const noToolNudge = "You responded with text only. Continue the task with a tool, " +
	"ask the user with " + "<" + assistant.ToolAskFollowupQuestion + ">" +
	", or finish with " + "<" + assistant.ToolAttemptCompletion + ">."

// truncatedToolNudge is fed back when a tool invocation arrived without its
// closing tag.
const truncatedToolNudge = "Your tool invocation was cut off before its closing tag. " +
	"Re-send the complete invocation."

// systemPrompt assembles the role preamble, the protocol instructions, and
// the per-tool documentation.
func (a *Agent) systemPrompt() string {
	return fmt.Sprintf("%s\n\n%s\n\n# Tools\n\n%s\n\n%s",
		a.config.SystemPrompt,
		toolUseInstructions,
		a.toolRegistry.Description(),
		interactionToolDocs,
	)
}
