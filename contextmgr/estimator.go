package contextmgr

import (
	"strings"
	"unicode"

	"github.com/PrimeOccasion/cline/model"
)

// Estimation constants. These are a tuning surface, not a correctness
// requirement; they must stay deterministic and monotonic.
const (
	roleOverhead       = 4.0
	toolCallOverhead   = 12.0
	toolResultOverhead = 8.0
	unknownOverhead    = 2.0

	// correctionFactor compensates for systematic undercount relative to the
	// real tokenizer.
	correctionFactor = 1.15
)

// Estimator assigns an approximate token cost to conversation messages.
// The zero value is ready to use.
type Estimator struct{}

// Message estimates the cost of a single message.
func (Estimator) Message(msg model.ConversationMessage) int {
	cost := roleOverhead
	for _, part := range msg.Content {
		switch part.Kind {
		case model.PartText:
			cost += textCost(part.Text)
		case model.PartToolInvocation:
			args := model.SerializedArguments(part.Arguments)
			cost += toolCallOverhead + float64(len(args))/4
		case model.PartToolResult:
			cost += toolResultOverhead + float64(len(part.Payload))/4
		default:
			cost += unknownOverhead
		}
	}
	return int(cost * correctionFactor)
}

// History estimates the total cost of a message sequence.
func (e Estimator) History(history []model.ConversationMessage) int {
	total := 0
	for _, msg := range history {
		total += e.Message(msg)
	}
	return total
}

// textCost approximates sub-word tokenization: words plus half a token per
// punctuation character tracks real tokenizers better than raw length.
func textCost(text string) float64 {
	words := len(strings.Fields(text))
	punct := 0
	for _, r := range text {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			punct++
		}
	}
	return float64(words) + 0.5*float64(punct)
}
