package answer

// ErrorKind is the outcome of one pipeline stage.
type ErrorKind int

const (
	KindOK ErrorKind = iota
	KindViolation
	KindIntentEmpty
	KindNoResults
	KindSynthesisEmpty
	KindNoAnswer
	KindModerationEmpty
)

var kindNames = map[ErrorKind]string{
	KindOK:              "ok",
	KindViolation:       "violation",
	KindIntentEmpty:     "intent_empty",
	KindNoResults:       "no_results",
	KindSynthesisEmpty:  "synthesis_empty",
	KindNoAnswer:        "no_answer",
	KindModerationEmpty: "moderation_empty",
}

func (k ErrorKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// fallbackMessages is the user-facing text for every stage outcome that ends the pipeline.
var fallbackMessages = map[ErrorKind]string{
	KindViolation:       "I can only answer questions related to the provided documents.",
	KindIntentEmpty:     "I'm sorry, I couldn't understand the question. Please try rephrasing it.",
	KindNoResults:       "I'm sorry, I couldn't find any information related to your question.",
	KindSynthesisEmpty:  "I'm sorry, I couldn't generate an answer right now. Please try again.",
	KindNoAnswer:        "I'm sorry, I couldn't find a relevant answer in the provided documents.",
	KindModerationEmpty: "I'm sorry, I couldn't finalize an answer right now. Please try again.",
}

// FallbackMessage returns the fixed text shown for kind.
func FallbackMessage(kind ErrorKind) string {
	return fallbackMessages[kind]
}

// StageResult is what a stage hands back to the pipeline. Text is meaningful only with KindOK.
type StageResult struct {
	Kind     ErrorKind
	Text     string
	Thoughts string
}

func stop(kind ErrorKind) StageResult {
	return StageResult{Kind: kind}
}
