package workflow

// Action is what the support workflow did with a question.
type Action int

const (
	ActionNoPrediction Action = iota
	ActionLowConfidence
	ActionNoResponse
	ActionAnswered
)

func (a Action) String() string {
	switch a {
	case ActionNoPrediction:
		return "Skipped - No prediction"
	case ActionLowConfidence:
		return "Skipped - Low confidence"
	case ActionNoResponse:
		return "Skipped - No response defined"
	case ActionAnswered:
		return "Answered"
	default:
		return "Unknown"
	}
}

// Decide applies the auto-response decision table.
func Decide(intent string, confidence, threshold float64, hasResponse bool) Action {
	switch {
	case intent == "":
		return ActionNoPrediction
	case confidence < threshold:
		return ActionLowConfidence
	case !hasResponse:
		return ActionNoResponse
	default:
		return ActionAnswered
	}
}
