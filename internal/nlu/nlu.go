// Package nlu classifies support questions into intent keys.
package nlu

import (
	"context"
	"errors"
)

// ErrNoPrediction is returned when a backend has nothing to offer for a text.
var ErrNoPrediction = errors.New("no prediction")

// Prediction is a classifier's best guess. IntentKey keeps the backend's
// retrieval prefix, e.g. "faq/greeting".
type Prediction struct {
	IntentKey  string
	Confidence float64
}

// Classifier predicts the intent of a piece of text.
type Classifier interface {
	Parse(ctx context.Context, text string) (Prediction, error)
}

// IntentFromKey drops the first prefixLen characters of key. Keys no longer
// than the prefix yield "".
func IntentFromKey(key string, prefixLen int) string {
	if prefixLen < 0 {
		prefixLen = 0
	}
	r := []rune(key)
	if len(r) <= prefixLen {
		return ""
	}
	return string(r[prefixLen:])
}

// Noop never predicts anything.
type Noop struct{}

func (Noop) Parse(context.Context, string) (Prediction, error) {
	return Prediction{}, ErrNoPrediction
}
