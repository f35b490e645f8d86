package chain

import (
	"errors"
	"fmt"
	"strings"
)

// Stage tells apart a submission that never produced a transaction hash from
// a transaction that was mined and reverted. The executor keys its state
// transitions off this distinction.
type Stage string

const (
	// StageRejected: user/wallet declined or the call failed before a
	// transaction hash existed.
	StageRejected Stage = "rejected"
	// StageReverted: the transaction was mined but reverted/failed.
	StageReverted Stage = "reverted"
)

// SubmissionError classifies wallet/contract failures by stage.
type SubmissionError struct {
	Stage      Stage
	StatusCode int
	Message    string
	Cause      error
}

func (e *SubmissionError) Error() string {
	if e == nil {
		return "<nil>"
	}

	parts := make([]string, 0, 4)
	parts = append(parts, fmt.Sprintf("batch %s", e.Stage))

	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.StatusCode))
	}
	if msg := strings.TrimSpace(e.Message); msg != "" {
		parts = append(parts, msg)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}

	return strings.Join(parts, ": ")
}

func (e *SubmissionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// IsRejected reports whether err is a pre-hash submission rejection.
func IsRejected(err error) bool {
	var submissionErr *SubmissionError
	return errors.As(err, &submissionErr) && submissionErr.Stage == StageRejected
}

// IsReverted reports whether err is a post-hash execution failure.
func IsReverted(err error) bool {
	var submissionErr *SubmissionError
	return errors.As(err, &submissionErr) && submissionErr.Stage == StageReverted
}
