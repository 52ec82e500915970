package app

import (
	"errors"

	"contactdesk/pkg/domain"
)

// Notice texts shown to the submitter.
const (
	MsgMissingFields = "Please fill out all fields."
	MsgInvalidEmail  = "Please enter a valid email address."
	MsgSendFailed    = "Failed to send message. Please try again later."
	MsgSent          = "Message Sent Successfully!"
)

var (
	ErrMissingFields = errors.New("missing required field")
	ErrInvalidEmail  = errors.New("invalid email address")
	// ErrSubmitInFlight is returned while a previous submission is still generating.
	ErrSubmitInFlight = errors.New("submission already in flight")
)

// ValidationError reports which field stopped a submission.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Notice is the error banner for this validation failure.
func (e *ValidationError) Notice() domain.OutcomeNotice {
	text := MsgMissingFields
	if errors.Is(e.Err, ErrInvalidEmail) {
		text = MsgInvalidEmail
	}
	return domain.OutcomeNotice{Text: text, Kind: domain.NoticeError}
}

func sendFailedNotice() domain.OutcomeNotice {
	return domain.OutcomeNotice{Text: MsgSendFailed, Kind: domain.NoticeError}
}

func sentNotice() domain.OutcomeNotice {
	return domain.OutcomeNotice{Text: MsgSent, Kind: domain.NoticeSuccess}
}
