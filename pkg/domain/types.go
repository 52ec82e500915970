package domain

import "time"

// ContactRecord is the three-field submission collected by the contact form.
type ContactRecord struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// IsZero reports whether every field is empty.
func (r ContactRecord) IsZero() bool {
	return r == ContactRecord{}
}

type NoticeKind string

const (
	NoticeSuccess NoticeKind = "success"
	NoticeError   NoticeKind = "error"
)

// OutcomeNotice is the transient banner shown after a submission attempt.
type OutcomeNotice struct {
	Text string     `json:"text"`
	Kind NoticeKind `json:"kind"`
}

// IsZero reports whether the notice is empty (no notice shown).
func (n OutcomeNotice) IsZero() bool {
	return n.Text == "" && n.Kind == ""
}

type SubmissionState string

const (
	StateIdle       SubmissionState = "idle"
	StateValidating SubmissionState = "validating"
	StateGenerating SubmissionState = "generating"
	StateSettled    SubmissionState = "settled"
)

type ReplySource string

const (
	ReplyFromModel    ReplySource = "model"
	ReplyFromFallback ReplySource = "fallback"
)

// AdminNotification is sent to the site owner for every accepted submission.
type AdminNotification struct {
	To        string    `json:"to"`
	From      string    `json:"from"`
	Name      string    `json:"name"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// ContactMessage is the persisted shape of a submission (contact_messages).
type ContactMessage struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Email       string            `json:"email"`
	Message     string            `json:"message"`
	SubmittedAt time.Time         `json:"submitted_at"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// AutoReply is the confirmation email delivered back to the submitter.
type AutoReply struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// DispatchKind names the downstream action a dispatch job carries.
type DispatchKind string

const (
	DispatchAdminNotification DispatchKind = "admin_notification"
	DispatchContactMessage    DispatchKind = "contact_message"
	DispatchAutoReply         DispatchKind = "auto_reply"
)
