package otp

import "time"

// IssuedEvent carries a freshly issued code to the notification sink.
// Dispatch is best-effort: the code stays valid even if delivery fails.
type IssuedEvent struct {
	Email      string
	Code       string
	Purpose    Purpose
	ExpiresAt  time.Time
	OccurredAt time.Time
}

func (IssuedEvent) EventName() string { return "otp.issued" }

func NewIssuedEvent(c *Code) IssuedEvent {
	return IssuedEvent{
		Email:      c.Email,
		Code:       c.Code,
		Purpose:    c.Purpose,
		ExpiresAt:  c.ExpiresAt,
		OccurredAt: time.Now().UTC(),
	}
}
