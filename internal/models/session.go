package models

// Session binds an opaque, unguessable identifier to a user until it is revoked.
type Session struct {
	SID        string    `json:"sid"`
	UserID     string    `json:"userId"`
	CreatedAt  Timestamp `json:"createdAt"`
	LastSeenAt Timestamp `json:"lastSeenAt"`
}
