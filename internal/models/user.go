package models

import (
	"encoding/json"
	"strings"
)

// User represents a user account together with its embedded notebook profile.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    Timestamp `json:"createdAt"`
	Profile      *Profile  `json:"profile,omitempty"`
}

// PublicUser is the client-facing view of a User. It never carries the password hash.
type PublicUser struct {
	ID      string   `json:"id"`
	Email   string   `json:"email"`
	Name    string   `json:"name"`
	Profile *Profile `json:"profile"`
}

// Public strips credentials from the user.
func (u User) Public() PublicUser {
	return PublicUser{
		ID:      u.ID,
		Email:   u.Email,
		Name:    u.Name,
		Profile: u.Profile,
	}
}

// NormalizeEmail lower-cases and trims an address so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UnmarshalJSON decodes a user, treating a malformed profile as missing
// so that normalization can repair it instead of failing the whole collection.
func (u *User) UnmarshalJSON(data []byte) error {
	type alias User
	aux := struct {
		*alias
		Profile json.RawMessage `json:"profile"`
	}{alias: (*alias)(u)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	u.Profile = nil
	if isPresent(aux.Profile) {
		var p Profile
		if err := json.Unmarshal(aux.Profile, &p); err == nil {
			u.Profile = &p
		}
	}
	return nil
}

// isPresent reports whether a raw JSON value carries something other than null.
func isPresent(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return s != "" && s != "null"
}
