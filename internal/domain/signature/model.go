package signature

import (
	"regexp"
	"time"
)

var dataURLPattern = regexp.MustCompile(`^data:image/(png|jpeg|jpg|svg\+xml|webp);base64,[A-Za-z0-9+/=\s]+$`)

// UserSignature is the one stored signature of a nurse or physician. Data is
// the plaintext data URL; the repository stores it sealed.
type UserSignature struct {
	SignatureID string    `json:"signature_id"`
	UserID      string    `json:"user_id"`
	Data        string    `json:"signature_data"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PatientSignature is captured once per radiology consent and never updated.
type PatientSignature struct {
	SignatureID string    `json:"signature_id"`
	Data        string    `json:"signature_data"`
	CreatedAt   time.Time `json:"created_at"`
}

// ValidData reports whether s is a base64 image data URL as produced by a
// canvas signature pad.
func ValidData(s string) bool {
	return dataURLPattern.MatchString(s)
}
