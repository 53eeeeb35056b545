package signature

import "errors"

var (
	ErrNotFound    = errors.New("signature not found")
	ErrInvalidData = errors.New("signature must be a base64 image data URL")
)
