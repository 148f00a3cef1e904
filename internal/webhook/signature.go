package webhook

import (
	"errors"
	"strings"

	"github.com/google/go-github/v57/github"
)

var (
	// ErrInvalidSignature is returned when a delivery's signature is missing or wrong
	ErrInvalidSignature = errors.New("invalid signature")
	// ErrMalformedPayload is returned when a delivery body cannot be decoded
	ErrMalformedPayload = errors.New("malformed payload")
)

// VerifySignature checks the X-Hub-Signature-256 header value against an
// HMAC-SHA256 of body keyed by secret. An empty secret or header never verifies.
func VerifySignature(secret []byte, header string, body []byte) error {
	if len(secret) == 0 || !strings.HasPrefix(header, "sha256=") {
		return ErrInvalidSignature
	}
	// go-github compares the digests with hmac.Equal
	if err := github.ValidateSignature(header, body, secret); err != nil {
		return ErrInvalidSignature
	}
	return nil
}
