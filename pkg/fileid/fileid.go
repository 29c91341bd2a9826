// Package fileid generates and parses the relay's file identifiers: a
// compact 128-bit value rendered as a URL-safe short string, globally
// unique per file creation (spec.md §3 "Identifier").
package fileid

import (
	"encoding/base64"
	"errors"

	"github.com/google/uuid"
)

// ErrInvalidID is returned by Parse when the string is not a validly
// encoded 128-bit identifier.
var ErrInvalidID = errors.New("fileid: invalid identifier")

// ID is an opaque 128-bit file identifier.
type ID string

// New allocates a fresh, globally unique identifier.
func New() ID {
	u := uuid.New()
	return ID(base64.RawURLEncoding.EncodeToString(u[:]))
}

// String returns the URL-safe short-string form.
func (id ID) String() string {
	return string(id)
}

// Parse validates that s decodes to exactly 16 bytes, returning it as an ID.
// Used by handlers to reject malformed {id} path parameters before they
// ever reach the Backbone.
func Parse(s string) (ID, error) {
	decoded, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil || len(decoded) != 16 {
		return "", ErrInvalidID
	}
	return ID(s), nil
}
