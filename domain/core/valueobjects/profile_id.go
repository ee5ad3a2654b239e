package valueobjects

import (
	"strings"
	"unicode"

	pkgerrors "github.com/Widerk/shapesbonding/pkg/errors"
)

// ProfileID is the storage key of a saved profile, derived from its name.
// Names that normalize to the same ID refer to the same profile.
type ProfileID struct {
	value string
}

// IdentityFor lower-cases name and replaces each run of whitespace with a
// single underscore. Nothing else is stripped.
func IdentityFor(name string) ProfileID {
	var b strings.Builder
	b.Grow(len(name))
	inSpace := false
	for _, r := range strings.ToLower(name) {
		if unicode.IsSpace(r) {
			if !inSpace {
				b.WriteByte('_')
			}
			inSpace = true
			continue
		}
		inSpace = false
		b.WriteRune(r)
	}
	return ProfileID{value: b.String()}
}

// NewProfileIDFromString wraps an ID received from storage or a client
func NewProfileIDFromString(id string) (ProfileID, error) {
	if id == "" {
		return ProfileID{}, pkgerrors.NewValidationError("profile ID cannot be empty")
	}
	return ProfileID{value: id}, nil
}

func (id ProfileID) String() string {
	return id.value
}

func (id ProfileID) Equals(other ProfileID) bool {
	return id.value == other.value
}

func (id ProfileID) IsZero() bool {
	return id.value == ""
}
