package session

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrInvalidName reports a session name that cannot be used as a directory.
var ErrInvalidName = errors.New("invalid session name")

var nameRegexp = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

// ValidateName checks that name is lowercase alphanumeric with '-' or '_',
// starts with a letter or digit, and is at most 64 bytes.
func ValidateName(name string) error {
	if !nameRegexp.MatchString(name) {
		return fmt.Errorf("%w %q: use lowercase letters, digits, '-' or '_' (max 64)", ErrInvalidName, name)
	}
	return nil
}
