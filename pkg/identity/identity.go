package identity

import "github.com/google/uuid"

// New returns configured if non-empty, otherwise a fresh random
// identifier suitable for use as a process's owner-id/originator-id.
func New(configured string) string {
	if configured != "" {
		return configured
	}
	return uuid.NewString()
}
