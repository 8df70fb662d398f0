package xdlock

import (
	"crypto/rand"
	"encoding/base64"
	"sync"

	"github.com/latticekit/platformkit/pkg/identity"
)

// processOwnerID is this process's identity value, lazily resolved once
// and shared by every Redis mutex that doesn't override it with
// WithOwnerID. See pkg/identity for how it's derived.
var processOwnerID = sync.OnceValue(func() string {
	return identity.New("")
})

// defaultGenValueFunc returns a redsync value-generation function that
// prefixes the random per-acquisition token redsync itself would have
// generated with ownerID, so a lock's value in Redis reveals which
// process holds it without weakening redsync's uniqueness guarantee
// (the random suffix still changes on every acquisition).
func defaultGenValueFunc(ownerID string) func() (string, error) {
	return func() (string, error) {
		buf := make([]byte, 16)
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		return ownerID + ":" + base64.RawURLEncoding.EncodeToString(buf), nil
	}
}
