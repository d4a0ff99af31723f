// Package identity canonicalizes opaque entity identifiers before they are
// embedded in request paths.
package identity

import "strings"

// Normalize inserts the canonical 8-4-4-4-12 separators into a 32-character
// identifier that is missing them. Any other input — already-separated,
// shorter, longer — is returned unchanged; the backend is the authority on
// what an identifier means, so this is a formatting fix, not validation.
func Normalize(id string) string {
	if len(id) != 32 || strings.Contains(id, "-") {
		return id
	}
	return id[:8] + "-" + id[8:12] + "-" + id[12:16] + "-" + id[16:20] + "-" + id[20:]
}
