// Package identity is the credential verification seam. The current
// implementation is an explicit placeholder: it accepts any address with at
// least one non-zero byte and is not cryptographically meaningful. Real
// signature verification belongs to the host platform.
package identity

import "agentmemory/pkg/domain"

// Verify reports whether addr is acceptable as a signer identity.
func Verify(addr domain.Address) bool {
	return !addr.IsZero()
}
