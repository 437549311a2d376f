package id

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// TokenSource issues lease tokens in the wire protocol's convention:
// "uuid:counter", where the UUID identifies the client connection and the
// counter distinguishes individual leases. Safe for concurrent use.
type TokenSource struct {
	base string
	n    atomic.Int64
}

// NewTokenSource creates a TokenSource with a fresh client UUID.
func NewTokenSource() *TokenSource {
	return &TokenSource{base: uuid.NewString()}
}

// Next returns the next lease token.
func (t *TokenSource) Next() string {
	return fmt.Sprintf("%s:%d", t.base, t.n.Add(1))
}
