package sock

import (
	"errors"
	"fmt"
)

// ErrAlreadyTLS is returned by Stream.StartTLS when the stream has already
// been upgraded to an encrypted transport.
var ErrAlreadyTLS = errors.New("sock: stream already upgraded to TLS")

// DelimiterNotFoundError is returned by Stream.ReceiveUntil when the
// delimiter does not appear within the size budget, or when the peer closes
// the connection first. Partial holds the bytes consumed so far, so callers
// can log them or retry with a larger budget.
type DelimiterNotFoundError struct {
	Partial []byte
	MaxSize int
	cause   error
}

func (e *DelimiterNotFoundError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("sock: delimiter not found in %d bytes: %v", len(e.Partial), e.cause)
	}
	return fmt.Sprintf("sock: delimiter not found within %d bytes", e.MaxSize)
}

func (e *DelimiterNotFoundError) Unwrap() error { return e.cause }
