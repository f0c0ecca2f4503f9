//go:build !unix

package sock

import "syscall"

// The MSG_PEEK scan needs raw socket access; platforms without it fall
// back to the byte-at-a-time read.
const peekSupported = false

func (s *Stream) receiveUntilPeek(_ syscall.RawConn, delim []byte, maxSize int) ([]byte, error) {
	return s.receiveUntilRead(delim, maxSize)
}
