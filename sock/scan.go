package sock

import (
	"bytes"
	"context"
	"errors"
	"io"
)

// ReceiveUntil reads until delim appears, consuming through the delimiter
// and returning the bytes strictly before it. At most maxSize bytes are
// consumed. When the delimiter does not appear within that budget, or the
// peer closes first, the call fails with a *DelimiterNotFoundError carrying
// the bytes consumed so far.
//
// On plaintext sockets the scan peeks the kernel queue with MSG_PEEK so
// it never reads past the delimiter, draining each cleared round as it
// advances. Encrypted streams, where the ciphertext hides plaintext byte
// positions, fall back to a destructive single-byte scan.
func (s *Stream) ReceiveUntil(ctx context.Context, delim []byte, maxSize int) ([]byte, error) {
	if len(delim) == 0 {
		return nil, errors.New("sock: empty delimiter")
	}
	if maxSize < len(delim) {
		return nil, errors.New("sock: maxSize shorter than delimiter")
	}
	finish := s.guard(ctx)
	var (
		data []byte
		err  error
	)
	if rc, ok := s.syscallConn(); ok && peekSupported {
		data, err = s.receiveUntilPeek(rc, delim, maxSize)
	} else {
		data, err = s.receiveUntilRead(delim, maxSize)
	}
	return data, finish(err)
}

// receiveUntilRead scans destructively one byte at a time. Reading past the
// delimiter would lose data belonging to the next frame, so the read size
// is pinned to 1.
func (s *Stream) receiveUntilRead(delim []byte, maxSize int) ([]byte, error) {
	conn := s.transport()
	buf := make([]byte, 0, maxSize)
	one := make([]byte, 1)
	for {
		n, err := conn.Read(one)
		if n > 0 {
			buf = append(buf, one[0])
			if bytes.HasSuffix(buf, delim) {
				return buf[:len(buf)-len(delim)], nil
			}
			if len(buf) >= maxSize {
				return nil, &DelimiterNotFoundError{Partial: buf, MaxSize: maxSize}
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, &DelimiterNotFoundError{Partial: buf, MaxSize: maxSize, cause: io.ErrUnexpectedEOF}
			}
			return nil, err
		}
	}
}
