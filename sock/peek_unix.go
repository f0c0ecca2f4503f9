//go:build unix

package sock

import (
	"bytes"
	"io"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

const peekSupported = true

// receiveUntilPeek scans for delim using MSG_PEEK so the socket is never
// read past the delimiter. Each round peeks the unread tail of the kernel
// queue, searches the positions not cleared in earlier rounds (a match can
// start at most len(delim)-1 bytes before the consumed prefix ends), and
// then drains the round into the call-local buffer. Draining every round
// keeps the kernel receive buffer from filling and stalling the peer while
// the scan waits for the delimiter.
func (s *Stream) receiveUntilPeek(rc syscall.RawConn, delim []byte, maxSize int) ([]byte, error) {
	conn := s.transport()
	buf := make([]byte, maxSize)
	filled := 0
	for {
		n, eof, err := peekTail(rc, buf[filled:])
		if err != nil {
			return nil, err
		}
		if n > 0 {
			start := filled - len(delim) + 1
			if start < 0 {
				start = 0
			}
			if i := bytes.Index(buf[start:filled+n], delim); i >= 0 {
				end := start + i + len(delim)
				if _, err := io.ReadFull(conn, buf[filled:end]); err != nil {
					return nil, err
				}
				return buf[: end-len(delim) : end-len(delim)], nil
			}
			if _, err := io.ReadFull(conn, buf[filled:filled+n]); err != nil {
				return nil, err
			}
			filled += n
		}
		if eof {
			return nil, &DelimiterNotFoundError{Partial: buf[:filled:filled], MaxSize: maxSize, cause: io.ErrUnexpectedEOF}
		}
		if filled >= maxSize {
			return nil, &DelimiterNotFoundError{Partial: buf[:maxSize:maxSize], MaxSize: maxSize}
		}
	}
}

// peekTail blocks until the kernel queue holds at least one byte or the
// peer has shut down, then reports up to len(buf) visible bytes without
// consuming them. eof means no further bytes will arrive.
func peekTail(rc syscall.RawConn, buf []byte) (n int, eof bool, err error) {
	rerr := rc.Read(func(fd uintptr) bool {
		for {
			m, _, perr := unix.Recvfrom(int(fd), buf, unix.MSG_PEEK|unix.MSG_DONTWAIT)
			switch perr {
			case unix.EINTR:
				continue
			case unix.EAGAIN:
				return false
			case nil:
			default:
				err = os.NewSyscallError("recvfrom", perr)
				return true
			}
			if m == 0 {
				eof = true
			}
			n = m
			return true
		}
	})
	if err == nil {
		err = rerr
	}
	return n, eof, err
}
