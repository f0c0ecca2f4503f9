//go:build unix

package bridge

import (
	"context"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// pollSlice bounds cancellation latency while blocked in poll(2).
const pollSlice = 100 // milliseconds

// WaitReadable suspends until the handle has readable data, its peer hung
// up, or ctx unwinds.
func WaitReadable(ctx context.Context, c syscall.Conn) error {
	return waitReady(ctx, c, unix.POLLIN)
}

// WaitWritable suspends until the handle accepts writes or ctx unwinds.
func WaitWritable(ctx context.Context, c syscall.Conn) error {
	return waitReady(ctx, c, unix.POLLOUT)
}

func waitReady(ctx context.Context, c syscall.Conn, events int16) error {
	rc, err := c.SyscallConn()
	if err != nil {
		return err
	}
	var fd int32
	if err := rc.Control(func(f uintptr) { fd = int32(f) }); err != nil {
		return err
	}
	for {
		if ctx.Err() != nil {
			return context.Cause(ctx)
		}
		fds := []unix.PollFd{{Fd: fd, Events: events}}
		n, err := unix.Poll(fds, pollSlice)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return os.NewSyscallError("poll", err)
		}
		if n > 0 && fds[0].Revents&(events|unix.POLLHUP|unix.POLLERR) != 0 {
			return nil
		}
	}
}
