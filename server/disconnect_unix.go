//go:build unix

package server

import (
	"context"
	"errors"
	"net"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// watchDisconnect returns a context that is cancelled when the client closes
// conn. It peeks at the socket, so a pipelined request is left unread. stop
// must be called before the handler returns, because fasthttp reads the
// connection again afterwards.
func watchDisconnect(parent context.Context, conn net.Conn) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)

	sc, ok := conn.(syscall.Conn)
	if !ok {
		return ctx, cancel
	}
	rc, err := sc.SyscallConn()
	if err != nil {
		return ctx, cancel
	}

	done := make(chan struct{})
	go func() {
		defer close(done)

		closed := false
		buf := make([]byte, 1)
		_ = rc.Read(func(fd uintptr) bool {
			n, _, err := unix.Recvfrom(int(fd), buf, unix.MSG_PEEK)
			switch {
			case errors.Is(err, unix.EAGAIN), errors.Is(err, unix.EINTR):
				return false
			case err != nil, n == 0:
				closed = true
			}
			return true
		})
		if closed {
			cancel()
		}
	}()

	return ctx, func() {
		// An expired deadline unblocks the pending read.
		_ = conn.SetReadDeadline(time.Unix(1, 0))
		<-done
		_ = conn.SetReadDeadline(time.Time{})
		cancel()
	}
}
