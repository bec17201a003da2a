//go:build !unix

package server

import (
	"context"
	"net"
)

// watchDisconnect only follows parent on platforms without socket peeking.
func watchDisconnect(parent context.Context, _ net.Conn) (context.Context, func()) {
	return context.WithCancel(parent)
}
