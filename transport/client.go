package transport

import (
	"context"
	"fmt"
	"io"
	"net"

	"weightcast/weights"
)

// Fetch opens one connection to the owner endpoint, drains the stream to
// end-of-stream and parses the payload into a weight vector. The owner
// closes the connection after writing and sends no line terminator, so
// end-of-message is signalled only by socket close; reading a single
// delimited line would be wrong here.
//
// A network-level failure fails the whole Fetch; there is no internal retry.
// Cancelling the context abandons the pending read by closing the socket.
func Fetch(ctx context.Context, address string) (weights.Vector, error) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %q: %v", ErrConnect, address, err)
	}
	defer func() {
		_ = conn.Close()
	}()

	stop := context.AfterFunc(ctx, func() {
		_ = conn.Close()
	})
	defer stop()

	data, err := io.ReadAll(conn)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: read from %q: %v", ErrRead, address, err)
	}

	return Parse(data), nil
}
