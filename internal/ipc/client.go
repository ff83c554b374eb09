package ipc

import (
	"fmt"
	"net"
	"time"
)

// Send connects to the control socket, writes a single token and closes the
// connection. There is no acknowledgement; success means the token was
// delivered, not acted on.
func Send(path, token string) error {
	if !KnownToken(token) {
		return fmt.Errorf("unknown control token %q", token)
	}
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return err
	}
	defer conn.Close()

	_ = conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
	if _, err := conn.Write([]byte(token)); err != nil {
		return fmt.Errorf("write control token: %w", err)
	}
	return nil
}
