package debuglog

import (
	"errors"
	"io"
	"net"
)

// CloseWithLog closes c and warns when that fails. A nil closer and a
// connection that is already closed are both silent.
func CloseWithLog(label string, c io.Closer) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		WarnLog("%s: %v", label, err)
	}
}
