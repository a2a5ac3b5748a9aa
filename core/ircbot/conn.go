package ircbot

import (
	"errors"
	"io"
	"net"
	"sync"

	"golang.org/x/text/transform"

	"bcdice-irc/core/config"
)

var errConnectionClosed = errors.New("connection closed by server")

// encodedConn converts between the connection's charset and UTF-8 and
// remembers the first read error, which explains why the link ended.
// Every Write carries whole lines, so each is encoded on its own and
// stateful encodings start over on every line.
type encodedConn struct {
	net.Conn
	enc    *config.Encoding
	reader io.Reader

	mu      sync.Mutex
	readErr error
}

func newEncodedConn(raw net.Conn, enc *config.Encoding) *encodedConn {
	c := &encodedConn{Conn: raw, enc: enc, reader: raw}
	if !enc.IsUTF8() {
		c.reader = transform.NewReader(raw, enc.NewDecoder())
	}
	return c
}

func (c *encodedConn) Read(p []byte) (int, error) {
	n, err := c.reader.Read(p)
	if err != nil {
		c.mu.Lock()
		if c.readErr == nil {
			c.readErr = err
		}
		c.mu.Unlock()
	}
	return n, err
}

func (c *encodedConn) Write(p []byte) (int, error) {
	if c.enc.IsUTF8() {
		return c.Conn.Write(p)
	}
	encoded, err := c.enc.NewEncoder().Bytes(p)
	if err != nil {
		return 0, err
	}
	if _, err := c.Conn.Write(encoded); err != nil {
		return 0, err
	}
	return len(p), nil
}

// cause describes the first read failure, or nil when reads never failed.
// A clean EOF becomes errConnectionClosed.
func (c *encodedConn) cause() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if errors.Is(c.readErr, io.EOF) {
		return errConnectionClosed
	}
	return c.readErr
}
