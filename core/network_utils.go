package core

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/pion/stun"

	"bcdice-irc/core/ircbot"
)

// IsNetworkError reports whether err comes from the network layer.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}

// DescribeConnectionError returns a user-facing explanation of a connection failure.
func DescribeConnectionError(err error) string {
	if err == nil {
		return "Unknown network error"
	}

	prefix := "Connection lost"
	var connErr *ircbot.ConnectError
	if errors.As(err, &connErr) {
		prefix = fmt.Sprintf("Could not connect to %s", connErr.Endpoint)
		err = connErr.Err
	}

	var dnsErr *net.DNSError
	var opErr *net.OpError
	var netErr net.Error
	switch {
	case errors.As(err, &dnsErr):
		return fmt.Sprintf("%s: cannot resolve hostname (%s)", prefix, dnsErr.Name)
	case errors.As(err, &netErr) && netErr.Timeout():
		return fmt.Sprintf("%s: connection timed out", prefix)
	case errors.As(err, &opErr) && opErr.Op == "dial":
		return fmt.Sprintf("%s: cannot connect to server", prefix)
	case errors.Is(err, context.Canceled):
		return fmt.Sprintf("%s: canceled", prefix)
	}
	return fmt.Sprintf("%s: %v", prefix, err)
}

// CheckTCP opens and closes a TCP connection to endpoint and returns how long
// the handshake took.
func CheckTCP(ctx context.Context, endpoint string, timeout time.Duration) (time.Duration, error) {
	d := net.Dialer{Timeout: timeout}
	start := time.Now()
	conn, err := d.DialContext(ctx, "tcp", endpoint)
	if err != nil {
		return 0, err
	}
	elapsed := time.Since(start)
	_ = conn.Close()
	return elapsed, nil
}

// CheckSTUN sends a STUN binding request to serverAddr over UDP and returns
// the external address the server saw.
func CheckSTUN(serverAddr string, timeout time.Duration) (string, error) {
	conn, err := net.Dial("udp", serverAddr)
	if err != nil {
		return "", fmt.Errorf("failed to dial STUN server: %w", err)
	}
	defer conn.Close()

	c, err := stun.NewClient(conn)
	if err != nil {
		return "", fmt.Errorf("failed to create STUN client: %w", err)
	}
	defer c.Close()

	message := stun.MustBuild(stun.TransactionID, stun.BindingRequest)

	type result struct {
		addr stun.XORMappedAddress
		err  error
	}
	done := make(chan result, 1)

	go func() {
		var res result
		err := c.Do(message, func(ev stun.Event) {
			if ev.Error != nil {
				res.err = ev.Error
				return
			}
			res.err = res.addr.GetFrom(ev.Message)
		})
		if err != nil {
			res.err = err
		}
		done <- res
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return "", fmt.Errorf("STUN request failed: %w", res.err)
		}
		return res.addr.IP.String(), nil
	case <-time.After(timeout):
		return "", errors.New("STUN request timed out")
	}
}
