// Package irctest provides a scripted IRC server for client tests.
package irctest

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"
)

const stepTimeout = 2 * time.Second

// Line is one step of an Interaction. Exactly one field is set.
type Line struct {
	// Client is a line expected from the client. A trailing "*" matches a prefix.
	Client string
	// Server is a line sent to the client.
	Server string
	// Callback runs in the server goroutine; an error fails the interaction.
	Callback func() error
	// CloseConn closes the connection, as a server does after ERROR.
	CloseConn bool
}

// Failure describes why an interaction stopped early.
type Failure struct {
	Index  int
	Result string
	Err    error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("step %d: %v", f.Index, f.Err)
	}
	return fmt.Sprintf("step %d: unexpected line %q", f.Index, f.Result)
}

// Interaction is a simulated server that serves one client connection.
// In non-strict mode unmatched client lines are skipped.
type Interaction struct {
	Strict bool
	Lines  []Line

	mu      sync.Mutex
	log     []string
	failure *Failure
	done    chan struct{}
}

// Listen accepts one client on a loopback port in a separate goroutine.
func (in *Interaction) Listen() (addr string, err error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", err
	}

	lines := make([]Line, len(in.Lines))
	copy(lines, in.Lines)
	in.done = make(chan struct{})

	go func() {
		defer close(in.done)
		defer listener.Close()

		_ = listener.(*net.TCPListener).SetDeadline(time.Now().Add(stepTimeout))
		conn, err := listener.Accept()
		if err != nil {
			in.fail(&Failure{Index: -1, Err: err})
			return
		}
		defer conn.Close()

		in.serve(conn, lines)
	}()

	return listener.Addr().String(), nil
}

func (in *Interaction) serve(conn net.Conn, lines []Line) {
	reader := bufio.NewReader(conn)

	for i := 0; i < len(lines); i++ {
		line := lines[i]

		switch {
		case line.Server != "":
			_ = conn.SetWriteDeadline(time.Now().Add(stepTimeout))
			if _, err := conn.Write([]byte(line.Server + "\r\n")); err != nil {
				in.fail(&Failure{Index: i, Err: err})
				return
			}
		case line.Client != "":
			_ = conn.SetReadDeadline(time.Now().Add(stepTimeout))
			input, err := reader.ReadString('\n')
			if err != nil {
				in.fail(&Failure{Index: i, Err: err})
				return
			}
			input = strings.TrimRight(input, "\r\n")
			in.record(input)

			match := line.Client
			var ok bool
			if strings.HasSuffix(match, "*") {
				ok = strings.HasPrefix(input, match[:len(match)-1])
			} else {
				ok = match == input
			}
			if !ok {
				if !in.Strict {
					i--
					continue
				}
				in.fail(&Failure{Index: i, Result: input})
				return
			}
		case line.Callback != nil:
			if err := line.Callback(); err != nil {
				in.fail(&Failure{Index: i, Err: err})
				return
			}
		case line.CloseConn:
			return
		}
	}

	// Keep the link open until the client hangs up.
	_ = conn.SetReadDeadline(time.Now().Add(stepTimeout))
	for {
		input, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		in.record(strings.TrimRight(input, "\r\n"))
	}
}

func (in *Interaction) record(line string) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.log = append(in.log, line)
}

func (in *Interaction) fail(f *Failure) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.failure = f
}

// Wait blocks until the server goroutine finishes and returns its failure, if any.
func (in *Interaction) Wait() error {
	<-in.done
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.failure != nil {
		return in.failure
	}
	return nil
}

// Log returns every line received from the client so far.
func (in *Interaction) Log() []string {
	in.mu.Lock()
	defer in.mu.Unlock()
	out := make([]string, len(in.log))
	copy(out, in.log)
	return out
}
