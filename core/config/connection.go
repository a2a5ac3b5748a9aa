package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
)

var (
	ErrInvalidPort = errors.New("port must be between 1 and 65535")
	ErrEmptyName   = errors.New("preset name must not be empty")
)

// Port limits.
const (
	MinPort = 1
	MaxPort = 65535
)

// DefaultRuleSetID selects the general-purpose dice bot.
const DefaultRuleSetID = "DiceBot"

// ConnectionConfig describes one named IRC connection target.
// It is a plain value: assignment copies it completely.
type ConnectionConfig struct {
	Name     string
	Hostname string
	Port     int
	// Password is sent with PASS when non-empty.
	Password    string
	Encoding    *Encoding
	Nick        string
	Channel     string
	QuitMessage string
	RuleSetID   string
}

// DefaultConnectionConfig returns the built-in preset used when no presets exist.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		Name:        "Default",
		Hostname:    "irc.trpg.net",
		Port:        6667,
		Encoding:    EncodingUTF8,
		Nick:        "BCDice",
		Channel:     "#Dice_Test",
		QuitMessage: "Bye",
		RuleSetID:   DefaultRuleSetID,
	}
}

// HasPassword reports whether a server password is configured.
func (c ConnectionConfig) HasPassword() bool {
	return c.Password != ""
}

// Endpoint returns "hostname:port".
func (c ConnectionConfig) Endpoint() string {
	return net.JoinHostPort(c.Hostname, strconv.Itoa(c.Port))
}

// Clone returns a copy. Encoding singletons are shared.
func (c ConnectionConfig) Clone() ConnectionConfig {
	return c
}

// Validate checks the fields needed to open a connection.
func (c ConnectionConfig) Validate() error {
	if c.Port < MinPort || c.Port > MaxPort {
		return fmt.Errorf("%w: %d", ErrInvalidPort, c.Port)
	}
	if strings.TrimSpace(c.Hostname) == "" {
		return errors.New("hostname must not be empty")
	}
	if strings.TrimSpace(c.Nick) == "" {
		return errors.New("nick must not be empty")
	}
	if strings.ContainsAny(c.Nick, " \r\n") {
		return fmt.Errorf("nick %q contains whitespace", c.Nick)
	}
	if strings.TrimSpace(c.Channel) == "" {
		return errors.New("channel must not be empty")
	}
	if c.Encoding == nil {
		return errors.New("encoding must be set")
	}
	return nil
}

// ParsePort converts form input into a port number.
func ParsePort(s string) (int, error) {
	p, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPort, s)
	}
	if p < MinPort || p > MaxPort {
		return 0, fmt.Errorf("%w: %d", ErrInvalidPort, p)
	}
	return p, nil
}
