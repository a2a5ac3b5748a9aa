package ircbot

import (
	"strings"

	"github.com/ergochat/irc-go/ircmsg"

	"bcdice-irc/core/config"
)

// param returns the i-th parameter of m, trailing one included, or "".
func param(m ircmsg.Message, i int) string {
	if i < 0 || i >= len(m.Params) {
		return ""
	}
	return m.Params[i]
}

func lastParam(m ircmsg.Message) string {
	return param(m, len(m.Params)-1)
}

// isChannel reports whether target names a channel.
func isChannel(target string) bool {
	return target != "" && strings.ContainsRune("#&+!", rune(target[0]))
}

// sanitize removes characters that would split an outgoing line.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\r' || r == '\n' || r == 0 {
			return ' '
		}
		return r
	}, s)
}

// splitLines returns the non-empty lines of text.
func splitLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(sanitize(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// fitLine cuts text on rune boundaries into parts whose line, prefix
// included, encodes to at most limit bytes. Every part holds at least one rune.
func fitLine(enc *config.Encoding, prefix, text string, limit int) []string {
	var parts []string
	runes := []rune(text)
	for len(runes) > 0 {
		n := fitRunes(enc, prefix, runes, limit)
		parts = append(parts, string(runes[:n]))
		runes = runes[n:]
	}
	return parts
}

func fitRunes(enc *config.Encoding, prefix string, runes []rune, limit int) int {
	fits := func(n int) bool {
		return encodedLen(enc, prefix+string(runes[:n])) <= limit
	}
	if fits(len(runes)) {
		return len(runes)
	}
	lo, hi := 1, len(runes)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if fits(mid) {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}

func encodedLen(enc *config.Encoding, s string) int {
	encoded, err := enc.EncodeString(s)
	if err != nil {
		return len(s) * 4
	}
	return len(encoded)
}
