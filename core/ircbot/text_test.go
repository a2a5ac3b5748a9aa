package ircbot

import (
	"bufio"
	"io"
	"net"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/ergochat/irc-go/ircmsg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bcdice-irc/core/config"
)

func TestParam(t *testing.T) {
	m, err := ircmsg.ParseLine(":gm!u@h KICK #dice pl :too loud")
	require.NoError(t, err)

	assert.Equal(t, "#dice", param(m, 0))
	assert.Equal(t, "pl", param(m, 1))
	assert.Equal(t, "too loud", param(m, 2))
	assert.Equal(t, "", param(m, 3))
	assert.Equal(t, "", param(m, -1))
	assert.Equal(t, "too loud", lastParam(m))
	assert.Equal(t, "", lastParam(ircmsg.Message{Command: "PING"}))
}

func TestIsChannel(t *testing.T) {
	for _, target := range []string{"#dice", "&local", "+modeless", "!safe"} {
		assert.True(t, isChannel(target), target)
	}
	for _, target := range []string{"", "BCDice", "gm"} {
		assert.False(t, isChannel(target), target)
	}
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "a b c d", sanitize("a\rb\nc\x00d"))
	assert.Equal(t, "ダイス", sanitize("ダイス"))
}

func TestSplitLines(t *testing.T) {
	assert.Equal(t, []string{"first", "second"}, splitLines("first  \n\n   \nsecond\r"))
	assert.Nil(t, splitLines("\n \n"))
}

func TestFitLine(t *testing.T) {
	const prefix = "NOTICE #dice :"
	text := strings.Repeat("2D6 ダイス判定 ", 40)

	for _, enc := range []*config.Encoding{config.EncodingUTF8, config.EncodingISO2022JP} {
		t.Run(enc.Name, func(t *testing.T) {
			parts := fitLine(enc, prefix, text, 100)
			require.Greater(t, len(parts), 1)
			for _, part := range parts {
				assert.True(t, utf8.ValidString(part))
				assert.LessOrEqual(t, encodedLen(enc, prefix+part), 100)

				encoded, err := enc.EncodeString(part)
				require.NoError(t, err)
				decoded, err := enc.DecodeString(encoded)
				require.NoError(t, err)
				assert.Equal(t, part, decoded)
			}
			assert.Equal(t, text, strings.Join(parts, ""))
		})
	}

	t.Run("short line is kept whole", func(t *testing.T) {
		assert.Equal(t, []string{"7"}, fitLine(config.EncodingUTF8, prefix, "7", 100))
	})

	t.Run("limit below prefix still advances", func(t *testing.T) {
		assert.Equal(t, []string{"ダ", "イ", "ス"}, fitLine(config.EncodingUTF8, prefix, "ダイス", 4))
	})
}

func TestEncodedConn(t *testing.T) {
	local, remote := net.Pipe()
	conn := newEncodedConn(local, config.EncodingISO2022JP)
	defer conn.Close()

	done := make(chan string, 1)
	go func() {
		line, _ := bufio.NewReader(remote).ReadString('\n')
		done <- line
	}()
	n, err := conn.Write([]byte("NOTICE #dice :ダイス\r\n"))
	require.NoError(t, err)
	assert.Equal(t, len("NOTICE #dice :ダイス\r\n"), n)

	wire := <-done
	assert.NotContains(t, wire, "ダイス")
	decoded, err := config.EncodingISO2022JP.DecodeString(wire)
	require.NoError(t, err)
	assert.Equal(t, "NOTICE #dice :ダイス\r\n", decoded)

	assert.NoError(t, conn.cause())

	go func() {
		encoded, _ := config.EncodingISO2022JP.EncodeString(":gm!u@h PRIVMSG #dice :振る\r\n")
		_, _ = remote.Write([]byte(encoded))
		_ = remote.Close()
	}()
	got, err := io.ReadAll(conn)
	require.NoError(t, err)
	assert.Equal(t, ":gm!u@h PRIVMSG #dice :振る\r\n", string(got))
	assert.ErrorIs(t, conn.cause(), errConnectionClosed)
}
