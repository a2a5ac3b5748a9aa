package ircbot

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ergochat/irc-go/ircmsg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bcdice-irc/core/config"
	"bcdice-irc/core/dicebot"
	"bcdice-irc/internal/constants"
	"bcdice-irc/internal/irctest"
)

type recordingNotifier struct {
	connected chan struct{}
	ruleSets  chan string
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{connected: make(chan struct{}, 4), ruleSets: make(chan string, 4)}
}

func (n *recordingNotifier) NotifyConnected()               { n.connected <- struct{}{} }
func (n *recordingNotifier) NotifyRuleSetChanged(id string) { n.ruleSets <- id }

type fakeEngine struct{}

func (fakeEngine) Roll(ruleSetID, line string) (dicebot.Result, bool) {
	switch strings.ToLower(line) {
	case "2d6":
		return dicebot.Result{Text: "(2D6) > 7"}, true
	case "s2d6":
		return dicebot.Result{Text: "(2D6) > 5", Secret: true}, true
	}
	return dicebot.Result{}, false
}

func (fakeEngine) Version() string { return "test-1" }

func testOptions() Options {
	return Options{
		ConnectTimeout: time.Second,
		QuitTimeout:    500 * time.Millisecond,
		SendRate:       100,
		Engine:         fakeEngine{},
	}
}

func configFor(t *testing.T, addr string) config.ConnectionConfig {
	t.Helper()
	host, portStr, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	c := config.DefaultConnectionConfig()
	c.Hostname = host
	c.Port = port
	c.Channel = "#dice"
	c.QuitMessage = "bye"
	return c
}

func runAsync(c *Client) chan error {
	errc := make(chan error, 1)
	go func() { errc <- c.Run() }()
	return errc
}

func waitRun(t *testing.T, errc chan error) error {
	t.Helper()
	select {
	case err := <-errc:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
		return nil
	}
}

var registration = []irctest.Line{
	{Client: "NICK BCDice"},
	{Client: "USER BCDiceIRC s e BCDiceIRC"},
	{Server: ":irc.test 001 BCDice :Welcome to the test network"},
	{Server: ":irc.test 422 BCDice :MOTD File is missing"},
	{Client: "JOIN #dice"},
	{Server: ":BCDice!bot@localhost JOIN #dice"},
}

func script(parts ...[]irctest.Line) []irctest.Line {
	var out []irctest.Line
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func TestRegisterJoinAndStop(t *testing.T) {
	notifier := newRecordingNotifier()
	var current atomic.Pointer[Client]

	in := &irctest.Interaction{Lines: script(registration, []irctest.Line{
		{Server: "PING :irc.test"},
		{Client: "PONG irc.test"},
		{Callback: func() error {
			select {
			case <-notifier.connected:
			case <-time.After(time.Second):
				return errors.New("registration was not reported")
			}
			current.Load().Stop("bye")
			current.Load().Stop("ignored")
			return nil
		}},
		{Client: "QUIT bye"},
		{Server: "ERROR :Closing link"},
		{CloseConn: true},
	})}
	addr, err := in.Listen()
	require.NoError(t, err)

	client, err := New(configFor(t, addr), notifier, testOptions())
	require.NoError(t, err)
	current.Store(client)
	errc := runAsync(client)

	assert.NoError(t, waitRun(t, errc))
	assert.NoError(t, in.Wait())
	assert.Equal(t, []string{"#dice"}, client.Channels())
}

func TestPasswordAndNickInUse(t *testing.T) {
	in := &irctest.Interaction{Strict: true, Lines: []irctest.Line{
		{Client: "PASS secret"},
		{Client: "NICK BCDice"},
		{Client: "USER BCDiceIRC s e BCDiceIRC"},
		{Server: ":irc.test 433 * BCDice :Nickname is already in use"},
		{Client: "NICK BCDice_0"},
		{Server: ":irc.test 001 BCDice_0 :Welcome"},
		{Server: ":irc.test 376 BCDice_0 :End of /MOTD command."},
		{Client: "JOIN #dice"},
		{CloseConn: true},
	}}
	addr, err := in.Listen()
	require.NoError(t, err)

	cfg := configFor(t, addr)
	cfg.Password = "secret"
	client, err := New(cfg, newRecordingNotifier(), testOptions())
	require.NoError(t, err)

	err = waitRun(t, runAsync(client))
	require.Error(t, err)
	var connErr *ConnectError
	assert.False(t, errors.As(err, &connErr), "a registered connection that drops is not a connect failure")
	assert.Contains(t, err.Error(), "lost")
	assert.NoError(t, in.Wait())
}

func TestConnectRefused(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	client, err := New(configFor(t, addr), newRecordingNotifier(), testOptions())
	require.NoError(t, err)

	err = waitRun(t, runAsync(client))
	var connErr *ConnectError
	require.True(t, errors.As(err, &connErr))
	assert.Equal(t, addr, connErr.Endpoint)
}

func TestServerClosesBeforeRegistration(t *testing.T) {
	notifier := newRecordingNotifier()
	in := &irctest.Interaction{Lines: []irctest.Line{
		{Client: "USER *"},
		{Server: "ERROR :Closing link: too many connections"},
		{CloseConn: true},
	}}
	addr, err := in.Listen()
	require.NoError(t, err)

	client, err := New(configFor(t, addr), notifier, testOptions())
	require.NoError(t, err)

	err = waitRun(t, runAsync(client))
	var connErr *ConnectError
	require.True(t, errors.As(err, &connErr))
	assert.Contains(t, err.Error(), "too many connections")
	assert.Empty(t, notifier.connected)
}

func TestStopBeforeRun(t *testing.T) {
	client, err := New(configFor(t, "127.0.0.1:6667"), nil, testOptions())
	require.NoError(t, err)

	client.Stop("bye")
	assert.NoError(t, waitRun(t, runAsync(client)))
}

func TestStopDuringRegistration(t *testing.T) {
	var current atomic.Pointer[Client]
	in := &irctest.Interaction{Lines: []irctest.Line{
		{Client: "USER *"},
		{Callback: func() error {
			current.Load().Stop("leaving early")
			return nil
		}},
		{Client: "QUIT :leaving early"},
		{CloseConn: true},
	}}
	addr, err := in.Listen()
	require.NoError(t, err)

	client, err := New(configFor(t, addr), newRecordingNotifier(), testOptions())
	require.NoError(t, err)
	current.Store(client)

	assert.NoError(t, waitRun(t, runAsync(client)))
	assert.NoError(t, in.Wait())
}

func TestCommands(t *testing.T) {
	notifier := newRecordingNotifier()
	var current atomic.Pointer[Client]
	opts := testOptions()
	opts.Master = OnlyMaster("gm")

	in := &irctest.Interaction{Lines: script(registration, []irctest.Line{
		{Server: ":gm!u@h PRIVMSG BCDice :Set Game->cthulhu"},
		{Client: "NOTICE #dice :Game set to Call of Cthulhu"},
		{Client: "NOTICE gm :Game set to Call of Cthulhu"},
		{Server: ":pl!u@h PRIVMSG BCDice :set game->DiceBot"},
		{Client: "NOTICE pl :You are not allowed to change the game system"},
		{Server: ":gm!u@h PRIVMSG #dice :set game->DiceBot"},
		{Server: ":pl!u@h PRIVMSG #dice :.version"},
		{Client: "NOTICE #dice :BCDiceIRC v" + constants.AppVersion + ", BCDice test-1"},
		{Server: ":pl!u@h PRIVMSG #dice :2d6"},
		{Client: "NOTICE #dice :pl: (2D6) > 7"},
		{Server: ":pl!u@h PRIVMSG #dice 2d6"},
		{Client: "NOTICE #dice :pl: (2D6) > 7"},
		{Server: ":pl!u@h PRIVMSG #dice :S2d6"},
		{Client: "NOTICE pl :pl: (2D6) > 5"},
		{Client: "NOTICE #dice :pl: [Secret roll]"},
		{Server: ":pl!u@h PRIVMSG BCDice :help"},
		{Client: "NOTICE pl :[Call of Cthulhu]"},
		{Client: "NOTICE pl :CC(x)<=y*"},
		{Server: ":pl!u@h INVITE BCDice :#other"},
		{Client: "JOIN #other"},
		{Callback: func() error {
			current.Load().Stop("bye")
			return nil
		}},
		{Client: "QUIT bye"},
		{CloseConn: true},
	})}
	addr, err := in.Listen()
	require.NoError(t, err)

	client, err := New(configFor(t, addr), notifier, opts)
	require.NoError(t, err)
	current.Store(client)

	assert.NoError(t, waitRun(t, runAsync(client)))
	require.NoError(t, in.Wait())

	assert.Equal(t, "Cthulhu", client.RuleSetID())
	require.Len(t, notifier.ruleSets, 1)
	assert.Equal(t, "Cthulhu", <-notifier.ruleSets)
	assert.Contains(t, in.Log(), "JOIN #other")
}

func TestEncodedConnection(t *testing.T) {
	enc := config.EncodingISO2022JP
	encode := func(s string) string {
		out, err := enc.EncodeString(s)
		require.NoError(t, err)
		return out
	}

	var current atomic.Pointer[Client]
	in := &irctest.Interaction{Lines: []irctest.Line{
		{Client: "USER *"},
		{Server: ":irc.test 001 BCDice :Welcome"},
		{Server: ":irc.test 422 BCDice :MOTD File is missing"},
		{Client: encode("JOIN #ダイス")},
		{Server: encode(":BCDice!bot@localhost JOIN #ダイス")},
		{Server: encode(":gm!u@h PRIVMSG #ダイス :2d6 攻撃")},
		{Server: encode(":gm!u@h PRIVMSG #ダイス :2d6")},
		{Client: encode("NOTICE #ダイス :gm: (2D6) > 7")},
		{Callback: func() error {
			current.Load().Stop("さようなら")
			return nil
		}},
		{Client: encode("QUIT さようなら")},
		{CloseConn: true},
	}}
	addr, err := in.Listen()
	require.NoError(t, err)

	cfg := configFor(t, addr)
	cfg.Encoding = enc
	cfg.Channel = "#ダイス"
	client, err := New(cfg, newRecordingNotifier(), testOptions())
	require.NoError(t, err)
	current.Store(client)

	assert.NoError(t, waitRun(t, runAsync(client)))
	assert.NoError(t, in.Wait())
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.DefaultConnectionConfig()
	cfg.Port = 0
	_, err := New(cfg, nil, Options{})
	assert.Error(t, err)
}

func TestNewFallsBackToGeneralRuleSet(t *testing.T) {
	cfg := config.DefaultConnectionConfig()
	cfg.RuleSetID = "NoSuchGame"

	client, err := New(cfg, nil, Options{})
	require.NoError(t, err)
	assert.Equal(t, dicebot.GeneralID, client.RuleSetID())

	cfg.RuleSetID = "cthulhu"
	built, err := NewFactory(Options{})(cfg, nil)
	require.NoError(t, err)
	require.IsType(t, &Client{}, built)
	assert.Equal(t, "Cthulhu", built.(*Client).RuleSetID())
}

func TestStopIsBoundedWhileServerKeepsTalking(t *testing.T) {
	var current atomic.Pointer[Client]
	var stoppedAt atomic.Int64

	lines := script(registration, []irctest.Line{
		{Callback: func() error {
			stoppedAt.Store(time.Now().UnixNano())
			current.Load().Stop("bye")
			return nil
		}},
		{Client: "QUIT bye"},
	})
	// The server never closes the link and keeps the channel busy.
	for i := 0; i < 6; i++ {
		lines = append(lines,
			irctest.Line{Callback: func() error { time.Sleep(300 * time.Millisecond); return nil }},
			irctest.Line{Server: ":pl!u@h PRIVMSG #dice :still here"},
		)
	}
	in := &irctest.Interaction{Lines: lines}
	addr, err := in.Listen()
	require.NoError(t, err)

	client, err := New(configFor(t, addr), newRecordingNotifier(), testOptions())
	require.NoError(t, err)
	current.Store(client)

	assert.NoError(t, waitRun(t, runAsync(client)))
	elapsed := time.Since(time.Unix(0, stoppedAt.Load()))
	assert.Less(t, elapsed, 1500*time.Millisecond, "Run must return about QuitTimeout after Stop")
}

func newOfflineClient(t *testing.T, opts Options) *Client {
	t.Helper()
	client, err := New(config.DefaultConnectionConfig(), nil, opts)
	require.NoError(t, err)
	t.Cleanup(func() { client.Stop("") })
	return client
}

func nextReply(t *testing.T, c *Client) reply {
	t.Helper()
	select {
	case r := <-c.sends:
		return r
	case <-time.After(time.Second):
		t.Fatal("no reply was queued")
		return reply{}
	}
}

func TestPrivmsgWithoutTrailingPrefix(t *testing.T) {
	client := newOfflineClient(t, testOptions())

	for _, line := range []string{
		":pl!u@h PRIVMSG #dice 2d6",
		":pl!u@h PRIVMSG #dice :2d6",
	} {
		m, err := ircmsg.ParseLine(line)
		require.NoError(t, err)
		client.onPrivmsg(m)
		assert.Equal(t, reply{target: "#dice", text: "pl: (2D6) > 7"}, nextReply(t, client), line)
	}
}

func TestLongRepliesAreSplit(t *testing.T) {
	client := newOfflineClient(t, testOptions())
	text := strings.Repeat("ダイス", 200)

	client.notice("#dice", text)

	var parts []string
	for len(client.sends) > 0 {
		r := nextReply(t, client)
		assert.Equal(t, "#dice", r.target)
		assert.LessOrEqual(t, len("NOTICE #dice :"+r.text), maxReplyBytes)
		parts = append(parts, r.text)
	}
	assert.Greater(t, len(parts), 1)
	assert.Equal(t, text, strings.Join(parts, ""))
}

func TestRepliesAreRateLimited(t *testing.T) {
	opts := testOptions()
	opts.SendRate = 2
	client := newOfflineClient(t, opts)
	for i := 0; i < 4; i++ {
		client.notice("#dice", fmt.Sprintf("line %d", i))
	}

	delivered := make(chan time.Time, 4)
	start := time.Now()
	go client.sendLoop(client.newLimiter(), func(reply) { delivered <- time.Now() })

	var at []time.Duration
	for i := 0; i < 4; i++ {
		select {
		case d := <-delivered:
			at = append(at, d.Sub(start))
		case <-time.After(3 * time.Second):
			t.Fatal("reply was not delivered")
		}
	}
	assert.Less(t, at[1], 200*time.Millisecond, "the first SendRate replies go out at once")
	assert.GreaterOrEqual(t, at[2], 400*time.Millisecond)
	assert.GreaterOrEqual(t, at[3], 900*time.Millisecond)
}
