// Package ircbot runs the dice bot on an IRC connection.
package ircbot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"github.com/ergochat/irc-go/ircevent"
	"github.com/ergochat/irc-go/ircmsg"
	"github.com/google/uuid"
	"github.com/txthinking/socks5"
	"golang.org/x/time/rate"

	"bcdice-irc/core/config"
	"bcdice-irc/core/dicebot"
	"bcdice-irc/core/mediator"
	"bcdice-irc/internal/constants"
	"bcdice-irc/internal/debuglog"
)

const (
	defaultConnectTimeout  = 3 * time.Second
	defaultRegisterTimeout = 30 * time.Second
	defaultQuitTimeout     = 2 * time.Second
	defaultSendRate        = 2
	keepAlive              = 4 * time.Minute
	// maxLineLength bounds a decoded line handed to the parser. Outgoing
	// replies are split well below it by maxReplyBytes.
	maxLineLength = 1024
	maxReplyBytes = 400
)

var errStopped = errors.New("client stopped")

// ConnectError reports a failure to reach or register with a server.
type ConnectError struct {
	Endpoint string
	Err      error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("could not connect to %s: %v", e.Endpoint, e.Err)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

// Options are the settings shared by every connection.
type Options struct {
	ConnectTimeout time.Duration
	// RegisterTimeout bounds registration and is the keepalive check interval.
	RegisterTimeout time.Duration
	// QuitTimeout bounds the wait for the server to close the link after QUIT.
	QuitTimeout time.Duration
	// Proxy is a SOCKS5 server address; empty dials directly.
	Proxy   string
	Catalog *dicebot.Catalog
	Engine  dicebot.Engine
	Master  MasterPolicy
	// SendRate is the number of replies per second sent without delay.
	SendRate int
}

func (o Options) withDefaults() Options {
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = defaultConnectTimeout
	}
	if o.RegisterTimeout <= 0 {
		o.RegisterTimeout = defaultRegisterTimeout
	}
	if o.QuitTimeout <= 0 {
		o.QuitTimeout = defaultQuitTimeout
	}
	if o.Catalog == nil {
		o.Catalog = dicebot.DefaultCatalog()
	}
	if o.Engine == nil {
		o.Engine = dicebot.NullEngine{EngineVersion: o.Catalog.EngineVersion()}
	}
	if o.Master == nil {
		o.Master = AllowAll
	}
	if o.SendRate <= 0 {
		o.SendRate = defaultSendRate
	}
	return o
}

type reply struct {
	target string
	text   string
}

// Client is one IRC connection of the dice bot. It implements mediator.NetworkClient.
type Client struct {
	cfg      config.ConnectionConfig
	opts     Options
	notifier mediator.Notifier
	id       string
	irc      *ircevent.Connection

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	conn      *encodedConn
	stopping  bool
	quitTimer *time.Timer
	serverErr error
	ruleSetID string
	channels  map[string]bool

	lost     chan struct{}
	lostOnce sync.Once
	sends    chan reply
}

var _ mediator.NetworkClient = (*Client)(nil)

// New validates cfg and returns a client that has not connected yet.
func New(cfg config.ConnectionConfig, n mediator.Notifier, opts Options) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	ruleSet := cfg.RuleSetID
	if info, err := opts.Catalog.Resolve(ruleSet); err == nil {
		ruleSet = info.ID
	} else {
		log.Printf("ircbot.New: %v, using %s", err, dicebot.GeneralID)
		ruleSet = dicebot.GeneralID
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		cfg:       cfg.Clone(),
		opts:      opts,
		notifier:  n,
		id:        uuid.NewString(),
		ctx:       ctx,
		cancel:    cancel,
		ruleSetID: ruleSet,
		channels:  make(map[string]bool),
		lost:      make(chan struct{}),
		sends:     make(chan reply, 64),
	}
	c.irc = c.newConnection()
	return c, nil
}

// NewFactory adapts New to mediator.ClientFactory.
func NewFactory(opts Options) mediator.ClientFactory {
	return func(cfg config.ConnectionConfig, n mediator.Notifier) (mediator.NetworkClient, error) {
		return New(cfg, n, opts)
	}
}

func (c *Client) newConnection() *ircevent.Connection {
	prefix := "irc " + c.id[:8]
	irc := &ircevent.Connection{
		Server:      c.cfg.Endpoint(),
		Nick:        c.cfg.Nick,
		User:        constants.IRCUserName,
		RealName:    constants.IRCUserName,
		Password:    c.cfg.Password,
		QuitMessage: sanitize(c.cfg.QuitMessage),
		Version:     fmt.Sprintf("BCDiceIRC v%s", constants.AppVersion),
		Timeout:     c.opts.RegisterTimeout,
		KeepAlive:   max(keepAlive, c.opts.RegisterTimeout),
		MaxLineLen:  maxLineLength,
		DialContext: c.dial,
		Debug:       debuglog.ShouldLog(debuglog.LevelTrace, debuglog.UseGlobal),
		Log:         log.New(debuglog.NewWriter(prefix, debuglog.LevelInfo), "", 0),
	}

	irc.AddCallback("JOIN", c.onJoin)
	irc.AddCallback("PART", c.onPart)
	irc.AddCallback("KICK", c.onKick)
	irc.AddCallback("INVITE", c.onInvite)
	irc.AddCallback("PRIVMSG", c.onPrivmsg)
	irc.AddCallback("ERROR", c.onServerError)
	irc.AddCallback(ircevent.ERR_PASSWDMISMATCH, c.onServerError)
	irc.AddCallback(ircevent.ERR_YOUREBANNEDCREEP, c.onServerError)
	irc.AddDisconnectCallback(func(ircmsg.Message) {
		c.lostOnce.Do(func() { close(c.lost) })
	})
	return irc
}

// ID identifies this connection in logs.
func (c *Client) ID() string {
	return c.id
}

// RuleSetID returns the rule set currently applied to chat commands.
func (c *Client) RuleSetID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ruleSetID
}

// Channels returns the joined channels.
func (c *Client) Channels() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.channels))
	for ch := range c.channels {
		out = append(out, ch)
	}
	return out
}

func (c *Client) logf(format string, args ...interface{}) {
	debuglog.Log("irc "+c.id[:8], debuglog.LevelInfo, debuglog.UseGlobal, format, args...)
}

func (c *Client) isStopping() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopping
}

// Stop sends QUIT with reason and makes Run return. The link is closed
// QuitTimeout after QUIT whether or not the server has answered. Before the
// connection is established it aborts the dial.
func (c *Client) Stop(reason string) {
	c.mu.Lock()
	if c.stopping {
		c.mu.Unlock()
		return
	}
	c.stopping = true
	conn := c.conn
	if conn != nil {
		c.quitTimer = time.AfterFunc(c.opts.QuitTimeout, func() {
			debuglog.CloseWithLog("Stop: close connection", conn)
		})
	}
	c.mu.Unlock()

	c.cancel()
	if conn == nil {
		return
	}

	c.logf("quitting: %s", reason)
	if reason = sanitize(reason); reason != "" {
		c.irc.QuitMessage = reason
	}
	c.irc.Quit()
}

// Run connects, registers, and serves until the connection ends.
func (c *Client) Run() error {
	if c.isStopping() {
		return nil
	}
	defer c.cancel()
	defer c.closeConn()

	endpoint := c.cfg.Endpoint()
	c.logf("connecting to %s", endpoint)
	if err := c.irc.Connect(); err != nil {
		if c.isStopping() {
			return nil
		}
		return &ConnectError{Endpoint: endpoint, Err: c.failure(err)}
	}

	c.onRegistered()
	go c.sendLoop(c.newLimiter(), c.deliver)

	<-c.lost
	if c.isStopping() {
		c.logf("disconnected from %s", endpoint)
		return nil
	}
	return fmt.Errorf("connection to %s lost: %w", endpoint, c.failure(nil))
}

// dial is the connection's DialContext. It honors Stop and the proxy setting.
func (c *Client) dial(ctx context.Context, network, addr string) (net.Conn, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.ConnectTimeout)
	defer cancel()
	defer context.AfterFunc(c.ctx, cancel)()

	var raw net.Conn
	var err error
	if c.opts.Proxy != "" {
		timeout := int(c.opts.ConnectTimeout / time.Second)
		if timeout < 1 {
			timeout = 1
		}
		proxy, perr := socks5.NewClient(c.opts.Proxy, "", "", timeout, 0)
		if perr != nil {
			return nil, fmt.Errorf("socks5 proxy %s: %w", c.opts.Proxy, perr)
		}
		raw, err = proxy.Dial(network, addr)
	} else {
		var d net.Dialer
		raw, err = d.DialContext(ctx, network, addr)
	}
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopping {
		debuglog.CloseWithLog("dial: close connection", raw)
		return nil, errStopped
	}
	c.conn = newEncodedConn(raw, c.cfg.Encoding)
	return c.conn, nil
}

func (c *Client) closeConn() {
	c.mu.Lock()
	conn := c.conn
	if c.quitTimer != nil {
		c.quitTimer.Stop()
	}
	c.mu.Unlock()
	if conn != nil {
		debuglog.CloseWithLog("Run: close connection", conn)
	}
}

// failure picks the most telling reason for a failed or lost connection:
// an error reply from the server, then the read error, then fallback.
func (c *Client) failure(fallback error) error {
	c.mu.Lock()
	serverErr, conn := c.serverErr, c.conn
	c.mu.Unlock()

	if serverErr != nil {
		return serverErr
	}
	if conn != nil {
		if err := conn.cause(); err != nil {
			return err
		}
	}
	if fallback != nil {
		return fallback
	}
	return errConnectionClosed
}

func (c *Client) onRegistered() {
	nick := c.irc.CurrentNick()
	c.logf("registered as %s", nick)
	if c.notifier != nil {
		c.notifier.NotifyConnected()
	}
	if err := c.irc.Join(c.cfg.Channel); err != nil {
		log.Printf("onRegistered: cannot join %s: %v", c.cfg.Channel, err)
	}
}

func (c *Client) onServerError(m ircmsg.Message) {
	text := lastParam(m)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.serverErr != nil || c.stopping {
		return
	}
	if m.Command == "ERROR" {
		c.serverErr = fmt.Errorf("server error: %s", text)
	} else {
		c.serverErr = fmt.Errorf("server refused registration: %s", text)
	}
}

// queue schedules a chat reply subject to the send rate.
func (c *Client) queue(r reply) {
	select {
	case c.sends <- r:
	case <-c.ctx.Done():
	}
}

// newLimiter allows SendRate replies per second with a burst of SendRate.
func (c *Client) newLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Limit(c.opts.SendRate), c.opts.SendRate)
}

func (c *Client) sendLoop(limiter *rate.Limiter, deliver func(reply)) {
	for {
		var r reply
		select {
		case r = <-c.sends:
		case <-c.ctx.Done():
			return
		}
		if err := limiter.Wait(c.ctx); err != nil {
			return
		}
		deliver(r)
	}
}

func (c *Client) deliver(r reply) {
	if err := c.irc.Notice(r.target, r.text); err != nil {
		log.Printf("sendLoop: notice to %s: %v", r.target, err)
	}
}

// notice queues a NOTICE for each line of text, splitting lines that
// would not fit on the wire.
func (c *Client) notice(target, text string) {
	prefix := "NOTICE " + target + " :"
	for _, line := range splitLines(text) {
		for _, part := range fitLine(c.cfg.Encoding, prefix, line, maxReplyBytes) {
			c.queue(reply{target: target, text: part})
		}
	}
}
