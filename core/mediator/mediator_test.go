package mediator

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bcdice-irc/core/config"
)

const waitTimeout = 2 * time.Second

// frontEndEvent is what recordingFrontEnd observed.
type frontEndEvent struct {
	kind string
	err  error
	id   string
}

type recordingFrontEnd struct {
	events chan frontEndEvent
}

func newRecordingFrontEnd() *recordingFrontEnd {
	return &recordingFrontEnd{events: make(chan frontEndEvent, 16)}
}

func (f *recordingFrontEnd) Do(fn func()) { fn() }
func (f *recordingFrontEnd) ClientConnected() { f.events <- frontEndEvent{kind: "connected"} }
func (f *recordingFrontEnd) ClientStopped() { f.events <- frontEndEvent{kind: "stopped"} }
func (f *recordingFrontEnd) RuleSetChanged(id string) {
	f.events <- frontEndEvent{kind: "rule-set", id: id}
}
func (f *recordingFrontEnd) ConnectionFailed(err error) {
	f.events <- frontEndEvent{kind: "failed", err: err}
}

func (f *recordingFrontEnd) next(t *testing.T) frontEndEvent {
	t.Helper()
	select {
	case ev := <-f.events:
		return ev
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for a front end callback")
		return frontEndEvent{}
	}
}

func (f *recordingFrontEnd) none(t *testing.T) {
	t.Helper()
	select {
	case ev := <-f.events:
		t.Fatalf("unexpected front end callback %q", ev.kind)
	case <-time.After(50 * time.Millisecond):
	}
}

// fakeClient blocks in Run until stopped or told to fail.
type fakeClient struct {
	notifier Notifier
	started  chan struct{}
	stopped  chan string
	fail     chan error
	finished atomic.Bool
	stopOnce sync.Once
}

func newFakeClient(n Notifier) *fakeClient {
	return &fakeClient{
		notifier: n,
		started:  make(chan struct{}),
		stopped:  make(chan string, 1),
		fail:     make(chan error, 1),
	}
}

func (c *fakeClient) Run() error {
	close(c.started)
	defer c.finished.Store(true)
	select {
	case <-c.stopped:
		time.Sleep(20 * time.Millisecond)
		return nil
	case err := <-c.fail:
		return err
	}
}

func (c *fakeClient) Stop(reason string) {
	c.stopOnce.Do(func() { c.stopped <- reason })
}

// clientFactory records every client it creates.
type clientFactory struct {
	mu      sync.Mutex
	clients []*fakeClient
	configs []config.ConnectionConfig
	created chan *fakeClient
}

func newClientFactory() *clientFactory {
	return &clientFactory{created: make(chan *fakeClient, 4)}
}

func (f *clientFactory) New(cfg config.ConnectionConfig, n Notifier) (NetworkClient, error) {
	c := newFakeClient(n)
	f.mu.Lock()
	f.clients = append(f.clients, c)
	f.configs = append(f.configs, cfg)
	f.mu.Unlock()
	f.created <- c
	return c, nil
}

func (f *clientFactory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.clients)
}

func (f *clientFactory) next(t *testing.T) *fakeClient {
	t.Helper()
	select {
	case c := <-f.created:
		select {
		case <-c.started:
		case <-time.After(waitTimeout):
			t.Fatal("client never started running")
		}
		return c
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for a client")
		return nil
	}
}

func testConfig() config.ConnectionConfig {
	c := config.DefaultConnectionConfig()
	c.Hostname = "irc.example.net"
	c.QuitMessage = "see you"
	return c
}

func startMediator(t *testing.T) (*Mediator, *recordingFrontEnd, *clientFactory) {
	t.Helper()
	fe := newRecordingFrontEnd()
	factory := newClientFactory()
	m := New(fe, factory.New)
	require.True(t, m.Start())
	t.Cleanup(func() { m.Shutdown() })
	return m, fe, factory
}

func TestStartAndShutdownAreIdempotent(t *testing.T) {
	m := New(newRecordingFrontEnd(), newClientFactory().New)

	assert.False(t, m.Shutdown())
	assert.True(t, m.Start())
	assert.False(t, m.Start())
	assert.True(t, m.Running())

	assert.True(t, m.Shutdown())
	assert.False(t, m.Shutdown())
	assert.False(t, m.Running())

	assert.True(t, m.Start())
	assert.True(t, m.Shutdown())
}

func TestAtMostOneWorker(t *testing.T) {
	m, _, factory := startMediator(t)

	require.True(t, m.RequestConnect(testConfig()))
	factory.next(t)

	assert.False(t, m.RequestConnect(testConfig()))
	assert.True(t, m.WorkerActive())
	assert.Equal(t, 1, factory.count())
}

func TestConnectNotifyAndDisconnect(t *testing.T) {
	m, fe, factory := startMediator(t)

	require.True(t, m.RequestConnect(testConfig()))
	client := factory.next(t)

	client.notifier.NotifyConnected()
	assert.Equal(t, "connected", fe.next(t).kind)

	client.notifier.NotifyRuleSetChanged("Cthulhu")
	assert.Equal(t, frontEndEvent{kind: "rule-set", id: "Cthulhu"}, fe.next(t))

	require.True(t, m.RequestDisconnect())
	assert.Equal(t, "stopped", fe.next(t).kind)
	assert.True(t, client.finished.Load())
	assert.False(t, m.WorkerActive())

	require.True(t, m.RequestConnect(testConfig()))
	factory.next(t)
	assert.Equal(t, 2, factory.count())
}

func TestStopReceivesQuitMessage(t *testing.T) {
	m, fe, factory := startMediator(t)

	var reasons []string
	var mu sync.Mutex
	m.newClient = func(cfg config.ConnectionConfig, n Notifier) (NetworkClient, error) {
		c, err := factory.New(cfg, n)
		return &reasonRecorder{NetworkClient: c, record: func(r string) {
			mu.Lock()
			reasons = append(reasons, r)
			mu.Unlock()
		}}, err
	}

	require.True(t, m.RequestConnect(testConfig()))
	factory.next(t)
	require.True(t, m.RequestDisconnect())
	fe.next(t)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"see you"}, reasons)
}

type reasonRecorder struct {
	NetworkClient
	record func(string)
}

func (r *reasonRecorder) Stop(reason string) {
	r.record(reason)
	r.NetworkClient.Stop(reason)
}

func TestConnectionErrorIsForwarded(t *testing.T) {
	m, fe, factory := startMediator(t)

	require.True(t, m.RequestConnect(testConfig()))
	client := factory.next(t)

	cause := errors.New("dial tcp: connection refused")
	client.fail <- cause

	ev := fe.next(t)
	assert.Equal(t, "failed", ev.kind)
	assert.Same(t, cause, ev.err)
	assert.False(t, m.WorkerActive())
}

func TestFactoryErrorIsAConnectionError(t *testing.T) {
	fe := newRecordingFrontEnd()
	bad := errors.New("bad config")
	m := New(fe, func(config.ConnectionConfig, Notifier) (NetworkClient, error) { return nil, bad })
	require.True(t, m.Start())
	defer m.Shutdown()

	require.True(t, m.RequestConnect(testConfig()))

	ev := fe.next(t)
	assert.Equal(t, "failed", ev.kind)
	assert.True(t, errors.Is(ev.err, bad))
	assert.False(t, m.WorkerActive())
}

type panickingClient struct{}

func (panickingClient) Run() error { panic("boom") }
func (panickingClient) Stop(string) {}

func TestWorkerPanicBecomesConnectionError(t *testing.T) {
	fe := newRecordingFrontEnd()
	m := New(fe, func(config.ConnectionConfig, Notifier) (NetworkClient, error) { return panickingClient{}, nil })
	require.True(t, m.Start())
	defer m.Shutdown()

	require.True(t, m.RequestConnect(testConfig()))

	ev := fe.next(t)
	assert.Equal(t, "failed", ev.kind)
	assert.Contains(t, ev.err.Error(), "boom")
	assert.True(t, m.Running())
}

func TestShutdownJoinsConnectedWorker(t *testing.T) {
	m, fe, factory := startMediator(t)

	require.True(t, m.RequestConnect(testConfig()))
	client := factory.next(t)
	client.notifier.NotifyConnected()
	fe.next(t)

	assert.True(t, m.Shutdown())

	assert.True(t, client.finished.Load())
	assert.False(t, m.WorkerActive())
	fe.none(t)
}

func TestShutdownBeforeClientIsBuilt(t *testing.T) {
	fe := newRecordingFrontEnd()
	release := make(chan struct{})
	entered := make(chan struct{})
	var ran atomic.Bool
	m := New(fe, func(config.ConnectionConfig, Notifier) (NetworkClient, error) {
		close(entered)
		<-release
		return runRecorder{ran: &ran}, nil
	})
	require.True(t, m.Start())
	require.True(t, m.RequestConnect(testConfig()))
	<-entered

	shutdownDone := make(chan bool)
	go func() { shutdownDone <- m.Shutdown() }()

	select {
	case <-shutdownDone:
		t.Fatal("Shutdown returned before the worker finished")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case ok := <-shutdownDone:
		assert.True(t, ok)
	case <-time.After(waitTimeout):
		t.Fatal("Shutdown did not return")
	}
	assert.False(t, ran.Load())
	assert.False(t, m.WorkerActive())
}

type runRecorder struct{ ran *atomic.Bool }

func (r runRecorder) Run() error { r.ran.Store(true); return nil }
func (r runRecorder) Stop(string) {}

type unknownMessage struct{}

func (unknownMessage) messageTag() string { return "unknown" }

func TestUnknownMessagesAreIgnored(t *testing.T) {
	m, _, factory := startMediator(t)

	require.True(t, m.Post(unknownMessage{}))
	require.True(t, m.RequestConnect(testConfig()))
	factory.next(t)
	assert.True(t, m.Running())
}

func TestNotRunning(t *testing.T) {
	m := New(newRecordingFrontEnd(), newClientFactory().New)

	assert.False(t, m.RequestConnect(testConfig()))
	assert.False(t, m.RequestDisconnect())
	assert.False(t, m.Post(QuitNetworkClient{}))
}

func TestRequestDisconnectWithoutWorker(t *testing.T) {
	m, fe, _ := startMediator(t)

	assert.False(t, m.RequestDisconnect())
	fe.none(t)
}

func TestStaleNotificationsAreDropped(t *testing.T) {
	m, fe, factory := startMediator(t)

	require.True(t, m.RequestConnect(testConfig()))
	old := factory.next(t)
	require.True(t, m.RequestDisconnect())
	assert.Equal(t, "stopped", fe.next(t).kind)

	old.notifier.NotifyConnected()
	old.notifier.NotifyRuleSetChanged("Cthulhu")
	fe.none(t)
	assert.False(t, m.WorkerActive())
}

func TestMediatorLevelNotifications(t *testing.T) {
	m, fe, factory := startMediator(t)

	m.NotifyConnected()
	fe.none(t)

	require.True(t, m.RequestConnect(testConfig()))
	factory.next(t)

	m.NotifyConnected()
	assert.Equal(t, "connected", fe.next(t).kind)
	m.NotifyRuleSetChanged("SwordWorld2.5")
	assert.Equal(t, "SwordWorld2.5", fe.next(t).id)
}
