// Package mediator serializes the interaction between a front end and the
// network client.
//
// A single pump goroutine consumes the Mediator queue. At most one worker
// goroutine runs the blocking network client at a time; it reports back only
// by posting messages. Everything that touches front-end state is handed to
// FrontEnd.Do so it executes on the front end's own execution context.
package mediator

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"bcdice-irc/core/config"
)

// ErrNotRunning is returned by operations that need a started Mediator.
var ErrNotRunning = errors.New("mediator is not running")

// NetworkClient is a connection that runs until stopped or failed.
type NetworkClient interface {
	// Run connects and serves until the connection ends. It returns nil after
	// a requested Stop and an error on failure.
	Run() error
	// Stop asks Run to return. It may be called from any goroutine, more than
	// once, and before Run starts.
	Stop(reason string)
}

// Notifier receives progress reports from inside a running network client.
type Notifier interface {
	// NotifyConnected is called once the handshake with the server completes.
	NotifyConnected()
	// NotifyRuleSetChanged is called when a remote command selects another rule set.
	NotifyRuleSetChanged(id string)
}

// ClientFactory constructs a network client for cfg reporting through n.
type ClientFactory func(cfg config.ConnectionConfig, n Notifier) (NetworkClient, error)

// FrontEnd is the controlling user interface.
// The Mediator calls the callbacks only through Do.
type FrontEnd interface {
	// Do schedules fn on the front end's own execution context.
	Do(fn func())
	ClientConnected()
	ClientStopped()
	ConnectionFailed(err error)
	RuleSetChanged(id string)
}

// Mediator owns the pump goroutine and the network client worker.
type Mediator struct {
	frontEnd  FrontEnd
	newClient ClientFactory
	queue     *queue

	mu       sync.Mutex
	running  bool
	quitting bool
	pumpDone chan struct{}
	worker   *worker
}

type worker struct {
	cfg           config.ConnectionConfig
	done          chan struct{}
	client        NetworkClient
	stopRequested bool
}

// New returns a Mediator. Call Start before use.
func New(frontEnd FrontEnd, newClient ClientFactory) *Mediator {
	return &Mediator{
		frontEnd:  frontEnd,
		newClient: newClient,
		queue:     newQueue(),
	}
}

// Start launches the pump. It reports false if the pump was already running.
func (m *Mediator) Start() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return false
	}
	m.running = true
	m.pumpDone = make(chan struct{})
	go m.pump(m.pumpDone)
	log.Println("Mediator: started")
	return true
}

// Running reports whether the pump accepts messages.
func (m *Mediator) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// WorkerActive reports whether a network client worker exists.
func (m *Mediator) WorkerActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.worker != nil
}

// Shutdown stops the pump. Any worker is asked to quit and joined before
// Shutdown returns. It reports false if the pump was not running or another
// Shutdown is in progress.
func (m *Mediator) Shutdown() bool {
	m.mu.Lock()
	if !m.running || m.quitting {
		m.mu.Unlock()
		return false
	}
	m.quitting = true
	done := m.pumpDone
	m.mu.Unlock()

	m.queue.push(Quit{})
	<-done

	m.mu.Lock()
	m.quitting = false
	m.mu.Unlock()
	log.Println("Mediator: shut down")
	return true
}

// RequestConnect starts a worker running a network client for cfg.
// It reports false, doing nothing, while another worker is active.
func (m *Mediator) RequestConnect(cfg config.ConnectionConfig) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running || m.quitting {
		log.Printf("RequestConnect: %v", ErrNotRunning)
		return false
	}
	if m.worker != nil {
		log.Println("RequestConnect: a network client is already active")
		return false
	}

	w := &worker{cfg: cfg.Clone(), done: make(chan struct{})}
	m.worker = w
	go m.runWorker(w)
	log.Printf("RequestConnect: worker started for %s", cfg.Endpoint())
	return true
}

// RequestDisconnect asks the active network client to quit.
// It reports false when no worker is active.
func (m *Mediator) RequestDisconnect() bool {
	if !m.WorkerActive() {
		log.Println("RequestDisconnect: no active network client")
		return false
	}
	return m.post(QuitNetworkClient{})
}

// post enqueues msg unless the pump has exited.
func (m *Mediator) post(msg Message) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		log.Printf("Mediator: dropped %s: %v", msg.messageTag(), ErrNotRunning)
		return false
	}
	m.queue.push(msg)
	return true
}

// Post enqueues an arbitrary message. Messages the pump does not know are ignored.
func (m *Mediator) Post(msg Message) bool {
	return m.post(msg)
}

func (m *Mediator) pump(done chan struct{}) {
	defer close(done)
	for {
		if quit := m.handle(m.queue.pop()); quit {
			return
		}
	}
}

// handle processes one message and reports whether the pump must exit.
func (m *Mediator) handle(msg Message) bool {
	switch msg := msg.(type) {
	case Quit:
		m.quit()
		return true
	case QuitNetworkClient:
		m.stopWorker()
	case NetworkClientStopped:
		if m.finishWorker(msg.worker) {
			m.frontEnd.Do(m.frontEnd.ClientStopped)
		}
	case ConnectionError:
		if m.finishWorker(msg.worker) {
			cause := msg.Cause
			m.frontEnd.Do(func() { m.frontEnd.ConnectionFailed(cause) })
		}
	case ConnectedSuccessfully:
		if m.isCurrent(msg.worker) {
			m.frontEnd.Do(m.frontEnd.ClientConnected)
		}
	case RuleSetChanged:
		if m.isCurrent(msg.worker) {
			id := msg.ID
			m.frontEnd.Do(func() { m.frontEnd.RuleSetChanged(id) })
		}
	default:
		log.Printf("Mediator: ignoring unknown message %T", msg)
	}
	return false
}

func (m *Mediator) quit() {
	if w := m.stopWorker(); w != nil {
		<-w.done
	}

	m.mu.Lock()
	m.worker = nil
	m.running = false
	dropped := m.queue.drain()
	m.mu.Unlock()

	if len(dropped) > 0 {
		log.Printf("Mediator: discarded %d message(s) on quit", len(dropped))
	}
}

// stopWorker asks the active client to quit and returns its worker.
func (m *Mediator) stopWorker() *worker {
	m.mu.Lock()
	w := m.worker
	if w == nil {
		m.mu.Unlock()
		return nil
	}
	w.stopRequested = true
	client := w.client
	reason := w.cfg.QuitMessage
	m.mu.Unlock()

	if client != nil {
		client.Stop(reason)
	}
	return w
}

// finishWorker waits for w to exit and clears it. It reports false for a
// message from a worker that is no longer current.
func (m *Mediator) finishWorker(w *worker) bool {
	<-w.done

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.worker != w {
		return false
	}
	m.worker = nil
	return true
}

func (m *Mediator) isCurrent(w *worker) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.worker == w
}

func (m *Mediator) runWorker(w *worker) {
	defer close(w.done)

	err := m.runClient(w)
	if err != nil {
		log.Printf("Mediator: network client for %s failed: %v", w.cfg.Endpoint(), err)
		m.post(ConnectionError{Cause: err, worker: w})
		return
	}
	log.Printf("Mediator: network client for %s stopped", w.cfg.Endpoint())
	m.post(NetworkClientStopped{worker: w})
}

func (m *Mediator) runClient(w *worker) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("network client panicked: %v", r)
		}
	}()

	client, err := m.newClient(w.cfg, workerNotifier{m: m, w: w})
	if err != nil {
		return fmt.Errorf("create network client: %w", err)
	}

	m.mu.Lock()
	if w.stopRequested {
		m.mu.Unlock()
		return nil
	}
	w.client = client
	m.mu.Unlock()

	return client.Run()
}

// workerNotifier tags notifications with the worker they came from.
type workerNotifier struct {
	m *Mediator
	w *worker
}

func (n workerNotifier) NotifyConnected() {
	n.m.post(ConnectedSuccessfully{worker: n.w})
}

func (n workerNotifier) NotifyRuleSetChanged(id string) {
	n.m.post(RuleSetChanged{ID: id, worker: n.w})
}

// NotifyConnected reports the handshake completion of the current worker.
func (m *Mediator) NotifyConnected() {
	if w := m.currentWorker(); w != nil {
		workerNotifier{m: m, w: w}.NotifyConnected()
	}
}

// NotifyRuleSetChanged reports a rule-set change made by the current worker.
func (m *Mediator) NotifyRuleSetChanged(id string) {
	if w := m.currentWorker(); w != nil {
		workerNotifier{m: m, w: w}.NotifyRuleSetChanged(id)
	}
}

func (m *Mediator) currentWorker() *worker {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.worker == nil {
		log.Println("Mediator: notification without an active network client")
	}
	return m.worker
}
