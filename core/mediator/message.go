package mediator

// Message is an entry of the Mediator queue.
type Message interface {
	messageTag() string
}

// Quit shuts the pump down after stopping and joining any worker.
type Quit struct{}

// QuitNetworkClient asks the running network client to quit.
type QuitNetworkClient struct{}

// NetworkClientStopped is the terminal message of a worker whose client returned normally.
type NetworkClientStopped struct {
	worker *worker
}

// ConnectionError is the terminal message of a worker whose client failed.
type ConnectionError struct {
	Cause  error
	worker *worker
}

// ConnectedSuccessfully reports that the client finished its handshake.
type ConnectedSuccessfully struct {
	worker *worker
}

// RuleSetChanged reports a rule-set change made through the network client.
type RuleSetChanged struct {
	ID     string
	worker *worker
}

func (Quit) messageTag() string { return "quit" }
func (QuitNetworkClient) messageTag() string { return "quit-network-client" }
func (NetworkClientStopped) messageTag() string { return "network-client-stopped" }
func (ConnectionError) messageTag() string { return "connection-error" }
func (ConnectedSuccessfully) messageTag() string { return "connected-successfully" }
func (RuleSetChanged) messageTag() string { return "rule-set-changed" }
