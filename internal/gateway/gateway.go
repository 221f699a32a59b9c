// Package gateway defines the boundary to the chat transport. The core
// packages depend only on these types, never on the Telegram SDK.
package gateway

// Inbound is one already-separated text event from the transport.
// Command events arrive with the command name split off by the adapter;
// free-text events carry the raw text.
type Inbound struct {
	UserID    int64
	ChatID    int64
	Text      string
	FirstName string
	Username  string
}

// Sender delivers outbound messages to a chat. Implementations must be
// safe for concurrent use: the scheduler fans deliveries out in parallel.
type Sender interface {
	Send(chatID int64, text string) error
}

// Handler consumes inbound events. Implemented by the conversation
// controller.
type Handler interface {
	HandleCommand(ev Inbound, name string)
	HandleText(ev Inbound)
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(chatID int64, text string) error

// Send implements Sender.
func (f SenderFunc) Send(chatID int64, text string) error {
	return f(chatID, text)
}
