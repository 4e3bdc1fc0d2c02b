package bus

import "fmt"

// EventKind distinguishes the three inbound event shapes a channel delivers.
type EventKind string

const (
	KindText     EventKind = "text"     // free-form text message
	KindCommand  EventKind = "command"  // slash command with optional argument
	KindCallback EventKind = "callback" // button press carrying a callback token
)

// InboundEvent is an event received from a chat channel.
type InboundEvent struct {
	Channel    string            // source channel name (e.g. "telegram", "system")
	SenderID   string            // sender identifier
	ChatID     string            // stable conversation identifier
	Kind       EventKind         // what shape of event this is
	Text       string            // free text (KindText)
	Command    string            // command name without the slash (KindCommand)
	Args       string            // raw argument string after the command
	CallbackID string            // platform callback id to acknowledge (KindCallback)
	Token      string            // opaque callback token (KindCallback), <=64 bytes
	MessageID  string            // platform message id the event originated from
	Metadata   map[string]string // arbitrary metadata
}

// ConversationKey is the routing key for per-conversation state and ordering.
func (e InboundEvent) ConversationKey() string {
	return fmt.Sprintf("%s:%s", e.Channel, e.ChatID)
}

// Button is one inline keyboard button: a label and the callback token it
// fires. Channels render it with their own keyboard primitives.
type Button struct {
	Label string
	Token string
}

// OutboundMessage is a reply to be delivered to a channel.
type OutboundMessage struct {
	Channel  string     // target channel
	ChatID   string     // target chat
	Text     string     // text content
	ReplyTo  string     // optional message ID to reply to
	Buttons  [][]Button // optional inline keyboard rows
	Metadata map[string]string
}
