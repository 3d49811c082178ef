// Package corpus holds the text units that flow from message sources into training,
// the bounded sample buffer they queue in, and the content filter applied on intake.
package corpus

// ChannelID identifies a message channel on the source platform.
type ChannelID string

// AuthorID identifies a message author on the source platform.
type AuthorID string

// MessageID identifies a single message within a channel.
type MessageID string

// TextUnit is one accepted message: its text plus where it came from.
// Values are never modified after construction.
type TextUnit struct {
	ID      MessageID
	Channel ChannelID
	Author  AuthorID
	Content string
}

// Contents returns the text of every unit in order.
func Contents(units []TextUnit) []string {
	out := make([]string, len(units))
	for i := range units {
		out[i] = units[i].Content
	}
	return out
}
