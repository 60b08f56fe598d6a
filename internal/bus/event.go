package bus

import "time"

// Event kinds published on the bus. Subscribers match on prefixes such as
// "change." or "message.".
const (
	KindMessageInserted     = "change.messages.insert"
	KindParticipantInserted = "change.chat_participants.insert"
	KindParticipantDeleted  = "change.chat_participants.delete"
	KindFeedStatus          = "feed.status_changed"
	KindSendAck             = "message.send_ack"
	KindSendFailed          = "message.send_failed"
)

// Event represents a domain event published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}
