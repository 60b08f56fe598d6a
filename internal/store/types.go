package store

// Message is a chat message. Immutable once stored.
type Message struct {
	ID        int64  `json:"id"`
	ChatID    string `json:"chat_id"`
	UserID    string `json:"user_id"`
	Content   string `json:"content"`
	CreatedAt int64  `json:"created_at"` // unix ms
}

// MessagePreview is the subset of a message needed to build a chat preview.
type MessagePreview struct {
	UserID    string `json:"user_id"`
	Content   string `json:"content"`
	CreatedAt int64  `json:"created_at"`
}

// JoinKind tags the cardinality of a chat -> event join.
type JoinKind int

const (
	JoinNone JoinKind = iota
	JoinOne
	JoinMany
)

// EventNames is the result of joining a chat to its associated event(s).
type EventNames struct {
	Kind  JoinKind `json:"kind"`
	Names []string `json:"names,omitempty"`
}

// EventNamesOf tags a raw join result by its cardinality.
func EventNamesOf(names []string) EventNames {
	switch len(names) {
	case 0:
		return EventNames{Kind: JoinNone}
	case 1:
		return EventNames{Kind: JoinOne, Names: names}
	default:
		return EventNames{Kind: JoinMany, Names: names}
	}
}

// ChatSummary is one chat a user participates in, with every message
// preview and the associated event name(s).
type ChatSummary struct {
	ChatID   string           `json:"chat_id"`
	Event    EventNames       `json:"event"`
	Messages []MessagePreview `json:"messages"`
}

// Participant is a (chat, user) membership row.
type Participant struct {
	ChatID   string `json:"chat_id"`
	UserID   string `json:"user_id"`
	JoinedAt int64  `json:"joined_at"`
}

// Profile maps a user id to its display name.
type Profile struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
}

// Activity is a social event shown on the map. Every activity owns one chat.
type Activity struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	OrganizerID  string   `json:"organizer_id"`
	Description  string   `json:"description,omitempty"`
	ActivityType string   `json:"activity_type,omitempty"`
	PriceRange   string   `json:"price_range,omitempty"`
	TimeSlot     string   `json:"time_slot,omitempty"`
	Location     string   `json:"location,omitempty"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
	CreatedAt    int64    `json:"created_at"`
	ChatID       string   `json:"chat_id,omitempty"`
}
