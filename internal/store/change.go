package store

import "slices"

// Tables that emit row changes.
const (
	TableMessages     = "messages"
	TableParticipants = "chat_participants"
	TableEvents       = "events"
)

// KnownTable reports whether table emits changes. The empty table, which
// matches every table, is known.
func KnownTable(table string) bool {
	switch table {
	case "", TableMessages, TableParticipants, TableEvents:
		return true
	}
	return false
}

// ChangeOp is the kind of row change.
type ChangeOp string

const (
	OpInsert ChangeOp = "INSERT"
	OpUpdate ChangeOp = "UPDATE"
	OpDelete ChangeOp = "DELETE"
)

// Change is a row-change notification carrying the complete affected row.
// Exactly one of Message, Participant and Activity is set, matching Table.
type Change struct {
	Table       string       `json:"table"`
	Op          ChangeOp     `json:"op"`
	Message     *Message     `json:"message,omitempty"`
	Participant *Participant `json:"participant,omitempty"`
	Activity    *Activity    `json:"activity,omitempty"`
}

// ChatID returns the chat the changed row belongs to.
func (c Change) ChatID() string {
	switch {
	case c.Message != nil:
		return c.Message.ChatID
	case c.Participant != nil:
		return c.Participant.ChatID
	case c.Activity != nil:
		return c.Activity.ChatID
	}
	return ""
}

// UserID returns the user the changed row refers to.
func (c Change) UserID() string {
	switch {
	case c.Message != nil:
		return c.Message.UserID
	case c.Participant != nil:
		return c.Participant.UserID
	case c.Activity != nil:
		return c.Activity.OrganizerID
	}
	return ""
}

// ChangeFilter selects row changes for a subscription. Empty fields match
// anything. MemberOf restricts changes to chats the given user participates
// in; it needs a membership lookup and is not evaluated by Matches.
type ChangeFilter struct {
	Table    string     `json:"table"`
	Ops      []ChangeOp `json:"ops,omitempty"`
	ChatID   string     `json:"chat_id,omitempty"`
	UserID   string     `json:"user_id,omitempty"`
	MemberOf string     `json:"member_of,omitempty"`
}

// Matches reports whether c passes the table, op, chat and user conditions.
func (f ChangeFilter) Matches(c Change) bool {
	if f.Table != "" && f.Table != c.Table {
		return false
	}
	if len(f.Ops) > 0 && !slices.Contains(f.Ops, c.Op) {
		return false
	}
	if f.ChatID != "" && f.ChatID != c.ChatID() {
		return false
	}
	if f.UserID != "" && f.UserID != c.UserID() {
		return false
	}
	return true
}

// ChangeStream delivers the changes selected by a ChangeFilter. Recv blocks
// until a change arrives, the stream fails, or it is closed.
type ChangeStream interface {
	Recv() (Change, error)
	Close() error
}
