package realtime

// Event types published to connected clients
const (
	EventMessageSent     = "message.sent"
	EventMessageEdited   = "message.edited"
	EventMessageDeleted  = "message.deleted"
	EventReactionAdded   = "reaction.added"
	EventReactionRemoved = "reaction.removed"
	EventRoomCreated     = "room.created"
	EventRoomUpdated     = "room.updated"
	EventRoomArchived    = "room.archived"
	EventMemberAdded     = "member.added"
	EventMemberRemoved   = "member.removed"
	EventTyping          = "typing"
)

// Event is one domain event fanned out to subscribed clients
type Event struct {
	Type    string      `json:"type"`
	RoomID  uint64      `json:"room_id,omitempty"`
	Payload interface{} `json:"payload,omitempty"`
}

// Broadcaster delivers events to connected clients: at-most-once,
// best-effort. Delivery failure never fails the originating write.
type Broadcaster interface {
	Publish(userIDs []uint64, event *Event)
}

// NoopBroadcaster discards events; used when no realtime transport is wired
type NoopBroadcaster struct{}

// Publish drops the event
func (NoopBroadcaster) Publish(userIDs []uint64, event *Event) {}
