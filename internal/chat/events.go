package chat

import (
	"time"

	"chatroom-service/internal/models"
)

// Outbound event names.
const (
	EventRecentMessages   = "recentMessages"
	EventNewMessage       = "newMessage"
	EventUserConnected    = "userConnected"
	EventUserDisconnected = "userDisconnected"
	EventConnectedUsers   = "connectedUsers"
	EventMessageError     = "messageError"
)

// Inbound event names.
const (
	EventSendMessage       = "sendMessage"
	EventGetConnectedUsers = "getConnectedUsers"
	EventGetRecentMessages = "getRecentMessages"
)

// Error texts sent to clients in messageError events.
const (
	errTextSendFailed    = "Failed to send message"
	errTextFetchFailed   = "Failed to fetch messages"
	errTextInvalidFormat = "Invalid message format"
)

// Event is the wire envelope: {"event": name, "data": payload}.
type Event struct {
	Name string      `json:"event"`
	Data interface{} `json:"data"`
}

// UserView is what other clients learn about a connected user.
type UserView struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Color    string `json:"color"`
}

type MessageView struct {
	ID        uint      `json:"id"`
	Message   string    `json:"message"`
	User      UserView  `json:"user"`
	Timestamp time.Time `json:"timestamp"`
}

// PresenceChange is the payload of userConnected and userDisconnected.
type PresenceChange struct {
	User           UserView   `json:"user"`
	ConnectedUsers []UserView `json:"connectedUsers"`
}

type ErrorPayload struct {
	Error string `json:"error"`
}

// NewMessageView projects a persisted message. fallback fills the author when
// the store did not load it.
func NewMessageView(msg *models.Message, fallback UserView) MessageView {
	author := fallback
	if msg.User.ID != 0 {
		author = UserView{ID: msg.User.ID, Username: msg.User.Username, Color: msg.User.Color}
	}
	return MessageView{
		ID:        msg.ID,
		Message:   msg.Content,
		User:      author,
		Timestamp: msg.CreatedAt,
	}
}

// chronological turns a most-recent-first page into oldest-first views.
func chronological(msgs []models.Message) []MessageView {
	views := make([]MessageView, len(msgs))
	for i := range msgs {
		m := &msgs[len(msgs)-1-i]
		views[i] = NewMessageView(m, UserView{ID: m.UserID})
	}
	return views
}

func errorEvent(text string) Event {
	return Event{Name: EventMessageError, Data: ErrorPayload{Error: text}}
}
