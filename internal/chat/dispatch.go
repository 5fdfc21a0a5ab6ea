package chat

import (
	"context"
	"encoding/json"
)

type inboundFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type sendMessagePayload struct {
	Message *string `json:"message"`
	Content *string `json:"content"`
}

func (p sendMessagePayload) text() string {
	switch {
	case p.Message != nil:
		return *p.Message
	case p.Content != nil:
		return *p.Content
	default:
		return ""
	}
}

// HandleFrame decodes one inbound text frame and routes it.
func (c *Coordinator) HandleFrame(ctx context.Context, connectionID string, frame []byte) {
	var in inboundFrame
	if err := json.Unmarshal(frame, &in); err != nil {
		c.log.Debug("malformed frame", "connectionID", connectionID, "error", err)
		c.SendError(connectionID, errTextInvalidFormat)
		return
	}

	switch in.Event {
	case EventSendMessage:
		var payload sendMessagePayload
		if len(in.Data) > 0 && string(in.Data) != "null" {
			if err := json.Unmarshal(in.Data, &payload); err != nil {
				c.SendError(connectionID, errTextInvalidFormat)
				return
			}
		}
		c.HandleSendMessage(ctx, connectionID, payload.text())
	case EventGetConnectedUsers:
		c.HandleGetConnectedUsers(connectionID)
	case EventGetRecentMessages:
		c.HandleGetRecentMessages(ctx, connectionID)
	default:
		c.log.Debug("ignoring unknown event", "connectionID", connectionID, "event", in.Event)
	}
}
