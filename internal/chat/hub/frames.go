package hub

import (
	"context"
	"encoding/json"

	"gosocialchat/internal/protocol"
)

func (c *Client) handleFrame(ctx context.Context, data []byte) {
	env, err := protocol.ParseEnvelope(data)
	if err != nil {
		c.sendError(protocol.ErrCodeInvalid, "invalid frame")
		return
	}
	c.hub.metrics.received.WithLabelValues(string(env.Event)).Inc()

	if !c.limiter.Allow() {
		c.hub.metrics.rateLimited.Inc()
		c.sendError(protocol.ErrCodeRateLimited, "slow down")
		return
	}

	switch env.Event {
	case protocol.EventJoinRoom:
		var req protocol.RoomRequest
		if err := json.Unmarshal(env.Data, &req); err != nil || req.ConversationID == "" {
			c.sendError(protocol.ErrCodeInvalid, "invalid join_room")
			return
		}
		c.handleJoin(ctx, req.ConversationID)

	case protocol.EventLeaveRoom:
		var req protocol.RoomRequest
		if err := json.Unmarshal(env.Data, &req); err != nil || req.ConversationID == "" {
			c.sendError(protocol.ErrCodeInvalid, "invalid leave_room")
			return
		}
		c.hub.leave(c, req.ConversationID)

	case protocol.EventTypingStart, protocol.EventTypingStop:
		var req protocol.TypingEvent
		if err := json.Unmarshal(env.Data, &req); err != nil || req.ConversationID == "" {
			c.sendError(protocol.ErrCodeInvalid, "invalid typing event")
			return
		}
		if !c.hub.inRoom(c, req.ConversationID) {
			c.sendError(protocol.ErrCodeForbidden, "join the room first")
			return
		}
		// the sender id always comes from the connection, never the frame
		out, err := protocol.Encode(env.Event, protocol.TypingEvent{ConversationID: req.ConversationID, UserID: c.userID})
		if err != nil {
			return
		}
		c.hub.relay(c, req.ConversationID, out)

	case protocol.EventSendMessage, protocol.EventReactionAdded, protocol.EventReactionRemoved:
		// Mirrors of REST writes. The REST path is authoritative and broadcasts
		// on its own, so these are only observed.
		c.hub.logger.Debug("client mirror event", "event", env.Event, "user_id", c.userID)

	default:
		c.sendError(protocol.ErrCodeInvalid, "unknown event "+string(env.Event))
	}
}

func (c *Client) handleJoin(ctx context.Context, conversationID string) {
	ok, err := c.hub.members.IsParticipant(ctx, conversationID, c.userID)
	if err != nil {
		c.hub.logger.Error("membership check failed", "conversation_id", conversationID, "user_id", c.userID, "error", err)
		c.sendError(protocol.ErrCodeForbidden, "cannot join room")
		return
	}
	if !ok {
		c.sendError(protocol.ErrCodeForbidden, "not a participant")
		return
	}
	c.hub.join(c, conversationID)
	c.hub.logger.Debug("joined room", "conversation_id", conversationID, "user_id", c.userID)
}
