package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"gosocialchat/internal/protocol"
)

func TestFromWire(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	msg := FromWire(protocol.Message{
		ID:             "m1",
		ClientID:       "c1",
		ConversationID: "conv-1",
		SenderID:       "alice",
		Content:        "hi",
		CreatedAt:      at,
		Reactions:      []protocol.Reaction{{UserID: "bob", Emoji: "👍", Version: 3}},
	})

	assert.Equal(t, Confirmed, msg.State)
	assert.Equal(t, "c1", msg.ClientID)
	assert.Equal(t, at, msg.CreatedAt)
	assert.Equal(t, []Reaction{{UserID: "bob", Emoji: "👍", Version: 3}}, msg.Reactions)
}

func TestSummary_ActivityAt(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	last := created.Add(time.Hour)

	empty := SummaryFromWire(protocol.Conversation{ID: "c", CreatedAt: created})
	assert.Equal(t, created, empty.ActivityAt())

	active := SummaryFromWire(protocol.Conversation{
		ID:          "c",
		CreatedAt:   created,
		LastMessage: &protocol.LastMessage{ID: "m", Timestamp: last},
	})
	assert.Equal(t, last, active.ActivityAt())
}

func TestSummary_Title(t *testing.T) {
	s := Summary{ID: "conv-1", Participants: []protocol.Participant{
		{UserID: "me", UserName: "me"},
		{UserID: "bob", UserName: "Bob"},
		{UserID: "carol"},
	}}
	assert.Equal(t, "Bob, carol", s.Title("me"))
	assert.Equal(t, "conv-1", Summary{ID: "conv-1"}.Title("me"))
}

func TestDeliveryState_String(t *testing.T) {
	assert.Equal(t, "pending", Pending.String())
	assert.Equal(t, "confirmed", Confirmed.String())
	assert.Equal(t, "failed", Failed.String())
	assert.Equal(t, "unknown", DeliveryState(9).String())
}
