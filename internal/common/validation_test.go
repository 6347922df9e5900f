package common

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConversationType(t *testing.T) {
	assert.Equal(t, "direct", ConversationDirect.String())
	assert.True(t, ConversationGroup.IsValid())
	assert.False(t, ConversationType("channel").IsValid())

	ct, ok := ParseConversationType(" GROUP ")
	assert.True(t, ok)
	assert.Equal(t, ConversationGroup, ct)

	_, ok = ParseConversationType("")
	assert.False(t, ok)
}

func TestValidateMessageContent(t *testing.T) {
	assert.NoError(t, ValidateMessageContent("hello"))
	assert.Error(t, ValidateMessageContent(""))
	assert.Error(t, ValidateMessageContent("   \n"))
	assert.NoError(t, ValidateMessageContent(strings.Repeat("é", MaxMessageLength)))
	assert.Error(t, ValidateMessageContent(strings.Repeat("a", MaxMessageLength+1)))
}

func TestValidateEmoji(t *testing.T) {
	for _, emoji := range []string{"👍", "❤️", "👨‍👩‍👧", ":party:"} {
		assert.NoError(t, ValidateEmoji(emoji), emoji)
	}
	for _, emoji := range []string{"", "a b", strings.Repeat("x", 33), "\xff"} {
		assert.Error(t, ValidateEmoji(emoji), emoji)
	}
}

func TestValidateHandle(t *testing.T) {
	assert.NoError(t, ValidateHandle("alice_01"))
	assert.Error(t, ValidateHandle("ab"))
	assert.Error(t, ValidateHandle("has space"))
}

func TestValidateID(t *testing.T) {
	assert.NoError(t, ValidateID("conversation", "conv-1"))
	err := ValidateID("conversation", " ")
	assert.EqualError(t, err, "conversation ID is required")
	assert.Error(t, ValidateID("message", strings.Repeat("x", 65)))
}
