package convlist

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gosocialchat/internal/chat/events"
	"gosocialchat/internal/chat/hub"
	"gosocialchat/internal/chatsync/model"
	"gosocialchat/internal/chatsync/transport"
	"gosocialchat/internal/common"
	"gosocialchat/internal/protocol"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func at(minutes int) time.Time {
	return t0.Add(time.Duration(minutes) * time.Minute)
}

type fakeFetcher struct {
	convs []protocol.Conversation
	err   error
}

func (f *fakeFetcher) ListConversations(ctx context.Context) ([]protocol.Conversation, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.convs, nil
}

func (f *fakeFetcher) GetConversation(ctx context.Context, conversationID string) (*protocol.Conversation, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, c := range f.convs {
		if c.ID == conversationID {
			return &c, nil
		}
	}
	return nil, errors.New("404")
}

func conv(id string, lastAt int, unread int) protocol.Conversation {
	c := protocol.Conversation{
		ID:           id,
		Type:         "direct",
		Participants: []protocol.Participant{{UserID: "alice"}, {UserID: "bob"}},
		UnreadCount:  unread,
		CreatedAt:    at(0),
	}
	if lastAt > 0 {
		c.LastMessage = &protocol.LastMessage{ID: id + "-last", Text: "hi", SenderID: "bob", Timestamp: at(lastAt)}
	}
	return c
}

func msg(id, sender string, minutes int) model.Message {
	return model.Message{ID: id, SenderID: sender, Content: id, CreatedAt: at(minutes), State: model.Confirmed}
}

func orderedIDs(l *List) []string {
	var out []string
	for _, s := range l.GetOrdered() {
		out = append(out, s.ID)
	}
	return out
}

func newList(t *testing.T, convs ...protocol.Conversation) *List {
	l := New("alice", &fakeFetcher{convs: convs})
	require.NoError(t, l.Refresh(context.Background()))
	return l
}

func TestList_OrderedByActivity(t *testing.T) {
	empty := conv("c-empty", 0, 0)
	empty.CreatedAt = at(5)
	l := newList(t, conv("c-old", 1, 0), conv("c-new", 10, 0), empty)

	assert.Equal(t, []string{"c-new", "c-empty", "c-old"}, orderedIDs(l))

	l.OnMessageArrived("c-old", msg("m1", "bob", 20))
	assert.Equal(t, []string{"c-old", "c-new", "c-empty"}, orderedIDs(l))
}

func TestList_UnreadMonotonicity(t *testing.T) {
	l := newList(t, conv("c1", 1, 0), conv("c2", 1, 0))
	l.OnConversationOpened("c2")

	for i := 0; i < 3; i++ {
		assert.True(t, l.OnMessageArrived("c1", msg(fmt.Sprintf("a%d", i), "bob", 2+i)))
		assert.True(t, l.OnMessageArrived("c2", msg(fmt.Sprintf("b%d", i), "bob", 2+i)))
	}

	c1, _ := l.Get("c1")
	c2, _ := l.Get("c2")
	assert.Equal(t, 3, c1.UnreadCount)
	assert.Equal(t, 0, c2.UnreadCount)

	l.MarkRead("c1")
	c1, _ = l.Get("c1")
	assert.Equal(t, 0, c1.UnreadCount)
}

func TestList_IgnoredArrivals(t *testing.T) {
	tests := []struct {
		name string
		conv string
		msg  model.Message
	}{
		{"duplicate delivery", "c1", msg("m1", "bob", 2)},
		{"own message", "c1", msg("m2", "alice", 3)},
		{"pending message", "c1", model.Message{ClientID: "n1", SenderID: "bob", State: model.Pending, CreatedAt: at(4)}},
		{"unknown conversation", "c9", msg("m3", "bob", 5)},
	}

	l := newList(t, conv("c1", 1, 0))
	l.OnMessageArrived("c1", msg("m1", "bob", 2))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l.OnMessageArrived(tt.conv, tt.msg)
			c1, _ := l.Get("c1")
			assert.Equal(t, 1, c1.UnreadCount)
		})
	}
	_, ok := l.Get("c9")
	assert.False(t, ok, "a bare message never creates a conversation")
}

func TestList_OwnMessageUpdatesLastMessage(t *testing.T) {
	l := newList(t, conv("c1", 1, 0))

	l.OnMessageArrived("c1", msg("m1", "alice", 2))

	c1, _ := l.Get("c1")
	require.NotNil(t, c1.LastMessage)
	assert.Equal(t, "m1", c1.LastMessage.ID)
	assert.Equal(t, "alice", c1.LastMessage.SenderID)
	assert.Equal(t, 0, c1.UnreadCount)
}

func TestList_OlderMessageKeepsLastMessage(t *testing.T) {
	l := newList(t, conv("c1", 10, 0))

	l.OnMessageArrived("c1", msg("late", "bob", 5))

	c1, _ := l.Get("c1")
	assert.Equal(t, "c1-last", c1.LastMessage.ID)
	assert.Equal(t, 1, c1.UnreadCount)
}

func TestList_RecentWindowIsBounded(t *testing.T) {
	r := newRecentIDs()
	assert.True(t, r.add("first"))
	for i := 0; i < recentWindow; i++ {
		r.add(fmt.Sprintf("m%d", i))
	}
	assert.Len(t, r.seen, recentWindow)
	assert.True(t, r.add("first"), "evicted ids are forgotten")
	assert.False(t, r.add(fmt.Sprintf("m%d", recentWindow-1)))
}

func TestList_FetchAndInsert(t *testing.T) {
	fetcher := &fakeFetcher{convs: []protocol.Conversation{conv("c1", 1, 0)}}
	l := New("alice", fetcher)
	require.NoError(t, l.Refresh(context.Background()))

	assert.False(t, l.OnMessageArrived("c2", msg("m1", "bob", 3)))

	fetcher.convs = append(fetcher.convs, conv("c2", 3, 1))
	s, err := l.FetchAndInsert(context.Background(), "c2")
	require.NoError(t, err)
	assert.Equal(t, 1, s.UnreadCount)
	assert.Equal(t, []string{"c2", "c1"}, orderedIDs(l))

	_, err = l.FetchAndInsert(context.Background(), "c404")
	assert.Error(t, err)
}

func TestList_InsertKeepsNewerLastMessage(t *testing.T) {
	l := newList(t, conv("c1", 1, 0))
	l.OnMessageArrived("c1", msg("m9", "bob", 9))

	l.Insert(model.SummaryFromWire(conv("c1", 2, 4)))

	c1, _ := l.Get("c1")
	assert.Equal(t, "m9", c1.LastMessage.ID)
	assert.Equal(t, 4, c1.UnreadCount)
}

func TestList_RefreshZeroesOpenConversation(t *testing.T) {
	l := newList(t)
	l.OnConversationOpened("c1")
	l.fetcher = &fakeFetcher{convs: []protocol.Conversation{conv("c1", 1, 7), conv("c2", 1, 2)}}

	require.NoError(t, l.Refresh(context.Background()))

	c1, _ := l.Get("c1")
	c2, _ := l.Get("c2")
	assert.Equal(t, 0, c1.UnreadCount)
	assert.Equal(t, 2, c2.UnreadCount)
	assert.Equal(t, 2, l.TotalUnread())

	l.OnConversationClosed()
	assert.Empty(t, l.OpenID())
}

func TestList_RefreshFailureKeepsState(t *testing.T) {
	fetcher := &fakeFetcher{convs: []protocol.Conversation{conv("c1", 1, 3)}}
	l := New("alice", fetcher)
	require.NoError(t, l.Refresh(context.Background()))

	fetcher.err = errors.New("503")
	assert.Error(t, l.Refresh(context.Background()))
	assert.Equal(t, []string{"c1"}, orderedIDs(l))
}

func TestList_Remove(t *testing.T) {
	l := newList(t, conv("c1", 1, 0), conv("c2", 2, 0))

	assert.True(t, l.Remove("c1"))
	assert.False(t, l.Remove("c1"))
	assert.Equal(t, []string{"c2"}, orderedIDs(l))
}

func TestList_ChangesCoalesce(t *testing.T) {
	l := newList(t, conv("c1", 1, 0))
	<-l.Changes()

	l.OnMessageArrived("c1", msg("m1", "bob", 2))
	l.OnMessageArrived("c1", msg("m2", "bob", 3))

	select {
	case <-l.Changes():
	default:
		t.Fatal("expected a change notification")
	}
	select {
	case <-l.Changes():
		t.Fatal("notifications should coalesce")
	default:
	}
}

type everyoneIsMember struct{}

func (everyoneIsMember) IsParticipant(ctx context.Context, conversationID, userID string) (bool, error) {
	return true, nil
}

func TestList_AttachFollowsPushEvents(t *testing.T) {
	issuer := common.NewTokenIssuer("secret", time.Hour)
	h := hub.NewHub(issuer, everyoneIsMember{}, hub.Options{}, nil)
	server := httptest.NewServer(http.HandlerFunc(h.ServeWS))
	defer server.Close()
	defer h.Close()

	ch := transport.NewChannel("ws" + strings.TrimPrefix(server.URL, "http"))
	token, err := issuer.GenerateToken("alice", "alice")
	require.NoError(t, err)
	require.NoError(t, ch.Connect(context.Background(), token))
	defer ch.Disconnect()

	l := newList(t, conv("c1", 1, 0), conv("c2", 1, 0))
	scope := l.Attach(ch)

	push := func(name protocol.EventName, conversationID string, payload interface{}) {
		require.NoError(t, h.Update(events.ChatEvent{
			Name:           name,
			ConversationID: conversationID,
			Recipients:     []string{"alice", "bob"},
			Payload:        payload,
		}))
	}
	m := protocol.Message{ID: "m1", ConversationID: "c1", SenderID: "bob", Content: "hey", CreatedAt: at(5)}
	push(protocol.EventNewMessage, "c1", m)
	push(protocol.EventNewMessage, "c1", m)
	push(protocol.EventConversationDeleted, "c2", protocol.ConversationDeletedEvent{ConversationID: "c2"})

	require.Eventually(t, func() bool {
		_, stillThere := l.Get("c2")
		return !stillThere
	}, time.Second, 5*time.Millisecond)
	c1, _ := l.Get("c1")
	assert.Equal(t, 1, c1.UnreadCount)
	assert.Equal(t, "hey", c1.LastMessage.Text)

	scope.Close()
	assert.Zero(t, ch.HandlerCount(protocol.EventNewMessage))
	assert.Zero(t, ch.HandlerCount(protocol.EventConversationDeleted))
}
