package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"gosocialchat/internal/chat/events"
	"gosocialchat/internal/chat/hub"
	"gosocialchat/internal/chatsync/convlist"
	"gosocialchat/internal/chatsync/model"
	"gosocialchat/internal/chatsync/session/mocks"
	"gosocialchat/internal/chatsync/store"
	"gosocialchat/internal/chatsync/transport"
	"gosocialchat/internal/common"
	"gosocialchat/internal/protocol"
)

const convID = "conv-1"

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func at(minutes int) time.Time {
	return t0.Add(time.Duration(minutes) * time.Minute)
}

func wm(id, sender string, minutes int) protocol.Message {
	return protocol.Message{ID: id, ConversationID: convID, SenderID: sender, Content: id, CreatedAt: at(minutes)}
}

func page(hasMore bool, newestFirst ...protocol.Message) *protocol.MessagePage {
	return &protocol.MessagePage{Messages: newestFirst, HasMore: hasMore, Page: 1}
}

type everyoneIsMember struct{}

func (everyoneIsMember) IsParticipant(ctx context.Context, conversationID, userID string) (bool, error) {
	return true, nil
}

type summaries struct{}

func (summaries) ListConversations(ctx context.Context) ([]protocol.Conversation, error) {
	return []protocol.Conversation{{
		ID:           convID,
		Type:         "direct",
		Participants: []protocol.Participant{{UserID: "alice"}, {UserID: "bob"}},
		UnreadCount:  3,
		CreatedAt:    at(0),
	}}, nil
}

func (summaries) GetConversation(ctx context.Context, conversationID string) (*protocol.Conversation, error) {
	return nil, errors.New("not used")
}

type env struct {
	hub     *hub.Hub
	url     string
	issuer  *common.TokenIssuer
	backend *mocks.MockBackend
	alice   *transport.Channel
	list    *convlist.List

	markReads atomic.Int32
}

func newEnv(t *testing.T) *env {
	ctrl := gomock.NewController(t)
	issuer := common.NewTokenIssuer("secret", time.Hour)
	h := hub.NewHub(issuer, everyoneIsMember{}, hub.Options{EventsPerSec: 1000, EventBurst: 1000}, nil)
	server := httptest.NewServer(http.HandlerFunc(h.ServeWS))
	t.Cleanup(func() {
		h.Close()
		server.Close()
	})

	e := &env{
		hub:     h,
		url:     "ws" + strings.TrimPrefix(server.URL, "http"),
		issuer:  issuer,
		backend: mocks.NewMockBackend(ctrl),
	}
	e.backend.EXPECT().MarkRead(gomock.Any(), convID).DoAndReturn(func(ctx context.Context, conversationID string) error {
		e.markReads.Add(1)
		return nil
	}).AnyTimes()
	e.alice = e.channel(t, "alice")

	e.list = convlist.New("alice", summaries{})
	require.NoError(t, e.list.Refresh(context.Background()))
	return e
}

func (e *env) token(t *testing.T, userID string) string {
	token, err := e.issuer.GenerateToken(userID, userID)
	require.NoError(t, err)
	return token
}

func (e *env) channel(t *testing.T, userID string) *transport.Channel {
	ch := transport.NewChannel(e.url)
	require.NoError(t, ch.Connect(context.Background(), e.token(t, userID)))
	t.Cleanup(ch.Disconnect)
	return ch
}

func (e *env) push(t *testing.T, name protocol.EventName, conversationID string, payload interface{}) {
	require.NoError(t, e.hub.Update(events.ChatEvent{
		Name:           name,
		ConversationID: conversationID,
		Recipients:     []string{"alice", "bob"},
		Payload:        payload,
	}))
}

func (e *env) open(t *testing.T, first *protocol.MessagePage) *Session {
	e.backend.EXPECT().FetchPage(gomock.Any(), convID, 1, 30).Return(first, nil)
	return e.openNoExpect(t)
}

func (e *env) openNoExpect(t *testing.T) *Session {
	s, err := Open(context.Background(), Config{
		ConversationID: convID,
		SelfID:         "alice",
		SelfName:       "alice",
		PageSize:       30,
	}, e.backend, e.alice, e.list)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	require.Eventually(t, func() bool { return e.hub.RoomSize(convID) >= 1 }, time.Second, 5*time.Millisecond)
	return s
}

func ids(msgs []model.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.ID
	}
	return out
}

func hasID(s *Session, id string) func() bool {
	return func() bool {
		for _, m := range s.Messages() {
			if m.ID == id {
				return true
			}
		}
		return false
	}
}

func TestSession_OpenLoadsJoinsAndMarksRead(t *testing.T) {
	e := newEnv(t)
	s := e.open(t, page(false, wm("m2", "bob", 2), wm("m1", "bob", 1)))

	assert.Equal(t, []string{"m1", "m2"}, ids(s.Messages()))
	assert.Equal(t, 1, e.hub.RoomSize(convID))
	c, _ := e.list.Get(convID)
	assert.Equal(t, 0, c.UnreadCount)
	assert.Equal(t, convID, e.list.OpenID())
	assert.False(t, s.HasMore())
}

func TestSession_OpenFailure(t *testing.T) {
	e := newEnv(t)
	e.backend.EXPECT().FetchPage(gomock.Any(), convID, 1, 30).Return(nil, errors.New("503"))

	_, err := Open(context.Background(), Config{ConversationID: convID, SelfID: "alice", PageSize: 30}, e.backend, e.alice, e.list)

	require.Error(t, err)
	assert.Zero(t, e.alice.HandlerCount(protocol.EventNewMessage))
	assert.Empty(t, e.list.OpenID())
}

func TestSession_SendConfirmsPendingOnce(t *testing.T) {
	e := newEnv(t)
	s := e.open(t, page(false, wm("m1", "bob", 1)))

	var echoed protocol.Message
	e.backend.EXPECT().SendMessage(gomock.Any(), convID, gomock.Any()).DoAndReturn(
		func(ctx context.Context, conversationID string, req protocol.SendMessageRequest) (*protocol.Message, error) {
			assert.NotEmpty(t, req.ClientID)
			echoed = protocol.Message{ID: "m9", ClientID: req.ClientID, ConversationID: conversationID, SenderID: "alice", Content: req.Content, CreatedAt: at(9)}
			return &echoed, nil
		})

	msg, err := s.Send(context.Background(), "  hello ")
	require.NoError(t, err)
	assert.Equal(t, "m9", msg.ID)
	assert.Equal(t, "hello", msg.Content)
	assert.Equal(t, model.Confirmed, msg.State)

	// the push echo of the same send, then an unrelated message
	e.push(t, protocol.EventNewMessage, convID, echoed)
	e.push(t, protocol.EventNewMessage, convID, wm("m10", "bob", 10))
	require.Eventually(t, hasID(s, "m10"), time.Second, 5*time.Millisecond)

	assert.Equal(t, []string{"m1", "m9", "m10"}, ids(s.Messages()))
	c, _ := e.list.Get(convID)
	require.NotNil(t, c.LastMessage)
	assert.Equal(t, 0, c.UnreadCount)
}

func TestSession_SendRejectsEmpty(t *testing.T) {
	e := newEnv(t)
	s := e.open(t, page(false))

	_, err := s.Send(context.Background(), "   ")

	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Empty(t, s.Messages())
}

func TestSession_FailedSendIsRetriedWithSameNonce(t *testing.T) {
	e := newEnv(t)
	s := e.open(t, page(false, wm("m1", "bob", 1)))

	var firstNonce string
	gomock.InOrder(
		e.backend.EXPECT().SendMessage(gomock.Any(), convID, gomock.Any()).DoAndReturn(
			func(ctx context.Context, conversationID string, req protocol.SendMessageRequest) (*protocol.Message, error) {
				firstNonce = req.ClientID
				return nil, errors.New("503")
			}),
		e.backend.EXPECT().SendMessage(gomock.Any(), convID, gomock.Any()).DoAndReturn(
			func(ctx context.Context, conversationID string, req protocol.SendMessageRequest) (*protocol.Message, error) {
				assert.Equal(t, firstNonce, req.ClientID)
				return &protocol.Message{ID: "m2", ClientID: req.ClientID, ConversationID: conversationID, SenderID: "alice", Content: req.Content, CreatedAt: at(2)}, nil
			}),
	)

	failed, err := s.Send(context.Background(), "hello")
	require.Error(t, err)
	assert.Equal(t, model.Failed, failed.State)
	msgs := s.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, model.Failed, msgs[1].State)

	sent, err := s.Retry(context.Background(), failed.ClientID)
	require.NoError(t, err)
	assert.Equal(t, "m2", sent.ID)

	_, err = s.Retry(context.Background(), failed.ClientID)
	assert.ErrorIs(t, err, ErrNotFailed)
	_, err = s.Retry(context.Background(), "nope")
	assert.ErrorIs(t, err, store.ErrUnknown)
	assert.Len(t, s.Messages(), 2)
}

func TestSession_Reply(t *testing.T) {
	e := newEnv(t)
	s := e.open(t, page(false, wm("m1", "bob", 1)))

	_, err := s.Reply(context.Background(), "missing", "hi")
	assert.ErrorIs(t, err, store.ErrUnknown)

	e.backend.EXPECT().Reply(gomock.Any(), convID, "m1", gomock.Any()).DoAndReturn(
		func(ctx context.Context, conversationID, replyToID string, req protocol.SendMessageRequest) (*protocol.Message, error) {
			return &protocol.Message{ID: "m2", ClientID: req.ClientID, ConversationID: conversationID, SenderID: "alice", Content: req.Content, ReplyToID: replyToID, CreatedAt: at(2)}, nil
		})

	msg, err := s.Reply(context.Background(), "m1", "sure")
	require.NoError(t, err)
	assert.Equal(t, "m1", msg.ReplyToID)
}

// versioned answers reaction requests like the backend does.
type versioned struct {
	mu      sync.Mutex
	version int64
}

func (v *versioned) answer(ctx context.Context, conversationID, messageID string, req protocol.ReactionRequest) (*protocol.ReactionEvent, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.version++
	ev := &protocol.ReactionEvent{ConversationID: conversationID, MessageID: messageID, UserID: "alice", UserName: "alice", Version: v.version}
	if !req.Remove {
		ev.Emoji = req.Emoji
	}
	return ev, nil
}

func reactionOf(s *Session, messageID, userID string) string {
	for _, m := range s.Messages() {
		if m.ID != messageID {
			continue
		}
		for _, r := range m.Reactions {
			if r.UserID == userID {
				return r.Emoji
			}
		}
	}
	return ""
}

func TestSession_RapidReactionsSettleOnLastTap(t *testing.T) {
	e := newEnv(t)
	s := e.open(t, page(false, wm("m1", "bob", 1)))

	v := &versioned{}
	gomock.InOrder(
		e.backend.EXPECT().SetReaction(gomock.Any(), convID, "m1", protocol.ReactionRequest{Emoji: "❤"}).DoAndReturn(v.answer),
		e.backend.EXPECT().SetReaction(gomock.Any(), convID, "m1", protocol.ReactionRequest{Emoji: "👍"}).DoAndReturn(v.answer),
	)

	_, err := s.ToggleReaction("m1", "❤")
	require.NoError(t, err)
	_, err = s.ToggleReaction("m1", "👍")
	require.NoError(t, err)
	assert.Equal(t, "👍", reactionOf(s, "m1", "alice"))

	require.Eventually(t, func() bool { return !s.reactions.Pending("m1", "alice") }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "👍", reactionOf(s, "m1", "alice"))

	// a late broadcast of the first tap is older than what we hold
	e.push(t, protocol.EventReactionAdded, convID, protocol.ReactionEvent{ConversationID: convID, MessageID: "m1", UserID: "alice", Emoji: "❤", Version: 1})
	e.push(t, protocol.EventNewMessage, convID, wm("m2", "bob", 2))
	require.Eventually(t, hasID(s, "m2"), time.Second, 5*time.Millisecond)
	assert.Equal(t, "👍", reactionOf(s, "m1", "alice"))
}

func TestSession_FailedReactionRollsBack(t *testing.T) {
	e := newEnv(t)
	first := wm("m1", "bob", 1)
	first.Reactions = []protocol.Reaction{{UserID: "alice", Emoji: "😂", Version: 4}}
	s := e.open(t, page(false, first))

	e.backend.EXPECT().SetReaction(gomock.Any(), convID, "m1", protocol.ReactionRequest{Emoji: "❤"}).Return(nil, errors.New("500"))

	_, err := s.ToggleReaction("m1", "❤")
	require.NoError(t, err)

	require.Eventually(t, func() bool { return !s.reactions.Pending("m1", "alice") }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "😂", reactionOf(s, "m1", "alice"))
}

func TestSession_ReactionOnUnknownMessage(t *testing.T) {
	e := newEnv(t)
	s := e.open(t, page(false))

	_, err := s.ToggleReaction("m404", "❤")
	assert.ErrorIs(t, err, store.ErrUnknown)
}

func TestSession_RemoteReactions(t *testing.T) {
	e := newEnv(t)
	s := e.open(t, page(false, wm("m1", "bob", 1)))

	e.push(t, protocol.EventReactionAdded, convID, protocol.ReactionEvent{ConversationID: convID, MessageID: "m1", UserID: "bob", Emoji: "❤", Version: 1})
	require.Eventually(t, func() bool { return reactionOf(s, "m1", "bob") == "❤" }, time.Second, 5*time.Millisecond)

	e.push(t, protocol.EventReactionRemoved, convID, protocol.ReactionEvent{ConversationID: convID, MessageID: "m1", UserID: "bob", Version: 2})
	require.Eventually(t, func() bool { return reactionOf(s, "m1", "bob") == "" }, time.Second, 5*time.Millisecond)
}

func TestSession_RemoteTypingClearedByMessage(t *testing.T) {
	e := newEnv(t)
	s := e.open(t, page(false, wm("m1", "bob", 1)))
	bob := e.channel(t, "bob")
	bob.JoinRoom(convID)
	require.Eventually(t, func() bool { return e.hub.RoomSize(convID) == 2 }, time.Second, 5*time.Millisecond)

	transport.TypingStart.Publish(bob, protocol.TypingEvent{ConversationID: convID})
	require.Eventually(t, func() bool { return len(s.TypingUsers()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"bob"}, s.TypingUsers())

	e.push(t, protocol.EventNewMessage, convID, wm("m2", "bob", 2))
	require.Eventually(t, func() bool { return len(s.TypingUsers()) == 0 }, time.Second, 5*time.Millisecond)
}

func TestSession_DeletedMessageStaysDeleted(t *testing.T) {
	e := newEnv(t)
	s := e.open(t, page(false, wm("m2", "bob", 2), wm("m1", "bob", 1)))

	e.push(t, protocol.EventMessageDeleted, convID, protocol.MessageDeletedEvent{ConversationID: convID, MessageID: "m1"})
	e.push(t, protocol.EventNewMessage, convID, wm("m1", "bob", 1))
	e.push(t, protocol.EventNewMessage, convID, wm("m3", "bob", 3))
	require.Eventually(t, hasID(s, "m3"), time.Second, 5*time.Millisecond)

	assert.Equal(t, []string{"m2", "m3"}, ids(s.Messages()))
}

func TestSession_DeleteMessage(t *testing.T) {
	e := newEnv(t)
	s := e.open(t, page(false, wm("m2", "alice", 2), wm("m1", "bob", 1)))

	gomock.InOrder(
		e.backend.EXPECT().DeleteMessage(gomock.Any(), convID, "m1").Return(errors.New("403")),
		e.backend.EXPECT().DeleteMessage(gomock.Any(), convID, "m2").Return(nil),
	)

	assert.Error(t, s.DeleteMessage(context.Background(), "m1"))
	require.NoError(t, s.DeleteMessage(context.Background(), "m2"))
	assert.Equal(t, []string{"m1"}, ids(s.Messages()))
}

func TestSession_IgnoresOtherConversations(t *testing.T) {
	e := newEnv(t)
	s := e.open(t, page(false, wm("m1", "bob", 1)))

	other := wm("x1", "bob", 5)
	other.ConversationID = "conv-2"
	e.push(t, protocol.EventNewMessage, "conv-2", other)
	e.push(t, protocol.EventMessageDeleted, "conv-2", protocol.MessageDeletedEvent{ConversationID: "conv-2", MessageID: "m1"})
	e.push(t, protocol.EventNewMessage, convID, wm("m2", "bob", 2))
	require.Eventually(t, hasID(s, "m2"), time.Second, 5*time.Millisecond)

	assert.Equal(t, []string{"m1", "m2"}, ids(s.Messages()))
}

func TestSession_ConversationDeleted(t *testing.T) {
	e := newEnv(t)
	s := e.open(t, page(false))

	e.push(t, protocol.EventConversationDeleted, convID, protocol.ConversationDeletedEvent{ConversationID: convID})

	require.Eventually(t, s.Deleted, time.Second, 5*time.Millisecond)
}

func TestSession_DeleteConversation(t *testing.T) {
	e := newEnv(t)
	s := e.open(t, page(false))
	e.backend.EXPECT().DeleteConversation(gomock.Any(), convID).Return(nil)

	require.NoError(t, s.DeleteConversation(context.Background()))

	assert.True(t, s.Deleted())
	_, ok := e.list.Get(convID)
	assert.False(t, ok)
}

func TestSession_DeleteConversationFailureKeepsIt(t *testing.T) {
	e := newEnv(t)
	s := e.open(t, page(false))
	e.backend.EXPECT().DeleteConversation(gomock.Any(), convID).Return(errors.New("403"))

	require.Error(t, s.DeleteConversation(context.Background()))

	assert.False(t, s.Deleted())
	_, ok := e.list.Get(convID)
	assert.True(t, ok)
}

func TestSession_LoadOlderSeedsReactions(t *testing.T) {
	e := newEnv(t)
	s := e.open(t, page(true, wm("m2", "bob", 2)))

	older := wm("m1", "bob", 1)
	older.Reactions = []protocol.Reaction{{UserID: "bob", Emoji: "❤", Version: 1}}
	e.backend.EXPECT().FetchPage(gomock.Any(), convID, 2, 30).Return(&protocol.MessagePage{Messages: []protocol.Message{older}, Page: 2}, nil)

	added, err := s.LoadOlder(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"m1"}, ids(added))
	assert.Equal(t, "❤", reactionOf(s, "m1", "bob"))
	assert.False(t, s.HasMore())

	added, err = s.LoadOlder(context.Background())
	require.NoError(t, err)
	assert.Empty(t, added)
}

func TestSession_Search(t *testing.T) {
	e := newEnv(t)
	s := e.open(t, page(false))

	e.backend.EXPECT().Search(gomock.Any(), convID, "lunch", searchLimit).Return([]protocol.Message{wm("m7", "bob", 7)}, nil)

	found, err := s.Search(context.Background(), "lunch")
	require.NoError(t, err)
	assert.Equal(t, []string{"m7"}, ids(found))
}

func TestSession_RejoinsAndResyncsAfterReconnect(t *testing.T) {
	e := newEnv(t)
	gomock.InOrder(
		e.backend.EXPECT().FetchPage(gomock.Any(), convID, 1, 30).Return(page(false, wm("m1", "bob", 1)), nil),
		e.backend.EXPECT().FetchPage(gomock.Any(), convID, 1, 30).Return(page(false, wm("m2", "bob", 2), wm("m1", "bob", 1)), nil),
	)
	s := e.openNoExpect(t)

	e.alice.Disconnect()
	require.Eventually(t, func() bool { return e.hub.RoomSize(convID) == 0 }, time.Second, 5*time.Millisecond)

	require.NoError(t, e.alice.Connect(context.Background(), e.token(t, "alice")))
	require.Eventually(t, func() bool { return e.hub.RoomSize(convID) == 1 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, hasID(s, "m2"), time.Second, 5*time.Millisecond)
}

func TestSession_ResyncPicksUpReactionsOnLoadedMessages(t *testing.T) {
	e := newEnv(t)
	reacted := wm("m1", "bob", 1)
	reacted.Reactions = []protocol.Reaction{{UserID: "bob", UserName: "bob", Emoji: "❤", Version: 7}}
	gomock.InOrder(
		e.backend.EXPECT().FetchPage(gomock.Any(), convID, 1, 30).Return(page(false, wm("m1", "bob", 1)), nil),
		e.backend.EXPECT().FetchPage(gomock.Any(), convID, 1, 30).Return(page(false, wm("m2", "bob", 2), reacted), nil),
	)
	s := e.openNoExpect(t)
	assert.Empty(t, reactionOf(s, "m1", "bob"))

	e.alice.Disconnect()
	require.Eventually(t, func() bool { return e.hub.RoomSize(convID) == 0 }, time.Second, 5*time.Millisecond)
	require.NoError(t, e.alice.Connect(context.Background(), e.token(t, "alice")))

	require.Eventually(t, hasID(s, "m2"), time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return reactionOf(s, "m1", "bob") == "❤" }, time.Second, 5*time.Millisecond)
}

func TestSession_ArrivalsWhileOpenAreMarkedRead(t *testing.T) {
	e := newEnv(t)
	s := e.open(t, page(false, wm("m1", "bob", 1)))
	require.Equal(t, int32(1), e.markReads.Load())

	e.push(t, protocol.EventNewMessage, convID, wm("m2", "bob", 2))
	require.Eventually(t, func() bool { return e.markReads.Load() == 2 }, time.Second, 5*time.Millisecond)

	// neither a duplicate push nor an own message is a new arrival
	e.push(t, protocol.EventNewMessage, convID, wm("m2", "bob", 2))
	e.push(t, protocol.EventNewMessage, convID, wm("m3", "alice", 3))
	require.Eventually(t, hasID(s, "m3"), time.Second, 5*time.Millisecond)
	s.Close()

	assert.Equal(t, int32(2), e.markReads.Load())
}

func TestSession_BurstOfArrivalsIsMarkedRead(t *testing.T) {
	e := newEnv(t)
	s := e.open(t, page(false, wm("m1", "bob", 1)))

	e.push(t, protocol.EventNewMessage, convID, wm("m2", "bob", 2))
	e.push(t, protocol.EventNewMessage, convID, wm("m3", "bob", 3))
	require.Eventually(t, hasID(s, "m3"), time.Second, 5*time.Millisecond)
	s.Close()

	assert.Greater(t, e.markReads.Load(), int32(1))
	c, _ := e.list.Get(convID)
	assert.Equal(t, 0, c.UnreadCount)
}

func TestSession_CloseMarksPendingArrivalsRead(t *testing.T) {
	e := newEnv(t)
	s := e.open(t, page(false))

	// stop the background lane first so only Close can flush
	s.stopBackground()
	s.arrived(model.Message{ID: "m1", SenderID: "bob", State: model.Confirmed})
	before := e.markReads.Load()

	s.Close()

	assert.Equal(t, before+1, e.markReads.Load())
}

type typingLog struct {
	mu     sync.Mutex
	events []protocol.EventName
}

func (l *typingLog) add(name protocol.EventName) func(protocol.TypingEvent) {
	return func(protocol.TypingEvent) {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.events = append(l.events, name)
	}
}

func (l *typingLog) snapshot() []protocol.EventName {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]protocol.EventName(nil), l.events...)
}

func TestSession_CloseReleasesEverything(t *testing.T) {
	e := newEnv(t)
	s := e.open(t, page(false))
	bob := e.channel(t, "bob")
	bob.JoinRoom(convID)
	require.Eventually(t, func() bool { return e.hub.RoomSize(convID) == 2 }, time.Second, 5*time.Millisecond)

	var seen typingLog
	transport.TypingStart.Subscribe(bob, seen.add(protocol.EventTypingStart))
	transport.TypingStop.Subscribe(bob, seen.add(protocol.EventTypingStop))

	s.Input()
	require.Eventually(t, func() bool { return len(seen.snapshot()) == 1 }, time.Second, 5*time.Millisecond)

	s.Close()
	s.Close()

	require.Eventually(t, func() bool { return len(seen.snapshot()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []protocol.EventName{protocol.EventTypingStart, protocol.EventTypingStop}, seen.snapshot())
	require.Eventually(t, func() bool { return e.hub.RoomSize(convID) == 1 }, time.Second, 5*time.Millisecond)
	for _, ev := range []protocol.EventName{
		protocol.EventNewMessage, protocol.EventReactionAdded, protocol.EventReactionRemoved,
		protocol.EventTypingStart, protocol.EventTypingStop, protocol.EventMessageDeleted,
		protocol.EventConversationDeleted,
	} {
		assert.Zero(t, e.alice.HandlerCount(ev), ev)
	}
	assert.Empty(t, e.list.OpenID())

	_, err := s.Send(context.Background(), "late")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestSession_RepeatedOpenCloseDoesNotLeak(t *testing.T) {
	e := newEnv(t)
	e.backend.EXPECT().FetchPage(gomock.Any(), convID, 1, 30).Return(page(false), nil).Times(3)

	for i := 0; i < 3; i++ {
		s := e.openNoExpect(t)
		assert.Equal(t, 1, e.alice.HandlerCount(protocol.EventNewMessage))
		s.Close()
		assert.Zero(t, e.alice.HandlerCount(protocol.EventNewMessage))
	}
}
