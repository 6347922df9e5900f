package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"gosocialchat/internal/chat/handler/mocks"
	"gosocialchat/internal/chat/service"
	"gosocialchat/internal/common"
	"gosocialchat/internal/protocol"
)

var alice = service.Identity{UserID: "user-1", Handle: "alice"}

func setupRouter(t *testing.T, authenticated bool) (*mux.Router, *mocks.MockChatService) {
	ctrl := gomock.NewController(t)
	mockService := mocks.NewMockChatService(ctrl)

	router := mux.NewRouter()
	api := router.PathPrefix("/api/v1").Subrouter()
	if authenticated {
		api.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				next.ServeHTTP(w, r.WithContext(common.WithIdentity(r.Context(), alice.UserID, alice.Handle)))
			})
		})
	}
	NewChatHandler(mockService).Routes(api)
	return router, mockService
}

func do(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestChatHandler_SendMessage(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		mockSetup      func(m *mocks.MockChatService)
		expectedStatus int
	}{
		{
			name: "successful_message_send",
			body: `{"content":"Hello World!","clientId":"c-1"}`,
			mockSetup: func(m *mocks.MockChatService) {
				m.EXPECT().
					SendMessage(gomock.Any(), alice, "conv-123", "", protocol.SendMessageRequest{Content: "Hello World!", ClientID: "c-1"}).
					Return(&protocol.Message{ID: "m-1", ClientID: "c-1", ConversationID: "conv-123", SenderID: "user-1", Content: "Hello World!", CreatedAt: time.Now().UTC()}, nil).
					Times(1)
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "malformed_body",
			body:           `{"content":`,
			mockSetup:      func(m *mocks.MockChatService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "validation_error",
			body: `{"content":""}`,
			mockSetup: func(m *mocks.MockChatService) {
				m.EXPECT().SendMessage(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					Return(nil, fmt.Errorf("%w: message content cannot be empty", service.ErrInvalidArgument))
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "not_a_participant",
			body: `{"content":"hi"}`,
			mockSetup: func(m *mocks.MockChatService) {
				m.EXPECT().SendMessage(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					Return(nil, fmt.Errorf("load: %w", service.ErrForbidden))
			},
			expectedStatus: http.StatusForbidden,
		},
		{
			name: "service_failure",
			body: `{"content":"hi"}`,
			mockSetup: func(m *mocks.MockChatService) {
				m.EXPECT().SendMessage(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					Return(nil, errors.New("database connection failed"))
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, mockService := setupRouter(t, true)
			tt.mockSetup(mockService)

			rec := do(router, http.MethodPost, "/api/v1/conversations/conv-123/messages", tt.body)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.expectedStatus == http.StatusCreated {
				var msg protocol.Message
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msg))
				assert.Equal(t, "m-1", msg.ID)
				assert.Equal(t, "c-1", msg.ClientID)
			}
			if tt.expectedStatus == http.StatusInternalServerError {
				assert.NotContains(t, rec.Body.String(), "database")
			}
		})
	}
}

func TestChatHandler_ReplyToMessage(t *testing.T) {
	router, mockService := setupRouter(t, true)
	mockService.EXPECT().
		SendMessage(gomock.Any(), alice, "conv-123", "m-parent", protocol.SendMessageRequest{Content: "agreed"}).
		Return(&protocol.Message{ID: "m-2", ReplyToID: "m-parent"}, nil)

	rec := do(router, http.MethodPost, "/api/v1/conversations/conv-123/messages/m-parent/replies", `{"content":"agreed"}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"replyToId":"m-parent"`)
}

func TestChatHandler_GetMessages(t *testing.T) {
	tests := []struct {
		name           string
		query          string
		mockSetup      func(m *mocks.MockChatService)
		expectedStatus int
	}{
		{
			name:  "explicit page and limit",
			query: "?page=2&limit=20",
			mockSetup: func(m *mocks.MockChatService) {
				m.EXPECT().GetMessagePage(gomock.Any(), "user-1", "conv-123", 2, 20).
					Return(&protocol.MessagePage{Messages: []protocol.Message{{ID: "m1"}}, HasMore: true, Page: 2}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:  "defaults",
			query: "",
			mockSetup: func(m *mocks.MockChatService) {
				m.EXPECT().GetMessagePage(gomock.Any(), "user-1", "conv-123", 1, 0).
					Return(&protocol.MessagePage{Page: 1}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "bad page",
			query:          "?page=two",
			mockSetup:      func(m *mocks.MockChatService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:  "unknown conversation",
			query: "",
			mockSetup: func(m *mocks.MockChatService) {
				m.EXPECT().GetMessagePage(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					Return(nil, fmt.Errorf("load: %w", service.ErrNotFound))
			},
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, mockService := setupRouter(t, true)
			tt.mockSetup(mockService)

			rec := do(router, http.MethodGet, "/api/v1/conversations/conv-123/messages"+tt.query, "")

			assert.Equal(t, tt.expectedStatus, rec.Code)
		})
	}
}

func TestChatHandler_PageResponseShape(t *testing.T) {
	router, mockService := setupRouter(t, true)
	mockService.EXPECT().GetMessagePage(gomock.Any(), "user-1", "conv-123", 1, 0).
		Return(&protocol.MessagePage{Messages: []protocol.Message{{ID: "m1"}}, HasMore: true, Page: 1}, nil)

	rec := do(router, http.MethodGet, "/api/v1/conversations/conv-123/messages", "")

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["hasMore"])
	assert.Equal(t, float64(1), body["page"])
	assert.Len(t, body["messages"], 1)
}

func TestChatHandler_SetReaction(t *testing.T) {
	router, mockService := setupRouter(t, true)
	mockService.EXPECT().
		SetReaction(gomock.Any(), alice, "conv-123", "m1", protocol.ReactionRequest{Emoji: "👍"}).
		Return(&protocol.ReactionEvent{ConversationID: "conv-123", MessageID: "m1", UserID: "user-1", Emoji: "👍", Version: 3}, nil)

	rec := do(router, http.MethodPost, "/api/v1/conversations/conv-123/messages/m1/reactions", `{"emoji":"👍"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var event protocol.ReactionEvent
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &event))
	assert.Equal(t, int64(3), event.Version)
}

func TestChatHandler_NoContentRoutes(t *testing.T) {
	tests := []struct {
		name      string
		method    string
		path      string
		mockSetup func(m *mocks.MockChatService)
	}{
		{
			name:   "delete message",
			method: http.MethodDelete,
			path:   "/api/v1/conversations/conv-123/messages/m1",
			mockSetup: func(m *mocks.MockChatService) {
				m.EXPECT().DeleteMessage(gomock.Any(), "user-1", "conv-123", "m1").Return(nil)
			},
		},
		{
			name:   "delete conversation",
			method: http.MethodDelete,
			path:   "/api/v1/conversations/conv-123",
			mockSetup: func(m *mocks.MockChatService) {
				m.EXPECT().DeleteConversation(gomock.Any(), "user-1", "conv-123").Return(nil)
			},
		},
		{
			name:   "mark read",
			method: http.MethodPost,
			path:   "/api/v1/conversations/conv-123/read",
			mockSetup: func(m *mocks.MockChatService) {
				m.EXPECT().MarkRead(gomock.Any(), "user-1", "conv-123").Return(nil)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, mockService := setupRouter(t, true)
			tt.mockSetup(mockService)

			rec := do(router, tt.method, tt.path, "")

			assert.Equal(t, http.StatusNoContent, rec.Code)
		})
	}
}

func TestChatHandler_Conversations(t *testing.T) {
	router, mockService := setupRouter(t, true)
	mockService.EXPECT().
		CreateConversation(gomock.Any(), alice, protocol.CreateConversationRequest{
			Type:         "direct",
			Participants: []protocol.Participant{{UserID: "user-2"}},
		}).
		Return(&protocol.Conversation{ID: "conv-new", Type: "direct"}, nil)
	mockService.EXPECT().ListConversations(gomock.Any(), "user-1").
		Return([]protocol.Conversation{{ID: "conv-new", UnreadCount: 2}}, nil)
	mockService.EXPECT().GetConversation(gomock.Any(), "user-1", "conv-new").
		Return(&protocol.Conversation{ID: "conv-new"}, nil)

	rec := do(router, http.MethodPost, "/api/v1/conversations", `{"type":"direct","participants":[{"userId":"user-2"}]}`)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = do(router, http.MethodGet, "/api/v1/conversations", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var convs []protocol.Conversation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &convs))
	require.Len(t, convs, 1)
	assert.Equal(t, 2, convs[0].UnreadCount)

	rec = do(router, http.MethodGet, "/api/v1/conversations/conv-new", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestChatHandler_SearchMessages(t *testing.T) {
	router, mockService := setupRouter(t, true)
	mockService.EXPECT().SearchMessages(gomock.Any(), "user-1", "conv-123", "lunch plans", 5).
		Return([]protocol.Message{{ID: "m9", Content: "lunch plans?"}}, nil)

	rec := do(router, http.MethodGet, "/api/v1/conversations/conv-123/search?q=lunch+plans&limit=5", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var result protocol.SearchResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Len(t, result.Messages, 1)
	assert.Equal(t, "m9", result.Messages[0].ID)
}

func TestChatHandler_RequiresIdentity(t *testing.T) {
	router, _ := setupRouter(t, false)

	rec := do(router, http.MethodGet, "/api/v1/conversations", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(router, http.MethodGet, "/api/v1/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
