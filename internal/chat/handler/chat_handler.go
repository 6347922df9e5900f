// Package handler exposes the chat service over REST.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"gosocialchat/internal/chat/service"
	"gosocialchat/internal/common"
	"gosocialchat/internal/logging"
	"gosocialchat/internal/protocol"
)

const maxBodyBytes = 64 << 10

type ChatHandler struct {
	chatService service.ChatService
}

func NewChatHandler(chatService service.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// Routes registers the chat endpoints on r, which is expected to be mounted
// at /api/v1 behind the auth middleware.
func (h *ChatHandler) Routes(r *mux.Router) {
	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)

	conversations := r.PathPrefix("/conversations").Subrouter()
	conversations.HandleFunc("", h.CreateConversation).Methods(http.MethodPost)
	conversations.HandleFunc("", h.ListConversations).Methods(http.MethodGet)
	conversations.HandleFunc("/{id}", h.GetConversation).Methods(http.MethodGet)
	conversations.HandleFunc("/{id}", h.DeleteConversation).Methods(http.MethodDelete)
	conversations.HandleFunc("/{id}/messages", h.GetMessages).Methods(http.MethodGet)
	conversations.HandleFunc("/{id}/messages", h.SendMessage).Methods(http.MethodPost)
	conversations.HandleFunc("/{id}/messages/{mid}/replies", h.ReplyToMessage).Methods(http.MethodPost)
	conversations.HandleFunc("/{id}/messages/{mid}/reactions", h.SetReaction).Methods(http.MethodPost)
	conversations.HandleFunc("/{id}/messages/{mid}", h.DeleteMessage).Methods(http.MethodDelete)
	conversations.HandleFunc("/{id}/read", h.MarkRead).Methods(http.MethodPost)
	conversations.HandleFunc("/{id}/search", h.SearchMessages).Methods(http.MethodGet)
}

func (h *ChatHandler) Health(w http.ResponseWriter, r *http.Request) {
	common.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "gosocial-chat"})
}

func (h *ChatHandler) CreateConversation(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.identity(w, r)
	if !ok {
		return
	}
	var req protocol.CreateConversationRequest
	if !h.decode(w, r, &req) {
		return
	}

	conv, err := h.chatService.CreateConversation(r.Context(), caller, req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	common.WriteJSON(w, http.StatusCreated, conv)
}

func (h *ChatHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.identity(w, r)
	if !ok {
		return
	}
	convs, err := h.chatService.ListConversations(r.Context(), caller.UserID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, convs)
}

func (h *ChatHandler) GetConversation(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.identity(w, r)
	if !ok {
		return
	}
	conv, err := h.chatService.GetConversation(r.Context(), caller.UserID, mux.Vars(r)["id"])
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, conv)
}

func (h *ChatHandler) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.identity(w, r)
	if !ok {
		return
	}
	if err := h.chatService.DeleteConversation(r.Context(), caller.UserID, mux.Vars(r)["id"]); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetMessages serves ?page=&limit= pages, newest first.
func (h *ChatHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.identity(w, r)
	if !ok {
		return
	}
	page, err := queryInt(r, "page", 1)
	if err != nil {
		common.WriteError(w, http.StatusBadRequest, "page must be a number")
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		common.WriteError(w, http.StatusBadRequest, "limit must be a number")
		return
	}

	result, err := h.chatService.GetMessagePage(r.Context(), caller.UserID, mux.Vars(r)["id"], page, limit)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, result)
}

func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	h.send(w, r, "")
}

func (h *ChatHandler) ReplyToMessage(w http.ResponseWriter, r *http.Request) {
	h.send(w, r, mux.Vars(r)["mid"])
}

func (h *ChatHandler) send(w http.ResponseWriter, r *http.Request, replyToID string) {
	caller, ok := h.identity(w, r)
	if !ok {
		return
	}
	var req protocol.SendMessageRequest
	if !h.decode(w, r, &req) {
		return
	}

	msg, err := h.chatService.SendMessage(r.Context(), caller, mux.Vars(r)["id"], replyToID, req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	common.WriteJSON(w, http.StatusCreated, msg)
}

func (h *ChatHandler) SetReaction(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.identity(w, r)
	if !ok {
		return
	}
	var req protocol.ReactionRequest
	if !h.decode(w, r, &req) {
		return
	}

	vars := mux.Vars(r)
	event, err := h.chatService.SetReaction(r.Context(), caller, vars["id"], vars["mid"], req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, event)
}

func (h *ChatHandler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.identity(w, r)
	if !ok {
		return
	}
	vars := mux.Vars(r)
	if err := h.chatService.DeleteMessage(r.Context(), caller.UserID, vars["id"], vars["mid"]); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ChatHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.identity(w, r)
	if !ok {
		return
	}
	if err := h.chatService.MarkRead(r.Context(), caller.UserID, mux.Vars(r)["id"]); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ChatHandler) SearchMessages(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.identity(w, r)
	if !ok {
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		common.WriteError(w, http.StatusBadRequest, "limit must be a number")
		return
	}

	messages, err := h.chatService.SearchMessages(r.Context(), caller.UserID, mux.Vars(r)["id"], r.URL.Query().Get("q"), limit)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, protocol.SearchResult{Messages: messages})
}

func (h *ChatHandler) identity(w http.ResponseWriter, r *http.Request) (service.Identity, bool) {
	userID, ok := common.UserIDFromContext(r.Context())
	if !ok {
		common.WriteError(w, http.StatusUnauthorized, "authorization required")
		return service.Identity{}, false
	}
	return service.Identity{UserID: userID, Handle: common.HandleFromContext(r.Context())}, true
}

func (h *ChatHandler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		common.WriteError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func (h *ChatHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidArgument):
		common.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrForbidden):
		common.WriteError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrNotFound):
		common.WriteError(w, http.StatusNotFound, err.Error())
	default:
		logging.FromContext(r.Context()).Error("request failed",
			"component", "chat-handler", "method", r.Method, "path", r.URL.Path, "error", err)
		common.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
