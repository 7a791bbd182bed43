package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/jonathan/taskkit/internal/chat"
	"go.uber.org/zap"
)

// maxChatBody bounds the JSON accepted by POST /chat.
const maxChatBody = 64 << 10

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse is returned by POST /chat.
type ChatResponse struct {
	Reply      string `json:"reply"`
	HistoryLen int    `json:"history_len,omitempty"`
}

// Reply texts for failed chat requests
const (
	ReplyNoInput      = "No input provided"
	ReplyAPIError     = "API error: "
	ReplyUnknownError = "Something went wrong, please try again..."
)

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	// Missing or malformed JSON reads as an empty message.
	var req ChatRequest
	body, err := io.ReadAll(io.LimitReader(r.Body, maxChatBody))
	if err == nil {
		_ = json.Unmarshal(body, &req)
	}

	sessionID := s.chatSessionID(w, r)
	reply, n, err := s.chat.Reply(r.Context(), sessionID, req.Message)
	if err != nil {
		status := HTTPStatus(err)
		var upstream *chat.UpstreamError
		switch {
		case errors.Is(err, chat.ErrEmptyMessage):
			s.jsonResponse(w, status, ChatResponse{Reply: ReplyNoInput})
		case errors.As(err, &upstream):
			s.jsonResponse(w, status, ChatResponse{Reply: ReplyAPIError + upstream.Cause.Error()})
		default:
			s.logger.Error("Chat failed", zap.Error(err))
			s.jsonResponse(w, status, ChatResponse{Reply: ReplyUnknownError})
		}
		return
	}

	s.jsonResponse(w, http.StatusOK, ChatResponse{Reply: reply, HistoryLen: n})
}
