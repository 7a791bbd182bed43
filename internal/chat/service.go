// Package chat holds conversation state and turns user messages into model replies.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jonathan/taskkit/internal/llm"
	"github.com/jonathan/taskkit/internal/prompts"
	"go.uber.org/zap"
)

var (
	// SystemPrompt shapes every reply.
	SystemPrompt = prompts.MustGet("chat.json", "system")
	// FallbackReply is sent when the model returns no text.
	FallbackReply = prompts.MustGet("chat.json", "fallback-reply")
)

var (
	// ErrEmptyMessage is returned for blank input.
	ErrEmptyMessage = errors.New("no input provided")
	// ErrUpstream matches any *UpstreamError.
	ErrUpstream = errors.New("upstream model error")
)

// UpstreamError wraps a failure from the model provider.
type UpstreamError struct {
	Cause error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream model error: %v", e.Cause)
}

func (e *UpstreamError) Unwrap() error {
	return e.Cause
}

// Is reports ErrUpstream as a match.
func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstream
}

// Service answers chat messages with per-session memory.
type Service struct {
	client  llm.ChatClient
	history *HistoryStore
	logger  *zap.Logger
}

// NewService wires a model client to a history store.
func NewService(client llm.ChatClient, history *HistoryStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{client: client, history: history, logger: logger}
}

// History exposes the store for session resets.
func (s *Service) History() *HistoryStore {
	return s.history
}

// Reply sends message with the session's history and records the exchange.
// It returns the reply and the number of turns now held for the session.
func (s *Service) Reply(ctx context.Context, sessionID, message string) (string, int, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", 0, ErrEmptyMessage
	}

	past := s.history.Get(sessionID)
	reply, err := s.client.Chat(ctx, SystemPrompt, past, message)
	if err != nil {
		s.logger.Error("Chat model call failed", zap.String("session", sessionID), zap.Error(err))
		return "", len(past), &UpstreamError{Cause: err}
	}

	reply = strings.TrimSpace(reply)
	if reply == "" {
		s.logger.Warn("Chat model returned an empty reply", zap.String("session", sessionID))
		reply = FallbackReply
	}

	n := s.history.Append(sessionID, llm.Turn{User: message, Bot: reply})
	s.logger.Debug("Chat reply", zap.String("session", sessionID), zap.Int("turns", n))
	return reply, n, nil
}
