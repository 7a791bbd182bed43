package server

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Cookie names
const (
	AuthCookie        = "auth_token"
	ChatSessionCookie = "chat_session"
	FlashCookie       = "flash"
)

// Flash categories, used as CSS classes on the page.
const (
	FlashSuccess = "success"
	FlashDanger  = "danger"
	FlashInfo    = "info"
)

// User-facing messages
const (
	MsgFieldsRequired     = "All fields are required."
	MsgUserExists         = "Username or email already exists!"
	MsgAccountCreated     = "Account created successfully! Please log in."
	MsgLoggedIn           = "Logged in successfully!"
	MsgInvalidCredentials = "Invalid username or password!"
	MsgLoggedOut          = "You have been logged out."
	MsgSignupFailed       = "Could not create your account, please try again."
	MsgLoginFailed        = "Could not log you in, please try again."
)

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

func (s *Server) cookie(name, value string, maxAge time.Duration) *http.Cookie {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.config.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	}
	if maxAge > 0 {
		c.MaxAge = int(maxAge.Seconds())
	}
	return c
}

func (s *Server) clearCookie(w http.ResponseWriter, name string) {
	c := s.cookie(name, "", 0)
	c.MaxAge = -1
	http.SetCookie(w, c)
}

func (s *Server) setFlash(w http.ResponseWriter, category, message string) {
	data, err := json.Marshal(Flash{Category: category, Message: message})
	if err != nil {
		return
	}
	http.SetCookie(w, s.cookie(FlashCookie, base64.RawURLEncoding.EncodeToString(data), time.Minute))
}

// popFlash returns the pending flash, if any, and clears it.
func (s *Server) popFlash(w http.ResponseWriter, r *http.Request) *Flash {
	c, err := r.Cookie(FlashCookie)
	if err != nil || c.Value == "" {
		return nil
	}
	s.clearCookie(w, FlashCookie)

	data, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return nil
	}
	var f Flash
	if err := json.Unmarshal(data, &f); err != nil || f.Message == "" {
		return nil
	}
	return &f
}

// chatSessionID returns the caller's chat session, issuing one if needed.
func (s *Server) chatSessionID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(ChatSessionCookie); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			return id.String()
		}
	}
	id := uuid.NewString()
	http.SetCookie(w, s.cookie(ChatSessionCookie, id, 0))
	return id
}

// existingChatSession returns the session from the cookie without issuing one.
func existingChatSession(r *http.Request) (string, bool) {
	c, err := r.Cookie(ChatSessionCookie)
	if err != nil {
		return "", false
	}
	id, err := uuid.Parse(c.Value)
	if err != nil {
		return "", false
	}
	return id.String(), true
}
