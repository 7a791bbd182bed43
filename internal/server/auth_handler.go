package server

import (
	"errors"
	"net/http"

	"github.com/jonathan/taskkit/internal/server/middleware"
	"go.uber.org/zap"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.chatSessionID(w, r)
	s.render(w, r, "index", "Chat")
}

func (s *Server) handleSignupPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "signup", "Sign up")
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "login", "Log in")
}

// handleSignup creates an account from the posted form.
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.setFlash(w, FlashDanger, MsgFieldsRequired)
		http.Redirect(w, r, "/signup", http.StatusSeeOther)
		return
	}

	form := SignupForm{
		Username: r.PostFormValue("username"),
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
	}

	user, err := s.users.Register(r.Context(), form)
	if err != nil {
		var (
			exists     *ErrUserExists
			validation *ErrValidation
		)
		switch {
		case errors.As(err, &validation):
			s.setFlash(w, FlashDanger, validation.Message)
		case errors.As(err, &exists):
			s.setFlash(w, FlashDanger, MsgUserExists)
		default:
			s.setFlash(w, FlashDanger, MsgSignupFailed)
		}
		s.logAuthFailure("Signup failed", err)
		http.Redirect(w, r, "/signup", http.StatusSeeOther)
		return
	}

	s.logger.Info("User registered", zap.String("user_id", user.ID.String()), zap.String("username", user.Username))
	s.setFlash(w, FlashSuccess, MsgAccountCreated)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// handleLogin checks credentials and issues the auth cookie.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	form := LoginForm{
		Username: r.PostFormValue("username"),
		Password: r.PostFormValue("password"),
	}

	user, err := s.users.Login(r.Context(), form)
	if err != nil {
		if HTTPStatus(err) == http.StatusUnauthorized {
			s.setFlash(w, FlashDanger, MsgInvalidCredentials)
		} else {
			s.setFlash(w, FlashDanger, MsgLoginFailed)
		}
		s.logAuthFailure("Login failed", err)
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	token, err := s.jwt.GenerateToken(user.ID, user.Username)
	if err != nil {
		s.logger.Error("Failed to generate token", zap.Error(err))
		s.setFlash(w, FlashDanger, MsgLoginFailed)
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	http.SetCookie(w, s.cookie(AuthCookie, token, s.jwt.TTL()))
	if id, ok := existingChatSession(r); ok {
		s.chat.History().Reset(id)
	}

	s.logger.Info("User logged in", zap.String("user_id", user.ID.String()))
	s.setFlash(w, FlashSuccess, MsgLoggedIn)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// logAuthFailure logs client mistakes at info level and server faults as errors.
func (s *Server) logAuthFailure(msg string, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(msg, zap.Error(err))
		return
	}
	s.logger.Info(msg, zap.Int("status", status), zap.Error(err))
}

// MeResponse is returned by GET /me.
type MeResponse struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

// handleMe reports the logged-in user. Routed behind middleware.RequireAuth.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.CurrentUser(r)
	s.jsonResponse(w, http.StatusOK, MeResponse{
		UserID:   identity.GetUserID().String(),
		Username: identity.GetUsername(),
	})
}

// handleLogout drops the auth cookie and the chat session.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if id, ok := existingChatSession(r); ok {
		s.chat.History().Reset(id)
	}
	s.clearCookie(w, AuthCookie)
	s.clearCookie(w, ChatSessionCookie)

	s.setFlash(w, FlashInfo, MsgLoggedOut)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
