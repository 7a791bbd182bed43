package server

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/jonathan/taskkit/internal/server/middleware"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

// pageData is passed to every page template.
type pageData struct {
	Title    string
	Username string
	Flash    *Flash
}

// loadTemplates parses one template set per page, each sharing the base layout.
func loadTemplates() (map[string]*template.Template, error) {
	pages := map[string]string{
		"index":  "templates/index.html",
		"signup": "templates/signup.html",
		"login":  "templates/login.html",
	}
	out := make(map[string]*template.Template, len(pages))
	for name, file := range pages {
		t, err := template.ParseFS(templateFS, "templates/base.html", file)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		out[name] = t
	}
	return out, nil
}

// render writes a page, consuming any pending flash message.
func (s *Server) render(w http.ResponseWriter, r *http.Request, page, title string) {
	t, ok := s.templates[page]
	if !ok {
		http.Error(w, "page not found", http.StatusNotFound)
		return
	}

	data := pageData{Title: title, Flash: s.popFlash(w, r)}
	if identity, ok := middleware.CurrentUser(r); ok {
		data.Username = identity.GetUsername()
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "base", data); err != nil {
		s.logger.Error("Failed to render page", zap.String("page", page), zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}
