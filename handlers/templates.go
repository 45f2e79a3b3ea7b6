package handlers

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/Dosada05/league-system/middleware"
	"github.com/Dosada05/league-system/models"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageNames = []string{"home", "register", "login", "dashboard", "tournament"}

// PageData is what every page template receives.
type PageData struct {
	Title    string
	Identity *middleware.Identity
	Error    string
	Message  string

	Tournaments    []models.Tournament
	Tournament     *models.Tournament
	IsMember       bool
	IsOwner        bool
	UploadsEnabled bool
}

type Renderer struct {
	pages map[string]*template.Template
}

func NewRenderer() (*Renderer, error) {
	funcs := template.FuncMap{
		"inc": func(i int) int { return i + 1 },
	}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		tmpl, err := template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		pages[name] = tmpl
	}
	return &Renderer{pages: pages}, nil
}

// render fills the common fields from the request and writes the page.
func (rn *Renderer) render(w http.ResponseWriter, r *http.Request, page string, data PageData) error {
	tmpl, ok := rn.pages[page]
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}
	if id, ok := middleware.IdentityFromContext(r.Context()); ok {
		data.Identity = &id
	}
	q := r.URL.Query()
	data.Error = q.Get("error")
	data.Message = q.Get("message")

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("failed to render %s: %w", page, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, err := buf.WriteTo(w)
	return err
}

func (h responder) renderPage(w http.ResponseWriter, r *http.Request, pages *Renderer, page string, data PageData) {
	if err := pages.render(w, r, page, data); err != nil {
		h.logger.ErrorContext(r.Context(), "render failed", slog.String("page", page), slog.Any("error", err))
		http.Error(w, genericErrorMessage, http.StatusInternalServerError)
	}
}
