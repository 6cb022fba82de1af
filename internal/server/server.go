// Package server exposes the published feeds as read-only HTML pages.
package server

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"strings"

	"github.com/yuin/goldmark"

	"github.com/ohess/newsroom/internal/database"
	"github.com/ohess/newsroom/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

var md = goldmark.New()

const feedPageSize = 50

// Server is the HTTP server for browsing published feeds.
type Server struct {
	db      *database.DB
	locales []domain.Locale
	pages   map[string]*template.Template
	mux     *http.ServeMux
}

// New creates a new Server.
func New(db *database.DB, locales []domain.Locale) (*Server, error) {
	funcMap := template.FuncMap{
		"markdown": renderMarkdown,
	}

	// Parse base template first
	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	// For each page template, clone the base and parse the page into the clone.
	// This gives each page its own {{define "content"}} and {{define "title"}}.
	pageNames := []string{"index.html", "feed.html"}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning base for %s: %w", name, err)
		}
		if _, err := clone.ParseFS(templateFS, "templates/"+name); err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = clone
	}

	s := &Server{db: db, locales: locales, pages: pages, mux: http.NewServeMux()}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/feed/", s.handleFeed)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	stats, err := s.db.GetStats()
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	type feedEntry struct {
		Key      string
		Country  string
		Language string
		Articles int
	}
	feeds := make([]feedEntry, 0, len(s.locales))
	for _, locale := range s.locales {
		count, err := s.db.CountArticles(locale)
		if err != nil {
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		feeds = append(feeds, feedEntry{
			Key:      locale.Key(),
			Country:  strings.ToUpper(locale.Country),
			Language: locale.Language,
			Articles: count,
		})
	}

	s.render(w, "index.html", map[string]any{
		"Feeds": feeds,
		"Stats": stats,
	})
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(r.URL.Path, "/feed/")
	if key == "" {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	locale, ok := s.localeByKey(key)
	if !ok {
		http.NotFound(w, r)
		return
	}

	articles, err := s.db.RecentArticles(locale, feedPageSize)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	s.render(w, "feed.html", map[string]any{
		"Key":      key,
		"Country":  strings.ToUpper(locale.Country),
		"Articles": articles,
	})
}

func (s *Server) localeByKey(key string) (domain.Locale, bool) {
	for _, locale := range s.locales {
		if locale.Key() == key {
			return locale, true
		}
	}
	return domain.Locale{}, false
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	tmpl, ok := s.pages[name]
	if !ok {
		log.Printf("Template %s not found", name)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "base.html", data); err != nil {
		log.Printf("Error rendering template %s: %v", name, err)
	}
}

func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String()) //nolint: gosec
}

// Serve starts the HTTP server on the given port.
func Serve(db *database.DB, locales []domain.Locale, port int) error {
	srv, err := New(db, locales)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("127.0.0.1:%d", port)
	log.Printf("Server listening on http://%s", addr)
	return http.ListenAndServe(addr, srv.Handler())
}
