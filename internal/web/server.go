// Package web serves a read-only node-link view of the task tree.
package web

import (
	"embed"
	"encoding/json"
	"html/template"
	"net/http"

	"github.com/metalagman/neuroplan/internal/task"
)

// Source supplies the task snapshot the graph is derived from.
// *task.Manager satisfies it.
type Source interface {
	Snapshot() []task.Task
}

// Server provides the graph view handlers.
type Server struct {
	source Source
}

// NewServer creates a new graph server.
func NewServer(source Source) (*Server, error) {
	return &Server{source: source}, nil
}

//go:embed templates/*.html
var templatesFS embed.FS

// Routes returns the router for the graph view.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /", s.handleIndex)
	mux.HandleFunc("GET /graph.json", s.handleGraph)
	return mux
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	tmpl, err := template.ParseFS(templatesFS, "templates/index.html")
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := tmpl.Execute(w, nil); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	graph := BuildGraph(s.source.Snapshot(), r.URL.Query().Get("central"))
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(graph); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
