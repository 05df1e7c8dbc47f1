package controlplane

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fentz26/nextask/internal/models"
	"github.com/fentz26/nextask/internal/selector"
	"github.com/fentz26/nextask/internal/store"
	"github.com/fentz26/nextask/internal/taskfile"
	"github.com/sirupsen/logrus"
)

// Version is reported by /health. Overridden at build time.
var Version = "dev"

// maxImportBytes bounds the body of an import request.
const maxImportBytes = 8 << 20

// Pinger reports whether the backing database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server provides the HTTP API for nextask.
type Server struct {
	service *Service
	db      Pinger
	addr    string
	server  *http.Server
}

// NewServer creates a new HTTP server.
func NewServer(service *Service, db Pinger, addr string) *Server {
	return &Server{
		service: service,
		db:      db,
		addr:    addr,
	}
}

// Handler returns the routed API with request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.handleHealth)

	// Selection endpoints
	mux.HandleFunc("/next", s.handleNext)
	mux.HandleFunc("/queue", s.handleQueue)

	// Task endpoints
	mux.HandleFunc("/tasks", s.handleTasks)
	mux.HandleFunc("/tasks/", s.handleTaskByRef)

	// Tag endpoints
	mux.HandleFunc("/tags", s.handleTags)
	mux.HandleFunc("/tags/", s.handleTagAction)

	mux.HandleFunc("/decisions", s.handleDecisions)

	return s.logRequests(mux)
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	s.service.log.WithField("addr", s.addr).Info("starting nextask daemon")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		entry := s.service.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start).String(),
		})
		if rec.status >= http.StatusInternalServerError {
			entry.Warn("request failed")
			return
		}
		entry.Debug("request")
	})
}

// --- Health ---

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	OK      bool   `json:"ok"`
	DB      string `json:"db"`
	Version string `json:"version"`
	Time    string `json:"time"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resp := HealthResponse{
		OK:      true,
		DB:      "ok",
		Version: Version,
		Time:    time.Now().UTC().Format(time.RFC3339),
	}
	status := http.StatusOK

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.db.Ping(ctx); err != nil {
		resp.OK = false
		resp.DB = "error: " + err.Error()
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, resp)
}

// --- Selection Handlers ---

// handleNext handles GET /next?tag=&skip=
func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	skip, err := selector.ParseSkip(q.Get("skip"))
	if err != nil {
		writeError(w, err)
		return
	}

	out, err := s.service.NextTask(r.Context(), q.Get("tag"), skip)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// handleQueue handles GET /queue?tag=
func (s *Server) handleQueue(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	seq, err := s.service.Queue(r.Context(), r.URL.Query().Get("tag"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, seq.Entries())
}

// --- Task Handlers ---

// handleTasks handles POST /tasks and GET /tasks
func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.createTask(w, r)
	case http.MethodGet:
		s.listTasks(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleTaskByRef handles /tasks/{ref}/*
func (s *Server) handleTaskByRef(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/tasks/")
	parts := strings.Split(path, "/")

	if len(parts) == 0 || parts[0] == "" {
		http.Error(w, "task id required", http.StatusBadRequest)
		return
	}

	ref := parts[0]
	action := ""
	if len(parts) > 1 {
		action = parts[1]
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		s.getTask(w, r, ref)
	case action == "" && r.Method == http.MethodDelete:
		s.deleteTask(w, r, ref)
	case action == "status" && r.Method == http.MethodPost:
		s.setStatus(w, r, ref)
	case action == "subtasks" && r.Method == http.MethodPost:
		s.addSubtask(w, r, ref)
	case action == "dependencies" && r.Method == http.MethodPost:
		s.addDependency(w, r, ref)
	case action == "dependencies" && r.Method == http.MethodDelete:
		s.removeDependency(w, r, ref)
	default:
		writeError(w, fmt.Errorf("%s %s: %w", r.Method, r.URL.Path, ErrNotFound))
	}
}

type createTaskRequest struct {
	Tag          string   `json:"tag"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Priority     string   `json:"priority"`
	Dependencies []string `json:"dependencies"`
}

func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if !decodeBody(w, r, &req) {
		return
	}

	task, err := s.service.CreateTask(r.Context(), store.NewTask{
		Tag:          req.Tag,
		Title:        req.Title,
		Description:  req.Description,
		Priority:     models.Priority(req.Priority),
		Dependencies: req.Dependencies,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tasks, err := s.service.ListTasks(r.Context(), q.Get("tag"), q.Get("status"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) getTask(w http.ResponseWriter, r *http.Request, id string) {
	task, err := s.service.GetTask(r.Context(), r.URL.Query().Get("tag"), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) deleteTask(w http.ResponseWriter, r *http.Request, ref string) {
	if err := s.service.DeleteTask(r.Context(), r.URL.Query().Get("tag"), ref); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "ref": ref})
}

type statusRequest struct {
	Status string `json:"status"`
}

func (s *Server) setStatus(w http.ResponseWriter, r *http.Request, ref string) {
	var req statusRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.service.SetStatus(r.Context(), r.URL.Query().Get("tag"), ref, req.Status); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"ref": ref, "status": strings.ToLower(strings.TrimSpace(req.Status))})
}

type subtaskRequest struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Priority     string   `json:"priority"`
	Dependencies []string `json:"dependencies"`
}

func (s *Server) addSubtask(w http.ResponseWriter, r *http.Request, parentID string) {
	var req subtaskRequest
	if !decodeBody(w, r, &req) {
		return
	}

	st, err := s.service.AddSubtask(r.Context(), r.URL.Query().Get("tag"), parentID, store.NewSubtask{
		Title:        req.Title,
		Description:  req.Description,
		Priority:     models.Priority(req.Priority),
		Dependencies: req.Dependencies,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

type dependencyRequest struct {
	DependsOn string `json:"depends_on"`
}

func (s *Server) addDependency(w http.ResponseWriter, r *http.Request, ref string) {
	var req dependencyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.service.AddDependency(r.Context(), r.URL.Query().Get("tag"), ref, req.DependsOn); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"ref": ref, "depends_on": req.DependsOn})
}

func (s *Server) removeDependency(w http.ResponseWriter, r *http.Request, ref string) {
	dep := r.URL.Query().Get("depends_on")
	if dep == "" {
		writeError(w, fmt.Errorf("%w: depends_on query parameter is required", ErrInvalidRequest))
		return
	}
	if err := s.service.RemoveDependency(r.Context(), r.URL.Query().Get("tag"), ref, dep); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"ref": ref, "removed": dep})
}

// --- Tag Handlers ---

func (s *Server) handleTags(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	tags, err := s.service.ListTags(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tags)
}

// handleTagAction handles POST /tags/{tag}/import
func (s *Server) handleTagAction(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/tags/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "import" {
		writeError(w, fmt.Errorf("%s: %w", r.URL.Path, ErrNotFound))
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxImportBytes))
	if err != nil {
		writeError(w, fmt.Errorf("%w: reading body: %v", ErrInvalidRequest, err))
		return
	}
	tasks, err := taskfile.ParseList(body, taskfile.FormatJSON)
	if err != nil {
		writeError(w, fmt.Errorf("%w: %v", ErrInvalidRequest, err))
		return
	}

	n, err := s.service.Import(r.Context(), parts[0], tasks)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tag": parts[0], "imported": n})
}

// --- Decision Handlers ---

// handleDecisions handles GET /decisions?limit=
func (s *Server) handleDecisions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, fmt.Errorf("%w: limit must be an integer", ErrInvalidRequest))
			return
		}
		limit = n
	}

	entries, err := s.service.Decisions(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if entries == nil {
		entries = []models.PDREntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, fmt.Errorf("%w: invalid json", ErrInvalidRequest))
		return false
	}
	return true
}
