// Package web implements the HTTP and WebSocket surface for flowerboard.
// It exposes the submission and announcement endpoints, the rank query
// API, the real-time subscriber endpoint, and a static file fallback for
// the viewer frontend.
package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"flowerboard.live/fbd/internal/board"
	"flowerboard.live/fbd/internal/config"
	"flowerboard.live/fbd/internal/hub"
	"flowerboard.live/fbd/internal/ledger"
	"flowerboard.live/fbd/internal/logger"
	"flowerboard.live/fbd/internal/types"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server is the web server for the board API and viewer assets.
type Server struct {
	svc     *board.Service
	hub     *hub.Hub
	logger  *logger.Logger
	port    int
	docRoot string
}

// NewServer wires the board service, fan-out hub, and HTTP surface
// around the given ledger store.
func NewServer(store ledger.Store, cfg *config.Config) *Server {
	l := logger.New(cfg.LogBuffer)
	h := hub.New(l)
	timeout := time.Duration(cfg.RequestTimeoutSeconds) * time.Second

	notifier := &broadcaster{store: store, hub: h, log: l, timeout: timeout}
	svc := board.NewService(store, notifier, l, timeout)

	s := &Server{
		svc:     svc,
		hub:     h,
		logger:  l,
		port:    cfg.Port,
		docRoot: cfg.DocRoot,
	}

	l.Info("flowerboard server initialized")
	return s
}

// Logger returns the server's logger instance
func (s *Server) Logger() *logger.Logger {
	return s.logger
}

// Handler builds the full route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/submit", s.handleSubmit)
	mux.HandleFunc("/api/ranks", s.handleRanks)
	mux.HandleFunc("/post-announcement", s.handlePostAnnouncement)
	mux.HandleFunc("/get-announcements", s.handleGetAnnouncements)
	mux.HandleFunc("/api/logs", s.handleLogs)
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/", s.handleStatic)

	return mux
}

// Start runs the server in the background and reports its exit error.
func (s *Server) Start() <-chan error {
	log.Printf("Web: starting board server on http://localhost:%d", s.port)

	addr := fmt.Sprintf(":%d", s.port)
	errCh := make(chan error, 1)

	go func() {
		err := http.ListenAndServe(addr, s.Handler())
		errCh <- err
		close(errCh)
	}()

	return errCh
}

// flexibleInt accepts a JSON number or a numeric string; clients send
// the flowers field both ways.
type flexibleInt int

func (f *flexibleInt) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch v := raw.(type) {
	case float64:
		n := int(v)
		if float64(n) != v {
			return fmt.Errorf("value %v is not an integer", v)
		}
		*f = flexibleInt(n)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("value %q is not an integer", v)
		}
		*f = flexibleInt(n)
	default:
		return fmt.Errorf("value %v is not an integer", raw)
	}

	return nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Name    string      `json:"name"`
		Country string      `json:"country"`
		Flowers flexibleInt `json:"flowers"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.logger.Warning(fmt.Sprintf("Rejected malformed submission: %v", err))
		s.writeError(w, http.StatusBadRequest, "Failed to add data")
		return
	}

	err := s.svc.Submit(r.Context(), req.Name, req.Country, int(req.Flowers))
	if err != nil {
		if errors.Is(err, board.ErrInvalidInput) {
			s.logger.Warning(fmt.Sprintf("Rejected submission: %v", err))
			s.writeError(w, http.StatusBadRequest, "Failed to add data")
			return
		}
		log.Printf("Error adding data: %v", err)
		s.logger.Error(fmt.Sprintf("Failed to record submission: %v", err))
		s.writeError(w, http.StatusInternalServerError, "Failed to add data")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"message": "Data added successfully!"})
}

func (s *Server) handleRanks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	summary, err := s.svc.Ranks(r.Context(), r.URL.Query().Get("name"))
	if err != nil {
		log.Printf("Error fetching ranks: %v", err)
		s.logger.Error(fmt.Sprintf("Failed to fetch ranks: %v", err))
		s.writeError(w, http.StatusInternalServerError, "Failed to fetch ranks")
		return
	}

	s.writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handlePostAnnouncement(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Failed to post announcement")
		return
	}

	if err := s.svc.PostAnnouncement(r.Context(), req.Message); err != nil {
		log.Printf("Error posting announcement: %v", err)
		s.logger.Error(fmt.Sprintf("Failed to post announcement: %v", err))
		s.writeError(w, http.StatusInternalServerError, "Failed to post announcement")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleGetAnnouncements(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	msg, err := s.svc.Announcement(r.Context())
	if err != nil {
		log.Printf("Error fetching announcement: %v", err)
		s.logger.Error(fmt.Sprintf("Failed to fetch announcement: %v", err))
		s.writeError(w, http.StatusInternalServerError, "Failed to fetch announcements")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"announcement": msg})
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	n := 50
	if raw := r.URL.Query().Get("n"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			n = parsed
		}
	}

	s.writeJSON(w, http.StatusOK, s.logger.GetRecent(n))
}

// handleWS upgrades the connection, registers the subscriber, and pushes
// the initial snapshot: the current announcement first, then the current
// global aggregation.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := s.hub.Register(conn)

	ctx := r.Context()
	if msg, err := s.svc.Announcement(ctx); err != nil {
		s.logger.Error(fmt.Sprintf("Failed to load announcement for new subscriber: %v", err))
	} else {
		client.Send(types.AnnouncementMessage{Type: types.MessageAnnouncement, Message: msg})
	}

	if summary, err := s.svc.Ranks(ctx, ""); err != nil {
		s.logger.Error(fmt.Sprintf("Failed to load ranks for new subscriber: %v", err))
	} else {
		client.Send(types.RankUpdateMessage{Type: types.MessageRankUpdate, Ranks: summary})
	}
}

// handleStatic serves viewer assets from the document root, defaulting
// to index.html. Unknown paths get a plain-text 404; anything resolving
// outside the root is treated as missing.
func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	rel := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
	if rel == "" || rel == "." {
		rel = "index.html"
	}

	root, err := filepath.Abs(s.docRoot)
	if err != nil {
		s.writeNotFound(w)
		return
	}
	full := filepath.Join(root, filepath.FromSlash(rel))
	if full != root && !strings.HasPrefix(full, root+string(filepath.Separator)) {
		s.writeNotFound(w)
		return
	}

	content, err := os.ReadFile(full)
	if err != nil {
		s.writeNotFound(w)
		return
	}

	w.Header().Set("Content-Type", contentTypeFor(full))
	w.Write(content)
}

func (s *Server) writeNotFound(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	fmt.Fprint(w, "404 Not Found")
}

func contentTypeFor(filePath string) string {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".js":
		return "text/javascript"
	case ".css":
		return "text/css"
	case ".json":
		return "application/json"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	default:
		return "text/html"
	}
}
