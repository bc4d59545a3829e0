package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/bryanchriswhite/hotshot/internal/capture"
	"github.com/bryanchriswhite/hotshot/internal/config"
	"github.com/bryanchriswhite/hotshot/internal/logger"
	"github.com/bryanchriswhite/hotshot/internal/output"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// Engine is the capture surface the server drives.
type Engine interface {
	DisplayServer() (capture.DisplayServer, error)
	Capture(ctx context.Context, mode capture.Mode, bounds *capture.Region) (*image.RGBA, error)
	ListMonitors(ctx context.Context) ([]capture.Monitor, error)
	ResolveDisplay(ctx context.Context, spec string) (capture.Monitor, error)
}

// Server represents the HTTP API server
type Server struct {
	router   *mux.Router
	engine   Engine
	defaults config.CaptureConfig
	upgrader websocket.Upgrader
	hub      *hub

	// one capture in flight at a time
	capturing sync.Mutex
}

// Event is pushed to stream subscribers after each completed capture.
type Event struct {
	DisplayServer string    `json:"display_server"`
	Mode          string    `json:"mode"`
	Width         int       `json:"width"`
	Height        int       `json:"height"`
	Time          time.Time `json:"time"`
}

// CaptureRequest is the body of POST /api/capture.
type CaptureRequest struct {
	Mode     string `json:"mode"`
	Geometry string `json:"geometry,omitempty"`
	Display  string `json:"display,omitempty"`
	Format   string `json:"format,omitempty"`
}

// NewServer creates a new API server
func NewServer(engine Engine, defaults config.CaptureConfig) *Server {
	s := &Server{
		router:   mux.NewRouter(),
		engine:   engine,
		defaults: defaults,
		hub:      newHub(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // local control surface
			},
		},
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", s.handleHealth).Methods("GET")
	api.HandleFunc("/display", s.handleDisplay).Methods("GET")
	api.HandleFunc("/monitors", s.handleMonitors).Methods("GET")
	api.HandleFunc("/capture", s.handleCapture).Methods("POST")
	api.HandleFunc("/captures/stream", s.handleStream)
}

// Handler returns the root handler with CORS applied.
func (s *Server) Handler() http.Handler {
	return s.enableCORS(s.router)
}

// Start serves the API until ctx is cancelled.
func (s *Server) Start(ctx context.Context, port int) error {
	log := logger.WithComponent("api")

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", "http://localhost"+srv.Addr).Msg("Starting server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Info().Msg("Shutting down server")
		s.hub.close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// enableCORS adds CORS headers
func (s *Server) enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Expose-Headers", "X-Hotshot-Display-Server, X-Hotshot-Mode, X-Hotshot-Width, X-Hotshot-Height")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// statusFor maps a capture error to an HTTP status.
func statusFor(err error) int {
	var (
		parseErr    *capture.RegionParseError
		modeErr     *capture.UnknownModeError
		notFoundErr *capture.MonitorNotFoundError
	)

	switch {
	case errors.As(err, &parseErr), errors.As(err, &modeErr):
		return http.StatusBadRequest
	case errors.As(err, &notFoundErr), errors.Is(err, capture.ErrNoMonitors), errors.Is(err, capture.ErrNoActiveWindow):
		return http.StatusNotFound
	case errors.Is(err, capture.ErrRegionOutOfBounds):
		return http.StatusUnprocessableEntity
	case errors.Is(err, capture.ErrUnsupported):
		return http.StatusNotImplemented
	case errors.Is(err, capture.ErrNoDisplayServer):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}

func (s *Server) handleDisplay(w http.ResponseWriter, r *http.Request) {
	server, err := s.engine.DisplayServer()
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"display_server": server.String()})
}

func (s *Server) handleMonitors(w http.ResponseWriter, r *http.Request) {
	monitors, err := s.engine.ListMonitors(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if monitors == nil {
		monitors = []capture.Monitor{}
	}
	writeJSON(w, http.StatusOK, monitors)
}

func (s *Server) handleCapture(w http.ResponseWriter, r *http.Request) {
	log := logger.WithComponent("api")

	var req CaptureRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}

	mode, err := capture.ParseMode(req.Mode, req.Geometry)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	format := req.Format
	if format == "" {
		format = s.defaults.Format
	}
	enc, err := output.NewEncoder(format, s.defaults.JPEGQuality)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if !s.capturing.TryLock() {
		writeError(w, http.StatusConflict, errors.New("a capture is already in progress"))
		return
	}
	defer s.capturing.Unlock()

	server, err := s.engine.DisplayServer()
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	var bounds *capture.Region
	display := req.Display
	if display == "" {
		display = s.defaults.Display
	}
	if display != "" {
		m, err := s.engine.ResolveDisplay(r.Context(), display)
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		region := m.Region()
		bounds = &region
	}

	img, err := s.engine.Capture(r.Context(), mode, bounds)
	if capture.IsCancelled(err) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		log.Error().Err(err).Str("mode", mode.Name()).Msg("Capture failed")
		writeError(w, statusFor(err), err)
		return
	}

	var buf bytes.Buffer
	if err := enc.Encode(&buf, img); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	ev := Event{
		DisplayServer: server.String(),
		Mode:          mode.Name(),
		Width:         img.Bounds().Dx(),
		Height:        img.Bounds().Dy(),
		Time:          time.Now().UTC(),
	}
	s.hub.publish(ev)

	h := w.Header()
	h.Set("Content-Type", enc.ContentType())
	h.Set("Content-Length", strconv.Itoa(buf.Len()))
	h.Set("X-Hotshot-Display-Server", ev.DisplayServer)
	h.Set("X-Hotshot-Mode", ev.Mode)
	h.Set("X-Hotshot-Width", strconv.Itoa(ev.Width))
	h.Set("X-Hotshot-Height", strconv.Itoa(ev.Height))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	log := logger.WithComponent("api")

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	events := s.hub.subscribe()
	defer s.hub.unsubscribe(events)

	// Reads only detect the client going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-gone:
			return
		case ev, ok := <-events:
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				log.Debug().Err(err).Msg("WebSocket write failed")
				return
			}
		}
	}
}
