// Package server exposes the scanner over HTTP and WebSocket: storing
// extension-submitted scans, running server-side scans, history, exports,
// compares, and the task-board monitor.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/gdprscanner/gdprscan/internal/board"
	"github.com/gdprscanner/gdprscan/internal/capture"
	"github.com/gdprscanner/gdprscan/internal/config"
	"github.com/gdprscanner/gdprscan/internal/docmodel"
	"github.com/gdprscanner/gdprscan/internal/engine"
	"github.com/gdprscanner/gdprscan/internal/history"
	"github.com/gdprscanner/gdprscan/internal/logging"
	"github.com/gdprscanner/gdprscan/internal/model"
	"github.com/gdprscanner/gdprscan/internal/report"
	"github.com/gdprscanner/gdprscan/internal/rules"
)

// Server is the HTTP + WebSocket API surface for the scanner.
type Server struct {
	cfg      Config
	router   chi.Router
	upgrader websocket.Upgrader
	logger   logging.Logger

	store    *history.Store
	engine   *engine.Engine
	capturer capture.Capturer
	board    *board.Client
}

// NewServer creates a Server with its own store, engine, and capturer.
func NewServer(cfg Config) (*Server, error) {
	if cfg.AppConfig == nil {
		cfg.AppConfig = config.Default()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewStdoutLogger("Server")
	}

	dbPath, err := cfg.AppConfig.ResolveDatabasePath()
	if err != nil {
		return nil, err
	}
	store, err := history.Open(dbPath, logger.With(logging.Field{Key: "component", Value: "history"}))
	if err != nil {
		return nil, fmt.Errorf("opening scan store: %w", err)
	}

	eng, err := engine.New(rules.Default(), engine.Config{}, logger.With(logging.Field{Key: "component", Value: "engine"}))
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("creating engine: %w", err)
	}

	capturer, err := capture.New(cfg.AppConfig.Capture, logger.With(logging.Field{Key: "component", Value: "capture"}))
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("creating capturer: %w", err)
	}

	r := chi.NewRouter()
	s := &Server{
		cfg:    cfg,
		router: r,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// TODO: tighten for production
				return true
			},
		},
		store:    store,
		engine:   eng,
		capturer: capturer,
		board:    board.NewClient(cfg.AppConfig.Board, logger.With(logging.Field{Key: "component", Value: "board"})),
	}

	s.routes()
	return s, nil
}

// Store returns the underlying scan store for advanced use (tests, etc.).
func (s *Server) Store() *history.Store {
	return s.store
}

func (s *Server) routes() {
	r := s.router

	r.Use(s.corsMiddleware)

	// CORS preflight
	r.Options("/api/scan", s.optionsHandler("POST"))
	r.Options("/api/analyze", s.optionsHandler("POST"))
	r.Options("/api/history", s.optionsHandler("GET"))
	r.Options("/api/export", s.optionsHandler("POST"))
	r.Options("/api/compare", s.optionsHandler("GET"))
	r.Options("/api/checkout", s.optionsHandler("POST"))
	r.Options("/api/webhooks", s.optionsHandler("POST"))

	r.Get("/health", s.handleHealth)

	// Scans
	r.Post("/api/scan", s.handleSubmitScan)
	r.Post("/api/analyze", s.handleAnalyze)
	r.Get("/api/history", s.handleHistory)

	// Reports
	r.Post("/api/export", s.handleExport)
	r.Get("/api/compare", s.handleCompare)

	// Accounts and hooks
	r.Post("/api/checkout", s.handleCheckout)
	r.Post("/api/webhooks", s.handleCreateWebhook)
	r.Get("/api/board-monitor", s.handleBoardMonitor)

	// WebSocket scan with phase events
	r.Get("/ws/scan", s.handleScanWS)
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		next.ServeHTTP(w, r)
	})
}

func (s *Server) optionsHandler(methods string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Methods", methods)
		w.WriteHeader(http.StatusNoContent)
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fields := []logging.Field{
		{Key: "method", Value: r.Method},
		{Key: "path", Value: r.URL.Path},
	}

	if q := r.URL.Query(); len(q) > 0 {
		fields = append(fields, logging.Field{Key: "query", Value: q})
	}

	if r.Body != nil && r.Method == http.MethodPost {
		if bodyBytes, err := io.ReadAll(r.Body); err == nil {
			fields = append(fields, logging.Field{Key: "body", Value: string(bodyBytes)})
			r.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		}
	}

	s.logger.Info("http_request", fields...)

	s.router.ServeHTTP(w, r)
}

// Close releases the store and capturer.
func (s *Server) Close() {
	if s.capturer != nil {
		s.capturer.Close()
	}
	if s.store != nil {
		s.store.Close()
	}
}

// HTTPServer creates an *http.Server ready to ListenAndServe.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         s.cfg.AppConfig.Addr,
		Handler:      s,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // allow streaming
	}
}

// --- JSON helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// --- HTTP handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleSubmitScan stores a result the extension computed client-side.
func (s *Server) handleSubmitScan(w http.ResponseWriter, r *http.Request) {
	var body SubmitScanRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if body.URL == "" || body.UserID == "" {
		writeError(w, http.StatusBadRequest, "url and userId are required")
		return
	}

	user, err := s.store.EnsureUser(r.Context(), body.UserID)
	if err != nil {
		s.logger.Warn("ensuring user", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	res := &model.ScanResult{
		URL:         body.URL,
		Score:       body.Score,
		Findings:    body.Violations,
		Suggestions: body.Suggestions,
	}
	id, err := s.store.SaveScan(r.Context(), user.ID, res)
	if err != nil {
		s.logger.Warn("saving scan", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"id": id, "score": body.Score})
}

// handleAnalyze captures the URL server-side, scans it, and stores the result.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var body AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if body.URL == "" || body.UserID == "" {
		writeError(w, http.StatusBadRequest, "url and userId are required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.AppConfig.ScanTimeout)
	defer cancel()

	res, _, err := s.analyze(ctx, body.URL, body.UserID)
	if err != nil {
		s.logger.Warn("analyzing url", logging.Field{Key: "url", Value: body.URL}, logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// analyze runs capture, scan, and store for one URL and returns the result
// plus the new scan row id.
func (s *Server) analyze(ctx context.Context, url, userID string) (*model.ScanResult, int64, error) {
	snap, err := s.capturer.Capture(ctx, url)
	if err != nil {
		return nil, 0, fmt.Errorf("capturing page: %w", err)
	}

	doc, err := docmodel.NewDocument(snap)
	if err != nil {
		return nil, 0, fmt.Errorf("building document: %w", err)
	}

	res, err := s.engine.Scan(ctx, doc)
	if err != nil {
		return nil, 0, err
	}

	user, err := s.store.EnsureUser(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	id, err := s.store.SaveScan(ctx, user.ID, res)
	if err != nil {
		return nil, 0, err
	}
	return res, id, nil
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "missing userId query parameter")
		return
	}

	limit := 0
	if ls := r.URL.Query().Get("limit"); ls != "" {
		if v, err := strconv.Atoi(ls); err == nil && v > 0 {
			limit = v
		}
	}

	user, err := s.store.EnsureUser(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	scans, err := s.store.History(r.Context(), user.ID, limit)
	if err != nil {
		s.logger.Warn("listing history", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if scans == nil {
		scans = []history.StoredScan{}
	}
	writeJSON(w, http.StatusOK, scans)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var body ExportRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if body.UserID == "" || body.ScanID == 0 {
		writeError(w, http.StatusBadRequest, "scanId and userId are required")
		return
	}
	if body.Format == "" {
		body.Format = "text"
	}

	user, err := s.store.EnsureUser(r.Context(), body.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	scan, err := s.store.GetScan(r.Context(), body.ScanID, user.ID)
	if err != nil {
		if errors.Is(err, history.ErrScanNotFound) {
			writeError(w, http.StatusNotFound, "scan not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var buf bytes.Buffer
	var wr report.Writer
	contentType := "text/plain; charset=utf-8"
	switch body.Format {
	case "text":
		wr = report.NewTextWriter(&buf)
	case "markdown":
		wr = report.NewMarkdownWriter(&buf)
		contentType = "text/markdown; charset=utf-8"
	case "json":
		wr = report.NewJSONWriter(&buf)
		contentType = "application/json"
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown format %q", body.Format))
		return
	}

	if _, err := wr.Write(scan); err != nil {
		s.logger.Warn("rendering export", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// handleCompare diffs the text reports of two stored scans.
func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	fromStr := r.URL.Query().Get("from")
	toStr := r.URL.Query().Get("to")
	if userID == "" || fromStr == "" || toStr == "" {
		writeError(w, http.StatusBadRequest, "userId, from, and to query parameters are required")
		return
	}
	fromID, err := strconv.ParseInt(fromStr, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid from scan id")
		return
	}
	toID, err := strconv.ParseInt(toStr, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid to scan id")
		return
	}

	user, err := s.store.EnsureUser(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	older, err := s.store.GetScan(r.Context(), fromID, user.ID)
	if err != nil {
		writeError(w, scanErrStatus(err), err.Error())
		return
	}
	newer, err := s.store.GetScan(r.Context(), toID, user.ID)
	if err != nil {
		writeError(w, scanErrStatus(err), err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, report.Compare(older, newer))
}

func scanErrStatus(err error) int {
	if errors.Is(err, history.ErrScanNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// handleCheckout upgrades the user to the pro tier and returns a checkout
// URL. Payment collection is not wired up; the tier flips immediately.
func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var body CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if body.UserID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}

	if _, err := s.store.EnsureUser(r.Context(), body.UserID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := s.store.SetTier(r.Context(), body.UserID, "pro"); err != nil {
		s.logger.Warn("upgrading tier", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.logger.Info("upgraded user tier", logging.Field{Key: "user", Value: body.UserID})
	writeJSON(w, http.StatusOK, map[string]string{
		"url":  "https://checkout.stripe.com/pay/cs_test_" + uuid.New().String(),
		"tier": "pro",
	})
}

func (s *Server) handleCreateWebhook(w http.ResponseWriter, r *http.Request) {
	var body CreateWebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if body.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	hook, err := s.store.CreateWebhook(r.Context(), body.URL, body.Events)
	if err != nil {
		s.logger.Warn("creating webhook", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.logger.Info("created webhook", logging.Field{Key: "webhook_id", Value: hook.ID})
	writeJSON(w, http.StatusCreated, hook)
}

// handleBoardMonitor lists the incoming task-board cards. The caller must
// present the secret of an active webhook.
func (s *Server) handleBoardMonitor(w http.ResponseWriter, r *http.Request) {
	secret := r.URL.Query().Get("secret")
	if secret == "" {
		writeError(w, http.StatusUnauthorized, "missing secret")
		return
	}

	if _, err := s.store.WebhookBySecret(r.Context(), secret); err != nil {
		if errors.Is(err, history.ErrWebhookNotFound) {
			writeError(w, http.StatusUnauthorized, "invalid secret")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	cards, err := s.board.ListCards(r.Context())
	if err != nil {
		if errors.Is(err, board.ErrNotConfigured) {
			writeError(w, http.StatusServiceUnavailable, "board monitor not configured")
			return
		}
		s.logger.Warn("listing board cards", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if cards == nil {
		cards = []board.Card{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"cards": cards})
}

// --- WebSockets ---

// phaseEvent is one progress message on the scan socket.
type phaseEvent struct {
	Phase  string            `json:"phase"`
	Error  string            `json:"error,omitempty"`
	Result *model.ScanResult `json:"result,omitempty"`
	ScanID int64             `json:"scanId,omitempty"`
}

// handleScanWS runs a full server-side scan, streaming a phase event at each
// step and the final result before closing.
func (s *Server) handleScanWS(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	userID := r.URL.Query().Get("userId")

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrading to websocket", logging.Field{Key: "error", Value: err.Error()})
		return
	}
	defer conn.Close()

	if url == "" || userID == "" {
		_ = conn.WriteJSON(phaseEvent{Phase: "error", Error: "url and userId query parameters are required"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.AppConfig.ScanTimeout)
	defer cancel()

	_ = conn.WriteJSON(phaseEvent{Phase: "capturing"})
	snap, err := s.capturer.Capture(ctx, url)
	if err != nil {
		_ = conn.WriteJSON(phaseEvent{Phase: "error", Error: err.Error()})
		return
	}

	_ = conn.WriteJSON(phaseEvent{Phase: "scanning"})
	doc, err := docmodel.NewDocument(snap)
	if err != nil {
		_ = conn.WriteJSON(phaseEvent{Phase: "error", Error: err.Error()})
		return
	}
	res, err := s.engine.Scan(ctx, doc)
	if err != nil {
		_ = conn.WriteJSON(phaseEvent{Phase: "error", Error: err.Error()})
		return
	}

	_ = conn.WriteJSON(phaseEvent{Phase: "storing"})
	user, err := s.store.EnsureUser(ctx, userID)
	if err != nil {
		_ = conn.WriteJSON(phaseEvent{Phase: "error", Error: err.Error()})
		return
	}
	id, err := s.store.SaveScan(ctx, user.ID, res)
	if err != nil {
		_ = conn.WriteJSON(phaseEvent{Phase: "error", Error: err.Error()})
		return
	}

	_ = conn.WriteJSON(phaseEvent{Phase: "done", Result: res, ScanID: id})
}
