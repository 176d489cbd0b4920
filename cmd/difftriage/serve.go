package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dshills/difftriage/internal/gitdiff"
	"github.com/dshills/difftriage/internal/llm"
	"github.com/dshills/difftriage/internal/logging"
	"github.com/dshills/difftriage/internal/service"
	"github.com/dshills/difftriage/internal/session"
	"github.com/dshills/difftriage/internal/store"
	"github.com/dshills/difftriage/internal/stream"
	"github.com/dshills/difftriage/internal/triage"
)

type serveFlags struct {
	addr      string
	storePath string
	model     string
	logLevel  string
	logFile   string
}

func newServeCmd() *cobra.Command {
	f := &serveFlags{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve reviews over HTTP with live event streaming",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(f)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.addr, "addr", "127.0.0.1:8787", "Listen address")
	flags.StringVar(&f.storePath, "store", defaultStorePath(), "Review store file")
	flags.StringVar(&f.model, "model", "", "Model ID (e.g., claude-sonnet-4-20250514, gpt-4o)")
	flags.StringVar(&f.logLevel, "log-level", "info", "Log level: trace, debug, info, warn, error")
	flags.StringVar(&f.logFile, "log-file", "", "Log file path (default: stderr)")

	return cmd
}

func defaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "difftriage-reviews.json"
	}
	return filepath.Join(home, ".difftriage", "reviews.json")
}

func runServe(f *serveFlags) error {
	logger, closeLog, err := logging.New(f.logLevel, f.logFile)
	if err != nil {
		return exitError(3, "bad log level: %v", err)
	}
	defer closeLog()

	provider, err := llm.ResolveProvider(f.model)
	if err != nil {
		return exitError(4, "model provider error: %v", err)
	}

	mgr := session.NewManager(session.DefaultConfig(), logging.Component(logger, "session"))
	defer mgr.Close()

	engine := triage.NewEngine(provider, logging.Component(logger, "triage"))
	reviews := store.New(f.storePath)
	svc := service.New(mgr, engine, gitdiff.NewExecutor(""), reviews, logging.Component(logger, "service"))

	srv := &http.Server{
		Addr:              f.addr,
		Handler:           newAPI(svc, mgr, reviews, f.model, logging.Component(logger, "http")),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", f.addr).Str("provider", provider.Name()).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	logger.Info().Msg("shutting down")
	return srv.Shutdown(shutdownCtx)
}

// api serves the review endpoints. Event delivery goes through the stream
// adapter; this layer only does HTTP plumbing.
type api struct {
	svc     *service.Service
	mgr     *session.Manager
	reviews *store.Store
	model   string
	log     zerolog.Logger
	upgrade websocket.Upgrader
}

func newAPI(svc *service.Service, mgr *session.Manager, reviews *store.Store, model string, log zerolog.Logger) http.Handler {
	a := &api{svc: svc, mgr: mgr, reviews: reviews, model: model, log: log}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/reviews", a.startReview)
	mux.HandleFunc("GET /api/reviews", a.listReviews)
	mux.HandleFunc("GET /api/reviews/{id}", a.getReview)
	mux.HandleFunc("GET /api/reviews/{id}/events", a.streamSSE)
	mux.HandleFunc("GET /ws", a.streamWS)
	return mux
}

type startReviewRequest struct {
	ProjectPath string   `json:"projectPath"`
	Mode        string   `json:"mode"`
	BaseBranch  string   `json:"baseBranch,omitempty"`
	Lenses      []string `json:"lenses,omitempty"`
	Profile     string   `json:"profile,omitempty"`
	MinSeverity string   `json:"minSeverity,omitempty"`
}

type startReviewResponse struct {
	SessionID string `json:"sessionId"`
	State     string `json:"state"`
	Created   bool   `json:"created"`
}

func (a *api) startReview(w http.ResponseWriter, r *http.Request) {
	var req startReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid request body: %v", err)
		return
	}
	if req.ProjectPath == "" {
		httpError(w, http.StatusBadRequest, "projectPath is required")
		return
	}
	mode := gitdiff.Mode(req.Mode)
	if mode == "" {
		mode = gitdiff.ModeUncommitted
	}

	sess, created, err := a.svc.Start(r.Context(), service.StartRequest{
		ProjectPath: req.ProjectPath,
		Mode:        mode,
		BaseBranch:  req.BaseBranch,
		Options: triage.Options{
			Lenses:      req.Lenses,
			Profile:     req.Profile,
			MinSeverity: triage.Severity(req.MinSeverity),
			Settings:    llm.Settings{Model: a.model},
		},
	})
	if err != nil {
		var re *triage.RunError
		if errors.As(err, &re) && re.Code == triage.CodeNoDiff {
			httpError(w, http.StatusUnprocessableEntity, "%s", re.Message)
			return
		}
		a.log.Error().Err(err).Msg("start review")
		httpError(w, http.StatusInternalServerError, "failed to start review: %v", err)
		return
	}

	writeJSON(w, http.StatusAccepted, startReviewResponse{
		SessionID: sess.ID,
		State:     sess.State().String(),
		Created:   created,
	})
}

func (a *api) listReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := a.reviews.List()
	if err != nil {
		httpError(w, http.StatusInternalServerError, "list reviews: %v", err)
		return
	}

	type summary struct {
		ID          string    `json:"id"`
		ProjectPath string    `json:"projectPath"`
		Mode        string    `json:"mode"`
		StartedAt   time.Time `json:"startedAt"`
		IssueCount  int       `json:"issueCount"`
	}
	out := make([]summary, 0, len(reviews))
	for _, rec := range reviews {
		out = append(out, summary{
			ID:          rec.ID,
			ProjectPath: rec.ProjectPath,
			Mode:        rec.Mode,
			StartedAt:   rec.StartedAt,
			IssueCount:  len(rec.Result.Issues),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *api) getReview(w http.ResponseWriter, r *http.Request) {
	rec, err := a.reviews.Get(r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		httpError(w, http.StatusNotFound, "review not found")
		return
	}
	if err != nil {
		httpError(w, http.StatusInternalServerError, "get review: %v", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (a *api) streamSSE(w http.ResponseWriter, r *http.Request) {
	sink, err := stream.NewSSESink(w)
	if err != nil {
		httpError(w, http.StatusInternalServerError, "%v", err)
		return
	}
	if err := stream.Serve(r.Context(), a.mgr, r.PathValue("id"), sink); err != nil && !errors.Is(err, context.Canceled) {
		a.log.Warn().Err(err).Msg("sse stream ended")
	}
}

func (a *api) streamWS(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("review")
	if id == "" {
		httpError(w, http.StatusBadRequest, "review query parameter is required")
		return
	}

	conn, err := a.upgrade.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	// Reads are discarded; a closed or failed read ends the stream.
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := stream.Serve(ctx, a.mgr, id, stream.NewWSSink(conn)); err != nil && !errors.Is(err, context.Canceled) {
		a.log.Warn().Err(err).Msg("ws stream ended")
	}
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, status int, format string, args ...any) {
	writeJSON(w, status, map[string]string{"error": fmt.Sprintf(format, args...)})
}
