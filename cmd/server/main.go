package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/inamate/draftview/internal/asset"
	"github.com/inamate/draftview/internal/auth"
	"github.com/inamate/draftview/internal/collab"
	"github.com/inamate/draftview/internal/config"
	"github.com/inamate/draftview/internal/db"
	"github.com/inamate/draftview/internal/db/dbgen"
	"github.com/inamate/draftview/internal/document"
	"github.com/inamate/draftview/internal/drawing"
	"github.com/inamate/draftview/internal/engine"
	"github.com/inamate/draftview/internal/export"
	mw "github.com/inamate/draftview/internal/middleware"
	"github.com/inamate/draftview/internal/raster"
	"github.com/inamate/draftview/internal/typeid"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	raster.SetLogger(logger)

	profile, err := config.LoadProfile(cfg.RenderProfile)
	if err != nil {
		slog.Error("load render profile", "error", err)
		os.Exit(1)
	}
	font, err := raster.LoadFont(cfg.FontPath)
	if err != nil {
		slog.Error("load font", "error", err)
		os.Exit(1)
	}
	engineOpts := profile.EngineOptions(logger)
	renderOpts := raster.Options{
		Background: profile.Background,
		Font:       font,
		Engine:     engineOpts,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		slog.Error("migrate database", "error", err)
		os.Exit(1)
	}

	queries := dbgen.New(pool)

	authService := auth.NewService(queries, cfg.JWTSecret)
	authHandler := auth.NewHandler(authService)

	assetHandler := asset.NewHandler(cfg.ThumbnailDir)
	drawingService := drawing.NewService(queries, assetHandler, renderOpts)
	drawingHandler := drawing.NewHandler(drawingService)
	exportHandler := export.NewHandler(renderOpts)

	// The hub goroutine has no request context of its own.
	hub := collab.NewHub(func(drawingID string) (*document.Document, int32, error) {
		loadCtx, loadCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer loadCancel()
		return drawingService.LoadDocument(loadCtx, drawingID)
	})
	drawingService.OnPublish(hub.Publish)
	go hub.Run()

	origins := mw.ParseOrigins(cfg.AllowedOrigins)

	r := mux.NewRouter()

	// Global middleware
	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(mw.CORS(origins))

	// Auth routes (public)
	r.HandleFunc("/auth/register", authHandler.Register).Methods("POST")
	r.HandleFunc("/auth/login", authHandler.Login).Methods("POST")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Stateless rendering (public)
	r.HandleFunc("/render", exportHandler.Render).Methods("POST", "OPTIONS")
	r.PathPrefix("/thumbnails/").Handler(assetHandler.Serve()).Methods("GET")

	// Protected API routes
	api := r.PathPrefix("/api").Subrouter()
	api.Use(authService.AuthMiddleware)

	api.HandleFunc("/me", authHandler.Me).Methods("GET")
	api.HandleFunc("/drawings", drawingHandler.List).Methods("GET")
	api.HandleFunc("/drawings", drawingHandler.Create).Methods("POST")
	api.HandleFunc("/drawings/{drawingId}", drawingHandler.Get).Methods("GET")
	api.HandleFunc("/drawings/{drawingId}", drawingHandler.Delete).Methods("DELETE")
	api.HandleFunc("/drawings/{drawingId}/invite", drawingHandler.Invite).Methods("POST")
	api.HandleFunc("/drawings/{drawingId}/members", drawingHandler.ListMembers).Methods("GET")
	api.HandleFunc("/drawings/{drawingId}/members/{userId}", drawingHandler.RemoveMember).Methods("DELETE")
	api.HandleFunc("/drawings/{drawingId}/snapshots", drawingHandler.UploadSnapshot).Methods("POST")
	api.HandleFunc("/drawings/{drawingId}/snapshots/latest", drawingHandler.GetLatestSnapshot).Methods("GET")
	api.HandleFunc("/drawings/{drawingId}/bounds", drawingHandler.Bounds).Methods("GET")
	api.HandleFunc("/drawings/{drawingId}/thumbnail", drawingHandler.Thumbnail).Methods("GET")

	// WebSocket endpoint
	ws := &wsHandler{
		hub:      hub,
		auth:     authService,
		drawings: drawingService,
		origins:  originPatterns(origins),
		engine:   engineOpts,
	}
	r.HandleFunc("/ws/drawing/{drawingId}", ws.ServeHTTP)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server")

		// Close live sessions before the listener so clients see a clean close.
		hub.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("server starting", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

type wsHandler struct {
	hub      *collab.Hub
	auth     *auth.Service
	drawings *drawing.Service
	origins  []string
	engine   engine.Options
}

func (h *wsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	drawingID := mux.Vars(r)["drawingId"]
	if err := typeid.Validate(drawingID, typeid.PrefixDrawing); err != nil {
		http.Error(w, "drawing not found", http.StatusNotFound)
		return
	}

	token, err := auth.TokenFromRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	userID, err := h.auth.ValidateToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	if _, err := h.drawings.Role(r.Context(), drawingID, userID); err != nil {
		if errors.Is(err, drawing.ErrNotMember) {
			http.Error(w, "not a drawing member", http.StatusForbidden)
			return
		}
		slog.Error("check membership failed", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	user, err := h.auth.GetUser(r.Context(), userID)
	if err != nil {
		http.Error(w, "user not found", http.StatusInternalServerError)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.origins,
	})
	if err != nil {
		slog.Error("websocket accept", "error", err)
		return
	}

	clientID := uuid.New().String()
	client := collab.NewClient(h.hub, conn, userID, user.DisplayName, drawingID, clientID, h.engine)

	h.hub.Register(client)

	ctx := r.Context()
	go client.WritePump(ctx)
	client.ReadPump(ctx)
}

// originPatterns turns allowed origins into the host patterns websocket.Accept
// matches against.
func originPatterns(origins []string) []string {
	var patterns []string
	for _, o := range origins {
		if o == "*" {
			return []string{"*"}
		}
		u, err := url.Parse(o)
		if err != nil || u.Host == "" {
			patterns = append(patterns, o)
			continue
		}
		patterns = append(patterns, u.Host)
	}
	return patterns
}
