// Package server wires the HTTP surface: the admin API, the per-app
// chat completions endpoint, and the websocket chat channel.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/cbitforge/forge/internal/app"
	"github.com/cbitforge/forge/internal/confirm"
	"github.com/cbitforge/forge/internal/db"
	"github.com/cbitforge/forge/internal/embeddings"
	"github.com/cbitforge/forge/internal/fixedqa"
	"github.com/cbitforge/forge/internal/fusion"
	"github.com/cbitforge/forge/internal/llm"
	"github.com/cbitforge/forge/internal/policy"
	"github.com/cbitforge/forge/internal/retrieval"
	"github.com/cbitforge/forge/internal/vectordb"
)

// Config holds server configuration.
type Config struct {
	Port     int
	DataDir  string
	AllowAll bool // allow all CORS origins (dev mode)
}

// Server hosts the fusion engine and its admin API.
type Server struct {
	cfg        Config
	db         *db.DB
	apps       *app.Store
	logs       *app.LogStore
	policies   *policy.Store
	qaStore    *fixedqa.Store
	kbRegistry *vectordb.Registry
	vectors    vectordb.VectorStore
	engine     *fusion.Engine
	sessions   *confirm.Store
	provider   llm.Provider
	model      string
	router     chi.Router
	httpServer *http.Server
	stopSweep  chan struct{}
}

// New assembles the server. web may be nil when no search backend is
// configured; the engine treats it as a disabled source.
func New(cfg Config, database *db.DB, embedder embeddings.Embedder, vectors vectordb.VectorStore, provider llm.Provider, model string, web retrieval.WebSearcher) *Server {
	qaStore := fixedqa.NewStore(database, embedder)
	kbRegistry := vectordb.NewRegistry(database)
	sessions := confirm.NewStore()

	s := &Server{
		cfg:        cfg,
		db:         database,
		apps:       app.NewStore(database),
		logs:       app.NewLogStore(database),
		policies:   policy.NewStore(database),
		qaStore:    qaStore,
		kbRegistry: kbRegistry,
		vectors:    vectors,
		sessions:   sessions,
		provider:   provider,
		model:      model,
		stopSweep:  make(chan struct{}),
	}
	s.engine = fusion.NewEngine(
		fixedqa.NewMatcher(qaStore, embedder),
		vectordb.NewRetriever(kbRegistry, vectors),
		web,
		sessions,
	)
	s.router = s.buildRouter()
	return s
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	corsOpts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if s.cfg.AllowAll {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	app.RegisterRoutes(r, s.apps, s.logs)
	policy.RegisterRoutes(r, s.policies)
	fixedqa.RegisterRoutes(r, s.qaStore)
	vectordb.RegisterRoutes(r, s.kbRegistry, s.vectors)

	// Public, API-key authenticated surface. Lives under /v1 in the
	// OpenAI style; {endpoint} is the application's endpoint_path.
	r.Post("/v1/apps/{endpoint}/chat/completions", s.handleChat)
	r.Get("/v1/apps/{endpoint}/chat/ws", s.handleChatWS)

	r.Post("/api/apps/{appID}/test-retrieval", s.handleTestRetrieval)

	return r
}

// Router exposes the router for tests.
func (s *Server) Router() chi.Router { return s.router }

// Start begins listening on the configured port.
func (s *Server) Start() error {
	s.sessions.StartSweeper(time.Minute, s.stopSweep)

	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("forge server listening on %s", addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	close(s.stopSweep)
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
