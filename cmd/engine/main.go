package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/dhashwinkennedy-cmd/zeink-forms/internal/aigrade"
	api "github.com/dhashwinkennedy-cmd/zeink-forms/internal/api/http"
	"github.com/dhashwinkennedy-cmd/zeink-forms/internal/auth"
	"github.com/dhashwinkennedy-cmd/zeink-forms/internal/config"
	"github.com/dhashwinkennedy-cmd/zeink-forms/internal/db"
	"github.com/dhashwinkennedy-cmd/zeink-forms/internal/engine"
	"github.com/dhashwinkennedy-cmd/zeink-forms/internal/eventlog"
	"github.com/dhashwinkennedy-cmd/zeink-forms/internal/store"
)

func main() {
	cfg := config.FromEnv()

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	st := store.NewSQLStore(dbh)
	events := eventlog.NewRepo(dbh)

	// --- AI grading service ---
	evaluator := aigrade.NewHTTPClient(cfg.AIBaseURL, cfg.AIAPIKey, cfg.AITimeout)

	eng := engine.New(st, evaluator,
		engine.WithAILimit(cfg.AIMaxConcurrency),
		engine.WithCostCeiling(cfg.FreeTierCostCeiling),
		engine.WithEventLog(events),
	)

	// --- Auth ---
	authSvc := auth.NewAuthService(cfg.AuthHMACSecret, cfg.OwnerUser, cfg.OwnerPassHash)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/auth/login", auth.LoginHandler(authSvc))

	r.Group(func(pr chi.Router) {
		pr.Use(auth.Middleware(authSvc))
		api.Mount(pr, eng)
	})

	log.Printf("zeink-forms engine listening on %s", cfg.HTTPAddr)
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, r))
}
