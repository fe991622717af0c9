package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"curamed.org/internal/audit"
	"curamed.org/internal/auth"
	"curamed.org/internal/clinical"
	"curamed.org/internal/config"
	"curamed.org/internal/httpapi"
	"curamed.org/internal/obs"
	"curamed.org/internal/session"
)

var version = "1.0.0"

func main() {
	obs.Init()
	log := obs.Logger()
	cfg := config.Load()

	if cfg.PGDSN == "" {
		log.Fatal("CURAMED_PG_DSN is required")
	}
	db, err := sql.Open("pgx", cfg.PGDSN)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	// Signing secret strategy is chosen exactly once, here.
	secret, err := auth.LoadSigningSecret(cfg.AuthSecret, cfg.IsProduction(), log)
	if err != nil {
		log.Fatalf("signing secret: %v", err)
	}

	codec, err := auth.NewTokenCodec(secret, "curamed", auth.WithTokenTTL(cfg.TokenTTL))
	if err != nil {
		log.Fatalf("token codec: %v", err)
	}

	var sessions session.Store
	if cfg.RedisURL != "" {
		rs, err := session.NewRedisStore(cfg.RedisURL, session.WithIdleTimeout(cfg.SessionIdleTimeout))
		if err != nil {
			log.Fatalf("redis session store: %v", err)
		}
		sessions = rs
	} else {
		log.Warn("CURAMED_REDIS_URL is not set; using in-process session store")
		sessions = session.NewMemoryStore(session.WithMemoryIdleTimeout(cfg.SessionIdleTimeout))
	}

	store := auth.NewPGStore(db)

	engine, err := auth.NewEngine(store, cfg.SuperAdminRole, cfg.DefaultRoleName)
	if err != nil {
		log.Fatalf("rbac engine: %v", err)
	}
	authsvc, err := auth.NewService(store, sessions, codec, engine, log)
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}
	admin, err := auth.NewAdminService(store)
	if err != nil {
		log.Fatalf("admin service: %v", err)
	}
	resolver, err := auth.NewResolver(sessions, codec)
	if err != nil {
		log.Fatalf("resolver: %v", err)
	}

	seedCtx, cancelSeed := context.WithTimeout(context.Background(), 30*time.Second)
	if err := auth.EnsureBuiltins(seedCtx, store); err != nil {
		log.Fatalf("seed permissions: %v", err)
	}
	if _, err := auth.SeedSuperAdminRole(seedCtx, store, cfg.SuperAdminRole); err != nil {
		log.Fatalf("seed super-admin role: %v", err)
	}
	cancelSeed()

	gate := audit.NewGate(cfg.SentinelPrincipalID, log)
	recorder := audit.NewRecorder(gate, store.Audit(context.Background()))

	api := httpapi.New(httpapi.Deps{
		Resolver:      resolver,
		Engine:        engine,
		Guard:         auth.NewScopeGuard(cfg.SuperAdminRole),
		Auth:          authsvc,
		Admin:         admin,
		Recorder:      recorder,
		Patients:      clinical.NewPGStore(db),
		ReadyProbe:    httpapi.ReadyProbe{DB: db},
		Version:       version,
		SecureCookies: cfg.IsProduction(),
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Infof("starting curamed-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	_ = db.Close()
	log.Info("stopped")
}
