package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mediguru/mediguru-gateway/config"
	"github.com/mediguru/mediguru-gateway/internal/bootstrap"
	"github.com/mediguru/mediguru-gateway/internal/generation/gitpush"
	genhttp "github.com/mediguru/mediguru-gateway/internal/generation/http"
	"github.com/mediguru/mediguru-gateway/internal/generation/llm"
	"github.com/mediguru/mediguru-gateway/internal/generation/repository"
	"github.com/mediguru/mediguru-gateway/internal/generation/service"
	"github.com/mediguru/mediguru-gateway/internal/scheduler"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	bootstrap.SetGinMode(cfg.App.Environment)
	service.SetLogLevel(cfg.App.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb, err := bootstrap.OpenRedis(ctx, cfg.Redis)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	if rdb != nil {
		defer rdb.Close()
	}

	db, audit, err := bootstrap.OpenDB(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	if db != nil {
		defer db.Close()
	}

	pusher, err := gitpush.NewPusher(gitpush.Options{
		RepoPath:    cfg.Git.RepoPath,
		Remote:      cfg.Git.Remote,
		Branch:      cfg.Git.Branch,
		AuthorName:  cfg.Git.AuthorName,
		AuthorEmail: cfg.Git.AuthorEmail,
	})
	if err != nil {
		log.Fatalf("git: %v", err)
	}

	generator := llm.NewClient(llm.Options{
		BaseURL:      cfg.Generator.URL,
		Timeout:      cfg.Generator.Timeout,
		RateLimit:    cfg.Generator.RateLimit,
		Burst:        cfg.Generator.Burst,
		RepoPath:     cfg.Git.RepoPath,
		ArtifactDir:  cfg.Git.ArtifactDir,
		ArtifactName: cfg.Git.ArtifactName,
	})

	deps := service.GatewayDeps{Generator: generator, Persister: pusher}
	var (
		history genhttp.HistoryReader
		audits  genhttp.AuditReader
	)
	if rdb != nil {
		repo := repository.NewHistoryRepository(rdb)
		deps.History = repo
		history = repo
	}
	if audit != nil {
		deps.Audit = audit
		audits = audit
	}
	gateway := service.NewGateway(deps)

	if cfg.Git.SyncSchedule != "" {
		sched := scheduler.NewScheduler(pusher)
		if err := sched.Start(cfg.Git.SyncSchedule); err != nil {
			log.Fatalf("scheduler: %v", err)
		}
		defer sched.Stop()
	}

	router := bootstrap.BuildRouter(bootstrap.RouterDeps{
		ServiceName: cfg.App.Name,
		Version:     cfg.App.Version,
		Origins:     cfg.CORS.Origins,
		Gateway:     gateway,
		History:     history,
		Audits:      audits,
		Redis:       rdb,
		DB:          db,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("listening on %s (generator=%s repo=%s branch=%s)", srv.Addr, cfg.Generator.URL, cfg.Git.RepoPath, cfg.Git.Branch)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
