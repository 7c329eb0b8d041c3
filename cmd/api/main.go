package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/access"
	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/auth"
	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/communities"
	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/config"
	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/httpapi"
	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/ident"
	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/ledger"
	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/migrate"
	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/obs"
	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/profiles"
	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/sites"
	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/storage"
	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/store/memory"
	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/store/pg"
	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/stream"
	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/video"
)

var (
	version = "0.1.0"
	commit  = ""
)

// backend is satisfied by both the PostgreSQL and the in-memory store.
type backend interface {
	profiles.Store
	ledger.Store
	access.RoleLookup
	access.GrantStore
	communities.Store
	sites.Store
	video.Store
}

func main() {
	if err := run(); err != nil {
		obs.Logger().Error("fatal", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		return err
	}
	if err := obs.SetLevel(cfg.LogLevel); err != nil {
		return err
	}
	obs.Init()
	obs.InitBuildInfo(version, commit)
	log := obs.Logger()

	var (
		store backend
		db    *sql.DB
	)
	if cfg.DatabaseDSN != "" {
		pgStore, err := pg.Open(cfg.DatabaseDSN)
		if err != nil {
			return err
		}
		defer pgStore.Close()
		db = pgStore.DB()
		if cfg.AutoMigrate {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			err := migrate.NewManager(db).Up(ctx)
			cancel()
			if err != nil {
				return err
			}
			log.Info("migrations applied")
		}
		store = pgStore
	} else {
		log.Warn("no database configured, using in-memory store")
		store = memory.New()
	}

	signer, err := auth.NewSigner(cfg.AuthSecret, cfg.AuthIssuer)
	if err != nil {
		return err
	}

	gen := ident.NewGenerator(cfg.MaxIdentifierAttempts)
	gate := access.NewGate(store, store)
	hub := stream.New()

	led := ledger.NewService(store, gate, ledger.Config{
		Reward:     ledger.Reward{Referrer: cfg.ReferrerReward, Redeemer: cfg.RedeemerReward},
		CodeLength: cfg.ReferralCodeLength,
	})
	led.SetNotifier(hub)

	var provider video.Provider
	if cfg.VideoEnabled() {
		p, err := video.NewHTTPProvider(cfg.VideoProviderURL, cfg.VideoProviderKey, nil)
		if err != nil {
			return err
		}
		provider = p
	}
	videos := video.NewService(store, provider, gate, cfg.VideoMaxPollAttempts)

	var uploads *storage.Service
	if cfg.StorageEnabled() {
		presigner, err := storage.NewS3Presigner(context.Background(), storage.Config{
			Bucket:        cfg.S3Bucket,
			Region:        cfg.S3Region,
			Endpoint:      cfg.S3Endpoint,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			PublicBaseURL: cfg.S3PublicBaseURL,
			TTL:           cfg.S3PresignTTL,
		})
		if err != nil {
			return err
		}
		uploads = storage.NewService(presigner, cfg.S3PublicBaseURL, cfg.S3PresignTTL)
	}

	if cfg.VideoSweep && provider != nil {
		sweeper, err := video.NewSweeper(videos, cfg.VideoPollInterval)
		if err != nil {
			return err
		}
		sweeper.Start()
		defer func() { _ = sweeper.Shutdown() }()
	}

	proxies, err := httpapi.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return fmt.Errorf("trusted proxies: %w", err)
	}

	api := httpapi.New(httpapi.Services{
		Profiles:    profiles.NewService(store, gen, cfg.ReferralCodeLength, gate),
		Ledger:      led,
		Gate:        gate,
		Grants:      access.NewGrantService(store, gate),
		Communities: communities.NewService(store, gate, gen, cfg.JoinCodeLength),
		Sites:       sites.NewService(store, gen),
		Video:       videos,
		Storage:     uploads,
		Stream:      hub,
	}, httpapi.Options{
		Version:        version,
		Ready:          httpapi.ReadyProbe{DB: db},
		Signer:         signer,
		RateBurst:      cfg.RateBurst,
		RatePerSecond:  cfg.RatePerSecond,
		AllowedOrigins: cfg.AllowedOrigins,
		TrustedProxies: proxies,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		// No WriteTimeout: /v1/coins/events streams indefinitely.
		IdleTimeout: 60 * time.Second,
	}

	log.Info("starting miabesite-api",
		slog.String("version", version),
		slog.String("addr", srv.Addr),
		slog.Bool("uploads", uploads != nil),
		slog.Bool("video", provider != nil),
	)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-stop:
	}
	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return err
	}
	log.Info("stopped")
	return nil
}
