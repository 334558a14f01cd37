package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"playmatch/internal/util"
	"playmatch/pkg/storage"
	"playmatch/pkg/store"
	"playmatch/services/playmatch/internal/app"
	"playmatch/services/playmatch/internal/config"
	"playmatch/services/playmatch/internal/identity"
	"playmatch/services/playmatch/internal/server"
)

// sessionGrace keeps expired Redis sessions around long enough to be
// reported as expired instead of unknown.
const sessionGrace = 24 * time.Hour

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("PLAYMATCH_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := util.InitLogger(cfg.LogLevel, cfg.LogFormat)

	sessionTTL, err := config.ParseSessionTTL(cfg.SessionTTL)
	if err != nil {
		util.Fatal("failed to parse session TTL", "err", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	data, sessions, closeStores, err := openStores(ctx, cfg)
	if err != nil {
		util.Fatal("failed to open store", "driver", cfg.StoreDriver, "err", err)
	}
	defer closeStores()

	objects, err := openObjectStore(ctx, cfg)
	if err != nil {
		util.Fatal("failed to open object store", "driver", cfg.ObjectStoreDriver, "err", err)
	}

	appCore, err := app.New(app.Config{
		Store:          data,
		Sessions:       sessions,
		Identity:       identity.NewClient(cfg.IdentityURL, cfg.IdentityLoginURL),
		Objects:        objects,
		SessionTTL:     sessionTTL,
		MaxAvatarBytes: cfg.MaxAvatarBytes,
	})
	if err != nil {
		util.Fatal("failed to init app", "err", err)
	}

	httpServer, err := server.New(server.Config{
		App:                        appCore,
		CORSOrigins:                cfg.CORSOrigins,
		CookieSecure:               cfg.CookieSecure,
		TrustedProxyCIDRs:          cfg.TrustedProxyCIDRs,
		RedisAddr:                  cfg.RedisAddr,
		RedisPassword:              cfg.RedisPassword,
		CallbackRateLimitPerMinute: cfg.CallbackRateLimitPerMinute,
	})
	if err != nil {
		util.Fatal("failed to init server", "err", err)
	}
	defer httpServer.Close()

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown", "err", err)
		}
	}()

	slog.Info("playmatch server listening", "addr", addr, "store", cfg.StoreDriver, "objects", cfg.ObjectStoreDriver)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "err", err)
	}
}

// openStores returns the record store and the session store. Sessions live
// in Redis when redisAddr is set and in the record store otherwise.
func openStores(ctx context.Context, cfg config.FileConfig) (store.Store, store.SessionStore, func(), error) {
	var (
		data     store.Store
		sessions store.SessionStore
		closers  []func()
	)
	switch cfg.StoreDriver {
	case config.StorePostgres:
		s, err := store.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
		data, sessions = s, s
		closers = append(closers, func() { _ = s.Close() })
	case config.StoreMongo:
		s, err := store.NewMongoStore(ctx, cfg.MongoURL, cfg.MongoDatabase)
		if err != nil {
			return nil, nil, nil, err
		}
		data, sessions = s, s
		closers = append(closers, func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = s.Close(closeCtx)
		})
	default:
		s := store.NewMemoryStore()
		data, sessions = s, s
	}
	if cfg.RedisAddr != "" {
		rs := store.NewRedisSessionStore(cfg.RedisAddr, cfg.RedisPassword, sessionGrace)
		sessions = rs
		closers = append(closers, func() { _ = rs.Close() })
	}
	return data, sessions, func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}, nil
}

func openObjectStore(ctx context.Context, cfg config.FileConfig) (storage.ObjectStore, error) {
	switch cfg.ObjectStoreDriver {
	case config.ObjectStoreMinio:
		return storage.NewMinioStore(ctx, cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.AvatarBucket, cfg.MinioUseSSL)
	case config.ObjectStoreS3:
		return storage.NewS3Store(ctx, cfg.AWSRegion, cfg.AvatarBucket)
	default:
		return nil, nil
	}
}
