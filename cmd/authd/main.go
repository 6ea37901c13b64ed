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
	"go.uber.org/zap"

	"innotour.org/internal/auth"
	"innotour.org/internal/config"
	"innotour.org/internal/httpapi"
	"innotour.org/internal/obs"
	"innotour.org/internal/scheduling/remote"
)

var version = "0.3.1"

func main() {
	cfg := config.Load()
	log := obs.InitLogger(cfg.Development())
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	obs.Init()
	obs.InitBuildInfo("authd", version)

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		log.Fatal("open db", zap.Error(err))
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	codec, err := auth.NewCodec(cfg.AuthSecret, auth.WithIssuer("innotour"))
	if err != nil {
		log.Fatal("build token codec", zap.Error(err))
	}
	svc, err := auth.NewService(auth.NewPGStore(db), codec,
		auth.WithAccessTTL(cfg.AccessTokenTTL),
		auth.WithRefreshTTL(cfg.RefreshTokenTTL),
		auth.WithStatelessRefresh(cfg.RefreshMode == config.RefreshModeStateless),
	)
	if err != nil {
		log.Fatal("build auth service", zap.Error(err))
	}

	var agencies httpapi.AgencyDirectory
	if cfg.InternalToken != "" {
		client, err := remote.NewClient(cfg.SchedulingBaseURL, cfg.InternalToken)
		if err != nil {
			log.Fatal("build scheduling client", zap.Error(err))
		}
		agencies = client
	}

	api := httpapi.NewAuthAPI(svc, httpapi.NewGate(svc), agencies, cfg, version)

	handler := httpapi.RequestID(
		httpapi.Logging(
			httpapi.SecurityHeaders(
				httpapi.CORS(nil)(
					httpapi.MaxBodyBytes(1<<20)(
						httpapi.RateLimit(20, 10)(
							obs.Instrument(api.Router())))))))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Info("starting authd", zap.String("version", version), zap.String("addr", srv.Addr))

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("listen", zap.Error(err))
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
