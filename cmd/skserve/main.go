package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/joho/godotenv"

	"github.com/ekisa-team/skserve/internal/backend"
	"github.com/ekisa-team/skserve/internal/backend/sklearn"
	"github.com/ekisa-team/skserve/internal/config"
	"github.com/ekisa-team/skserve/internal/env"
	"github.com/ekisa-team/skserve/internal/envvar"
	"github.com/ekisa-team/skserve/internal/handler"
	"github.com/ekisa-team/skserve/internal/logger"
	"github.com/ekisa-team/skserve/internal/model"
	skhttp "github.com/ekisa-team/skserve/internal/server/http"
	"github.com/ekisa-team/skserve/internal/storage"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const versionTimeout = 30 * time.Second

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("Failed to load .env file", "error", err)
	}

	var (
		flagConfigPath = flag.String("config", os.Getenv(envvar.SkserveConfig), "Path to config file (defaults to config.yaml in the user config dir when present)")
		flagServe      = flag.Bool("serve", false, "Serve over local HTTP instead of the Lambda runtime")
		flagHTTPPort   = flag.Int("http-port", 0, "HTTP port for -serve (overrides config)")
	)
	flag.Parse()

	configPath := config.ResolvePath(*flagConfigPath)
	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("Failed to load config", "config", configPath, "error", err)
		os.Exit(1)
	}

	environment := env.FromEnv()
	slog.SetDefault(
		logger.New(environment,
			logger.WithLevel(logger.ParseLevel(cfg.Log.Level)),
			logger.WithLogToFile(cfg.Log.ToFile),
			logger.WithLogFile(cfg.Log.File),
		),
	)
	slog.Info("Config loaded", "config", configPath, "version", version)

	executor, err := backend.NewExecutor(cfg.Bridge.Python, versionTimeout)
	if err != nil {
		slog.Error("Failed to find Python interpreter", "python", cfg.Bridge.Python, "error", err)
		os.Exit(1)
	}

	versionCtx, cancelVersion := context.WithTimeout(context.Background(), versionTimeout)
	if v, err := sklearn.Version(versionCtx, executor); err != nil {
		slog.Warn("scikit-learn is not importable, model loads will fail", "python", executor.BinaryPath(), "error", err)
	} else {
		slog.Info("scikit-learn available", "python", executor.BinaryPath(), "sklearn_version", v)
	}
	cancelVersion()

	resolver := storage.NewResolver(
		storage.WithFetcherFactory(storage.Factory(storage.S3Options{
			Region:       cfg.Storage.Region,
			Endpoint:     cfg.Storage.Endpoint,
			UsePathStyle: cfg.Storage.UsePathStyle,
		})),
		storage.WithTempDir(cfg.Storage.TempDir),
	)

	loader := model.NewLoader(cfg.ModelLocation, resolver, sklearn.NewOpener(executor, cfg.Bridge.ReadyTimeout()))
	cache := model.NewCache(loader)
	h := handler.New(cache)

	closeModel := func() {
		if err := cache.Clear(); err != nil {
			slog.Warn("Failed to close model", "error", err)
		}
	}

	if !*flagServe {
		slog.Info("Starting Lambda handler")
		lambda.StartWithOptions(h.HandleAPIGateway, lambda.WithEnableSIGTERM(closeModel))
		return
	}

	port := cfg.Server.HTTPPort
	if *flagHTTPPort > 0 {
		port = *flagHTTPPort
	}

	if err := serve(skhttp.NewServer(h, cache, version), port); err != nil {
		closeModel()
		slog.Error("HTTP server failed", "error", err)
		os.Exit(1)
	}
	closeModel()
}

func serve(server *skhttp.Server, port int) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.ListenAndServe(ctx, port)
}
