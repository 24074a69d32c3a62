package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"

	"github.com/helioview/helioview/api/metrics"
	"github.com/helioview/helioview/api/server"
	"github.com/helioview/helioview/utils/pkg/logger"
)

// Set via ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// A .env file is optional; real environment variables win.
	_ = godotenv.Load()

	verboseFlag := flag.Bool("verbose", false, "enable verbose (debug) logging")
	listenFlag := flag.String("listen", ":8080", "HTTP listen address (or set HELIOVIEW_LISTEN env var)")
	dataRootFlag := flag.String("data-root", "data", "directory holding the measurement CSV files (or set HELIOVIEW_DATA_ROOT env var)")
	allowedOriginsFlag := flag.String("allowed-origins", "*", "comma-separated CORS origins (or set HELIOVIEW_ALLOWED_ORIGINS env var)")
	shutdownTimeoutFlag := flag.Duration("shutdown-timeout", 10*time.Second, "graceful shutdown timeout")
	flag.Parse()

	log := logger.New(*verboseFlag)

	// Override flags with environment variables if set
	if env := os.Getenv("HELIOVIEW_LISTEN"); env != "" {
		*listenFlag = env
	}
	if env := os.Getenv("HELIOVIEW_DATA_ROOT"); env != "" {
		*dataRootFlag = env
	}
	if env := os.Getenv("HELIOVIEW_ALLOWED_ORIGINS"); env != "" {
		*allowedOriginsFlag = env
	}
	if os.Getenv("HELIOVIEW_VERBOSE") == "true" {
		*verboseFlag = true
		log = logger.New(true)
	}

	metrics.BuildInfo.WithLabelValues(version, commit, date).Set(1)

	srv, err := server.New(server.Config{
		Logger:          log,
		ListenAddr:      *listenFlag,
		DataRoot:        *dataRootFlag,
		AllowedOrigins:  strings.Split(*allowedOriginsFlag, ","),
		ShutdownTimeout: *shutdownTimeoutFlag,
		VersionInfo: server.VersionInfo{
			Version: version,
			Commit:  commit,
			Date:    date,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("starting helioview", "version", version, "commit", commit)
	return srv.Run(ctx)
}
