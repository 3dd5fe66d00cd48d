// Optimd is a prompt optimization daemon with an HTTP API.
//
// It compresses prompts into parameterized templates, extracts oversized
// code and JSON blocks into a content-addressed store, summarizes long
// conversation histories, and replaces file attachments with short inline
// references.
//
// Configuration is layered: built-in defaults, an optional YAML file
// (-config flag), then environment variables. See internal/config.
//
// Usage:
//
//	# Start server with defaults
//	optimd
//
//	# Configure via environment
//	SERVER_HTTP_PORT=8080 STORE_MAX_CACHE_MB=200 optimd
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/optimd/internal/config"
	apihttp "github.com/fyrsmithlabs/optimd/internal/http"
	"github.com/fyrsmithlabs/optimd/internal/logging"
	"github.com/fyrsmithlabs/optimd/internal/optimizer"
	"github.com/fyrsmithlabs/optimd/internal/store"
	"github.com/fyrsmithlabs/optimd/internal/telemetry"
	"github.com/fyrsmithlabs/optimd/internal/template"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()
	args := flag.Args()

	if len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  optimd           Start the optimd daemon\n")
			fmt.Fprintf(os.Stderr, "  optimd version   Show version information\n")
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	if err := run(ctx, *configPath); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server shutdown complete")
}

func printVersion() {
	fmt.Printf("optimd by Fyrsmith Labs\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run starts the optimd server and blocks until the context is cancelled.
func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	tel, err := telemetry.New(ctx, telemetry.Config{
		Enabled:        cfg.Observability.EnableTelemetry,
		ServiceName:    cfg.Observability.ServiceName,
		ServiceVersion: version,
		Endpoint:       cfg.Observability.OTLPEndpoint,
		Insecure:       cfg.Observability.OTLPInsecure,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := tel.Shutdown(context.Background()); err != nil {
			log.Printf("telemetry shutdown: %v", err)
		}
	}()

	logger, err := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	}, tel.LoggerProvider())
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logging.Sync(logger)
	}()

	logger.Info("starting optimd",
		zap.String("version", version),
		zap.Int("port", cfg.Server.Port),
		zap.String("service", cfg.Observability.ServiceName),
		zap.Duration("shutdown_timeout", cfg.Server.ShutdownTimeout))

	st := store.New(store.Config{
		MaxTotalBytes: int64(cfg.Store.MaxCacheMB) << 20,
		MaxItemBytes:  int64(cfg.Store.MaxFileMB) << 20,
	}, logger)
	st.StartSweeper(ctx, cfg.Store.SweepInterval, cfg.Store.MaxEntryAge)

	svc, err := optimizer.NewService(st, template.NewRegistry(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize optimizer: %w", err)
	}

	server, err := apihttp.NewServer(svc, logger, &apihttp.Config{
		Host:              cfg.Server.Host,
		Port:              cfg.Server.Port,
		MaxRecentMessages: cfg.Optimizer.MaxRecentMessages,
		MaxEntryAge:       cfg.Store.MaxEntryAge,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize http server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	// Surface the listener's close result without blocking shutdown.
	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("http server exit", zap.Error(err))
		}
	case <-time.After(time.Second):
	}

	return nil
}
