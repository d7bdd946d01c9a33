// Todo-agent is a conversational todo list backend.
//
// It exposes a chat endpoint that drives an OpenAI-compatible language
// model through a bounded tool-calling loop over a per-user SQLite task
// store. Configuration is loaded from a single YAML file discovered
// automatically (see [config.DefaultSearchPaths]).
//
// Usage:
//
//	todo-agent serve         Start the API server
//	todo-agent version       Print version and build information
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/nugget/todo-agent/internal/agent"
	"github.com/nugget/todo-agent/internal/api"
	"github.com/nugget/todo-agent/internal/buildinfo"
	"github.com/nugget/todo-agent/internal/config"
	"github.com/nugget/todo-agent/internal/llm"
	"github.com/nugget/todo-agent/internal/metrics"
	"github.com/nugget/todo-agent/internal/ratelimit"
	"github.com/nugget/todo-agent/internal/store"
)

// main is intentionally minimal. It constructs the OS-level environment
// (context, stdio, argv) and delegates immediately to [run]. This keeps
// os.Exit, os.Stdout, and os.Args out of the application logic so that
// the full startup-to-shutdown lifecycle can be driven from tests.
func main() {
	ctx := context.Background()

	if err := run(ctx, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

// run is the real entry point for the todo-agent command. Arguments are
// parsed by hand: the flag package relies on package-level globals,
// which interfere with calling run() concurrently from tests, and the
// argument surface here is two commands and one flag.
func run(ctx context.Context, stdout io.Writer, stderr io.Writer, args []string) error {
	var configPath string
	var command string

	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-config" && i+1 < len(args):
			configPath = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-config="):
			configPath = strings.TrimPrefix(args[i], "-config=")
		case args[i] == "-h" || args[i] == "-help" || args[i] == "--help":
			return printUsage(stdout)
		case !strings.HasPrefix(args[i], "-") && command == "":
			command = args[i]
		default:
			return fmt.Errorf("unknown flag: %s", args[i])
		}
	}

	switch command {
	case "", "serve":
		return runServe(ctx, stdout, stderr, configPath)
	case "version":
		fmt.Fprintln(stdout, buildinfo.String())
		return nil
	case "help":
		return printUsage(stdout)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

func printUsage(w io.Writer) error {
	fmt.Fprintln(w, "Usage: todo-agent [-config path] <command>")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  serve      Start the API server (default)")
	fmt.Fprintln(w, "  version    Print version and build information")
	fmt.Fprintln(w, "  help       Show this help")
	return nil
}

// loadConfig resolves configuration: .env first (so ${VAR} expansion in
// the YAML sees it), then the config file, falling back to built-in
// defaults when no file exists and none was requested explicitly.
func loadConfig(configPath string, logger *slog.Logger) (*config.Config, error) {
	if err := godotenv.Load(); err == nil {
		logger.Debug("loaded .env file")
	}

	path, err := config.FindConfig(configPath)
	if err != nil {
		if configPath != "" {
			return nil, err
		}
		logger.Info("no config file found, using defaults")
		return config.Default(), nil
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	logger.Info("loaded configuration", "path", path)
	return cfg, nil
}

func runServe(ctx context.Context, stdout io.Writer, stderr io.Writer, configPath string) error {
	// Bootstrap logger at info until the configured level is known.
	logger := slog.New(slog.NewTextHandler(stdout, nil))

	cfg, err := loadConfig(configPath, logger)
	if err != nil {
		return err
	}

	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		logger.Warn("invalid log level, using info", "log_level", cfg.LogLevel)
		level = slog.LevelInfo
	}
	logger = slog.New(slog.NewTextHandler(stdout, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: config.ReplaceLogLevelNames,
	}))
	slog.SetDefault(logger)

	logger.Info("starting todo-agent",
		"version", buildinfo.Version,
		"model", cfg.OpenAI.Model,
		"database", cfg.Database.Path)

	apiKey := cfg.OpenAI.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return errors.New("no API key configured (set openai.api_key or OPENAI_API_KEY)")
	}

	st, err := store.Open(cfg.Database.Path, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	if cfg.Database.SeedDevUser {
		if err := st.SeedDevUser(); err != nil {
			return fmt.Errorf("seed dev user: %w", err)
		}
	}

	client := llm.NewOpenAIClient(cfg.OpenAI.BaseURL, apiKey, logger)

	// A failed ping is logged, not fatal: the provider may be briefly
	// unreachable at boot and recover before the first chat request.
	pingCtx, cancelPing := context.WithTimeout(ctx, 10*time.Second)
	if err := client.Ping(pingCtx); err != nil {
		logger.Warn("model provider unreachable", "base_url", cfg.OpenAI.BaseURL, "error", err)
	} else {
		logger.Info("model provider reachable", "base_url", cfg.OpenAI.BaseURL)
	}
	cancelPing()

	collector := metrics.New(logger)
	limiter := ratelimit.New(cfg.RateLimit.PerMinute, cfg.RateLimit.PerHour, logger)
	runner := agent.NewRunner(client, cfg.OpenAI.Model, cfg.Agent.MaxIterations, logger, collector)

	server := api.NewServer(cfg.Listen.Address, cfg.Listen.Port, st, runner, limiter, collector, cfg.Agent.MaxHistory, logger)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := server.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		if err := limiter.CleanupLoop(ctx, 5*time.Minute); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		if err := collector.LogSummaryLoop(ctx, 10*time.Minute); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}
