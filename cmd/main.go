package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/victornm/showdown/internal/config"
	"github.com/victornm/showdown/internal/server"
)

const defaultConfigPath = "config/local.yaml"

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Load .env failed: %v", err)
	}

	c, err := loadConfig()
	if err != nil {
		log.Fatalf("Load config failed: %v", err)
	}

	slog.SetDefault(newLogger(c))

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGTERM, os.Interrupt)

	s, err := server.Init(c)
	if err != nil {
		log.Fatalf("Init server failed: %v", err)
	}

	go func() {
		if err := s.Start(); err != nil {
			slog.Error("server: start failed", "error", err)
			shutdown <- syscall.SIGTERM
		}
	}()

	<-shutdown
	s.Shutdown()
}

func loadConfig() (server.Config, error) {
	c := server.DefaultConfig()

	p := os.Getenv("CONFIG_PATH")
	if p == "" {
		p = defaultConfigPath
	}

	if err := config.Load(p, &c, config.WithEnvPrefix("SHOWDOWN")); err != nil {
		return c, fmt.Errorf("load config: %w", err)
	}

	return c, nil
}

func newLogger(c server.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(c.Log.Level)}

	if strings.EqualFold(c.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}

	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
