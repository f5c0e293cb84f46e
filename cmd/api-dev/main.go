// cmd/api-dev/main.go - Development rule API for console iteration
//
// Serves the eight rule collections from memory, with an optional apply
// delay so the console's settle-and-refresh behavior can be watched.
//
// Usage: go run ./cmd/api-dev --apply-delay 2s
// Then:  rulestage console --remote http://localhost:5000
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"grimm.is/rulestage/internal/i18n"
	"grimm.is/rulestage/internal/logging"
	"grimm.is/rulestage/internal/metrics"
	"grimm.is/rulestage/internal/mockapi"
	"grimm.is/rulestage/internal/rules"
)

var printer = i18n.NewCLIPrinter()

func main() {
	listen := flag.String("listen", ":5000", "Listen address")
	applyDelay := flag.Duration("apply-delay", time.Second, "Delay before writes become visible")
	returnState := flag.Bool("return-state", false, "Include the collection's new state in write responses")
	apiKey := flag.String("api-key", "", "Require this X-API-Key")
	seed := flag.Bool("seed", true, "Seed sample rules")
	debug := flag.Bool("debug", false, "Debug logging")
	flag.Parse()

	cfg := logging.DefaultConfig()
	if *debug {
		cfg.Level = logging.LevelDebug
	}
	logger := logging.New(cfg)
	logging.SetDefault(logger)

	reg := prometheus.NewRegistry()
	srv := mockapi.New(mockapi.Options{
		ApplyDelay:  *applyDelay,
		ReturnState: *returnState,
		APIKey:      *apiKey,
		Logger:      logger,
		Metrics:     metrics.NewRegistry(reg),
	})
	if *seed {
		srv.SeedSamples()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.Handle("/", srv.Handler())

	httpServer := &http.Server{
		Addr:              *listen,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	printer.Printf("Development rule API on %s (apply delay %s)\n", *listen, *applyDelay)
	for _, cat := range rules.All() {
		printer.Printf("  %-14s %s\n", cat, rules.MustLookup(cat).Path)
	}
	printer.Printf("  %-14s %s\n", "websocket", mockapi.WebSocketPath)

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}
