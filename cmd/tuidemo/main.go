// cmd/tuidemo runs the console against an in-process mock router, so the
// TUI can be tried without any hardware.
package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"grimm.is/rulestage/internal/brand"
	"grimm.is/rulestage/internal/client"
	"grimm.is/rulestage/internal/console"
	"grimm.is/rulestage/internal/i18n"
	"grimm.is/rulestage/internal/logging"
	"grimm.is/rulestage/internal/mockapi"
	"grimm.is/rulestage/internal/rules"
	"grimm.is/rulestage/internal/tui"
)

var printer = i18n.NewCLIPrinter()

func main() {
	applyDelay := flag.Duration("apply-delay", 2*time.Second, "Mock router apply delay")
	settle := flag.Duration("settle", 2500*time.Millisecond, "Console settle delay")
	push := flag.Bool("push", true, "Follow websocket change notifications")
	flag.Parse()

	if err := run(*applyDelay, *settle, *push); err != nil {
		printer.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(applyDelay, settle time.Duration, push bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The alternate screen owns stdout; the activity pane shows the logs.
	logger := logging.New(logging.Config{Level: logging.LevelDebug, Output: io.Discard})
	logging.SetDefault(logger)

	backend := mockapi.New(mockapi.Options{ApplyDelay: applyDelay, Logger: logger})
	backend.SeedSamples()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return err
	}
	srv := &http.Server{Handler: backend.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("mock router stopped", "error", err)
		}
	}()
	defer srv.Close()

	printer.Printf("Starting %s demo against mock router at %s\n", brand.Name, ln.Addr())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	api := client.NewHTTPClient("http://"+ln.Addr().String(), client.WithLogger(logger))
	delays := make(map[rules.Category]time.Duration)
	for _, cat := range rules.All() {
		delays[cat] = settle
	}
	c := console.New(api, console.Options{
		Logger:         logger.WithComponent("console"),
		Context:        ctx,
		RefreshTimeout: 5 * time.Second,
	}, delays)
	defer c.Close()

	if push {
		go c.Watch(ctx, api)
	}
	return tui.Run(ctx, c)
}
