package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"grimm.is/rulestage/internal/brand"
	"grimm.is/rulestage/internal/client"
	"grimm.is/rulestage/internal/config"
	"grimm.is/rulestage/internal/console"
	"grimm.is/rulestage/internal/i18n"
	"grimm.is/rulestage/internal/logging"
	"grimm.is/rulestage/internal/metrics"
	"grimm.is/rulestage/internal/rules"
)

// Printer is the global message printer for the CLI
var Printer = i18n.NewCLIPrinter()

// Stdout is where command output goes; tests swap it.
var Stdout io.Writer = os.Stdout

// globalFlags are accepted by every command that talks to the router.
type globalFlags struct {
	config   string
	remote   string
	apiKey   string
	insecure bool
	debug    bool
}

func addGlobalFlags(fs *flag.FlagSet) *globalFlags {
	g := &globalFlags{}
	fs.StringVar(&g.config, "config", brand.DefaultConfigPath(), "Configuration file")
	fs.StringVar(&g.config, "c", brand.DefaultConfigPath(), "Configuration file (short)")
	fs.StringVar(&g.remote, "remote", "", "Router API URL (overrides config)")
	fs.StringVar(&g.remote, "r", "", "Router API URL (short)")
	fs.StringVar(&g.apiKey, "api-key", "", "API key (overrides config)")
	fs.StringVar(&g.apiKey, "k", "", "API key (short)")
	fs.BoolVar(&g.insecure, "insecure", false, "Skip TLS verification")
	fs.BoolVar(&g.debug, "debug", false, "Enable debug logging")
	return g
}

// loadConfig reads the config file (defaults when absent), then applies
// environment and flag overrides, in that order.
func (g *globalFlags) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadOrDefault(g.config)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	if g.remote != "" {
		cfg.API.URL = g.remote
	}
	if g.apiKey != "" {
		cfg.API.APIKey = g.apiKey
	}
	if g.insecure {
		cfg.API.Insecure = true
	}
	if g.debug {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// session bundles the objects a command builds from its configuration.
type session struct {
	cfg     *config.Config
	logger  *logging.Logger
	client  *client.HTTPClient
	metrics *metrics.Registry

	closers []func()
}

// openSession builds logger, metrics and client from cfg. Log output goes
// to logOut unless the config names a file.
func openSession(cfg *config.Config, logOut io.Writer) (*session, error) {
	s := &session{cfg: cfg}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	if cfg.Log.File != "" {
		f, err := os.OpenFile(cfg.Log.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		s.closers = append(s.closers, func() { f.Close() })
		logOut = f
	}
	s.logger = logging.New(logging.Config{
		Level:      level,
		Output:     logOut,
		JSON:       cfg.Log.JSON,
		TimeFormat: time.RFC3339,
	})
	logging.SetDefault(s.logger)

	if cfg.MetricsListen != "" {
		s.metrics = metrics.Get()
		if err := s.serveMetrics(cfg.MetricsListen); err != nil {
			s.Close()
			return nil, err
		}
	}

	opts := append(cfg.ClientOptions(),
		client.WithLogger(s.logger),
		client.WithMetrics(s.metrics),
	)
	s.client = client.NewHTTPClient(cfg.BaseURL(), opts...)
	return s, nil
}

func (s *session) serveMetrics(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("metrics listener: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Warn("metrics server stopped", "error", err)
		}
	}()
	s.closers = append(s.closers, func() { srv.Close() })
	s.logger.Info("serving metrics", "addr", ln.Addr().String())
	return nil
}

func (s *session) consoleOptions(ctx context.Context) console.Options {
	return console.Options{
		Logger:         s.logger.WithComponent("console"),
		Metrics:        s.metrics,
		Context:        ctx,
		RefreshTimeout: s.cfg.Timeout(),
	}
}

// controller builds a standalone controller for one category with the
// configured settle delay.
func (s *session) controller(ctx context.Context, cat rules.Category) (*console.Controller, error) {
	delays, err := s.cfg.SettleDelays()
	if err != nil {
		return nil, err
	}
	desc, err := rules.Lookup(cat)
	if err != nil {
		return nil, err
	}
	desc.SettleDelay = delays[cat]
	return console.NewController(desc, s.client, s.consoleOptions(ctx)), nil
}

// Close releases log files and listeners.
func (s *session) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// parseCategoryArg resolves a category argument with a helpful error.
func parseCategoryArg(arg string) (rules.Category, error) {
	cat, err := rules.ParseCategory(arg)
	if err != nil {
		return "", fmt.Errorf("%w\nRun '%s categories' for the list", err, brand.BinaryName)
	}
	return cat, nil
}
