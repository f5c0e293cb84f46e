package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"grimm.is/rulestage/internal/console"
	"grimm.is/rulestage/internal/tui"
)

// RunConsole starts the TUI console
func RunConsole(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("console", flag.ContinueOnError)
	g := addGlobalFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	// The alternate screen owns the terminal; logs go to a file or nowhere.
	// Either way they reach the activity pane through the activity log.
	if g.debug && cfg.Log.File == "" {
		cfg.Log.File = "rulestage-console.log"
	}
	s, err := openSession(cfg, io.Discard)
	if err != nil {
		return err
	}
	defer s.Close()

	delays, err := cfg.SettleDelays()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c := console.New(s.client, s.consoleOptions(ctx), delays)
	defer c.Close()

	if cfg.Push {
		go func() {
			if err := c.Watch(ctx, s.client); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Warn("push notifications stopped; relying on polling", "error", err)
			}
		}()
	}

	s.logger.Info("console starting", "api", cfg.BaseURL())
	if err := tui.Run(ctx, c); err != nil {
		return fmt.Errorf("error running console: %w", err)
	}
	return nil
}

