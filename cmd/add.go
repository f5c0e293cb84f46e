package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"grimm.is/rulestage/internal/brand"
	"grimm.is/rulestage/internal/i18n"
	"grimm.is/rulestage/internal/tui"
)

// RunAdd stages one rule from field=value pairs, or from an interactive
// form when no pairs are given, and submits it.
func RunAdd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	g := addGlobalFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("usage: %s add <category> [field=value ...]", brand.BinaryName)
	}
	cat, err := parseCategoryArg(fs.Arg(0))
	if err != nil {
		return err
	}

	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	s, err := openSession(cfg, os.Stderr)
	if err != nil {
		return err
	}
	defer s.Close()

	ctl, err := s.controller(ctx, cat)
	if err != nil {
		return err
	}
	defer ctl.Close()

	var values map[string]string
	if fs.NArg() > 1 {
		if values, err = parsePairs(fs.Args()[1:]); err != nil {
			return err
		}
	} else {
		form := tui.NewDraftForm(ctl.Descriptor(), ctl.Descriptor().Defaults())
		if err := form.RunWithContext(ctx); err != nil {
			return fmt.Errorf("form aborted: %w", err)
		}
		values = form.Values()
	}

	draft, err := ctl.Stage(values)
	if err != nil {
		return fmt.Errorf("rule not staged: %s", describe(ctl.Descriptor(), err))
	}
	s.logger.Debug("staged", "rule", ctl.Descriptor().Summarize(draft))

	if err := ctl.Submit(ctx); err != nil {
		return fmt.Errorf("submit failed: %w", err)
	}
	Printer.Fprintf(Stdout, i18n.MsgSubmitted, 1, cat)
	return nil
}
