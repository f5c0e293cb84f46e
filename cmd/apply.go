package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/pmezard/go-difflib/difflib"

	"grimm.is/rulestage/internal/brand"
	"grimm.is/rulestage/internal/console"
	"grimm.is/rulestage/internal/i18n"
	"grimm.is/rulestage/internal/rulesfile"
)

// RunApply stages every rule in a rules file and submits them as one
// batch, then prints how the active list changed.
func RunApply(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("apply", flag.ContinueOnError)
	g := addGlobalFlags(fs)
	dryRun := fs.Bool("dry-run", false, "Validate and print the rules without submitting")
	fs.BoolVar(dryRun, "n", false, "Dry run (short)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var explicit, path string
	switch fs.NArg() {
	case 1:
		path = fs.Arg(0)
	case 2:
		explicit, path = fs.Arg(0), fs.Arg(1)
	default:
		return fmt.Errorf("usage: %s apply [--dry-run] [category] <rules-file>", brand.BinaryName)
	}

	file, err := rulesfile.Load(path)
	if err != nil {
		return err
	}
	cat, err := file.Resolve(explicit)
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

	if err := stageAll(ctl, file.Rules); err != nil {
		return err
	}
	drafts := ctl.Snapshot().Drafts
	Printer.Fprintf(Stdout, i18n.MsgStaged, len(drafts), cat)
	for i, d := range drafts {
		fmt.Fprintf(Stdout, "  %d. %s\n", i+1, ctl.Descriptor().Summarize(d))
	}

	if *dryRun {
		Printer.Fprintf(Stdout, i18n.MsgDryRun)
		return nil
	}

	if err := ctl.RefreshActive(ctx); err != nil {
		return fmt.Errorf("failed to load %s rules: %w", cat, err)
	}
	before := activeLines(ctl.Descriptor(), ctl.Snapshot().Active)

	if err := ctl.Submit(ctx); err != nil {
		return fmt.Errorf("submit failed: %w", err)
	}
	Printer.Fprintf(Stdout, i18n.MsgSubmitted, len(drafts), cat)

	if err := awaitRefresh(ctx, ctl, ctl.Descriptor().SettleDelay+cfg.Timeout()); err != nil {
		return err
	}
	after := activeLines(ctl.Descriptor(), ctl.Snapshot().Active)

	if before == after {
		Printer.Fprintf(Stdout, i18n.MsgNoChange)
		return nil
	}
	diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(before),
		B:        difflib.SplitLines(after),
		FromFile: "active (before)",
		ToFile:   "active (after)",
		Context:  3,
	})
	fmt.Fprint(Stdout, diff)
	return nil
}

// awaitRefresh blocks until the controller's scheduled refreshes have
// finished and the mirror holds the new list.
// It returns at once when the router already sent the new list.
func awaitRefresh(ctx context.Context, ctl *console.Controller, limit time.Duration) error {
	if ctl.PendingRefreshes() == 0 {
		return nil
	}
	done := make(chan struct{}, 1)
	ctl.SetOnChange(func() {
		select {
		case done <- struct{}{}:
		default:
		}
	})
	defer ctl.SetOnChange(nil)

	// The timer may have fired between the check and the hook.
	if ctl.PendingRefreshes() == 0 {
		return nil
	}

	timer := time.NewTimer(limit)
	defer timer.Stop()
	for {
		select {
		case <-done:
			if ctl.PendingRefreshes() == 0 {
				return nil
			}
		case <-timer.C:
			return fmt.Errorf("active list not refreshed within %s", limit)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
