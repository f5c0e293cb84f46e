package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"grimm.is/rulestage/internal/brand"
	"grimm.is/rulestage/internal/i18n"
)

// RunDelete removes one active rule by key.
func RunDelete(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	g := addGlobalFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("usage: %s delete <category> <key>", brand.BinaryName)
	}
	cat, err := parseCategoryArg(fs.Arg(0))
	if err != nil {
		return err
	}
	key := fs.Arg(1)

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

	// Keys are only deletable once seen in the active list.
	if err := ctl.RefreshActive(ctx); err != nil {
		return fmt.Errorf("failed to load %s rules: %w", cat, err)
	}
	if err := ctl.DeleteActive(ctx, key); err != nil {
		return err
	}
	Printer.Fprintf(Stdout, i18n.MsgDeleted, key, cat)
	return nil
}
