package cmd

import (
	"flag"
	"fmt"
	"sort"

	"grimm.is/rulestage/internal/brand"
	"grimm.is/rulestage/internal/config"
	"grimm.is/rulestage/internal/console"
	"grimm.is/rulestage/internal/i18n"
	"grimm.is/rulestage/internal/logging"
	"grimm.is/rulestage/internal/rules"
	"grimm.is/rulestage/internal/rulesfile"
)

// RunCheck validates a configuration file or a rules file offline. Rules
// files go through the same form checks as interactive input.
func RunCheck(args []string) error {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	category := fs.String("category", "", "Category for rules files that do not name one")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: %s check [--category c] <config-or-rules-file>\nExample: %s check %s", brand.BinaryName, brand.BinaryName, brand.DefaultConfigPath())
	}
	path := fs.Arg(0)

	if file, err := rulesfile.Load(path); err == nil && len(file.Rules) > 0 {
		return checkRules(path, file, *category)
	}

	cfg, err := config.LoadFile(path)
	if err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}
	delays, err := cfg.SettleDelays()
	if err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}

	Printer.Fprintf(Stdout, "Configuration valid!\n")
	Printer.Fprintf(Stdout, "Schema Version: %s\n", cfg.SchemaVersion)
	Printer.Fprintf(Stdout, "API: %s\n", cfg.BaseURL())
	Printer.Fprintf(Stdout, "Push: %v\n", cfg.Push)

	cats := make([]string, 0, len(delays))
	for cat := range delays {
		cats = append(cats, string(cat))
	}
	sort.Strings(cats)
	for _, cat := range cats {
		Printer.Fprintf(Stdout, "  %-16s settle %s\n", cat, delays[rules.Category(cat)])
	}
	return nil
}

func checkRules(path string, file *rulesfile.File, explicit string) error {
	cat, err := file.Resolve(explicit)
	if err != nil {
		return err
	}
	ctl := console.NewController(rules.MustLookup(cat), nil, console.Options{Logger: logging.Discard()})
	defer ctl.Close()

	if err := stageAll(ctl, file.Rules); err != nil {
		return err
	}
	Printer.Fprintf(Stdout, i18n.MsgValid, path)
	return nil
}
