package cmd

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"grimm.is/rulestage/internal/brand"
	"grimm.is/rulestage/internal/i18n"
	"grimm.is/rulestage/internal/rules"
)

// RunList prints the active rules of one category.
func RunList(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	g := addGlobalFlags(fs)
	asJSON := fs.Bool("json", false, "Print raw records as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: %s list [--json] <category>", brand.BinaryName)
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

	if err := ctl.RefreshActive(ctx); err != nil {
		return fmt.Errorf("failed to load %s rules: %w", cat, err)
	}
	active := ctl.Snapshot().Active

	if *asJSON {
		records := make([]map[string]any, len(active))
		for i, r := range active {
			records[i] = r.Fields
		}
		out, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(Stdout, string(out))
		return nil
	}

	if len(active) == 0 {
		Printer.Fprintf(Stdout, i18n.MsgNoRules, cat)
		return nil
	}
	printActive(Stdout, ctl.Descriptor(), active)
	Printer.Fprintf(Stdout, i18n.MsgRuleCount, len(active))
	return nil
}

// printActive renders active rules as an aligned table, key first.
func printActive(w io.Writer, desc *rules.Descriptor, active []rules.ActiveRule) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\t"+strings.ToUpper(strings.Join(desc.Headers(), "\t")))
	for _, r := range active {
		fmt.Fprintln(tw, r.Key+"\t"+strings.Join(desc.Row(r), "\t"))
	}
	tw.Flush()
}

// activeLines renders active rules one per line for diffing.
func activeLines(desc *rules.Descriptor, active []rules.ActiveRule) string {
	var b strings.Builder
	printActive(&b, desc, active)
	return b.String()
}

// RunCategories prints the supported categories and their fields.
func RunCategories() error {
	tw := tabwriter.NewWriter(Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CATEGORY\tTITLE\tPATH\tFIELDS (* required)")
	for _, cat := range rules.All() {
		desc := rules.MustLookup(cat)
		names := make([]string, len(desc.Fields))
		for i, f := range desc.Fields {
			names[i] = f.Name
			if f.Required {
				names[i] += "*"
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", cat, desc.Title, desc.Path, strings.Join(names, " "))
	}
	return tw.Flush()
}
