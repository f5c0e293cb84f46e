package cmd

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"grimm.is/rulestage/internal/brand"
	"grimm.is/rulestage/internal/config"
)

// RunConfig handles configuration CLI commands
func RunConfig(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("%s", configUsage())
	}

	switch args[0] {
	case "init":
		return runConfigInit(args[1:])
	case "show":
		return runConfigShow(args[1:])
	default:
		return fmt.Errorf("unknown config command: %s\n\n%s", args[0], configUsage())
	}
}

func configUsage() string {
	return fmt.Sprintf(`Usage: %[1]s config <command>

Commands:
  init [--force] [path]    Write a default configuration (default %[2]s)
  show [-o hcl|json]       Print the effective configuration`, brand.BinaryName, brand.DefaultConfigPath())
}

func runConfigInit(args []string) error {
	fs := flag.NewFlagSet("config init", flag.ContinueOnError)
	force := fs.Bool("force", false, "Overwrite an existing file")
	remote := fs.String("remote", "", "Router API URL to record")
	if err := fs.Parse(args); err != nil {
		return err
	}

	path := brand.DefaultConfigPath()
	if fs.NArg() > 0 {
		path = fs.Arg(0)
	}
	if _, err := os.Stat(path); err == nil && !*force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	cfg := config.Default()
	if *remote != "" {
		cfg.API.URL = *remote
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.SaveFile(cfg, path); err != nil {
		return err
	}
	Printer.Fprintf(Stdout, "Wrote %s\n", path)
	return nil
}

func runConfigShow(args []string) error {
	fs := flag.NewFlagSet("config show", flag.ContinueOnError)
	g := addGlobalFlags(fs)
	output := fs.String("output", "hcl", "Output format: hcl, json")
	fs.StringVar(output, "o", "hcl", "Output format (short)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	// Never echo the key itself.
	if cfg.API.APIKey != "" {
		cfg.API.APIKey = "********"
	}

	switch *output {
	case "hcl":
		_, err = Stdout.Write(config.EncodeHCL(cfg))
	case "json":
		var data []byte
		if data, err = json.MarshalIndent(cfg, "", "  "); err == nil {
			_, err = fmt.Fprintln(Stdout, string(data))
		}
	default:
		err = fmt.Errorf("unknown output format %q", *output)
	}
	return err
}
