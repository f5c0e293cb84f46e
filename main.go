package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"grimm.is/rulestage/cmd"
	"grimm.is/rulestage/internal/brand"
	"grimm.is/rulestage/internal/i18n"
)

var printer = i18n.NewCLIPrinter()

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	args := os.Args[2:]
	var err error

	switch os.Args[1] {
	case "console":
		err = cmd.RunConsole(ctx, args)
	case "list", "ls":
		err = cmd.RunList(ctx, args)
	case "add":
		err = cmd.RunAdd(ctx, args)
	case "apply":
		err = cmd.RunApply(ctx, args)
	case "delete", "rm":
		err = cmd.RunDelete(ctx, args)
	case "categories":
		err = cmd.RunCategories()
	case "check":
		err = cmd.RunCheck(args)
	case "config":
		err = cmd.RunConfig(args)
	case "version":
		printer.Printf("%s version %s\n", brand.Name, brand.Version)
		printer.Printf("Build: %s\n", brand.BuildTime)
		if brand.GitCommit != "" {
			printer.Printf("Commit: %s\n", brand.GitCommit)
		}
	case "help", "-h", "--help":
		printUsage()
	default:
		printer.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		printer.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	printer.Printf(`%s - %s

Usage:
  %s <command> [options]

Commands:
  console     Interactive console: stage, submit and review rules per category
  list        Show the active rules of a category
              Options: --json
  add         Stage and submit one rule (interactive form without field=value pairs)
  apply       Submit every rule in an HCL, JSON or YAML rules file
              Options: --dry-run (-n)
  delete      Delete an active rule by key
  categories  List rule categories and their fields
  check       Validate a configuration or rules file offline
              Options: --category <c>
  config      Manage the console configuration (init, show)
  version     Print version information

Connection options (console, list, add, apply, delete):
  --config (-c) <file>   Configuration file (default %s)
  --remote (-r) <url>    Router API URL
  --api-key (-k) <key>   API key
  --insecure             Skip TLS verification
  --debug                Debug logging (console: written to rulestage-console.log)

Examples:
  %s console --remote http://192.168.1.1:5000
  %s list traffic
  %s add dns domainOrURL=ads.example.com
  %s apply --dry-run rules/traffic.hcl
  %s delete traffic cfg01a2
`, brand.Name, brand.Description, brand.BinaryName, brand.DefaultConfigPath(),
		brand.BinaryName, brand.BinaryName, brand.BinaryName, brand.BinaryName, brand.BinaryName)
}
