// cmd/tui-verify opens the draft form for one category outside the
// console, then stages the result offline and prints the record that
// would be submitted.
package main

import (
	"context"
	"encoding/json"
	"os"

	"grimm.is/rulestage/internal/console"
	"grimm.is/rulestage/internal/i18n"
	"grimm.is/rulestage/internal/rules"
	"grimm.is/rulestage/internal/tui"
)

var printer = i18n.NewCLIPrinter()

func main() {
	name := "traffic"
	if len(os.Args) > 1 {
		name = os.Args[1]
	}
	cat, err := rules.ParseCategory(name)
	if err != nil {
		printer.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	desc := rules.MustLookup(cat)

	form := tui.NewDraftForm(desc, desc.Defaults())
	printer.Printf("Launch %s form verification...\n", desc.Title)
	if err := form.RunWithContext(context.Background()); err != nil {
		printer.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	ctrl := console.NewController(desc, nil, console.Options{})
	defer ctrl.Close()
	draft, err := ctrl.Stage(form.Values())
	if err != nil {
		printer.Printf("Rejected: %v\n", err)
		os.Exit(1)
	}

	printer.Printf("\n--- Record ---\n")
	out, _ := json.MarshalIndent(desc.Record(draft), "", "  ")
	printer.Printf("%s\n", out)
}
