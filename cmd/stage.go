package cmd

import (
	"errors"
	"fmt"
	"strings"

	"grimm.is/rulestage/internal/console"
	"grimm.is/rulestage/internal/i18n"
	"grimm.is/rulestage/internal/rules"
)

// stageAll runs every draft through the controller's form checks. Invalid
// drafts are reported and skipped; the error counts them.
func stageAll(ctl *console.Controller, drafts []rules.Draft) error {
	bad := 0
	for i, d := range drafts {
		if _, err := ctl.Stage(d); err != nil {
			bad++
			Printer.Fprintf(Stdout, i18n.MsgInvalidRule, i+1, describe(ctl.Descriptor(), err))
		}
	}
	if bad > 0 {
		return fmt.Errorf("%d of %d rule(s) invalid", bad, len(drafts))
	}
	return nil
}

// describe flattens staging errors into one line, naming fields by label.
func describe(desc *rules.Descriptor, err error) string {
	var rfe *console.RequiredFieldError
	if errors.As(err, &rfe) {
		labels := make([]string, len(rfe.Fields))
		for i, name := range rfe.Fields {
			labels[i] = name
			if f, ok := desc.Field(name); ok {
				labels[i] = f.Label
			}
		}
		return "missing " + strings.Join(labels, ", ")
	}
	return strings.ReplaceAll(err.Error(), "\n", "; ")
}

// parsePairs turns field=value arguments into form values.
func parsePairs(args []string) (map[string]string, error) {
	out := make(map[string]string, len(args))
	for _, a := range args {
		k, v, ok := strings.Cut(a, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("expected field=value, got %q", a)
		}
		out[k] = v
	}
	return out, nil
}
