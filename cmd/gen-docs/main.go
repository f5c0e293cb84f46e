// cmd/gen-docs writes the rule category reference (API paths, key fields
// and form fields) as YAML, for the docs site and for rules-file authors.
package main

import (
	"flag"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"

	"grimm.is/rulestage/internal/i18n"
	"grimm.is/rulestage/internal/rules"
)

var printer = i18n.NewCLIPrinter()

type fieldDoc struct {
	Name     string   `yaml:"name"`
	Label    string   `yaml:"label"`
	Kind     string   `yaml:"kind,omitempty"`
	Required bool     `yaml:"required,omitempty"`
	Default  string   `yaml:"default,omitempty"`
	Options  []string `yaml:"options,omitempty"`
	Example  string   `yaml:"example,omitempty"`
}

type categoryDoc struct {
	Category string     `yaml:"category"`
	Title    string     `yaml:"title"`
	Path     string     `yaml:"path"`
	KeyField string     `yaml:"key_field"`
	Columns  []string   `yaml:"columns"`
	Fields   []fieldDoc `yaml:"fields"`
}

func generate() []categoryDoc {
	var docs []categoryDoc
	for _, cat := range rules.All() {
		d := rules.MustLookup(cat)
		doc := categoryDoc{
			Category: string(cat),
			Title:    d.Title,
			Path:     d.Path,
			KeyField: d.KeyField,
			Columns:  d.Headers(),
		}
		for _, f := range d.Fields {
			doc.Fields = append(doc.Fields, fieldDoc{
				Name:     f.Name,
				Label:    f.Label,
				Kind:     string(f.Kind),
				Required: f.Required,
				Default:  f.Default,
				Options:  f.Options,
				Example:  f.Placeholder,
			})
		}
		docs = append(docs, doc)
	}
	return docs
}

func main() {
	path := flag.String("o", "docs/categories.yaml", "Output file")
	flag.Parse()

	if err := os.MkdirAll(filepath.Dir(*path), 0o755); err != nil {
		printer.Printf("Failed to create dir: %v\n", err)
		os.Exit(1)
	}
	f, err := os.Create(*path)
	if err != nil {
		printer.Printf("Failed to create file: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	enc := yaml.NewEncoder(f)
	if err := enc.Encode(generate()); err != nil {
		printer.Printf("Failed to encode reference: %v\n", err)
		os.Exit(1)
	}
	enc.Close()
	printer.Printf("Category reference written to %s\n", *path)
}
