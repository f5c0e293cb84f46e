// Package rulesfile reads batches of draft rules from HCL, JSON or YAML
// files so they can be staged and submitted in one go.
//
// HCL files hold one `rule {}` block per draft, with the form fields as
// free-form attributes:
//
//	category = "traffic"
//
//	rule {
//	  sourceIP      = "192.168.1.10"
//	  destinationIP = "8.8.8.8"
//	  protocol      = "TCP"
//	  portRange     = "80-443"
//	  action        = "allow"
//	}
//
// JSON and YAML files carry the same shape: a "category" and a "rules" list
// of objects. A bare JSON array of objects is accepted too.
package rulesfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"gopkg.in/yaml.v2"

	"grimm.is/rulestage/internal/rules"
)

// Format identifies a rules file encoding.
type Format string

const (
	FormatHCL  Format = "hcl"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// File is a decoded rules file.
type File struct {
	// Category is empty when the file does not name one.
	Category string
	Rules    []rules.Draft
}

// FormatOf picks the format from a file extension, defaulting to HCL.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatHCL
	}
}

// Load reads and decodes a rules file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}
	return Parse(data, path, FormatOf(path))
}

// Parse decodes rules file bytes in the given format.
func Parse(data []byte, filename string, format Format) (*File, error) {
	switch format {
	case FormatJSON:
		return parseJSON(data)
	case FormatYAML:
		return parseYAML(data)
	case FormatHCL:
		return parseHCL(data, filename)
	default:
		return nil, fmt.Errorf("unsupported rules file format %q", format)
	}
}

// Resolve returns the category the file targets. An explicit category wins;
// it must agree with the file's own when both are set.
func (f *File) Resolve(explicit string) (rules.Category, error) {
	switch {
	case explicit == "" && f.Category == "":
		return "", fmt.Errorf("rules file does not name a category")
	case explicit == "":
		return rules.ParseCategory(f.Category)
	}

	cat, err := rules.ParseCategory(explicit)
	if err != nil {
		return "", err
	}
	if f.Category != "" {
		own, err := rules.ParseCategory(f.Category)
		if err != nil {
			return "", err
		}
		if own != cat {
			return "", fmt.Errorf("rules file is for %s, not %s", own, cat)
		}
	}
	return cat, nil
}

type hclFile struct {
	Category string    `hcl:"category,optional"`
	Rules    []hclRule `hcl:"rule,block"`
}

type hclRule struct {
	Body hcl.Body `hcl:",remain"`
}

func parseHCL(data []byte, filename string) (*File, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("HCL parse error: %s", diags.Error())
	}

	var raw hclFile
	if diags := gohcl.DecodeBody(file.Body, nil, &raw); diags.HasErrors() {
		return nil, fmt.Errorf("HCL decode error: %s", diags.Error())
	}

	out := &File{Category: raw.Category}
	for i, r := range raw.Rules {
		attrs, diags := r.Body.JustAttributes()
		if diags.HasErrors() {
			return nil, fmt.Errorf("rule %d: %s", i+1, diags.Error())
		}
		draft := make(rules.Draft, len(attrs))
		for name, attr := range attrs {
			val, diags := attr.Expr.Value(nil)
			if diags.HasErrors() {
				return nil, fmt.Errorf("rule %d: %s: %s", i+1, name, diags.Error())
			}
			s, err := ctyString(val)
			if err != nil {
				return nil, fmt.Errorf("rule %d: %s: %w", i+1, name, err)
			}
			draft[name] = s
		}
		out.Rules = append(out.Rules, draft)
	}
	return out, nil
}

func ctyString(v cty.Value) (string, error) {
	if v.IsNull() {
		return "", nil
	}
	if !v.IsKnown() {
		return "", fmt.Errorf("value is not known")
	}
	s, err := convert.Convert(v, cty.String)
	if err != nil {
		return "", fmt.Errorf("expected a string, number or bool: %w", err)
	}
	return s.AsString(), nil
}

type document struct {
	Category string           `json:"category" yaml:"category"`
	Rules    []map[string]any `json:"rules" yaml:"rules"`
}

func parseJSON(data []byte) (*File, error) {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var list []map[string]any
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, fmt.Errorf("JSON parse error: %w", err)
		}
		return fromRecords("", list), nil
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("JSON parse error: %w", err)
	}
	return fromRecords(doc.Category, doc.Rules), nil
}

func parseYAML(data []byte) (*File, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("YAML parse error: %w", err)
	}
	return fromRecords(doc.Category, doc.Rules), nil
}

func fromRecords(category string, records []map[string]any) *File {
	out := &File{Category: category, Rules: make([]rules.Draft, 0, len(records))}
	for _, rec := range records {
		draft := make(rules.Draft, len(rec))
		for k, v := range rec {
			if s, ok := v.(bool); ok {
				draft[k] = fmt.Sprint(s)
				continue
			}
			draft[k] = rules.Stringify(v)
		}
		out.Rules = append(out.Rules, draft)
	}
	return out
}

// EncodeHCL renders drafts as an HCL rules file.
func EncodeHCL(category rules.Category, drafts []rules.Draft) []byte {
	f := hclwrite.NewEmptyFile()
	body := f.Body()
	body.SetAttributeValue("category", cty.StringVal(string(category)))

	for _, d := range drafts {
		body.AppendNewline()
		block := body.AppendNewBlock("rule", nil).Body()
		names := make([]string, 0, len(d))
		for k := range d {
			names = append(names, k)
		}
		sort.Strings(names)
		for _, k := range names {
			block.SetAttributeValue(k, cty.StringVal(d[k]))
		}
	}
	return hclwrite.Format(f.Bytes())
}
