package rulesfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/rulestage/internal/rules"
)

const trafficHCL = `
category = "traffic"

rule {
  sourceIP      = "192.168.1.10"
  destinationIP = "8.8.8.8"
  protocol      = "TCP"
  portRange     = "80-443"
  action        = "allow"
}

rule {
  sourceIP      = "10.0.0.0/8"
  destinationIP = "1.1.1.1"
  protocol      = "UDP"
  portRange     = 53
  action        = "deny"
}
`

func TestParseHCL(t *testing.T) {
	f, err := Parse([]byte(trafficHCL), "traffic.hcl", FormatHCL)
	require.NoError(t, err)

	assert.Equal(t, "traffic", f.Category)
	require.Len(t, f.Rules, 2)
	assert.Equal(t, rules.Draft{
		"sourceIP":      "192.168.1.10",
		"destinationIP": "8.8.8.8",
		"protocol":      "TCP",
		"portRange":     "80-443",
		"action":        "allow",
	}, f.Rules[0])
	assert.Equal(t, "53", f.Rules[1]["portRange"])
}

func TestParseHCL_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"syntax", `rule {`},
		{"nested block", "rule {\n inner {}\n}"},
		{"list value", "rule {\n ports = [1, 2]\n}"},
		{"variable", "rule {\n ip = var.x\n}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input), "bad.hcl", FormatHCL)
			assert.Error(t, err)
		})
	}
}

func TestParseJSON(t *testing.T) {
	f, err := Parse([]byte(`{"category":"qos","rules":[{"name":"voip","mac":"aa:bb:cc:dd:ee:ff","priority":"high"}]}`), "q.json", FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, "qos", f.Category)
	require.Len(t, f.Rules, 1)
	assert.Equal(t, "high", f.Rules[0]["priority"])

	f, err = Parse([]byte(`[{"port": 443, "protocol": "TCP"}]`), "p.json", FormatJSON)
	require.NoError(t, err)
	assert.Empty(t, f.Category)
	assert.Equal(t, "443", f.Rules[0]["port"])

	_, err = Parse([]byte(`{`), "bad.json", FormatJSON)
	assert.Error(t, err)
}

func TestParseYAML(t *testing.T) {
	input := `
category: dns
rules:
  - domain: ads.example.com
  - domain: tracker.example.net
`
	f, err := Parse([]byte(input), "dns.yaml", FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, "dns", f.Category)
	require.Len(t, f.Rules, 2)
	assert.Equal(t, "tracker.example.net", f.Rules[1]["domain"])

	_, err = Parse([]byte("rules: [unclosed"), "bad.yaml", FormatYAML)
	assert.Error(t, err)
}

func TestFormatOf(t *testing.T) {
	assert.Equal(t, FormatJSON, FormatOf("a.JSON"))
	assert.Equal(t, FormatYAML, FormatOf("a.yml"))
	assert.Equal(t, FormatYAML, FormatOf("a.yaml"))
	assert.Equal(t, FormatHCL, FormatOf("a.hcl"))
	assert.Equal(t, FormatHCL, FormatOf("rules"))
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traffic.hcl")
	require.NoError(t, os.WriteFile(path, []byte(trafficHCL), 0o644))

	f, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, f.Rules, 2)

	_, err = Load(filepath.Join(t.TempDir(), "missing.hcl"))
	assert.Error(t, err)
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		own      string
		explicit string
		want     rules.Category
		wantErr  bool
	}{
		{"file only", "dns", "", rules.DNS, false},
		{"explicit only", "", "qos", rules.QoS, false},
		{"agree via alias", "vpn-nat", "vpn", rules.VPNNAT, false},
		{"disagree", "dns", "qos", "", true},
		{"neither", "", "", "", true},
		{"unknown", "bogus", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := (&File{Category: tt.own}).Resolve(tt.explicit)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeHCL_RoundTrip(t *testing.T) {
	drafts := []rules.Draft{
		{"domain": "ads.example.com"},
		{"domain": "bad.example.org"},
	}
	out := EncodeHCL(rules.DNS, drafts)

	f, err := Parse(out, "out.hcl", FormatHCL)
	require.NoError(t, err)
	assert.Equal(t, "dns", f.Category)
	assert.Equal(t, drafts, f.Rules)
}
