// Package brand provides centralized naming constants for the console.
//
// Everything that prints the product name, picks a default path or builds
// a User-Agent goes through here so a rename touches one file.
package brand

import (
	"os"
	"path/filepath"
)

// Brand holds all branding information
type Brand struct {
	Name            string `json:"name"`
	LowerName       string `json:"lowerName"`
	Vendor          string `json:"vendor"`
	Description     string `json:"description"`
	Tagline         string `json:"tagline"`
	ConfigEnvPrefix string `json:"configEnvPrefix"`
	BinaryName      string `json:"binaryName"`
	ConfigFileName  string `json:"configFileName"`
}

var b = Brand{
	Name:            "RuleStage",
	LowerName:       "rulestage",
	Vendor:          "grimm.is",
	Description:     "Staging console for router firewall rules",
	Tagline:         "Stage it, check it, push it.",
	ConfigEnvPrefix: "RULESTAGE",
	BinaryName:      "rulestage",
	ConfigFileName:  "rulestage.hcl",
}

var (
	Name            = b.Name
	LowerName       = b.LowerName
	Vendor          = b.Vendor
	Description     = b.Description
	Tagline         = b.Tagline
	ConfigEnvPrefix = b.ConfigEnvPrefix
	BinaryName      = b.BinaryName
	ConfigFileName  = b.ConfigFileName

	// Version is set at build time via -ldflags
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Get returns the full Brand struct
func Get() Brand {
	return b
}

// UserAgent returns a User-Agent string for HTTP requests
func UserAgent(version string) string {
	if version == "" {
		version = "dev"
	}
	return Name + "/" + version
}

// GetConfigDir returns the config directory, checking env vars first.
// Priority: RULESTAGE_CONFIG_DIR > XDG config dir > ./
func GetConfigDir() string {
	if dir := os.Getenv(ConfigEnvPrefix + "_CONFIG_DIR"); dir != "" {
		return dir
	}
	if base, err := os.UserConfigDir(); err == nil {
		return filepath.Join(base, LowerName)
	}
	return "."
}

// DefaultConfigPath returns where the console looks for its config file
// when none is given on the command line. RULESTAGE_CONFIG wins outright.
func DefaultConfigPath() string {
	if p := os.Getenv(ConfigEnvPrefix + "_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(GetConfigDir(), ConfigFileName)
}
