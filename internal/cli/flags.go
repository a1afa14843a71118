package cli

import (
	"os"
	"path/filepath"
	"time"

	"codeberg.org/snonux/transproxy/internal/translation"
)

// Flags holds all command-line flag values
type Flags struct {
	// General flags
	CfgFile   string
	Database  string
	Archive   bool
	LogLevel  string
	LogFormat string

	// Site flags
	SiteID    int64
	SkipWords []string

	// Translation flags
	Provider   string
	Model      string
	BaseURL    string
	Timeout    time.Duration
	Style      string
	SourceLang string
	TargetLang string
	Host       string
	Pathname   string

	// Subcommand flags
	BatchFile        string
	ReplacementsFile string
}

// NewFlags creates a new Flags instance with default values
func NewFlags() *Flags {
	return &Flags{
		Database:   DefaultDatabasePath(),
		LogLevel:   "info",
		LogFormat:  "text",
		SiteID:     1,
		Provider:   translation.ProviderOpenRouter,
		Model:      translation.DefaultModel,
		Timeout:    translation.DefaultTimeout,
		Style:      string(translation.Balanced),
		SourceLang: "en-us",
	}
}

// DefaultDatabasePath returns the cache database location under the user's
// state directory.
func DefaultDatabasePath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "state", "transproxy", "cache.db")
}
