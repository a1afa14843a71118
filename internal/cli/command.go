package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"codeberg.org/snonux/transproxy/internal"
)

// RunFunc is the action behind a subcommand.
type RunFunc func(cmd *cobra.Command, args []string) error

// Actions wires subcommands to their implementation. Nil actions leave the
// subcommand out.
type Actions struct {
	Root      RunFunc
	Encode    RunFunc
	Decode    RunFunc
	Translate RunFunc
	Segments  RunFunc
	Lookup    RunFunc
	Usage     RunFunc
	Models    RunFunc
}

// CreateRootCommand creates and configures the root cobra command
func CreateRootCommand(flags *Flags, actions Actions) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "transproxy",
		Short: "Translation proxy content pipeline",
		Long: `transproxy turns HTML fragments into placeholder text, translates it
through an LLM chat-completion API and caches the results per site and
language.

Examples:
  transproxy encode '<a href="/p">Profile</a>'     # Show placeholder text
  transproxy translate --to es-mx "Hello world"    # Translate and cache
  transproxy translate --to de --batch pages.txt   # Segments and /pathnames from a file
  transproxy segments --to fr pending.json         # Background-translate pending segments
  transproxy --archive                             # Rotate the cache database`,
		Args:          cobra.NoArgs,
		Version:       internal.Version,
		SilenceUsage:  true,
		RunE:          actions.Root,
	}

	setupFlags(rootCmd, flags)

	addCommand(rootCmd, actions.Encode, &cobra.Command{
		Use:   "encode <html>",
		Short: "Convert an HTML fragment to placeholder text",
		Args:  cobra.ExactArgs(1),
	})

	decodeCmd := &cobra.Command{
		Use:   "decode <text>",
		Short: "Rebuild HTML from placeholder text",
		Args:  cobra.ExactArgs(1),
	}
	decodeCmd.Flags().StringVarP(&flags.ReplacementsFile, "replacements", "r", "", "JSON file written by encode")
	_ = decodeCmd.MarkFlagRequired("replacements")
	addCommand(rootCmd, actions.Decode, decodeCmd)

	translateCmd := &cobra.Command{
		Use:   "translate [text...]",
		Short: "Translate texts and pathnames and store them in the cache",
	}
	translateCmd.Flags().StringVar(&flags.BatchFile, "batch", "", "Read items from file (one per line, /paths are pathnames)")
	translateCmd.Flags().StringVar(&flags.Host, "host", "", "Host for log context")
	translateCmd.Flags().StringVar(&flags.Pathname, "pathname", "", "Pathname for log context")
	addCommand(rootCmd, actions.Translate, translateCmd)

	addCommand(rootCmd, actions.Segments, &cobra.Command{
		Use:   "segments <file.json>",
		Short: "Translate pending page segments in the background and wait",
		Args:  cobra.ExactArgs(1),
	})

	addCommand(rootCmd, actions.Lookup, &cobra.Command{
		Use:   "lookup <text...>",
		Short: "Look up cached translations",
		Args:  cobra.MinimumNArgs(1),
	})

	addCommand(rootCmd, actions.Usage, &cobra.Command{
		Use:   "usage",
		Short: "Show LLM usage totals for the site",
		Args:  cobra.NoArgs,
	})

	addCommand(rootCmd, actions.Models, &cobra.Command{
		Use:   "models",
		Short: "List models available for the configured API key",
		Args:  cobra.NoArgs,
	})

	return rootCmd
}

func addCommand(root *cobra.Command, run RunFunc, cmd *cobra.Command) {
	if run == nil {
		return
	}
	cmd.RunE = run
	root.AddCommand(cmd)
}

func setupFlags(cmd *cobra.Command, flags *Flags) {
	pf := cmd.PersistentFlags()

	// Global flags
	pf.StringVar(&flags.CfgFile, "config", "", "config file (default is $HOME/.transproxy.yaml)")
	pf.StringVar(&flags.Database, "db", flags.Database, "Cache database file")
	pf.StringVar(&flags.LogLevel, "log-level", flags.LogLevel, "Log level: debug, info, warn, error")
	pf.StringVar(&flags.LogFormat, "log-format", flags.LogFormat, "Log format: text or json")

	// Site flags
	pf.Int64Var(&flags.SiteID, "site", flags.SiteID, "Site ID the cache entries belong to")
	pf.StringSliceVar(&flags.SkipWords, "skip-word", nil, "Term that must not be translated (repeatable)")

	// Translation flags
	pf.StringVar(&flags.Provider, "provider", flags.Provider, "Translation provider: openrouter or gemini")
	pf.StringVar(&flags.Model, "model", flags.Model, "Model ID")
	pf.StringVar(&flags.BaseURL, "base-url", "", "Override the provider API base URL")
	pf.DurationVar(&flags.Timeout, "timeout", flags.Timeout, "Per-call translation timeout")
	pf.StringVar(&flags.Style, "style", flags.Style, "Segment translation style: literal, balanced, natural")
	pf.StringVar(&flags.SourceLang, "from", flags.SourceLang, "Source language code")
	pf.StringVar(&flags.TargetLang, "to", "", "Target language code")

	// Local flags
	cmd.Flags().BoolVar(&flags.Archive, "archive", false, "Move the cache database into an archive directory")

	// Bind flags to viper
	bindFlagsToViper(cmd)
}

func bindFlagsToViper(cmd *cobra.Command) {
	pf := cmd.PersistentFlags()
	viper.BindPFlag("cache.database", pf.Lookup("db"))
	viper.BindPFlag("log.level", pf.Lookup("log-level"))
	viper.BindPFlag("log.format", pf.Lookup("log-format"))
	viper.BindPFlag("site.id", pf.Lookup("site"))
	viper.BindPFlag("site.skip_words", pf.Lookup("skip-word"))
	viper.BindPFlag("translation.provider", pf.Lookup("provider"))
	viper.BindPFlag("translation.model", pf.Lookup("model"))
	viper.BindPFlag("translation.base_url", pf.Lookup("base-url"))
	viper.BindPFlag("translation.timeout", pf.Lookup("timeout"))
	viper.BindPFlag("translation.style", pf.Lookup("style"))
	viper.BindPFlag("translation.source_lang", pf.Lookup("from"))
	viper.BindPFlag("translation.target_lang", pf.Lookup("to"))
}

// InitConfig initializes viper configuration
func InitConfig(cfgFile string) {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error getting home directory: %v\n", err)
			return
		}

		// Search config in home directory with name ".transproxy" (without extension)
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".transproxy")
	}

	// Environment variables
	viper.SetEnvPrefix("TRANSPROXY")
	viper.AutomaticEnv()

	// Read config file
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// LoadFromViper copies the merged flag, config file and environment values
// back into flags.
func LoadFromViper(flags *Flags) {
	flags.Database = viper.GetString("cache.database")
	flags.LogLevel = viper.GetString("log.level")
	flags.LogFormat = viper.GetString("log.format")
	flags.SiteID = viper.GetInt64("site.id")
	flags.SkipWords = viper.GetStringSlice("site.skip_words")
	flags.Provider = viper.GetString("translation.provider")
	flags.Model = viper.GetString("translation.model")
	flags.BaseURL = viper.GetString("translation.base_url")
	flags.Timeout = viper.GetDuration("translation.timeout")
	flags.Style = viper.GetString("translation.style")
	flags.SourceLang = viper.GetString("translation.source_lang")
	flags.TargetLang = viper.GetString("translation.target_lang")
}

// GetAPIKey retrieves the provider API key from environment or config
func GetAPIKey(provider string) string {
	// First check environment variables
	envVars := []string{"OPENROUTER_API_KEY"}
	if provider == "gemini" {
		envVars = []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}
	}
	for _, name := range envVars {
		if key := os.Getenv(name); key != "" {
			return key
		}
	}

	// Then check config file
	return viper.GetString("translation.api_key")
}
