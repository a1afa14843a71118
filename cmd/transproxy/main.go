package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"codeberg.org/snonux/transproxy/internal/cli"
	"codeberg.org/snonux/transproxy/internal/logging"
	"codeberg.org/snonux/transproxy/internal/processor"
)

func main() {
	// Create flags instance
	flags := cli.NewFlags()

	// Create root command
	rootCmd := cli.CreateRootCommand(flags, actions(flags))

	// Set up command initialization
	cobra.OnInitialize(func() {
		cli.InitConfig(flags.CfgFile)
		cli.LoadFromViper(flags)
		if err := initLogging(flags); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	})

	// Execute command
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func initLogging(flags *cli.Flags) error {
	level, levelErr := logging.ParseLevel(flags.LogLevel)
	format, formatErr := logging.ParseFormat(flags.LogFormat)
	logging.Init(level, format, os.Stderr)

	if levelErr != nil {
		return levelErr
	}
	return formatErr
}

// withProcessor builds the processor once the configuration is final and
// closes it after the command ran.
func withProcessor(flags *cli.Flags, run func(cmd *cobra.Command, args []string, p *processor.Processor) error) cli.RunFunc {
	return func(cmd *cobra.Command, args []string) error {
		p, err := processor.NewProcessor(flags, processor.WithOutput(cmd.OutOrStdout()))
		if err != nil {
			return err
		}
		defer p.Close()
		return run(cmd, args, p)
	}
}

func actions(flags *cli.Flags) cli.Actions {
	return cli.Actions{
		Root: withProcessor(flags, func(cmd *cobra.Command, args []string, p *processor.Processor) error {
			// Handle --archive flag
			if flags.Archive {
				return p.Archive()
			}
			return cmd.Help()
		}),
		Encode: withProcessor(flags, func(cmd *cobra.Command, args []string, p *processor.Processor) error {
			return p.Encode(args[0])
		}),
		Decode: withProcessor(flags, func(cmd *cobra.Command, args []string, p *processor.Processor) error {
			return p.Decode(args[0])
		}),
		Translate: withProcessor(flags, func(cmd *cobra.Command, args []string, p *processor.Processor) error {
			return p.Translate(cmd.Context(), args)
		}),
		Segments: withProcessor(flags, func(cmd *cobra.Command, args []string, p *processor.Processor) error {
			return p.Segments(cmd.Context(), args[0])
		}),
		Lookup: withProcessor(flags, func(cmd *cobra.Command, args []string, p *processor.Processor) error {
			return p.Lookup(cmd.Context(), args)
		}),
		Usage: withProcessor(flags, func(cmd *cobra.Command, args []string, p *processor.Processor) error {
			return p.Usage(cmd.Context())
		}),
		Models: withProcessor(flags, func(cmd *cobra.Command, args []string, p *processor.Processor) error {
			return p.Models(cmd.Context())
		}),
	}
}
