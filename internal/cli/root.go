// Package cli implements the rqlab command line: single-shot spectrum,
// flux sweep and time evolution runs without the HTTP server.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// RootOptions holds global flags shared by all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "csv"
	Cutoff  int    // charge basis cutoff
	Output  string // destination file; empty writes to stdout
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"json", "csv"}

// NewRootCommand creates the root command for the rqlab CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "rqlab",
		Short: "RQL gate simulator",
		Long:  "Charge-basis spectral simulation of RQL superconducting gate circuits.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if opts.Cutoff < 1 {
				return fmt.Errorf("cutoff must be at least 1, got %d", opts.Cutoff)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "json", "output format (json|csv)")
	cmd.PersistentFlags().IntVar(&opts.Cutoff, "cutoff", 12, "charge basis cutoff per mode")
	cmd.PersistentFlags().StringVarP(&opts.Output, "output", "o", "", "write results to a file instead of stdout")

	cmd.AddCommand(NewSimulateCommand(opts))
	cmd.AddCommand(NewSweepCommand(opts))
	cmd.AddCommand(NewEvolveCommand(opts))

	return cmd
}

// outWriter resolves the output destination: the --output file when set,
// the command's stdout otherwise. The returned closer is a no-op for stdout.
func (o *RootOptions) outWriter(cmd *cobra.Command) (io.Writer, func(), error) {
	if o.Output == "" {
		return cmd.OutOrStdout(), func() {}, nil
	}
	f, err := os.Create(o.Output)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

// logger builds a stderr console logger honoring the verbose flag.
// Output goes to stderr so piped JSON and CSV stay clean.
func (o *RootOptions) logger() zerolog.Logger {
	level := zerolog.WarnLevel
	if o.Verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
