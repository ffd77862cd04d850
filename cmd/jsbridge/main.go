// jsbridge runs JavaScript against a small set of Go bindings: print, add
// and a host object.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/cryguy/jsbridge"
	"github.com/cryguy/jsbridge/internal/loader"
	"github.com/spf13/cobra"
)

const version = "0.1.0"

func main() {
	cfg := jsbridge.DefaultConfig()
	var verbose bool

	root := &cobra.Command{
		Use:          "jsbridge",
		Short:        "Run JavaScript with Go bindings",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if !verbose {
				cfg.Logger = nil
			}
		},
	}
	root.PersistentFlags().IntVar(&cfg.MemoryLimitMB, "memory", cfg.MemoryLimitMB, "runtime memory limit in MB (0 for unlimited)")
	root.PersistentFlags().DurationVar(&cfg.EvalTimeout, "timeout", cfg.EvalTimeout, "abort an evaluation after this long (0 to disable)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log bridge diagnostics to stderr")

	root.AddCommand(newRunCmd(&cfg), newReplCmd(&cfg))

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRunCmd(cfg *jsbridge.Config) *cobra.Command {
	var wait time.Duration
	cmd := &cobra.Command{
		Use:   "run <file>",
		Short: "Evaluate a script and print its completion value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := loader.Load(args[0])
			if err != nil {
				return err
			}
			s, err := newSession(*cfg, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer s.Close()

			start := time.Now()
			result, err := s.EvalString(src)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			if result != "undefined" {
				fmt.Fprintln(cmd.OutOrStdout(), result)
			}
			if err := s.drain(wait); err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			if cfg.Logger != nil {
				cfg.Logger.Printf("jsbridge: %s ran in %v on %s", args[0], time.Since(start), s.Backend())
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&wait, "wait", time.Minute, "keep firing timers for at most this long after the script returns")
	return cmd
}

func newReplCmd(cfg *jsbridge.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runREPL(*cfg, os.Stdin, cmd.OutOrStdout())
		},
	}
}
