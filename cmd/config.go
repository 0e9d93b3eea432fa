package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pharmadocs/dmsd/internal/config"
)

// configCmd mirrors the "llmd config" cascade: local config (.dmsd/config.yaml)
// takes precedence over global (~/.dmsd/config.yaml); reads and writes use
// whichever scope is already in effect unless --local is passed.
var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "View or set dmsd configuration",
	Long: `View or set dmsd configuration.

  dmsd config                            # show all values
  dmsd config lock.default_timeout_minutes
  dmsd config lock.default_timeout_minutes 30

Configuration locations:
  Global: ~/.dmsd/config.yaml
  Local:  .dmsd/config.yaml

Uses local config if it exists, otherwise global. Writes go to the same
place reads come from. Use --local to use local config instead.`,
	Args: cobra.MaximumNArgs(2),
	RunE: runConfig,
}

var configLocal bool

func runConfig(cmd *cobra.Command, args []string) error {
	var cfg *config.Config
	var err error
	if configLocal {
		cfg, err = config.LoadScope(config.ScopeLocal)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return PrintJSONError(fmt.Errorf("config load: %w", err))
	}

	scopeName := "global"
	if cfg.Scope() == config.ScopeLocal {
		scopeName = "local"
	}

	switch len(args) {
	case 0:
		if JSON() {
			return PrintJSON(cfg.All())
		}
		for k, v := range cfg.All() {
			fmt.Fprintf(Out(), "%s: %s\n", k, v)
		}
	case 1:
		v, err := cfg.Get(args[0])
		if err != nil {
			return PrintJSONError(fmt.Errorf("config get %q: %w", args[0], err))
		}
		fmt.Fprintln(Out(), v)
	case 2:
		if err := cfg.Set(args[0], args[1]); err != nil {
			return PrintJSONError(fmt.Errorf("config set %q: %w", args[0], err))
		}
		if err := cfg.Save(); err != nil {
			return PrintJSONError(fmt.Errorf("config save: %w", err))
		}
		fmt.Fprintf(Out(), "%s = %s (%s)\n", args[0], args[1], scopeName)
	}
	return nil
}

func init() {
	configCmd.Flags().BoolVar(&configLocal, "local", false, "Use local config (.dmsd/config.yaml)")
	rootCmd.AddCommand(configCmd)
}
