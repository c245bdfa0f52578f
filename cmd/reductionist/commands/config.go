package commands

import (
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/reductionist/config"
	"github.com/teranos/reductionist/errors"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show and validate configuration",
		Long: `Display and validate reductionist configuration.

Configuration sources (in order of precedence):
1. Command line flags
2. Environment variables (REDUCTIONIST_* prefix)
3. Project config (reductionist.toml, searched up from the working directory)
4. User config (~/.reductionist/config.toml)
5. System config (/etc/reductionist/config.toml)
6. Default values

Examples:
  reductionist config show                  # Show current configuration
  reductionist config show --format json    # Show configuration as JSON
  reductionist config get compile.workers   # Get a specific value
  reductionist config validate              # Validate current configuration
  reductionist config where                 # List configuration files`,
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return errors.Wrap(err, "failed to load config")
			}
			format, _ := cmd.Flags().GetString("format")
			data, err := config.Marshal(cfg, format)
			if err != nil {
				return err
			}
			if format != "json" {
				fmt.Fprintln(cmd.OutOrStdout(), "# reductionist configuration")
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	show.Flags().String("format", "toml", "Output format: toml, json, yaml")

	get := &cobra.Command{
		Use:   "get <key>",
		Short: "Get a specific configuration value",
		Long:  "Get a configuration value using dot notation (e.g., compile.workers, output.dir)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v := config.GetViper()
			if !v.IsSet(args[0]) {
				return errors.NewNotFoundError("configuration key %q not found", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), v.Get(args[0]))
			return nil
		},
	}

	validate := &cobra.Command{
		Use:   "validate",
		Short: "Validate current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return errors.Wrap(err, "failed to load config")
			}
			out := cmd.OutOrStdout()
			for _, path := range config.Sources() {
				if _, err := os.Stat(path); err != nil {
					continue
				}
				unknown, err := config.UnknownKeys(path)
				if err != nil {
					return err
				}
				for _, key := range unknown {
					pterm.Warning.WithWriter(out).Printfln("%s: unknown key %q", path, key)
				}
			}
			if err := cfg.Validate(); err != nil {
				return errors.Wrap(err, "configuration validation failed")
			}
			pterm.Success.WithWriter(out).Println("Configuration is valid")
			return nil
		},
	}

	where := &cobra.Command{
		Use:   "where",
		Short: "Show where configuration is loaded from",
		Long: `Show the configuration cascade and which files were checked.

Files are listed lowest precedence first; REDUCTIONIST_* environment
variables override all of them.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Configuration cascade (later overrides earlier):")
			fmt.Fprintln(out, "  [DEFAULT]  Built-in defaults")
			for _, path := range config.Sources() {
				status := pterm.Gray("missing")
				if _, err := os.Stat(path); err == nil {
					status = pterm.Green("found")
				}
				pterm.Fprintln(out, fmt.Sprintf("  [FILE]     %s (%s)", path, status))
			}
			fmt.Fprintln(out, "  [ENV]      REDUCTIONIST_* environment variables")
			return nil
		},
	}

	cmd.AddCommand(show, get, validate, where)
	return cmd
}
