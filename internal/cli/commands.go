package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"shredder/internal/config"
	"shredder/internal/mcp"
	"shredder/internal/tui"
	"shredder/pkg/shred"
)

func newCheckCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Report whether secure deletion is available",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := shred.New(shred.WithBlockSize(a.cfg.BlockSize))
			if !s.IsAvailable() {
				fmt.Fprintln(cmd.OutOrStdout(), "unavailable")
				return errors.New("secure deletion is not available on this platform")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "available")
			return nil
		},
	}
}

func newConfigCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or create the configuration file",
		// A broken config file must not stop "config path" or "config init".
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.logger.SetVerbose(a.verbose)
			return nil
		},
	}

	path := func() string {
		if a.configPath != "" {
			return a.configPath
		}
		return config.ConfigPath()
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "path",
			Short: "Print the configuration file location",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				fmt.Fprintln(cmd.OutOrStdout(), path())
				return nil
			},
		},
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := a.loadConfig(); err != nil {
					return err
				}
				enc := yaml.NewEncoder(cmd.OutOrStdout())
				defer enc.Close()
				return enc.Encode(a.cfg)
			},
		},
		&cobra.Command{
			Use:   "init",
			Short: "Write a default configuration file",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				p := path()
				if _, err := os.Stat(p); err == nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "Config file already exists at %s\n", p)
					return nil
				} else if !errors.Is(err, fs.ErrNotExist) {
					return err
				}
				cfg := config.DefaultConfig()
				if err := cfg.SaveTo(p); err != nil {
					return fmt.Errorf("writing config: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Config file created at %s\n", p)
				return nil
			},
		},
	)
	return cmd
}

func newTUICommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tui [directory]",
		Short: "Pick files to shred interactively",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return tui.Run(dir, a.cfg, a.logger)
		},
	}
}

func newMCPCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the shredder to MCP clients over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			server := mcp.NewServer(a.cfg, a.logger)
			return server.Serve(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the shredder version",
		Args:  cobra.NoArgs,
		// Needs no configuration.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "shredder version %s\n", config.AppVersion)
		},
	}
}
