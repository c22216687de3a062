package main

import (
	"fmt"

	"github.com/danmuck/framewire/internal/config"
	"github.com/spf13/cobra"
)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create transport config files",
	}
	cmd.AddCommand(configInitCmd(), configCheckCmd())
	return cmd
}

func configInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init FILE",
		Short: "Write a starter config with default values",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.WriteTemplate(args[0], force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")
	return cmd
}

func configCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check FILE",
		Short: "Load a config and validate it for both dialing and listening",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			report := func(side string, err error) {
				if err != nil {
					fmt.Fprintf(out, "%-6s invalid: %v\n", side, err)
					return
				}
				fmt.Fprintf(out, "%-6s ok\n", side)
			}
			clientErr := cfg.ValidateClientTransport()
			serverErr := cfg.ValidateServerTransport()
			report("client", clientErr)
			report("server", serverErr)
			if clientErr != nil && serverErr != nil {
				return fmt.Errorf("config %s is unusable", args[0])
			}
			return nil
		},
	}
}
