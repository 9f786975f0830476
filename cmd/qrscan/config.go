package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func (c *cli) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or write the YAML config",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the effective config (defaults, env and flags) to --config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				if _, err := os.Stat(c.configPath); err == nil {
					return fmt.Errorf("%s already exists (use --force to overwrite)", c.configPath)
				} else if !errors.Is(err, os.ErrNotExist) {
					return err
				}
			}
			if err := c.cfg.Save(c.configPath); err != nil {
				return err
			}
			c.logger.Debug("config written")
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", c.configPath)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	cmd.AddCommand(initCmd)
	return cmd
}
