package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (c *cli) prefsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Show or change preferences",
	}
	cmd.AddCommand(c.darkModeCmd())
	return cmd
}

func (c *cli) darkModeCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "dark-mode [on|off|toggle]",
		Short:     "Show or set the dark display mode",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"on", "off", "toggle"},
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			var on bool
			switch {
			case len(args) == 0:
				on, err = a.prefs.DarkMode(ctx)
			case args[0] == "toggle":
				on, err = a.prefs.ToggleDarkMode(ctx)
			default:
				on = args[0] == "on"
				err = a.prefs.SetDarkMode(ctx, on)
			}
			if err != nil {
				return err
			}

			state := "off"
			if on {
				state = "on"
			}
			fmt.Fprintln(cmd.OutOrStdout(), "dark mode:", state)
			return nil
		},
	}
}
