package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/BrandonDHaskell/qrscan/internal/qrscan/classify"
	"github.com/BrandonDHaskell/qrscan/internal/render"
)

func (c *cli) classifyCmd() *cobra.Command {
	var (
		asJSON  bool
		perform bool
	)
	cmd := &cobra.Command{
		Use:   "classify <data>...",
		Short: "Detect the payload type and suggested action without recording it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res := classify.Describe(strings.Join(args, " "))
			out := cmd.OutOrStdout()

			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}

			// Classification never touches storage, so the theme is light.
			th := render.NewTheme(false)
			fmt.Fprintln(out, render.Result(th, res))
			if perform {
				return res.Action.Perform(cmd.Context(), terminalActions{w: out, th: th})
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	cmd.Flags().BoolVar(&perform, "open", false, "perform the suggested action")
	return cmd
}
