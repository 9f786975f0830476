package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	dbpkg "github.com/BrandonDHaskell/qrscan/internal/db"
)

func (c *cli) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show storage location, schema version and key usage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := c.open(ctx, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			defer tw.Flush()

			persistence := "ok"
			if err := a.history.PersistErr(); err != nil {
				persistence = "degraded: " + err.Error()
			}

			if a.sqlKV == nil {
				fmt.Fprintf(tw, "store:\tephemeral (memory)\n")
				fmt.Fprintf(tw, "records:\t%d\n", a.history.Len())
				fmt.Fprintf(tw, "persistence:\t%s\n", persistence)
				return nil
			}

			version, err := dbpkg.SchemaVersion(ctx, a.db)
			if err != nil {
				return err
			}
			stats, err := a.sqlKV.Stats(ctx)
			if err != nil {
				return err
			}

			fmt.Fprintf(tw, "store:\t%s\n", c.cfg.DBPath)
			fmt.Fprintf(tw, "schema:\tv%d\n", version)
			fmt.Fprintf(tw, "records:\t%d\n", a.history.Len())
			fmt.Fprintf(tw, "persistence:\t%s\n", persistence)
			for _, s := range stats {
				fmt.Fprintf(tw, "key %s:\t%d bytes, %d writes, updated %s\n",
					s.Key, s.Bytes, s.Writes, s.UpdatedAt.Format("2006-01-02 15:04:05Z"))
			}
			return nil
		},
	}
}
