package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	dbpkg "github.com/BrandonDHaskell/qrscan/internal/db"
	"github.com/BrandonDHaskell/qrscan/internal/qrscan/classify"
	"github.com/BrandonDHaskell/qrscan/internal/qrscan/store"
	"github.com/BrandonDHaskell/qrscan/internal/render"
)

func (c *cli) historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List, edit, export and import the scan history",
	}
	cmd.AddCommand(
		c.historyListCmd(),
		c.historyAddCmd(),
		c.historyDeleteCmd(),
		c.historyClearCmd(),
		c.historyExportCmd(),
		c.historyImportCmd(),
		c.historySeedCmd(),
	)
	return cmd
}

func (c *cli) historyListCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show the history, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			recs := a.history.Records()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(recs)
			}
			fmt.Fprintln(out, render.History(c.theme(cmd.Context(), a.prefs), recs))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print records as JSON")
	return cmd
}

func (c *cli) historyAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <data>...",
		Short: "Record a payload by hand, as if it had been scanned",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer a.Close()

			rec, err := a.history.Append(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			th := c.theme(cmd.Context(), a.prefs)
			fmt.Fprintln(cmd.OutOrStdout(), render.Result(th, classify.Describe(rec.Data)))
			fmt.Fprintln(cmd.OutOrStdout(), th.Muted.Render("Saved as #"+strconv.FormatInt(rec.ID, 10)))
			return persistWarning(cmd, a)
		},
	}
}

func (c *cli) historyDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove one record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid id %q: %w", args[0], err)
			}

			a, err := c.open(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer a.Close()

			if !a.history.DeleteByID(cmd.Context(), id) {
				fmt.Fprintf(cmd.OutOrStdout(), "No record #%d\n", id)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted #%d\n", id)
			return persistWarning(cmd, a)
		},
	}
}

func (c *cli) historyClearCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete the whole history (asks first)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes && !confirm(cmd, "Clear all scan history? [y/N] ") {
				fmt.Fprintln(cmd.OutOrStdout(), "Aborted")
				return nil
			}

			a, err := c.open(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer a.Close()

			a.history.Clear(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), "History cleared")
			return persistWarning(cmd, a)
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func (c *cli) historyExportCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the history to qr-scan-history-<date>.json",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer a.Close()

			f, err := a.history.Export(time.Now())
			if err != nil {
				return err
			}
			path := filepath.Join(dir, f.Name)
			if err := os.WriteFile(path, f.Data, 0o644); err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d record(s) to %s\n", a.history.Len(), path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "directory to write the export into")
	return cmd
}

func (c *cli) historyImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Prepend records from an export file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			contents, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read import: %w", err)
			}

			a, err := c.open(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.history.Import(cmd.Context(), contents)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d record(s)\n", n)
			return persistWarning(cmd, a)
		},
	}
}

// historySeedCmd fills an empty dev database with demo scans.
func (c *cli) historySeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:    "seed",
		Short:  "Insert demo records into an empty dev database",
		Args:   cobra.NoArgs,
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.cfg.Env != "dev" {
				return errors.New("seed is only available when env=dev")
			}
			if c.ephemeral {
				return errors.New("seed needs a database; drop --ephemeral")
			}

			a, err := c.open(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer a.Close()

			err = dbpkg.SeedDev(cmd.Context(), a.db, dbpkg.SeedDevOptions{
				HistoryKey: store.KeyHistory,
				Now:        time.Now(),
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Seeded (existing history is never overwritten)")
			return nil
		},
	}
}

func confirm(cmd *cobra.Command, prompt string) bool {
	fmt.Fprint(cmd.OutOrStdout(), prompt)
	line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

// persistWarning tells the user a change only lives in this process.  The
// command still succeeds.
func persistWarning(cmd *cobra.Command, a *app) error {
	if err := a.history.PersistErr(); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "warning: history not saved:", err)
	}
	return nil
}
