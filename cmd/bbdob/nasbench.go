package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/copyleftdev/bbdob/internal/objective/nasbench"
)

func newNasBenchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nasbench",
		Short: "Manage the NAS-Bench-101 SQLite store",
	}
	cmd.AddCommand(newNasBenchImportCmd(a), newNasBenchStatsCmd(a))
	return cmd
}

func (a *app) requireDB() error {
	if a.dbPath == "" {
		return errors.New("no store given: pass --db or set NASBENCH_DB")
	}
	return nil
}

func newNasBenchImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE.jsonl",
		Short: "Import a JSONL dump into the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireDB(); err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			fi, err := f.Stat()
			if err != nil {
				return err
			}

			store, err := nasbench.OpenSQLite(cmd.Context(), a.dbPath, nasbench.WithStoreLogger(a.zap()))
			if err != nil {
				return err
			}
			defer store.Close()

			start := time.Now()
			n, err := store.Import(cmd.Context(), f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %s records from %s (%s) in %s\n",
				humanize.Comma(int64(n)), args[0], humanize.Bytes(uint64(fi.Size())),
				time.Since(start).Round(time.Millisecond))
			return nil
		},
	}
}

func newNasBenchStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show the size of the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireDB(); err != nil {
				return err
			}
			fi, err := os.Stat(a.dbPath)
			if err != nil {
				return err
			}
			store, err := nasbench.OpenSQLite(cmd.Context(), a.dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			n, err := store.Count(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s records, %s, modified %s\n",
				a.dbPath, humanize.Comma(int64(n)), humanize.Bytes(uint64(fi.Size())),
				humanize.Time(fi.ModTime()))
			return nil
		},
	}
}
