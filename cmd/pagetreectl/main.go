// Command pagetreectl is a thin CLI front end over the pagetree engine: it
// parses flags and calls the public Tree/staticindex/gendata APIs, and
// carries no logic of its own worth testing independently of those
// packages.
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pagetree/internal/btree"
	"pagetree/internal/gendata"
	"pagetree/internal/staticindex"
	"pagetree/internal/telemetry"
)

var (
	dbPath string
	debug  bool
	logger *zap.Logger
)

func main() {
	root := &cobra.Command{
		Use:           "pagetreectl",
		Short:         "Inspect and manipulate a pagetree B+Tree file",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := telemetry.New(debug)
			if err != nil {
				l = telemetry.Fallback()
			}
			logger = l
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				telemetry.Sync(logger)
			}
		},
	}
	root.PersistentFlags().StringVar(&dbPath, "file", "pagetree.db", "path to the database file")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable verbose development logging")

	root.AddCommand(
		newInitCmd(),
		newGetCmd(),
		newPutCmd(),
		newDeleteCmd(),
		newIterCmd(),
		newCheckCmd(),
		newGenCmd(),
		newStaticBuildCmd(),
		newStaticGetCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openTree() (*btree.Tree, error) {
	t, err := btree.Open(dbPath)
	if err != nil {
		return nil, err
	}
	t.SetLogger(logger)
	return t, nil
}

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create a new, empty database file",
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := btree.Init(dbPath)
			if err != nil {
				return err
			}
			t.SetLogger(logger)
			return t.Close()
		},
	}
}

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Look up a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := parseUint32(args[0])
			if err != nil {
				return err
			}
			t, err := openTree()
			if err != nil {
				return err
			}
			defer t.Close()

			v, ok, err := t.Get(key)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("key %d not found", key)
			}
			fmt.Println(v)
			return nil
		},
	}
}

func newPutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "put <key> <value>",
		Short: "Insert or overwrite a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := parseUint32(args[0])
			if err != nil {
				return err
			}
			value, err := parseUint32(args[1])
			if err != nil {
				return err
			}
			t, err := openTree()
			if err != nil {
				return err
			}
			defer t.Close()
			return t.Put(key, value)
		},
	}
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <key>",
		Short: "Delete a key, if present",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := parseUint32(args[0])
			if err != nil {
				return err
			}
			t, err := openTree()
			if err != nil {
				return err
			}
			defer t.Close()
			return t.Delete(key)
		},
	}
}

func newIterCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "iter",
		Short: "Print every (key, value) pair in ascending order",
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := openTree()
			if err != nil {
				return err
			}
			defer t.Close()

			it, err := t.Iterate()
			if err != nil {
				return err
			}
			for it.Next() {
				rec := it.Record()
				fmt.Printf("%d\t%d\n", rec.Key, rec.Value)
			}
			return it.Err()
		},
	}
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify tree consistency and print any problems found",
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := openTree()
			if err != nil {
				return err
			}
			defer t.Close()

			if problems := t.CheckTree(); problems != "" {
				return fmt.Errorf("inconsistent tree: %s", problems)
			}
			fmt.Println("ok")
			return nil
		},
	}
}

func newGenCmd() *cobra.Command {
	var seed int64
	var count int
	cmd := &cobra.Command{
		Use:   "gen",
		Short: "Generate seeded random (key, value) pairs into the tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := openTree()
			if err != nil {
				return err
			}
			defer t.Close()

			for _, p := range gendata.RandomPairs(uint64(seed), count) {
				if err := t.Put(p.Key, p.Value); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&seed, "seed", 1, "PRNG seed")
	cmd.Flags().IntVar(&count, "count", 1000, "number of pairs to generate")
	return cmd
}

func newStaticBuildCmd() *cobra.Command {
	var seed int64
	var count int
	var out string
	cmd := &cobra.Command{
		Use:   "static-build",
		Short: "Generate a sorted static index file",
		RunE: func(cmd *cobra.Command, args []string) error {
			records := gendata.SortedUniqueRecords(uint64(seed), count)
			return staticindex.Build(out, records)
		},
	}
	cmd.Flags().Int64Var(&seed, "seed", 1, "PRNG seed")
	cmd.Flags().IntVar(&count, "count", 1000, "number of records to generate")
	cmd.Flags().StringVar(&out, "out", "static.idx", "output file path")
	return cmd
}

func newStaticGetCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "static-get <key>",
		Short: "Look up a key in a static index file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := parseUint32(args[0])
			if err != nil {
				return err
			}
			ix, err := staticindex.Open(path)
			if err != nil {
				return err
			}
			defer ix.Close()

			v, ok := ix.Get(key)
			if !ok {
				return fmt.Errorf("key %d not found", key)
			}
			fmt.Println(v)
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "index", "static.idx", "path to the static index file")
	return cmd
}

func parseUint32(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid key/value %q: %w", s, err)
	}
	return uint32(v), nil
}
