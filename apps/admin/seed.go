package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	inmemdb "github.com/trezcool/kodi/storage/database/inmem"
	"github.com/trezcool/kodi/storage/seed"
)

func (cli *commandLine) seedCommand() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the demo data, or a JSON snapshot, into the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			snap, err := readSnapshot(file)
			if err != nil {
				return err
			}
			return cli.invoke(func(store *inmemdb.DB) error {
				if err := store.Import(cmd.Context(), snap); err != nil {
					return err
				}
				cli.printCounts(store.Counts())
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "snapshot to load instead of the demo data")
	return cmd
}

func readSnapshot(file string) (inmemdb.Snapshot, error) {
	if file == "" {
		return seed.MockData()
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return inmemdb.Snapshot{}, errors.Wrap(err, "reading snapshot")
	}
	return seed.Parse(data)
}

func (cli *commandLine) printCounts(counts map[string]int) {
	kinds := make([]string, 0, len(counts))
	for kind := range counts {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	for _, kind := range kinds {
		_, _ = fmt.Fprintf(cli.out, "%s: %d\n", kind, counts[kind])
	}
}
