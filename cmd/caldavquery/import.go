package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cyp0633/caldavquery/server/index"
	"github.com/cyp0633/caldavquery/server/recurrence"
	"github.com/cyp0633/caldavquery/server/storage"
	"github.com/spf13/cobra"
)

func newImportCmd(a *app) *cobra.Command {
	var maxOccurrences int

	cmd := &cobra.Command{
		Use:   "import <collection-id> <file>...",
		Short: "Index .ics and .vcf files into a collection, creating it if needed",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			logger := cfg.Logger()

			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid collection id %q", args[0])
			}

			store, closeStore, err := cfg.OpenStore(cmd.Context(), logger)
			if err != nil {
				return err
			}
			defer closeStore()

			if _, err := store.GetCollection(cmd.Context(), id); storage.IsType(err, storage.ErrNotFound) {
				col := &storage.Collection{ID: id, Name: strconv.FormatInt(id, 10), Kind: collectionKind(args[1])}
				if err := store.CreateCollection(cmd.Context(), col); err != nil {
					return err
				}
				logger.Info("collection created", "id", id, "kind", col.Kind)
			} else if err != nil {
				return err
			}

			engine := recurrence.NewEngineWithConfig(recurrence.EngineConfig{MaxOccurrences: maxOccurrences})
			indexer := index.New(engine)
			for _, path := range args[1:] {
				data, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				item, err := indexer.Index(filepath.Base(path), data)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				item.CollectionID = id
				if err := store.PutItem(cmd.Context(), item); err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", item.UID, item.Name)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&maxOccurrences, "max-occurrences", recurrence.DefaultEngineConfig.MaxOccurrences,
		"occurrences expanded before a rule is treated as unbounded")
	return cmd
}

func collectionKind(path string) storage.Kind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".vcf", ".vcard":
		return storage.KindCard
	default:
		return storage.KindEvent
	}
}
