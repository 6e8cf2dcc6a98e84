package main

import (
	"fmt"
	"os"

	"github.com/alvmarrod/sitegraph/internal/export"
	"github.com/alvmarrod/sitegraph/internal/storage"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export [output-name]",
	Short: "Write a graph stored in SQLite back to a JSON file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		setupLogging("info")

		dbPath, _ := cmd.Flags().GetString("db")
		output := "graph"
		if len(args) > 0 {
			output = args[0]
		}

		if _, err := os.Stat(dbPath); err != nil {
			return fmt.Errorf("cannot open graph database: %w", err)
		}

		store, err := storage.NewStorage(dbPath)
		if err != nil {
			return fmt.Errorf("failed to open storage: %w", err)
		}
		defer store.Close()

		data, err := store.LoadGraph()
		if err != nil {
			return err
		}

		exporter := export.NewJSONFile(output)
		if err := exporter.Export(data); err != nil {
			return err
		}

		logrus.Infof("Exported %d nodes and %d edges from %s to %s",
			len(data.Nodes), len(data.Edges), dbPath, exporter.Path)
		return nil
	},
}

func init() {
	exportCmd.Flags().String("db", "crawler.db", "SQLite database holding a stored graph")
}
