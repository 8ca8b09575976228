package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/kirillkom/document-classifier/internal/bootstrap"
	"github.com/kirillkom/document-classifier/internal/config"
	"github.com/kirillkom/document-classifier/internal/core/domain"
	"github.com/kirillkom/document-classifier/internal/core/ports"
	"github.com/kirillkom/document-classifier/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/document-classifier/internal/observability/logging"
)

func newRootCmd() *cobra.Command {
	var cfg config.Config

	root := &cobra.Command{
		Use:          "docctl",
		Short:        "Operate the document classification pipeline",
		SilenceUsage: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			cfg = config.Load()
			slog.SetDefault(logging.NewJSONLoggerTo(os.Stderr, "docctl", cfg.LogLevel))
		},
	}

	publishCmd := &cobra.Command{
		Use:   "publish <container> <key>...",
		Short: "Publish an object-created notification for each key",
		Long:  `Keys are given decoded; they are percent-encoded the way storage notifications deliver them.`,
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := bootstrap.New(cmd.Context(), cfg, "docctl")
			if err != nil {
				return err
			}
			defer app.Close()
			transport, err := bootstrap.NewTransport(cfg, app.Guard)
			if err != nil {
				return err
			}
			defer transport.Close()
			return runPublish(cmd.Context(), transport, cmd.OutOrStdout(), args[0], args[1:])
		},
	}

	processCmd := &cobra.Command{
		Use:   "process <container> <key>",
		Short: "Run extraction, analysis and storage for one object synchronously",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := bootstrap.New(cmd.Context(), cfg, "docctl")
			if err != nil {
				return err
			}
			defer app.Close()
			return runProcess(cmd.Context(), app.Ingestor, cmd.OutOrStdout(), args[0], args[1])
		},
	}

	getCmd := &cobra.Command{
		Use:   "get <document-id>",
		Short: "Print the stored analysis record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := bootstrap.New(cmd.Context(), cfg, "docctl")
			if err != nil {
				return err
			}
			defer app.Close()
			return runGet(cmd.Context(), app.Lookup, cmd.OutOrStdout(), args[0])
		},
	}

	putCmd := &cobra.Command{
		Use:   "put <container> <key> <file>",
		Short: "Copy a file into local object storage for the local extractor",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			storage, err := localfs.New(cfg.StoragePath)
			if err != nil {
				return err
			}
			return runPut(cmd.Context(), storage, cmd.OutOrStdout(), args[0], args[1], args[2])
		},
	}

	root.AddCommand(publishCmd, processCmd, getCmd, putCmd)
	return root
}

func runPublish(ctx context.Context, publisher ports.EventPublisher, out io.Writer, container string, keys []string) error {
	docs := make([]domain.DocumentEvent, 0, len(keys))
	for _, key := range keys {
		docs = append(docs, domain.DocumentEvent{Container: container, ObjectKey: domain.EncodeObjectKey(key)})
	}
	if err := publisher.PublishDocumentEvents(ctx, docs); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	for _, key := range keys {
		fmt.Fprintln(out, domain.DeriveDocumentID(container, key))
	}
	return nil
}

func runProcess(ctx context.Context, ingestor ports.DocumentIngestor, out io.Writer, container, key string) error {
	record, err := ingestor.Process(ctx, domain.DocumentEvent{Container: container, ObjectKey: domain.EncodeObjectKey(key)})
	if err != nil {
		return err
	}
	return printJSON(out, record)
}

func runGet(ctx context.Context, reader ports.AnalysisReader, out io.Writer, documentID string) error {
	item, err := reader.GetByID(ctx, documentID)
	if err != nil {
		return err
	}
	return printJSON(out, item)
}

func runPut(ctx context.Context, storage *localfs.Storage, out io.Writer, container, key, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	if err := storage.Save(ctx, container, key, f); err != nil {
		return err
	}
	fmt.Fprintln(out, domain.DeriveDocumentID(container, key))
	return nil
}

func printJSON(out io.Writer, payload any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}
