// Command docqa ingests documents given on the command line and then opens
// the interactive question console.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"docqa/internal/app"
	"docqa/internal/domain"
	"docqa/internal/logger"
	"docqa/internal/tui"
	"docqa/internal/vectorstore"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (default: ./config.yaml, then ~/.config/docqa/config.yaml)")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()

	_ = godotenv.Load()

	mode := "prod"
	if *verbose {
		mode = "dev"
	}
	log, err := logger.New(mode)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(log, *configPath, flag.Args()); err != nil {
		log.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(log *logger.Logger, configPath string, inputs []string) error {
	cfg, path, err := app.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log.Debug("config loaded", "path", path)

	svc, err := app.Build(log, cfg)
	if err != nil {
		return err
	}

	if err := svc.LoadIndex(cfg.Index.Path); err != nil {
		if errors.Is(err, vectorstore.ErrSnapshotMismatch) {
			log.Warn("index snapshot incompatible with configured embedder, starting empty", "path", cfg.Index.Path)
		} else {
			return fmt.Errorf("load index: %w", err)
		}
	}

	ctx := context.Background()
	for _, input := range inputs {
		var doc *domain.Document
		if strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://") {
			doc, err = svc.IngestURL(ctx, input)
		} else {
			doc, err = svc.IngestFile(ctx, input)
		}
		if err != nil {
			// A failed document is recorded with its error; keep going so one
			// bad file does not abort the batch.
			if doc != nil {
				continue
			}
			return fmt.Errorf("ingest %s: %w", input, err)
		}
	}
	if len(inputs) > 0 {
		if err := svc.SaveIndex(cfg.Index.Path); err != nil {
			return fmt.Errorf("save index: %w", err)
		}
	}

	st, err := svc.Status(ctx)
	if err != nil {
		return err
	}
	log.Info("ready", "chunks", st.Index.Chunks, "sources", st.Index.Sources)

	p := tea.NewProgram(tui.NewModel(svc))
	_, err = p.Run()
	return err
}
