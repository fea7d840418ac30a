// Command card-import loads a JSON array of cards into the configured store.
// Entries are validated strictly: a special card that carries a rarity is
// rejected rather than corrected.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"card-admin/internal/config"
	"card-admin/internal/domain"
	"card-admin/internal/observability"
	"card-admin/internal/repository"
	"card-admin/internal/service"
	"card-admin/internal/validation"
)

var errImportFailed = errors.New("some cards were not imported")

// cardImporter is the part of CardService the tool needs.
type cardImporter interface {
	Import(ctx context.Context, raw map[string]any) (*domain.Card, error)
}

func main() {
	file := flag.String("file", "", "path to a JSON array of cards (\"-\" reads stdin)")
	flag.Parse()

	if err := run(*file); err != nil {
		if !errors.Is(err, errImportFailed) {
			slog.Error("import aborted", slog.String("error", err.Error()))
		}
		os.Exit(1)
	}
}

func run(file string) error {
	if file == "" {
		return fmt.Errorf("-file is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	observability.InitLogger(cfg.LogLevel, cfg.LogFormat)

	in, err := openInput(file)
	if err != nil {
		return err
	}
	defer in.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	openCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	stores, err := repository.Open(openCtx, cfg)
	cancel()
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer stores.Close()

	if stores.Backend == config.BackendMemory {
		slog.Warn("no database configured; imported cards are discarded when the tool exits")
	}

	cards := service.NewCardService(stores.Cards, validation.New(), nil)
	report, err := importCards(ctx, cards, in)
	if err != nil {
		return err
	}

	slog.Info("import finished",
		slog.String("backend", stores.Backend),
		slog.Int("imported", report.Imported),
		slog.Int("failed", len(report.Failures)))
	if len(report.Failures) > 0 {
		return errImportFailed
	}
	return nil
}

func openInput(file string) (io.ReadCloser, error) {
	if file == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(file)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	return f, nil
}

// importFailure records why one entry was not stored.
type importFailure struct {
	Index  int
	Title  string
	Err    error
	Fields map[string]string
}

type importReport struct {
	Imported int
	Failures []importFailure
}

// importCards stores every entry of a JSON array, continuing past invalid
// entries. It stops early only on malformed input or a storage failure.
func importCards(ctx context.Context, cards cardImporter, r io.Reader) (importReport, error) {
	var report importReport

	var entries []json.RawMessage
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return report, fmt.Errorf("input must be a JSON array of card objects: %w", err)
	}

	for i, entry := range entries {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		var raw map[string]any
		if err := json.Unmarshal(entry, &raw); err != nil || raw == nil {
			report.Failures = append(report.Failures, importFailure{Index: i, Err: errors.New("entry is not a JSON object")})
			slog.Warn("skipping entry", slog.Int("index", i), slog.String("error", "not a JSON object"))
			continue
		}
		title, _ := raw[domain.FieldTitle].(string)

		card, err := cards.Import(ctx, raw)
		if err != nil {
			var verr *domain.ValidationError
			if !errors.As(err, &verr) {
				return report, fmt.Errorf("entry %d (%q): %w", i, title, err)
			}
			report.Failures = append(report.Failures, importFailure{Index: i, Title: title, Err: err, Fields: verr.FieldMessages()})
			slog.Warn("rejected entry",
				slog.Int("index", i),
				slog.String("titre", title),
				slog.Any("errors", verr.FieldMessages()))
			continue
		}

		report.Imported++
		slog.Info("imported card", slog.Int("index", i), slog.String("id", card.ID), slog.String("titre", card.Title))
	}
	return report, nil
}
