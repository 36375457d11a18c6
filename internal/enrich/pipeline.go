// Package enrich drives message enrichment: single-message, resumable
// batch, and append-only streaming.
package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/telefeed/backend/internal/analysis"
	"github.com/telefeed/backend/internal/message"
	"github.com/telefeed/backend/internal/metrics"
	"github.com/telefeed/backend/pkg/logger"
)

// DefaultFlushInterval bounds data loss on a crashed batch run to this
// many messages.
const DefaultFlushInterval = 50

type Pipeline struct {
	analyzer      analysis.Analyzer
	hints         analysis.Hints
	flushInterval int
}

type Option func(*Pipeline)

func WithFlushInterval(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.flushInterval = n
		}
	}
}

func NewPipeline(analyzer analysis.Analyzer, hints analysis.Hints, opts ...Option) *Pipeline {
	p := &Pipeline{
		analyzer:      analyzer,
		hints:         hints,
		flushInterval: DefaultFlushInterval,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Enrich analyzes one raw message. Empty text short-circuits to the
// defined default record without touching any backend.
func (p *Pipeline) Enrich(ctx context.Context, raw message.Raw) (message.Enriched, error) {
	enriched := message.FromRaw(raw)

	if raw.Text == "" {
		enriched.Analysis = message.DefaultAnalysis()
		return enriched, nil
	}

	start := time.Now()
	result, err := p.analyzer.AnalyzeAndLocate(ctx, raw.Text, p.hints)
	metrics.EnrichmentDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.MessagesEnriched.WithLabelValues("error").Inc()
		return enriched, err
	}

	enriched.Analysis = aggregate(result)
	metrics.MessagesEnriched.WithLabelValues("ok").Inc()
	return enriched, nil
}

// aggregate converts an analysis result into the persisted shape,
// dropping place mentions whose coordinates could not be resolved. This
// is the only point where unresolved entries are discarded.
func aggregate(result *analysis.Result) *message.Analysis {
	a := &message.Analysis{
		TextEnglish: result.Translation,
		Geolocs:     []string{},
		Coordinates: [][2]float64{},
		Sentiment:   result.Sentiment,
	}
	for _, place := range result.Geolocations {
		if !place.Resolved {
			continue
		}
		a.Geolocs = append(a.Geolocs, place.Name)
		a.Coordinates = append(a.Coordinates, [2]float64{place.Latitude, place.Longitude})
	}
	return a
}

// EnrichAll enriches a batch in place, preserving input order. Records
// already carrying enrichment fields are skipped, which makes the run
// resumable after an interruption. The partial result set is flushed to
// outPath every flushInterval processed messages and once more on
// completion. A single message's failure logs a warning, leaves that
// record un-enriched, and never aborts the batch.
func (p *Pipeline) EnrichAll(ctx context.Context, msgs []message.Enriched, outPath string) error {
	processed := 0

	for i := range msgs {
		select {
		case <-ctx.Done():
			if err := WriteBatch(outPath, msgs); err != nil {
				logger.Error("Failed to flush on cancellation", zap.Error(err))
			}
			return ctx.Err()
		default:
		}

		if msgs[i].IsEnriched() {
			continue
		}

		enriched, err := p.Enrich(ctx, msgs[i].Raw)
		if err != nil {
			logger.Warn("Enrichment failed, leaving message un-enriched",
				zap.String("account", msgs[i].Account),
				zap.Int64("message_id", msgs[i].ID),
				zap.Error(err),
			)
		} else {
			msgs[i] = enriched
		}

		processed++
		if processed%p.flushInterval == 0 {
			if err := WriteBatch(outPath, msgs); err != nil {
				return fmt.Errorf("failed to flush batch: %w", err)
			}
			logger.Info("Partial batch flushed",
				zap.Int("processed", processed),
				zap.Int("total", len(msgs)),
			)
		}
	}

	if err := WriteBatch(outPath, msgs); err != nil {
		return fmt.Errorf("failed to write final batch: %w", err)
	}

	logger.Info("Batch enrichment complete",
		zap.Int("processed", processed),
		zap.Int("total", len(msgs)),
		zap.String("path", outPath),
	)

	return nil
}

// WriteBatch persists the batch as a pretty-printed UTF-8 JSON array.
// Non-Latin scripts are kept verbatim. The write goes through a temp
// file and rename so a crash mid-flush cannot truncate the previous
// snapshot.
func WriteBatch(path string, msgs []message.Enriched) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	enc := json.NewEncoder(tmp)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(msgs); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode batch: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace batch file: %w", err)
	}

	return nil
}

// ReadBatch loads a batch file written by WriteBatch.
func ReadBatch(path string) ([]message.Enriched, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}

	var msgs []message.Enriched
	if err := json.Unmarshal(data, &msgs); err != nil {
		return nil, fmt.Errorf("failed to decode batch file: %w", err)
	}

	return msgs, nil
}
