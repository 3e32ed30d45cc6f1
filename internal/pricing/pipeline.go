package pricing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/databunker/pricewatch/internal/blob"
	"github.com/databunker/pricewatch/internal/config"
	"github.com/databunker/pricewatch/internal/logger"
)

// SnapshotSource provides the day's raw competitor rows. The production
// implementation queries the analytical warehouse; tests stub it.
type SnapshotSource interface {
	FetchSnapshot(ctx context.Context, channels, storeIDs []string, targetDate time.Time) ([]CompetitorRow, error)
}

// Pipeline runs one day's ETL: fetch, normalize, match, price delta,
// permanence, validation and persistence.
type Pipeline struct {
	source    SnapshotSource
	blobs     blob.Store
	cfg       config.Config
	appLogger *logger.Logger
}

func NewPipeline(source SnapshotSource, blobs blob.Store, cfg config.Config, appLogger *logger.Logger) *Pipeline {
	return &Pipeline{source: source, blobs: blobs, cfg: cfg, appLogger: appLogger}
}

// Result is one run's output. Permanence is nil when the history was too
// short, which is an expected outcome, not a failure.
type Result struct {
	Rows        []CompetitorRow
	Permanence  []PermanenceRecord
	Summary     *Summary
	SnapshotKey string
}

// Run executes the full pipeline for targetDate. Structural anomalies
// (unreachable source, missing reference files, persistence failures)
// return an error; data-quality findings only degrade the summary.
func (p *Pipeline) Run(ctx context.Context, targetDate time.Time) (*Result, error) {
	const component = "Pipeline"

	dateStr := targetDate.Format("2006-01-02")
	p.appLogger.Info(component, "Starting pipeline run: date=%s", dateStr)

	rows, err := p.source.FetchSnapshot(ctx, p.cfg.Channels, p.cfg.StoreIDs, targetDate)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch snapshot: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("snapshot for %s is empty", dateStr)
	}
	p.appLogger.Info(component, "Fetched raw snapshot: rows=%d", len(rows))

	rows = Normalize(rows, p.cfg, p.appLogger)

	if mapping := p.loadHomologation(ctx); len(mapping) > 0 {
		ApplyHomologation(rows, mapping, p.appLogger)
	}

	RenameChannels(rows, p.cfg.ChannelAliases)
	RemapPromoChannels(rows, p.cfg, p.appLogger)

	matchTable, err := p.loadMatchTable(ctx)
	if err != nil {
		return nil, err
	}
	catalog, err := p.loadCatalog(ctx)
	if err != nil {
		return nil, err
	}
	Match(rows, matchTable, catalog, p.cfg, p.appLogger)

	ApplyPromoDiscounts(rows, p.cfg, p.appLogger)

	rows, err = LastPriceFromHistory(ctx, p.blobs, p.cfg.CompetitorsPrefix, rows, p.cfg.MergeKeys, dateStr, p.appLogger)
	if err != nil {
		return nil, err
	}

	permanence, err := BuildPermanence(ctx, rows, p.blobs, p.cfg, p.appLogger)
	if err != nil {
		if !errors.Is(err, ErrInsufficientHistory) {
			return nil, err
		}
		p.appLogger.Warn(component, "Permanence skipped: %v", err)
		permanence = nil
	}

	rows, summary := Validate(ctx, rows, targetDate, p.blobs, p.cfg, p.appLogger)

	snapshotKey := p.cfg.CompetitorsPrefix + fmt.Sprintf(p.cfg.SnapshotFilePattern, dateStr)
	var buf bytes.Buffer
	if err := WriteSnapshotCSV(&buf, rows, p.cfg.SnapshotColumns); err != nil {
		return nil, err
	}
	if err := p.blobs.Put(ctx, snapshotKey, buf.Bytes()); err != nil {
		return nil, fmt.Errorf("failed to persist snapshot: %w", err)
	}
	p.appLogger.Info(component, "Snapshot persisted: key=%s rows=%d", snapshotKey, len(rows))

	if len(permanence) > 0 {
		permanenceKey := p.cfg.PermanencePrefix + p.cfg.PermanenceFile
		buf.Reset()
		if err := WritePermanenceCSV(&buf, permanence); err != nil {
			return nil, err
		}
		if err := p.blobs.Put(ctx, permanenceKey, buf.Bytes()); err != nil {
			return nil, fmt.Errorf("failed to persist permanence table: %w", err)
		}
		p.appLogger.Info(component, "Permanence table persisted: key=%s keys=%d", permanenceKey, len(permanence))
	}

	p.appLogger.Info(component, "Pipeline run finished: date=%s level=%s", dateStr, summary.Level)
	return &Result{
		Rows:        rows,
		Permanence:  permanence,
		Summary:     summary,
		SnapshotKey: snapshotKey,
	}, nil
}

// loadHomologation fetches the optional UPC homologation table. Absence
// is not an error.
func (p *Pipeline) loadHomologation(ctx context.Context) map[string]string {
	const component = "Pipeline"

	objects, err := p.blobs.List(ctx, p.cfg.HomologationPrefix)
	if err != nil {
		p.appLogger.Warn(component, "Homologation listing failed, skipping: %v", err)
		return nil
	}
	key := ""
	for _, obj := range objects {
		if strings.Contains(obj.Key, p.cfg.HomologationFile) {
			key = obj.Key
			break
		}
	}
	if key == "" {
		p.appLogger.Info(component, "No homologation file found, UPCs kept as extracted")
		return nil
	}

	data, err := p.blobs.Get(ctx, key)
	if err != nil {
		p.appLogger.Warn(component, "Failed to read homologation file: key=%s error=%v", key, err)
		return nil
	}
	mapping, err := ParseHomologation(data)
	if err != nil {
		p.appLogger.Warn(component, "Failed to parse homologation file: key=%s error=%v", key, err)
		return nil
	}
	return mapping
}

// loadMatchTable fetches the match reference. The matcher cannot run
// without it, so absence is structural.
func (p *Pipeline) loadMatchTable(ctx context.Context) ([]MatchEntry, error) {
	data, err := p.latestUnder(ctx, p.cfg.MatchPrefix)
	if err != nil {
		return nil, fmt.Errorf("match table: %w", err)
	}
	entries, err := ParseMatchTable(data)
	if err != nil {
		return nil, fmt.Errorf("match table: %w", err)
	}
	return entries, nil
}

func (p *Pipeline) loadCatalog(ctx context.Context) ([]CatalogEntry, error) {
	data, err := p.latestUnder(ctx, p.cfg.ClientPrefix)
	if err != nil {
		return nil, fmt.Errorf("client catalog: %w", err)
	}
	entries, err := ParseCatalog(data)
	if err != nil {
		return nil, fmt.Errorf("client catalog: %w", err)
	}
	return entries, nil
}

// latestUnder returns the content of the most recently modified object
// under prefix, or ErrMissingReference when the prefix is empty.
func (p *Pipeline) latestUnder(ctx context.Context, prefix string) ([]byte, error) {
	objects, err := p.blobs.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	if len(objects) == 0 {
		return nil, fmt.Errorf("%w: prefix %s", ErrMissingReference, prefix)
	}

	latest := objects[0]
	for _, obj := range objects[1:] {
		if obj.LastModified.After(latest.LastModified) {
			latest = obj
		}
	}
	return p.blobs.Get(ctx, latest.Key)
}
