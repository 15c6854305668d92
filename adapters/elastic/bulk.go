// Package elastic loads enriched cost records into Elasticsearch through the
// bulk NDJSON protocol, batching records and routing each one to a
// month-bucketed index derived from its usage start time.
package elastic

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"azure-costs/core/dedupe"
	"azure-costs/core/document"
	"azure-costs/internal/errors"
	"azure-costs/internal/logging"
)

const (
	// DefaultBatchSize is the number of documents per bulk request.
	DefaultBatchSize = 10000

	// indexPrefix is the destination index name prefix; the full name is
	// <prefix>-<UTC year>.<zero-padded UTC month>.
	indexPrefix = "azurecosts"
)

// usageStartTime layouts accepted at the indexing boundary.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
}

// BulkDocument pairs one payload with its bulk-write metadata.
type BulkDocument struct {
	Index    string
	ID       string
	Document document.Document
}

// Config configures the indexer.
type Config struct {
	// URL of the destination cluster
	URL string

	// Username and Password for basic auth
	Username string
	Password string

	// BatchSize overrides the default batch size (tests)
	BatchSize int

	// DebugDump persists bulk bodies and responses to numbered files
	DebugDump bool

	// DumpDir is where debug dumps are written
	DumpDir string

	// HTTPClient overrides the transport (tests)
	HTTPClient *http.Client
}

// Indexer writes cost documents to the destination store.
type Indexer struct {
	http      *http.Client
	url       string
	auth      string
	batchSize int
	debugDump bool
	dumpDir   string

	dumpCount int
}

// NewIndexer creates an indexer.
func NewIndexer(cfg Config) *Indexer {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Minute}
	}

	ix := &Indexer{
		http:      httpClient,
		url:       strings.TrimRight(cfg.URL, "/"),
		auth:      base64.StdEncoding.EncodeToString([]byte(cfg.Username + ":" + cfg.Password)),
		batchSize: cfg.BatchSize,
		debugDump: cfg.DebugDump,
		dumpDir:   cfg.DumpDir,
	}
	if ix.batchSize <= 0 {
		ix.batchSize = DefaultBatchSize
	}
	if ix.dumpDir == "" {
		ix.dumpDir = "."
	}
	return ix
}

// Close releases idle connections held by the indexer.
func (ix *Indexer) Close() {
	ix.http.CloseIdleConnections()
}

// SaveCosts batches cost documents and writes each batch to the bulk
// endpoint. Records without a parseable usageStartTime are logged and
// skipped; a failed bulk request aborts the whole save.
func (ix *Indexer) SaveCosts(ctx context.Context, costs []document.Document) error {
	for i := 0; i < len(costs); i += ix.batchSize {
		end := i + ix.batchSize
		if end > len(costs) {
			end = len(costs)
		}

		var rows []BulkDocument
		for _, cost := range costs[i:end] {
			value, ok := cost.GetString("properties.usageStartTime")
			if !ok {
				logging.Warn("invalid cost (missing usageStartTime)", zap.String("cost", cost.String()))
				continue
			}
			usageStartTime, err := parseUsageStartTime(value)
			if err != nil {
				logging.Warn("invalid cost (invalid usageStartTime)", zap.String("cost", cost.String()))
				continue
			}

			rows = append(rows, BulkDocument{
				Index:    IndexName(usageStartTime),
				ID:       dedupe.Hash(cost),
				Document: cost,
			})
		}

		if err := ix.PutIntoIndex(ctx, rows); err != nil {
			return err
		}
	}

	return nil
}

// IndexName returns the month-bucketed index for a usage start time. The
// bucket is a function of the record's own timestamp (UTC), never of
// processing time.
func IndexName(usageStartTime time.Time) string {
	utc := usageStartTime.UTC()
	return fmt.Sprintf("%s-%04d.%02d", indexPrefix, utc.Year(), int(utc.Month()))
}

// PutIntoIndex writes one batch of documents to the bulk endpoint as
// newline-delimited metadata/payload pairs.
func (ix *Indexer) PutIntoIndex(ctx context.Context, rows []BulkDocument) error {
	if len(rows) == 0 {
		return nil
	}

	var sb strings.Builder
	for _, row := range rows {
		meta, err := json.Marshal(bulkAction{Index: bulkMeta{Index: row.Index, ID: row.ID}})
		if err != nil {
			return errors.Internal("marshaling bulk metadata", err)
		}
		sb.Write(meta)
		sb.WriteByte('\n')
		sb.WriteString(row.Document.Canonical())
		sb.WriteByte('\n')
	}

	logging.Info("importing documents", zap.Int("count", len(rows)))
	if err := ix.importRows(ctx, sb.String()); err != nil {
		return err
	}
	logging.Info("import done")

	return nil
}

type bulkAction struct {
	Index bulkMeta `json:"index"`
}

type bulkMeta struct {
	Index string `json:"_index"`
	ID    string `json:"_id,omitempty"`
}

func (ix *Indexer) importRows(ctx context.Context, bulkData string) error {
	ix.writeDebug(bulkData, "post")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ix.url+"/_bulk", strings.NewReader(bulkData))
	if err != nil {
		return errors.Store("building bulk request", err)
	}
	req.Header.Set("Authorization", "Basic "+ix.auth)
	req.Header.Set("Accept", "application/json")
	// The destination rejects a charset parameter on the content type.
	req.Header.Set("Content-Type", "application/x-ndjson")

	resp, err := ix.http.Do(req)
	if err != nil {
		return errors.Store("bulk request failed", err)
	}
	defer resp.Body.Close()

	result, _ := io.ReadAll(resp.Body)
	ix.writeDebug(string(result), "result")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.Newf(errors.TypeStore, "bulk request returned status %d", resp.StatusCode).
			WithContext("body", string(result))
	}

	return nil
}

// writeDebug persists a message to a numbered file, as .json when the content
// parses and .txt otherwise.
func (ix *Indexer) writeDebug(message, action string) {
	if !ix.debugDump {
		return
	}

	ext := "txt"
	content := message
	if doc, err := document.Parse([]byte(message)); err == nil {
		ext = "json"
		content = doc.Get("@pretty").Raw
	}

	name := filepath.Join(ix.dumpDir, fmt.Sprintf("elastic_%d_%s.%s", ix.dumpCount, action, ext))
	ix.dumpCount++
	if err := os.WriteFile(name, []byte(content), 0644); err != nil {
		logging.Warn("writing debug dump", zap.String("file", name), zap.Error(err))
	}
}

func parseUsageStartTime(value string) (time.Time, error) {
	var lastErr error
	for _, layout := range timeLayouts {
		t, err := time.ParseInLocation(layout, value, time.UTC)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
