package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/elastic/go-elasticsearch/v9/esutil"
	"github.com/use-agent/tablescout/config"
	"github.com/use-agent/tablescout/models"
	"github.com/use-agent/tablescout/profile"
)

// Elastic bulk-indexes records into "<prefix>-<profile>", one document per
// record with the record key as document ID. Re-running a profile
// overwrites rows that were already indexed.
type Elastic struct {
	client *elasticsearch.TypedClient
	prefix string
}

// NewElastic connects to the configured cluster. It returns nil when no
// addresses are configured.
func NewElastic(cfg config.ElasticConfig) (*Elastic, error) {
	if len(cfg.Addresses) == 0 {
		return nil, nil
	}
	client, err := elasticsearch.NewTypedClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch client: %w", err)
	}
	return &Elastic{client: client, prefix: cfg.IndexPrefix}, nil
}

// IndexName returns the index a profile's records go to.
func (e *Elastic) IndexName(profileName string) string {
	return strings.ToLower(e.prefix + "-" + profileName)
}

// Document is the indexed form of a record.
type Document struct {
	Profile   string         `json:"profile"`
	Key       string         `json:"key"`
	ScrapedAt time.Time      `json:"scraped_at"`
	Fields    map[string]any `json:"fields"`
}

// NewDocument maps a record's values onto the profile's column names.
// Absent values are left out.
func NewDocument(p profile.Profile, rec models.Record, at time.Time) Document {
	fields := make(map[string]any, len(rec.Values))
	for i, v := range rec.Values {
		if i >= len(p.Columns) || v.IsAbsent() {
			continue
		}
		fields[p.Columns[i].Name] = v.Interface()
	}
	return Document{Profile: p.Name, Key: rec.Key, ScrapedAt: at, Fields: fields}
}

// Index sends records and waits for the bulk indexer to drain. It returns
// the number indexed and an error if any document failed.
func (e *Elastic) Index(ctx context.Context, p profile.Profile, records []models.Record, at time.Time) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	index := e.IndexName(p.Name)

	var failed atomic.Int64
	bi, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Index:         index,
		Client:        e.client,
		NumWorkers:    2,
		FlushBytes:    5 * 1024 * 1024,
		FlushInterval: 30 * time.Second,
		OnError: func(ctx context.Context, err error) {
			slog.Error("bulk indexer error", "index", index, "error", err)
		},
	})
	if err != nil {
		return 0, fmt.Errorf("creating bulk indexer: %w", err)
	}

	for _, rec := range records {
		data, err := json.Marshal(NewDocument(p, rec, at))
		if err != nil {
			failed.Add(1)
			continue
		}
		err = bi.Add(ctx, esutil.BulkIndexerItem{
			Action:     "index",
			DocumentID: rec.Key,
			Body:       bytes.NewReader(data),
			OnFailure: func(ctx context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
				failed.Add(1)
				if err != nil {
					slog.Warn("document not indexed", "id", item.DocumentID, "error", err)
				} else {
					slog.Warn("document not indexed", "id", item.DocumentID, "reason", res.Error.Reason)
				}
			},
		})
		if err != nil {
			_ = bi.Close(ctx)
			return 0, fmt.Errorf("adding document %q: %w", rec.Key, err)
		}
	}

	if err := bi.Close(ctx); err != nil {
		return 0, fmt.Errorf("closing bulk indexer: %w", err)
	}

	st := bi.Stats()
	slog.Info("records indexed", "index", index, "indexed", st.NumIndexed, "failed", st.NumFailed)
	if n := failed.Load(); n > 0 {
		return int(st.NumIndexed), fmt.Errorf("%d of %d documents failed", n, len(records))
	}
	return int(st.NumIndexed), nil
}
