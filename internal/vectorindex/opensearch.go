package vectorindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	opensearch "github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"github.com/Sakthi-S29/trackwise/internal/logger"
)

// OpenSearchOptions configures the managed index store.
type OpenSearchOptions struct {
	// Index is the alias the store reads and writes through. Rebuild
	// creates a fresh physical index and swaps the alias onto it.
	Index string

	// Replace controls upsert semantics. When false, documents are
	// appended with server-assigned IDs and re-ingesting a record
	// accumulates duplicates. When true, the record ID becomes the
	// document ID and re-ingesting overwrites in place.
	Replace bool
}

// OpenSearchStore is the managed-variant index store. It keeps
// summarized transactions as documents with a knn_vector field and
// searches them with approximate k-nearest-neighbor queries.
type OpenSearchStore struct {
	client  *opensearch.Client
	options OpenSearchOptions
	log     *logger.Logger
}

// NewOpenSearchStore creates a store over an existing client
func NewOpenSearchStore(client *opensearch.Client, options OpenSearchOptions, log *logger.Logger) (*OpenSearchStore, error) {
	if client == nil {
		return nil, fmt.Errorf("opensearch client is required")
	}
	if options.Index == "" {
		return nil, fmt.Errorf("opensearch index name is required")
	}
	if log == nil {
		log = logger.New("opensearch", nil)
	}
	return &OpenSearchStore{client: client, options: options, log: log}, nil
}

// osDocument is the wire shape of one indexed transaction. Field names
// match the index mapping, so search hits unmarshal back into it.
type osDocument struct {
	ID           string    `json:"id"`
	Text         string    `json:"text"`
	Embedding    []float32 `json:"embedding"`
	Amount       float64   `json:"amount"`
	Date         string    `json:"date"`
	Timestamp    string    `json:"timestamp"`
	Vendor       string    `json:"vendor"`
	Category     string    `json:"category"`
	Type         string    `json:"type"`
	LineItemsRaw string    `json:"line_items_raw"`
}

func documentFromEntry(entry Entry) osDocument {
	return osDocument{
		ID:           entry.ID,
		Text:         entry.Text,
		Embedding:    entry.Embedding,
		Amount:       entry.Amount,
		Date:         entry.Date,
		Timestamp:    entry.Timestamp.Format(timestampLayout),
		Vendor:       entry.Vendor,
		Category:     entry.Category,
		Type:         entry.Type,
		LineItemsRaw: entry.LineItemsRaw,
	}
}

func (d osDocument) toEntry() Entry {
	entry := Entry{
		ID:           d.ID,
		Text:         d.Text,
		Embedding:    d.Embedding,
		Amount:       d.Amount,
		Date:         d.Date,
		Vendor:       d.Vendor,
		Category:     d.Category,
		Type:         d.Type,
		LineItemsRaw: d.LineItemsRaw,
	}
	if ts, err := parseTimestamp(d.Timestamp); err == nil {
		entry.Timestamp = ts
	}
	return entry
}

// Upsert indexes one entry through the alias
func (s *OpenSearchStore) Upsert(ctx context.Context, entry Entry) error {
	if len(entry.Embedding) == 0 {
		return fmt.Errorf("%w: empty vector", ErrDimensionMismatch)
	}

	body, err := json.Marshal(documentFromEntry(entry))
	if err != nil {
		return fmt.Errorf("encoding document %s: %w", entry.ID, err)
	}

	req := opensearchapi.IndexRequest{
		Index: s.options.Index,
		Body:  bytes.NewReader(body),
	}
	if s.options.Replace {
		req.DocumentID = entry.ID
	}

	res, err := req.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("indexing document %s: %w", entry.ID, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("indexing document %s: %s", entry.ID, responseError(res))
	}

	s.log.DebugWithFields("indexed document", []logger.Field{
		logger.F("id", entry.ID),
		logger.F("index", s.options.Index),
	})
	return nil
}

// knnSearchBody is the KNN query sent to _search
type knnSearchBody struct {
	Size  int `json:"size"`
	Query struct {
		KNN struct {
			Embedding struct {
				Vector []float32 `json:"vector"`
				K      int       `json:"k"`
			} `json:"embedding"`
		} `json:"knn"`
	} `json:"query"`
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Score  float32    `json:"_score"`
			Source osDocument `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search runs an approximate KNN query and returns up to k hits
func (s *OpenSearchStore) Search(ctx context.Context, vector []float32, k int) ([]Hit, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: empty vector", ErrDimensionMismatch)
	}
	if k <= 0 {
		return []Hit{}, nil
	}

	var body knnSearchBody
	body.Size = k
	body.Query.KNN.Embedding.Vector = vector
	body.Query.KNN.Embedding.K = k

	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding search query: %w", err)
	}

	req := opensearchapi.SearchRequest{
		Index: []string{s.options.Index},
		Body:  bytes.NewReader(encoded),
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return nil, fmt.Errorf("searching index %s: %w", s.options.Index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("searching index %s: %s", s.options.Index, responseError(res))
	}

	var decoded searchResponse
	if err := json.NewDecoder(res.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}

	hits := make([]Hit, 0, len(decoded.Hits.Hits))
	for _, hit := range decoded.Hits.Hits {
		hits = append(hits, Hit{Entry: hit.Source.toEntry(), Score: hit.Score})
	}
	return hits, nil
}

// knnIndexMapping builds the index settings and mapping for a given
// embedding dimension.
func knnIndexMapping(dimension int) string {
	return fmt.Sprintf(`{
  "settings": {"index": {"knn": true}},
  "mappings": {
    "properties": {
      "embedding": {"type": "knn_vector", "dimension": %d},
      "id": {"type": "keyword"},
      "text": {"type": "text"},
      "amount": {"type": "double"},
      "date": {"type": "keyword"},
      "timestamp": {"type": "date"},
      "vendor": {"type": "keyword"},
      "category": {"type": "keyword"},
      "type": {"type": "keyword"},
      "line_items_raw": {"type": "text"}
    }
  }
}`, dimension)
}

// Rebuild creates a fresh physical index, loads all entries into it,
// then swaps the alias from the old indices to the new one in a single
// aliases update. Readers going through the alias see either the old
// index or the new, never a half-loaded one.
func (s *OpenSearchStore) Rebuild(ctx context.Context, entries []Entry) error {
	dimension := 0
	for i, entry := range entries {
		if err := checkDimension(dimension, len(entry.Embedding)); err != nil {
			return fmt.Errorf("entry %d (%s): %w", i, entry.ID, err)
		}
		dimension = len(entry.Embedding)
	}
	if dimension == 0 {
		// An empty rebuild still needs a valid mapping.
		dimension = 1
	}

	physical := fmt.Sprintf("%s-%d", s.options.Index, time.Now().UnixNano())

	createReq := opensearchapi.IndicesCreateRequest{
		Index: physical,
		Body:  strings.NewReader(knnIndexMapping(dimension)),
	}
	createRes, err := createReq.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("creating index %s: %w", physical, err)
	}
	defer createRes.Body.Close()
	if createRes.IsError() {
		return fmt.Errorf("creating index %s: %s", physical, responseError(createRes))
	}

	for i, entry := range entries {
		body, err := json.Marshal(documentFromEntry(entry))
		if err != nil {
			return fmt.Errorf("encoding document %s: %w", entry.ID, err)
		}
		req := opensearchapi.IndexRequest{
			Index: physical,
			Body:  bytes.NewReader(body),
		}
		if s.options.Replace {
			req.DocumentID = entry.ID
		}
		res, err := req.Do(ctx, s.client)
		if err != nil {
			return fmt.Errorf("loading document %d into %s: %w", i, physical, err)
		}
		res.Body.Close()
		if res.IsError() {
			return fmt.Errorf("loading document %d into %s: %s", i, physical, responseError(res))
		}
	}

	if err := s.swapAlias(ctx, physical); err != nil {
		return err
	}

	s.log.InfoWithFields("index rebuilt", []logger.Field{
		logger.Count(len(entries)),
		logger.F("index", physical),
	})
	return nil
}

// swapAlias points the alias at the new physical index, removing it
// from all previous ones in the same atomic update.
func (s *OpenSearchStore) swapAlias(ctx context.Context, physical string) error {
	actions := map[string]interface{}{
		"actions": []map[string]interface{}{
			{"remove": map[string]string{"index": s.options.Index + "-*", "alias": s.options.Index}},
			{"add": map[string]string{"index": physical, "alias": s.options.Index}},
		},
	}
	encoded, err := json.Marshal(actions)
	if err != nil {
		return fmt.Errorf("encoding alias update: %w", err)
	}

	req := opensearchapi.IndicesUpdateAliasesRequest{Body: bytes.NewReader(encoded)}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("updating alias %s: %w", s.options.Index, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		// The very first rebuild has no previous index to remove; retry
		// with the add action alone.
		return s.addAlias(ctx, physical)
	}
	return nil
}

func (s *OpenSearchStore) addAlias(ctx context.Context, physical string) error {
	actions := map[string]interface{}{
		"actions": []map[string]interface{}{
			{"add": map[string]string{"index": physical, "alias": s.options.Index}},
		},
	}
	encoded, err := json.Marshal(actions)
	if err != nil {
		return fmt.Errorf("encoding alias update: %w", err)
	}

	req := opensearchapi.IndicesUpdateAliasesRequest{Body: bytes.NewReader(encoded)}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("adding alias %s: %w", s.options.Index, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("adding alias %s: %s", s.options.Index, responseError(res))
	}
	return nil
}

type countResponse struct {
	Count int `json:"count"`
}

// Count returns the number of documents behind the alias
func (s *OpenSearchStore) Count(ctx context.Context) (int, error) {
	req := opensearchapi.CountRequest{Index: []string{s.options.Index}}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return 0, fmt.Errorf("counting index %s: %w", s.options.Index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return 0, fmt.Errorf("counting index %s: %s", s.options.Index, responseError(res))
	}

	var decoded countResponse
	if err := json.NewDecoder(res.Body).Decode(&decoded); err != nil {
		return 0, fmt.Errorf("decoding count response: %w", err)
	}
	return decoded.Count, nil
}

// responseError extracts a short error description from a failed
// OpenSearch response.
func responseError(res *opensearchapi.Response) string {
	data, err := io.ReadAll(res.Body)
	if err != nil || len(data) == 0 {
		return res.Status()
	}
	msg := string(data)
	if len(msg) > 512 {
		msg = msg[:512]
	}
	return fmt.Sprintf("%s: %s", res.Status(), msg)
}

var _ Store = (*OpenSearchStore)(nil)
var _ Store = (*FlatIndex)(nil)
