// Package search mirrors submissions into Elasticsearch for free-text lookup.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"auto-uw-agent/internal/common/errors"
	"auto-uw-agent/internal/common/logger"
	"auto-uw-agent/internal/models"
	"auto-uw-agent/internal/store"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

const (
	defaultSize = 20
	maxSize     = 100
)

// Document is the flattened form of a submission held in the index.
type Document struct {
	ID            string  `json:"id"`
	InsuredName   string  `json:"insuredName"`
	BrokerName    string  `json:"brokerName"`
	OperationType string  `json:"operationType"`
	Status        string  `json:"status"`
	RiskBand      string  `json:"riskBand,omitempty"`
	RiskScore     int     `json:"riskScore,omitempty"`
	Premium       int     `json:"premium,omitempty"`
	VehicleCount  int     `json:"vehicleCount,omitempty"`
	PolicyNumber  string  `json:"policyNumber,omitempty"`
	CreatedAt     string  `json:"createdAt"`
	UpdatedAt     string  `json:"updatedAt"`
	Score         float64 `json:"-"`
}

func DocumentFrom(sub models.Submission) Document {
	doc := Document{
		ID:            sub.ID,
		InsuredName:   sub.InsuredName,
		BrokerName:    sub.BrokerName,
		OperationType: sub.OperationTypeOr(models.DefaultOperationType),
		Status:        string(sub.Status),
		CreatedAt:     sub.CreatedAt,
		UpdatedAt:     sub.UpdatedAt,
	}
	if risk, ok := sub.Stages.RiskOutput(); ok {
		doc.RiskBand = string(risk.RiskBand)
		doc.RiskScore = risk.OverallRiskScore
	}
	if rate, ok := sub.Stages.RateOutput(); ok {
		doc.Premium = rate.Premium
		doc.VehicleCount = rate.VehicleCount
	}
	if sub.Policy != nil {
		doc.PolicyNumber = sub.Policy.PolicyNumber
	}
	return doc
}

// Query filters the index. Text matches insured, broker and operation.
type Query struct {
	Text     string `json:"q,omitempty"`
	Status   string `json:"status,omitempty"`
	RiskBand string `json:"riskBand,omitempty"`
	From     int    `json:"from,omitempty"`
	Size     int    `json:"size,omitempty"`
}

type Result struct {
	Total int64      `json:"total"`
	Hits  []Document `json:"hits"`
	Took  int64      `json:"took"`
}

type Indexer struct {
	client *elasticsearch.Client
	index  string
	logger logger.Logger
}

func NewIndexer(client *elasticsearch.Client, index string, log logger.Logger) *Indexer {
	return &Indexer{
		client: client,
		index:  index,
		logger: log.WithFields(map[string]interface{}{"component": "search", "index": index}),
	}
}

var mapping = `{
  "mappings": {
    "properties": {
      "id":            {"type": "keyword"},
      "insuredName":   {"type": "text", "fields": {"raw": {"type": "keyword"}}},
      "brokerName":    {"type": "text", "fields": {"raw": {"type": "keyword"}}},
      "operationType": {"type": "text"},
      "status":        {"type": "keyword"},
      "riskBand":      {"type": "keyword"},
      "riskScore":     {"type": "integer"},
      "premium":       {"type": "integer"},
      "vehicleCount":  {"type": "integer"},
      "policyNumber":  {"type": "keyword"},
      "createdAt":     {"type": "date"},
      "updatedAt":     {"type": "date"}
    }
  }
}`

// EnsureIndex creates the index with its mapping if it does not exist.
func (ix *Indexer) EnsureIndex(ctx context.Context) error {
	res, err := esapi.IndicesExistsRequest{Index: []string{ix.index}}.Do(ctx, ix.client)
	if err != nil {
		return errors.NewSearchIndexFailedError(ix.index, err)
	}
	res.Body.Close()
	if res.StatusCode == 200 {
		return nil
	}

	res, err = esapi.IndicesCreateRequest{
		Index: ix.index,
		Body:  strings.NewReader(mapping),
	}.Do(ctx, ix.client)
	if err != nil {
		return errors.NewSearchIndexFailedError(ix.index, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return errors.NewSearchIndexFailedError(ix.index, fmt.Errorf("create index: %s", res.Status()))
	}
	ix.logger.Info("created search index", nil)
	return nil
}

// Index writes the submission's document, replacing any earlier version.
func (ix *Indexer) Index(ctx context.Context, sub models.Submission) error {
	body, err := json.Marshal(DocumentFrom(sub))
	if err != nil {
		return errors.NewSearchIndexFailedError(ix.index, err)
	}

	res, err := esapi.IndexRequest{
		Index:      ix.index,
		DocumentID: sub.ID,
		Body:       bytes.NewReader(body),
	}.Do(ctx, ix.client)
	if err != nil {
		return errors.NewSearchIndexFailedError(ix.index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return errors.NewSearchIndexFailedError(ix.index, fmt.Errorf("index document: %s", res.Status()))
	}
	return nil
}

// Hook adapts Index to a store write hook. Indexing failures are logged and
// never fail the write.
func (ix *Indexer) Hook() store.WriteHook {
	return func(ctx context.Context, sub models.Submission) {
		if err := ix.Index(ctx, sub); err != nil {
			ix.logger.WithError(err).Warn("failed to index submission", map[string]interface{}{
				"submissionId": sub.ID,
			})
		}
	}
}

// Search runs q against the index, newest first when there is no text.
func (ix *Indexer) Search(ctx context.Context, q Query) (*Result, error) {
	from, size := q.From, q.Size
	if from < 0 {
		from = 0
	}
	if size < 1 {
		size = defaultSize
	}
	if size > maxSize {
		size = maxSize
	}

	body, err := json.Marshal(buildQuery(q))
	if err != nil {
		return nil, errors.NewSearchQueryFailedError(ix.index, err)
	}

	res, err := esapi.SearchRequest{
		Index: []string{ix.index},
		Body:  bytes.NewReader(body),
		From:  &from,
		Size:  &size,
	}.Do(ctx, ix.client)
	if err != nil {
		return nil, errors.NewSearchQueryFailedError(ix.index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, errors.NewSearchQueryFailedError(ix.index, fmt.Errorf("search: %s", res.Status()))
	}

	var r searchResponse
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, errors.NewSearchQueryFailedError(ix.index, err)
	}

	result := &Result{Total: r.Hits.Total.Value, Took: r.Took, Hits: make([]Document, 0, len(r.Hits.Hits))}
	for _, h := range r.Hits.Hits {
		doc := h.Source
		doc.Score = h.Score
		result.Hits = append(result.Hits, doc)
	}
	return result, nil
}

type searchResponse struct {
	Took int64 `json:"took"`
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []struct {
			Score  float64  `json:"_score"`
			Source Document `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func buildQuery(q Query) map[string]interface{} {
	must := []interface{}{}
	filter := []interface{}{}

	if text := strings.TrimSpace(q.Text); text != "" {
		must = append(must, map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  text,
				"fields": []string{"insuredName^3", "brokerName^2", "operationType", "policyNumber"},
				"type":   "best_fields",
			},
		})
	}
	if q.Status != "" {
		filter = append(filter, map[string]interface{}{"term": map[string]interface{}{"status": q.Status}})
	}
	if q.RiskBand != "" {
		filter = append(filter, map[string]interface{}{"term": map[string]interface{}{"riskBand": q.RiskBand}})
	}

	if len(must) == 0 {
		must = append(must, map[string]interface{}{"match_all": map[string]interface{}{}})
	}

	body := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must":   must,
				"filter": filter,
			},
		},
	}
	if strings.TrimSpace(q.Text) == "" {
		body["sort"] = []interface{}{map[string]interface{}{"createdAt": map[string]interface{}{"order": "desc"}}}
	}
	return body
}
