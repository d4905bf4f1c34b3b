package queries

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"

	"nyc-kinder-workers/internal/models"
)

type Hit struct {
	Relevance float64
	School    models.School
}

type Result struct {
	Hits      []Hit
	TotalHits int64
	MaxScore  float64
	Took      int64
}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		MaxScore *float64 `json:"max_score"`
		Hits     []struct {
			Score  *float64      `json:"_score"`
			Source models.School `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func Search(ctx context.Context, client *elasticsearch.Client, q SchoolQuery) (*Result, error) {
	req, err := BuildRequest(q)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := req.Do(ctx, client)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, q.Index)
	}
	if res.IsError() {
		return nil, fmt.Errorf("search query failed: %s", res.String())
	}

	var r searchResponse
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	result := &Result{
		TotalHits: r.Hits.Total.Value,
		Took:      time.Since(start).Milliseconds(),
		Hits:      make([]Hit, 0, len(r.Hits.Hits)),
	}
	if r.Hits.MaxScore != nil {
		result.MaxScore = *r.Hits.MaxScore
	}
	for _, h := range r.Hits.Hits {
		hit := Hit{School: h.Source}
		if h.Score != nil {
			hit.Relevance = *h.Score
		}
		result.Hits = append(result.Hits, hit)
	}
	return result, nil
}
