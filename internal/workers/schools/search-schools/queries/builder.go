package queries

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8/esapi"

	"nyc-kinder-workers/pkg/geography"
)

var (
	ErrMissingIndex  = errors.New("index name is required")
	ErrIndexNotFound = errors.New("index not found")
)

// SchoolQuery is the typed form of a school search.
type SchoolQuery struct {
	Index          string
	Keywords       string
	Borough        geography.Borough
	District       int
	GiftedTalented bool
	From           int
	Size           int
}

// Body renders the bool query. Borough is expressed as a terms filter over
// its districts, since documents carry the district number, not the name.
func (q SchoolQuery) Body() map[string]interface{} {
	must := []interface{}{}
	filter := []interface{}{}

	if q.Keywords != "" {
		must = append(must, map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  q.Keywords,
				"fields": []string{"name^3", "dbn"},
				"type":   "best_fields",
			},
		})
	} else {
		must = append(must, map[string]interface{}{"match_all": map[string]interface{}{}})
	}

	if q.Borough != "" {
		filter = append(filter, map[string]interface{}{
			"terms": map[string]interface{}{"district": geography.DistrictsIn(q.Borough)},
		})
	}
	if q.District != 0 {
		filter = append(filter, map[string]interface{}{
			"term": map[string]interface{}{"district": q.District},
		})
	}
	if q.GiftedTalented {
		filter = append(filter, map[string]interface{}{
			"term": map[string]interface{}{"giftedTalented": true},
		})
	}

	boolQuery := map[string]interface{}{"must": must}
	if len(filter) > 0 {
		boolQuery["filter"] = filter
	}

	body := map[string]interface{}{
		"query": map[string]interface{}{"bool": boolQuery},
	}
	if q.Keywords == "" {
		body["sort"] = []map[string]interface{}{{"name.keyword": "asc"}, {"dbn": "asc"}}
	}
	return body
}

func BuildRequest(q SchoolQuery) (*esapi.SearchRequest, error) {
	if q.Index == "" {
		return nil, ErrMissingIndex
	}

	body, err := json.Marshal(q.Body())
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}

	from, size := q.From, q.Size
	return &esapi.SearchRequest{
		Index:          []string{q.Index},
		Body:           bytes.NewReader(body),
		From:           &from,
		Size:           &size,
		TrackTotalHits: true,
	}, nil
}
