package querypostgresql

import "nyc-kinder-workers/internal/models"

type Input struct {
	QueryType string `json:"queryType"`
	DBN       string `json:"dbn,omitempty"`
	District  int    `json:"district,omitempty"`
	Borough   string `json:"borough,omitempty"`
}

type Output struct {
	Data               interface{} `json:"data"`
	RowCount           int         `json:"rowCount"`
	QueryExecutionTime int64       `json:"queryExecutionTime"` // milliseconds
}

type QueryType = models.QueryType
