package classifyborough

import "nyc-kinder-workers/pkg/geography"

// Input takes a single DBN, a list of DBNs, or both.
type Input struct {
	DBN        string   `json:"dbn,omitempty"`
	DBNs       []string `json:"dbns,omitempty"`
	RequireNYC bool     `json:"requireNyc,omitempty"`
}

type Output struct {
	geography.Classification
	Results     []geography.Classification `json:"results,omitempty"`
	NYCCount    int                        `json:"nycCount"`
	NonNYCCount int                        `json:"nonNycCount"`
}
