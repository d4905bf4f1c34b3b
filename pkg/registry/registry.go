// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"
)

func LoadRegistry(path string) (*ActivityRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg ActivityRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse registry %s: %w", path, err)
	}
	return &reg, reg.Validate()
}

// Validate rejects empty registries, duplicate task types and activities
// missing a display name or category.
func (r *ActivityRegistry) Validate() error {
	if len(r.Activities) == 0 {
		return fmt.Errorf("registry contains no activities")
	}

	seen := make(map[string]bool, len(r.Activities))
	for _, a := range r.Activities {
		if a.TaskType == "" {
			return fmt.Errorf("activity missing required field: TaskType")
		}
		if seen[a.TaskType] {
			return fmt.Errorf("duplicate task type: %s", a.TaskType)
		}
		seen[a.TaskType] = true

		if a.DisplayName == "" {
			return fmt.Errorf("activity %s missing required field: DisplayName", a.TaskType)
		}
		if a.Category == "" {
			return fmt.Errorf("activity %s missing required field: Category", a.TaskType)
		}
	}
	return nil
}

func (r *ActivityRegistry) Lookup(taskType string) (Activity, bool) {
	for _, a := range r.Activities {
		if a.TaskType == taskType {
			return a, true
		}
	}
	return Activity{}, false
}

// Default is the built-in catalog of the workers shipped in this module.
var Default = &ActivityRegistry{
	Version: "1.0.0",
	Activities: []Activity{
		{
			TaskType:    "compute-overall-score",
			DisplayName: "Compute Overall Score",
			Category:    "schools",
			Description: "Weighted 0-100 score and color tier for one school",
			ErrorCodes:  []string{"INVALID_INPUT", "SCHOOL_NOT_FOUND", "NOT_NYC_SCHOOL", "QUERY_TIMEOUT", "QUERY_EXECUTION_FAILED"},
			Tags:        []string{"scoring", "cache"},
		},
		{
			TaskType:    "classify-borough",
			DisplayName: "Classify Borough",
			Category:    "schools",
			Description: "District and borough of one or many DBNs",
			ErrorCodes:  []string{"INVALID_INPUT", "NOT_NYC_SCHOOL"},
		},
		{
			TaskType:    "rank-schools",
			DisplayName: "Rank Schools",
			Category:    "schools",
			Description: "Filter, score and order a list of schools",
			ErrorCodes:  []string{"INVALID_INPUT"},
			Tags:        []string{"scoring"},
		},
		{
			TaskType:    "search-schools",
			DisplayName: "Search Schools",
			Category:    "schools",
			Description: "Keyword and borough search over the schools index",
			ErrorCodes:  []string{"INVALID_INPUT", "INDEX_NOT_FOUND", "SEARCH_TIMEOUT", "SEARCH_QUERY_FAILED"},
			Tags:        []string{"elasticsearch"},
		},
		{
			TaskType:    "query-postgresql",
			DisplayName: "Query PostgreSQL",
			Category:    "data-access",
			Description: "Named read queries over schools and reviews",
			ErrorCodes:  []string{"INVALID_INPUT", "INVALID_QUERY_TYPE", "SCHOOL_NOT_FOUND", "QUERY_TIMEOUT", "QUERY_EXECUTION_FAILED"},
		},
		{
			TaskType:    "manage-favorites",
			DisplayName: "Manage Favorites",
			Category:    "community",
			Description: "Add, remove and list a user's favorite schools",
			ErrorCodes:  []string{"INVALID_INPUT", "INVALID_DBN", "NOT_NYC_SCHOOL", "SCHOOL_NOT_FOUND", "DUPLICATE_FAVORITE", "FAVORITE_NOT_FOUND", "FORBIDDEN", "QUERY_TIMEOUT", "QUERY_EXECUTION_FAILED"},
		},
		{
			TaskType:    "manage-reviews",
			DisplayName: "Manage Reviews",
			Category:    "community",
			Description: "Submit, delete and list parent reviews",
			ErrorCodes:  []string{"INVALID_INPUT", "INVALID_DBN", "NOT_NYC_SCHOOL", "SCHOOL_NOT_FOUND", "REVIEW_VALIDATION_FAILED", "REVIEW_NOT_FOUND", "FORBIDDEN", "QUERY_TIMEOUT", "QUERY_EXECUTION_FAILED"},
			Tags:        []string{"ses"},
		},
		{
			TaskType:    "compare-schools",
			DisplayName: "Compare Schools",
			Category:    "community",
			Description: "Per-user side by side comparison of up to four schools",
			ErrorCodes:  []string{"INVALID_INPUT", "INVALID_DBN", "NOT_NYC_SCHOOL", "COMPARISON_LIMIT_REACHED", "CACHE_UNAVAILABLE", "QUERY_TIMEOUT", "QUERY_EXECUTION_FAILED"},
			Tags:        []string{"redis"},
		},
	},
}
