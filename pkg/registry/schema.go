// pkg/registry/schema.go
package registry

// ActivityRegistry lists every zeebe task type this module can serve.
type ActivityRegistry struct {
	Version    string     `json:"version"`
	Activities []Activity `json:"activities"`
}

type Activity struct {
	TaskType    string   `json:"taskType"`
	DisplayName string   `json:"displayName"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	ErrorCodes  []string `json:"errorCodes"`
	Tags        []string `json:"tags,omitempty"`
}
