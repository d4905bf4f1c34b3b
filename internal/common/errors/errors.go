package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"
)

type ErrorCode string

const (
	// School lookup and classification
	ErrCodeSchoolNotFound ErrorCode = "SCHOOL_NOT_FOUND"
	ErrCodeInvalidDBN     ErrorCode = "INVALID_DBN"
	ErrCodeNotNYCSchool   ErrorCode = "NOT_NYC_SCHOOL"
	ErrCodeInvalidInput   ErrorCode = "INVALID_INPUT"

	// Community features
	ErrCodeDuplicateFavorite      ErrorCode = "DUPLICATE_FAVORITE"
	ErrCodeFavoriteNotFound       ErrorCode = "FAVORITE_NOT_FOUND"
	ErrCodeForbidden              ErrorCode = "FORBIDDEN"
	ErrCodeReviewValidationFailed ErrorCode = "REVIEW_VALIDATION_FAILED"
	ErrCodeReviewNotFound         ErrorCode = "REVIEW_NOT_FOUND"
	ErrCodeComparisonLimitReached ErrorCode = "COMPARISON_LIMIT_REACHED"

	// PostgreSQL
	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeQueryTimeout             ErrorCode = "QUERY_TIMEOUT"
	ErrCodeInvalidQueryType         ErrorCode = "INVALID_QUERY_TYPE"

	// Elasticsearch
	ErrCodeElasticsearchConnectionFailed ErrorCode = "ELASTICSEARCH_CONNECTION_FAILED"
	ErrCodeSearchQueryFailed             ErrorCode = "SEARCH_QUERY_FAILED"
	ErrCodeSearchTimeout                 ErrorCode = "SEARCH_TIMEOUT"
	ErrCodeIndexNotFound                 ErrorCode = "INDEX_NOT_FOUND"

	// Redis, notifications, maintenance
	ErrCodeCacheUnavailable       ErrorCode = "CACHE_UNAVAILABLE"
	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeCleanupBatchFailed     ErrorCode = "CLEANUP_BATCH_FAILED"

	// Workflow engine
	ErrCodeZeebeUnavailable ErrorCode = "ZEEBE_UNAVAILABLE"
	ErrCodeZeebeRejected    ErrorCode = "ZEEBE_REJECTED"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

type definition struct {
	message  string
	retries  int
	category string
}

// catalog is the single source for default messages, retry budgets and
// categories. Codes with zero retries are business errors and go straight
// to a BPMN boundary event.
var catalog = map[ErrorCode]definition{
	ErrCodeSchoolNotFound: {"School not found", 0, "SCHOOL"},
	ErrCodeInvalidDBN:     {"Malformed district borough number", 0, "VALIDATION"},
	ErrCodeNotNYCSchool:   {"School is outside the five boroughs", 0, "SCHOOL"},
	ErrCodeInvalidInput:   {"Invalid job input", 0, "VALIDATION"},

	ErrCodeDuplicateFavorite:      {"School is already a favorite", 0, "COMMUNITY"},
	ErrCodeFavoriteNotFound:       {"Favorite not found", 0, "COMMUNITY"},
	ErrCodeForbidden:              {"Operation not permitted for this user", 0, "COMMUNITY"},
	ErrCodeReviewValidationFailed: {"Review failed validation", 0, "VALIDATION"},
	ErrCodeReviewNotFound:         {"Review not found", 0, "COMMUNITY"},
	ErrCodeComparisonLimitReached: {"Comparison already holds the maximum number of schools", 0, "COMMUNITY"},

	ErrCodeDatabaseConnectionFailed: {"Database connection error", 3, "DATABASE"},
	ErrCodeQueryExecutionFailed:     {"Database query execution error", 3, "DATABASE"},
	ErrCodeQueryTimeout:             {"Database query timeout", 2, "DATABASE"},
	ErrCodeInvalidQueryType:         {"Unsupported query type", 0, "VALIDATION"},

	ErrCodeElasticsearchConnectionFailed: {"Elasticsearch connection error", 3, "SEARCH"},
	ErrCodeSearchQueryFailed:             {"Elasticsearch query error", 3, "SEARCH"},
	ErrCodeSearchTimeout:                 {"Elasticsearch query timeout", 2, "SEARCH"},
	ErrCodeIndexNotFound:                 {"Elasticsearch index not found", 0, "SEARCH"},

	ErrCodeCacheUnavailable:       {"Cache unavailable", 1, "CACHE"},
	ErrCodeNotificationSendFailed: {"Notification delivery failed", 3, "NOTIFICATION"},
	ErrCodeCleanupBatchFailed:     {"Cleanup batch delete failed", 3, "MAINTENANCE"},

	ErrCodeZeebeUnavailable: {"Zeebe gateway unavailable", 3, "WORKFLOW"},
	ErrCodeZeebeRejected:    {"Zeebe rejected the command", 0, "WORKFLOW"},

	ErrCodeInternal: {"Unexpected error", 0, "OTHER"},
}

type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// Is matches another StandardError by code, so errors.Is(err, New(code, ""))
// works without comparing timestamps.
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	return ok && t.Code == e.Code
}

// WithMetadata attaches a key to the error and returns it for chaining.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// New builds a StandardError with the catalog message for code.
func New(code ErrorCode, details string) *StandardError {
	def, ok := catalog[code]
	if !ok {
		def = catalog[ErrCodeInternal]
	}
	return &StandardError{
		Code:      code,
		Message:   def.message,
		Details:   details,
		Retryable: def.retries > 0,
		Timestamp: time.Now().UTC(),
	}
}

// Wrap is New with err as both the details and the unwrap target.
func Wrap(code ErrorCode, err error) *StandardError {
	if err == nil {
		return New(code, "")
	}
	stdErr := New(code, err.Error())
	stdErr.cause = err
	return stdErr
}

// As extracts the first StandardError in err's chain.
func As(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// Normalize returns err as a StandardError, mapping unknown errors to
// INTERNAL_ERROR.
func Normalize(err error) *StandardError {
	if stdErr, ok := As(err); ok {
		return stdErr
	}
	return Wrap(ErrCodeInternal, err)
}

func NewSchoolNotFoundError(dbn string) *StandardError {
	return New(ErrCodeSchoolNotFound, fmt.Sprintf("dbn: %s", dbn)).WithMetadata("dbn", dbn)
}

func NewInvalidDBNError(dbn string) *StandardError {
	return New(ErrCodeInvalidDBN, fmt.Sprintf("dbn: %q", dbn)).WithMetadata("dbn", dbn)
}

func NewNotNYCSchoolError(dbn string) *StandardError {
	return New(ErrCodeNotNYCSchool, fmt.Sprintf("dbn: %s", dbn)).WithMetadata("dbn", dbn)
}

func NewQueryExecutionFailedError(queryType string, err error) *StandardError {
	stdErr := Wrap(ErrCodeQueryExecutionFailed, err)
	stdErr.Details = fmt.Sprintf("queryType: %s, error: %v", queryType, err)
	return stdErr
}

func NewQueryTimeoutError(queryType string) *StandardError {
	return New(ErrCodeQueryTimeout, fmt.Sprintf("queryType: %s", queryType))
}

// FromQueryError classifies a failed store call: a blown deadline is a
// QUERY_TIMEOUT, anything else a QUERY_EXECUTION_FAILED.
func FromQueryError(ctx context.Context, queryType string, err error) *StandardError {
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
		return NewQueryTimeoutError(queryType)
	}
	return NewQueryExecutionFailedError(queryType, err)
}

func NewForbiddenError(userID, resource string) *StandardError {
	return New(ErrCodeForbidden, fmt.Sprintf("user: %s, resource: %s", userID, resource)).
		WithMetadata("userId", userID)
}

func NewSearchQueryFailedError(index string, err error) *StandardError {
	stdErr := Wrap(ErrCodeSearchQueryFailed, err)
	stdErr.Details = fmt.Sprintf("index: %s, error: %v", index, err)
	return stdErr
}

func NewNotificationSendFailedError(channel string, err error) *StandardError {
	stdErr := Wrap(ErrCodeNotificationSendFailed, err)
	stdErr.Details = fmt.Sprintf("channel: %s, error: %v", channel, err)
	return stdErr
}

// NewCleanupBatchFailedError records which batch failed and how many rows
// were already removed before it.
func NewCleanupBatchFailedError(batch, deletedSoFar int, err error) *StandardError {
	stdErr := Wrap(ErrCodeCleanupBatchFailed, err)
	stdErr.Details = fmt.Sprintf("batch: %d, deletedSoFar: %d, error: %v", batch, deletedSoFar, err)
	return stdErr.
		WithMetadata("batch", batch).
		WithMetadata("deletedSoFar", deletedSoFar)
}

type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"errorCategory": GetErrorCategory(stdErr.Code),
		"timestamp":     stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           string(stdErr.Code),
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

// GetRetryCount is the retry budget for a code; unknown codes get none.
func GetRetryCount(code ErrorCode) int {
	return catalog[code].retries
}

func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

func GetErrorCategory(code ErrorCode) string {
	if def, ok := catalog[code]; ok {
		return def.category
	}
	return "OTHER"
}
