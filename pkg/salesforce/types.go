package salesforce

import "fmt"

// Credential holds the per-session Salesforce tokens. It is kept strictly in
// the server-side session store: never persisted elsewhere, never logged.
type Credential struct {
	AccessToken  string
	RefreshToken string
	InstanceURL  string
	UserID       string
	OrgID        string
}

// Valid reports whether the credential can be used for API calls.
func (c Credential) Valid() bool {
	return c.AccessToken != "" && c.InstanceURL != ""
}

// Record is a single query result row: field name to value. Relationship
// traversal fields appear as nested maps.
type Record map[string]any

// StringField returns the named field coerced to a string, or "" when absent
// or not textual.
func (r Record) StringField(name string) string {
	if v, ok := r[name].(string); ok {
		return v
	}
	return ""
}

// RelatedStringField resolves a relationship traversal such as
// ("Teacher__r", "Name") from the nested record map.
func (r Record) RelatedStringField(relation, field string) string {
	nested, ok := r[relation].(map[string]any)
	if !ok {
		return ""
	}
	if v, ok := nested[field].(string); ok {
		return v
	}
	return ""
}

// ID returns the record's Id field.
func (r Record) ID() string {
	return r.StringField("Id")
}

// QueryResult is the response shape of the SOQL query endpoint.
type QueryResult struct {
	TotalSize int      `json:"totalSize"`
	Done      bool     `json:"done"`
	Records   []Record `json:"records"`
}

// Field describes one field of an sObject.
type Field struct {
	Name        string   `json:"name"`
	Label       string   `json:"label"`
	Type        string   `json:"type"`
	ReferenceTo []string `json:"referenceTo"`
}

// DescribeResult is the response shape of the sObject describe endpoint.
type DescribeResult struct {
	Name   string  `json:"name"`
	Fields []Field `json:"fields"`
}

// GlobalSObject is one entry of the describeGlobal catalog.
type GlobalSObject struct {
	Name      string `json:"name"`
	Queryable bool   `json:"queryable"`
}

// DescribeGlobalResult is the response shape of the global describe endpoint.
type DescribeGlobalResult struct {
	SObjects []GlobalSObject `json:"sobjects"`
}

// UpdateRecord is one record of a collections update request.
type UpdateRecord struct {
	ID     string
	Fields map[string]any
}

// SaveError is a per-record error from a DML call.
type SaveError struct {
	StatusCode string   `json:"statusCode"`
	Message    string   `json:"message"`
	Fields     []string `json:"fields"`
}

// SaveResult is the per-record outcome of a DML call.
type SaveResult struct {
	ID      string      `json:"id"`
	Success bool        `json:"success"`
	Errors  []SaveError `json:"errors"`
}

// ErrorMessage flattens the per-record errors into one message.
func (r SaveResult) ErrorMessage() string {
	if len(r.Errors) == 0 {
		return "update failed"
	}
	msg := r.Errors[0].Message
	for _, e := range r.Errors[1:] {
		msg += "; " + e.Message
	}
	return msg
}

// APIError is a non-2xx response from the Salesforce REST API.
type APIError struct {
	StatusCode int
	ErrorCode  string
	Message    string
}

func (e *APIError) Error() string {
	if e.ErrorCode != "" {
		return fmt.Sprintf("salesforce: %s (%s, HTTP %d)", e.Message, e.ErrorCode, e.StatusCode)
	}
	return fmt.Sprintf("salesforce: %s (HTTP %d)", e.Message, e.StatusCode)
}

// IsRetryable reports whether the error is worth retrying: server-side
// failures and rate limits, not malformed queries or missing fields.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}
