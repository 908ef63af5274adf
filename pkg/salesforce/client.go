package salesforce

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/aish-attendance/attendance-api/pkg/circuitbreaker"
	"github.com/aish-attendance/attendance-api/pkg/httpclient"
	"github.com/aish-attendance/attendance-api/pkg/logger"
	"github.com/aish-attendance/attendance-api/pkg/metrics"
	"github.com/aish-attendance/attendance-api/pkg/retry"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

const (
	// DefaultAPIVersion is used when no SF_API_VERSION is configured.
	DefaultAPIVersion = "61.0"

	operationTimeout = 30 * time.Second
)

// API is the Salesforce surface consumed by the services. A client is scoped
// to one session credential and built per request.
type API interface {
	Query(ctx context.Context, soql string) (*QueryResult, error)
	Describe(ctx context.Context, object string) (*DescribeResult, error)
	DescribeGlobal(ctx context.Context) (*DescribeGlobalResult, error)
	UpdateRecords(ctx context.Context, object string, records []UpdateRecord, allOrNone bool) ([]SaveResult, error)
	UpdateRecord(ctx context.Context, object, id string, fields map[string]any) error
	Identity(ctx context.Context) (map[string]any, error)
	OrgID() string
}

// Factory builds per-session clients that share one HTTP client and one
// circuit breaker for the Salesforce host.
type Factory struct {
	http       httpclient.Client
	apiVersion string
	breaker    *gobreaker.CircuitBreaker
}

// NewFactory creates a client factory.
func NewFactory(http httpclient.Client, apiVersion string) *Factory {
	if apiVersion == "" {
		apiVersion = DefaultAPIVersion
	}
	cb := circuitbreaker.NewCircuitBreaker(circuitbreaker.DefaultConfig("salesforce"))
	return &Factory{
		http:       http,
		apiVersion: apiVersion,
		breaker:    cb,
	}
}

// ClientFor returns a client bound to the given session credential.
func (f *Factory) ClientFor(cred Credential) *Client {
	return &Client{
		http:       f.http,
		apiVersion: f.apiVersion,
		breaker:    f.breaker,
		cred:       cred,
	}
}

// Client is a Salesforce REST client scoped to one session credential.
type Client struct {
	http       httpclient.Client
	apiVersion string
	breaker    *gobreaker.CircuitBreaker
	cred       Credential
}

var _ API = (*Client)(nil)

// OrgID returns the org the session credential belongs to. Used as a schema
// cache key component; may be empty for password-flow sessions.
func (c *Client) OrgID() string {
	return c.cred.OrgID
}

// Query executes a SOQL query.
func (c *Client) Query(ctx context.Context, soql string) (*QueryResult, error) {
	path := fmt.Sprintf("/services/data/v%s/query?q=%s", c.apiVersion, url.QueryEscape(soql))
	var result QueryResult
	if err := c.call(ctx, "query", http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Describe fetches field metadata for one sObject.
func (c *Client) Describe(ctx context.Context, object string) (*DescribeResult, error) {
	path := fmt.Sprintf("/services/data/v%s/sobjects/%s/describe", c.apiVersion, url.PathEscape(object))
	var result DescribeResult
	if err := c.call(ctx, "describe", http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// DescribeGlobal fetches the org's sObject catalog.
func (c *Client) DescribeGlobal(ctx context.Context) (*DescribeGlobalResult, error) {
	path := fmt.Sprintf("/services/data/v%s/sobjects", c.apiVersion)
	var result DescribeGlobalResult
	if err := c.call(ctx, "describeGlobal", http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// UpdateRecords updates up to 200 records through the sObject collections
// endpoint. With allOrNone=false Salesforce reports success and failure per
// record; the result order matches the request order.
func (c *Client) UpdateRecords(ctx context.Context, object string, records []UpdateRecord, allOrNone bool) ([]SaveResult, error) {
	type collectionsRecord map[string]any

	payload := struct {
		AllOrNone bool                `json:"allOrNone"`
		Records   []collectionsRecord `json:"records"`
	}{AllOrNone: allOrNone}

	for _, rec := range records {
		cr := collectionsRecord{
			"attributes": map[string]string{"type": object},
			"Id":         rec.ID,
		}
		for k, v := range rec.Fields {
			cr[k] = v
		}
		payload.Records = append(payload.Records, cr)
	}

	path := fmt.Sprintf("/services/data/v%s/composite/sobjects", c.apiVersion)
	var results []SaveResult
	if err := c.call(ctx, "updateRecords", http.MethodPatch, path, payload, &results); err != nil {
		return nil, err
	}
	return results, nil
}

// UpdateRecord updates a single record. Salesforce answers 204 on success.
func (c *Client) UpdateRecord(ctx context.Context, object, id string, fields map[string]any) error {
	path := fmt.Sprintf("/services/data/v%s/sobjects/%s/%s", c.apiVersion, url.PathEscape(object), url.PathEscape(id))
	return c.call(ctx, "updateRecord", http.MethodPatch, path, fields, nil)
}

// Identity returns the OpenID userinfo document for the session.
func (c *Client) Identity(ctx context.Context) (map[string]any, error) {
	var result map[string]any
	if err := c.call(ctx, "identity", http.MethodGet, "/services/oauth2/userinfo", nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// call runs one REST round-trip with circuit breaker, retry, metrics and
// logging. out may be nil for endpoints that return no body.
func (c *Client) call(ctx context.Context, operation, method, path string, body any, out any) error {
	if !c.cred.Valid() {
		return &APIError{StatusCode: http.StatusUnauthorized, Message: "no Salesforce session"}
	}

	start := time.Now()

	retryCtx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	retryConfig := retry.SalesforceConfig()
	retryConfig.RetryableErrors = isRetryable

	_, err := circuitbreaker.Execute(c.breaker, func() (struct{}, error) {
		return struct{}{}, retry.Do(retryCtx, retryConfig, operation, func() error {
			return c.roundTrip(retryCtx, method, path, body, out)
		})
	})

	duration := metrics.MeasureDuration(start)

	if err != nil {
		metrics.SalesforceRequestDuration.WithLabelValues(operation, "error").Observe(duration)
		metrics.SalesforceRequestTotal.WithLabelValues(operation, "error").Inc()
		logger.LogAPICall(ctx, "salesforce", operation, "error", duration, zap.Error(err))
		return circuitbreaker.FormatError("salesforce", err)
	}

	metrics.SalesforceRequestDuration.WithLabelValues(operation, "success").Observe(duration)
	metrics.SalesforceRequestTotal.WithLabelValues(operation, "success").Inc()
	logger.LogAPICall(ctx, "salesforce", operation, "success", duration)

	return nil
}

func (c *Client) roundTrip(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cred.InstanceURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cred.AccessToken)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseAPIError(resp.StatusCode, payload)
	}

	if out == nil || len(payload) == 0 {
		return nil
	}

	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// parseAPIError decodes the error array Salesforce returns on failure.
func parseAPIError(status int, payload []byte) error {
	var apiErrors []struct {
		Message   string `json:"message"`
		ErrorCode string `json:"errorCode"`
	}
	if err := json.Unmarshal(payload, &apiErrors); err == nil && len(apiErrors) > 0 {
		return &APIError{
			StatusCode: status,
			ErrorCode:  apiErrors[0].ErrorCode,
			Message:    apiErrors[0].Message,
		}
	}
	return &APIError{StatusCode: status, Message: http.StatusText(status)}
}

// isRetryable retries network failures and server-side errors, not malformed
// queries or missing fields: those come back identical on every attempt.
func isRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.IsRetryable()
	}
	return true
}
