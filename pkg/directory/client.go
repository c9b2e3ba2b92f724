package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/openlabtools/labauth/internal/telemetry"
)

// Client is the read surface of the facility directory.
//
// GetUser, GetUnit and GetSystem return (nil, nil) when the entity does
// not exist. GetUserRights returns an empty slice for unknown users,
// never nil-with-error. Authenticate returns false for bad credentials;
// an error always means the check could not be performed.
type Client interface {
	GetUser(ctx context.Context, login string) (*User, error)
	GetUnit(ctx context.Context, key string) (*Unit, error)
	GetSystem(ctx context.Context, id int) (*System, error)
	GetUserRights(ctx context.Context, login string) ([]Right, error)
	Authenticate(ctx context.Context, login, password string) (bool, error)
}

// ClientMetrics observes remote directory calls.
// Implementations must be safe for concurrent use; a nil value disables
// collection.
type ClientMetrics interface {
	ObserveCall(op string, duration time.Duration, failed bool)
}

// HTTPClient talks to the directory's HTTP API.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	metrics    ClientMetrics
}

var _ Client = (*HTTPClient)(nil)

// HTTPConfig configures an HTTPClient.
type HTTPConfig struct {
	// BaseURL is the root of the directory API, e.g. "https://ppms.example.org".
	BaseURL string

	// APIKey authenticates this service against the directory.
	APIKey string

	// Timeout bounds each remote call. Zero means 30s.
	Timeout time.Duration
}

// NewHTTPClient creates a directory client. Metrics may be nil.
func NewHTTPClient(cfg HTTPConfig, metrics ClientMetrics) *HTTPClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		metrics: metrics,
	}
}

// do performs an HTTP request and decodes the response.
//
// Returns (false, nil) on 404, (true, nil) on success, and a *RemoteError
// for anything else. result may be nil when only existence matters.
func (c *HTTPClient) do(ctx context.Context, op, method, path string, body, result any) (bool, error) {
	start := time.Now()
	found, err := c.doOnce(ctx, op, method, path, body, result)
	if c.metrics != nil {
		c.metrics.ObserveCall(op, time.Since(start), err != nil)
	}
	return found, err
}

func (c *HTTPClient) doOnce(ctx context.Context, op, method, path string, body, result any) (bool, error) {
	ctx, span := telemetry.StartSpan(ctx, "directory."+op,
		attribute.String("directory.op", op))
	defer span.End()

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return false, &RemoteError{Op: op, Err: fmt.Errorf("failed to marshal request body: %w", err)}
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return false, &RemoteError{Op: op, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		telemetry.RecordError(span, err)
		return false, &RemoteError{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		telemetry.RecordError(span, err)
		return false, &RemoteError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	case resp.StatusCode >= 400:
		err := &RemoteError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%s", bytes.TrimSpace(respBody)),
		}
		telemetry.RecordError(span, err)
		return false, err
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			telemetry.RecordError(span, err)
			return false, &RemoteError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to decode response: %w", err)}
		}
	}

	return true, nil
}

// GetUser fetches an identity record by login.
func (c *HTTPClient) GetUser(ctx context.Context, login string) (*User, error) {
	var user User
	found, err := c.do(ctx, "get_user", http.MethodGet, "/api/v2/users/"+url.PathEscape(login), nil, &user)
	if err != nil || !found {
		return nil, err
	}
	if user.Login == "" {
		return nil, &RemoteError{Op: "get_user", Err: fmt.Errorf("directory returned user without login")}
	}
	return &user, nil
}

// GetUnit fetches an affiliation unit by its key.
func (c *HTTPClient) GetUnit(ctx context.Context, key string) (*Unit, error) {
	var unit Unit
	found, err := c.do(ctx, "get_unit", http.MethodGet, "/api/v2/units/"+url.PathEscape(key), nil, &unit)
	if err != nil || !found {
		return nil, err
	}
	return &unit, nil
}

// GetSystem fetches a lab system by id.
func (c *HTTPClient) GetSystem(ctx context.Context, id int) (*System, error) {
	var system System
	found, err := c.do(ctx, "get_system", http.MethodGet, fmt.Sprintf("/api/v2/systems/%d", id), nil, &system)
	if err != nil || !found {
		return nil, err
	}
	return &system, nil
}

// GetUserRights fetches all system grants for a user. Unknown users have
// no grants; the result is never nil on success.
func (c *HTTPClient) GetUserRights(ctx context.Context, login string) ([]Right, error) {
	var rights []Right
	found, err := c.do(ctx, "get_user_rights", http.MethodGet, "/api/v2/users/"+url.PathEscape(login)+"/rights", nil, &rights)
	if err != nil {
		return nil, err
	}
	if !found || rights == nil {
		return []Right{}, nil
	}
	return rights, nil
}

type authRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type authResponse struct {
	Authenticated bool `json:"authenticated"`
}

// Authenticate validates credentials against the directory.
func (c *HTTPClient) Authenticate(ctx context.Context, login, password string) (bool, error) {
	var res authResponse
	found, err := c.do(ctx, "authenticate", http.MethodPost, "/api/v2/auth",
		authRequest{Login: login, Password: password}, &res)
	if err != nil {
		return false, err
	}
	// 404 from the auth endpoint means unknown login, not a missing route.
	if !found {
		return false, nil
	}
	return res.Authenticated, nil
}
