package render

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultHTTPTimeout = 5 * time.Minute

// APIError is a non-success response from the render API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("render api: http %d", e.StatusCode)
	}
	return fmt.Sprintf("render api: http %d: %s", e.StatusCode, e.Message)
}

// HTTPBackend talks to the JSON render API rooted at BaseURL.
type HTTPBackend struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// HTTPOption customizes the HTTP backend.
type HTTPOption func(*HTTPBackend)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(b *HTTPBackend) {
		if client != nil {
			b.httpClient = client
		}
	}
}

// WithAPIToken sends a bearer token on every request.
func WithAPIToken(token string) HTTPOption {
	return func(b *HTTPBackend) {
		b.token = strings.TrimSpace(token)
	}
}

// NewHTTPBackend constructs a backend for the API at baseURL.
func NewHTTPBackend(baseURL string, timeout time.Duration, opts ...HTTPOption) *HTTPBackend {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	b := &HTTPBackend{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

type submitRequest struct {
	Code     string `json:"code"`
	Duration int    `json:"duration"`
}

type submitResponse struct {
	RenderID    string `json:"renderId"`
	BucketName  string `json:"bucketName"`
	Region      string `json:"region"`
	Error       string `json:"error"`
	ConfigError bool   `json:"configError"`
}

type progressResponse struct {
	Done                  bool    `json:"done"`
	OverallProgress       float64 `json:"overallProgress"`
	OutputFile            string  `json:"outputFile"`
	FatalErrorEncountered bool    `json:"fatalErrorEncountered"`
	Errors                []any   `json:"errors"`
	Error                 string  `json:"error"`
}

// Submit starts a single-shot render.
func (b *HTTPBackend) Submit(ctx context.Context, code string, durationFrames int) (Job, error) {
	return b.submit(ctx, "render", submitRequest{Code: code, Duration: durationFrames})
}

// SubmitComposition starts a stitched multi-shot render.
func (b *HTTPBackend) SubmitComposition(ctx context.Context, comp Composition) (Job, error) {
	return b.submit(ctx, "stitch", comp)
}

func (b *HTTPBackend) submit(ctx context.Context, path string, body any) (Job, error) {
	if b.baseURL == "" {
		return Job{}, &ConfigError{Message: "render base URL not configured"}
	}
	encoded, err := json.Marshal(body)
	if err != nil {
		return Job{}, fmt.Errorf("render api: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/"+path, bytes.NewReader(encoded))
	if err != nil {
		return Job{}, fmt.Errorf("render api: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var decoded submitResponse
	status, err := b.doJSON(req, &decoded)
	if err != nil {
		return Job{}, err
	}
	if decoded.ConfigError {
		return Job{}, &ConfigError{Message: decoded.Error}
	}
	if status >= http.StatusMultipleChoices || decoded.RenderID == "" {
		return Job{}, &APIError{StatusCode: status, Message: strings.TrimSpace(decoded.Error)}
	}
	return Job{ID: decoded.RenderID, Bucket: decoded.BucketName, Region: decoded.Region}, nil
}

// Progress fetches the current state of job.
func (b *HTTPBackend) Progress(ctx context.Context, job Job) (Status, error) {
	query := url.Values{}
	query.Set("renderId", job.ID)
	query.Set("bucketName", job.Bucket)
	query.Set("region", job.Region)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/render/progress?"+query.Encode(), nil)
	if err != nil {
		return Status{}, fmt.Errorf("render api: new request: %w", err)
	}

	var decoded progressResponse
	status, err := b.doJSON(req, &decoded)
	if err != nil {
		return Status{}, err
	}
	if status >= http.StatusMultipleChoices {
		return Status{}, &APIError{StatusCode: status, Message: strings.TrimSpace(decoded.Error)}
	}
	return Status{
		Done:       decoded.Done,
		Progress:   decoded.OverallProgress,
		OutputFile: decoded.OutputFile,
		Fatal:      decoded.FatalErrorEncountered,
		Errors:     decoded.Errors,
	}, nil
}

// doJSON executes req and decodes a JSON body into target. Non-JSON bodies
// on error responses are tolerated; the status code is returned for the
// caller to interpret.
func (b *HTTPBackend) doJSON(req *http.Request, target any) (int, error) {
	req.Header.Set("Accept", "application/json")
	if b.token != "" {
		req.Header.Set("Authorization", "Bearer "+b.token)
	}
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("render api: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return resp.StatusCode, fmt.Errorf("render api: read body: %w", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return resp.StatusCode, nil
	}
	if err := json.Unmarshal(body, target); err != nil {
		if resp.StatusCode >= http.StatusMultipleChoices {
			return resp.StatusCode, nil
		}
		return resp.StatusCode, fmt.Errorf("render api: decode response: %w", err)
	}
	return resp.StatusCode, nil
}
