package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/studyreward/rewardbook/internal/retry"
	"github.com/studyreward/rewardbook/internal/schema"
	"github.com/studyreward/rewardbook/internal/service"
	"github.com/studyreward/rewardbook/internal/store"
	"github.com/studyreward/rewardbook/internal/telemetry"
)

// DefaultTimeout bounds each HTTP request.
const DefaultTimeout = 30 * time.Second

// HTTPOptions configures an HTTP client.
type HTTPOptions struct {
	// Timeout per request (default: DefaultTimeout).
	Timeout time.Duration
	// Retries is the number of extra attempts for GET requests that fail
	// with a network error or a 5xx response.
	Retries int
	// RetryDelay is the backoff base (default: 200ms).
	RetryDelay time.Duration
	// Logger for retry warnings (default: discard).
	Logger *log.Logger
	// Client overrides the underlying *http.Client.
	Client *http.Client
}

// HTTP talks to a running API server.
type HTTP struct {
	base   string
	client *http.Client
	retry  retry.Config
	logger *log.Logger
}

// NewHTTP creates a client for the server at baseURL.
func NewHTTP(baseURL string, opts HTTPOptions) *HTTP {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 200 * time.Millisecond
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}

	h := &HTTP{
		base:   strings.TrimRight(baseURL, "/"),
		client: client,
		logger: logger,
	}
	h.retry = retry.Config{
		MaxAttempts: opts.Retries + 1,
		BaseDelay:   opts.RetryDelay,
		OnRetry: func(attempt int, err error) {
			telemetry.ClientRetries.Inc()
			h.logger.Printf("Warning: request attempt %d failed, retrying: %v", attempt, err)
		},
	}
	return h
}

// send performs one request and returns the status and body.
func (h *HTTP) send(ctx context.Context, method, path string, body []byte) (int, []byte, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, h.base+path, rd)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to call %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response: %w", err)
	}
	return resp.StatusCode, data, nil
}

// raw performs a request, retrying GETs, and returns a 2xx or 4xx body.
func (h *HTTP) raw(ctx context.Context, method, path string, in any) (int, []byte, error) {
	var body []byte
	if in != nil {
		var err error
		if body, err = json.Marshal(in); err != nil {
			return 0, nil, fmt.Errorf("failed to encode request: %w", err)
		}
	}

	var (
		status int
		data   []byte
	)
	attempt := func() error {
		var err error
		status, data, err = h.send(ctx, method, path, body)
		if err != nil {
			return err
		}
		if status >= 500 {
			return fmt.Errorf("server returned %d: %s", status, errorText(data))
		}
		return nil
	}

	var err error
	if method == http.MethodGet {
		err = retry.Do(ctx, h.retry, attempt)
	} else {
		err = attempt()
	}
	return status, data, err
}

// call performs a request and decodes the envelope's data into out.
func (h *HTTP) call(ctx context.Context, method, path string, in, out any) error {
	_, data, err := h.raw(ctx, method, path, in)
	if err != nil {
		return err
	}

	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if !resp.Success {
		if e := service.FromCode(resp.Code, resp.Error); e != nil {
			return e
		}
		return fmt.Errorf("server error: %s", resp.Error)
	}
	if out != nil && len(resp.Data) > 0 {
		if err := json.Unmarshal(resp.Data, out); err != nil {
			return fmt.Errorf("failed to decode response data: %w", err)
		}
	}
	return nil
}

func errorText(data []byte) string {
	var resp Response
	if json.Unmarshal(data, &resp) == nil && resp.Error != "" {
		return resp.Error
	}
	return strings.TrimSpace(string(data))
}

func escape(id string) string {
	return url.PathEscape(id)
}

func (h *HTTP) ListTemplates(ctx context.Context) ([]schema.TaskTemplate, error) {
	var out []schema.TaskTemplate
	if err := h.call(ctx, http.MethodGet, "/api/task-templates", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (h *HTTP) CreateTemplate(ctx context.Context, req service.CreateTemplateRequest) (*schema.TaskTemplate, error) {
	var out schema.TaskTemplate
	if err := h.call(ctx, http.MethodPost, "/api/task-templates", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (h *HTTP) UpdateTemplate(ctx context.Context, id string, req service.UpdateTemplateRequest) (*schema.TaskTemplate, error) {
	var out schema.TaskTemplate
	if err := h.call(ctx, http.MethodPut, "/api/task-templates/"+escape(id), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (h *HTTP) DeleteTemplate(ctx context.Context, id string) error {
	return h.call(ctx, http.MethodDelete, "/api/task-templates/"+escape(id), nil, nil)
}

func (h *HTTP) ListProducts(ctx context.Context) ([]schema.Product, error) {
	var out []schema.Product
	if err := h.call(ctx, http.MethodGet, "/api/products", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (h *HTTP) CreateProduct(ctx context.Context, req service.CreateProductRequest) (*schema.Product, error) {
	var out schema.Product
	if err := h.call(ctx, http.MethodPost, "/api/products", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (h *HTTP) UpdateProduct(ctx context.Context, id string, req service.UpdateProductRequest) (*schema.Product, error) {
	var out schema.Product
	if err := h.call(ctx, http.MethodPut, "/api/products/"+escape(id), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (h *HTTP) DeleteProduct(ctx context.Context, id string) error {
	return h.call(ctx, http.MethodDelete, "/api/products/"+escape(id), nil, nil)
}

func (h *HTTP) ListExecutions(ctx context.Context) ([]schema.TaskExecution, error) {
	var out []schema.TaskExecution
	if err := h.call(ctx, http.MethodGet, "/api/task-executions", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (h *HTTP) ActiveExecution(ctx context.Context) (*schema.TaskExecution, error) {
	var out *schema.TaskExecution
	if err := h.call(ctx, http.MethodGet, "/api/task-executions/active", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (h *HTTP) StartExecution(ctx context.Context, req service.StartRequest) (*schema.TaskExecution, error) {
	var out schema.TaskExecution
	if err := h.call(ctx, http.MethodPost, "/api/task-executions/start", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (h *HTTP) executionAction(ctx context.Context, id, action string) (*schema.TaskExecution, error) {
	var out schema.TaskExecution
	if err := h.call(ctx, http.MethodPost, "/api/task-executions/"+escape(id)+"/"+action, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (h *HTTP) PauseExecution(ctx context.Context, id string) (*schema.TaskExecution, error) {
	return h.executionAction(ctx, id, "pause")
}

func (h *HTTP) ResumeExecution(ctx context.Context, id string) (*schema.TaskExecution, error) {
	return h.executionAction(ctx, id, "resume")
}

func (h *HTTP) CancelExecution(ctx context.Context, id string) (*schema.TaskExecution, error) {
	return h.executionAction(ctx, id, "cancel")
}

func (h *HTTP) CompleteExecution(ctx context.Context, id string) (*service.CompleteResult, error) {
	var out service.CompleteResult
	if err := h.call(ctx, http.MethodPost, "/api/task-executions/"+escape(id)+"/complete", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (h *HTTP) UserData(ctx context.Context) (*schema.UserData, error) {
	var out schema.UserData
	if err := h.call(ctx, http.MethodGet, "/api/user/data", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (h *HTTP) Points(ctx context.Context) (float64, error) {
	var out pointsBody
	if err := h.call(ctx, http.MethodGet, "/api/user/points", nil, &out); err != nil {
		return 0, err
	}
	return out.Points, nil
}

func (h *HTTP) PointRecords(ctx context.Context, q service.RecordQuery) (*service.RecordPage, error) {
	v := url.Values{}
	if q.Type != "" {
		v.Set("type", string(q.Type))
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.PageSize > 0 {
		v.Set("pageSize", strconv.Itoa(q.PageSize))
	}
	if q.Since > 0 {
		v.Set("since", strconv.FormatInt(q.Since, 10))
	}
	if q.Until > 0 {
		v.Set("until", strconv.FormatInt(q.Until, 10))
	}
	path := "/api/user/point-records"
	if len(v) > 0 {
		path += "?" + v.Encode()
	}

	var out service.RecordPage
	if err := h.call(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (h *HTTP) Inventory(ctx context.Context) ([]schema.InventoryItem, error) {
	var out []schema.InventoryItem
	if err := h.call(ctx, http.MethodGet, "/api/user/inventory", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (h *HTTP) CustomStyle(ctx context.Context) (schema.CustomStyle, error) {
	out := schema.CustomStyle{}
	if err := h.call(ctx, http.MethodGet, "/api/user/custom-style", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (h *HTTP) UpdateCustomStyle(ctx context.Context, patch schema.CustomStyle) (schema.CustomStyle, error) {
	out := schema.CustomStyle{}
	if err := h.call(ctx, http.MethodPut, "/api/user/custom-style", patch, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (h *HTTP) Exchange(ctx context.Context, req service.ExchangeRequest) (*service.ExchangeResult, error) {
	var out service.ExchangeResult
	if err := h.call(ctx, http.MethodPost, "/api/user/exchange", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Export returns the export file exactly as the server produced it.
func (h *HTTP) Export(ctx context.Context) ([]byte, error) {
	status, data, err := h.raw(ctx, http.MethodGet, "/api/data/export", nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("export failed (%d): %s", status, errorText(data))
	}
	return data, nil
}

// Import posts an export file. Transport failures are reported in the
// result like any other import failure.
func (h *HTTP) Import(ctx context.Context, data []byte) store.ImportResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.base+"/api/data/import", bytes.NewReader(data))
	if err != nil {
		return store.ImportResult{Message: store.MsgImportFailed + err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return store.ImportResult{Message: store.MsgImportFailed + err.Error()}
	}
	defer resp.Body.Close()

	var out store.ImportResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return store.ImportResult{Message: store.MsgImportFailed + fmt.Sprintf("unexpected response (%d)", resp.StatusCode)}
	}
	return out
}

func (h *HTTP) Restore(ctx context.Context) (*schema.Document, error) {
	var out schema.Document
	if err := h.call(ctx, http.MethodPost, "/api/data/restore", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
