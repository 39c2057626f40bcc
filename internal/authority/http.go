package authority

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

	"github.com/folio/folio/internal/domain"
)

// HTTPClient is the JSON-over-HTTP authority adapter
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	signer     *Signer
}

// Option configures the HTTP client
type Option func(*HTTPClient)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *HTTPClient) {
		c.httpClient = httpClient
	}
}

// WithTimeout sets the per-request timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *HTTPClient) {
		c.httpClient.Timeout = timeout
	}
}

// WithSigningKey signs every request body with key
func WithSigningKey(key string) Option {
	return func(c *HTTPClient) {
		c.signer = NewSigner(key)
	}
}

// NewHTTPClient creates a client for the authority at baseURL
func NewHTTPClient(baseURL, token string, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

type statusResponse struct {
	ValidationID string                    `json:"validation_id"`
	QRPayload    string                    `json:"qr_payload"`
	Status       domain.ConfirmationStatus `json:"status"`
	ConfirmedAt  *time.Time                `json:"confirmed_at"`
}

func (r statusResponse) confirmation() *domain.Confirmation {
	return &domain.Confirmation{
		ValidationID: r.ValidationID,
		QRPayload:    r.QRPayload,
		Status:       r.Status,
		ConfirmedAt:  r.ConfirmedAt,
	}
}

type submitResponse struct {
	statusResponse
	Success     bool   `json:"success"`
	ReferenceID string `json:"reference_id"`
	Message     string `json:"message"`
}

// Submit sends a document for validation. A 400 or 422 reply is a rejection
// verdict, not a transport failure.
func (c *HTTPClient) Submit(ctx context.Context, payload *Payload) (*SubmitResult, error) {
	var resp submitResponse
	status, err := c.do(ctx, http.MethodPost, "/documents", payload, &resp, http.StatusBadRequest, http.StatusUnprocessableEntity)
	if err != nil {
		return nil, err
	}

	if status >= http.StatusBadRequest || !resp.Success {
		return &SubmitResult{
			Success:     false,
			ReferenceID: resp.ReferenceID,
			Message:     resp.Message,
		}, nil
	}

	return &SubmitResult{
		Success:      true,
		Confirmation: resp.confirmation(),
		ReferenceID:  resp.ReferenceID,
	}, nil
}

// FetchStatus returns the current confirmation for a validation id
func (c *HTTPClient) FetchStatus(ctx context.Context, validationID string) (*domain.Confirmation, error) {
	var resp statusResponse
	if _, err := c.do(ctx, http.MethodGet, "/documents/"+url.PathEscape(validationID)+"/status", nil, &resp); err != nil {
		return nil, err
	}
	if resp.ValidationID == "" {
		resp.ValidationID = validationID
	}
	return resp.confirmation(), nil
}

// SendNotification asks the authority to deliver the validated document by email
func (c *HTTPClient) SendNotification(ctx context.Context, confirmation *domain.Confirmation, email string) (bool, error) {
	body := map[string]string{"email": email}
	var resp struct {
		Sent bool `json:"sent"`
	}
	path := "/documents/" + url.PathEscape(confirmation.ValidationID) + "/notifications"
	if _, err := c.do(ctx, http.MethodPost, path, body, &resp); err != nil {
		return false, err
	}
	return resp.Sent, nil
}

// do sends a JSON request and decodes the reply into out. Statuses other than
// 2xx and the accepted list become *APIError.
func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any, accepted ...int) (int, error) {
	var reader io.Reader
	var raw []byte
	if body != nil {
		var err error
		raw, err = json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.signer.Enabled() {
		req.Header.Set(SignatureHeader, c.signer.Sign(raw))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if !successful(resp.StatusCode, accepted) {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return resp.StatusCode, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
	}
	return resp.StatusCode, nil
}

func successful(status int, accepted []int) bool {
	if status >= 200 && status < 300 {
		return true
	}
	for _, s := range accepted {
		if status == s {
			return true
		}
	}
	return false
}
