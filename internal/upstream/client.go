package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/temcen/reelrec/internal/validation"
)

const maxResponseBytes = 10 << 20

var (
	// ErrUnavailable covers transport failures and non-success responses.
	ErrUnavailable = errors.New("upstream service unavailable")
	// ErrNotFound is returned when the upstream answers 404.
	ErrNotFound = errors.New("upstream resource not found")
	// ErrInvalidPayload is returned when a response does not match its schema.
	ErrInvalidPayload = errors.New("upstream payload invalid")
)

// StatusError reports a non-success HTTP status from an upstream service.
type StatusError struct {
	Service    string
	Path       string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d for %s", e.Service, e.StatusCode, e.Path)
}

func (e *StatusError) Unwrap() error {
	if e.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	return ErrUnavailable
}

// Client is the shared JSON-over-HTTP plumbing behind the rating and movie clients.
type Client struct {
	service    string
	baseURL    string
	httpClient *http.Client
	validator  *validation.SchemaValidator
	logger     *logrus.Logger
}

func newClient(service, baseURL string, httpClient *http.Client, validator *validation.SchemaValidator, logger *logrus.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		service:    service,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		validator:  validator,
		logger:     logger,
	}
}

// getJSON performs a GET, checks the body against schemaName and decodes it into out.
func (c *Client) getJSON(ctx context.Context, path, schemaName string, out interface{}) error {
	url := c.baseURL + path
	start := time.Now()
	status := "error"
	defer func() {
		requestDuration.WithLabelValues(c.service, status).Observe(time.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", c.service, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s request %s failed: %w: %w", c.service, path, ErrUnavailable, err)
	}
	defer resp.Body.Close()

	status = fmt.Sprintf("%d", resp.StatusCode)

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return &StatusError{Service: c.service, Path: path, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w: %w", c.service, ErrUnavailable, err)
	}

	if c.validator != nil && schemaName != "" {
		if err := c.validator.Validate(schemaName, body).Err(); err != nil {
			c.logger.WithFields(logrus.Fields{
				"service": c.service,
				"path":    path,
			}).WithError(err).Warn("Upstream response failed schema validation")
			return fmt.Errorf("%s %s: %w: %w", c.service, path, ErrInvalidPayload, err)
		}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w: %w", c.service, ErrInvalidPayload, err)
	}

	return nil
}
