// Package classifier assigns a document type to extracted text using a
// Hugging Face zero-shot classification endpoint.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrEmptyText       = errors.New("no text to classify")
	ErrRequestFailed   = errors.New("classification request failed")
	ErrInvalidResponse = errors.New("invalid classification response")
)

// DefaultLabels are the candidate document types.
var DefaultLabels = []string{
	"ultrasound report",
	"blood test results",
	"urine analysis",
	"prenatal screening",
}

// Classification is the top-scoring label.
type Classification struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Classifier labels document text.
type Classifier interface {
	Classify(ctx context.Context, text string) (*Classification, error)
}

// Config configures the HTTP client.
type Config struct {
	URL    string
	Token  string
	Labels []string
	// Timeout applies to each attempt.
	Timeout      time.Duration
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	// MaxInputChars truncates the text sent to the endpoint; zero disables it.
	MaxInputChars int
}

type zeroShotRequest struct {
	Inputs     string             `json:"inputs"`
	Parameters zeroShotParameters `json:"parameters"`
}

type zeroShotParameters struct {
	CandidateLabels []string `json:"candidate_labels"`
}

type zeroShotResponse struct {
	Labels []string  `json:"labels"`
	Scores []float64 `json:"scores"`
}

// Client calls the zero-shot endpoint with retries.
type Client struct {
	cfg     Config
	http    *retryablehttp.Client
	logger  *slog.Logger
	metrics *Metrics
}

var _ Classifier = (*Client)(nil)

// NewClient creates a classifier client. meter may be nil.
func NewClient(cfg Config, logger *slog.Logger, meter metric.Meter) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("classifier URL is required")
	}
	if len(cfg.Labels) == 0 {
		cfg.Labels = DefaultLabels
	}
	if logger == nil {
		logger = slog.Default()
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.RetryMax
	if cfg.RetryWaitMin > 0 {
		rc.RetryWaitMin = cfg.RetryWaitMin
	}
	if cfg.RetryWaitMax > 0 {
		rc.RetryWaitMax = cfg.RetryWaitMax
	}
	if cfg.Timeout > 0 {
		rc.HTTPClient.Timeout = cfg.Timeout
	}
	rc.Logger = logger
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	c := &Client{
		cfg:    cfg,
		http:   rc,
		logger: logger,
	}

	if meter != nil {
		metrics, err := NewMetrics(meter)
		if err != nil {
			return nil, fmt.Errorf("create metrics: %w", err)
		}
		c.metrics = metrics
	}

	return c, nil
}

// Labels returns the candidate labels sent with every request.
func (c *Client) Labels() []string {
	return c.cfg.Labels
}

// Classify sends text to the endpoint and returns the top label with its
// score rounded to four decimals.
func (c *Client) Classify(ctx context.Context, text string) (*Classification, error) {
	start := time.Now()
	result, err := c.classify(ctx, text)
	if c.metrics != nil {
		c.metrics.RecordRequest(ctx, result, err, time.Since(start))
	}
	return result, err
}

func (c *Client) classify(ctx context.Context, text string) (*Classification, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}
	if c.cfg.MaxInputChars > 0 {
		if runes := []rune(text); len(runes) > c.cfg.MaxInputChars {
			text = string(runes[:c.cfg.MaxInputChars])
		}
	}

	body, err := json.Marshal(zeroShotRequest{
		Inputs:     text,
		Parameters: zeroShotParameters{CandidateLabels: c.cfg.Labels},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrRequestFailed, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d: %s", ErrRequestFailed, resp.StatusCode, truncate(string(data), 200))
	}

	parsed, err := decodeResponse(data)
	if err != nil {
		return nil, err
	}
	if !lo.Contains(c.cfg.Labels, parsed.Labels[0]) {
		return nil, fmt.Errorf("%w: unknown label %q", ErrInvalidResponse, truncate(parsed.Labels[0], 64))
	}

	return &Classification{
		Label:      parsed.Labels[0],
		Confidence: round4(parsed.Scores[0]),
	}, nil
}

// decodeResponse accepts either a single result object or a one-element
// array wrapping it, as some inference endpoints return batches.
func decodeResponse(data []byte) (*zeroShotResponse, error) {
	var parsed zeroShotResponse
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var batch []zeroShotResponse
		if err := json.Unmarshal(trimmed, &batch); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
		}
		if len(batch) == 0 {
			return nil, fmt.Errorf("%w: empty batch", ErrInvalidResponse)
		}
		parsed = batch[0]
	} else if err := json.Unmarshal(trimmed, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	if len(parsed.Labels) == 0 || len(parsed.Scores) == 0 {
		return nil, fmt.Errorf("%w: no labels", ErrInvalidResponse)
	}
	if len(parsed.Labels) != len(parsed.Scores) {
		return nil, fmt.Errorf("%w: %d labels but %d scores", ErrInvalidResponse, len(parsed.Labels), len(parsed.Scores))
	}
	return &parsed, nil
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
