// Package ocr talks to the vision-OCR inference server that turns a page
// image into structured page content. The client classifies failures as
// retryable or fatal; the batch orchestrator owns the retry policy.
package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/deepcompress/deepcompress/internal/domain"
)

// Rendered image sizes per OCR mode.
const (
	baseSizeSmall = 640
	baseSizeBase  = 1024
)

// Config holds the inference-server settings.
type Config struct {
	Endpoint          string
	Mode              string // "small" or "base"
	MaxNewTokens      int
	Temperature       float64
	RepetitionPenalty float64
	Timeout           time.Duration
}

// Client handles communication with the OCR inference server.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates an OCR client.
func NewClient(cfg Config, logger zerolog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger.With().Str("component", "ocr").Logger(),
	}
}

type inferenceRequest struct {
	Prompt            string  `json:"prompt"`
	ImageB64          string  `json:"image_base64"`
	BaseSize          int     `json:"base_size"`
	MaxNewTokens      int     `json:"max_new_tokens"`
	Temperature       float64 `json:"temperature"`
	RepetitionPenalty float64 `json:"repetition_penalty"`
}

// wireField is one named value in the server's ordered-pair encoding.
// Ordered pairs, not JSON objects, so field order survives the transport.
type wireField struct {
	Name  string      `json:"name"`
	Value interface{} `json:"value"`
}

type inferenceResponse struct {
	Entities [][]wireField   `json:"entities"`
	Tables   [][][]wireField `json:"tables"`
	Text     string          `json:"text"`
}

// ExtractPage sends one page image to the inference server and parses the
// structured result. Transport and 429/5xx failures come back retryable;
// everything else is fatal for the page.
func (c *Client) ExtractPage(ctx context.Context, img domain.PageImage) (*domain.Page, error) {
	imageData, err := os.ReadFile(img.ImagePath)
	if err != nil {
		return nil, domain.FatalExtractionError(fmt.Sprintf("read page %d image", img.PageNumber), err)
	}

	req := inferenceRequest{
		Prompt:            extractionPrompt,
		ImageB64:          base64.StdEncoding.EncodeToString(imageData),
		BaseSize:          c.baseSize(),
		MaxNewTokens:      c.cfg.MaxNewTokens,
		Temperature:       c.cfg.Temperature,
		RepetitionPenalty: c.cfg.RepetitionPenalty,
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, domain.FatalExtractionError("marshal inference request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, domain.FatalExtractionError("build inference request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, domain.RetryableExtractionError("inference request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		msg := fmt.Sprintf("inference server returned %d: %s", resp.StatusCode, payload)
		if retryableStatus(resp.StatusCode) {
			return nil, domain.RetryableExtractionError(msg, nil)
		}
		return nil, domain.FatalExtractionError(msg, nil)
	}

	var parsed inferenceResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, domain.FatalExtractionError("decode inference response", err)
	}

	return c.buildPage(img.PageNumber, &parsed)
}

func (c *Client) buildPage(number int, parsed *inferenceResponse) (*domain.Page, error) {
	page := &domain.Page{Number: number, Text: parsed.Text}

	for _, fields := range parsed.Entities {
		e, err := buildEntity(fields)
		if err != nil {
			return nil, err
		}
		page.Entities = append(page.Entities, e)
	}
	for _, rows := range parsed.Tables {
		var table domain.Table
		for _, fields := range rows {
			row, err := buildEntity(fields)
			if err != nil {
				return nil, err
			}
			table.Rows = append(table.Rows, row)
		}
		page.Tables = append(page.Tables, table)
	}

	c.logger.Debug().Int("page", number).
		Int("entities", len(page.Entities)).Int("tables", len(page.Tables)).
		Msg("page extracted")
	return page, nil
}

func buildEntity(fields []wireField) (domain.Entity, error) {
	var e domain.Entity
	for _, f := range fields {
		switch v := f.Value.(type) {
		case string:
			e.Set(f.Name, domain.String(v))
		case float64:
			e.Set(f.Name, domain.Number(v))
		case bool:
			e.Set(f.Name, domain.Boolean(v))
		default:
			return e, domain.FatalExtractionError(
				fmt.Sprintf("field %q carries unsupported value type %T", f.Name, f.Value), nil)
		}
	}
	return e, nil
}

func (c *Client) baseSize() int {
	if c.cfg.Mode == "base" {
		return baseSizeBase
	}
	return baseSizeSmall
}

// retryableStatus mirrors the transient HTTP statuses worth another attempt.
func retryableStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

const extractionPrompt = `Extract every entity, table, and free-text block from this document page.
Return JSON with three keys:
- "entities": a list of records, each record a list of {"name","value"} pairs in reading order
- "tables": a list of tables, each table a list of rows, each row a list of {"name","value"} pairs
- "text": remaining free text when no structured content is recognized
Values must be plain strings, numbers, or booleans. Do not invent content that is not on the page.`
