package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Rana718/datamock/internal/config"
	"github.com/Rana718/datamock/internal/logger"
	"github.com/Rana718/datamock/internal/schema"
	"github.com/Rana718/datamock/internal/types"
	"github.com/Rana718/datamock/internal/validation"
	"go.uber.org/zap"
)

const (
	// multipart field names expected by the parse endpoint
	fieldSchemaFile = "file"
	fieldSeedFile   = "seed_data_file"

	maxResponseBytes = 64 << 20
)

type Options struct {
	BaseURL           string
	ParsePath         string
	GeneratePath      string
	HealthPath        string
	SchemasPath       string
	SaveToDisk        bool
	OverwriteExisting bool
	HTTPClient        *http.Client
	Logger            *zap.Logger
}

// Client talks to the schema-parsing and data-generation service.
type Client struct {
	opts       Options
	httpClient *http.Client
	log        *zap.Logger
}

func New(opts Options) *Client {
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if opts.ParsePath == "" {
		opts.ParsePath = config.DefaultParsePath
	}
	if opts.GeneratePath == "" {
		opts.GeneratePath = config.DefaultGeneratePath
	}
	if opts.HealthPath == "" {
		opts.HealthPath = config.DefaultHealthPath
	}
	if opts.SchemasPath == "" {
		opts.SchemasPath = config.DefaultSchemasPath
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Client{
		opts:       opts,
		httpClient: httpClient,
		log:        logger.OrNop(opts.Logger),
	}
}

// NewFromConfig builds a client from the gateway section of cfg. Deadlines
// come from the caller's context, not the http.Client.
func NewFromConfig(cfg *config.Config, log *zap.Logger) *Client {
	return New(Options{
		BaseURL:           cfg.Gateway.BaseURL,
		ParsePath:         cfg.Gateway.ParsePath,
		GeneratePath:      cfg.Gateway.GeneratePath,
		HealthPath:        cfg.Gateway.HealthPath,
		SchemasPath:       cfg.Gateway.SchemasPath,
		SaveToDisk:        cfg.Gateway.SaveToDisk,
		OverwriteExisting: cfg.Gateway.OverwriteExisting,
		Logger:            log,
	})
}

// Parse uploads the schema file (and optional seed file) and returns the
// decoded structure. The response's data field is itself a JSON document
// serialized to a string, so it is decoded a second time here.
func (c *Client) Parse(ctx context.Context, primary, secondary *validation.File) (types.ParseResult, error) {
	if primary == nil {
		return types.ParseResult{}, &Error{Kind: KindParseFailed, Message: "no schema file to upload"}
	}

	body, contentType, err := multipartBody(primary, secondary)
	if err != nil {
		return types.ParseResult{}, &Error{Kind: KindParseFailed, Message: "failed to build upload body", Err: err}
	}

	q := url.Values{}
	q.Set("save_to_disk", strconv.FormatBool(c.opts.SaveToDisk))
	q.Set("overwrite_existing", strconv.FormatBool(c.opts.OverwriteExisting))
	endpoint := c.url(c.opts.ParsePath, q)

	resp, err := c.do(ctx, http.MethodPost, endpoint, contentType, body, KindParseFailed)
	if err != nil {
		return types.ParseResult{}, err
	}

	var envelope types.ParseResponse
	if err := json.Unmarshal(resp.body, &envelope); err != nil {
		return types.ParseResult{}, &Error{
			Kind:    KindMalformedResponse,
			Status:  resp.status,
			Message: "parse response is not valid JSON",
			Err:     err,
		}
	}

	if !envelope.Success {
		msg := envelope.Message
		if msg == "" {
			msg = "the service could not parse the schema"
		}
		return types.ParseResult{}, &Error{Kind: KindParseFailed, Status: resp.status, Message: msg}
	}

	if envelope.Data == "" {
		msg := "parse response carried no schema data"
		if envelope.Message != "" {
			msg += ": " + envelope.Message
		}
		return types.ParseResult{}, &Error{Kind: KindMalformedResponse, Status: resp.status, Message: msg}
	}

	structure, err := schema.Decode(envelope.Data)
	if err != nil {
		return types.ParseResult{}, &Error{
			Kind:    KindMalformedResponse,
			Status:  resp.status,
			Message: "parse response data is not a database structure",
			Err:     err,
		}
	}

	c.log.Debug("schema parsed",
		zap.String("schema_id", envelope.SchemaID),
		zap.Int("tables", len(schema.ListTableNames(structure))),
	)

	return types.ParseResult{
		Structure:  structure,
		SchemaID:   envelope.SchemaID,
		Message:    envelope.Message,
		Statistics: envelope.Statistics,
	}, nil
}

// Generate submits the configured structure for data generation. Only the
// status code of the response is significant.
func (c *Client) Generate(ctx context.Context, req types.GenerateRequest) error {
	data, err := json.Marshal(req)
	if err != nil {
		return &Error{Kind: KindGenerateFailed, Message: "failed to encode generate request", Err: err}
	}

	_, err = c.do(ctx, http.MethodPost, c.url(c.opts.GeneratePath, nil), "application/json", bytes.NewReader(data), KindGenerateFailed)
	return err
}

func (c *Client) Health(ctx context.Context) (types.HealthResponse, error) {
	var health types.HealthResponse
	if err := c.getJSON(ctx, c.url(c.opts.HealthPath, nil), &health); err != nil {
		return types.HealthResponse{}, err
	}
	return health, nil
}

type ListOptions struct {
	Limit  int
	Offset int
	Search string
}

// ListSchemas pages through the schemas the service has stored.
func (c *Client) ListSchemas(ctx context.Context, opts ListOptions) (types.SchemaList, error) {
	q := url.Values{}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		q.Set("offset", strconv.Itoa(opts.Offset))
	}
	if opts.Search != "" {
		q.Set("search", opts.Search)
	}

	var list types.SchemaList
	if err := c.getJSON(ctx, c.url(c.opts.SchemasPath, q), &list); err != nil {
		return types.SchemaList{}, err
	}
	return list, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	resp, err := c.do(ctx, http.MethodGet, endpoint, "", nil, KindRequestFailed)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		return &Error{Kind: KindMalformedResponse, Status: resp.status, Message: "response is not valid JSON", Err: err}
	}
	return nil
}

type response struct {
	status int
	body   []byte
}

// do performs one request and maps transport and status failures onto
// kind. Successful responses are fully read before returning.
func (c *Client) do(ctx context.Context, method, endpoint, contentType string, body io.Reader, kind Kind) (*response, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, &Error{Kind: kind, Message: "failed to create request", Err: err}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	c.log.Debug("gateway request", zap.String("method", method), zap.String("url", endpoint))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug("gateway request failed", zap.String("url", endpoint), zap.Error(err))
		msg := NetworkMessage
		if errors.Is(err, context.DeadlineExceeded) {
			msg = "the backend service did not respond in time"
		} else if errors.Is(err, context.Canceled) {
			msg = "the request was cancelled"
		}
		return nil, &Error{Kind: kind, Network: true, Message: msg, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &Error{Kind: kind, Status: resp.StatusCode, Network: true, Message: "failed to read response body", Err: err}
	}

	c.log.Debug("gateway response",
		zap.String("url", endpoint),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(data)),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{Kind: kind, Status: resp.StatusCode, Message: errorMessage(resp.StatusCode, data)}
	}
	return &response{status: resp.StatusCode, body: data}, nil
}

func (c *Client) url(path string, q url.Values) string {
	u := c.opts.BaseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

// errorMessage pulls a readable message out of an error body. FastAPI puts
// it under detail (a string, or a list of validation problems); other
// handlers use message or error.
func errorMessage(status int, body []byte) string {
	var payload struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
		Error   string          `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if len(payload.Detail) > 0 && string(payload.Detail) != "null" {
			var detail string
			if err := json.Unmarshal(payload.Detail, &detail); err == nil && detail != "" {
				return detail
			}
			return string(payload.Detail)
		}
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}

	text := strings.TrimSpace(string(body))
	if text == "" {
		return http.StatusText(status)
	}
	if len(text) > 200 {
		text = text[:200] + "..."
	}
	return text
}

func multipartBody(primary, secondary *validation.File) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	if err := writeFilePart(w, fieldSchemaFile, primary); err != nil {
		return nil, "", err
	}
	if secondary != nil {
		if err := writeFilePart(w, fieldSeedFile, secondary); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf, w.FormDataContentType(), nil
}

func writeFilePart(w *multipart.Writer, field string, f *validation.File) error {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", mime.FormatMediaType("form-data", map[string]string{
		"name":     field,
		"filename": f.Name,
	}))
	contentType := f.MediaType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)

	part, err := w.CreatePart(h)
	if err != nil {
		return fmt.Errorf("failed to create %s part: %w", field, err)
	}
	if _, err := part.Write(f.Content); err != nil {
		return fmt.Errorf("failed to write %s part: %w", field, err)
	}
	return nil
}
