package genai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"clearmark/internal/domain"
	"clearmark/internal/infra"
)

// Options controls how the Gemini client is configured.
type Options struct {
	APIKey     string
	BaseURL    string
	Model      string
	VideoModel string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Client is a lightweight facade over the Gemini REST API covering the two
// calls this tool needs: a synchronous image edit and the long-running video
// generation operation, plus the authenticated download of operation results.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	videoModel string
	httpClient *http.Client
	logger     *infra.Logger
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts,omitempty"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

type geminiGenerateContentRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
}

type geminiGenerateContentResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
}

type veoImage struct {
	BytesBase64Encoded string `json:"bytesBase64Encoded"`
	MimeType           string `json:"mimeType"`
}

type veoInstance struct {
	Prompt string    `json:"prompt"`
	Image  *veoImage `json:"image,omitempty"`
}

type veoParameters struct {
	SampleCount int    `json:"sampleCount"`
	Resolution  string `json:"resolution,omitempty"`
	AspectRatio string `json:"aspectRatio,omitempty"`
}

type veoPredictRequest struct {
	Instances  []veoInstance `json:"instances"`
	Parameters veoParameters `json:"parameters"`
}

type operationResponse struct {
	Name     string `json:"name"`
	Done     bool   `json:"done"`
	Response *struct {
		GenerateVideoResponse struct {
			GeneratedSamples []struct {
				Video struct {
					URI string `json:"uri"`
				} `json:"video"`
			} `json:"generatedSamples"`
		} `json:"generateVideoResponse"`
	} `json:"response,omitempty"`
	Error *struct {
		Code    int    `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
		Status  string `json:"status,omitempty"`
	} `json:"error,omitempty"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
		Status  string `json:"status,omitempty"`
	} `json:"error"`
}

// NewClient constructs a Gemini client with sane defaults. Callers may provide
// a nil HTTP client; a reusable one with sensible timeouts will be created.
func NewClient(opts Options) (*Client, error) {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 120 * time.Second}
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}

	model := opts.Model
	if model == "" {
		model = "gemini-2.5-flash-image"
	}
	videoModel := opts.VideoModel
	if videoModel == "" {
		videoModel = "veo-3.0-generate-001"
	}

	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}

	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		model:      model,
		videoModel: videoModel,
		httpClient: client,
		logger:     logger,
	}, nil
}

// Model returns the configured image edit model identifier.
func (c *Client) Model() string {
	return c.model
}

// VideoModel returns the configured video generation model identifier.
func (c *Client) VideoModel() string {
	return c.videoModel
}

// EditImage sends one inline image with an editing instruction and returns
// every part of the first candidate's content. Callers pick the parts they
// care about; an empty slice is a valid service answer.
func (c *Client) EditImage(ctx context.Context, image domain.EncodedImage, instruction string) ([]domain.EncodedImage, error) {
	if c.apiKey == "" {
		return nil, domain.ErrMissingAPIKey
	}

	payload := geminiGenerateContentRequest{
		Contents: []geminiContent{{
			Role: "user",
			Parts: []geminiPart{
				{InlineData: &geminiInlineData{
					MimeType: image.MIMEType,
					Data:     base64.StdEncoding.EncodeToString(image.Data),
				}},
				{Text: instruction},
			},
		}},
	}

	var response geminiGenerateContentResponse
	path := fmt.Sprintf("/models/%s:generateContent", url.PathEscape(c.model))
	if err := c.invoke(ctx, http.MethodPost, path, payload, &response); err != nil {
		return nil, err
	}

	var parts []domain.EncodedImage
	for _, candidate := range response.Candidates {
		for _, part := range candidate.Content.Parts {
			if part.InlineData == nil || part.InlineData.Data == "" {
				continue
			}
			data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
			if err != nil {
				return nil, fmt.Errorf("decode inline data: %w", err)
			}
			parts = append(parts, domain.EncodedImage{Data: data, MIMEType: part.InlineData.MimeType})
		}
		break
	}

	c.logger.Debug().
		Str("model", c.model).
		Int("image_parts", len(parts)).
		Msg("genai: image edit completed")

	return parts, nil
}

// SubmitVideo starts a long-running video generation seeded with the given
// image and returns the job handle to poll.
func (c *Client) SubmitVideo(ctx context.Context, seed domain.EncodedImage, prompt, aspectRatio, resolution string) (domain.GenerationJob, error) {
	if c.apiKey == "" {
		return domain.GenerationJob{}, domain.ErrMissingAPIKey
	}

	payload := veoPredictRequest{
		Instances: []veoInstance{{
			Prompt: prompt,
			Image: &veoImage{
				BytesBase64Encoded: base64.StdEncoding.EncodeToString(seed.Data),
				MimeType:           seed.MIMEType,
			},
		}},
		Parameters: veoParameters{
			SampleCount: 1,
			Resolution:  resolution,
			AspectRatio: aspectRatio,
		},
	}

	var op operationResponse
	path := fmt.Sprintf("/models/%s:predictLongRunning", url.PathEscape(c.videoModel))
	if err := c.invoke(ctx, http.MethodPost, path, payload, &op); err != nil {
		return domain.GenerationJob{}, err
	}
	if op.Name == "" {
		return domain.GenerationJob{}, fmt.Errorf("submit video: operation name missing")
	}

	c.logger.Debug().
		Str("model", c.videoModel).
		Str("operation", op.Name).
		Msg("genai: video generation submitted")

	return jobFromOperation(op), nil
}

// PollOperation re-queries the long-running operation named by the job handle.
func (c *Client) PollOperation(ctx context.Context, name string) (domain.GenerationJob, error) {
	if c.apiKey == "" {
		return domain.GenerationJob{}, domain.ErrMissingAPIKey
	}

	var op operationResponse
	if err := c.invoke(ctx, http.MethodGet, "/"+strings.TrimLeft(name, "/"), nil, &op); err != nil {
		return domain.GenerationJob{}, err
	}
	return jobFromOperation(op), nil
}

// Download fetches result bytes from a URI returned by a done operation,
// carrying the API key. Relative URIs are resolved against the base URL.
func (c *Client) Download(ctx context.Context, uri string) ([]byte, error) {
	if c.apiKey == "" {
		return nil, domain.ErrMissingAPIKey
	}

	target := uri
	if !strings.HasPrefix(uri, "http://") && !strings.HasPrefix(uri, "https://") {
		target = c.baseURL + "/" + strings.TrimLeft(uri, "/")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create download request: %w", err)
	}
	q := req.URL.Query()
	q.Set("key", c.apiKey)
	req.URL.RawQuery = q.Encode()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download result: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &domain.DownloadError{Status: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	blob, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read result body: %w", err)
	}
	return blob, nil
}

func jobFromOperation(op operationResponse) domain.GenerationJob {
	job := domain.GenerationJob{Name: op.Name, Done: op.Done}
	if op.Error != nil {
		job.Error = op.Error.Message
	}
	if op.Response != nil {
		samples := op.Response.GenerateVideoResponse.GeneratedSamples
		if len(samples) > 0 {
			job.ResultURI = samples[0].Video.URI
		}
	}
	return job
}

func (c *Client) invoke(ctx context.Context, method, path string, payload, out any) error {
	endpoint := c.baseURL + path
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	q := req.URL.Query()
	q.Set("key", c.apiKey)
	req.URL.RawQuery = q.Encode()
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("invoke gemini: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return c.decodeError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode gemini response: %w", err)
	}
	return nil
}

// decodeError turns a non-2xx response into an error. An entity-not-found
// answer almost always means the key is invalid or revoked rather than a
// transient fault, so it maps to ErrInvalidCredential.
func (c *Client) decodeError(resp *http.Response) error {
	var apiErr geminiErrorResponse
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
	if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Error.Message != "" {
		if resp.StatusCode == http.StatusNotFound || apiErr.Error.Status == "NOT_FOUND" {
			return fmt.Errorf("%w: %s", domain.ErrInvalidCredential, apiErr.Error.Message)
		}
		return fmt.Errorf("gemini status %d: %s", resp.StatusCode, apiErr.Error.Message)
	}
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: gemini status 404", domain.ErrInvalidCredential)
	}
	if trimmed := strings.TrimSpace(string(data)); trimmed != "" {
		return fmt.Errorf("gemini status %d: %s", resp.StatusCode, trimmed)
	}
	return fmt.Errorf("gemini status %d", resp.StatusCode)
}
