// Package openai is a small REST client for the OpenAI image and chat
// endpoints used by the letter generator.
package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"letterbanner/internal/infra"
)

const (
	DefaultBaseURL    = "https://api.openai.com/v1"
	DefaultImageModel = "gpt-image-1"
	DefaultTextModel  = "gpt-4o"

	// CodeModerationBlocked is returned when the safety system rejects a prompt.
	CodeModerationBlocked = "moderation_blocked"
)

// ErrNoImage is returned when a response carries neither base64 data nor a URL.
var ErrNoImage = errors.New("openai: response contained no image")

type Options struct {
	APIKey       string
	BaseURL      string
	Organization string
	ImageModel   string
	TextModel    string
	HTTPClient   *http.Client
	Logger       *infra.Logger
}

type Client struct {
	apiKey       string
	baseURL      string
	organization string
	imageModel   string
	textModel    string
	httpClient   *http.Client
	logger       *infra.Logger
}

// ImageRequest describes a generation, or an edit when Source is set.
type ImageRequest struct {
	Prompt     string
	Source     []byte
	SourceName string
	Size       string
	Background string
	Format     string
}

// APIError is a non-2xx answer decoded from the OpenAI error envelope.
type APIError struct {
	Status  int
	Code    string
	Type    string
	Message string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Code != "" {
		return fmt.Sprintf("openai status %d (%s): %s", e.Status, e.Code, msg)
	}
	return fmt.Sprintf("openai status %d: %s", e.Status, msg)
}

// Temporary reports whether the call may succeed if repeated. Moderation
// blocks are included because regenerating often passes.
func (e *APIError) Temporary() bool {
	return e.Code == CodeModerationBlocked ||
		e.Status == http.StatusTooManyRequests ||
		e.Status >= http.StatusInternalServerError
}

// Message is one chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type imageGenerationRequest struct {
	Model        string `json:"model"`
	Prompt       string `json:"prompt"`
	N            int    `json:"n"`
	Size         string `json:"size,omitempty"`
	Background   string `json:"background,omitempty"`
	OutputFormat string `json:"output_format,omitempty"`
}

type imageResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
		URL     string `json:"url"`
	} `json:"data"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    float64         `json:"temperature,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type errorEnvelope struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

func NewClient(opts Options) (*Client, error) {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 180 * time.Second}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.NopLogger()
	}
	return &Client{
		apiKey:       strings.TrimSpace(opts.APIKey),
		baseURL:      baseURL,
		organization: strings.TrimSpace(opts.Organization),
		imageModel:   firstNonEmpty(opts.ImageModel, DefaultImageModel),
		textModel:    firstNonEmpty(opts.TextModel, DefaultTextModel),
		httpClient:   client,
		logger:       logger,
	}, nil
}

func (c *Client) HasKey() bool       { return c.apiKey != "" }
func (c *Client) ImageModel() string { return c.imageModel }
func (c *Client) TextModel() string  { return c.textModel }

// GenerateImage calls /images/generations, or /images/edits when req.Source
// is set, and returns the raw image bytes.
func (c *Client) GenerateImage(ctx context.Context, req ImageRequest) ([]byte, error) {
	if c.apiKey == "" {
		return nil, errors.New("openai: api key is not configured")
	}
	var (
		httpReq *http.Request
		err     error
	)
	if len(req.Source) > 0 {
		httpReq, err = c.editRequest(ctx, req)
	} else {
		httpReq, err = c.generationRequest(ctx, req)
	}
	if err != nil {
		return nil, err
	}

	var out imageResponse
	if err := c.do(httpReq, &out); err != nil {
		return nil, err
	}
	if len(out.Data) == 0 {
		return nil, ErrNoImage
	}
	first := out.Data[0]
	switch {
	case first.B64JSON != "":
		data, err := base64.StdEncoding.DecodeString(first.B64JSON)
		if err != nil {
			return nil, fmt.Errorf("openai: decode b64_json: %w", err)
		}
		return data, nil
	case first.URL != "":
		return c.download(ctx, first.URL)
	default:
		return nil, ErrNoImage
	}
}

// Chat runs a chat completion and returns the first choice's content.
// jsonObject requests response_format json_object.
func (c *Client) Chat(ctx context.Context, messages []Message, jsonObject bool) (string, error) {
	if c.apiKey == "" {
		return "", errors.New("openai: api key is not configured")
	}
	payload := chatRequest{Model: c.textModel, Messages: messages, Temperature: 0.9}
	if jsonObject {
		payload.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("openai: marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("openai: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	var out chatResponse
	if err := c.do(httpReq, &out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", errors.New("openai: no choices")
	}
	text := strings.TrimSpace(out.Choices[0].Message.Content)
	if text == "" {
		return "", errors.New("openai: empty response")
	}
	return text, nil
}

func (c *Client) generationRequest(ctx context.Context, req ImageRequest) (*http.Request, error) {
	payload := imageGenerationRequest{
		Model:        c.imageModel,
		Prompt:       req.Prompt,
		N:            1,
		Size:         firstNonEmpty(req.Size, "1024x1024"),
		Background:   firstNonEmpty(req.Background, "transparent"),
		OutputFormat: firstNonEmpty(req.Format, "png"),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("openai: marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/images/generations", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("openai: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	return httpReq, nil
}

func (c *Client) editRequest(ctx context.Context, req ImageRequest) (*http.Request, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fields := map[string]string{
		"model":         c.imageModel,
		"prompt":        req.Prompt,
		"n":             "1",
		"size":          firstNonEmpty(req.Size, "1024x1024"),
		"background":    firstNonEmpty(req.Background, "transparent"),
		"output_format": firstNonEmpty(req.Format, "png"),
	}
	for _, key := range []string{"model", "prompt", "n", "size", "background", "output_format"} {
		if err := mw.WriteField(key, fields[key]); err != nil {
			return nil, fmt.Errorf("openai: write field %s: %w", key, err)
		}
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, firstNonEmpty(req.SourceName, "image.png")))
	header.Set("Content-Type", http.DetectContentType(req.Source))
	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("openai: create image part: %w", err)
	}
	if _, err := part.Write(req.Source); err != nil {
		return nil, fmt.Errorf("openai: write image part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("openai: close multipart: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/images/edits", &buf)
	if err != nil {
		return nil, fmt.Errorf("openai: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())
	return httpReq, nil
}

func (c *Client) do(httpReq *http.Request, out any) error {
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	if c.organization != "" {
		httpReq.Header.Set("OpenAI-Organization", c.organization)
	}
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("openai: http request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{Status: resp.StatusCode}
		var env errorEnvelope
		if err := json.Unmarshal(data, &env); err == nil {
			apiErr.Code = env.Error.Code
			apiErr.Type = env.Error.Type
			apiErr.Message = env.Error.Message
		}
		if apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		c.logger.Debug().
			Int("status", apiErr.Status).
			Str("code", apiErr.Code).
			Str("path", httpReq.URL.Path).
			Msg("openai: request failed")
		return apiErr
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("openai: decode response: %w", err)
	}
	return nil
}

func (c *Client) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("openai: create download request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai: download image: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Status: resp.StatusCode, Message: "image download failed"}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("openai: read image: %w", err)
	}
	return data, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
