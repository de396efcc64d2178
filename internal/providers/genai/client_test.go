package genai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	_ "image/png"

	"letterbanner/internal/providers/synthetic"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestGenerateImageSyntheticWithoutKey(t *testing.T) {
	t.Parallel()
	client, _ := NewClient(Options{HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		t.Fatal("no HTTP call expected without an API key")
		return nil, nil
	})}})
	asset, err := client.GenerateImage(context.Background(), ImageRequest{Prompt: "p", Label: "A"})
	if err != nil {
		t.Fatalf("GenerateImage error: %v", err)
	}
	if !asset.Synthetic || asset.Width != synthetic.DefaultSize || asset.Height != synthetic.DefaultSize {
		t.Fatalf("unexpected synthetic asset: synthetic=%v %dx%d", asset.Synthetic, asset.Width, asset.Height)
	}
}

func TestGenerateImageRequestShape(t *testing.T) {
	t.Parallel()
	tile, _ := synthetic.LetterTile("A", "abcdefabcdef0000", 8)
	encoded := base64.StdEncoding.EncodeToString(tile)

	var captured map[string]any
	client, _ := NewClient(Options{
		APIKey:  "k",
		BaseURL: "https://gemini.test/v1beta/",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			if r.URL.String() != "https://gemini.test/v1beta/models/gemini-3-pro-image-preview:generateContent" {
				t.Fatalf("unexpected url %s", r.URL)
			}
			if r.Header.Get("x-goog-api-key") != "k" {
				t.Fatalf("missing api key header")
			}
			if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			return jsonResponse(200, `{"candidates":[{"content":{"parts":[{"text":"here"},{"inlineData":{"mimeType":"image/png","data":"`+encoded+`"}}]}}]}`), nil
		})},
	})

	asset, err := client.GenerateImage(context.Background(), ImageRequest{Prompt: "draw", Source: tile})
	if err != nil {
		t.Fatalf("GenerateImage error: %v", err)
	}
	if asset.Width != 8 || asset.Synthetic {
		t.Fatalf("unexpected asset %+v", asset)
	}
	cfg := captured["generationConfig"].(map[string]any)
	if mods := cfg["responseModalities"].([]any); len(mods) != 1 || mods[0] != "IMAGE" {
		t.Fatalf("responseModalities = %v", mods)
	}
	img := cfg["imageConfig"].(map[string]any)
	if img["aspectRatio"] != "1:1" || img["imageSize"] != "1K" {
		t.Fatalf("imageConfig = %v", img)
	}
	parts := captured["contents"].([]any)[0].(map[string]any)["parts"].([]any)
	if len(parts) != 2 {
		t.Fatalf("parts = %d, want prompt and inline source", len(parts))
	}
}

func TestGenerateImageErrors(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name      string
		resp      *http.Response
		temporary bool
		noImage   bool
	}{
		{name: "rate_limited", resp: jsonResponse(429, `{"error":{"code":429,"message":"slow down"}}`), temporary: true},
		{name: "server_error", resp: jsonResponse(503, `unavailable`), temporary: true},
		{name: "bad_request", resp: jsonResponse(400, `{"error":{"message":"bad prompt"}}`)},
		{name: "text_only", resp: jsonResponse(200, `{"candidates":[{"content":{"parts":[{"text":"sorry"}]}}]}`), noImage: true},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			client, _ := NewClient(Options{APIKey: "k", HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
				return tc.resp, nil
			})}})
			_, err := client.GenerateImage(context.Background(), ImageRequest{Prompt: "x"})
			if tc.noImage {
				if !errors.Is(err, ErrNoImage) {
					t.Fatalf("err = %v, want ErrNoImage", err)
				}
				return
			}
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("err = %v, want *APIError", err)
			}
			if apiErr.Temporary() != tc.temporary {
				t.Fatalf("Temporary() = %v, want %v", apiErr.Temporary(), tc.temporary)
			}
		})
	}
}

func TestGenerateText(t *testing.T) {
	t.Parallel()
	client, _ := NewClient(Options{APIKey: "k", HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		if !strings.Contains(r.URL.Path, DefaultTextModel) {
			t.Fatalf("text call used %s", r.URL.Path)
		}
		return jsonResponse(200, `{"candidates":[{"content":{"parts":[{"text":"  "},{"text":"[1]"}]}}]}`), nil
	})}})
	text, err := client.GenerateText(context.Background(), "hi", true)
	if err != nil {
		t.Fatalf("GenerateText error: %v", err)
	}
	if text != "[1]" {
		t.Fatalf("text = %q, want [1]", text)
	}

	noKey, _ := NewClient(Options{})
	if _, err := noKey.GenerateText(context.Background(), "hi", false); err == nil {
		t.Fatal("expected error without api key")
	}
}
