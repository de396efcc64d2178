package image

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	_ "image/png"

	"letterbanner/internal/domain"
	"letterbanner/internal/palette"
	"letterbanner/internal/providers/genai"
	"letterbanner/internal/providers/openai"
	"letterbanner/internal/providers/synthetic"
	"letterbanner/internal/retry"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func respond(status int, body string) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(strings.NewReader(body))}
}

func TestBuildLetterPrompt(t *testing.T) {
	t.Parallel()
	p, _ := palette.Lookup("ocean_breeze")
	got := BuildLetterPrompt("m", "mermaid tail", p)
	for _, want := range []string{
		"Create ONLY the letter 'M' as a decorative design inspired by mermaid tail.",
		"clearly recognizable as 'M'",
		" Use this specific color palette: deep navy blue, seafoam green, sandy beige, coral pink, crisp white. Style it with coastal, fresh, maritime style.",
		"alpha channel = 0",
		"sticker or decal",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("prompt missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(BuildLetterPrompt("a", "apple", palette.Palette{}), "palette") {
		t.Fatal("empty palette should not add guidance")
	}
}

func TestBuildEditPrompt(t *testing.T) {
	t.Parallel()
	got := BuildEditPrompt("b", " add glitter ")
	if !strings.HasPrefix(got, "add glitter ") || !strings.Contains(got, "'B'") {
		t.Fatalf("BuildEditPrompt = %q", got)
	}
}

func TestRegistry(t *testing.T) {
	t.Parallel()
	g, _ := genai.NewClient(genai.Options{})
	o, _ := openai.NewClient(openai.Options{})
	reg := NewRegistry(NewGeminiModel(g), NewOpenAIModel(o))

	if reg.Default() != "gemini-3-pro-image-preview" {
		t.Fatalf("Default() = %q", reg.Default())
	}
	ids := reg.IDs()
	if len(ids) != 2 || ids[0] != "gemini-3-pro-image-preview" || ids[1] != "gpt-image-1" {
		t.Fatalf("IDs() = %v", ids)
	}
	m, err := reg.Get("")
	if err != nil || m.ID() != reg.Default() {
		t.Fatalf("Get(\"\") = %v, %v", m, err)
	}
	if _, err := reg.Get("dall-e-2"); !errors.Is(err, domain.ErrUnsupportedModel) {
		t.Fatalf("Get(dall-e-2) err = %v, want ErrUnsupportedModel", err)
	}
	if err := reg.SetDefault("gpt-image-1"); err != nil {
		t.Fatalf("SetDefault error: %v", err)
	}
	if err := reg.SetDefault("nope"); !errors.Is(err, domain.ErrUnsupportedModel) {
		t.Fatalf("SetDefault(nope) err = %v", err)
	}
	if !reg.Has("") || reg.Has("nope") {
		t.Fatal("Has reported the wrong membership")
	}
}

func TestModelsFallBackToSyntheticWithoutKeys(t *testing.T) {
	t.Parallel()
	g, _ := genai.NewClient(genai.Options{})
	o, _ := openai.NewClient(openai.Options{})
	for _, m := range []ImageModel{NewGeminiModel(g), NewOpenAIModel(o)} {
		asset, err := m.Generate(context.Background(), LetterPrompt{Letter: "K", Theme: "kite"})
		if err != nil {
			t.Fatalf("%s Generate error: %v", m.ID(), err)
		}
		if !asset.Synthetic || asset.Model != m.ID() || asset.Width != synthetic.DefaultSize {
			t.Fatalf("%s asset = %+v", m.ID(), asset)
		}
		edited, err := m.Edit(context.Background(), EditRequest{Letter: "K", Source: asset.Data, Prompt: "add clouds"})
		if err != nil {
			t.Fatalf("%s Edit error: %v", m.ID(), err)
		}
		if !edited.Synthetic || edited.Width != synthetic.DefaultSize {
			t.Fatalf("%s edited = %+v", m.ID(), edited)
		}
	}
}

func TestOpenAIModerationIsRetryable(t *testing.T) {
	t.Parallel()
	client, _ := openai.NewClient(openai.Options{APIKey: "k", HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		return respond(400, `{"error":{"message":"blocked","code":"moderation_blocked"}}`), nil
	})}})
	_, err := NewOpenAIModel(client).Generate(context.Background(), LetterPrompt{Letter: "A", Theme: "apple"})
	if !retry.IsRetryable(err) {
		t.Fatalf("moderation block should be retryable, got %v", err)
	}
}

func TestGeminiClassification(t *testing.T) {
	t.Parallel()
	tile, _ := synthetic.LetterTile("A", "00112233aabbccdd", 4)
	cases := []struct {
		name      string
		resp      *http.Response
		wantErr   bool
		retryable bool
	}{
		{name: "ok", resp: respond(200, `{"candidates":[{"content":{"parts":[{"inlineData":{"mimeType":"image/png","data":"`+base64.StdEncoding.EncodeToString(tile)+`"}}]}}]}`)},
		{name: "no_image", resp: respond(200, `{"candidates":[]}`), wantErr: true, retryable: true},
		{name: "unavailable", resp: respond(503, `{"error":{"message":"overloaded"}}`), wantErr: true, retryable: true},
		{name: "forbidden", resp: respond(403, `{"error":{"message":"denied"}}`), wantErr: true},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			client, _ := genai.NewClient(genai.Options{APIKey: "k", HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
				return tc.resp, nil
			})}})
			asset, err := NewGeminiModel(client).Generate(context.Background(), LetterPrompt{Letter: "A", Theme: "apple"})
			if !tc.wantErr {
				if err != nil || asset.Width != 4 || asset.Synthetic {
					t.Fatalf("asset = %+v, err = %v", asset, err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error")
			}
			if retry.IsRetryable(err) != tc.retryable {
				t.Fatalf("IsRetryable(%v) = %v, want %v", err, retry.IsRetryable(err), tc.retryable)
			}
		})
	}
}

func TestClassifyKeepsCancellation(t *testing.T) {
	t.Parallel()
	if retry.IsRetryable(classify(context.Canceled)) {
		t.Fatal("context cancellation must not be retried")
	}
	if classify(nil) != nil {
		t.Fatal("classify(nil) should be nil")
	}
}
