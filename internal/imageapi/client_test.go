package imageapi

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"imgpt-cli/internal/interfaces"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\nfake")

func newTestServer(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL + "/", APIKey: "sk-test"}, nil), srv
}

func TestClient_Generate_Base64(t *testing.T) {
	var got map[string]any
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/images/generations" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk-test" {
			t.Errorf("Authorization = %q", auth)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]string{{"b64_json": base64.StdEncoding.EncodeToString(pngBytes)}},
		})
	})

	data, err := client.Generate(context.Background(), "a red fox", interfaces.GenerationParams{
		Model:   "gpt-image-1",
		Size:    "1024x1024",
		Quality: "high",
		Format:  "webp",
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if string(data) != string(pngBytes) {
		t.Errorf("Generate() returned %q", data)
	}

	want := map[string]any{
		"model":         "gpt-image-1",
		"prompt":        "a red fox",
		"n":             float64(1),
		"size":          "1024x1024",
		"quality":       "high",
		"output_format": "webp",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("request body mismatch (-want +got):\n%s", diff)
	}
}

func TestClient_Generate_DownloadsURL(t *testing.T) {
	var srvURL string
	client, srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/images/generations":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"data": []map[string]string{{"url": srvURL + "/files/img.png"}},
			})
		case "/files/img.png":
			_, _ = w.Write(pngBytes)
		default:
			http.NotFound(w, r)
		}
	})
	srvURL = srv.URL

	data, err := client.Generate(context.Background(), "x", interfaces.GenerationParams{Model: "custom-model"})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if string(data) != string(pngBytes) {
		t.Errorf("Generate() returned %q", data)
	}
}

func TestClient_Generate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{
			name:    "api error message",
			status:  http.StatusBadRequest,
			body:    `{"error":{"message":"Your request was rejected","type":"invalid_request_error"}}`,
			wantErr: "api status 400: Your request was rejected",
		},
		{
			name:    "bare status",
			status:  http.StatusInternalServerError,
			body:    `oops`,
			wantErr: "api status 500",
		},
		{
			name:    "empty data",
			status:  http.StatusOK,
			body:    `{"data":[]}`,
			wantErr: "no images returned",
		},
		{
			name:    "bad json",
			status:  http.StatusOK,
			body:    `{`,
			wantErr: "parse response",
		},
		{
			name:    "bad base64",
			status:  http.StatusOK,
			body:    `{"data":[{"b64_json":"%%%"}]}`,
			wantErr: "decode b64 image",
		},
		{
			name:    "neither field",
			status:  http.StatusOK,
			body:    `{"data":[{}]}`,
			wantErr: "neither b64_json nor url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				calls++
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := client.Generate(context.Background(), "x", interfaces.GenerationParams{Model: "dall-e-2"})
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Generate() error = %v, want containing %q", err, tt.wantErr)
			}
			if calls != 1 {
				t.Errorf("expected exactly one request, got %d", calls)
			}
		})
	}
}

func TestClient_Generate_ContextCanceled(t *testing.T) {
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not reach the server")
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Generate(ctx, "x", interfaces.GenerationParams{Model: "gpt-image-1"})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Generate() error = %v, want context.Canceled", err)
	}
}

func TestBuildRequest(t *testing.T) {
	tests := []struct {
		name   string
		params interfaces.GenerationParams
		want   Request
	}{
		{
			name:   "dall-e-3 keeps style and asks for b64",
			params: interfaces.GenerationParams{Model: "dall-e-3", Size: "1792x1024", Quality: "hd", Style: "vivid", Format: "png"},
			want:   Request{Model: "dall-e-3", Prompt: "p", N: 1, Size: "1792x1024", Quality: "hd", Style: "vivid", ResponseFormat: "b64_json"},
		},
		{
			name:   "dall-e-3 drops unsupported quality",
			params: interfaces.GenerationParams{Model: "dall-e-3", Quality: "high"},
			want:   Request{Model: "dall-e-3", Prompt: "p", N: 1, ResponseFormat: "b64_json"},
		},
		{
			name:   "dall-e-2 drops style",
			params: interfaces.GenerationParams{Model: "dall-e-2", Size: "512x512", Quality: "standard", Style: "natural"},
			want:   Request{Model: "dall-e-2", Prompt: "p", N: 1, Size: "512x512", Quality: "standard", ResponseFormat: "b64_json"},
		},
		{
			name:   "gpt-image-1 sends output format and drops style",
			params: interfaces.GenerationParams{Model: "gpt-image-1", Quality: "low", Style: "vivid", Format: "jpeg"},
			want:   Request{Model: "gpt-image-1", Prompt: "p", N: 1, Quality: "low", OutputFormat: "jpeg"},
		},
		{
			name:   "unknown model passes quality and style through",
			params: interfaces.GenerationParams{Model: "future-model", Quality: "ultra", Style: "noir", Format: "png"},
			want:   Request{Model: "future-model", Prompt: "p", N: 1, Quality: "ultra", Style: "noir"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, BuildRequest("p", tt.params)); diff != "" {
				t.Errorf("BuildRequest() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNewClient_Defaults(t *testing.T) {
	client := NewClient(Config{}, nil)
	if client.baseURL != DefaultBaseURL {
		t.Errorf("baseURL = %q, want %q", client.baseURL, DefaultBaseURL)
	}
	if client.httpClient.Timeout != DefaultTimeout {
		t.Errorf("timeout = %v, want %v", client.httpClient.Timeout, DefaultTimeout)
	}
}
