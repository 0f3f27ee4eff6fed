package chat

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/openai/openai-go/v3/option"
)

func newOpenAITestServer(t *testing.T, handler http.HandlerFunc) *OpenAIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewOpenAIClient("sk-test", "", "", noSleepPolicy(3), option.WithBaseURL(srv.URL+"/"))
}

const chatCompletionBody = `{"id":"c1","object":"chat.completion","created":1,"model":"gpt-4.1-mini",
"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"  Yes.  "}}]}`

func TestOpenAIClient_GenerateText(t *testing.T) {
	var gotPath string
	c := newOpenAITestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, chatCompletionBody)
	})

	got, err := c.GenerateText(context.Background(), "hello")
	if err != nil {
		t.Fatalf("GenerateText: %v", err)
	}
	if got != "Yes." {
		t.Errorf("text = %q", got)
	}
	if !strings.HasSuffix(gotPath, "/chat/completions") {
		t.Errorf("path = %q", gotPath)
	}
}

func TestOpenAIClient_AskAboutImageSendsDataURL(t *testing.T) {
	var body map[string]any
	c := newOpenAITestServer(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, chatCompletionBody)
	})

	_, err := c.AskAboutImage(context.Background(), Image{Data: []byte("png"), MIMEType: "image/png"}, "Is there one person?")
	if err != nil {
		t.Fatalf("AskAboutImage: %v", err)
	}
	raw, _ := json.Marshal(body)
	want := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("png"))
	if !strings.Contains(string(raw), want) {
		t.Errorf("request missing data URL %q: %s", want, raw)
	}
}

func TestOpenAIClient_GenerateImage(t *testing.T) {
	c := newOpenAITestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"created":1,"data":[{"b64_json":"aW1n"}]}`)
	})

	p, err := c.GenerateImage(context.Background(), "portrait")
	if err != nil {
		t.Fatalf("GenerateImage: %v", err)
	}
	if p.Base64 != "aW1n" || p.MIMEType != "image/png" {
		t.Errorf("payload = %+v", p)
	}
}

func TestOpenAIClient_EmptyImageData(t *testing.T) {
	c := newOpenAITestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"created":1,"data":[]}`)
	})

	if _, err := c.GenerateImage(context.Background(), "portrait"); err != ErrNoImagePayload {
		t.Fatalf("err = %v, want ErrNoImagePayload", err)
	}
}

func TestOpenAIClient_RetriesServerError(t *testing.T) {
	var calls int32
	c := newOpenAITestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = io.WriteString(w, `{"error":{"message":"overloaded","type":"server_error"}}`)
			return
		}
		_, _ = io.WriteString(w, chatCompletionBody)
	})

	if _, err := c.GenerateText(context.Background(), "hi"); err != nil {
		t.Fatalf("GenerateText: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}
