package perception

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/orderly-agent/orderly/internals/agent"
)

func captureHandler(t *testing.T, words []agent.Element, gotMode *string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/capture" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if gotMode != nil {
			*gotMode = r.URL.Query().Get("mode")
		}
		json.NewEncoder(w).Encode(map[string]any{
			"image_png": base64.StdEncoding.EncodeToString([]byte("not-a-real-png")),
			"words":     words,
		})
	}
}

func TestNewRejectsUnknownStrategy(t *testing.T) {
	if _, err := New("vision", "http://localhost:58101"); err == nil {
		t.Fatal("expected error for unknown strategy")
	}
}

func TestCaptureOCR(t *testing.T) {
	words := []agent.Element{
		{Text: "New", X: 100, Y: 50, Width: 40, Height: 20, CenterX: 120, CenterY: 60, Confidence: 95},
		{Text: "Patient", X: 150, Y: 52, Width: 60, Height: 20, CenterX: 180, CenterY: 62, Confidence: 91},
		{Text: "", X: 0, Y: 0, Confidence: 99},
		{Text: "smudge", X: 5, Y: 900, Confidence: 12},
	}
	srv := httptest.NewServer(captureHandler(t, words, nil))
	defer srv.Close()

	client, err := New(StrategyOCR, srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	obs, err := client.Capture(context.Background())
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if len(obs.Elements) != 2 {
		t.Fatalf("expected empty and low-confidence words dropped, got %d elements", len(obs.Elements))
	}
	if string(obs.ImagePNG) != "not-a-real-png" {
		t.Fatalf("screenshot not decoded: %q", obs.ImagePNG)
	}
	if !strings.Contains(obs.Summary, "'New Patient' at (150, 61) [93%]") {
		t.Fatalf("summary missing grouped line:\n%s", obs.Summary)
	}
}

func TestCaptureImageMode(t *testing.T) {
	var mode string
	srv := httptest.NewServer(captureHandler(t, nil, &mode))
	defer srv.Close()

	client, err := New(StrategyImage, srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	obs, err := client.Capture(context.Background())
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if mode != "image" {
		t.Fatalf("expected mode=image query, got %q", mode)
	}
	if obs.Summary != "" || len(obs.Elements) != 0 {
		t.Fatalf("image strategy must not build a text summary")
	}
}

func TestCaptureBackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "display not attached", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client, _ := New(StrategyOCR, srv.URL)
	if _, err := client.Capture(context.Background()); err == nil {
		t.Fatal("expected error from 503 backend")
	}
}

func TestGroupLinesSplitsOnVerticalDistance(t *testing.T) {
	words := []agent.Element{
		{Text: "Patients", Y: 100, CenterX: 60, CenterY: 110, Confidence: 90},
		{Text: "List", Y: 104, CenterX: 120, CenterY: 114, Confidence: 92},
		{Text: "Admit", Y: 160, CenterX: 70, CenterY: 170, Confidence: 88},
	}
	lines := groupLines(words)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0].text != "Patients List" {
		t.Fatalf("first line: %q", lines[0].text)
	}
	if lines[1].text != "Admit" {
		t.Fatalf("second line: %q", lines[1].text)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	if got := Summarize(nil); got != "OCR DATA: No text detected" {
		t.Fatalf("empty summary: %q", got)
	}
}
