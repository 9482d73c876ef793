package metrics

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golddust/internal/model"
)

func TestAppendCSV_WritesHeaderOnce(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	path := filepath.Join(tmp, "health.csv")

	s1 := model.Sample{Timestamp: time.Unix(1, 0).UTC(), BackendID: "relay-node-1", LatencyMs: 50}
	s2 := model.Sample{Timestamp: time.Unix(2, 0).UTC(), BackendID: "exit-node-1", LatencyMs: 250, Failed: true}

	if err := AppendCSV(path, []model.Sample{s1}); err != nil {
		t.Fatalf("AppendCSV #1: %v", err)
	}
	if err := AppendCSV(path, []model.Sample{s2}); err != nil {
		t.Fatalf("AppendCSV #2: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines=%d\n%s", len(lines), string(data))
	}
	if !strings.HasPrefix(lines[0], "timestamp,") {
		t.Fatalf("missing header: %q", lines[0])
	}

	items, err := ReadCSV(path)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(items) != 2 || items[1].BackendID != "exit-node-1" || !items[1].Failed {
		t.Fatalf("items=%+v", items)
	}
}

func TestReadCSV_RejectsBadRows(t *testing.T) {
	t.Parallel()

	bad := []string{
		"timestamp,backend_id,latency_ms,failed\nnot-a-time,r1,1,false\n",
		"2024-01-01T00:00:00Z,r1,fast,false\n",
		"2024-01-01T00:00:00Z,r1,1,maybe\n",
		"2024-01-01T00:00:00Z,r1\n",
	}
	for _, body := range bad {
		if _, err := readCSV(strings.NewReader(body)); err == nil {
			t.Fatalf("expected error for %q", body)
		}
	}
}

func TestWriteCSV_Header(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := WriteCSV(&buf, nil); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	if got := strings.TrimSpace(buf.String()); got != "timestamp,backend_id,latency_ms,failed" {
		t.Fatalf("header=%q", got)
	}
}
