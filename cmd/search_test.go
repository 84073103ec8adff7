package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/hmans/speako/internal/record"
)

func TestRunSearch(t *testing.T) {
	cleanup := setupTestCore(t, nil)
	defer cleanup()

	var buf bytes.Buffer
	if err := runSearch(&buf, "floyd", "", 0, true); err != nil {
		t.Fatalf("runSearch() error = %v", err)
	}

	var results []struct {
		Type   string    `json:"type"`
		Record albumJSON `json:"record"`
	}
	if err := json.Unmarshal(buf.Bytes(), &results); err != nil {
		t.Fatalf("failed to parse output: %v\n%s", err, buf.String())
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	for _, r := range results {
		if r.Type != "Album" || r.Record.Artist != "Pink Floyd" {
			t.Errorf("unexpected result %+v", r)
		}
	}

	t.Run("type filter", func(t *testing.T) {
		var buf bytes.Buffer
		if err := runSearch(&buf, "harvest", "Label", 0, false); err != nil {
			t.Fatalf("runSearch() error = %v", err)
		}
		out := buf.String()
		if !strings.Contains(out, "Harvest Records") || !strings.Contains(out, "1 record") {
			t.Errorf("output = %s, want one Harvest label", out)
		}
		if strings.Contains(out, "Dark Side") {
			t.Errorf("type filter should exclude albums:\n%s", out)
		}
	})

	t.Run("no matches", func(t *testing.T) {
		var buf bytes.Buffer
		if err := runSearch(&buf, "queen", "", 0, false); err != nil {
			t.Fatalf("runSearch() error = %v", err)
		}
		if !strings.Contains(buf.String(), "No matches") {
			t.Errorf("output = %q, want no matches", buf.String())
		}
	})

	t.Run("unknown type", func(t *testing.T) {
		if err := runSearch(&bytes.Buffer{}, "floyd", "Artist", 0, false); err == nil {
			t.Error("runSearch() expected error for unknown type")
		}
	})
}

func TestDeleteWarnsAboutReferences(t *testing.T) {
	cleanup := setupTestCore(t, nil)
	defer cleanup()

	label, _ := lookupType("Label")

	var buf bytes.Buffer
	if err := runDelete(context.Background(), &buf, label, record.Record{"id": int64(2)}, false); err != nil {
		t.Fatalf("runDelete() error = %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "2 record(s) still reference Label #2") {
		t.Errorf("output missing reference warning:\n%s", out)
	}
	if !strings.Contains(out, "Album #1") || !strings.Contains(out, "Album #3") {
		t.Errorf("output should name the referencing albums:\n%s", out)
	}
}

func TestShellSearch(t *testing.T) {
	cleanup := setupTestCore(t, nil)
	defer cleanup()

	var out bytes.Buffer
	input := "create Album {\"name\": \"Wish You Were Here\", \"artist\": \"Pink Floyd\"}\nsearch wish\n"
	if err := runShell(context.Background(), strings.NewReader(input), &out); err != nil {
		t.Fatalf("runShell() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2:\n%s", len(lines), out.String())
	}

	var resp struct {
		Data struct {
			Search []struct {
				Type   string    `json:"type"`
				Record albumJSON `json:"record"`
			} `json:"search"`
		} `json:"data"`
	}
	if err := json.Unmarshal([]byte(lines[1]), &resp); err != nil {
		t.Fatalf("failed to parse %q: %v", lines[1], err)
	}
	if len(resp.Data.Search) != 1 || resp.Data.Search[0].Record.ID != 4 {
		t.Errorf("search = %s, want the created album", lines[1])
	}
}

func TestSearchIndexFollowsMutations(t *testing.T) {
	cleanup := setupTestCore(t, nil)
	defer cleanup()

	if _, _, err := searchRecords("wall", "", 0); err != nil {
		t.Fatalf("searchRecords() error = %v", err)
	}
	first := liveIndex
	if first == nil {
		t.Fatal("search should keep its index")
	}

	ctx := context.Background()
	album, _ := lookupType("Album")
	if _, err := createRecord(ctx, album, record.Record{"name": "Animals"}); err != nil {
		t.Fatalf("createRecord() error = %v", err)
	}
	if _, err := core.Delete(ctx, "Album", record.Record{"id": int64(3)}); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	results, _, err := searchRecords("animals wall", "", 0)
	if err != nil {
		t.Fatalf("searchRecords() error = %v", err)
	}
	if liveIndex != first {
		t.Error("index was rebuilt instead of followed")
	}
	if len(results) != 1 || results[0].Record["name"] != "Animals" {
		t.Errorf("results = %+v, want only the created album", results)
	}
}
