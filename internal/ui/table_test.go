package ui

import (
	"strings"
	"testing"

	"github.com/hmans/speako/internal/record"
	"github.com/hmans/speako/internal/schema"
)

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name string
		v    any
		want string
	}{
		{"nil", nil, ""},
		{"string", "The Wall", "The Wall"},
		{"int", int64(1973), "1973"},
		{"float", 4.5, "4.5"},
		{"bool", true, "true"},
		{"related", record.Record{"id": int64(2), "name": "Harvest Records"}, "#2"},
		{"related without id", record.Record{"name": "x"}, "#?"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatValue(tt.v); got != tt.want {
				t.Errorf("FormatValue() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTruncateString(t *testing.T) {
	tests := []struct {
		input  string
		maxLen int
		want   string
	}{
		{"short", 10, "short"},
		{"exactly ten", 11, "exactly ten"},
		{"Dark Side Of The Moon", 10, "Dark Si..."},
		{"abcdef", 2, "ab"},
		{"Ünïcödé text", 6, "Ünï..."},
	}

	for _, tt := range tests {
		if got := truncateString(tt.input, tt.maxLen); got != tt.want {
			t.Errorf("truncateString(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.want)
		}
	}
}

func TestRenderTable(t *testing.T) {
	sch, err := schema.Parse("test.graphql", `
type Label { id: ID! name: String }
type Album { id: ID! name: String tracks: [String] label: Label }
`)
	if err != nil {
		t.Fatalf("schema.Parse() error = %v", err)
	}
	album, _ := sch.Type("Album")

	harvest := record.Record{"id": int64(2), "name": "Harvest Records"}
	recs := []record.Record{
		{"id": int64(1), "name": "Dark Side Of The Moon", "label": harvest},
		{"id": int64(3), "name": strings.Repeat("x", 60)},
	}

	cols := Columns(album, recs)
	if len(cols) != 3 {
		t.Fatalf("Columns() = %v, want id, name and label", cols)
	}
	if cols[1].Field != "name" || cols[1].Width != maxColumnWidth {
		t.Errorf("name column = %+v, want width %d", cols[1], maxColumnWidth)
	}

	out := RenderTable(album, recs)
	for _, want := range []string{"ID", "NAME", "LABEL", "Dark Side Of The Moon", "#2", "..."} {
		if !strings.Contains(out, want) {
			t.Errorf("RenderTable() missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "TRACKS") {
		t.Error("RenderTable() should skip list fields")
	}
	if lines := strings.Count(out, "\n"); lines != 4 {
		t.Errorf("RenderTable() has %d lines, want 4", lines)
	}
}

func TestRenderCount(t *testing.T) {
	if got := RenderCount(1); !strings.Contains(got, "1 record") || strings.Contains(got, "records") {
		t.Errorf("RenderCount(1) = %q", got)
	}
	if got := RenderCount(3); !strings.Contains(got, "3 records") {
		t.Errorf("RenderCount(3) = %q", got)
	}
}
