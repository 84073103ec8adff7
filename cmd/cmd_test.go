package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hmans/speako/internal/config"
	"github.com/hmans/speako/internal/dataset"
	"github.com/hmans/speako/internal/logging"
	"github.com/hmans/speako/internal/record"
	"github.com/hmans/speako/internal/resolver"
)

// setupTestCore loads the album sample into the package-level resolver.
func setupTestCore(t *testing.T, c *config.Config) func() {
	t.Helper()

	if c == nil {
		c = config.Default()
	}
	testLogger := logging.Noop()
	testCore, err := buildResolver(c, testLogger)
	if err != nil {
		t.Fatalf("buildResolver() error = %v", err)
	}

	oldCfg, oldCore, oldLogger := cfg, core, logger
	cfg, core, logger = c, testCore, testLogger

	return func() {
		if liveIndex != nil {
			liveIndex.Close()
			liveIndex, indexedCore = nil, nil
		}
		cfg, core, logger = oldCfg, oldCore, oldLogger
	}
}

type albumJSON struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Artist string `json:"artist"`
	Label  *struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	} `json:"label"`
}

func albumIDs(albums []albumJSON) []int {
	ids := make([]int, len(albums))
	for i, a := range albums {
		ids[i] = a.ID
	}
	return ids
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestRunQuery(t *testing.T) {
	cleanup := setupTestCore(t, nil)
	defer cleanup()
	ctx := context.Background()

	tests := []struct {
		name    string
		encoded string
		want    []int
	}{
		{"all", matchAll, []int{1, 2, 3}},
		{"by artist", `{"artist": "Pink Floyd"}`, []int{1, 3}},
		{"by label name", `{"label": {"name": "Harvest Records"}}`, []int{1, 3}},
		{"no match", `{"artist": "Queen"}`, []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := runQuery(ctx, &buf, "Album", tt.encoded, true); err != nil {
				t.Fatalf("runQuery() error = %v", err)
			}

			var albums []albumJSON
			if err := json.Unmarshal(buf.Bytes(), &albums); err != nil {
				t.Fatalf("failed to parse output: %v\n%s", err, buf.String())
			}
			if !equalInts(albumIDs(albums), tt.want) {
				t.Errorf("runQuery() ids = %v, want %v", albumIDs(albums), tt.want)
			}
		})
	}

	t.Run("related records are expanded", func(t *testing.T) {
		var buf bytes.Buffer
		if err := runQuery(ctx, &buf, "Album", `{"id": 2}`, true); err != nil {
			t.Fatalf("runQuery() error = %v", err)
		}
		var albums []albumJSON
		if err := json.Unmarshal(buf.Bytes(), &albums); err != nil {
			t.Fatalf("failed to parse output: %v", err)
		}
		if len(albums) != 1 || albums[0].Label == nil || albums[0].Label.Name != "Apple Records" {
			t.Errorf("album 2 label = %+v, want Apple Records", albums)
		}
	})

	t.Run("table output", func(t *testing.T) {
		var buf bytes.Buffer
		if err := runQuery(ctx, &buf, "Album", `{"artist": "Pink Floyd"}`, false); err != nil {
			t.Fatalf("runQuery() error = %v", err)
		}
		out := buf.String()
		for _, want := range []string{"NAME", "The Wall", "#2", "2 records"} {
			if !strings.Contains(out, want) {
				t.Errorf("output missing %q:\n%s", want, out)
			}
		}
	})
}

func TestRunQueryErrors(t *testing.T) {
	cleanup := setupTestCore(t, nil)
	defer cleanup()
	ctx := context.Background()

	tests := []struct {
		name     string
		typename string
		encoded  string
		wantCode string
	}{
		{"unknown type", "Artist", matchAll, resolver.CodeUnknownType},
		{"malformed", "Album", `{"artist":`, resolver.CodeMalformedPredicate},
		{"nested on scalar", "Album", `{"artist": {"name": "x"}}`, resolver.CodeUnsupportedNestedPredicate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := runQuery(ctx, &buf, tt.typename, tt.encoded, true)
			if err == nil {
				t.Fatal("runQuery() expected error")
			}
			if got := resolver.Code(err); got != tt.wantCode {
				t.Errorf("Code() = %s, want %s", got, tt.wantCode)
			}

			var resp struct {
				Errors []struct {
					Message    string         `json:"message"`
					Path       []string       `json:"path"`
					Extensions map[string]any `json:"extensions"`
				} `json:"errors"`
			}
			if err := json.Unmarshal(buf.Bytes(), &resp); err != nil {
				t.Fatalf("failed to parse error output: %v\n%s", err, buf.String())
			}
			if len(resp.Errors) != 1 || resp.Errors[0].Extensions["code"] != tt.wantCode {
				t.Errorf("errors = %+v, want code %s", resp.Errors, tt.wantCode)
			}
			if len(resp.Errors[0].Path) != 1 || resp.Errors[0].Path[0] != tt.typename {
				t.Errorf("path = %v, want [%s]", resp.Errors[0].Path, tt.typename)
			}
		})
	}
}

func TestRunCreate(t *testing.T) {
	cleanup := setupTestCore(t, nil)
	defer cleanup()
	ctx := context.Background()

	album, err := lookupType("Album")
	if err != nil {
		t.Fatalf("lookupType() error = %v", err)
	}

	fields, err := parseAssignments(album, []string{"name=Animals", "artist=Pink Floyd", "label=2"})
	if err != nil {
		t.Fatalf("parseAssignments() error = %v", err)
	}

	var buf bytes.Buffer
	if err := runCreate(ctx, &buf, album, fields, true); err != nil {
		t.Fatalf("runCreate() error = %v", err)
	}

	var created albumJSON
	if err := json.Unmarshal(buf.Bytes(), &created); err != nil {
		t.Fatalf("failed to parse output: %v\n%s", err, buf.String())
	}
	if created.ID != 4 || created.Name != "Animals" {
		t.Errorf("created = %+v, want id 4 named Animals", created)
	}
	if created.Label == nil || created.Label.Name != "Harvest Records" {
		t.Errorf("created label = %+v, want Harvest Records", created.Label)
	}

	// The new album is found through its label.
	recs, err := queryRecords(ctx, "Album", `{"label": {"name": "Harvest Records"}}`)
	if err != nil {
		t.Fatalf("queryRecords() error = %v", err)
	}
	if len(recs) != 3 {
		t.Errorf("Harvest albums = %d, want 3", len(recs))
	}

	t.Run("id is rejected", func(t *testing.T) {
		err := runCreate(ctx, &bytes.Buffer{}, album, record.Record{"id": int64(9)}, false)
		if err == nil {
			t.Error("runCreate() expected error for explicit id")
		}
	})

	t.Run("dangling reference", func(t *testing.T) {
		err := runCreate(ctx, &bytes.Buffer{}, album, record.Record{"label": int64(42)}, false)
		if !errors.Is(err, dataset.ErrDanglingReference) {
			t.Errorf("runCreate() error = %v, want ErrDanglingReference", err)
		}
	})
}

func TestParseAssignments(t *testing.T) {
	cleanup := setupTestCore(t, nil)
	defer cleanup()

	album, _ := lookupType("Album")

	tests := []struct {
		name    string
		args    []string
		want    record.Record
		wantErr bool
	}{
		{"strings", []string{"name=The Wall", "artist=Pink Floyd"}, record.Record{"name": "The Wall", "artist": "Pink Floyd"}, false},
		{"value with equals", []string{"name=a=b"}, record.Record{"name": "a=b"}, false},
		{"id", []string{"id=2"}, record.Record{"id": int64(2)}, false},
		{"missing equals", []string{"name"}, nil, true},
		{"unknown field", []string{"genre=rock"}, nil, true},
		{"non-integer reference", []string{"label=Harvest"}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAssignments(album, tt.args)
			if tt.wantErr {
				if err == nil {
					t.Errorf("parseAssignments() = %v, want error", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseAssignments() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("parseAssignments() = %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("%s = %#v, want %#v", k, got[k], v)
				}
			}
		})
	}
}

func TestDecodeFields(t *testing.T) {
	rec, err := decodeFields(`{"id": 2, "label": {"name": "Harvest Records"}}`)
	if err != nil {
		t.Fatalf("decodeFields() error = %v", err)
	}
	if rec["id"] != int64(2) {
		t.Errorf("id = %#v, want int64(2)", rec["id"])
	}
	if label, ok := rec.Related("label"); !ok || label["name"] != "Harvest Records" {
		t.Errorf("label = %#v, want nested record", rec["label"])
	}

	for _, bad := range []string{``, `null`, `[1]`, `{"id": 1} {}`, `{"tags": ["a"]}`} {
		if _, err := decodeFields(bad); err == nil {
			t.Errorf("decodeFields(%q) expected error", bad)
		}
	}
}

func TestRunDelete(t *testing.T) {
	cleanup := setupTestCore(t, nil)
	defer cleanup()
	ctx := context.Background()

	album, _ := lookupType("Album")

	var buf bytes.Buffer
	if err := runDelete(ctx, &buf, album, record.Record{"id": int64(2)}, true); err != nil {
		t.Fatalf("runDelete() error = %v", err)
	}
	var deleted albumJSON
	if err := json.Unmarshal(buf.Bytes(), &deleted); err != nil {
		t.Fatalf("failed to parse output: %v\n%s", err, buf.String())
	}
	if deleted.ID != 2 || deleted.Artist != "The Beatles" {
		t.Errorf("deleted = %+v, want album 2", deleted)
	}

	buf.Reset()
	if err := runDelete(ctx, &buf, album, record.Record{"id": int64(2)}, false); err != nil {
		t.Fatalf("second runDelete() error = %v", err)
	}
	if !strings.Contains(buf.String(), "No matching Album") {
		t.Errorf("second delete output = %q, want no match", buf.String())
	}

	buf.Reset()
	if err := runDelete(ctx, &buf, album, record.Record{"id": int64(2)}, true); err != nil {
		t.Fatalf("runDelete() error = %v", err)
	}
	if strings.TrimSpace(buf.String()) != "null" {
		t.Errorf("JSON output for no match = %q, want null", buf.String())
	}
}

func TestRunDeleteByReference(t *testing.T) {
	cleanup := setupTestCore(t, nil)
	defer cleanup()

	album, _ := lookupType("Album")
	fields, err := parseAssignments(album, []string{"label=2"})
	if err != nil {
		t.Fatalf("parseAssignments() error = %v", err)
	}
	referencesAsExamples(album, fields)

	if err := runDelete(context.Background(), &bytes.Buffer{}, album, fields, false); err != nil {
		t.Fatalf("runDelete() error = %v", err)
	}

	remaining, _ := core.Store().All("Album")
	if len(remaining) != 1 {
		t.Fatalf("remaining = %d, want 1", len(remaining))
	}
	if remaining[0]["name"] != "The Beatles" {
		t.Errorf("remaining album = %v, want The Beatles", remaining[0]["name"])
	}
}

func TestRunDeleteJSONReference(t *testing.T) {
	cleanup := setupTestCore(t, nil)
	defer cleanup()

	album, _ := lookupType("Album")
	fields, err := fieldsFromInput(album, `{"label": 2}`, nil)
	if err != nil {
		t.Fatalf("fieldsFromInput() error = %v", err)
	}

	var buf bytes.Buffer
	if err := runDelete(context.Background(), &buf, album, fields, true); err != nil {
		t.Fatalf("runDelete() error = %v", err)
	}
	var deleted albumJSON
	if err := json.Unmarshal(buf.Bytes(), &deleted); err != nil {
		t.Fatalf("failed to parse output: %v\n%s", err, buf.String())
	}
	if deleted.ID != 1 {
		t.Errorf("deleted id = %d, want 1", deleted.ID)
	}

	remaining, _ := core.Store().All("Album")
	if len(remaining) != 1 || remaining[0]["name"] != "The Beatles" {
		t.Errorf("remaining = %v, want only The Beatles", remaining)
	}
}

func TestShellDeleteByReference(t *testing.T) {
	cleanup := setupTestCore(t, nil)
	defer cleanup()

	var out bytes.Buffer
	input := "delete Album {\"label\": 1}\nquery Album\n"
	if err := runShell(context.Background(), strings.NewReader(input), &out); err != nil {
		t.Fatalf("runShell() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2:\n%s", len(lines), out.String())
	}

	var del struct {
		Data struct {
			DeleteAlbum *albumJSON `json:"deleteAlbum"`
		} `json:"data"`
	}
	if err := json.Unmarshal([]byte(lines[0]), &del); err != nil {
		t.Fatalf("failed to parse %q: %v", lines[0], err)
	}
	if del.Data.DeleteAlbum == nil || del.Data.DeleteAlbum.ID != 2 {
		t.Errorf("delete response = %s, want album 2", lines[0])
	}

	var query struct {
		Data struct {
			Album []albumJSON `json:"Album"`
		} `json:"data"`
	}
	if err := json.Unmarshal([]byte(lines[1]), &query); err != nil {
		t.Fatalf("failed to parse %q: %v", lines[1], err)
	}
	if got := albumIDs(query.Data.Album); len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Errorf("remaining albums = %v, want [1 3]", got)
	}
}

func TestRunDeleteNotDeletable(t *testing.T) {
	c := config.Default()
	c.Resolver.Deletable = []string{"Album"}
	cleanup := setupTestCore(t, c)
	defer cleanup()

	label, _ := lookupType("Label")
	err := runDelete(context.Background(), &bytes.Buffer{}, label, record.Record{"id": int64(1)}, false)
	if resolver.Code(err) != resolver.CodeNotDeletable {
		t.Errorf("runDelete(Label) error = %v, want NOT_DELETABLE", err)
	}
}

func TestRunShell(t *testing.T) {
	cleanup := setupTestCore(t, nil)
	defer cleanup()

	input := strings.Join([]string{
		"# comment",
		"query Album {\"artist\": \"Pink Floyd\"}",
		"",
		"create Album {\"name\": \"X\"}",
		"query Album",
		"delete Album {\"id\": 2}",
		"delete Album {\"id\": 2}",
		"query Artist",
		"frobnicate Album",
		"types",
	}, "\n")

	var out bytes.Buffer
	if err := runShell(context.Background(), strings.NewReader(input), &out); err != nil {
		t.Fatalf("runShell() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 8 {
		t.Fatalf("got %d response lines, want 8:\n%s", len(lines), out.String())
	}

	type response struct {
		Data   map[string]json.RawMessage `json:"data"`
		Errors []struct {
			Message    string         `json:"message"`
			Extensions map[string]any `json:"extensions"`
		} `json:"errors"`
	}
	parse := func(line string) response {
		t.Helper()
		var r response
		if err := json.Unmarshal([]byte(line), &r); err != nil {
			t.Fatalf("failed to parse %q: %v", line, err)
		}
		return r
	}
	albums := func(raw json.RawMessage) []int {
		t.Helper()
		var list []albumJSON
		if err := json.Unmarshal(raw, &list); err != nil {
			t.Fatalf("failed to parse albums: %v", err)
		}
		return albumIDs(list)
	}

	if got := albums(parse(lines[0]).Data["Album"]); !equalInts(got, []int{1, 3}) {
		t.Errorf("query ids = %v, want [1 3]", got)
	}

	var created albumJSON
	if err := json.Unmarshal(parse(lines[1]).Data["createAlbum"], &created); err != nil || created.ID != 4 {
		t.Errorf("createAlbum = %s, want id 4", lines[1])
	}

	if got := albums(parse(lines[2]).Data["Album"]); !equalInts(got, []int{1, 2, 3, 4}) {
		t.Errorf("query all ids = %v, want [1 2 3 4]", got)
	}

	var deleted albumJSON
	if err := json.Unmarshal(parse(lines[3]).Data["deleteAlbum"], &deleted); err != nil || deleted.ID != 2 {
		t.Errorf("deleteAlbum = %s, want id 2", lines[3])
	}

	if raw := parse(lines[4]).Data["deleteAlbum"]; string(raw) != "null" {
		t.Errorf("second deleteAlbum = %s, want null", raw)
	}

	if r := parse(lines[5]); len(r.Errors) != 1 || r.Errors[0].Extensions["code"] != resolver.CodeUnknownType {
		t.Errorf("unknown type response = %s", lines[5])
	}

	if r := parse(lines[6]); len(r.Errors) != 1 || !strings.Contains(r.Errors[0].Message, "unknown operation") {
		t.Errorf("unknown operation response = %s", lines[6])
	}

	var infos []typeInfo
	if err := json.Unmarshal(parse(lines[7]).Data["types"], &infos); err != nil {
		t.Fatalf("failed to parse types: %v", err)
	}
	if len(infos) != 2 || infos[1].Name != "Album" || infos[1].Records != 3 {
		t.Errorf("types = %+v, want Label and Album with 3 records", infos)
	}
}

func TestRunTypes(t *testing.T) {
	cleanup := setupTestCore(t, nil)
	defer cleanup()

	var buf bytes.Buffer
	if err := runTypes(&buf, false); err != nil {
		t.Fatalf("runTypes() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Label", "Album", "3 records", "releaseDate"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRunTypesDeletable(t *testing.T) {
	c := config.Default()
	c.Resolver.Deletable = []string{"Album"}
	cleanup := setupTestCore(t, c)
	defer cleanup()

	var buf bytes.Buffer
	if err := runTypes(&buf, true); err != nil {
		t.Fatalf("runTypes() error = %v", err)
	}
	var infos []typeInfo
	if err := json.Unmarshal(buf.Bytes(), &infos); err != nil {
		t.Fatalf("failed to parse output: %v\n%s", err, buf.String())
	}
	got := make(map[string]bool)
	for _, info := range infos {
		got[info.Name] = info.Deletable
	}
	if got["Label"] || !got["Album"] {
		t.Errorf("deletable = %v, want only Album", got)
	}

	buf.Reset()
	if err := runTypes(&buf, false); err != nil {
		t.Fatalf("runTypes() error = %v", err)
	}
	if !strings.Contains(buf.String(), "read-only") {
		t.Errorf("table should mark Label read-only:\n%s", buf.String())
	}
}

func TestInitAndLoadConfig(t *testing.T) {
	dir := t.TempDir()

	oldSample, oldForce := initSample, initForce
	initSample, initForce = true, false
	defer func() { initSample, initForce = oldSample, oldForce }()

	if err := initProject(dir); err != nil {
		t.Fatalf("initProject() error = %v", err)
	}
	if err := initProject(dir); err == nil {
		t.Error("initProject() should refuse to overwrite an existing config")
	}

	oldConfigPath, oldPolicy := configPath, idPolicyFlag
	configPath, idPolicyFlag = filepath.Join(dir, config.ConfigFile), "monotonic"
	defer func() { configPath, idPolicyFlag = oldConfigPath, oldPolicy }()

	c, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if c.Data.Dataset != filepath.Join(dir, sampleDatasetName) {
		t.Errorf("Data.Dataset = %q, want file in %s", c.Data.Dataset, dir)
	}
	if c.Store.IDPolicy != "monotonic" {
		t.Errorf("Store.IDPolicy = %q, want monotonic", c.Store.IDPolicy)
	}

	cleanup := setupTestCore(t, c)
	defer cleanup()

	if n, _ := core.Store().Len("Album"); n != 3 {
		t.Errorf("Len(Album) = %d, want 3", n)
	}

	// Rewrite the dataset and reload it.
	data := "collections:\n  - type: Album\n    records:\n      - {id: 7, name: Meddle}\n"
	if err := os.WriteFile(c.Data.Dataset, []byte(data), 0644); err != nil {
		t.Fatalf("WriteFile error = %v", err)
	}
	if err := reloadDataset(); err != nil {
		t.Fatalf("reloadDataset() error = %v", err)
	}
	if n, _ := core.Store().Len("Album"); n != 1 {
		t.Errorf("Len(Album) after reload = %d, want 1", n)
	}
	if n, _ := core.Store().Len("Label"); n != 0 {
		t.Errorf("Len(Label) after reload = %d, want 0", n)
	}

	// A broken dataset leaves the store unchanged.
	if err := os.WriteFile(c.Data.Dataset, []byte("collections: [\n"), 0644); err != nil {
		t.Fatalf("WriteFile error = %v", err)
	}
	if err := reloadDataset(); err == nil {
		t.Error("reloadDataset() expected error for broken dataset")
	}
	if n, _ := core.Store().Len("Album"); n != 1 {
		t.Errorf("Len(Album) after failed reload = %d, want 1", n)
	}
}

func TestLoadConfigInvalidOverride(t *testing.T) {
	oldConfigPath, oldPolicy := configPath, idPolicyFlag
	configPath, idPolicyFlag = filepath.Join(t.TempDir(), "missing.toml"), ""
	defer func() { configPath, idPolicyFlag = oldConfigPath, oldPolicy }()

	if _, err := loadConfig(); err == nil {
		t.Error("loadConfig() expected error for missing explicit config file")
	}

	configPath, idPolicyFlag = "", "random"
	if _, err := loadConfig(); err == nil {
		t.Error("loadConfig() expected error for unknown id policy")
	}
}
