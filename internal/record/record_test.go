package record

import (
	"encoding/json"
	"testing"
)

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b any
		want bool
	}{
		{"same string", "Pink Floyd", "Pink Floyd", true},
		{"different string", "Pink Floyd", "The Beatles", false},
		{"int64 equal", int64(2), int64(2), true},
		{"int64 different", int64(2), int64(3), false},
		{"int and int64", 2, int64(2), true},
		{"int64 and float64", int64(2), 2.0, true},
		{"fractional float", 2.5, int64(2), false},
		{"string vs number", "2", int64(2), false},
		{"number vs string", int64(2), "2", false},
		{"bool equal", true, true, true},
		{"bool vs string", true, "true", false},
		{"both nil", nil, nil, true},
		{"nil vs value", nil, "x", false},
		{"value vs nil", int64(0), nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Equal(tt.a, tt.b); got != tt.want {
				t.Errorf("Equal(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want any
	}{
		{"int", 3, int64(3)},
		{"uint8", uint8(7), int64(7)},
		{"integral float", 4.0, int64(4)},
		{"fractional float", 4.5, 4.5},
		{"json integer", json.Number("12"), int64(12)},
		{"json fraction", json.Number("1.25"), 1.25},
		{"string", "March 1, 1973", "March 1, 1973"},
		{"nil", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.in)
			if err != nil {
				t.Fatalf("Normalize() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Normalize(%v) = %#v, want %#v", tt.in, got, tt.want)
			}
		})
	}

	t.Run("nested map", func(t *testing.T) {
		got, err := Normalize(map[string]any{"id": 2, "name": "Harvest Records"})
		if err != nil {
			t.Fatalf("Normalize() error = %v", err)
		}
		rec, ok := got.(Record)
		if !ok {
			t.Fatalf("Normalize() = %T, want Record", got)
		}
		if rec["id"] != int64(2) {
			t.Errorf("nested id = %#v, want int64(2)", rec["id"])
		}
	})

	t.Run("list rejected", func(t *testing.T) {
		if _, err := Normalize([]any{1, 2}); err == nil {
			t.Error("Normalize() expected error for list value")
		}
	})
}

func TestRecordAccessors(t *testing.T) {
	label := Record{"id": int64(2), "name": "Harvest Records"}
	album := Record{"id": int64(1), "name": "The Wall", "label": label}

	id, ok := album.ID()
	if !ok || id != 1 {
		t.Errorf("ID() = %d, %v, want 1, true", id, ok)
	}

	rel, ok := album.Related("label")
	if !ok {
		t.Fatal("Related(label) = false, want true")
	}
	if rel["name"] != "Harvest Records" {
		t.Errorf("Related(label).name = %v", rel["name"])
	}

	if _, ok := album.Related("name"); ok {
		t.Error("Related(name) = true for scalar field")
	}
	if _, ok := album.Related("missing"); ok {
		t.Error("Related(missing) = true for absent field")
	}

	album.SetID(9)
	if id, _ := album.ID(); id != 9 {
		t.Errorf("after SetID, ID() = %d, want 9", id)
	}

	keys := album.Keys()
	want := []string{"id", "label", "name"}
	if len(keys) != len(want) {
		t.Fatalf("Keys() = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("Keys()[%d] = %q, want %q", i, keys[i], want[i])
		}
	}
}
