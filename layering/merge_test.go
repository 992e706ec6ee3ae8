package layering

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestMergeLayersFromFixture(t *testing.T) {
	fx := loadLayeringFixture(t, "layering_merge.json")

	for _, tc := range fx.Cases {
		tc := tc
		t.Run(tc.Name, func(t *testing.T) {
			layers := make([]layeringSettings, len(tc.Layers))
			for i := range tc.Layers {
				layers[i] = tc.Layers[i].Snapshot
			}

			got := MergeLayers(layers...)
			if !reflect.DeepEqual(tc.Expect, got) {
				t.Errorf("merged snapshot mismatch:\nwant: %#v\n got: %#v", tc.Expect, got)
			}
		})
	}
}

func TestMergeLayersZeroInput(t *testing.T) {
	type sample struct {
		Value int
	}
	var zero sample
	if got := MergeLayers[sample](); got != zero {
		t.Fatalf("expected MergeLayers() to return zero value, got %+v", got)
	}
}

func TestMergeLayersDoesNotAliasInputs(t *testing.T) {
	strong := layeringSettings{Headers: map[string]string{"a": "1"}}
	weak := layeringSettings{Tags: []string{"t"}}

	merged := MergeLayers(strong, weak)
	merged.Headers["a"] = "changed"
	merged.Tags[0] = "changed"

	if strong.Headers["a"] != "1" {
		t.Fatalf("expected strong layer untouched, got %v", strong.Headers)
	}
	if weak.Tags[0] != "t" {
		t.Fatalf("expected weak layer untouched, got %v", weak.Tags)
	}
}

func TestMergeLayersKeepsOpaqueStructs(t *testing.T) {
	type stamped struct {
		At   time.Time
		Name string
	}
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	got := MergeLayers(stamped{Name: "strong"}, stamped{At: at, Name: "weak"})
	if !got.At.Equal(at) || got.Name != "strong" {
		t.Fatalf("unexpected merge of opaque field: %+v", got)
	}

	got = MergeLayers(stamped{At: at}, stamped{At: at.Add(time.Hour)})
	if !got.At.Equal(at) {
		t.Fatalf("expected strong timestamp to win, got %v", got.At)
	}
}

func TestCloneIsDeep(t *testing.T) {
	size := 10
	original := layeringSettings{
		Headers: map[string]string{"x": "1"},
		Tags:    []string{"a"},
		Paging:  &layeringPaging{Size: &size, Labels: []string{"l"}},
	}

	clone := Clone(original)
	if !reflect.DeepEqual(original, clone) {
		t.Fatalf("expected equal clone:\nwant: %#v\n got: %#v", original, clone)
	}

	clone.Headers["x"] = "2"
	clone.Tags[0] = "b"
	*clone.Paging.Size = 20
	clone.Paging.Labels[0] = "m"

	if original.Headers["x"] != "1" || original.Tags[0] != "a" || *original.Paging.Size != 10 || original.Paging.Labels[0] != "l" {
		t.Fatalf("clone shares memory with original: %#v", original)
	}
}

func TestClonePreservesTimestamps(t *testing.T) {
	type row struct {
		Name      string
		UpdatedAt time.Time
		DeletedAt *time.Time
	}
	at := time.Date(2023, 12, 24, 18, 30, 0, 0, time.FixedZone("CET", 3600))
	original := row{Name: "ada", UpdatedAt: at, DeletedAt: &at}

	clone := Clone(original)
	if !clone.UpdatedAt.Equal(at) || clone.DeletedAt == nil || !clone.DeletedAt.Equal(at) {
		t.Fatalf("timestamps lost in clone: %+v", clone)
	}
	if clone.DeletedAt == original.DeletedAt {
		t.Fatalf("expected pointer to be copied")
	}
}

type layeringFixture struct {
	Description string                `json:"description"`
	Cases       []layeringFixtureCase `json:"cases"`
}

type layeringFixtureCase struct {
	Name   string                 `json:"name"`
	Layers []layeringFixtureLayer `json:"layers"`
	Expect layeringSettings       `json:"expect"`
}

type layeringFixtureLayer struct {
	Source   string           `json:"source"`
	Snapshot layeringSettings `json:"snapshot"`
}

type layeringSettings struct {
	BaseURL string            `json:"base_url,omitempty"`
	Page    uint64            `json:"page,omitempty"`
	Enabled *bool             `json:"enabled,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
	Tags    []string          `json:"tags,omitempty"`
	Paging  *layeringPaging   `json:"paging,omitempty"`
}

type layeringPaging struct {
	Size   *int     `json:"size,omitempty"`
	Labels []string `json:"labels,omitempty"`
}

func loadLayeringFixture(t *testing.T, name string) layeringFixture {
	t.Helper()
	path := filepath.Join("testdata", name)
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read layering fixture %q: %v", name, err)
	}
	var fx layeringFixture
	if err := json.Unmarshal(raw, &fx); err != nil {
		t.Fatalf("failed to unmarshal layering fixture %q: %v", name, err)
	}
	return fx
}

type sealedDoc struct {
	doc map[string]any
}

func (d sealedDoc) DeepCopy() sealedDoc {
	out := make(map[string]any, len(d.doc))
	for k, v := range d.doc {
		out[k] = v
	}
	return sealedDoc{doc: out}
}

func TestCloneUsesDeepCopy(t *testing.T) {
	type entity struct {
		Name string
		Doc  sealedDoc
		Ref  *sealedDoc
	}
	doc := sealedDoc{doc: map[string]any{"k": "v"}}
	original := entity{Name: "ada", Doc: doc, Ref: &doc}

	clone := Clone(original)
	clone.Doc.doc["k"] = "changed"
	clone.Ref.doc["k"] = "changed"

	if original.Doc.doc["k"] != "v" {
		t.Fatalf("expected DeepCopy to detach the document, got %v", original.Doc.doc)
	}
	if clone.Ref == original.Ref {
		t.Fatalf("expected pointer to be copied")
	}
}

func TestMergeLayersEmptySliceClears(t *testing.T) {
	strong := layeringSettings{Tags: []string{}}
	weak := layeringSettings{Tags: []string{"a"}, BaseURL: "http://weak"}

	got := MergeLayers(strong, weak)
	if got.Tags == nil || len(got.Tags) != 0 {
		t.Fatalf("expected empty tags from strong layer, got %#v", got.Tags)
	}
	if got.BaseURL != "http://weak" {
		t.Fatalf("expected weak base url, got %q", got.BaseURL)
	}
}

func TestMergeLayersMergesNestedMaps(t *testing.T) {
	type routes struct {
		ByName map[string]map[string]string
	}
	strong := routes{ByName: map[string]map[string]string{"people": {"list": "/p"}}}
	weak := routes{ByName: map[string]map[string]string{
		"people": {"list": "/people", "edit": "/people/edit"},
		"teams":  {"list": "/teams"},
	}}

	got := MergeLayers(strong, weak)
	want := map[string]map[string]string{
		"people": {"list": "/p", "edit": "/people/edit"},
		"teams":  {"list": "/teams"},
	}
	if !reflect.DeepEqual(got.ByName, want) {
		t.Fatalf("unexpected merge %#v", got.ByName)
	}
	got.ByName["teams"]["list"] = "changed"
	if weak.ByName["teams"]["list"] != "/teams" {
		t.Fatalf("merge aliases the weak layer")
	}
}
