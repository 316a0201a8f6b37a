package seed

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	store "github.com/goliatone/go-store"
	"github.com/google/go-cmp/cmp"
)

func asInt(t *testing.T, value any) int64 {
	t.Helper()
	switch typed := value.(type) {
	case int:
		return int64(typed)
	case int64:
		return typed
	case float64:
		return int64(typed)
	default:
		t.Fatalf("expected number, got %T (%v)", value, value)
		return 0
	}
}

func TestLoadYAMLDefinition(t *testing.T) {
	result, err := New().Load(filepath.Join("testdata", "counter.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if result.Engine != "expr" {
		t.Fatalf("expected expr engine, got %q", result.Engine)
	}
	if diff := cmp.Diff([]string{"counter", "user"}, result.State.Keys()); diff != "" {
		t.Fatalf("state keys mismatch (-want +got):\n%s", diff)
	}
	if got := result.State.Get("counter").Get("value").Int(); got != 2 {
		t.Fatalf("expected counter.value 2, got %d", got)
	}
	if kind := result.State.Get("user").Get("tags").Kind(); kind != store.KindList {
		t.Fatalf("expected tags list, got %s", kind)
	}

	st, err := store.New(result.State, result.Selectors)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	double, err := st.Select("double")
	if err != nil {
		t.Fatalf("select double: %v", err)
	}
	if got := asInt(t, double); got != 4 {
		t.Fatalf("expected double 4, got %d", got)
	}
	greeting, err := st.Select("greeting")
	if err != nil {
		t.Fatalf("select greeting: %v", err)
	}
	if greeting != "hi ada" {
		t.Fatalf("expected greeting, got %v", greeting)
	}
}

func TestLoadJSONDefinitionKeepsIntegers(t *testing.T) {
	result, err := New().Load(filepath.Join("testdata", "counter.json"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	counter := result.State.Get("counter")
	if got := counter.Get("value").Native(); got != int64(2) {
		t.Fatalf("expected int64 value, got %T %v", got, got)
	}
	if got := counter.Get("ratio").Float(); got != 0.5 {
		t.Fatalf("expected ratio 0.5, got %v", got)
	}

	st, err := store.New(result.State, result.Selectors)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	double, err := st.Select("double")
	if err != nil {
		t.Fatalf("select double: %v", err)
	}
	if got := asInt(t, double); got != 4 {
		t.Fatalf("expected double 4, got %d", got)
	}
}

func TestReservedKeyFailsSeeding(t *testing.T) {
	_, err := New().Load(filepath.Join("testdata", "reserved.yaml"))
	if !errors.Is(err, store.ErrReservedKey) {
		t.Fatalf("expected ErrReservedKey, got %v", err)
	}
	if !strings.Contains(err.Error(), `"counter"`) {
		t.Fatalf("expected slice name in error, got %v", err)
	}
}

func TestDecodeRejectsMalformedDocuments(t *testing.T) {
	cases := []struct {
		name    string
		payload map[string]any
		expect  string
	}{
		{name: "unknown field", payload: map[string]any{"stat": map[string]any{}}, expect: `unknown field "stat"`},
		{name: "state not mapping", payload: map[string]any{"state": []any{1}}, expect: "state must be a mapping"},
		{name: "slice not mapping", payload: map[string]any{"state": map[string]any{"a": 1}}, expect: `state slice "a" must be a mapping`},
		{name: "selector not string", payload: map[string]any{"selectors": map[string]any{"a": 1}}, expect: `selector "a" must be a string`},
		{name: "unknown engine", payload: map[string]any{"engine": "lua", "selectors": map[string]any{"a": "1"}}, expect: "unknown evaluator engine"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			_, err := New().Decode(Context{Source: tc.name}, tc.payload)
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tc.expect)
			}
			if !strings.Contains(err.Error(), tc.expect) {
				t.Fatalf("expected error containing %q, got %v", tc.expect, err)
			}
		})
	}
}

func TestPreHookReceivesClone(t *testing.T) {
	payload := map[string]any{
		"state": map[string]any{
			"counter": map[string]any{"value": 1},
		},
	}
	hook := func(_ Context, current map[string]any) (map[string]any, error) {
		current["state"] = map[string]any{
			"counter": map[string]any{"value": 9},
		}
		return current, nil
	}

	result, err := New(WithPreHook(hook)).Decode(Context{}, payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got := result.State.Get("counter").Get("value").Int(); got != 9 {
		t.Fatalf("expected hook value 9, got %d", got)
	}
	if original := payload["state"].(map[string]any)["counter"].(map[string]any)["value"]; original != 1 {
		t.Fatalf("expected caller payload untouched, got %v", original)
	}
}

func TestHookErrorsAreWrapped(t *testing.T) {
	failure := errors.New("nope")
	pre := New(WithPreHook(func(Context, map[string]any) (map[string]any, error) { return nil, failure }))
	if _, err := pre.Decode(Context{Source: "doc"}, map[string]any{}); !errors.Is(err, failure) || !strings.Contains(err.Error(), "pre-hook for doc") {
		t.Fatalf("expected wrapped pre-hook error, got %v", err)
	}

	post := New(WithPostHook(func(_ Context, result *Result) error {
		return fmt.Errorf("got %d slices: %w", result.State.Len(), failure)
	}))
	if _, err := post.Decode(Context{Source: "doc"}, map[string]any{}); !errors.Is(err, failure) || !strings.Contains(err.Error(), "post-hook for doc") {
		t.Fatalf("expected wrapped post-hook error, got %v", err)
	}
}

func TestSeederSharesProgramCacheAndRegistry(t *testing.T) {
	cache := store.NewMemoryProgramCache()
	registry := store.NewFunctionRegistry().MustRegister("triple", func(args ...any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("triple expects one argument")
		}
		switch n := args[0].(type) {
		case int:
			return n * 3, nil
		case int64:
			return n * 3, nil
		default:
			return nil, fmt.Errorf("triple: unsupported %T", n)
		}
	})
	seeder := New(WithProgramCache(cache), WithFunctionRegistry(registry))

	result, err := seeder.DecodeYAML(Context{Source: "inline"}, []byte(`
state:
  counter:
    value: 3
selectors:
  tripled: triple(counter.value)
`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cache.Len() != 1 {
		t.Fatalf("expected one cached program, got %d", cache.Len())
	}
	value, err := result.Selectors["tripled"](result.State)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if got := asInt(t, value); got != 9 {
		t.Fatalf("expected 9, got %d", got)
	}
}

func TestDecodeKeepsDeclaredSliceOrder(t *testing.T) {
	yamlResult, err := New().DecodeYAML(Context{Source: "inline"}, []byte(`
state:
  zeta:
    v: 1
  alpha:
    v: 2
  mid:
    v: 3
`))
	if err != nil {
		t.Fatalf("decode yaml: %v", err)
	}
	if diff := cmp.Diff([]string{"zeta", "alpha", "mid"}, yamlResult.State.Keys()); diff != "" {
		t.Fatalf("yaml order mismatch (-want +got):\n%s", diff)
	}

	jsonResult, err := New().DecodeJSON(Context{Source: "inline"}, []byte(`{"state": {"zeta": {"v": 1}, "alpha": {"v": 2}}}`))
	if err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if diff := cmp.Diff([]string{"zeta", "alpha"}, jsonResult.State.Keys()); diff != "" {
		t.Fatalf("json order mismatch (-want +got):\n%s", diff)
	}

	added := New(WithPreHook(func(_ Context, current map[string]any) (map[string]any, error) {
		current["state"].(map[string]any)["beta"] = map[string]any{"v": 4}
		return current, nil
	}))
	hooked, err := added.DecodeYAML(Context{}, []byte("state:\n  zeta:\n    v: 1\n  alpha:\n    v: 2\n"))
	if err != nil {
		t.Fatalf("decode hooked: %v", err)
	}
	if diff := cmp.Diff([]string{"zeta", "alpha", "beta"}, hooked.State.Keys()); diff != "" {
		t.Fatalf("hooked order mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadReportsMissingFile(t *testing.T) {
	_, err := New().Load(filepath.Join("testdata", "missing.yaml"))
	if err == nil || !strings.Contains(err.Error(), "seed: read") {
		t.Fatalf("expected read error, got %v", err)
	}
}

func TestLoadLayersMergesStrongestFirst(t *testing.T) {
	result, err := New().LoadLayers(
		filepath.Join("testdata", "override.yaml"),
		filepath.Join("testdata", "counter.yaml"),
	)
	if err != nil {
		t.Fatalf("load layers: %v", err)
	}

	counter := result.State.Get("counter")
	if got := counter.Get("value").Int(); got != 10 {
		t.Fatalf("expected override value 10, got %d", got)
	}
	if got := counter.Get("step").Int(); got != 1 {
		t.Fatalf("expected base step 1, got %d", got)
	}
	user := result.State.Get("user").Values()
	want := map[string]any{"name": "ada", "tags": []any{"guest"}}
	if diff := cmp.Diff(want, user); diff != "" {
		t.Fatalf("user mismatch (-want +got):\n%s", diff)
	}

	double, err := result.Selectors["double"](result.State)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if got := asInt(t, double); got != 30 {
		t.Fatalf("expected overridden selector result 30, got %d", got)
	}
	if _, ok := result.Selectors["greeting"]; !ok {
		t.Fatalf("expected base selector to survive the merge")
	}
}

func TestMergeLayersLeavesInputsUntouched(t *testing.T) {
	weak := map[string]any{"state": map[string]any{"a": map[string]any{"x": 1, "y": 2}}}
	strong := map[string]any{"state": map[string]any{"a": map[string]any{"x": 5}}}

	merged := MergeLayers(strong, weak)
	want := map[string]any{"state": map[string]any{"a": map[string]any{"x": 5, "y": 2}}}
	if diff := cmp.Diff(want, merged); diff != "" {
		t.Fatalf("merged mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]any{"state": map[string]any{"a": map[string]any{"x": 1, "y": 2}}}, weak); diff != "" {
		t.Fatalf("weak layer modified (-want +got):\n%s", diff)
	}
	if len(MergeLayers()) != 0 {
		t.Fatalf("expected empty merge for no layers")
	}
	if _, err := New().LoadLayers(); err == nil {
		t.Fatalf("expected error without layers")
	}
}
