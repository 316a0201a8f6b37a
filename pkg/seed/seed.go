// Package seed builds store inputs from YAML or JSON definitions.
//
// A definition carries the initial state slices, named selector expressions
// and the expression engine:
//
//	engine: expr
//	state:
//	  counter:
//	    value: 0
//	selectors:
//	  double: counter.value * 2
//
// Every slice is tagged with store.Tag, so a definition that would not pass
// the store factory fails here with the same ConstructionError. Slices keep
// the order they are declared in the file; slices a hook adds, or that come
// from an already parsed payload, follow in name order.
package seed

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	store "github.com/goliatone/go-store"
	jsoniter "github.com/json-iterator/go"
	"github.com/tiendc/go-deepcopy"
	"gopkg.in/yaml.v3"
)

var jsonAPI = jsoniter.Config{UseNumber: true}.Froze()

// Context identifies the definition being seeded in errors and hooks.
type Context struct {
	Source string
	// Order lists state slices in declaration order. Load and the Decode
	// helpers fill it from the document.
	Order []string
}

func (ctx Context) label() string {
	if ctx.Source == "" {
		return "<inline>"
	}
	return ctx.Source
}

// PreHook lets callers rewrite the raw payload before it is interpreted.
type PreHook func(Context, map[string]any) (map[string]any, error)

// PostHook lets callers adjust or validate the seeded result.
type PostHook func(Context, *Result) error

// Result is a ready store input.
type Result struct {
	Engine    string
	State     store.State
	Selectors store.SelectorMap
}

// Option configures a Seeder.
type Option func(*Seeder)

// Seeder converts definitions into store inputs.
type Seeder struct {
	preHooks  []PreHook
	postHooks []PostHook
	cache     store.ProgramCache
	registry  *store.FunctionRegistry
	evaluator store.Evaluator
	tagOpts   []store.TagOption
}

// WithPreHook applies hook before the payload is interpreted.
func WithPreHook(hook PreHook) Option {
	return func(s *Seeder) {
		s.preHooks = append(s.preHooks, hook)
	}
}

// WithPostHook applies hook after the result is built.
func WithPostHook(hook PostHook) Option {
	return func(s *Seeder) {
		s.postHooks = append(s.postHooks, hook)
	}
}

// WithProgramCache shares a program cache across seeded selectors.
func WithProgramCache(cache store.ProgramCache) Option {
	return func(s *Seeder) {
		s.cache = cache
	}
}

// WithFunctionRegistry exposes helpers to seeded selector expressions.
func WithFunctionRegistry(registry *store.FunctionRegistry) Option {
	return func(s *Seeder) {
		s.registry = registry
	}
}

// WithEvaluator overrides the engine named by the definition.
func WithEvaluator(evaluator store.Evaluator) Option {
	return func(s *Seeder) {
		s.evaluator = evaluator
	}
}

// WithTagOptions forwards options to store.Tag for every slice.
func WithTagOptions(opts ...store.TagOption) Option {
	return func(s *Seeder) {
		s.tagOpts = append(s.tagOpts, opts...)
	}
}

// New constructs a Seeder.
func New(opts ...Option) *Seeder {
	s := &Seeder{}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Load reads path and decodes it as YAML or JSON based on its extension.
func (s *Seeder) Load(path string) (Result, error) {
	payload, order, err := s.readPayload(path)
	if err != nil {
		return Result{}, err
	}
	return s.Decode(Context{Source: path, Order: order}, payload)
}

// DecodeYAML decodes a YAML definition.
func (s *Seeder) DecodeYAML(ctx Context, data []byte) (Result, error) {
	payload, order, err := parseYAML(ctx, data)
	if err != nil {
		return Result{}, err
	}
	ctx.Order = order
	return s.Decode(ctx, payload)
}

// DecodeJSON decodes a JSON definition. Integral numbers become int64.
func (s *Seeder) DecodeJSON(ctx Context, data []byte) (Result, error) {
	payload, order, err := parseJSON(ctx, data)
	if err != nil {
		return Result{}, err
	}
	ctx.Order = order
	return s.Decode(ctx, payload)
}

func (s *Seeder) readPayload(path string) (map[string]any, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("seed: read %q: %w", path, err)
	}
	ctx := Context{Source: path}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return parseJSON(ctx, data)
	case ".yaml", ".yml":
		return parseYAML(ctx, data)
	default:
		return nil, nil, fmt.Errorf("seed: unsupported extension for %q", path)
	}
}

// parseYAML decodes through a yaml.Node so the state slice order survives.
func parseYAML(ctx Context, data []byte) (map[string]any, []string, error) {
	var root yaml.Node
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	if err := decoder.Decode(&root); err != nil {
		return nil, nil, fmt.Errorf("seed: parse YAML %s: %w", ctx.label(), err)
	}
	var payload map[string]any
	if err := root.Decode(&payload); err != nil {
		return nil, nil, fmt.Errorf("seed: parse YAML %s: %w", ctx.label(), err)
	}
	return payload, yamlStateOrder(&root), nil
}

func yamlStateOrder(root *yaml.Node) []string {
	doc := root
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		doc = doc.Content[0]
	}
	if doc.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(doc.Content); i += 2 {
		if doc.Content[i].Value != "state" {
			continue
		}
		state := doc.Content[i+1]
		if state.Kind != yaml.MappingNode {
			return nil
		}
		order := make([]string, 0, len(state.Content)/2)
		for j := 0; j+1 < len(state.Content); j += 2 {
			order = append(order, state.Content[j].Value)
		}
		return order
	}
	return nil
}

func parseJSON(ctx Context, data []byte) (map[string]any, []string, error) {
	var payload map[string]any
	if err := jsonAPI.Unmarshal(data, &payload); err != nil {
		return nil, nil, fmt.Errorf("seed: parse JSON %s: %w", ctx.label(), err)
	}
	normalized, _ := normalizeNumbers(payload).(map[string]any)
	var order []string
	if state := jsonAPI.Get(data, "state"); state.ValueType() == jsoniter.ObjectValue {
		order = state.Keys()
	}
	return normalized, order, nil
}

// Decode interprets an already parsed payload. The payload is cloned before
// pre-hooks run, so hooks may mutate what they receive.
func (s *Seeder) Decode(ctx Context, payload map[string]any) (Result, error) {
	if payload == nil {
		return Result{}, fmt.Errorf("seed: payload is nil for %s", ctx.label())
	}

	current := map[string]any{}
	if err := deepcopy.Copy(&current, payload); err != nil {
		return Result{}, fmt.Errorf("seed: clone payload for %s: %w", ctx.label(), err)
	}

	for _, hook := range s.preHooks {
		if hook == nil {
			continue
		}
		next, err := hook(ctx, current)
		if err != nil {
			return Result{}, fmt.Errorf("seed: pre-hook for %s failed: %w", ctx.label(), err)
		}
		if next != nil {
			current = next
		}
	}

	doc, err := parseDocument(current)
	if err != nil {
		return Result{}, fmt.Errorf("seed: %s: %w", ctx.label(), err)
	}

	state, err := s.buildState(doc.state, ctx.Order)
	if err != nil {
		return Result{}, fmt.Errorf("seed: %s: %w", ctx.label(), err)
	}

	selectors, err := s.buildSelectors(doc.engine, doc.selectors)
	if err != nil {
		return Result{}, fmt.Errorf("seed: %s: %w", ctx.label(), err)
	}

	result := Result{
		Engine:    doc.engine,
		State:     state,
		Selectors: selectors,
	}
	for _, hook := range s.postHooks {
		if hook == nil {
			continue
		}
		if err := hook(ctx, &result); err != nil {
			return Result{}, fmt.Errorf("seed: post-hook for %s failed: %w", ctx.label(), err)
		}
	}
	return result, nil
}

type document struct {
	engine    string
	state     map[string]map[string]any
	selectors map[string]string
}

func parseDocument(payload map[string]any) (document, error) {
	doc := document{
		state:     map[string]map[string]any{},
		selectors: map[string]string{},
	}
	for key, value := range payload {
		switch key {
		case "engine":
			engine, ok := value.(string)
			if !ok && value != nil {
				return document{}, fmt.Errorf("engine must be a string, got %T", value)
			}
			doc.engine = engine
		case "state":
			slices, ok := value.(map[string]any)
			if !ok {
				return document{}, fmt.Errorf("state must be a mapping, got %T", value)
			}
			for name, raw := range slices {
				record, ok := raw.(map[string]any)
				if !ok {
					return document{}, fmt.Errorf("state slice %q must be a mapping, got %T", name, raw)
				}
				doc.state[name] = record
			}
		case "selectors":
			exprs, ok := value.(map[string]any)
			if !ok {
				return document{}, fmt.Errorf("selectors must be a mapping, got %T", value)
			}
			for name, raw := range exprs {
				expr, ok := raw.(string)
				if !ok {
					return document{}, fmt.Errorf("selector %q must be a string expression, got %T", name, raw)
				}
				doc.selectors[name] = expr
			}
		default:
			return document{}, fmt.Errorf("unknown field %q", key)
		}
	}
	return doc, nil
}

// buildState tags the slices listed in order first, then the rest by name.
func (s *Seeder) buildState(slices map[string]map[string]any, order []string) (store.State, error) {
	names := make([]string, 0, len(slices))
	placed := make(map[string]bool, len(slices))
	for _, name := range order {
		if _, ok := slices[name]; ok && !placed[name] {
			placed[name] = true
			names = append(names, name)
		}
	}
	rest := make([]string, 0, len(slices)-len(names))
	for name := range slices {
		if !placed[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	names = append(names, rest...)

	entries := make([]store.Entry, 0, len(names))
	for _, name := range names {
		sub, err := store.Tag(store.Raw(slices[name]), s.tagOpts...)
		if err != nil {
			return store.State{}, fmt.Errorf("state slice %q: %w", name, err)
		}
		entries = append(entries, store.Entry{Key: name, Value: sub})
	}
	return store.NewState(entries...), nil
}

func (s *Seeder) buildSelectors(engine string, exprs map[string]string) (store.SelectorMap, error) {
	if len(exprs) == 0 {
		return nil, nil
	}
	evaluator := s.evaluator
	if evaluator == nil {
		var err error
		evaluator, err = store.EvaluatorFor(engine, s.cache, s.registry)
		if err != nil {
			return nil, err
		}
	}
	return store.SelectorsFromExpressions(evaluator, exprs)
}

// number matches the json.Number values produced with UseNumber.
type number interface {
	Int64() (int64, error)
	Float64() (float64, error)
	String() string
}

func normalizeNumbers(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		for key, item := range typed {
			typed[key] = normalizeNumbers(item)
		}
		return typed
	case []any:
		for i, item := range typed {
			typed[i] = normalizeNumbers(item)
		}
		return typed
	case number:
		if i, err := typed.Int64(); err == nil {
			return i
		}
		if f, err := typed.Float64(); err == nil {
			return f
		}
		return typed.String()
	default:
		return value
	}
}
