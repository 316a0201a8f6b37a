package seed

import (
	"fmt"
	"strings"
)

// LoadLayers reads every path and merges the definitions, strongest first,
// before seeding. A typical call is LoadLayers("local.yaml", "base.yaml").
func (s *Seeder) LoadLayers(paths ...string) (Result, error) {
	if len(paths) == 0 {
		return Result{}, fmt.Errorf("seed: at least one definition is required")
	}
	payloads := make([]map[string]any, 0, len(paths))
	orders := make([][]string, 0, len(paths))
	for _, path := range paths {
		payload, order, err := s.readPayload(path)
		if err != nil {
			return Result{}, err
		}
		payloads = append(payloads, payload)
		orders = append(orders, order)
	}
	ctx := Context{Source: strings.Join(paths, "+"), Order: layerOrder(orders)}
	return s.Decode(ctx, MergeLayers(payloads...))
}

// layerOrder keeps the weakest layer's slice order and appends slices that
// only stronger layers declare.
func layerOrder(orders [][]string) []string {
	var out []string
	seen := map[string]bool{}
	for i := len(orders) - 1; i >= 0; i-- {
		for _, name := range orders[i] {
			if !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
		}
	}
	return out
}

// MergeLayers deep merges payloads ordered from strongest to weakest. Nested
// mappings merge key by key; any other value from a stronger layer replaces
// the weaker one whole, lists included. Inputs are not modified.
func MergeLayers(layers ...map[string]any) map[string]any {
	merged := map[string]any{}
	for i := len(layers) - 1; i >= 0; i-- {
		merged = mergeMaps(layers[i], merged)
	}
	return merged
}

func mergeMaps(strong, weak map[string]any) map[string]any {
	out := make(map[string]any, len(weak)+len(strong))
	for key, value := range weak {
		out[key] = value
	}
	for key, value := range strong {
		strongMap, strongOK := value.(map[string]any)
		weakMap, weakOK := out[key].(map[string]any)
		if strongOK && weakOK {
			out[key] = mergeMaps(strongMap, weakMap)
			continue
		}
		out[key] = value
	}
	return out
}
