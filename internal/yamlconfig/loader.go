// Package yamlconfig loads the experiment configuration: built-in defaults,
// deep-merged with a YAML file, then patched by KEY VALUE overrides taken
// from the command line.
package yamlconfig

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/vk/radarize/internal/config"
	"github.com/vk/radarize/internal/ctxlog"
	"gopkg.in/yaml.v3"
)

const (
	keyDatasetPath = "DATASET.PATH"
	keyTrainSplit  = "DATASET.TRAIN_SPLIT"
	keyTestSplit   = "DATASET.TEST_SPLIT"
)

// Defaults returns the built-in configuration tree. Keys the driver does not
// read belong to the external tools and only come from the file.
func Defaults() map[string]any {
	return map[string]any{
		"DATASET": map[string]any{
			"PATH":        "",
			"TRAIN_SPLIT": []any{},
			"TEST_SPLIT":  []any{},
		},
	}
}

// Loader is the YAML implementation of config.ExperimentLoader.
type Loader struct {
	defaults func() map[string]any
	readFile func(name string) ([]byte, error)
}

// NewLoader creates a Loader reading from the local file system.
func NewLoader() *Loader {
	return &Loader{defaults: Defaults, readFile: os.ReadFile}
}

// Load implements config.ExperimentLoader.
func (l *Loader) Load(ctx context.Context, path string, overrides []string) (*config.Experiment, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading experiment configuration.", "file", path, "overrides", overrides)

	src, err := l.readFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var fileTree map[string]any
	if err := yaml.Unmarshal(src, &fileTree); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	tree := l.defaults()
	if err := mergeInto(tree, fileTree, ""); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	values := make(map[string]any)
	flatten(tree, "", values)

	if err := applyOverrides(values, overrides); err != nil {
		return nil, err
	}
	logger.Debug("Experiment configuration resolved.", "keys", len(values))

	dataset, err := datasetFrom(values)
	if err != nil {
		return nil, fmt.Errorf("invalid experiment configuration: %w", err)
	}
	return config.NewExperiment(path, dataset, values), nil
}

// mergeInto deep-merges src over dst. Sections stay sections: a mapping in
// one and a scalar in the other is an error.
func mergeInto(dst, src map[string]any, prefix string) error {
	for key, sv := range src {
		full := joinKey(prefix, key)
		dv, exists := dst[key]
		dMap, dIsMap := dv.(map[string]any)
		sMap, sIsMap := sv.(map[string]any)

		switch {
		case !exists:
			dst[key] = sv
		case dIsMap && sv == nil:
			// An empty section in the file keeps the defaults.
		case dIsMap && sIsMap:
			if err := mergeInto(dMap, sMap, full); err != nil {
				return err
			}
		case dIsMap != sIsMap && dv != nil && sv != nil:
			return fmt.Errorf("key %s: cannot replace a section with a value or vice versa", full)
		default:
			dst[key] = sv
		}
	}
	return nil
}

// flatten writes every leaf of tree into out under its dotted key.
func flatten(tree map[string]any, prefix string, out map[string]any) {
	for key, v := range tree {
		full := joinKey(prefix, key)
		if sub, ok := v.(map[string]any); ok {
			flatten(sub, full, out)
			continue
		}
		out[full] = v
	}
}

func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

// applyOverrides patches values with KEY VALUE pairs. Keys must already
// exist and values must keep the type of what they replace.
func applyOverrides(values map[string]any, overrides []string) error {
	if len(overrides)%2 != 0 {
		return fmt.Errorf("config overrides must be KEY VALUE pairs, got %d arguments", len(overrides))
	}

	var errs []string
	for i := 0; i < len(overrides); i += 2 {
		key, raw := overrides[i], overrides[i+1]
		current, ok := values[key]
		if !ok {
			errs = append(errs, fmt.Sprintf("unknown config key %q", key))
			continue
		}
		v, err := coerce(current, parseLiteral(raw))
		if err != nil {
			errs = append(errs, fmt.Sprintf("key %q: %v", key, err))
			continue
		}
		values[key] = v
	}

	if len(errs) > 0 {
		sort.Strings(errs)
		return fmt.Errorf("invalid config overrides:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

// parseLiteral reads an override value as a YAML literal, falling back to
// the raw text when it does not parse or is a mapping.
func parseLiteral(raw string) any {
	var v any
	if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	switch v.(type) {
	case nil:
		return raw
	case map[string]any:
		return raw
	}
	return v
}

var errTypeMismatch = errors.New("type mismatch")

// coerce checks that v may replace current and returns the value to store.
func coerce(current, v any) (any, error) {
	switch current.(type) {
	case nil:
		return v, nil
	case string:
		switch tv := v.(type) {
		case string:
			return tv, nil
		case int, float64, bool:
			return fmt.Sprint(tv), nil
		}
	case int:
		if _, ok := v.(int); ok {
			return v, nil
		}
	case float64:
		switch tv := v.(type) {
		case float64:
			return tv, nil
		case int:
			return float64(tv), nil
		}
	case bool:
		if _, ok := v.(bool); ok {
			return v, nil
		}
	case []any:
		if _, ok := v.([]any); ok {
			return v, nil
		}
	default:
		return v, nil
	}
	return nil, fmt.Errorf("%w: cannot replace %T with %T", errTypeMismatch, current, v)
}

func datasetFrom(values map[string]any) (config.Dataset, error) {
	var ds config.Dataset
	var err error

	path, _ := values[keyDatasetPath].(string)
	if strings.TrimSpace(path) == "" {
		return ds, fmt.Errorf("%s must be set", keyDatasetPath)
	}
	ds.Path = path

	if ds.TrainSplit, err = stringList(values[keyTrainSplit]); err != nil {
		return ds, fmt.Errorf("%s: %w", keyTrainSplit, err)
	}
	if ds.TestSplit, err = stringList(values[keyTestSplit]); err != nil {
		return ds, fmt.Errorf("%s: %w", keyTestSplit, err)
	}
	return ds, nil
}

func stringList(v any) ([]string, error) {
	if v == nil {
		return nil, nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("expected a list, got %T", v)
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		switch tv := item.(type) {
		case string:
			out = append(out, tv)
		case int, float64:
			out = append(out, fmt.Sprint(tv))
		default:
			return nil, fmt.Errorf("list entries must be names, got %T", item)
		}
	}
	return out, nil
}
