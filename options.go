package store

import (
	"strings"

	"github.com/goliatone/go-store/pkg/activity"
	"github.com/goliatone/go-store/pkg/observable"
)

// Option configures a Store built by New.
type Option func(*storeConfig)

type storeConfig struct {
	id            string
	observable    bool
	cell          observable.Cell[State]
	strict        bool
	logger        Logger
	activityHooks activity.Hooks
	activityCfg   activity.Config
}

func applyOptions(opts []Option) storeConfig {
	cfg := storeConfig{
		strict:      true,
		activityCfg: activity.Config{Enabled: true},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

func (cfg storeConfig) loggerOrNoop() Logger {
	if cfg.logger != nil {
		return cfg.logger
	}
	return noopLogger{}
}

// WithObservable wraps the initial state in an observable.Subject so the store
// accepts PatchState.
func WithObservable() Option {
	return func(cfg *storeConfig) {
		cfg.observable = true
	}
}

// WithCell wraps the state in a caller supplied cell. The cell's current value
// is replaced by the validated initial state.
func WithCell(cell observable.Cell[State]) Option {
	return func(cfg *storeConfig) {
		cfg.cell = cell
		cfg.observable = cell != nil || cfg.observable
	}
}

// WithStrictValidation toggles the rejection of leniently tagged sub-states.
// It defaults to true.
func WithStrictValidation(strict bool) Option {
	return func(cfg *storeConfig) {
		cfg.strict = strict
	}
}

// WithStoreID overrides the generated store identifier.
func WithStoreID(id string) Option {
	return func(cfg *storeConfig) {
		cfg.id = strings.TrimSpace(id)
	}
}

// WithActivityHooks attaches activity hooks notified on store creation and on
// every patch. Nil entries are dropped.
func WithActivityHooks(hooks activity.Hooks) Option {
	normalized := cloneActivityHooks(hooks)
	return func(cfg *storeConfig) {
		cfg.activityHooks = normalized
	}
}

// WithActivityConfig overrides the emitter defaults such as the channel, the
// stamped actor and tenant, and the verbs that are reported.
func WithActivityConfig(config activity.Config) Option {
	return func(cfg *storeConfig) {
		cfg.activityCfg = config
	}
}

func cloneActivityHooks(hooks activity.Hooks) activity.Hooks {
	if len(hooks) == 0 {
		return nil
	}
	normalized := make([]activity.ActivityHook, 0, len(hooks))
	for _, hook := range hooks {
		if hook == nil {
			continue
		}
		normalized = append(normalized, hook)
	}
	if len(normalized) == 0 {
		return nil
	}
	return activity.Hooks(normalized)
}
