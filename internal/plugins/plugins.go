package plugins

import (
	"context"
	"fmt"
	"slices"

	"github.com/pmxbot/pmxbot-sub000/internal/core/domain"
	"github.com/pmxbot/pmxbot-sub000/internal/core/port"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Deps are the collaborators a plugin may use while registering its handlers.
type Deps struct {
	Config *viper.Viper
	Store  port.LogStore
	// Shutdown stops the bot.
	Shutdown context.CancelFunc
}

// Plugin registers a group of handlers.
type Plugin func(r *domain.Registry, deps Deps) error

type Loader struct {
	names   []string
	plugins map[string]Plugin
}

func NewLoader() *Loader {
	return &Loader{plugins: make(map[string]Plugin)}
}

// Builtin returns a loader with every plugin shipped with the bot.
func Builtin() *Loader {
	l := NewLoader()
	l.Add("core", Core)
	l.Add("logging", Logging)
	l.Add("greet", Greet)
	l.Add("heartbeat", Heartbeat)

	return l
}

// Add makes p loadable as name. Adding a name twice replaces the earlier plugin.
func (l *Loader) Add(name string, p Plugin) {
	if _, ok := l.plugins[name]; !ok {
		l.names = append(l.names, name)
	}
	l.plugins[name] = p
}

func (l *Loader) Names() []string {
	return slices.Clone(l.names)
}

// LoadAll runs the enabled plugins in the order they were added, or all of them when enabled is empty. A
// plugin that fails is logged and skipped. It returns the names of the plugins that loaded.
func (l *Loader) LoadAll(r *domain.Registry, deps Deps, enabled []string) []string {
	for _, name := range enabled {
		if _, ok := l.plugins[name]; !ok {
			log.Warn().Str("plugin", name).Msg("unknown plugin")
		}
	}

	var loaded []string
	for _, name := range l.names {
		if len(enabled) > 0 && !slices.Contains(enabled, name) {
			continue
		}

		if err := load(name, l.plugins[name], r, deps); err != nil {
			log.Error().Err(err).Str("plugin", name).Msg("failed to load plugin")
			continue
		}

		log.Info().Str("plugin", name).Msg("plugin loaded")
		loaded = append(loaded, name)
	}

	return loaded
}

func load(name string, p Plugin, r *domain.Registry, deps Deps) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("plugin %s panicked: %v", name, rec)
		}
	}()

	return p(r, deps)
}
