package registry

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/ajitpratap0/arrowload/pkg/config"
	"github.com/ajitpratap0/arrowload/pkg/connector/base"
	"github.com/ajitpratap0/arrowload/pkg/connector/core"
	"github.com/ajitpratap0/arrowload/pkg/errors"
	"github.com/ajitpratap0/arrowload/pkg/logger"
)

// Target is a parsed destination location.
type Target struct {
	// Raw is the location as given by the caller
	Raw string
	// Engine is the registered destination name, e.g. "sqlite"
	Engine string
	// URL is set for scheme based locations
	URL *url.URL
	// Path is the database file for file based engines
	Path string
}

// Option returns a query parameter of a URL location.
func (t *Target) Option(key string) string {
	if t.URL == nil {
		return ""
	}
	return t.URL.Query().Get(key)
}

// Redacted returns Raw with any password masked, for logs and errors.
func (t *Target) Redacted() string {
	if t.URL == nil {
		return t.Raw
	}
	return t.URL.Redacted()
}

// DestinationFactory opens a destination for a resolved target.
type DestinationFactory func(ctx context.Context, target *Target, cfg *config.BaseConfig) (core.Destination, error)

type registration struct {
	factory DestinationFactory
	info    core.ConnectorMetadata
}

// Registry manages destination registration and instantiation
type Registry struct {
	destinations map[string]registration
	schemes      map[string]string
	mu           sync.RWMutex
	logger       *zap.Logger
}

// Global registry instance
var globalRegistry = NewRegistry()

// NewRegistry creates a new connector registry
func NewRegistry() *Registry {
	return &Registry{
		destinations: make(map[string]registration),
		schemes:      make(map[string]string),
		logger:       logger.Get().With(zap.String("component", "connector_registry")),
	}
}

// RegisterDestination registers a destination factory under info.Name and
// every URL scheme in info.Schemes.
func (r *Registry) RegisterDestination(info core.ConnectorMetadata, factory DestinationFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.destinations[info.Name]; exists {
		return errors.New(errors.ErrorTypeConfig, fmt.Sprintf("destination connector %s already registered", info.Name))
	}
	for _, scheme := range info.Schemes {
		if owner, taken := r.schemes[scheme]; taken {
			return errors.New(errors.ErrorTypeConfig, fmt.Sprintf("scheme %s already registered by %s", scheme, owner))
		}
	}

	info.Type = core.ConnectorTypeDestination
	r.destinations[info.Name] = registration{factory: factory, info: info}
	for _, scheme := range info.Schemes {
		r.schemes[scheme] = info.Name
	}
	r.logger.Debug("destination connector registered", zap.String("name", info.Name))
	return nil
}

// Resolve maps a destination location to a registered engine. Scheme based
// URLs select the engine owning the scheme; a bare path selects duckdb for
// *.duckdb and *.ddb files and sqlite otherwise.
func (r *Registry) Resolve(raw string) (*Target, error) {
	if raw == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "destination is empty")
	}
	target := &Target{Raw: raw}

	if scheme, rest, ok := strings.Cut(raw, "://"); ok {
		scheme = strings.ToLower(scheme)
		r.mu.RLock()
		engine, known := r.schemes[scheme]
		r.mu.RUnlock()
		if !known {
			return nil, errors.Newf(errors.ErrorTypeConfig, "no destination registered for scheme %q", scheme)
		}
		u, err := url.Parse(raw)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid destination URL")
		}
		target.Engine = engine
		target.URL = u
		// file engines take everything between the scheme and the query as a path
		target.Path, _, _ = strings.Cut(rest, "?")
		return target, nil
	}

	switch strings.ToLower(filepath.Ext(raw)) {
	case ".duckdb", ".ddb":
		target.Engine = "duckdb"
	default:
		target.Engine = "sqlite"
	}
	target.Path = raw
	return target, nil
}

// OpenDestination resolves raw and opens it, retrying transient connection
// failures per cfg.Reliability. Any other failure is returned at once as a
// destination_open error.
func (r *Registry) OpenDestination(ctx context.Context, raw string, cfg *config.BaseConfig) (core.Destination, error) {
	if cfg == nil {
		cfg = config.NewBaseConfig("")
	}
	target, err := r.Resolve(raw)
	if err != nil {
		return nil, errors.DestinationOpen(raw, err)
	}

	r.mu.RLock()
	reg, exists := r.destinations[target.Engine]
	r.mu.RUnlock()
	if !exists {
		return nil, errors.DestinationOpen(target.Redacted(),
			errors.Newf(errors.ErrorTypeConfig, "destination connector %s not found", target.Engine))
	}

	log := r.logger.With(zap.String("destination", target.Engine), zap.String("location", target.Redacted()))
	log.Debug("opening database")

	var dest core.Destination
	policy := base.RetryPolicyFromConfig(cfg.Reliability)
	err = policy.Execute(ctx, log, func() error {
		d, err := reg.factory(ctx, target, cfg)
		if err != nil {
			return err
		}
		dest = d
		return nil
	})
	if err != nil {
		return nil, errors.DestinationOpen(target.Redacted(), err)
	}
	return dest, nil
}

// ListDestinations returns registered destination metadata sorted by name
func (r *Registry) ListDestinations() []core.ConnectorMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]core.ConnectorMetadata, 0, len(r.destinations))
	for _, reg := range r.destinations {
		out = append(out, reg.info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// HasDestination checks if a destination connector is registered
func (r *Registry) HasDestination(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.destinations[name]
	return exists
}

// Global registry functions

// RegisterDestination registers a destination connector in the global registry
func RegisterDestination(info core.ConnectorMetadata, factory DestinationFactory) error {
	return globalRegistry.RegisterDestination(info, factory)
}

// Resolve resolves a location against the global registry
func Resolve(raw string) (*Target, error) {
	return globalRegistry.Resolve(raw)
}

// OpenDestination opens a destination from the global registry
func OpenDestination(ctx context.Context, raw string, cfg *config.BaseConfig) (core.Destination, error) {
	return globalRegistry.OpenDestination(ctx, raw, cfg)
}

// ListDestinations returns registered destinations from the global registry
func ListDestinations() []core.ConnectorMetadata {
	return globalRegistry.ListDestinations()
}

// HasDestination checks if a destination is registered in the global registry
func HasDestination(name string) bool {
	return globalRegistry.HasDestination(name)
}
