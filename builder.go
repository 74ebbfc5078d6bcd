package authcore

import (
	"errors"
	"log/slog"

	"github.com/caselane/authcore/password"
)

// Builder wires an [Engine] from its collaborators. Dependencies are
// injected here once, at the composition root; there are no package-level
// singletons to reach for later.
type Builder struct {
	config   Config
	store    CredentialStore
	notifier Notifier
	sink     AuditSink

	built bool
}

// New returns a Builder carrying [DefaultConfig].
func New() *Builder {
	return &Builder{config: DefaultConfig()}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithStore sets the credential store. Required.
func (b *Builder) WithStore(store CredentialStore) *Builder {
	b.store = store
	return b
}

// WithNotifier sets the outbound email notifier. Optional; without one,
// verification and reset tokens are issued but not delivered.
func (b *Builder) WithNotifier(n Notifier) *Builder {
	b.notifier = n
	return b
}

// WithAuditSink sets the audit destination. Optional; audit events are
// discarded without one.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.sink = sink
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the validation latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and assembles the engine. A Builder is
// single-use.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.store == nil {
		return nil, errors.New("credential store required")
	}

	hasher, err := password.NewHasher(password.Params{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:   cfg,
		store:    b.store,
		notifier: b.notifier,
		hasher:   hasher,
		audit:    newAuditDispatcher(cfg.Audit, b.sink),
		metrics:  NewMetrics(cfg.Metrics),
	}

	b.built = true
	return engine, nil
}

// NewCleanupJob assembles the background sweep against the same store and
// observability stack as the engine. A nil logger falls back to
// slog.Default.
func (e *Engine) NewCleanupJob(logger *slog.Logger) (*CleanupJob, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	return newCleanupJob(e.store, e.config.Cleanup, logger, e.metrics, e.audit), nil
}
