package cache

import (
	"time"

	"github.com/apex/log"
)

// Option customises a Manager.
type Option func(*options)

type options struct {
	ttls         map[Kind]time.Duration
	depPrefix    string
	depTTL       time.Duration
	logger       log.Interface
	pingDisabled bool
}

func defaultOptions() options {
	return options{
		ttls:      DefaultTTLs(),
		depPrefix: "deps:",
		depTTL:    DefaultDependencyTTL,
		logger:    log.Log,
	}
}

// WithTTL overrides the default TTL for a kind. Non-positive durations are ignored.
func WithTTL(kind Kind, d time.Duration) Option {
	return func(o *options) {
		if kind != "" && d > 0 {
			o.ttls[kind] = d
		}
	}
}

// WithDependencyPrefix changes the namespace under which dependency sets live.
func WithDependencyPrefix(prefix string) Option {
	return func(o *options) {
		if prefix != "" {
			o.depPrefix = prefix
		}
	}
}

// WithDependencyTTL sets the expiry applied to dependency sets on every insert.
func WithDependencyTTL(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.depTTL = d
		}
	}
}

// WithLogger routes cache diagnostics to the given apex logger.
func WithLogger(l log.Interface) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithoutPing skips the startup connectivity probe.
func WithoutPing() Option {
	return func(o *options) {
		o.pingDisabled = true
	}
}
