// Package collector obtains a device's operational state for auditing.
//
// Each Source speaks one transport (SSH, SONiC redis, SNMP, or on-disk
// snapshots) and returns the typed views the compliance engine evaluates.
// A Source may return a partially filled state together with an error when
// only some views could be read.
package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/newtron-network/netaudit/pkg/compliance"
	"github.com/newtron-network/netaudit/pkg/inventory"
	"github.com/newtron-network/netaudit/pkg/util"
)

// Source kinds accepted in the inventory "source" attribute
const (
	KindSSH   = "ssh"
	KindRedis = "redis"
	KindSNMP  = "snmp"
	KindFile  = "file"
)

// DefaultTimeout bounds connection setup for network sources
const DefaultTimeout = 30 * time.Second

// Source collects observed state from one device
type Source interface {
	Name() string
	Collect(ctx context.Context, h *inventory.Host) (*compliance.ObservedState, error)
}

// Options configure sources created by NewSource
type Options struct {
	// SnapshotDir is the root directory read by the file source
	SnapshotDir string

	// Timeout bounds dialing and per-request waits
	Timeout time.Duration
}

func (o Options) timeout() time.Duration {
	if o.Timeout > 0 {
		return o.Timeout
	}
	return DefaultTimeout
}

// NewSource creates a source of the given kind. An empty kind selects SSH.
func NewSource(kind string, opts Options) (Source, error) {
	switch kind {
	case KindSSH, "":
		return &SSHSource{Timeout: opts.timeout()}, nil
	case KindRedis:
		return &RedisSource{Timeout: opts.timeout()}, nil
	case KindSNMP:
		return &SNMPSource{Timeout: opts.timeout()}, nil
	case KindFile:
		return &FileSource{Dir: opts.SnapshotDir}, nil
	default:
		return nil, fmt.Errorf("source '%s': %w", kind, util.ErrInvalidConfig)
	}
}

// Registry hands out one Source per kind, so per-source state is shared by
// every host that uses it.
type Registry struct {
	opts    Options
	sources map[string]Source
}

// NewRegistry creates a registry that builds sources with opts
func NewRegistry(opts Options) *Registry {
	return &Registry{opts: opts, sources: make(map[string]Source)}
}

// Register installs a source under kind, replacing any existing one
func (r *Registry) Register(kind string, s Source) {
	r.sources[kind] = s
}

// For returns the source a host is configured to use. It must not be called
// concurrently with Register.
func (r *Registry) For(h *inventory.Host) (Source, error) {
	kind := h.Source
	if kind == "" {
		kind = KindSSH
	}
	if s, ok := r.sources[kind]; ok {
		return s, nil
	}
	s, err := NewSource(kind, r.opts)
	if err != nil {
		return nil, fmt.Errorf("host %s: %w", h.Name, err)
	}
	r.sources[kind] = s
	return s, nil
}

// Prepare resolves the source for every host up front so that For is
// read-only while collection runs concurrently.
func (r *Registry) Prepare(hosts []*inventory.Host) error {
	for _, h := range hosts {
		if _, err := r.For(h); err != nil {
			return err
		}
	}
	return nil
}
