// Package runner audits many devices concurrently.
//
// Each host is collected through its configured Source and evaluated with
// compliance.AuditDevice. A host whose collection fails is still evaluated,
// against whatever partial state came back (or none), so every device gets a
// full report.
package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/newtron-network/netaudit/pkg/audit"
	"github.com/newtron-network/netaudit/pkg/collector"
	"github.com/newtron-network/netaudit/pkg/compliance"
	"github.com/newtron-network/netaudit/pkg/inventory"
	"github.com/newtron-network/netaudit/pkg/util"
)

// DefaultWorkers bounds concurrent hosts when Config.Workers is unset
const DefaultWorkers = 10

// Config controls a run
type Config struct {
	// Workers is the maximum number of hosts collected at once
	Workers int

	// Timeout bounds each host's collection; zero means no limit
	Timeout time.Duration

	// Log receives one event per verdict; nil falls back to the default
	// compliance log
	Log audit.Logger

	// QuietVerdicts logs verdicts at debug level, for callers that print
	// the report themselves
	QuietVerdicts bool
}

// Result is the outcome of auditing one host
type Result struct {
	Host     *inventory.Host
	Verdicts []compliance.Verdict
	// Err is the collection error, if any; verdicts are still present
	Err      error
	Duration time.Duration
}

// Summary counts the host's verdicts
func (r *Result) Summary() compliance.Summary {
	return compliance.Summarize(r.Verdicts)
}

// Report is the outcome of a whole run
type Report struct {
	RunID   string
	Results []*Result
}

// Verdicts returns every verdict in host order
func (r *Report) Verdicts() []compliance.Verdict {
	var all []compliance.Verdict
	for _, res := range r.Results {
		all = append(all, res.Verdicts...)
	}
	return all
}

// Summary counts verdicts across all hosts
func (r *Report) Summary() compliance.Summary {
	return compliance.Summarize(r.Verdicts())
}

// Runner audits hosts against one rule set
type Runner struct {
	rules    *compliance.RuleSet
	registry *collector.Registry
	cfg      Config
}

// New creates a runner
func New(rules *compliance.RuleSet, registry *collector.Registry, cfg Config) *Runner {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	return &Runner{rules: rules, registry: registry, cfg: cfg}
}

// Run audits hosts and returns results in the order given. It fails only
// when a host's source cannot be resolved or ctx is canceled; per-host
// collection errors are reported in Result.Err.
func (r *Runner) Run(ctx context.Context, hosts []*inventory.Host) (*Report, error) {
	if err := r.registry.Prepare(hosts); err != nil {
		return nil, err
	}

	report := &Report{RunID: uuid.NewString(), Results: make([]*Result, len(hosts))}
	log := util.WithRun(report.RunID)
	log.Infof("auditing %d host(s) against %d rule(s)", len(hosts), r.rules.Len())

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)
	for i, h := range hosts {
		i, h := i, h
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			report.Results[i] = r.auditHost(gctx, report.RunID, h)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("run %s: %w", report.RunID, err)
	}

	s := report.Summary()
	log.Infof("audit complete: %d passed, %d failed", s.Passed, s.Failed)
	return report, nil
}

func (r *Runner) auditHost(ctx context.Context, runID string, h *inventory.Host) *Result {
	start := time.Now()
	log := util.WithRun(runID).WithField("device", h.Name)

	var state *compliance.ObservedState
	src, err := r.registry.For(h)
	if err == nil {
		cctx := ctx
		if r.cfg.Timeout > 0 {
			var cancel context.CancelFunc
			cctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
			defer cancel()
		}
		log.Debugf("collecting via %s", src.Name())
		state, err = src.Collect(cctx, h)
	}
	if err != nil {
		log.Warnf("collection incomplete: %v", err)
	}

	res := &Result{
		Host:     h,
		Verdicts: compliance.AuditDevice(h.Name, state, r.rules),
		Err:      err,
		Duration: time.Since(start),
	}
	r.emit(log, runID, res.Verdicts)
	return res
}

func (r *Runner) emit(log *logrus.Entry, runID string, verdicts []compliance.Verdict) {
	sink := r.cfg.Log
	if sink == nil {
		sink = audit.DefaultLogger()
	}
	for _, v := range verdicts {
		entry := log.WithFields(logrus.Fields{"category": v.Category, "subject": v.Subject})
		switch {
		case r.cfg.QuietVerdicts:
			entry.Debug(v.Message)
		case v.Passed():
			entry.Info(v.Message)
		default:
			entry.Error(v.Message)
		}
		if sink == nil {
			continue
		}
		if err := sink.Log(audit.NewEvent(runID, v)); err != nil {
			log.Warnf("compliance log: %v", err)
		}
	}
}
