package probeguard

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mpyw/probeguard/internal/callgraph"
	"github.com/mpyw/probeguard/internal/calltarget"
	"github.com/mpyw/probeguard/internal/classfile"
	"github.com/mpyw/probeguard/internal/metrics"
	"github.com/mpyw/probeguard/internal/registry"
	"github.com/mpyw/probeguard/unit"
)

// Verifier verifies program units. It is immutable after construction and
// safe for concurrent use; each Verify call owns its own pass state.
type Verifier struct {
	strict      bool
	validator   *calltarget.Validator
	cyclePolicy CyclePolicy
	parallelism int
	logger      *slog.Logger
	metrics     *metrics.Recorder
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithStrict selects strict (true, the default) or lenient mode.
func WithStrict(strict bool) Option {
	return func(v *Verifier) {
		v.strict = strict
	}
}

// WithRegistry sets the allowed-target registry. The default is the builtin registry.
func WithRegistry(reg *Registry) Option {
	return func(v *Verifier) {
		v.validator = calltarget.New(reg)
	}
}

// WithCyclePolicy selects which call-graph cycles are reported.
func WithCyclePolicy(p CyclePolicy) Option {
	return func(v *Verifier) {
		v.cyclePolicy = p
	}
}

// WithParallelism bounds the number of concurrent passes in VerifyAll.
// Values below one mean GOMAXPROCS.
func WithParallelism(n int) Option {
	return func(v *Verifier) {
		v.parallelism = n
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Verifier) {
		v.logger = logger
	}
}

// WithMetrics records pass outcomes and diagnostics.
func WithMetrics(m *Metrics) Option {
	return func(v *Verifier) {
		v.metrics = m
	}
}

// New creates a Verifier.
func New(opts ...Option) *Verifier {
	v := &Verifier{
		strict:      true,
		validator:   calltarget.New(registry.New(registry.Builtin()...)),
		cyclePolicy: callgraph.Reachable,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.parallelism < 1 {
		v.parallelism = runtime.GOMAXPROCS(0)
	}
	return v
}

// Verify verifies u. In strict mode the first violation is returned as a
// *Diagnostic error and no Result is produced. In lenient mode the Result
// is always produced and carries every violation in Diagnostics.
func (v *Verifier) Verify(u *unit.Unit) (*Result, error) {
	start := time.Now()
	v.logger.Debug("verifying unit", "unit", u.Name, "strict", v.strict)

	p := newPass(v, u)
	res, err := p.run()

	outcome := metrics.OutcomeAccepted
	switch {
	case err != nil:
		outcome = metrics.OutcomeRejected
	case len(res.Diagnostics) > 0:
		outcome = metrics.OutcomeRecorded
	}
	v.metrics.ObservePass(outcome, time.Since(start))

	v.logger.Debug("verified unit",
		"unit", u.Name,
		"outcome", outcome,
		"duration", time.Since(start),
	)

	if err != nil {
		return nil, err
	}
	return res, nil
}

// VerifyClass decodes a class file and verifies it.
func (v *Verifier) VerifyClass(data []byte) (*Result, error) {
	u, err := classfile.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode class file: %w", err)
	}
	return v.Verify(u)
}

// VerifyFile reads a class file from path and verifies it.
func (v *Verifier) VerifyFile(path string) (*Result, error) {
	u, err := classfile.ParseFile(path)
	if err != nil {
		return nil, err
	}
	return v.Verify(u)
}

// Outcome is the result of one pass within VerifyAll.
type Outcome struct {
	Result *Result
	Err    error
}

// VerifyAll verifies independent units concurrently. Outcomes are returned
// in input order. The returned error is non-nil only when ctx is done
// before every pass has started; per-unit failures are reported in Outcome.Err.
func (v *Verifier) VerifyAll(ctx context.Context, units []*unit.Unit) ([]Outcome, error) {
	outcomes := make([]Outcome, len(units))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(v.parallelism)

	for i, u := range units {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := v.Verify(u)
			outcomes[i] = Outcome{Result: res, Err: err}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return outcomes, err
	}
	return outcomes, nil
}
