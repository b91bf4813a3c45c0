// Package forecast sequences location resolution, the forecast fetch and
// publication of the result.
package forecast

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/i474232898/local-forecast/internal/common"
	"github.com/i474232898/local-forecast/internal/location"
	"github.com/i474232898/local-forecast/internal/observable"
	"github.com/i474232898/local-forecast/internal/weather"
)

// LocationResolver yields the device position once per call.
type LocationResolver interface {
	ResolveLocation(ctx context.Context) (location.Coordinate, error)
}

// Options configures an Orchestrator.
type Options struct {
	// Credential is passed to the provider on every fetch.
	Credential string
	Logger     *zap.Logger
}

// Run identifies one pipeline run. IDs increase monotonically; Ref is a
// random correlation reference for logs and API responses.
type Run struct {
	ID  uint64 `json:"id"`
	Ref string `json:"ref"`
}

// Orchestrator is the single writer of PublishedState. Only the latest run
// may publish; results of superseded runs are dropped.
type Orchestrator struct {
	locator    LocationResolver
	provider   weather.Provider
	credential string
	logger     *zap.Logger

	state *observable.Value[PublishedState]
	queue *dispatchQueue
	runID *atomic.Uint64

	baseCtx    context.Context
	baseCancel context.CancelFunc
	wg         sync.WaitGroup

	mu     sync.Mutex
	phase  Phase
	cancel context.CancelFunc
	closed bool
}

func New(locator LocationResolver, provider weather.Provider, opts Options) *Orchestrator {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		locator:    locator,
		provider:   provider,
		credential: opts.Credential,
		logger:     opts.Logger.Named("forecast"),
		state:      observable.New(emptyState()),
		queue:      newDispatchQueue(),
		runID:      atomic.NewUint64(0),
		baseCtx:    ctx,
		baseCancel: cancel,
	}
}

// State is the published state. Subscribers are notified on the
// orchestrator's dispatch goroutine, one notification at a time.
func (o *Orchestrator) State() *observable.Value[PublishedState] {
	return o.state
}

// Phase returns the phase of the latest run.
func (o *Orchestrator) Phase() Phase {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.phase
}

// CurrentRun returns the latest run id, zero before the first run.
func (o *Orchestrator) CurrentRun() uint64 {
	return o.runID.Load()
}

// Start begins a run if none is in flight. It reports false, and does
// nothing, while a run is in progress or after Close.
func (o *Orchestrator) Start() (Run, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed || o.phase != PhaseIdle {
		return Run{}, false
	}
	return o.launchLocked(), true
}

// Refresh begins a run unconditionally. An in-flight run is superseded: its
// context is cancelled and whatever it produces is discarded.
func (o *Orchestrator) Refresh() (Run, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return Run{}, false
	}
	if o.cancel != nil {
		o.cancel()
		o.logger.Debug("superseding run", zap.Uint64("run", o.runID.Load()))
	}
	return o.launchLocked(), true
}

func (o *Orchestrator) launchLocked() Run {
	run := Run{ID: o.runID.Inc(), Ref: uuid.NewString()}
	ctx, cancel := context.WithCancel(o.baseCtx)
	o.cancel = cancel
	o.phase = PhaseResolvingLocation

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer cancel()
		o.run(ctx, run)
	}()
	return run
}

func (o *Orchestrator) run(ctx context.Context, run Run) {
	log := o.logger.With(zap.Uint64("run", run.ID), zap.String("ref", run.Ref))
	log.Debug("run started", zap.Stringer("phase", PhaseResolvingLocation))

	coord, err := o.locator.ResolveLocation(ctx)
	if err != nil {
		o.complete(run, log, stateFromError(common.Classify(err, common.KindLocationUnavailable)), err)
		return
	}

	if !o.advance(run.ID, PhaseFetchingWeather) {
		log.Debug("run superseded before fetch")
		return
	}
	log.Debug("location resolved", zap.Stringer("coordinate", coord), zap.Stringer("phase", PhaseFetchingWeather))

	snap, err := o.provider.Fetch(ctx, coord, o.credential)
	if err != nil {
		o.complete(run, log, stateFromError(common.Classify(err, common.KindNetworkRequestFailed)), err)
		return
	}
	o.complete(run, log, stateFromSnapshot(snap), nil)
}

// advance moves the latest run to phase. It reports false if run is stale.
func (o *Orchestrator) advance(id uint64, phase Phase) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if id != o.runID.Load() {
		return false
	}
	o.phase = phase
	return true
}

// complete hands the result to the dispatch queue. The fence is checked
// there, so a stale result queued behind a newer one can never win.
func (o *Orchestrator) complete(run Run, log *zap.Logger, st PublishedState, cause error) {
	terminal := PhasePublished
	if st.HasError {
		terminal = PhaseFailed
	}

	posted := o.queue.post(func() {
		o.mu.Lock()
		if run.ID != o.runID.Load() {
			o.mu.Unlock()
			log.Debug("dropping stale result", zap.Stringer("outcome", terminal))
			return
		}
		o.phase = PhaseIdle
		o.cancel = nil
		o.mu.Unlock()

		if cause != nil {
			log.Warn("run failed", zap.Stringer("phase", terminal), zap.String("message", st.ErrorMessage), zap.Error(cause))
		} else {
			log.Info("run published",
				zap.Stringer("phase", terminal),
				zap.String("location", st.LocationName),
				zap.Int("forecasts", len(st.Forecasts)),
			)
		}
		o.state.Set(st)
	})
	if !posted {
		log.Debug("dispatch queue closed; result dropped")
	}
}

// Close cancels the in-flight run, waits for it to return and stops the
// dispatch queue. No state is published afterwards.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	// Fence out anything still running.
	o.runID.Inc()
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
	o.phase = PhaseIdle
	o.mu.Unlock()

	o.baseCancel()
	o.wg.Wait()
	o.queue.close()
}
