package location

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/i474232898/local-forecast/internal/common"
	"github.com/i474232898/local-forecast/internal/promise"
)

var errNoFix = errors.New("platform reported no fixes")

// request is one outstanding ResolveLocation. It is settled exactly once.
type request struct {
	id           uint64
	result       *promise.Promise[Coordinate]
	fixRequested bool
}

// Authority drives a Platform's permission and fix callbacks and turns them
// into single results. At most one request is outstanding; concurrent callers
// share it.
type Authority struct {
	platform Platform
	logger   *zap.Logger

	mu      sync.Mutex
	state   AuthorizationState
	pending *request
	nextID  uint64
}

// NewAuthority attaches itself as the platform's listener.
func NewAuthority(platform Platform, logger *zap.Logger) *Authority {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Authority{
		platform: platform,
		logger:   logger.Named("location"),
		state:    platform.AuthorizationState(),
	}
	platform.Attach(a)
	return a
}

// State returns the last authorization state reported by the platform.
func (a *Authority) State() AuthorizationState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// ResolveLocation returns the device position. Authorization is requested
// first if it was never determined. If ctx ends before the request settles
// the caller stops waiting, but the request stays outstanding for others.
func (a *Authority) ResolveLocation(ctx context.Context) (Coordinate, error) {
	a.mu.Lock()
	req := a.pending
	if req != nil {
		a.mu.Unlock()
		a.logger.Debug("joining pending location request", zap.Uint64("request", req.id))
		return a.await(ctx, req)
	}

	a.nextID++
	req = &request{id: a.nextID, result: promise.New[Coordinate]()}
	a.pending = req
	state := a.state

	// Platform calls happen outside the lock since a platform may call back
	// synchronously.
	var next func()
	switch {
	case state.Refused():
		a.pending = nil
	case state.Authorized():
		req.fixRequested = true
		next = a.platform.RequestFix
	default:
		next = a.platform.RequestAuthorization
	}
	a.mu.Unlock()

	a.logger.Debug("location request started",
		zap.Uint64("request", req.id),
		zap.Stringer("authorization", state),
	)

	if state.Refused() {
		req.result.Reject(common.NewError(common.KindAuthorizationDenied, nil))
	} else {
		next()
	}
	return a.await(ctx, req)
}

func (a *Authority) await(ctx context.Context, req *request) (Coordinate, error) {
	c, err := req.result.Await(ctx)
	if err != nil && ctx.Err() != nil {
		if req.result.Settled() {
			return req.result.Await(context.Background())
		}
		return Coordinate{}, common.NewError(common.KindLocationUnavailable, err)
	}
	return c, err
}

// AuthorizationChanged implements Listener.
func (a *Authority) AuthorizationChanged(state AuthorizationState) {
	a.mu.Lock()
	prev := a.state
	a.state = state
	req := a.pending

	var next func()
	switch {
	case req == nil:
	case state.Refused():
		a.pending = nil
	case state.Authorized() && !req.fixRequested:
		req.fixRequested = true
		next = a.platform.RequestFix
	case state == NotDetermined:
		req.fixRequested = false
		next = a.platform.RequestAuthorization
	}
	a.mu.Unlock()

	a.logger.Info("authorization changed",
		zap.Stringer("from", prev),
		zap.Stringer("to", state),
	)

	if req == nil {
		return
	}
	if state.Refused() {
		if req.result.Reject(common.NewError(common.KindAuthorizationDenied, nil)) {
			a.logger.Warn("location request denied", zap.Uint64("request", req.id))
		}
		return
	}
	if next != nil {
		next()
	}
}

// FixReceived implements Listener. Only the first fix is used.
func (a *Authority) FixReceived(fixes []Coordinate) {
	a.mu.Lock()
	req := a.pending
	if req == nil {
		a.mu.Unlock()
		a.logger.Debug("ignoring fix with no outstanding request", zap.Int("fixes", len(fixes)))
		return
	}
	a.pending = nil
	refused := a.state.Refused()
	a.mu.Unlock()

	switch {
	case refused:
		// A denial already observed outranks a fix racing with it.
		req.result.Reject(common.NewError(common.KindAuthorizationDenied, nil))
	case len(fixes) == 0:
		req.result.Reject(common.NewError(common.KindLocationUnavailable, errNoFix))
	default:
		if req.result.Resolve(fixes[0]) {
			a.logger.Debug("location resolved",
				zap.Uint64("request", req.id),
				zap.Stringer("coordinate", fixes[0]),
			)
		}
	}
}

// FixFailed implements Listener.
func (a *Authority) FixFailed(err error) {
	a.mu.Lock()
	req := a.pending
	if req == nil {
		a.mu.Unlock()
		a.logger.Debug("ignoring fix failure with no outstanding request", zap.Error(err))
		return
	}
	a.pending = nil
	a.mu.Unlock()

	if req.result.Reject(common.NewError(common.KindLocationUnavailable, err)) {
		a.logger.Warn("location request failed", zap.Uint64("request", req.id), zap.Error(err))
	}
}
