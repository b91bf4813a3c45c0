package location

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

var errNotAuthorized = errors.New("location access not authorized")

// DeviceOptions configures a Device.
type DeviceOptions struct {
	// Initial is the authorization state at start-up.
	Initial AuthorizationState
	// Grant is reported when authorization is requested. NotDetermined
	// leaves the prompt open until SetAuthorization is called.
	Grant AuthorizationState
	// Locator produces fixes.
	Locator Locator
	// FixTimeout bounds a single Locate call; zero means no bound.
	FixTimeout time.Duration
}

// Device is a Platform for a host without positioning hardware. Permission
// decisions come from configuration or from an operator, and fixes from a
// Locator. Callbacks are delivered on their own goroutines.
type Device struct {
	opts   DeviceOptions
	logger *zap.Logger

	mu        sync.Mutex
	state     AuthorizationState
	listener  Listener
	prompting bool

	wg sync.WaitGroup
}

func NewDevice(opts DeviceOptions, logger *zap.Logger) *Device {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Device{
		opts:   opts,
		logger: logger.Named("device"),
		state:  opts.Initial,
	}
}

func (d *Device) Attach(l Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listener = l
}

func (d *Device) AuthorizationState() AuthorizationState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Prompting reports whether an authorization request awaits a decision.
func (d *Device) Prompting() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.prompting
}

func (d *Device) RequestAuthorization() {
	d.mu.Lock()
	state := d.state
	grant := d.opts.Grant
	if state == NotDetermined && grant == NotDetermined {
		d.prompting = true
	}
	d.mu.Unlock()

	switch {
	case state != NotDetermined:
		// Already decided; answer with the current state.
		d.async(func() { d.SetAuthorization(state) })
	case grant != NotDetermined:
		d.async(func() { d.SetAuthorization(grant) })
	default:
		d.logger.Info("awaiting location authorization decision")
	}
}

// SetAuthorization records a permission decision and reports it to the
// listener. It may be called at any time, e.g. when access is revoked.
func (d *Device) SetAuthorization(state AuthorizationState) {
	d.mu.Lock()
	d.state = state
	d.prompting = false
	l := d.listener
	d.mu.Unlock()

	if l != nil {
		l.AuthorizationChanged(state)
	}
}

func (d *Device) RequestFix() {
	d.mu.Lock()
	authorized := d.state.Authorized()
	d.mu.Unlock()

	d.async(func() {
		if !authorized {
			d.fail(errNotAuthorized)
			return
		}
		if d.opts.Locator == nil {
			d.fail(errors.New("no locator configured"))
			return
		}

		ctx := context.Background()
		if d.opts.FixTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d.opts.FixTimeout)
			defer cancel()
		}

		c, err := d.opts.Locator.Locate(ctx)
		if err != nil {
			d.fail(err)
			return
		}

		d.mu.Lock()
		l := d.listener
		d.mu.Unlock()
		if l != nil {
			l.FixReceived([]Coordinate{c})
		}
	})
}

func (d *Device) fail(err error) {
	d.logger.Warn("location fix failed", zap.Error(err))
	d.mu.Lock()
	l := d.listener
	d.mu.Unlock()
	if l != nil {
		l.FixFailed(err)
	}
}

func (d *Device) async(fn func()) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		fn()
	}()
}

// Wait blocks until every callback goroutine has returned.
func (d *Device) Wait() {
	d.wg.Wait()
}
