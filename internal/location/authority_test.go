package location

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/i474232898/local-forecast/internal/common"
)

type fakePlatform struct {
	mu           sync.Mutex
	state        AuthorizationState
	listener     Listener
	authRequests int
	fixRequests  int
}

func (p *fakePlatform) Attach(l Listener) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listener = l
}

func (p *fakePlatform) AuthorizationState() AuthorizationState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *fakePlatform) RequestAuthorization() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.authRequests++
}

func (p *fakePlatform) RequestFix() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fixRequests++
}

func (p *fakePlatform) counts() (auth, fix int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.authRequests, p.fixRequests
}

type outcome struct {
	c   Coordinate
	err error
}

func resolveAsync(ctx context.Context, a *Authority) <-chan outcome {
	ch := make(chan outcome, 1)
	go func() {
		c, err := a.ResolveLocation(ctx)
		ch <- outcome{c, err}
	}()
	return ch
}

func waitFor(t *testing.T, ch <-chan outcome) outcome {
	t.Helper()
	select {
	case o := <-ch:
		return o
	case <-time.After(2 * time.Second):
		t.Fatal("ResolveLocation did not return")
		return outcome{}
	}
}

func waitForFixRequests(t *testing.T, p *fakePlatform, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		_, fix := p.counts()
		return fix >= n
	}, time.Second, time.Millisecond)
}

var istanbul = Coordinate{Latitude: 41.0082, Longitude: 28.9784}

func TestResolveWhenAuthorized(t *testing.T) {
	p := &fakePlatform{state: AuthorizedFull}
	a := NewAuthority(p, zaptest.NewLogger(t))

	ch := resolveAsync(context.Background(), a)
	waitForFixRequests(t, p, 1)

	a.FixReceived([]Coordinate{istanbul, {Latitude: 1, Longitude: 1}})

	o := waitFor(t, ch)
	require.NoError(t, o.err)
	assert.Equal(t, istanbul, o.c)

	auth, fix := p.counts()
	assert.Zero(t, auth)
	assert.Equal(t, 1, fix)
}

func TestResolveRequestsAuthorizationFirst(t *testing.T) {
	p := &fakePlatform{state: NotDetermined}
	a := NewAuthority(p, zaptest.NewLogger(t))

	ch := resolveAsync(context.Background(), a)
	require.Eventually(t, func() bool {
		auth, _ := p.counts()
		return auth == 1
	}, time.Second, time.Millisecond)

	_, fix := p.counts()
	assert.Zero(t, fix, "no fix before permission")

	a.AuthorizationChanged(AuthorizedLimited)
	waitForFixRequests(t, p, 1)

	// A repeated grant must not issue a second fix request.
	a.AuthorizationChanged(AuthorizedFull)
	_, fix = p.counts()
	assert.Equal(t, 1, fix)

	a.FixReceived([]Coordinate{istanbul})
	o := waitFor(t, ch)
	require.NoError(t, o.err)
	assert.Equal(t, istanbul, o.c)
	assert.Equal(t, AuthorizedFull, a.State())
}

func TestDenialWhilePending(t *testing.T) {
	for _, refused := range []AuthorizationState{Denied, Restricted} {
		t.Run(refused.String(), func(t *testing.T) {
			p := &fakePlatform{state: NotDetermined}
			a := NewAuthority(p, zaptest.NewLogger(t))

			ch := resolveAsync(context.Background(), a)
			require.Eventually(t, func() bool {
				auth, _ := p.counts()
				return auth == 1
			}, time.Second, time.Millisecond)

			a.AuthorizationChanged(refused)
			// A late fix for the same request is discarded.
			a.FixReceived([]Coordinate{istanbul})

			o := waitFor(t, ch)
			assert.ErrorIs(t, o.err, common.ErrAuthorizationDenied)
			assert.Equal(t, Coordinate{}, o.c)
		})
	}
}

func TestDenialAfterFixRequested(t *testing.T) {
	p := &fakePlatform{state: AuthorizedFull}
	a := NewAuthority(p, zaptest.NewLogger(t))

	ch := resolveAsync(context.Background(), a)
	waitForFixRequests(t, p, 1)

	a.AuthorizationChanged(Denied)
	a.FixReceived([]Coordinate{istanbul})

	o := waitFor(t, ch)
	assert.ErrorIs(t, o.err, common.ErrAuthorizationDenied)
}

func TestAlreadyDeniedFailsImmediately(t *testing.T) {
	p := &fakePlatform{state: Denied}
	a := NewAuthority(p, zaptest.NewLogger(t))

	_, err := a.ResolveLocation(context.Background())
	assert.ErrorIs(t, err, common.ErrAuthorizationDenied)

	auth, fix := p.counts()
	assert.Zero(t, auth)
	assert.Zero(t, fix)
}

func TestPlatformFailure(t *testing.T) {
	p := &fakePlatform{state: AuthorizedFull}
	a := NewAuthority(p, zaptest.NewLogger(t))

	ch := resolveAsync(context.Background(), a)
	waitForFixRequests(t, p, 1)

	cause := errors.New("no satellites")
	a.FixFailed(cause)

	o := waitFor(t, ch)
	assert.ErrorIs(t, o.err, common.ErrLocationUnavailable)
	assert.ErrorIs(t, o.err, cause)
}

func TestEmptyFixListIsUnavailable(t *testing.T) {
	p := &fakePlatform{state: AuthorizedFull}
	a := NewAuthority(p, zaptest.NewLogger(t))

	ch := resolveAsync(context.Background(), a)
	waitForFixRequests(t, p, 1)

	a.FixReceived(nil)

	o := waitFor(t, ch)
	assert.ErrorIs(t, o.err, common.ErrLocationUnavailable)
}

func TestFixWithoutRequestIsIgnored(t *testing.T) {
	p := &fakePlatform{state: AuthorizedFull}
	a := NewAuthority(p, zaptest.NewLogger(t))

	a.FixReceived([]Coordinate{{Latitude: 9, Longitude: 9}})
	a.FixFailed(errors.New("stray"))

	ch := resolveAsync(context.Background(), a)
	waitForFixRequests(t, p, 1)
	a.FixReceived([]Coordinate{istanbul})

	o := waitFor(t, ch)
	require.NoError(t, o.err)
	assert.Equal(t, istanbul, o.c)
}

func TestConcurrentCallersShareOneRequest(t *testing.T) {
	p := &fakePlatform{state: AuthorizedFull}
	a := NewAuthority(p, zaptest.NewLogger(t))

	first := resolveAsync(context.Background(), a)
	waitForFixRequests(t, p, 1)
	second := resolveAsync(context.Background(), a)
	third := resolveAsync(context.Background(), a)

	// Give the joiners a moment to attach before settling.
	time.Sleep(50 * time.Millisecond)
	a.FixReceived([]Coordinate{istanbul})

	for _, ch := range []<-chan outcome{first, second, third} {
		o := waitFor(t, ch)
		require.NoError(t, o.err)
		assert.Equal(t, istanbul, o.c)
	}

	_, fix := p.counts()
	assert.Equal(t, 1, fix)
}

func TestFixAndDenialRaceResolvesOnce(t *testing.T) {
	for i := 0; i < 200; i++ {
		p := &fakePlatform{state: AuthorizedFull}
		a := NewAuthority(p, zaptest.NewLogger(t))

		ch := resolveAsync(context.Background(), a)
		waitForFixRequests(t, p, 1)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() { defer wg.Done(); a.FixReceived([]Coordinate{istanbul}) }()
		go func() { defer wg.Done(); a.AuthorizationChanged(Denied) }()
		wg.Wait()

		o := waitFor(t, ch)
		if o.err != nil {
			require.ErrorIs(t, o.err, common.ErrAuthorizationDenied)
		} else {
			require.Equal(t, istanbul, o.c)
		}

		select {
		case extra := <-ch:
			t.Fatalf("second outcome delivered: %+v", extra)
		default:
		}
	}
}

func TestCallerCancellationKeepsRequestPending(t *testing.T) {
	p := &fakePlatform{state: AuthorizedFull}
	a := NewAuthority(p, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	ch := resolveAsync(ctx, a)
	waitForFixRequests(t, p, 1)
	cancel()

	o := waitFor(t, ch)
	assert.ErrorIs(t, o.err, common.ErrLocationUnavailable)
	assert.ErrorIs(t, o.err, context.Canceled)

	// The next caller joins the request that is still outstanding.
	next := resolveAsync(context.Background(), a)
	time.Sleep(50 * time.Millisecond)
	a.FixReceived([]Coordinate{istanbul})

	o = waitFor(t, next)
	require.NoError(t, o.err)
	assert.Equal(t, istanbul, o.c)

	_, fix := p.counts()
	assert.Equal(t, 1, fix)
}

func TestRegressionToNotDeterminedAsksAgain(t *testing.T) {
	p := &fakePlatform{state: NotDetermined}
	a := NewAuthority(p, zaptest.NewLogger(t))

	ch := resolveAsync(context.Background(), a)
	require.Eventually(t, func() bool {
		auth, _ := p.counts()
		return auth == 1
	}, time.Second, time.Millisecond)

	a.AuthorizationChanged(AuthorizedFull)
	waitForFixRequests(t, p, 1)
	a.AuthorizationChanged(NotDetermined)

	auth, _ := p.counts()
	assert.Equal(t, 2, auth)

	a.AuthorizationChanged(AuthorizedFull)
	waitForFixRequests(t, p, 2)
	a.FixReceived([]Coordinate{istanbul})

	o := waitFor(t, ch)
	require.NoError(t, o.err)
}
