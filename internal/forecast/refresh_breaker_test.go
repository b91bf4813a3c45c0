package forecast

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/i474232898/local-forecast/internal/weather"
	"github.com/i474232898/local-forecast/internal/weather/providers"
)

// TestRapidRefreshesStillPublish supersedes several runs stuck on a slow
// server; the cancelled requests must not open the provider's circuit.
func TestRapidRefreshesStillPublish(t *testing.T) {
	const stalled = 7
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) <= stalled {
			<-r.Context().Done()
			return
		}
		_, _ = fmt.Fprint(w, `{"city":{"name":"Eskisehir","country":"TR"},"list":[`+
			`{"dt":1715342400,"main":{"temp":293.15},"weather":[{"id":800,"icon":"01d"}]}]}`)
	}))
	defer srv.Close()

	logger := zaptest.NewLogger(t)
	provider := providers.NewOpenWeatherProvider(&http.Client{Timeout: 5 * time.Second}, providers.OpenWeatherOptions{
		BaseURL: srv.URL,
		Zone:    weather.FixedZone(time.UTC),
		Logger:  logger,
	})
	o := New(fixedLocation(istanbul), provider, Options{Credential: "k", Logger: logger})
	defer o.Close()
	states := collect(o)

	for i := 1; i <= stalled+1; i++ {
		_, ok := o.Refresh()
		require.True(t, ok)
		want := int32(i)
		require.Eventually(t, func() bool { return hits.Load() >= want }, 2*time.Second, time.Millisecond)
	}

	s := next(t, states)
	assertSuccess(t, s)
	assert.Equal(t, "Eskisehir", s.LocationName)
	assert.Equal(t, "20"+weather.GlyphCelsius, s.TemperatureDisplay)
	assertNothingPublished(t, states)
	assert.Equal(t, int32(stalled+1), hits.Load())
}
