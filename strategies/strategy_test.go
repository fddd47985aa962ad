package strategies

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hubdemarcel/ClimateTrade-sub002/market"
)

var (
	testTime = time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	testKey  = market.Key{MarketID: "kx-highs-lhr-30c", Outcome: market.Yes}
)

// obsWith builds a single aligned observation for strategy tests.
func obsWith(tm time.Time, temp float64, prob float64) market.AlignedObservation {
	return market.AlignedObservation{
		Time: tm,
		Weather: map[string]market.WeatherState{
			"lhr": {"temperature_c": temp},
		},
		Markets: map[market.Key]market.Quote{
			testKey: {Probability: prob, Volume: 1000},
		},
	}
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	t.Run("builtins are registered", func(t *testing.T) {
		names := Names()
		for _, want := range []string{"composite", "momentum", "noop", "threshold"} {
			assert.Contains(t, names, want)
		}
	})

	t.Run("unknown name errors", func(t *testing.T) {
		_, err := New("no-such-strategy", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown strategy")
		assert.Contains(t, err.Error(), "noop")
	})

	t.Run("lookup is case insensitive", func(t *testing.T) {
		s, err := New("  NoOp ", nil)
		require.NoError(t, err)
		assert.Equal(t, "noop", s.Name())
	})

	t.Run("factory errors surface", func(t *testing.T) {
		_, err := New("threshold", Params{})
		require.Error(t, err)
	})
}

func TestNoopEmitsNothing(t *testing.T) {
	t.Parallel()

	s, err := New("noop", nil)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		obs := obsWith(testTime.Add(time.Duration(i)*time.Hour), 20+float64(i), 0.5)
		assert.Empty(t, s.GenerateSignals(obs, nil))
	}
}
