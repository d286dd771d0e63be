package expense

import (
	"context"
	"fmt"
	"math"
	"sync"
)

// StaticRateConverter converts amounts using an in-memory rate table keyed by
// "FROM/TO" pairs. Rates can be replaced at runtime by whatever feeds them
// (seed data, an ops endpoint, a scheduled pull).
type StaticRateConverter struct {
	mu    sync.RWMutex
	rates map[string]float64
}

func NewStaticRateConverter(rates map[string]float64) *StaticRateConverter {
	if rates == nil {
		rates = make(map[string]float64)
	}
	return &StaticRateConverter{rates: rates}
}

func (c *StaticRateConverter) SetRate(fromCcy, toCcy string, rate float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rates[pairKey(fromCcy, toCcy)] = rate
}

// Convert returns the amount in the target currency, rounded half away from
// zero to whole minor units, together with the rate used.
func (c *StaticRateConverter) Convert(ctx context.Context, amount int64, fromCcy, toCcy string) (int64, float64, error) {
	if fromCcy == toCcy {
		return amount, 1.0, nil
	}

	c.mu.RLock()
	rate, ok := c.rates[pairKey(fromCcy, toCcy)]
	c.mu.RUnlock()

	if !ok {
		// try the inverse pair before giving up
		c.mu.RLock()
		inverse, invOK := c.rates[pairKey(toCcy, fromCcy)]
		c.mu.RUnlock()
		if !invOK || inverse == 0 {
			return 0, 0, fmt.Errorf("no exchange rate for %s/%s", fromCcy, toCcy)
		}
		rate = 1 / inverse
	}

	converted := int64(math.Round(float64(amount) * rate))
	return converted, rate, nil
}

func pairKey(fromCcy, toCcy string) string {
	return fromCcy + "/" + toCcy
}
