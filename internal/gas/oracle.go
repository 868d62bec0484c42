package gas

import (
	"sort"
	"sync"
)

// PriceSource supplies the current gas price to the analyzer.
type PriceSource interface {
	GasPrice() uint64
}

// OracleConfig holds configuration for the gas price oracle.
type OracleConfig struct {
	// DefaultPrice is returned until any samples have been recorded.
	DefaultPrice uint64
	// SampleWindow is the maximum number of samples retained.
	SampleWindow int
	// Percentile (0-100) picks the suggested price from the sample set.
	Percentile int
}

// DefaultOracleConfig returns a sensible default configuration.
func DefaultOracleConfig() OracleConfig {
	return OracleConfig{
		DefaultPrice: 1_000_000_000, // 1 gwei
		SampleWindow: 128,
		Percentile:   60,
	}
}

// Oracle tracks observed gas prices and suggests a current price at a
// configured percentile. With no samples it falls back to the default.
type Oracle struct {
	mu      sync.RWMutex
	config  OracleConfig
	samples []uint64
}

// NewOracle creates a gas price oracle with the given configuration.
func NewOracle(config OracleConfig) *Oracle {
	if config.SampleWindow <= 0 {
		config.SampleWindow = 128
	}
	if config.Percentile < 0 || config.Percentile > 100 {
		config.Percentile = 60
	}
	if config.DefaultPrice == 0 {
		config.DefaultPrice = 1_000_000_000
	}
	return &Oracle{
		config:  config,
		samples: make([]uint64, 0, config.SampleWindow),
	}
}

// RecordPrice records an observed gas price sample.
func (o *Oracle) RecordPrice(price uint64) {
	if price == 0 {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	o.samples = append(o.samples, price)
	if len(o.samples) > o.config.SampleWindow {
		excess := len(o.samples) - o.config.SampleWindow
		o.samples = o.samples[excess:]
	}
}

// GasPrice returns the suggested current gas price.
func (o *Oracle) GasPrice() uint64 {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if len(o.samples) == 0 {
		return o.config.DefaultPrice
	}

	sorted := make([]uint64, len(o.samples))
	copy(sorted, o.samples)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	idx := len(sorted) * o.config.Percentile / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// SampleCount returns the number of retained samples.
func (o *Oracle) SampleCount() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.samples)
}
