package sim

import (
	"errors"
	"fmt"
	"math"
)

// DefaultMaxOff is the fixed ceiling on a single sleep period used when the configured
// refresh timeout is not honored.
const DefaultMaxOff = 50e-3

// Options holds the run parameters in user-facing units, as accepted on the command line.
type Options struct {
	PacketBytes   int     `yaml:"packet_size"`   // bytes
	Watermark     int     `yaml:"watermark"`     // packets
	UplinkMbps    float64 `yaml:"uplink"`        // nominal capacity, Mb/s
	AvgUplinkMbps float64 `yaml:"avg_uplink"`    // average allocated rate, Mb/s
	CycleMs       float64 `yaml:"cycle"`         // DBA cycle, ms
	WakeupMs      float64 `yaml:"wakeup"`        // wake-up transition, ms
	RefreshMs     float64 `yaml:"refresh"`       // mandatory refresh timeout, ms
	HorizonS      float64 `yaml:"horizon"`       // simulation length, s
	Seed          int64   `yaml:"seed"`          // RNG seed
	HonorRefresh  bool    `yaml:"honor_refresh"` // use RefreshMs instead of DefaultMaxOff
	Deviates      string  `yaml:"rng,omitempty"` // deviate source name, see NewDeviateSource
}

// DefaultOptions returns the reference parameter set.
func DefaultOptions() Options {
	return Options{
		PacketBytes:   1500,
		Watermark:     10,
		UplinkMbps:    10000,
		AvgUplinkMbps: 50,
		CycleMs:       2,
		WakeupMs:      1,
		RefreshMs:     50,
		HorizonS:      100,
		Seed:          1,
		Deviates:      DeviatesMathRand,
	}
}

// Params is the immutable parameter set of one run, in internal units.
type Params struct {
	PacketBits          int64   // packet size (bits)
	CapacityBps         float64 // nominal uplink capacity (bits/s)
	AllocatedBps        float64 // average allocated uplink rate (bits/s)
	WatermarkBits       int64   // queue wake-watermark (bits)
	CycleLen            float64 // allocation cycle (s)
	WakeupLen           float64 // wake-up transition (s)
	RefreshTimeout      float64 // mandatory refresh timeout (s)
	Horizon             float64 // simulation horizon (s)
	Seed                int64
	HonorRefreshTimeout bool
}

// NewParams converts user-facing options to internal units.
// It does not validate; call Validate on the result.
func NewParams(o Options) Params {
	return Params{
		PacketBits:          8 * int64(o.PacketBytes),
		CapacityBps:         o.UplinkMbps * 1e6,
		AllocatedBps:        o.AvgUplinkMbps * 1e6,
		WatermarkBits:       8 * int64(o.PacketBytes) * int64(o.Watermark),
		CycleLen:            o.CycleMs / 1e3,
		WakeupLen:           o.WakeupMs / 1e3,
		RefreshTimeout:      o.RefreshMs / 1e3,
		Horizon:             o.HorizonS,
		Seed:                o.Seed,
		HonorRefreshTimeout: o.HonorRefresh,
	}
}

// Validate rejects parameter sets the model cannot run with.
func (p Params) Validate() error {
	var errs []error
	positive := func(name string, v float64) {
		if !(v > 0) {
			errs = append(errs, fmt.Errorf("%s must be > 0, got %v", name, v))
		}
	}
	positive("packet size", float64(p.PacketBits))
	positive("uplink capacity", p.CapacityBps)
	positive("average uplink", p.AllocatedBps)
	positive("watermark", float64(p.WatermarkBits))
	positive("DBA cycle", p.CycleLen)
	positive("wake-up time", p.WakeupLen)
	positive("refresh timeout", p.RefreshTimeout)
	positive("simulation length", p.Horizon)
	if p.AllocatedBps > p.CapacityBps {
		errs = append(errs, fmt.Errorf("average uplink (%v b/s) exceeds uplink capacity (%v b/s)", p.AllocatedBps, p.CapacityBps))
	}
	if p.WakeupLen >= p.CycleLen {
		errs = append(errs, fmt.Errorf("wake-up time (%vs) must be shorter than the DBA cycle (%vs)", p.WakeupLen, p.CycleLen))
	}
	return errors.Join(errs...)
}

// CycleBudgetBits is the number of bits the endpoint may send in one allocation cycle.
func (p Params) CycleBudgetBits() int64 {
	return int64(math.Round(p.AllocatedBps * p.CycleLen))
}

// MaxOff is the sleep ceiling armed on entry to the sleeping phase.
func (p Params) MaxOff() float64 {
	if p.HonorRefreshTimeout {
		return p.RefreshTimeout
	}
	return DefaultMaxOff
}
