package sim

import (
	"fmt"
	"hash/fnv"
	"math/rand"

	"github.com/iti/rngstream"
)

// Deviates supplies independent uniform values on [0,1).
type Deviates interface {
	Float64() float64
}

// DeviateSource hands out one deviate stream per named subsystem.
type DeviateSource interface {
	ForSubsystem(name string) Deviates
}

// Deviate source names accepted by NewDeviateSource.
const (
	DeviatesMathRand = "mathrand"
	DeviatesMRG32k3a = "mrg32k3a"
)

// === SimulationKey ===

// SimulationKey uniquely identifies a reproducible simulation run.
// Two simulations with the same SimulationKey, parameters and arrival feed
// MUST produce byte-identical traces.
type SimulationKey int64

// NewSimulationKey creates a SimulationKey from a seed value.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

// === Subsystem Constants ===

const (
	// SubsystemTransmit draws the transmission offset inside each active cycle.
	// Uses master seed directly.
	SubsystemTransmit = "transmit"

	// SubsystemQuiesce draws the confirmation instant of the quiescing phase.
	SubsystemQuiesce = "quiesce"
)

// NewDeviateSource returns the named deviate source seeded from seed.
func NewDeviateSource(kind string, seed int64) (DeviateSource, error) {
	switch kind {
	case "", DeviatesMathRand:
		return NewPartitionedRNG(NewSimulationKey(seed)), nil
	case DeviatesMRG32k3a:
		return NewStreamRNG(NewSimulationKey(seed)), nil
	default:
		return nil, fmt.Errorf("unknown deviate source %q (want %s or %s)", kind, DeviatesMathRand, DeviatesMRG32k3a)
	}
}

// === PartitionedRNG ===

// PartitionedRNG provides deterministic, isolated math/rand instances per subsystem.
//
// Derivation formula:
//   - For SubsystemTransmit: uses masterSeed directly
//   - For all other subsystems: masterSeed XOR fnv1a64(subsystemName)
//
// Thread-safety: NOT thread-safe. Must be called from single goroutine.
type PartitionedRNG struct {
	key        SimulationKey
	subsystems map[string]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG from a SimulationKey.
func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{
		key:        key,
		subsystems: make(map[string]*rand.Rand),
	}
}

// ForSubsystem returns a deterministically-seeded RNG for the named subsystem.
// The same subsystem name always returns the same instance (cached).
// Never returns nil.
func (p *PartitionedRNG) ForSubsystem(name string) Deviates {
	if rng, ok := p.subsystems[name]; ok {
		return rng
	}

	rng := rand.New(rand.NewSource(subsystemSeed(p.key, name)))
	p.subsystems[name] = rng
	return rng
}

// Key returns the SimulationKey used to create this PartitionedRNG.
func (p *PartitionedRNG) Key() SimulationKey {
	return p.key
}

// === StreamRNG ===

// MRG32k3a moduli; the first three seed words must be below mrgM1, the last three below mrgM2.
const (
	mrgM1 = 4294967087
	mrgM2 = 4294944443
)

// StreamRNG hands out MRG32k3a streams, one per subsystem.
// Each stream is seeded from the key with the same per-subsystem derivation as
// PartitionedRNG, so sources never share state.
type StreamRNG struct {
	key     SimulationKey
	streams map[string]*StreamDeviates
}

// NewStreamRNG creates a StreamRNG.
func NewStreamRNG(key SimulationKey) *StreamRNG {
	return &StreamRNG{key: key, streams: make(map[string]*StreamDeviates)}
}

// ForSubsystem returns the stream for name, creating it on first use.
func (s *StreamRNG) ForSubsystem(name string) Deviates {
	if d, ok := s.streams[name]; ok {
		return d
	}
	stream := rngstream.New(fmt.Sprintf("%s-%d", name, int64(s.key)))
	if !stream.SetSeed(mrgSeed(subsystemSeed(s.key, name))) {
		panic(fmt.Sprintf("ForSubsystem: invalid MRG32k3a seed for %q", name))
	}
	d := &StreamDeviates{stream: stream}
	s.streams[name] = d
	return d
}

// StreamDeviates adapts an rngstream.RngStream to Deviates.
type StreamDeviates struct {
	stream *rngstream.RngStream
}

// Float64 returns the next uniform value on [0,1).
func (d *StreamDeviates) Float64() float64 {
	u := d.stream.RandU01()
	if u >= 1 {
		return 0
	}
	return u
}

// mrgSeed expands a 64-bit seed into the six MRG32k3a seed words with splitmix64.
// Every word is non-zero and below its modulus.
func mrgSeed(seed int64) []uint64 {
	state := uint64(seed)
	words := make([]uint64, 6)
	for i := range words {
		state += 0x9e3779b97f4a7c15
		z := state
		z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
		z = (z ^ (z >> 27)) * 0x94d049bb133111eb
		z ^= z >> 31
		mod := uint64(mrgM1)
		if i >= 3 {
			mod = mrgM2
		}
		words[i] = z%(mod-1) + 1
	}
	return words
}

// subsystemSeed derives the seed of one subsystem:
// SubsystemTransmit uses the key directly, all others XOR in fnv1a64(name).
func subsystemSeed(key SimulationKey, name string) int64 {
	seed := int64(key)
	if name != SubsystemTransmit {
		seed ^= fnv1a64(name)
	}
	return seed
}

// fnv1a64 computes a 64-bit FNV-1a hash of the input string.
func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
