// Package chain holds the chain identifiers, chain families and fork
// schedules the proof service operates on. Periods, epochs and slots are
// derived from the constants carried by each Spec.
package chain

import "github.com/pkg/errors"

// ID identifies a chain the service can produce proofs for.
type ID uint64

const (
	Mainnet ID = 1
	Sepolia ID = 11155111
	Holesky ID = 17000

	// OP-style rollups served through the shared framework.
	Optimism ID = 10
	Base     ID = 8453
)

// Family groups chains by the proof recipes they share.
type Family int

const (
	FamilyUnknown Family = iota
	FamilyEthereum
	FamilyOptimism
)

// Fork enumerates the beacon chain hard forks relevant to light client data.
type Fork int

const (
	ForkPhase0 Fork = iota
	ForkAltair
	ForkBellatrix
	ForkCapella
	ForkDeneb
	ForkElectra
)

// ErrUnsupportedChain is returned when no registered family covers a chain id.
var ErrUnsupportedChain = errors.New("unsupported chain")

// Spec carries the per-chain constants needed for slot and period math.
type Spec struct {
	ChainID             ID
	SlotsPerEpochBits   uint
	EpochsPerPeriodBits uint
	// ForkEpochs maps each fork to its activation epoch.
	ForkEpochs map[Fork]uint64
	// GenesisValidatorsRoot feeds the signing domain of sync aggregates.
	GenesisValidatorsRoot [32]byte
}

var mainnetSpec = &Spec{
	ChainID:             Mainnet,
	SlotsPerEpochBits:   5,
	EpochsPerPeriodBits: 8,
	ForkEpochs: map[Fork]uint64{
		ForkPhase0:    0,
		ForkAltair:    74240,
		ForkBellatrix: 144896,
		ForkCapella:   194048,
		ForkDeneb:     269568,
		ForkElectra:   364032,
	},
}

var sepoliaSpec = &Spec{
	ChainID:             Sepolia,
	SlotsPerEpochBits:   5,
	EpochsPerPeriodBits: 8,
	ForkEpochs: map[Fork]uint64{
		ForkPhase0:    0,
		ForkAltair:    50,
		ForkBellatrix: 100,
		ForkCapella:   56832,
		ForkDeneb:     132608,
		ForkElectra:   222464,
	},
}

var holeskySpec = &Spec{
	ChainID:             Holesky,
	SlotsPerEpochBits:   5,
	EpochsPerPeriodBits: 8,
	ForkEpochs: map[Fork]uint64{
		ForkPhase0:    0,
		ForkAltair:    0,
		ForkBellatrix: 0,
		ForkCapella:   256,
		ForkDeneb:     29696,
		ForkElectra:   115968,
	},
}

var specs = map[ID]*Spec{
	Mainnet: mainnetSpec,
	Sepolia: sepoliaSpec,
	Holesky: holeskySpec,
	// Rollups anchor their proofs in the mainnet beacon chain.
	Optimism: mainnetSpec,
	Base:     mainnetSpec,
}

// FamilyOf reports which proof family serves the given chain.
func FamilyOf(id ID) Family {
	switch id {
	case Mainnet, Sepolia, Holesky:
		return FamilyEthereum
	case Optimism, Base:
		return FamilyOptimism
	}
	return FamilyUnknown
}

// SpecOf returns the chain spec, or ErrUnsupportedChain when no family or
// no spec is registered for the id.
func SpecOf(id ID) (*Spec, error) {
	if FamilyOf(id) == FamilyUnknown {
		return nil, errors.Wrapf(ErrUnsupportedChain, "chain %d", id)
	}
	s, ok := specs[id]
	if !ok {
		return nil, errors.Wrapf(ErrUnsupportedChain, "chain %d has no spec", id)
	}
	return s, nil
}

// SlotsPerEpoch returns 1<<SlotsPerEpochBits.
func (s *Spec) SlotsPerEpoch() uint64 { return 1 << s.SlotsPerEpochBits }

// SlotsPerPeriod returns the number of slots in a sync committee period.
func (s *Spec) SlotsPerPeriod() uint64 {
	return 1 << (s.SlotsPerEpochBits + s.EpochsPerPeriodBits)
}

// PeriodOf maps a slot to its sync committee period.
func (s *Spec) PeriodOf(slot uint64) uint64 {
	return slot >> (s.SlotsPerEpochBits + s.EpochsPerPeriodBits)
}

// EpochOf maps a slot to its epoch.
func (s *Spec) EpochOf(slot uint64) uint64 { return slot >> s.SlotsPerEpochBits }

// PeriodOfEpoch maps an epoch to its sync committee period.
func (s *Spec) PeriodOfEpoch(epoch uint64) uint64 { return epoch >> s.EpochsPerPeriodBits }

// ForkAt returns the active fork for a given epoch.
func (s *Spec) ForkAt(epoch uint64) Fork {
	fork := ForkPhase0
	for f := ForkPhase0; f <= ForkElectra; f++ {
		if at, ok := s.ForkEpochs[f]; ok && epoch >= at {
			fork = f
		}
	}
	return fork
}

// HistoricalOffsetPeriod returns the period of the bellatrix activation,
// the base offset into the beacon historical_summaries list.
func (s *Spec) HistoricalOffsetPeriod() uint64 {
	return s.ForkEpochs[ForkBellatrix] >> s.EpochsPerPeriodBits
}
