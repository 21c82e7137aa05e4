package networkconfig

import (
	"fmt"
	"math"
	"time"

	"github.com/attestantio/go-eth2-client/spec/phase0"
	"github.com/sanity-io/litter"
)

type Beacon interface {
	NetworkName() string
	SlotStartTime(slot phase0.Slot) time.Time
	SlotEndTime(slot phase0.Slot) time.Time
	EstimatedCurrentSlot() phase0.Slot
	EstimatedSlotAtTime(time time.Time) phase0.Slot
	EstimatedCurrentEpoch() phase0.Epoch
	EstimatedEpochAtSlot(slot phase0.Slot) phase0.Epoch
	IsFirstSlotOfEpoch(slot phase0.Slot) bool
	EpochFirstSlot(epoch phase0.Epoch) phase0.Slot
	EpochsPerSyncCommitteePeriod() uint64
	EstimatedSyncCommitteePeriodAtEpoch(epoch phase0.Epoch) uint64
	FirstEpochOfSyncPeriod(period uint64) phase0.Epoch
	EpochStartTime(epoch phase0.Epoch) time.Time
	TimeInSlot(at time.Time) time.Duration
	IntervalDuration() time.Duration
	EpochDuration() time.Duration
	SlotDuration() time.Duration
	SlotsPerEpoch() uint64
	IntervalsPerSlot() uint64
	GenesisTime() time.Time
	SyncCommitteeSize() uint64
	SyncCommitteeSubnetCount() uint64
}

type BeaconConfig struct {
	networkName                  string
	slotDuration                 time.Duration
	slotsPerEpoch                uint64
	epochsPerSyncCommitteePeriod uint64
	syncCommitteeSize            uint64
	syncCommitteeSubnetCount     uint64
	intervalsPerSlot             uint64
	genesisTime                  time.Time
}

func NewBeaconConfig(
	networkName string,
	slotDuration time.Duration,
	slotsPerEpoch uint64,
	epochsPerSyncCommitteePeriod uint64,
	syncCommitteeSize uint64,
	syncCommitteeSubnetCount uint64,
	intervalsPerSlot uint64,
	genesisTime time.Time,
) *BeaconConfig {
	return &BeaconConfig{
		networkName:                  networkName,
		slotDuration:                 slotDuration,
		slotsPerEpoch:                slotsPerEpoch,
		epochsPerSyncCommitteePeriod: epochsPerSyncCommitteePeriod,
		syncCommitteeSize:            syncCommitteeSize,
		syncCommitteeSubnetCount:     syncCommitteeSubnetCount,
		intervalsPerSlot:             intervalsPerSlot,
		genesisTime:                  genesisTime,
	}
}

// String implements Stringer interface.
func (b *BeaconConfig) String() string {
	return litter.Options{HidePrivateFields: false}.Sdump(b)
}

// WithGenesisTime returns a copy of the config anchored at the given genesis time.
func (b *BeaconConfig) WithGenesisTime(genesisTime time.Time) *BeaconConfig {
	c := *b
	c.genesisTime = genesisTime
	return &c
}

// SlotStartTime returns the start time for the given slot
func (b *BeaconConfig) SlotStartTime(slot phase0.Slot) time.Time {
	if slot > math.MaxInt64 {
		panic(fmt.Sprintf("slot %d out of range", slot))
	}
	durationSinceGenesisStart := time.Duration(slot) * b.slotDuration // #nosec G115: slot cannot exceed math.MaxInt64
	start := b.genesisTime.Add(durationSinceGenesisStart)
	return start
}

// SlotEndTime returns the end time for the given slot
func (b *BeaconConfig) SlotEndTime(slot phase0.Slot) time.Time {
	return b.SlotStartTime(slot + 1)
}

// EstimatedCurrentSlot returns the estimation of the current slot
func (b *BeaconConfig) EstimatedCurrentSlot() phase0.Slot {
	return b.EstimatedSlotAtTime(time.Now())
}

// EstimatedSlotAtTime estimates slot at the given time
func (b *BeaconConfig) EstimatedSlotAtTime(time time.Time) phase0.Slot {
	if time.Before(b.genesisTime) {
		panic(fmt.Sprintf("time %v is before genesis time %v", time, b.genesisTime))
	}
	timeAfterGenesis := time.Sub(b.genesisTime)
	return phase0.Slot(timeAfterGenesis / b.slotDuration) // #nosec G115: genesis can't be negative
}

// TimeInSlot returns how far into its slot the given time is.
func (b *BeaconConfig) TimeInSlot(at time.Time) time.Duration {
	if at.Before(b.genesisTime) {
		panic(fmt.Sprintf("time %v is before genesis time %v", at, b.genesisTime))
	}
	return at.Sub(b.genesisTime) % b.slotDuration
}

// EstimatedCurrentEpoch estimates the current epoch
// https://github.com/ethereum/eth2.0-specs/blob/dev/specs/phase0/beacon-chain.md#compute_start_slot_at_epoch
func (b *BeaconConfig) EstimatedCurrentEpoch() phase0.Epoch {
	return b.EstimatedEpochAtSlot(b.EstimatedCurrentSlot())
}

// EstimatedEpochAtSlot estimates epoch at the given slot
func (b *BeaconConfig) EstimatedEpochAtSlot(slot phase0.Slot) phase0.Epoch {
	return phase0.Epoch(uint64(slot) / b.slotsPerEpoch)
}

// IsFirstSlotOfEpoch estimates epoch at the given slot
func (b *BeaconConfig) IsFirstSlotOfEpoch(slot phase0.Slot) bool {
	return uint64(slot)%b.slotsPerEpoch == 0
}

// EpochFirstSlot returns the beacon node first slot in epoch
func (b *BeaconConfig) EpochFirstSlot(epoch phase0.Epoch) phase0.Slot {
	return phase0.Slot(uint64(epoch) * b.slotsPerEpoch)
}

// EpochsPerSyncCommitteePeriod returns the number of epochs per sync committee period.
func (b *BeaconConfig) EpochsPerSyncCommitteePeriod() uint64 {
	return b.epochsPerSyncCommitteePeriod
}

// EstimatedSyncCommitteePeriodAtEpoch estimates the current sync committee period at the given Epoch
func (b *BeaconConfig) EstimatedSyncCommitteePeriodAtEpoch(epoch phase0.Epoch) uint64 {
	return uint64(epoch) / b.EpochsPerSyncCommitteePeriod()
}

// FirstEpochOfSyncPeriod calculates the first epoch of the given sync period.
func (b *BeaconConfig) FirstEpochOfSyncPeriod(period uint64) phase0.Epoch {
	return phase0.Epoch(period * b.EpochsPerSyncCommitteePeriod())
}

func (b *BeaconConfig) EpochStartTime(epoch phase0.Epoch) time.Time {
	return b.SlotStartTime(b.EpochFirstSlot(epoch))
}

// IntervalDuration is the attestation deadline within a slot. A validator
// that has not seen a block by this offset attests anyway.
func (b *BeaconConfig) IntervalDuration() time.Duration {
	if b.intervalsPerSlot > math.MaxInt64 {
		panic("intervals per slot out of range")
	}
	return b.slotDuration / time.Duration(b.intervalsPerSlot) // #nosec G115: intervals per slot cannot exceed math.MaxInt64
}

func (b *BeaconConfig) EpochDuration() time.Duration {
	if b.slotsPerEpoch > math.MaxInt64 {
		panic("slots per epoch out of range")
	}
	return b.slotDuration * time.Duration(b.slotsPerEpoch) // #nosec G115: slot cannot exceed math.MaxInt64
}

func (b *BeaconConfig) SlotDuration() time.Duration {
	return b.slotDuration
}

func (b *BeaconConfig) SlotsPerEpoch() uint64 {
	return b.slotsPerEpoch
}

func (b *BeaconConfig) IntervalsPerSlot() uint64 {
	return b.intervalsPerSlot
}

func (b *BeaconConfig) GenesisTime() time.Time {
	return b.genesisTime
}

func (b *BeaconConfig) SyncCommitteeSize() uint64 {
	return b.syncCommitteeSize
}

func (b *BeaconConfig) SyncCommitteeSubnetCount() uint64 {
	return b.syncCommitteeSubnetCount
}

func (b *BeaconConfig) NetworkName() string {
	return b.networkName
}

func (b *BeaconConfig) AssertSame(other *BeaconConfig) error {
	if b.networkName != other.networkName {
		return fmt.Errorf("different NetworkName")
	}
	if b.slotDuration != other.slotDuration {
		return fmt.Errorf("different SlotDuration")
	}
	if b.slotsPerEpoch != other.slotsPerEpoch {
		return fmt.Errorf("different SlotsPerEpoch")
	}
	if b.epochsPerSyncCommitteePeriod != other.epochsPerSyncCommitteePeriod {
		return fmt.Errorf("different EpochsPerSyncCommitteePeriod")
	}
	if b.syncCommitteeSize != other.syncCommitteeSize {
		return fmt.Errorf("different SyncCommitteeSize")
	}
	if b.syncCommitteeSubnetCount != other.syncCommitteeSubnetCount {
		return fmt.Errorf("different SyncCommitteeSubnetCount")
	}
	if b.intervalsPerSlot != other.intervalsPerSlot {
		return fmt.Errorf("different IntervalsPerSlot")
	}
	if b.genesisTime != other.genesisTime {
		return fmt.Errorf("different GenesisTime")
	}
	return nil
}
