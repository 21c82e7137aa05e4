package validator

import (
	"context"
	"time"

	"github.com/attestantio/go-eth2-client/spec/altair"
	"github.com/attestantio/go-eth2-client/spec/phase0"
	"go.uber.org/zap"

	"github.com/casparschwa/beaconrunner/logging/fields"
	"github.com/casparschwa/beaconrunner/networkconfig"
)

// core implements the guarded decision chain shared by the honest behaviors.
// blockWaitIntervals is how long attest and sync decisions hold out for a
// block before acting without one, in units of the network interval.
type core struct {
	name      string
	logger    *zap.Logger
	network   networkconfig.Beacon
	producers Producers

	blockWaitIntervals uint64
}

func (c *core) Name() string {
	return c.name
}

func (c *core) blockWait() time.Duration {
	return time.Duration(c.blockWaitIntervals) * c.network.IntervalDuration() // #nosec G115
}

func (c *core) Attest(ctx context.Context, at time.Time, state *DutyState, known *KnownItems) (*phase0.Attestation, bool, error) {
	if !state.HasAttesterDuty || state.AttesterSlot != state.Slot {
		return nil, false, nil
	}
	// Wait for a block unless the deadline within the slot has passed.
	if !state.ReceivedBlock && c.network.TimeInSlot(at) < c.blockWait() {
		return nil, false, nil
	}
	if state.LastAttested.At(state.Slot) {
		return nil, false, nil
	}

	attestation, err := c.producers.Attestation(ctx, state, known)
	if err != nil {
		return nil, false, &ProducerError{Kind: DutyAttester, Err: err}
	}
	state.LastAttested = MarkAt(state.Slot)

	c.logger.Debug("decided to attest",
		fields.ValidatorIndex(state.ValidatorIndex),
		fields.Slot(state.Slot),
		fields.TimeInSlot(c.network.TimeInSlot(at)))
	return attestation, true, nil
}

func (c *core) SyncCommitteeMessages(ctx context.Context, at time.Time, state *DutyState, known *KnownItems) ([]*SyncCommitteeBundle, bool, error) {
	if len(state.SyncCommitteePositions) == 0 {
		return nil, false, nil
	}
	if !state.ReceivedBlock && c.network.TimeInSlot(at) < c.blockWait() {
		return nil, false, nil
	}
	if state.LastSyncCommittee.At(state.Slot) {
		return nil, false, nil
	}

	bundles, err := c.producers.SyncCommitteeBundles(ctx, state, known)
	if err != nil {
		return nil, false, &ProducerError{Kind: DutySyncCommittee, Err: err}
	}
	state.LastSyncCommittee = MarkAt(state.Slot)

	c.logger.Debug("decided to emit sync committee messages",
		fields.ValidatorIndex(state.ValidatorIndex),
		fields.Slot(state.Slot),
		fields.Count(len(bundles)))
	return bundles, true, nil
}

func (c *core) Propose(ctx context.Context, at time.Time, state *DutyState, known *KnownItems) (*altair.SignedBeaconBlock, bool, error) {
	slotsPerEpoch := c.network.SlotsPerEpoch()
	if err := state.Validate(slotsPerEpoch); err != nil {
		return nil, false, err
	}
	if !state.ProposerDuties[uint64(state.Slot)%slotsPerEpoch] {
		return nil, false, nil
	}
	// Proposers act as soon as their slot begins, there is nothing to wait for.
	if state.LastProposed.At(state.Slot) {
		return nil, false, nil
	}

	block, err := c.producers.Block(ctx, state, known)
	if err != nil {
		return nil, false, &ProducerError{Kind: DutyProposer, Err: err}
	}
	state.LastProposed = MarkAt(state.Slot)

	c.logger.Debug("decided to propose",
		fields.ValidatorIndex(state.ValidatorIndex),
		fields.Slot(state.Slot),
		fields.TimeInSlot(c.network.TimeInSlot(at)))
	return block, true, nil
}

// ASAP acts at the earliest useful moment: as soon as a block for the slot
// arrives, or unconditionally once a third of the slot has passed.
type ASAP struct {
	core
}

func NewASAP(logger *zap.Logger, network networkconfig.Beacon, producers Producers) *ASAP {
	return &ASAP{core{
		name:               "asap",
		logger:             logger,
		network:            network,
		producers:          producers,
		blockWaitIntervals: 1,
	}}
}
