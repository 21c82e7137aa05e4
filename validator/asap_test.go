package validator

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/attestantio/go-eth2-client/spec/altair"
	"github.com/attestantio/go-eth2-client/spec/phase0"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/casparschwa/beaconrunner/logging"
	"github.com/casparschwa/beaconrunner/networkconfig"
)

func newTestState(index phase0.ValidatorIndex, slot phase0.Slot) *DutyState {
	return &DutyState{
		ValidatorIndex: index,
		Slot:           slot,
		ProposerDuties: make([]bool, networkconfig.TestNetwork.SlotsPerEpoch()),
	}
}

func setupASAP(t *testing.T) (*ASAP, *MockProducers) {
	ctrl := gomock.NewController(t)
	producers := NewMockProducers(ctrl)
	behavior := NewASAP(logging.TestLogger(t), networkconfig.TestNetwork, producers)
	return behavior, producers
}

func TestAttestTimingGate(t *testing.T) {
	behavior, producers := setupASAP(t)
	ctx := context.Background()
	network := networkconfig.TestNetwork

	state := newTestState(1, 5)
	state.HasAttesterDuty = true
	state.AttesterSlot = 5

	// Three seconds into a twelve second slot, no block seen: hold off.
	at := network.SlotStartTime(5).Add(3 * time.Second)
	attestation, ok, err := behavior.Attest(ctx, at, state, &KnownItems{})
	require.NoError(t, err)
	require.False(t, ok)
	require.Nil(t, attestation)
	_, set := state.LastAttested.Slot()
	require.False(t, set)

	// One third of the slot passed: attest even without a block.
	producers.EXPECT().Attestation(gomock.Any(), state, gomock.Any()).
		Return(&phase0.Attestation{Data: &phase0.AttestationData{Slot: 5}}, nil)

	at = network.SlotStartTime(5).Add(4 * time.Second)
	attestation, ok, err = behavior.Attest(ctx, at, state, &KnownItems{})
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, attestation)
	require.True(t, state.LastAttested.At(5))

	// Same slot again: the slashing guard declines without producing.
	attestation, ok, err = behavior.Attest(ctx, at.Add(time.Second), state, &KnownItems{})
	require.NoError(t, err)
	require.False(t, ok)
	require.Nil(t, attestation)
}

func TestAttestBlockFastPath(t *testing.T) {
	behavior, producers := setupASAP(t)
	ctx := context.Background()
	network := networkconfig.TestNetwork

	state := newTestState(1, 5)
	state.HasAttesterDuty = true
	state.AttesterSlot = 5
	state.ReceivedBlock = true

	producers.EXPECT().Attestation(gomock.Any(), state, gomock.Any()).
		Return(&phase0.Attestation{Data: &phase0.AttestationData{Slot: 5}}, nil)

	// A received block unlocks attesting right at the slot start.
	attestation, ok, err := behavior.Attest(ctx, network.SlotStartTime(5), state, &KnownItems{})
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, attestation)
	require.True(t, state.LastAttested.At(5))
}

func TestAttestDutyGating(t *testing.T) {
	behavior, _ := setupASAP(t)
	ctx := context.Background()
	network := networkconfig.TestNetwork
	late := network.SlotStartTime(5).Add(11 * time.Second)

	// Assigned to a different slot.
	state := newTestState(1, 5)
	state.HasAttesterDuty = true
	state.AttesterSlot = 6
	state.ReceivedBlock = true

	_, ok, err := behavior.Attest(ctx, late, state, &KnownItems{})
	require.NoError(t, err)
	require.False(t, ok)

	// No attester duty at all.
	state = newTestState(1, 5)
	state.ReceivedBlock = true

	_, ok, err = behavior.Attest(ctx, late, state, &KnownItems{})
	require.NoError(t, err)
	require.False(t, ok)
}

func TestAttestSlotRollover(t *testing.T) {
	behavior, producers := setupASAP(t)
	ctx := context.Background()
	network := networkconfig.TestNetwork

	state := newTestState(1, 5)
	state.HasAttesterDuty = true
	state.AttesterSlot = 5
	state.ReceivedBlock = true

	producers.EXPECT().Attestation(gomock.Any(), state, gomock.Any()).
		Return(&phase0.Attestation{Data: &phase0.AttestationData{Slot: 5}}, nil).
		Times(2)

	_, ok, err := behavior.Attest(ctx, network.SlotStartTime(5), state, &KnownItems{})
	require.NoError(t, err)
	require.True(t, ok)

	// Advancing to the next assigned slot restores eligibility.
	state.Slot = 6
	state.AttesterSlot = 6

	_, ok, err = behavior.Attest(ctx, network.SlotStartTime(6), state, &KnownItems{})
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, state.LastAttested.At(6))
}

func TestProducerFailureLeavesStateClean(t *testing.T) {
	behavior, producers := setupASAP(t)
	ctx := context.Background()
	network := networkconfig.TestNetwork

	state := newTestState(1, 5)
	state.HasAttesterDuty = true
	state.AttesterSlot = 5
	state.ReceivedBlock = true

	producerErr := fmt.Errorf("no committee assignment")
	producers.EXPECT().Attestation(gomock.Any(), state, gomock.Any()).Return(nil, producerErr)

	at := network.SlotStartTime(5)
	attestation, ok, err := behavior.Attest(ctx, at, state, &KnownItems{})
	require.Error(t, err)
	require.False(t, ok)
	require.Nil(t, attestation)

	var prodErr *ProducerError
	require.ErrorAs(t, err, &prodErr)
	require.Equal(t, DutyAttester, prodErr.Kind)
	require.ErrorIs(t, err, producerErr)

	// The mark was not poisoned, so a retry within the slot still acts.
	_, set := state.LastAttested.Slot()
	require.False(t, set)

	producers.EXPECT().Attestation(gomock.Any(), state, gomock.Any()).
		Return(&phase0.Attestation{Data: &phase0.AttestationData{Slot: 5}}, nil)

	_, ok, err = behavior.Attest(ctx, at.Add(time.Second), state, &KnownItems{})
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, state.LastAttested.At(5))
}

func TestSyncCommitteeMessages(t *testing.T) {
	behavior, producers := setupASAP(t)
	ctx := context.Background()
	network := networkconfig.TestNetwork

	// Not a member: decline regardless of time.
	state := newTestState(1, 5)
	state.ReceivedBlock = true

	bundles, ok, err := behavior.SyncCommitteeMessages(ctx, network.SlotStartTime(5), state, &KnownItems{})
	require.NoError(t, err)
	require.False(t, ok)
	require.Nil(t, bundles)

	// A member subject to the same timing gate as attesting.
	state.SyncCommitteePositions = []phase0.CommitteeIndex{7, 133}
	state.ReceivedBlock = false

	bundles, ok, err = behavior.SyncCommitteeMessages(ctx, network.SlotStartTime(5).Add(3*time.Second), state, &KnownItems{})
	require.NoError(t, err)
	require.False(t, ok)
	require.Nil(t, bundles)

	expected := []*SyncCommitteeBundle{
		{CommitteeIndex: 7, SubcommitteeIndex: 0, Message: &altair.SyncCommitteeMessage{Slot: 5}},
		{CommitteeIndex: 133, SubcommitteeIndex: 1, Message: &altair.SyncCommitteeMessage{Slot: 5}},
	}
	producers.EXPECT().SyncCommitteeBundles(gomock.Any(), state, gomock.Any()).Return(expected, nil)

	bundles, ok, err = behavior.SyncCommitteeMessages(ctx, network.SlotStartTime(5).Add(4*time.Second), state, &KnownItems{})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, expected, bundles)
	require.True(t, state.LastSyncCommittee.At(5))

	// Acted already: terminal for the slot.
	bundles, ok, err = behavior.SyncCommitteeMessages(ctx, network.SlotStartTime(5).Add(5*time.Second), state, &KnownItems{})
	require.NoError(t, err)
	require.False(t, ok)
	require.Nil(t, bundles)
}

func TestProposeNoTimingGate(t *testing.T) {
	behavior, producers := setupASAP(t)
	ctx := context.Background()
	network := networkconfig.TestNetwork

	state := newTestState(1, 5)
	state.ProposerDuties[5] = true

	producers.EXPECT().Block(gomock.Any(), state, gomock.Any()).
		Return(&altair.SignedBeaconBlock{Message: &altair.BeaconBlock{Slot: 5}}, nil)

	// No block received and the slot just began: proposers never wait.
	block, ok, err := behavior.Propose(ctx, network.SlotStartTime(5), state, &KnownItems{})
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, block)
	require.True(t, state.LastProposed.At(5))

	// Acted already: decline.
	block, ok, err = behavior.Propose(ctx, network.SlotStartTime(5).Add(time.Second), state, &KnownItems{})
	require.NoError(t, err)
	require.False(t, ok)
	require.Nil(t, block)
}

func TestProposeNotAssigned(t *testing.T) {
	behavior, _ := setupASAP(t)
	ctx := context.Background()
	network := networkconfig.TestNetwork

	state := newTestState(1, 5)
	state.ProposerDuties[6] = true

	block, ok, err := behavior.Propose(ctx, network.SlotStartTime(5), state, &KnownItems{})
	require.NoError(t, err)
	require.False(t, ok)
	require.Nil(t, block)
}

func TestProposeDutiesWrapAroundEpoch(t *testing.T) {
	behavior, producers := setupASAP(t)
	ctx := context.Background()
	network := networkconfig.TestNetwork

	// Slot 37 of epoch 1 maps to position 5 in the duty vector.
	state := newTestState(1, 37)
	state.ProposerDuties[5] = true

	producers.EXPECT().Block(gomock.Any(), state, gomock.Any()).
		Return(&altair.SignedBeaconBlock{Message: &altair.BeaconBlock{Slot: 37}}, nil)

	block, ok, err := behavior.Propose(ctx, network.SlotStartTime(37), state, &KnownItems{})
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, block)
}

func TestProposeInvalidDutyState(t *testing.T) {
	behavior, _ := setupASAP(t)
	ctx := context.Background()
	network := networkconfig.TestNetwork

	state := newTestState(1, 5)
	state.ProposerDuties = make([]bool, 16)

	block, ok, err := behavior.Propose(ctx, network.SlotStartTime(5), state, &KnownItems{})
	require.ErrorIs(t, err, ErrInvalidDutyState)
	require.False(t, ok)
	require.Nil(t, block)

	// The defect must not leave a mark behind.
	_, set := state.LastProposed.Slot()
	require.False(t, set)
}

func TestDecisionsIndependentWithinTick(t *testing.T) {
	behavior, producers := setupASAP(t)
	ctx := context.Background()
	network := networkconfig.TestNetwork

	// One validator holding all three duties in the same slot acts on each.
	state := newTestState(1, 5)
	state.HasAttesterDuty = true
	state.AttesterSlot = 5
	state.ProposerDuties[5] = true
	state.SyncCommitteePositions = []phase0.CommitteeIndex{3}
	state.ReceivedBlock = true

	producers.EXPECT().Attestation(gomock.Any(), state, gomock.Any()).
		Return(&phase0.Attestation{Data: &phase0.AttestationData{Slot: 5}}, nil)
	producers.EXPECT().SyncCommitteeBundles(gomock.Any(), state, gomock.Any()).
		Return([]*SyncCommitteeBundle{{CommitteeIndex: 3, Message: &altair.SyncCommitteeMessage{Slot: 5}}}, nil)
	producers.EXPECT().Block(gomock.Any(), state, gomock.Any()).
		Return(&altair.SignedBeaconBlock{Message: &altair.BeaconBlock{Slot: 5}}, nil)

	at := network.SlotStartTime(5)

	_, ok, err := behavior.Attest(ctx, at, state, &KnownItems{})
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = behavior.SyncCommitteeMessages(ctx, at, state, &KnownItems{})
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = behavior.Propose(ctx, at, state, &KnownItems{})
	require.NoError(t, err)
	require.True(t, ok)

	require.True(t, state.LastAttested.At(5))
	require.True(t, state.LastSyncCommittee.At(5))
	require.True(t, state.LastProposed.At(5))
}

func TestBehaviorRegistry(t *testing.T) {
	ctrl := gomock.NewController(t)
	producers := NewMockProducers(ctrl)
	logger := logging.TestLogger(t)

	for _, name := range []string{"asap", "prudent"} {
		behavior, err := NewBehavior(name, logger, networkconfig.TestNetwork, producers)
		require.NoError(t, err)
		require.Equal(t, name, behavior.Name())
	}

	_, err := NewBehavior("reckless", logger, networkconfig.TestNetwork, producers)
	require.Error(t, err)
}
