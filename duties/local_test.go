package duties

import (
	"context"
	"testing"

	"github.com/attestantio/go-eth2-client/spec/phase0"
	"github.com/stretchr/testify/require"

	"github.com/casparschwa/beaconrunner/logging"
	"github.com/casparschwa/beaconrunner/networkconfig"
)

func testValidatorSet(n int) map[phase0.ValidatorIndex]phase0.BLSPubKey {
	pubkeys := make(map[phase0.ValidatorIndex]phase0.BLSPubKey, n)
	for i := 0; i < n; i++ {
		var pubkey phase0.BLSPubKey
		pubkey[0] = byte(i + 1)
		pubkeys[phase0.ValidatorIndex(i)] = pubkey
	}
	return pubkeys
}

func allIndices(pubkeys map[phase0.ValidatorIndex]phase0.BLSPubKey) []phase0.ValidatorIndex {
	indices := make([]phase0.ValidatorIndex, 0, len(pubkeys))
	for index := range pubkeys {
		indices = append(indices, index)
	}
	return indices
}

func TestLocalProviderRejectsEmptySet(t *testing.T) {
	_, err := NewLocalProvider(logging.TestLogger(t), networkconfig.Minimal, nil)
	require.Error(t, err)
}

func TestAttesterDutiesOncePerEpoch(t *testing.T) {
	pubkeys := testValidatorSet(16)
	provider, err := NewLocalProvider(logging.TestLogger(t), networkconfig.Minimal, pubkeys)
	require.NoError(t, err)

	ctx := context.Background()
	epoch := phase0.Epoch(3)

	duties, err := provider.AttesterDuties(ctx, epoch, allIndices(pubkeys))
	require.NoError(t, err)
	require.Len(t, duties, 16)

	firstSlot := networkconfig.Minimal.EpochFirstSlot(epoch)
	lastSlot := firstSlot + phase0.Slot(networkconfig.Minimal.SlotsPerEpoch()) - 1

	seen := make(map[phase0.ValidatorIndex]bool)
	for _, duty := range duties {
		require.False(t, seen[duty.ValidatorIndex], "validator %d assigned twice", duty.ValidatorIndex)
		seen[duty.ValidatorIndex] = true
		require.GreaterOrEqual(t, duty.Slot, firstSlot)
		require.LessOrEqual(t, duty.Slot, lastSlot)
		require.Equal(t, pubkeys[duty.ValidatorIndex], duty.PubKey)
		require.NotZero(t, duty.CommitteeLength)
	}
}

func TestProposerDutiesOnePerSlot(t *testing.T) {
	pubkeys := testValidatorSet(16)
	provider, err := NewLocalProvider(logging.TestLogger(t), networkconfig.Minimal, pubkeys)
	require.NoError(t, err)

	ctx := context.Background()
	epoch := phase0.Epoch(3)

	duties, err := provider.ProposerDuties(ctx, epoch, allIndices(pubkeys))
	require.NoError(t, err)
	require.Len(t, duties, int(networkconfig.Minimal.SlotsPerEpoch()))

	seenSlots := make(map[phase0.Slot]bool)
	for _, duty := range duties {
		require.False(t, seenSlots[duty.Slot], "slot %d has two proposers", duty.Slot)
		seenSlots[duty.Slot] = true
		require.Equal(t, pubkeys[duty.ValidatorIndex], duty.PubKey)
	}
}

func TestSyncCommitteeDutiesCoverAllSeats(t *testing.T) {
	pubkeys := testValidatorSet(16)
	provider, err := NewLocalProvider(logging.TestLogger(t), networkconfig.Minimal, pubkeys)
	require.NoError(t, err)

	ctx := context.Background()

	duties, err := provider.SyncCommitteeDuties(ctx, 0, allIndices(pubkeys))
	require.NoError(t, err)

	seats := 0
	seenPositions := make(map[phase0.CommitteeIndex]bool)
	for _, duty := range duties {
		for _, position := range duty.ValidatorSyncCommitteeIndices {
			require.False(t, seenPositions[position], "position %d assigned twice", position)
			seenPositions[position] = true
			seats++
		}
	}
	require.Equal(t, int(networkconfig.Minimal.SyncCommitteeSize()), seats)
}

func TestAssignmentsDeterministic(t *testing.T) {
	pubkeys := testValidatorSet(16)
	ctx := context.Background()
	epoch := phase0.Epoch(5)

	a, err := NewLocalProvider(logging.TestLogger(t), networkconfig.Minimal, pubkeys)
	require.NoError(t, err)
	b, err := NewLocalProvider(logging.TestLogger(t), networkconfig.Minimal, pubkeys)
	require.NoError(t, err)

	attA, err := a.AttesterDuties(ctx, epoch, allIndices(pubkeys))
	require.NoError(t, err)
	attB, err := b.AttesterDuties(ctx, epoch, allIndices(pubkeys))
	require.NoError(t, err)

	slotsA := make(map[phase0.ValidatorIndex]phase0.Slot)
	for _, duty := range attA {
		slotsA[duty.ValidatorIndex] = duty.Slot
	}
	for _, duty := range attB {
		require.Equal(t, slotsA[duty.ValidatorIndex], duty.Slot)
	}
}

func TestUnknownIndicesSkipped(t *testing.T) {
	pubkeys := testValidatorSet(4)
	provider, err := NewLocalProvider(logging.TestLogger(t), networkconfig.Minimal, pubkeys)
	require.NoError(t, err)

	ctx := context.Background()

	duties, err := provider.AttesterDuties(ctx, 0, []phase0.ValidatorIndex{0, 99})
	require.NoError(t, err)
	require.Len(t, duties, 1)
	require.Equal(t, phase0.ValidatorIndex(0), duties[0].ValidatorIndex)
}
