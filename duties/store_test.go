package duties

import (
	"testing"

	eth2apiv1 "github.com/attestantio/go-eth2-client/api/v1"
	"github.com/attestantio/go-eth2-client/spec/phase0"
	"github.com/stretchr/testify/require"
)

func TestDutiesStore(t *testing.T) {
	store := NewDuties[eth2apiv1.AttesterDuty]()

	require.Nil(t, store.ValidatorDuty(1, 33, 7))
	require.Empty(t, store.SlotDuties(1, 33))

	duty := &eth2apiv1.AttesterDuty{Slot: 33, ValidatorIndex: 7}
	store.Add(1, 33, 7, duty)
	store.Add(1, 33, 8, &eth2apiv1.AttesterDuty{Slot: 33, ValidatorIndex: 8})
	store.Add(1, 34, 9, &eth2apiv1.AttesterDuty{Slot: 34, ValidatorIndex: 9})

	require.Equal(t, duty, store.ValidatorDuty(1, 33, 7))
	require.Len(t, store.SlotDuties(1, 33), 2)
	require.Len(t, store.SlotDuties(1, 34), 1)
	require.Nil(t, store.ValidatorDuty(2, 33, 7))

	store.ResetEpoch(1)
	require.Nil(t, store.ValidatorDuty(1, 33, 7))
	require.Empty(t, store.SlotDuties(1, 33))
}

func TestSyncCommitteeDutiesStore(t *testing.T) {
	store := NewSyncCommitteeDuties()

	require.Nil(t, store.Duty(0, 7))
	require.Empty(t, store.PeriodDuties(0))

	store.Set(0, []*eth2apiv1.SyncCommitteeDuty{
		{ValidatorIndex: 7, ValidatorSyncCommitteeIndices: []phase0.CommitteeIndex{1, 2}},
		{ValidatorIndex: 8, ValidatorSyncCommitteeIndices: []phase0.CommitteeIndex{3}},
	})

	require.NotNil(t, store.Duty(0, 7))
	require.Len(t, store.PeriodDuties(0), 2)
	require.Nil(t, store.Duty(1, 7))

	// A second Set replaces the period wholesale.
	store.Set(0, []*eth2apiv1.SyncCommitteeDuty{
		{ValidatorIndex: 9, ValidatorSyncCommitteeIndices: []phase0.CommitteeIndex{4}},
	})
	require.Nil(t, store.Duty(0, 7))
	require.NotNil(t, store.Duty(0, 9))

	store.Reset(0)
	require.Empty(t, store.PeriodDuties(0))
}
