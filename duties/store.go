package duties

import (
	"sync"

	eth2apiv1 "github.com/attestantio/go-eth2-client/api/v1"
	"github.com/attestantio/go-eth2-client/spec/phase0"
)

type Duty interface {
	eth2apiv1.AttesterDuty | eth2apiv1.ProposerDuty
}

// Store bundles the per-kind duty indexes the scheduler fills on epoch
// boundaries and reads on every tick.
type Store struct {
	Attester      *Duties[eth2apiv1.AttesterDuty]
	Proposer      *Duties[eth2apiv1.ProposerDuty]
	SyncCommittee *SyncCommitteeDuties
}

func NewStore() *Store {
	return &Store{
		Attester:      NewDuties[eth2apiv1.AttesterDuty](),
		Proposer:      NewDuties[eth2apiv1.ProposerDuty](),
		SyncCommittee: NewSyncCommitteeDuties(),
	}
}

// Duties indexes slot-scoped duties by epoch, slot and validator.
type Duties[D Duty] struct {
	mu sync.RWMutex
	m  map[phase0.Epoch]map[phase0.Slot]map[phase0.ValidatorIndex]*D
}

func NewDuties[D Duty]() *Duties[D] {
	return &Duties[D]{
		m: make(map[phase0.Epoch]map[phase0.Slot]map[phase0.ValidatorIndex]*D),
	}
}

func (d *Duties[D]) SlotDuties(epoch phase0.Epoch, slot phase0.Slot) []*D {
	d.mu.RLock()
	defer d.mu.RUnlock()

	slotMap, ok := d.m[epoch]
	if !ok {
		return nil
	}

	indexMap, ok := slotMap[slot]
	if !ok {
		return nil
	}

	duties := make([]*D, 0, len(indexMap))
	for _, duty := range indexMap {
		duties = append(duties, duty)
	}

	return duties
}

func (d *Duties[D]) ValidatorDuty(epoch phase0.Epoch, slot phase0.Slot, validatorIndex phase0.ValidatorIndex) *D {
	d.mu.RLock()
	defer d.mu.RUnlock()

	slotMap, ok := d.m[epoch]
	if !ok {
		return nil
	}

	indexMap, ok := slotMap[slot]
	if !ok {
		return nil
	}

	return indexMap[validatorIndex]
}

func (d *Duties[D]) Add(epoch phase0.Epoch, slot phase0.Slot, validatorIndex phase0.ValidatorIndex, duty *D) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.m[epoch]; !ok {
		d.m[epoch] = make(map[phase0.Slot]map[phase0.ValidatorIndex]*D)
	}
	if _, ok := d.m[epoch][slot]; !ok {
		d.m[epoch][slot] = make(map[phase0.ValidatorIndex]*D)
	}
	d.m[epoch][slot][validatorIndex] = duty
}

func (d *Duties[D]) ResetEpoch(epoch phase0.Epoch) {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.m, epoch)
}

// SyncCommitteeDuties indexes sync committee duties by period and validator.
type SyncCommitteeDuties struct {
	mu sync.RWMutex
	m  map[uint64]map[phase0.ValidatorIndex]*eth2apiv1.SyncCommitteeDuty
}

func NewSyncCommitteeDuties() *SyncCommitteeDuties {
	return &SyncCommitteeDuties{
		m: make(map[uint64]map[phase0.ValidatorIndex]*eth2apiv1.SyncCommitteeDuty),
	}
}

func (d *SyncCommitteeDuties) Duty(period uint64, validatorIndex phase0.ValidatorIndex) *eth2apiv1.SyncCommitteeDuty {
	d.mu.RLock()
	defer d.mu.RUnlock()

	indexMap, ok := d.m[period]
	if !ok {
		return nil
	}

	return indexMap[validatorIndex]
}

func (d *SyncCommitteeDuties) PeriodDuties(period uint64) []*eth2apiv1.SyncCommitteeDuty {
	d.mu.RLock()
	defer d.mu.RUnlock()

	indexMap, ok := d.m[period]
	if !ok {
		return nil
	}

	duties := make([]*eth2apiv1.SyncCommitteeDuty, 0, len(indexMap))
	for _, duty := range indexMap {
		duties = append(duties, duty)
	}

	return duties
}

func (d *SyncCommitteeDuties) Set(period uint64, duties []*eth2apiv1.SyncCommitteeDuty) {
	mapped := make(map[phase0.ValidatorIndex]*eth2apiv1.SyncCommitteeDuty)
	for _, duty := range duties {
		mapped[duty.ValidatorIndex] = duty
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.m[period] = mapped
}

func (d *SyncCommitteeDuties) Reset(period uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.m, period)
}
