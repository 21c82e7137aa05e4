package validator

import (
	"fmt"

	"github.com/attestantio/go-eth2-client/spec/phase0"
)

// SlotMark records the last slot a duty of some kind was performed at.
// The zero value means the duty was never performed, which keeps slot 0
// usable as a real slot.
type SlotMark struct {
	slot phase0.Slot
	set  bool
}

func MarkAt(slot phase0.Slot) SlotMark {
	return SlotMark{slot: slot, set: true}
}

// Slot returns the marked slot and whether the mark is set.
func (m SlotMark) Slot() (phase0.Slot, bool) {
	return m.slot, m.set
}

// At reports whether the mark is set at the given slot.
func (m SlotMark) At(slot phase0.Slot) bool {
	return m.set && m.slot == slot
}

func (m SlotMark) String() string {
	if !m.set {
		return "none"
	}
	return fmt.Sprintf("%d", m.slot)
}

// CommitteeSeat locates a validator inside an attestation committee.
type CommitteeSeat struct {
	Index    phase0.CommitteeIndex
	Length   uint64
	Position uint64
}

// DutyState carries everything a validator needs to decide whether to act
// in the slot under evaluation. Duty assignments are refreshed by the duty
// provider on slot and epoch boundaries; the Last* marks survive every
// refresh and only Reset clears them.
//
// A DutyState belongs to a single validator instance and is not safe for
// concurrent use.
type DutyState struct {
	ValidatorIndex phase0.ValidatorIndex

	// Slot is the slot under evaluation.
	Slot phase0.Slot

	// AttesterSlot is the slot this validator attests at within the
	// current epoch. Meaningless unless HasAttesterDuty.
	AttesterSlot    phase0.Slot
	HasAttesterDuty bool

	// AttesterCommittee locates the seat behind the attester duty.
	// Producers need it to build the vote, the decision logic does not.
	AttesterCommittee CommitteeSeat

	// ProposerDuties holds one flag per slot of the current epoch.
	ProposerDuties []bool

	// SyncCommitteePositions lists the validator's positions within the
	// current sync committee. Empty when not a member.
	SyncCommitteePositions []phase0.CommitteeIndex

	// ReceivedBlock reports whether a valid block for Slot has been seen.
	ReceivedBlock bool

	LastAttested      SlotMark
	LastProposed      SlotMark
	LastSyncCommittee SlotMark
}

// Validate checks internal consistency against the network's epoch length.
// A proposer duty vector of the wrong length would silently shift every
// lookup, so it is rejected loudly instead.
func (s *DutyState) Validate(slotsPerEpoch uint64) error {
	if uint64(len(s.ProposerDuties)) != slotsPerEpoch {
		return fmt.Errorf("%w: proposer duties cover %d slots, epoch has %d", ErrInvalidDutyState, len(s.ProposerDuties), slotsPerEpoch)
	}
	return nil
}

// Reset re-initializes the validator, clearing duty assignments and the
// slashing marks. Only explicit re-initialization may touch the marks.
func (s *DutyState) Reset() {
	index := s.ValidatorIndex
	*s = DutyState{ValidatorIndex: index}
}
