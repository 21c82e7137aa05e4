package validator

// DutyKind enumerates the duty families a validator can act on within a slot.
type DutyKind int

const (
	DutyAttester DutyKind = iota
	DutyProposer
	DutySyncCommittee
)

func (k DutyKind) String() string {
	switch k {
	case DutyAttester:
		return "ATTESTER"
	case DutyProposer:
		return "PROPOSER"
	case DutySyncCommittee:
		return "SYNC_COMMITTEE"
	default:
		return "UNKNOWN"
	}
}
