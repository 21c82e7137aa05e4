package validator

import (
	"context"

	"github.com/attestantio/go-eth2-client/spec/altair"
	"github.com/attestantio/go-eth2-client/spec/phase0"
)

//go:generate go tool mockgen -package=validator -destination=./producer_mock.go -source=./producer.go

// KnownItems is the validator's view of objects seen on the wire, snapshotted
// by the driver before each tick. The decision logic passes it through to the
// producers untouched.
type KnownItems struct {
	// HeadRoot and HeadSlot describe the chain head the driver currently
	// follows.
	HeadRoot phase0.Root
	HeadSlot phase0.Slot

	Blocks                []*altair.SignedBeaconBlock
	Attestations          []*phase0.Attestation
	SyncCommitteeMessages []*altair.SyncCommitteeMessage
}

// SyncCommitteeBundle is a sync committee message paired with the committee
// position it is emitted for. Validators holding several positions emit one
// bundle per position.
type SyncCommitteeBundle struct {
	CommitteeIndex    phase0.CommitteeIndex
	SubcommitteeIndex uint64
	Message           *altair.SyncCommitteeMessage
}

// Producers build the actual artifacts once the decision logic chooses to
// act. Content production is where fork choice and committee internals live;
// the decision logic only cares whether production succeeded.
//
// Implementations must be safe for concurrent use across validator instances.
type Producers interface {
	Attestation(ctx context.Context, state *DutyState, known *KnownItems) (*phase0.Attestation, error)
	SyncCommitteeBundles(ctx context.Context, state *DutyState, known *KnownItems) ([]*SyncCommitteeBundle, error)
	Block(ctx context.Context, state *DutyState, known *KnownItems) (*altair.SignedBeaconBlock, error)
}
