package duties

import (
	"context"

	eth2apiv1 "github.com/attestantio/go-eth2-client/api/v1"
	"github.com/attestantio/go-eth2-client/spec/phase0"
)

//go:generate go tool mockgen -package=duties -destination=./provider_mock.go -source=./provider.go

// Provider serves duty assignments the way a beacon node API would:
// attester and proposer duties per epoch, sync committee duties per the
// period the epoch belongs to.
//
// Implementations must be safe for concurrent use.
type Provider interface {
	AttesterDuties(ctx context.Context, epoch phase0.Epoch, indices []phase0.ValidatorIndex) ([]*eth2apiv1.AttesterDuty, error)
	ProposerDuties(ctx context.Context, epoch phase0.Epoch, indices []phase0.ValidatorIndex) ([]*eth2apiv1.ProposerDuty, error)
	SyncCommitteeDuties(ctx context.Context, epoch phase0.Epoch, indices []phase0.ValidatorIndex) ([]*eth2apiv1.SyncCommitteeDuty, error)
}
