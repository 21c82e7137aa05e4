// Package honest implements reference artifact producers following the
// honest validator guide: attestations vote for the driver's head, sync
// committee messages carry the head root, and proposed blocks package the
// attestations known at production time.
package honest

import (
	"context"
	"sort"

	"github.com/attestantio/go-eth2-client/spec/altair"
	"github.com/attestantio/go-eth2-client/spec/phase0"
	"github.com/pkg/errors"
	"github.com/prysmaticlabs/go-bitfield"
	"go.uber.org/zap"

	"github.com/casparschwa/beaconrunner/logging/fields"
	"github.com/casparschwa/beaconrunner/networkconfig"
	"github.com/casparschwa/beaconrunner/validator"
)

// maxBlockAttestations is the phase0 block body limit.
const maxBlockAttestations = 128

var _ validator.Producers = &Producer{}

// Producer builds honest artifacts from the validator's current view.
type Producer struct {
	logger  *zap.Logger
	network networkconfig.Beacon
}

func NewProducer(logger *zap.Logger, network networkconfig.Beacon) *Producer {
	return &Producer{
		logger:  logger,
		network: network,
	}
}

// Attestation votes for the head the driver currently follows. The target
// root approximates the epoch boundary with the head root and the source
// checkpoint tracks the previous epoch; the simulated chain carries no fork
// choice store to take a justified checkpoint from.
func (p *Producer) Attestation(_ context.Context, state *validator.DutyState, known *validator.KnownItems) (*phase0.Attestation, error) {
	if known == nil {
		return nil, errors.New("no known items")
	}

	seat := state.AttesterCommittee
	if seat.Length == 0 {
		return nil, errors.New("attester committee is empty")
	}
	if seat.Position >= seat.Length {
		return nil, errors.Errorf("committee position %d out of range for committee of %d", seat.Position, seat.Length)
	}

	targetEpoch := p.network.EstimatedEpochAtSlot(state.Slot)
	sourceEpoch := targetEpoch
	if sourceEpoch > 0 {
		sourceEpoch--
	}

	aggregationBits := bitfield.NewBitlist(seat.Length)
	aggregationBits.SetBitAt(seat.Position, true)

	return &phase0.Attestation{
		AggregationBits: aggregationBits,
		Data: &phase0.AttestationData{
			Slot:            state.Slot,
			Index:           seat.Index,
			BeaconBlockRoot: known.HeadRoot,
			Source: &phase0.Checkpoint{
				Epoch: sourceEpoch,
			},
			Target: &phase0.Checkpoint{
				Epoch: targetEpoch,
				Root:  known.HeadRoot,
			},
		},
	}, nil
}

// SyncCommitteeBundles emits one bundle per committee seat held, all carrying
// the same head vote.
func (p *Producer) SyncCommitteeBundles(_ context.Context, state *validator.DutyState, known *validator.KnownItems) ([]*validator.SyncCommitteeBundle, error) {
	if known == nil {
		return nil, errors.New("no known items")
	}
	if len(state.SyncCommitteePositions) == 0 {
		return nil, errors.New("validator holds no sync committee seat")
	}

	subnetSize := p.network.SyncCommitteeSize() / p.network.SyncCommitteeSubnetCount()
	if subnetSize == 0 {
		return nil, errors.New("sync committee smaller than its subnet count")
	}

	bundles := make([]*validator.SyncCommitteeBundle, 0, len(state.SyncCommitteePositions))
	for _, position := range state.SyncCommitteePositions {
		bundles = append(bundles, &validator.SyncCommitteeBundle{
			CommitteeIndex:    position,
			SubcommitteeIndex: uint64(position) / subnetSize,
			Message: &altair.SyncCommitteeMessage{
				Slot:            state.Slot,
				BeaconBlockRoot: known.HeadRoot,
				ValidatorIndex:  state.ValidatorIndex,
			},
		})
	}
	return bundles, nil
}

// Block packages the known attestations into a block on top of the current
// head. Aggregation is left to the wire layer, only true duplicates are
// dropped here.
func (p *Producer) Block(_ context.Context, state *validator.DutyState, known *validator.KnownItems) (*altair.SignedBeaconBlock, error) {
	if known == nil {
		return nil, errors.New("no known items")
	}

	attestations := packAttestations(known.Attestations)

	block := &altair.BeaconBlock{
		Slot:          state.Slot,
		ProposerIndex: state.ValidatorIndex,
		ParentRoot:    known.HeadRoot,
		Body: &altair.BeaconBlockBody{
			ETH1Data: &phase0.ETH1Data{
				BlockHash: make([]byte, 32),
			},
			Attestations: attestations,
			SyncAggregate: &altair.SyncAggregate{
				SyncCommitteeBits: bitfield.NewBitvector512(),
			},
		},
	}

	p.logger.Debug("packed proposal",
		fields.Slot(state.Slot),
		fields.BlockRoot(known.HeadRoot),
		fields.Count(len(attestations)))

	return &altair.SignedBeaconBlock{Message: block}, nil
}

type voteKey struct {
	slot  phase0.Slot
	index phase0.CommitteeIndex
	root  phase0.Root
	bits  string
}

// packAttestations drops malformed and duplicate attestations and caps the
// rest at the block body limit, newest slots first so a full block prefers
// fresh votes. Identical votes from different seats stay separate entries.
func packAttestations(known []*phase0.Attestation) []*phase0.Attestation {
	sorted := make([]*phase0.Attestation, 0, len(known))
	for _, att := range known {
		if att == nil || att.Data == nil {
			continue
		}
		sorted = append(sorted, att)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Data.Slot > sorted[j].Data.Slot
	})

	seen := make(map[voteKey]bool, len(sorted))
	packed := make([]*phase0.Attestation, 0, len(sorted))
	for _, att := range sorted {
		key := voteKey{
			slot:  att.Data.Slot,
			index: att.Data.Index,
			root:  att.Data.BeaconBlockRoot,
			bits:  string(att.AggregationBits),
		}
		if seen[key] {
			continue
		}
		seen[key] = true

		packed = append(packed, att)
		if len(packed) == maxBlockAttestations {
			break
		}
	}
	return packed
}
