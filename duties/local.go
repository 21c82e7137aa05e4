package duties

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"sort"
	"time"

	eth2apiv1 "github.com/attestantio/go-eth2-client/api/v1"
	"github.com/attestantio/go-eth2-client/spec/phase0"
	"github.com/jellydator/ttlcache/v3"
	"go.uber.org/zap"

	"github.com/casparschwa/beaconrunner/logging"
	"github.com/casparschwa/beaconrunner/logging/fields"
	"github.com/casparschwa/beaconrunner/networkconfig"
)

const (
	domainAttester = 0x01
	domainProposer = 0x02
	domainSync     = 0x03
)

// LocalProvider computes duty assignments for a closed validator set, standing
// in for a beacon node in simulations. Assignments are a pure function of
// (validator set, epoch), so every call and every instance agrees on them:
// each validator attests exactly once per epoch, every slot has exactly one
// proposer, and sync committee seats rotate per period.
type LocalProvider struct {
	logger  *zap.Logger
	network networkconfig.Beacon
	pubkeys map[phase0.ValidatorIndex]phase0.BLSPubKey
	indices []phase0.ValidatorIndex

	epochs  *ttlcache.Cache[phase0.Epoch, *epochAssignment]
	periods *ttlcache.Cache[uint64, map[phase0.ValidatorIndex][]phase0.CommitteeIndex]
}

type epochAssignment struct {
	attesterSlots map[phase0.ValidatorIndex]phase0.Slot
	slotAttesters map[phase0.Slot][]phase0.ValidatorIndex
	proposers     map[phase0.Slot]phase0.ValidatorIndex
}

func NewLocalProvider(
	logger *zap.Logger,
	network networkconfig.Beacon,
	pubkeys map[phase0.ValidatorIndex]phase0.BLSPubKey,
) (*LocalProvider, error) {
	if len(pubkeys) == 0 {
		return nil, fmt.Errorf("validator set is empty")
	}

	indices := make([]phase0.ValidatorIndex, 0, len(pubkeys))
	for index := range pubkeys {
		indices = append(indices, index)
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })

	periodDuration := time.Duration(network.EpochsPerSyncCommitteePeriod()) * network.EpochDuration() // #nosec G115

	epochs := ttlcache.New(ttlcache.WithTTL[phase0.Epoch, *epochAssignment](4 * network.EpochDuration()))
	go epochs.Start()
	periods := ttlcache.New(ttlcache.WithTTL[uint64, map[phase0.ValidatorIndex][]phase0.CommitteeIndex](2 * periodDuration))
	go periods.Start()

	return &LocalProvider{
		logger:  logger.Named(logging.NameDutyProvider),
		network: network,
		pubkeys: pubkeys,
		indices: indices,
		epochs:  epochs,
		periods: periods,
	}, nil
}

func (p *LocalProvider) AttesterDuties(_ context.Context, epoch phase0.Epoch, indices []phase0.ValidatorIndex) ([]*eth2apiv1.AttesterDuty, error) {
	assignment := p.assignmentFor(epoch)

	duties := make([]*eth2apiv1.AttesterDuty, 0, len(indices))
	for _, index := range indices {
		pubkey, ok := p.pubkeys[index]
		if !ok {
			continue
		}
		slot := assignment.attesterSlots[index]
		committee := assignment.slotAttesters[slot]
		duties = append(duties, &eth2apiv1.AttesterDuty{
			PubKey:                  pubkey,
			Slot:                    slot,
			ValidatorIndex:          index,
			CommitteeIndex:          0,
			CommitteeLength:         uint64(len(committee)),
			CommitteesAtSlot:        1,
			ValidatorCommitteeIndex: committeePosition(committee, index),
		})
	}

	return duties, nil
}

func (p *LocalProvider) ProposerDuties(_ context.Context, epoch phase0.Epoch, indices []phase0.ValidatorIndex) ([]*eth2apiv1.ProposerDuty, error) {
	assignment := p.assignmentFor(epoch)

	requested := make(map[phase0.ValidatorIndex]struct{}, len(indices))
	for _, index := range indices {
		requested[index] = struct{}{}
	}

	var duties []*eth2apiv1.ProposerDuty
	for slot, proposer := range assignment.proposers {
		if _, ok := requested[proposer]; !ok {
			continue
		}
		duties = append(duties, &eth2apiv1.ProposerDuty{
			PubKey:         p.pubkeys[proposer],
			Slot:           slot,
			ValidatorIndex: proposer,
		})
	}

	return duties, nil
}

func (p *LocalProvider) SyncCommitteeDuties(_ context.Context, epoch phase0.Epoch, indices []phase0.ValidatorIndex) ([]*eth2apiv1.SyncCommitteeDuty, error) {
	period := p.network.EstimatedSyncCommitteePeriodAtEpoch(epoch)
	membership := p.membershipFor(period)

	var duties []*eth2apiv1.SyncCommitteeDuty
	for _, index := range indices {
		positions := membership[index]
		if len(positions) == 0 {
			continue
		}
		duties = append(duties, &eth2apiv1.SyncCommitteeDuty{
			PubKey:                        p.pubkeys[index],
			ValidatorIndex:                index,
			ValidatorSyncCommitteeIndices: positions,
		})
	}

	return duties, nil
}

func (p *LocalProvider) assignmentFor(epoch phase0.Epoch) *epochAssignment {
	if item := p.epochs.Get(epoch); item != nil {
		return item.Value()
	}

	assignment := p.computeEpoch(epoch)
	p.epochs.Set(epoch, assignment, ttlcache.DefaultTTL)
	p.logger.Debug("computed epoch assignment", fields.Epoch(epoch), fields.Count(len(p.indices)))
	return assignment
}

func (p *LocalProvider) computeEpoch(epoch phase0.Epoch) *epochAssignment {
	slotsPerEpoch := p.network.SlotsPerEpoch()
	firstSlot := p.network.EpochFirstSlot(epoch)

	assignment := &epochAssignment{
		attesterSlots: make(map[phase0.ValidatorIndex]phase0.Slot, len(p.indices)),
		slotAttesters: make(map[phase0.Slot][]phase0.ValidatorIndex),
		proposers:     make(map[phase0.Slot]phase0.ValidatorIndex, slotsPerEpoch),
	}

	for _, index := range p.indices {
		offset := assignmentHash(domainAttester, uint64(epoch), uint64(index)) % slotsPerEpoch
		slot := firstSlot + phase0.Slot(offset)
		assignment.attesterSlots[index] = slot
		assignment.slotAttesters[slot] = append(assignment.slotAttesters[slot], index)
	}

	for offset := uint64(0); offset < slotsPerEpoch; offset++ {
		slot := firstSlot + phase0.Slot(offset)
		pick := assignmentHash(domainProposer, uint64(epoch), offset) % uint64(len(p.indices))
		assignment.proposers[slot] = p.indices[pick]
	}

	return assignment
}

func (p *LocalProvider) membershipFor(period uint64) map[phase0.ValidatorIndex][]phase0.CommitteeIndex {
	if item := p.periods.Get(period); item != nil {
		return item.Value()
	}

	membership := make(map[phase0.ValidatorIndex][]phase0.CommitteeIndex)
	for position := uint64(0); position < p.network.SyncCommitteeSize(); position++ {
		pick := assignmentHash(domainSync, period, position) % uint64(len(p.indices))
		index := p.indices[pick]
		membership[index] = append(membership[index], phase0.CommitteeIndex(position))
	}

	p.periods.Set(period, membership, ttlcache.DefaultTTL)
	p.logger.Debug("computed sync committee membership", fields.SyncPeriod(period), fields.Count(len(membership)))
	return membership
}

func committeePosition(committee []phase0.ValidatorIndex, index phase0.ValidatorIndex) uint64 {
	for i, member := range committee {
		if member == index {
			return uint64(i) // #nosec G115
		}
	}
	return 0
}

// assignmentHash derives a stable 64-bit value from a domain tag and two
// coordinates, the seed of every assignment decision.
func assignmentHash(domain byte, a, b uint64) uint64 {
	var buf [17]byte
	buf[0] = domain
	binary.BigEndian.PutUint64(buf[1:9], a)
	binary.BigEndian.PutUint64(buf[9:17], b)
	sum := sha256.Sum256(buf[:])
	return binary.BigEndian.Uint64(sum[:8])
}
