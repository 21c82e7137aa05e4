package simulator

import (
	"encoding/binary"
	"sort"

	"github.com/attestantio/go-eth2-client/spec/phase0"
	"go.uber.org/zap"

	"github.com/casparschwa/beaconrunner/logging"
	"github.com/casparschwa/beaconrunner/networkconfig"
	"github.com/casparschwa/beaconrunner/validator"
)

// Instance binds one simulated validator to its behavior and duty state.
// The scheduler owns the state: it refreshes assignments on boundaries and
// runs the decisions, one goroutine per instance per phase.
type Instance struct {
	pubKey   phase0.BLSPubKey
	behavior validator.Behavior
	state    *validator.DutyState
}

func NewInstance(pubKey phase0.BLSPubKey, index phase0.ValidatorIndex, behavior validator.Behavior) *Instance {
	return &Instance{
		pubKey:   pubKey,
		behavior: behavior,
		state:    &validator.DutyState{ValidatorIndex: index},
	}
}

func (i *Instance) PubKey() phase0.BLSPubKey {
	return i.pubKey
}

func (i *Instance) Index() phase0.ValidatorIndex {
	return i.state.ValidatorIndex
}

func (i *Instance) Behavior() validator.Behavior {
	return i.behavior
}

func (i *Instance) State() *validator.DutyState {
	return i.state
}

// GenerateValidatorSet builds a deterministic validator set of the given
// size. The simulation never signs anything, pubkeys only need to be stable
// identities for duty assignment and the ledger.
func GenerateValidatorSet(count uint64) map[phase0.ValidatorIndex]phase0.BLSPubKey {
	set := make(map[phase0.ValidatorIndex]phase0.BLSPubKey, count)
	for i := uint64(0); i < count; i++ {
		var pubKey phase0.BLSPubKey
		pubKey[0] = 0xb0
		binary.BigEndian.PutUint64(pubKey[40:], i)
		set[phase0.ValidatorIndex(i)] = pubKey
	}
	return set
}

// SpawnInstances builds one instance per validator in the set, each running
// its own copy of the named behavior. Instances come back ordered by index.
func SpawnInstances(
	logger *zap.Logger,
	network networkconfig.Beacon,
	producers validator.Producers,
	set map[phase0.ValidatorIndex]phase0.BLSPubKey,
	behaviorName string,
) ([]*Instance, error) {
	indices := make([]phase0.ValidatorIndex, 0, len(set))
	for index := range set {
		indices = append(indices, index)
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })

	instances := make([]*Instance, 0, len(set))
	behaviorLogger := logger.Named(logging.NameValidator)
	for _, index := range indices {
		behavior, err := validator.NewBehavior(behaviorName, behaviorLogger, network, producers)
		if err != nil {
			return nil, err
		}
		instances = append(instances, NewInstance(set[index], index, behavior))
	}
	return instances, nil
}
