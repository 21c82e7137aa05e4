package validator

import (
	"context"
	"fmt"
	"time"

	"github.com/attestantio/go-eth2-client/spec/altair"
	"github.com/attestantio/go-eth2-client/spec/phase0"
	"go.uber.org/zap"

	"github.com/casparschwa/beaconrunner/networkconfig"
)

// Behavior decides, once per duty kind per tick, whether the validator acts
// in the slot under evaluation. Each decision either returns the produced
// artifact with ok=true, declines silently with ok=false, or fails with an
// error (producer failure or invalid duty state). Declining has no side
// effects; a successful decision records the slot in the matching Last*
// mark so the same duty is never performed twice in one slot.
//
// Decisions are synchronous and must be called by a single goroutine per
// validator instance.
type Behavior interface {
	Name() string
	Attest(ctx context.Context, at time.Time, state *DutyState, known *KnownItems) (*phase0.Attestation, bool, error)
	SyncCommitteeMessages(ctx context.Context, at time.Time, state *DutyState, known *KnownItems) ([]*SyncCommitteeBundle, bool, error)
	Propose(ctx context.Context, at time.Time, state *DutyState, known *KnownItems) (*altair.SignedBeaconBlock, bool, error)
}

// Factory builds a Behavior for one validator instance.
type Factory func(logger *zap.Logger, network networkconfig.Beacon, producers Producers) Behavior

var factories = map[string]Factory{
	"asap": func(logger *zap.Logger, network networkconfig.Beacon, producers Producers) Behavior {
		return NewASAP(logger, network, producers)
	},
	"prudent": func(logger *zap.Logger, network networkconfig.Beacon, producers Producers) Behavior {
		return NewPrudent(logger, network, producers)
	},
}

// NewBehavior builds the named behavior, e.g. "asap" or "prudent".
func NewBehavior(name string, logger *zap.Logger, network networkconfig.Beacon, producers Producers) (Behavior, error) {
	factory, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("behavior not supported: %v", name)
	}
	return factory(logger, network, producers), nil
}
