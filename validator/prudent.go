package validator

import (
	"go.uber.org/zap"

	"github.com/casparschwa/beaconrunner/networkconfig"
)

// Prudent holds out for a block until two thirds of the slot before acting
// without one. It accepts a later attestation in exchange for fewer votes on
// a stale head.
type Prudent struct {
	core
}

func NewPrudent(logger *zap.Logger, network networkconfig.Beacon, producers Producers) *Prudent {
	return &Prudent{core{
		name:               "prudent",
		logger:             logger,
		network:            network,
		producers:          producers,
		blockWaitIntervals: 2,
	}}
}
