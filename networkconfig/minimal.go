package networkconfig

import "time"

// Minimal mirrors the consensus spec minimal preset. Short slots and small
// committees keep simulated epochs cheap; anchor it with WithGenesisTime
// before use.
var Minimal = NewBeaconConfig(
	"minimal",
	6*time.Second,
	8,
	8,
	32,
	4,
	3,
	time.Unix(1606824023, 0),
)
