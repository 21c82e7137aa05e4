package networkconfig

import "time"

var Mainnet = NewBeaconConfig(
	"mainnet",
	12*time.Second,
	32,
	256,
	512,
	4,
	3,
	time.Unix(1606824023, 0),
)
