package networkconfig

import "time"

var TestNetwork = NewBeaconConfig(
	"testnet",
	12*time.Second,
	32,
	256,
	512,
	4,
	3,
	time.Unix(1616508000, 0),
)
