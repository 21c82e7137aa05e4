package networkconfig

import "fmt"

var SupportedConfigs = map[string]*BeaconConfig{
	Mainnet.NetworkName():     Mainnet,
	Minimal.NetworkName():     Minimal,
	TestNetwork.NetworkName(): TestNetwork,
}

func GetNetworkByName(name string) (*BeaconConfig, error) {
	if network, ok := SupportedConfigs[name]; ok {
		return network, nil
	}

	return nil, fmt.Errorf("network not supported: %v", name)
}
