package storage

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/casparschwa/beaconrunner/storage/basedb"
	"github.com/casparschwa/beaconrunner/storage/kv"
	"github.com/casparschwa/beaconrunner/storage/pebble"
)

// GetStorageFactory opens the storage engine selected by options.
// An empty engine defaults to badger.
func GetStorageFactory(logger *zap.Logger, options basedb.Options) (basedb.Database, error) {
	switch options.Engine {
	case "", basedb.EngineBadger:
		return kv.New(logger, options)
	case basedb.EnginePebble:
		return pebble.New(logger, options)
	default:
		return nil, fmt.Errorf("storage engine not supported: %v", options.Engine)
	}
}
