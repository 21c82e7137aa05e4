package fields

import (
	"fmt"
	"strconv"
	"time"

	"github.com/attestantio/go-eth2-client/spec/phase0"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/casparschwa/beaconrunner/logging/fields/stringer"
)

const (
	FieldAddress        = "address"
	FieldBehavior       = "behavior"
	FieldBlockRoot      = "block_root"
	FieldConfig         = "config"
	FieldCount          = "count"
	FieldCurrentSlot    = "current_slot"
	FieldDuration       = "duration"
	FieldDutyKind       = "duty"
	FieldEpoch          = "epoch"
	FieldErrors         = "errors"
	FieldGenesisTime    = "genesis_time"
	FieldName           = "name"
	FieldNetwork        = "network"
	FieldSlot           = "slot"
	FieldStartTimeMilli = "start_time_unix_milli"
	FieldSyncPeriod     = "sync_period"
	FieldTimeInSlot     = "time_in_slot"
	FieldTook           = "took"
	FieldUpdatedAt      = "updated_at"
	FieldValidator      = "validator"
	FieldValidatorIndex = "validator_index"
)

func Address(val string) zapcore.Field {
	return zap.String(FieldAddress, val)
}

func Behavior(val string) zapcore.Field {
	return zap.String(FieldBehavior, val)
}

func BlockRoot(val phase0.Root) zapcore.Field {
	return zap.Stringer(FieldBlockRoot, stringer.HexStringer{Val: val[:]})
}

func Config(val fmt.Stringer) zapcore.Field {
	return zap.Stringer(FieldConfig, val)
}

func Count(val int) zapcore.Field {
	return zap.Int(FieldCount, val)
}

func CurrentSlot(slot phase0.Slot) zapcore.Field {
	return zap.Stringer(FieldCurrentSlot, stringer.Uint64Stringer{Val: uint64(slot)})
}

func Duration(val time.Time) zapcore.Field {
	return zap.Stringer(FieldDuration, stringer.Float64Stringer{Val: time.Since(val).Seconds()})
}

func DutyKind(val fmt.Stringer) zapcore.Field {
	return zap.Stringer(FieldDutyKind, val)
}

func Epoch(val phase0.Epoch) zapcore.Field {
	return zap.Uint64(FieldEpoch, uint64(val))
}

func GenesisTime(val time.Time) zapcore.Field {
	return zap.Time(FieldGenesisTime, val)
}

func Name(val string) zapcore.Field {
	return zap.String(FieldName, val)
}

func Network(val string) zapcore.Field {
	return zap.String(FieldNetwork, val)
}

func Slot(val phase0.Slot) zapcore.Field {
	return zap.Uint64(FieldSlot, uint64(val))
}

func StartTimeUnixMilli(val time.Time) zapcore.Field {
	return zap.Stringer(FieldStartTimeMilli, stringer.FuncStringer{
		Fn: func() string {
			return strconv.Itoa(int(val.UnixMilli()))
		},
	})
}

func SyncPeriod(val uint64) zapcore.Field {
	return zap.Uint64(FieldSyncPeriod, val)
}

func TimeInSlot(val time.Duration) zapcore.Field {
	return zap.Duration(FieldTimeInSlot, val)
}

func Took(val time.Duration) zapcore.Field {
	return zap.Duration(FieldTook, val)
}

func UpdatedAt(val time.Time) zapcore.Field {
	return zap.Time(FieldUpdatedAt, val)
}

func Validator(pubKey []byte) zapcore.Field {
	return zap.Stringer(FieldValidator, stringer.HexStringer{Val: pubKey})
}

func ValidatorIndex(index phase0.ValidatorIndex) zapcore.Field {
	return zap.Uint64(FieldValidatorIndex, uint64(index))
}
