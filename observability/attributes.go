package observability

import (
	"math"
	"strconv"

	"go.opentelemetry.io/otel/attribute"

	"github.com/attestantio/go-eth2-client/spec/phase0"
)

func BeaconSlotAttribute(slot phase0.Slot) attribute.KeyValue {
	return attribute.KeyValue{
		Key:   "beaconrunner.beacon.slot",
		Value: Uint64AttributeValue(uint64(slot)),
	}
}

func BeaconEpochAttribute(epoch phase0.Epoch) attribute.KeyValue {
	return attribute.KeyValue{
		Key:   "beaconrunner.beacon.epoch",
		Value: Uint64AttributeValue(uint64(epoch)),
	}
}

func DutyCountAttribute(count int) attribute.KeyValue {
	return attribute.Int("beaconrunner.duty_count", count)
}

func Uint64AttributeValue(value uint64) attribute.Value {
	if value <= math.MaxInt64 {
		return attribute.Int64Value(int64(value))
	}
	return attribute.StringValue(strconv.FormatUint(value, 10))
}
