package slotticker

import (
	"time"

	"github.com/attestantio/go-eth2-client/spec/phase0"
)

//go:generate go tool mockgen -package=mocks -destination=./mocks/slotticker.go -source=./slotticker.go

type Provider func() SlotTicker

type SlotTicker interface {
	// Next returns a channel that signals when the next slot should start.
	// Note: This function is not thread-safe and should be called in a serialized fashion.
	// Make sure no concurrent calls happen, as it can result in unexpected behavior.
	Next() <-chan time.Time
	// Slot returns the current slot number.
	// Note: Like the Next function, this function is not thread-safe.
	// It should be called in a serialized fashion after calling Next.
	Slot() phase0.Slot
}

type SlotTickerConfig struct {
	SlotDuration time.Duration
	GenesisTime  time.Time
}

type slotTicker struct {
	timer        *time.Timer
	slotDuration time.Duration
	genesisTime  time.Time
	slot         phase0.Slot
}

func NewSlotTicker(cfg SlotTickerConfig) SlotTicker {
	timer := time.NewTimer(0)
	<-timer.C
	return &slotTicker{
		timer:        timer,
		slotDuration: cfg.SlotDuration,
		genesisTime:  cfg.GenesisTime,
	}
}

// Next returns a channel that fires at the start of the next slot.
// Before genesis the first fire is at genesis itself, for slot 0.
func (s *slotTicker) Next() <-chan time.Time {
	timeSinceGenesis := time.Since(s.genesisTime)
	if timeSinceGenesis < 0 {
		s.resetTimer(-timeSinceGenesis)
		s.slot = 0
		return s.timer.C
	}

	nextSlot := phase0.Slot(timeSinceGenesis/s.slotDuration) + 1 // #nosec G115: genesis is in the past
	if nextSlot <= s.slot {
		// We already ticked for this slot, so we need to wait for the next one.
		nextSlot = s.slot + 1
	}
	nextSlotStartTime := s.genesisTime.Add(time.Duration(nextSlot) * s.slotDuration) // #nosec G115
	s.resetTimer(time.Until(nextSlotStartTime))
	s.slot = nextSlot
	return s.timer.C
}

// Slot returns the slot the last Next channel fires for.
func (s *slotTicker) Slot() phase0.Slot {
	return s.slot
}

func (s *slotTicker) resetTimer(d time.Duration) {
	if !s.timer.Stop() {
		select {
		case <-s.timer.C:
		default:
		}
	}
	s.timer.Reset(d)
}
