package simulator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/attestantio/go-eth2-client/spec/altair"
	"github.com/attestantio/go-eth2-client/spec/phase0"
	"github.com/prysmaticlabs/prysm/v4/async/event"
	"github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/casparschwa/beaconrunner/duties"
	"github.com/casparschwa/beaconrunner/ledger"
	"github.com/casparschwa/beaconrunner/logging"
	"github.com/casparschwa/beaconrunner/logging/fields"
	"github.com/casparschwa/beaconrunner/networkconfig"
	"github.com/casparschwa/beaconrunner/observability"
	"github.com/casparschwa/beaconrunner/slotticker"
	"github.com/casparschwa/beaconrunner/utils/hashmap"
	"github.com/casparschwa/beaconrunner/validator"
)

const (
	// blockPropagationDelay time to propagate around the instances
	// before kicking off duties for the block's slot.
	blockPropagationDelay = 200 * time.Millisecond

	// lateTickThreshold flags ticks arriving noticeably after slot start.
	lateTickThreshold = 100 * time.Millisecond
)

type SchedulerOptions struct {
	Network            networkconfig.Beacon
	Provider           duties.Provider
	DutyStore          *duties.Store
	Ledger             ledger.Ledger
	ChainView          *ChainView
	SlotTickerProvider slotticker.Provider
	Instances          []*Instance

	// BlockPropagateDelay overrides blockPropagationDelay when positive.
	BlockPropagateDelay time.Duration
}

// Scheduler drives the simulation clock. Every slot tick it refreshes duty
// assignments on epoch boundaries, then runs each instance's decisions:
// proposals at the start of the slot, attestations and sync committee
// messages once a third of the slot passed or a valid block arrived,
// whichever comes first. Artifacts land in the chain view and successful
// decisions are recorded in the ledger.
type Scheduler struct {
	logger             *zap.Logger
	network            networkconfig.Beacon
	provider           duties.Provider
	store              *duties.Store
	ledger             ledger.Ledger
	view               *ChainView
	slotTickerProvider slotticker.Provider

	instances []*Instance
	byIndex   *hashmap.Map[phase0.ValidatorIndex, *Instance]
	indices   []phase0.ValidatorIndex

	blockPropagateDelay time.Duration

	ticker   slotticker.SlotTicker
	waitCond *sync.Cond
	pool     *pool.ContextPool

	// headSlot, headSet and stopped are guarded by waitCond.L.
	headSlot phase0.Slot
	headSet  bool
	stopped  bool

	preparedEpoch phase0.Epoch
	prepared      bool
}

func NewScheduler(opts *SchedulerOptions) *Scheduler {
	store := opts.DutyStore
	if store == nil {
		store = duties.NewStore()
	}

	propagateDelay := opts.BlockPropagateDelay
	if propagateDelay <= 0 {
		propagateDelay = blockPropagationDelay
	}

	s := &Scheduler{
		network:            opts.Network,
		provider:           opts.Provider,
		store:              store,
		ledger:             opts.Ledger,
		view:               opts.ChainView,
		slotTickerProvider: opts.SlotTickerProvider,
		instances:          opts.Instances,
		byIndex:            hashmap.New[phase0.ValidatorIndex, *Instance](),

		blockPropagateDelay: propagateDelay,

		ticker:   opts.SlotTickerProvider(),
		waitCond: sync.NewCond(&sync.Mutex{}),
	}

	for _, instance := range opts.Instances {
		s.byIndex.Set(instance.Index(), instance)
		s.indices = append(s.indices, instance.Index())
	}

	return s
}

// Start hydrates persisted duty marks, prepares the current epoch's duties
// and begins ticking.
// Note: the initial duty preparation is blocking.
func (s *Scheduler) Start(ctx context.Context, logger *zap.Logger) error {
	s.logger = logger.Named(logging.NameScheduler)
	s.logger.Info("duty scheduler started",
		fields.Network(s.network.NetworkName()),
		fields.Count(len(s.instances)))

	for _, instance := range s.instances {
		pubKey := instance.PubKey()
		if err := s.ledger.Hydrate(pubKey[:], instance.State()); err != nil {
			return fmt.Errorf("failed to hydrate duty marks: %w", err)
		}
	}

	// This call is blocking.
	if err := s.prepare(ctx, s.network.EstimatedCurrentEpoch()); err != nil {
		return fmt.Errorf("failed to prepare initial duties: %w", err)
	}

	// Subscribe to head events. This allows us to go early for attestations
	// and sync committee messages when a block arrives before a third of the
	// slot.
	headEvents := make(chan HeadEvent)
	sub := s.view.SubscribeHead(headEvents)

	s.pool = pool.New().WithContext(ctx).WithCancelOnError()

	s.pool.Go(func(ctx context.Context) error {
		defer sub.Unsubscribe()
		s.handleHeadEvents(ctx, headEvents)
		return nil
	})
	s.pool.Go(func(ctx context.Context) error {
		return s.run(ctx)
	})

	go s.slotThirds(ctx)

	return nil
}

func (s *Scheduler) Wait() error {
	return s.pool.Wait()
}

// HealthCheck reports whether the scheduler still keeps up with the chain
// clock. The broadcaster advances the head slot every slot, so falling
// several slots behind means the driver stalled.
func (s *Scheduler) HealthCheck() error {
	s.waitCond.L.Lock()
	defer s.waitCond.L.Unlock()

	if s.stopped {
		return errors.New("scheduler stopped")
	}
	if !s.headSet {
		return nil
	}
	if current := s.network.EstimatedCurrentSlot(); current > s.headSlot+2 {
		return fmt.Errorf("slot processing lags behind, head slot %d vs current slot %d", s.headSlot, current)
	}
	return nil
}

type EventFeed[T any] struct {
	feed *event.Feed
}

func NewEventFeed[T any]() *EventFeed[T] {
	return &EventFeed[T]{
		feed: &event.Feed{},
	}
}

func (f *EventFeed[T]) Subscribe(ch chan<- T) event.Subscription {
	return f.feed.Subscribe(ch)
}

func (f *EventFeed[T]) Send(item T) {
	_ = f.feed.Send(item)
}

func (f *EventFeed[T]) FanOut(ctx context.Context, in <-chan T) {
	for {
		select {
		case <-ctx.Done():
			return
		case item, ok := <-in:
			if !ok {
				return
			}
			// Fan out the message to all subscribers.
			f.Send(item)
		}
	}
}

func (s *Scheduler) run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.ticker.Next():
			slot := s.ticker.Slot()
			if err := s.handleSlot(ctx, slot); err != nil {
				return err
			}
		}
	}
}

func (s *Scheduler) handleSlot(ctx context.Context, slot phase0.Slot) error {
	ctx, span := tracer.Start(
		observability.TraceContext(ctx, fmt.Sprintf("slot-%d", slot)),
		spanName("handle_slot"),
		trace.WithAttributes(observability.BeaconSlotAttribute(slot)))
	defer span.End()

	slotDelay := time.Since(s.network.SlotStartTime(slot))
	if slotDelay >= lateTickThreshold {
		const eventMsg = "late slot tick"
		s.logger.Debug(eventMsg,
			fields.Slot(slot),
			zap.Int64("slot_delay", slotDelay.Milliseconds()))
		span.AddEvent(eventMsg)
	}
	recordSlotDelay(ctx, slotDelay)

	epoch := s.network.EstimatedEpochAtSlot(slot)
	if !s.prepared || epoch != s.preparedEpoch {
		if err := s.prepare(ctx, epoch); err != nil {
			// Decisions keep running on the previous assignments until the
			// next boundary retries.
			s.logger.Warn("failed to prepare duties, keeping stale assignments",
				fields.Epoch(epoch), zap.Error(err))
		}
	}

	for _, instance := range s.instances {
		state := instance.State()
		state.Slot = slot
		state.ReceivedBlock = s.view.HasBlockAt(slot)
	}

	// Proposals go out at the start of the slot, waiting would defeat them.
	if err := s.forEachInstance(ctx, func(ctx context.Context, instance *Instance) error {
		return s.evaluateProposal(ctx, instance, slot)
	}); err != nil {
		return traceError(span, err)
	}

	s.waitOneThirdOrValidBlock(slot)
	if ctx.Err() != nil {
		return nil
	}

	for _, instance := range s.instances {
		instance.State().ReceivedBlock = s.view.HasBlockAt(slot)
	}

	if err := s.forEachInstance(ctx, func(ctx context.Context, instance *Instance) error {
		if err := s.evaluateAttestation(ctx, instance, slot); err != nil {
			return err
		}
		return s.evaluateSyncCommittee(ctx, instance, slot)
	}); err != nil {
		return traceError(span, err)
	}

	for _, instance := range s.instances {
		pubKey := instance.PubKey()
		if err := s.ledger.Record(pubKey[:], instance.State()); err != nil {
			s.logger.Error("failed to record duty marks",
				fields.Validator(pubKey[:]), zap.Error(err))
		}
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

func (s *Scheduler) forEachInstance(ctx context.Context, fn func(context.Context, *Instance) error) error {
	p := pool.New().WithContext(ctx).WithCancelOnError()
	for _, instance := range s.instances {
		instance := instance
		p.Go(func(ctx context.Context) error {
			return fn(ctx, instance)
		})
	}
	return p.Wait()
}

func (s *Scheduler) evaluateProposal(ctx context.Context, instance *Instance, slot phase0.Slot) error {
	logger := s.loggerWithInstanceContext(instance, slot)

	block, ok, err := instance.Behavior().Propose(ctx, time.Now(), instance.State(), s.view.Snapshot())
	if err != nil {
		return s.handleDecisionError(ctx, logger, validator.DutyProposer, err)
	}
	if !ok {
		return nil
	}

	root, err := s.view.AddBlock(block)
	if err != nil {
		logger.Error("failed to extend chain with proposed block", zap.Error(err))
		return nil
	}

	recordDecision(ctx, instance.Behavior().Name(), validator.DutyProposer)
	logger.Info("proposed block", fields.BlockRoot(root))
	return nil
}

func (s *Scheduler) evaluateAttestation(ctx context.Context, instance *Instance, slot phase0.Slot) error {
	logger := s.loggerWithInstanceContext(instance, slot)

	att, ok, err := instance.Behavior().Attest(ctx, time.Now(), instance.State(), s.view.Snapshot())
	if err != nil {
		return s.handleDecisionError(ctx, logger, validator.DutyAttester, err)
	}
	if !ok {
		return nil
	}

	s.view.AddAttestation(att)
	recordDecision(ctx, instance.Behavior().Name(), validator.DutyAttester)
	logger.Debug("attested", fields.BlockRoot(att.Data.BeaconBlockRoot))
	return nil
}

func (s *Scheduler) evaluateSyncCommittee(ctx context.Context, instance *Instance, slot phase0.Slot) error {
	logger := s.loggerWithInstanceContext(instance, slot)

	bundles, ok, err := instance.Behavior().SyncCommitteeMessages(ctx, time.Now(), instance.State(), s.view.Snapshot())
	if err != nil {
		return s.handleDecisionError(ctx, logger, validator.DutySyncCommittee, err)
	}
	if !ok {
		return nil
	}

	s.view.AddSyncCommitteeMessages(bundleMessages(bundles))
	recordDecision(ctx, instance.Behavior().Name(), validator.DutySyncCommittee)
	logger.Debug("emitted sync committee messages", fields.Count(len(bundles)))
	return nil
}

// handleDecisionError sorts a decision failure: producer failures are
// logged and retried on a later tick, anything else poisons the run and
// stops the scheduler.
func (s *Scheduler) handleDecisionError(ctx context.Context, logger *zap.Logger, kind validator.DutyKind, err error) error {
	var producerErr *validator.ProducerError
	if errors.As(err, &producerErr) {
		recordProducerFailure(ctx, kind)
		logger.Warn("producer failed, leaving marks untouched",
			fields.DutyKind(kind), zap.Error(err))
		return nil
	}

	logger.Error("invalid duty state", fields.DutyKind(kind), zap.Error(err))
	return err
}

// prepare fetches and indexes the epoch's duties, then rewires every
// instance's assignments. Runs on the scheduler goroutine only.
func (s *Scheduler) prepare(ctx context.Context, epoch phase0.Epoch) error {
	ctx, span := tracer.Start(ctx, spanName("prepare_duties"),
		trace.WithAttributes(observability.BeaconEpochAttribute(epoch)))
	defer span.End()

	start := time.Now()

	attesterDuties, err := s.provider.AttesterDuties(ctx, epoch, s.indices)
	if err != nil {
		return traceError(span, fmt.Errorf("failed to fetch attester duties: %w", err))
	}
	proposerDuties, err := s.provider.ProposerDuties(ctx, epoch, s.indices)
	if err != nil {
		return traceError(span, fmt.Errorf("failed to fetch proposer duties: %w", err))
	}
	syncCommitteeDuties, err := s.provider.SyncCommitteeDuties(ctx, epoch, s.indices)
	if err != nil {
		return traceError(span, fmt.Errorf("failed to fetch sync committee duties: %w", err))
	}

	period := s.network.EstimatedSyncCommitteePeriodAtEpoch(epoch)

	for _, duty := range attesterDuties {
		s.store.Attester.Add(epoch, duty.Slot, duty.ValidatorIndex, duty)
	}
	for _, duty := range proposerDuties {
		s.store.Proposer.Add(epoch, duty.Slot, duty.ValidatorIndex, duty)
	}
	s.store.SyncCommittee.Set(period, syncCommitteeDuties)

	// Keep one boundary of lookback, drop anything older.
	if epoch >= 2 {
		s.store.Attester.ResetEpoch(epoch - 2)
		s.store.Proposer.ResetEpoch(epoch - 2)
	}
	if period >= 2 {
		s.store.SyncCommittee.Reset(period - 2)
	}

	slotsPerEpoch := s.network.SlotsPerEpoch()
	for _, instance := range s.instances {
		state := instance.State()
		state.AttesterSlot = 0
		state.HasAttesterDuty = false
		state.AttesterCommittee = validator.CommitteeSeat{}
		state.ProposerDuties = make([]bool, slotsPerEpoch)
		state.SyncCommitteePositions = nil
	}

	for _, duty := range attesterDuties {
		instance, ok := s.byIndex.Get(duty.ValidatorIndex)
		if !ok {
			continue
		}
		state := instance.State()
		state.AttesterSlot = duty.Slot
		state.HasAttesterDuty = true
		state.AttesterCommittee = validator.CommitteeSeat{
			Index:    duty.CommitteeIndex,
			Length:   duty.CommitteeLength,
			Position: duty.ValidatorCommitteeIndex,
		}
	}
	for _, duty := range proposerDuties {
		instance, ok := s.byIndex.Get(duty.ValidatorIndex)
		if !ok {
			continue
		}
		instance.State().ProposerDuties[uint64(duty.Slot)%slotsPerEpoch] = true
	}
	for _, duty := range syncCommitteeDuties {
		instance, ok := s.byIndex.Get(duty.ValidatorIndex)
		if !ok {
			continue
		}
		instance.State().SyncCommitteePositions = duty.ValidatorSyncCommitteeIndices
	}

	s.preparedEpoch = epoch
	s.prepared = true

	s.logger.Info("prepared duties",
		fields.Epoch(epoch),
		fields.SyncPeriod(period),
		zap.Int("attester_duties", len(attesterDuties)),
		zap.Int("proposer_duties", len(proposerDuties)),
		zap.Int("sync_committee_duties", len(syncCommitteeDuties)),
		fields.Took(time.Since(start)))

	span.SetAttributes(observability.DutyCountAttribute(
		len(attesterDuties) + len(proposerDuties) + len(syncCommitteeDuties)))
	span.SetStatus(codes.Ok, "")
	return nil
}

// slotThirds wakes the attestation phase once a third of each slot passed.
func (s *Scheduler) slotThirds(ctx context.Context) {
	ticker := s.slotTickerProvider()
	for {
		select {
		case <-ctx.Done():
			// Release a parked slot handler so shutdown can finish.
			s.waitCond.L.Lock()
			s.stopped = true
			s.waitCond.Broadcast()
			s.waitCond.L.Unlock()
			return
		case <-ticker.Next():
			slot := ticker.Slot()

			oneThird := s.network.SlotStartTime(slot).Add(s.network.IntervalDuration())
			if waitDuration := time.Until(oneThird); waitDuration > 0 {
				time.Sleep(waitDuration)
			}

			// Lock the mutex before broadcasting.
			s.waitCond.L.Lock()
			if !s.headSet || slot > s.headSlot {
				s.headSlot = slot
				s.headSet = true
			}
			s.waitCond.Broadcast()
			s.waitCond.L.Unlock()
		}
	}
}

func (s *Scheduler) handleHeadEvents(ctx context.Context, in <-chan HeadEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case headEvent, ok := <-in:
			if !ok {
				return
			}
			s.handleHeadEvent(headEvent)
		}
	}
}

// handleHeadEvent releases the attestation phase early when a block for the
// current slot arrives before a third of the slot.
func (s *Scheduler) handleHeadEvent(headEvent HeadEvent) {
	if headEvent.Slot != s.network.EstimatedCurrentSlot() {
		return
	}

	oneThird := s.network.SlotStartTime(headEvent.Slot).Add(s.network.IntervalDuration())
	if !time.Now().Before(oneThird) {
		return
	}

	s.logger.Debug("block arrived before one third of the slot",
		fields.Slot(headEvent.Slot),
		fields.BlockRoot(headEvent.Root),
		zap.Duration("time_saved", time.Until(oneThird)))

	// Give the block some time to propagate around the instances before
	// kicking off duties for the block's slot.
	time.Sleep(s.blockPropagateDelay)

	s.waitCond.L.Lock()
	if !s.headSet || headEvent.Slot > s.headSlot {
		s.headSlot = headEvent.Slot
		s.headSet = true
	}
	s.waitCond.Broadcast()
	s.waitCond.L.Unlock()
}

// waitOneThirdOrValidBlock waits until one third of the slot has transpired
// or a valid block for the slot was observed, whichever comes first.
func (s *Scheduler) waitOneThirdOrValidBlock(slot phase0.Slot) {
	s.waitCond.L.Lock()
	for !s.stopped && !(s.headSet && s.headSlot >= slot) {
		s.waitCond.Wait()
	}
	s.waitCond.L.Unlock()
}

// loggerWithInstanceContext returns an instance of logger with the given
// validator's decision context.
func (s *Scheduler) loggerWithInstanceContext(instance *Instance, slot phase0.Slot) *zap.Logger {
	pubKey := instance.PubKey()
	return s.logger.
		With(fields.Behavior(instance.Behavior().Name())).
		With(fields.Validator(pubKey[:])).
		With(fields.CurrentSlot(s.network.EstimatedCurrentSlot())).
		With(fields.Slot(slot)).
		With(fields.Epoch(s.network.EstimatedEpochAtSlot(slot))).
		With(fields.StartTimeUnixMilli(s.network.SlotStartTime(slot)))
}

func bundleMessages(bundles []*validator.SyncCommitteeBundle) []*altair.SyncCommitteeMessage {
	messages := make([]*altair.SyncCommitteeMessage, 0, len(bundles))
	for _, bundle := range bundles {
		messages = append(messages, bundle.Message)
	}
	return messages
}
