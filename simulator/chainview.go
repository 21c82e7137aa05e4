package simulator

import (
	"sync"

	"github.com/attestantio/go-eth2-client/spec/altair"
	"github.com/attestantio/go-eth2-client/spec/phase0"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
	"github.com/prysmaticlabs/prysm/v4/async/event"
	"go.uber.org/zap"

	"github.com/casparschwa/beaconrunner/logging"
	"github.com/casparschwa/beaconrunner/logging/fields"
	"github.com/casparschwa/beaconrunner/validator"
)

const (
	// blockCacheSize bounds the root-indexed block cache. It has to cover
	// at least defaultWindowSlots of single-proposer slots.
	blockCacheSize = 64

	defaultWindowSlots = 32
)

// HeadEvent announces that a block extended the chain and became the head.
type HeadEvent struct {
	Slot          phase0.Slot
	Root          phase0.Root
	ProposerIndex phase0.ValidatorIndex
}

// ChainView is the simulation's stand-in for fork choice: a single growing
// chain whose head is the newest block received. It collects every artifact
// the validators emit and serves the KnownItems snapshots their decisions
// consume. Head changes fan out through an event feed.
//
// Safe for concurrent use.
type ChainView struct {
	logger *zap.Logger

	mu        sync.RWMutex
	headRoot  phase0.Root
	headSlot  phase0.Slot
	blocks    *lru.Cache[phase0.Root, *altair.SignedBeaconBlock]
	slotRoots map[phase0.Slot]phase0.Root
	votes     map[phase0.Slot][]*phase0.Attestation
	syncMsgs  map[phase0.Slot][]*altair.SyncCommitteeMessage
	window    phase0.Slot

	headFeed *EventFeed[HeadEvent]
}

// NewChainView returns a view rooted at the given genesis root. Artifacts
// older than windowSlots behind the head are dropped; zero selects the
// default window.
func NewChainView(logger *zap.Logger, genesisRoot phase0.Root, windowSlots uint64) (*ChainView, error) {
	if windowSlots == 0 {
		windowSlots = defaultWindowSlots
	}

	blocks, err := lru.New[phase0.Root, *altair.SignedBeaconBlock](blockCacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create block cache")
	}

	return &ChainView{
		logger:    logger.Named(logging.NameChainView),
		headRoot:  genesisRoot,
		blocks:    blocks,
		slotRoots: make(map[phase0.Slot]phase0.Root),
		votes:     make(map[phase0.Slot][]*phase0.Attestation),
		syncMsgs:  make(map[phase0.Slot][]*altair.SyncCommitteeMessage),
		window:    phase0.Slot(windowSlots),
		headFeed:  NewEventFeed[HeadEvent](),
	}, nil
}

// Head returns the current head root and its slot.
func (v *ChainView) Head() (phase0.Root, phase0.Slot) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	return v.headRoot, v.headSlot
}

// HasBlockAt reports whether a block for the given slot was received.
func (v *ChainView) HasBlockAt(slot phase0.Slot) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()

	_, ok := v.slotRoots[slot]
	return ok
}

// BlockByRoot returns the block with the given root, if still cached.
func (v *ChainView) BlockByRoot(root phase0.Root) (*altair.SignedBeaconBlock, bool) {
	return v.blocks.Get(root)
}

// SubscribeHead delivers head events to the given channel until the
// subscription is closed.
func (v *ChainView) SubscribeHead(ch chan<- HeadEvent) event.Subscription {
	return v.headFeed.Subscribe(ch)
}

// AddBlock hashes the block, stores it and advances the head. The newest
// block received wins; the simulation grows one chain and never reorgs.
// Subscribers are notified after the view is updated.
func (v *ChainView) AddBlock(block *altair.SignedBeaconBlock) (phase0.Root, error) {
	if block == nil || block.Message == nil {
		return phase0.Root{}, errors.New("malformed block")
	}

	root, err := block.Message.HashTreeRoot()
	if err != nil {
		return phase0.Root{}, errors.Wrap(err, "failed to hash block")
	}

	slot := block.Message.Slot

	v.mu.Lock()
	if _, ok := v.blocks.Get(block.Message.ParentRoot); !ok && block.Message.ParentRoot != v.headRoot {
		v.logger.Debug("block extends unknown parent",
			fields.Slot(slot),
			fields.BlockRoot(block.Message.ParentRoot))
	}
	v.blocks.Add(root, block)
	v.slotRoots[slot] = root
	if slot >= v.headSlot {
		v.headRoot = root
		v.headSlot = slot
	}
	v.prune()
	v.mu.Unlock()

	// Send after unlock, a subscriber may read the view.
	v.headFeed.Send(HeadEvent{
		Slot:          slot,
		Root:          root,
		ProposerIndex: block.Message.ProposerIndex,
	})

	return root, nil
}

// AddAttestation records a received attestation for snapshots.
func (v *ChainView) AddAttestation(att *phase0.Attestation) {
	if att == nil || att.Data == nil {
		return
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	v.votes[att.Data.Slot] = append(v.votes[att.Data.Slot], att)
	v.prune()
}

// AddSyncCommitteeMessages records received sync committee messages.
func (v *ChainView) AddSyncCommitteeMessages(msgs []*altair.SyncCommitteeMessage) {
	v.mu.Lock()
	defer v.mu.Unlock()

	for _, msg := range msgs {
		if msg == nil {
			continue
		}
		v.syncMsgs[msg.Slot] = append(v.syncMsgs[msg.Slot], msg)
	}
	v.prune()
}

// Snapshot captures the head and the windowed artifacts as one consistent
// KnownItems for a tick. Blocks are listed head first, walking parent links.
func (v *ChainView) Snapshot() *validator.KnownItems {
	v.mu.RLock()
	defer v.mu.RUnlock()

	known := &validator.KnownItems{
		HeadRoot: v.headRoot,
		HeadSlot: v.headSlot,
	}

	root := v.headRoot
	for i := phase0.Slot(0); i < v.window; i++ {
		block, ok := v.blocks.Get(root)
		if !ok {
			break
		}
		known.Blocks = append(known.Blocks, block)
		root = block.Message.ParentRoot
	}

	for _, votes := range v.votes {
		known.Attestations = append(known.Attestations, votes...)
	}
	for _, msgs := range v.syncMsgs {
		known.SyncCommitteeMessages = append(known.SyncCommitteeMessages, msgs...)
	}

	return known
}

// prune drops artifacts that fell out of the window. Callers must hold mu.
func (v *ChainView) prune() {
	if v.headSlot < v.window {
		return
	}
	horizon := v.headSlot - v.window

	for slot := range v.slotRoots {
		if slot < horizon {
			delete(v.slotRoots, slot)
		}
	}
	for slot := range v.votes {
		if slot < horizon {
			delete(v.votes, slot)
		}
	}
	for slot := range v.syncMsgs {
		if slot < horizon {
			delete(v.syncMsgs, slot)
		}
	}
}
