package simulator

import (
	"testing"
	"time"

	"github.com/attestantio/go-eth2-client/spec/altair"
	"github.com/attestantio/go-eth2-client/spec/phase0"
	"github.com/prysmaticlabs/go-bitfield"
	"github.com/stretchr/testify/require"

	"github.com/casparschwa/beaconrunner/logging"
)

func testGenesisRoot() phase0.Root {
	var root phase0.Root
	root[0] = 0x42
	return root
}

func makeBlock(slot phase0.Slot, proposer phase0.ValidatorIndex, parent phase0.Root) *altair.SignedBeaconBlock {
	return &altair.SignedBeaconBlock{
		Message: &altair.BeaconBlock{
			Slot:          slot,
			ProposerIndex: proposer,
			ParentRoot:    parent,
			Body: &altair.BeaconBlockBody{
				ETH1Data: &phase0.ETH1Data{
					BlockHash: make([]byte, 32),
				},
				SyncAggregate: &altair.SyncAggregate{
					SyncCommitteeBits: bitfield.NewBitvector512(),
				},
			},
		},
	}
}

func makeVote(slot phase0.Slot, root phase0.Root) *phase0.Attestation {
	return &phase0.Attestation{
		AggregationBits: bitfield.NewBitlist(4),
		Data: &phase0.AttestationData{
			Slot:            slot,
			BeaconBlockRoot: root,
			Source:          &phase0.Checkpoint{},
			Target:          &phase0.Checkpoint{Root: root},
		},
	}
}

func TestChainViewHeadAdvances(t *testing.T) {
	view, err := NewChainView(logging.TestLogger(t), testGenesisRoot(), 0)
	require.NoError(t, err)

	headRoot, headSlot := view.Head()
	require.Equal(t, testGenesisRoot(), headRoot)
	require.Equal(t, phase0.Slot(0), headSlot)

	root1, err := view.AddBlock(makeBlock(1, 0, testGenesisRoot()))
	require.NoError(t, err)

	headRoot, headSlot = view.Head()
	require.Equal(t, root1, headRoot)
	require.Equal(t, phase0.Slot(1), headSlot)

	root3, err := view.AddBlock(makeBlock(3, 2, root1))
	require.NoError(t, err)

	// A block older than the head is kept but does not move the head.
	_, err = view.AddBlock(makeBlock(2, 1, root1))
	require.NoError(t, err)

	headRoot, headSlot = view.Head()
	require.Equal(t, root3, headRoot)
	require.Equal(t, phase0.Slot(3), headSlot)

	require.True(t, view.HasBlockAt(1))
	require.True(t, view.HasBlockAt(2))
	require.True(t, view.HasBlockAt(3))
	require.False(t, view.HasBlockAt(4))

	block, found := view.BlockByRoot(root1)
	require.True(t, found)
	require.Equal(t, phase0.Slot(1), block.Message.Slot)
}

func TestChainViewRejectsMalformedBlock(t *testing.T) {
	view, err := NewChainView(logging.TestLogger(t), testGenesisRoot(), 0)
	require.NoError(t, err)

	_, err = view.AddBlock(nil)
	require.Error(t, err)

	_, err = view.AddBlock(&altair.SignedBeaconBlock{})
	require.Error(t, err)

	require.False(t, view.HasBlockAt(0))
}

func TestChainViewSnapshotWalksParents(t *testing.T) {
	view, err := NewChainView(logging.TestLogger(t), testGenesisRoot(), 0)
	require.NoError(t, err)

	root1, err := view.AddBlock(makeBlock(1, 0, testGenesisRoot()))
	require.NoError(t, err)
	root2, err := view.AddBlock(makeBlock(2, 1, root1))
	require.NoError(t, err)

	view.AddAttestation(makeVote(1, root1))
	view.AddAttestation(makeVote(2, root2))
	view.AddSyncCommitteeMessages([]*altair.SyncCommitteeMessage{
		{Slot: 2, BeaconBlockRoot: root2, ValidatorIndex: 3},
		nil,
	})

	known := view.Snapshot()
	require.Equal(t, root2, known.HeadRoot)
	require.Equal(t, phase0.Slot(2), known.HeadSlot)

	// Head first, then its ancestors.
	require.Len(t, known.Blocks, 2)
	require.Equal(t, phase0.Slot(2), known.Blocks[0].Message.Slot)
	require.Equal(t, phase0.Slot(1), known.Blocks[1].Message.Slot)

	require.Len(t, known.Attestations, 2)
	require.Len(t, known.SyncCommitteeMessages, 1)
}

func TestChainViewPrunesOldArtifacts(t *testing.T) {
	view, err := NewChainView(logging.TestLogger(t), testGenesisRoot(), 4)
	require.NoError(t, err)

	parent := testGenesisRoot()
	for slot := phase0.Slot(1); slot <= 6; slot++ {
		view.AddAttestation(makeVote(slot, parent))
		root, err := view.AddBlock(makeBlock(slot, 0, parent))
		require.NoError(t, err)
		parent = root
	}

	// Head is at slot 6, the window covers slots 2 and newer.
	require.False(t, view.HasBlockAt(1))
	require.True(t, view.HasBlockAt(2))
	require.True(t, view.HasBlockAt(6))

	known := view.Snapshot()
	for _, att := range known.Attestations {
		require.GreaterOrEqual(t, att.Data.Slot, phase0.Slot(2))
	}
}

func TestChainViewHeadSubscription(t *testing.T) {
	view, err := NewChainView(logging.TestLogger(t), testGenesisRoot(), 0)
	require.NoError(t, err)

	events := make(chan HeadEvent, 1)
	sub := view.SubscribeHead(events)
	defer sub.Unsubscribe()

	root, err := view.AddBlock(makeBlock(5, 7, testGenesisRoot()))
	require.NoError(t, err)

	select {
	case headEvent := <-events:
		require.Equal(t, phase0.Slot(5), headEvent.Slot)
		require.Equal(t, root, headEvent.Root)
		require.Equal(t, phase0.ValidatorIndex(7), headEvent.ProposerIndex)
	case <-time.After(time.Second):
		require.FailNow(t, "timed out waiting for head event")
	}
}
