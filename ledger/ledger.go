package ledger

import (
	"sync"

	"github.com/attestantio/go-eth2-client/spec/phase0"
	ssz "github.com/ferranbt/fastssz"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/casparschwa/beaconrunner/logging"
	"github.com/casparschwa/beaconrunner/logging/fields"
	"github.com/casparschwa/beaconrunner/storage/basedb"
	"github.com/casparschwa/beaconrunner/validator"
)

var storagePrefix = []byte("duty_ledger/")

// kindPrefixes maps a duty kind to its collection prefix.
var kindPrefixes = map[validator.DutyKind]string{
	validator.DutyAttester:      "last_att-",
	validator.DutyProposer:      "last_prop-",
	validator.DutySyncCommittee: "last_sync-",
}

// Ledger persists the last slot each validator acted in, per duty kind.
// It backs the repeat-action guard across restarts: marks recorded here
// survive a crash, while the in-memory ones do not.
type Ledger interface {
	// SaveMark persists the given slot as the last acted slot for the duty kind.
	SaveMark(pubKey []byte, kind validator.DutyKind, slot phase0.Slot) error

	// Mark returns the last acted slot for the duty kind, if any was recorded.
	Mark(pubKey []byte, kind validator.DutyKind) (phase0.Slot, bool, error)

	// RemoveMark deletes the recorded slot for the duty kind.
	RemoveMark(pubKey []byte, kind validator.DutyKind) error

	// Record persists every set mark of the given state in one transaction.
	Record(pubKey []byte, state *validator.DutyState) error

	// Hydrate loads the recorded marks into the given state. Marks with no
	// record are left untouched.
	Hydrate(pubKey []byte, state *validator.DutyState) error
}

type ledger struct {
	db     basedb.Database
	logger *zap.Logger
	lock   sync.RWMutex

	prefix []byte
}

// New returns a Ledger persisting marks under a fixed prefix in the given db.
func New(db basedb.Database, logger *zap.Logger) Ledger {
	return &ledger{
		db:     db,
		logger: logger.Named(logging.NameDutyLedger),
		prefix: storagePrefix,
	}
}

func (l *ledger) objPrefix(kind validator.DutyKind) ([]byte, error) {
	obj, ok := kindPrefixes[kind]
	if !ok {
		return nil, errors.Errorf("unknown duty kind: %d", kind)
	}
	return append(l.prefix, []byte(obj)...), nil
}

func (l *ledger) SaveMark(pubKey []byte, kind validator.DutyKind, slot phase0.Slot) error {
	l.lock.Lock()
	defer l.lock.Unlock()

	if pubKey == nil {
		return errors.New("pubKey must not be nil")
	}

	prefix, err := l.objPrefix(kind)
	if err != nil {
		return err
	}

	// Slot 0 is a real slot. Presence of the key is what distinguishes
	// "acted at slot 0" from "never acted", so 0 is stored like any other.
	var data []byte
	data = ssz.MarshalUint64(data, uint64(slot))

	return l.db.Set(prefix, pubKey, data)
}

func (l *ledger) Mark(pubKey []byte, kind validator.DutyKind) (phase0.Slot, bool, error) {
	l.lock.RLock()
	defer l.lock.RUnlock()

	if pubKey == nil {
		return 0, false, errors.New("pubKey must not be nil")
	}

	prefix, err := l.objPrefix(kind)
	if err != nil {
		return 0, false, err
	}

	obj, found, err := l.db.Get(prefix, pubKey)
	if err != nil {
		return 0, found, errors.Wrapf(err, "could not get %s mark from db", kind)
	}
	if !found {
		return 0, false, nil
	}
	if len(obj.Value) == 0 {
		return 0, found, errors.Errorf("%s mark value is empty", kind)
	}

	return phase0.Slot(ssz.UnmarshallUint64(obj.Value)), found, nil
}

func (l *ledger) RemoveMark(pubKey []byte, kind validator.DutyKind) error {
	l.lock.Lock()
	defer l.lock.Unlock()

	prefix, err := l.objPrefix(kind)
	if err != nil {
		return err
	}

	return l.db.Delete(prefix, pubKey)
}

func (l *ledger) Record(pubKey []byte, state *validator.DutyState) error {
	l.lock.Lock()
	defer l.lock.Unlock()

	if pubKey == nil {
		return errors.New("pubKey must not be nil")
	}
	if state == nil {
		return errors.New("state must not be nil")
	}

	marks := []struct {
		kind validator.DutyKind
		mark validator.SlotMark
	}{
		{validator.DutyAttester, state.LastAttested},
		{validator.DutyProposer, state.LastProposed},
		{validator.DutySyncCommittee, state.LastSyncCommittee},
	}

	persisted := 0
	err := l.db.Update(func(txn basedb.Txn) error {
		for _, m := range marks {
			slot, ok := m.mark.Slot()
			if !ok {
				continue
			}

			prefix, err := l.objPrefix(m.kind)
			if err != nil {
				return err
			}

			var data []byte
			data = ssz.MarshalUint64(data, uint64(slot))

			if err := txn.Set(prefix, pubKey, data); err != nil {
				return errors.Wrapf(err, "could not save %s mark", m.kind)
			}
			persisted++
		}
		return nil
	})
	if err != nil {
		return err
	}

	l.logger.Debug("recorded duty marks",
		fields.Validator(pubKey),
		fields.Count(persisted))
	return nil
}

func (l *ledger) Hydrate(pubKey []byte, state *validator.DutyState) error {
	if state == nil {
		return errors.New("state must not be nil")
	}

	if slot, found, err := l.Mark(pubKey, validator.DutyAttester); err != nil {
		return err
	} else if found {
		state.LastAttested = validator.MarkAt(slot)
	}

	if slot, found, err := l.Mark(pubKey, validator.DutyProposer); err != nil {
		return err
	} else if found {
		state.LastProposed = validator.MarkAt(slot)
	}

	if slot, found, err := l.Mark(pubKey, validator.DutySyncCommittee); err != nil {
		return err
	} else if found {
		state.LastSyncCommittee = validator.MarkAt(slot)
	}

	return nil
}
