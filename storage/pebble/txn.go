package pebble

import (
	"io"

	"github.com/cockroachdb/pebble"

	"github.com/casparschwa/beaconrunner/storage/basedb"
)

type pebbleTxn struct {
	batch *pebble.Batch
	db    *PebbleDB
}

func newTxn(batch *pebble.Batch, db *PebbleDB) basedb.Txn {
	return &pebbleTxn{
		batch: batch,
		db:    db,
	}
}

func (t *pebbleTxn) Commit() error {
	return t.batch.Commit(pebble.Sync)
}

func (t *pebbleTxn) Discard() {
	_ = t.batch.Close()
}

func (t *pebbleTxn) Set(prefix []byte, key []byte, value []byte) error {
	return t.batch.Set(append(prefix, key...), value, nil)
}

func (t *pebbleTxn) SetMany(prefix []byte, n int, next func(int) (basedb.Obj, error)) error {
	for i := range n {
		item, err := next(i)
		if err != nil {
			return err
		}
		if err := t.batch.Set(append(prefix, item.Key...), item.Value, nil); err != nil {
			return err
		}
	}
	return nil
}

func (t *pebbleTxn) Get(prefix []byte, key []byte) (basedb.Obj, bool, error) {
	return getter(key, func(key []byte) ([]byte, io.Closer, error) {
		return t.batch.Get(append(prefix, key...))
	})
}

func (t *pebbleTxn) GetMany(prefix []byte, keys [][]byte, iterator func(basedb.Obj) error) error {
	return manyGetter(keys, func(key []byte) ([]byte, io.Closer, error) {
		return t.batch.Get(append(prefix, key...))
	}, iterator)
}

func (t *pebbleTxn) GetAll(prefix []byte, fn func(int, basedb.Obj) error) error {
	iter, err := makePrefixIter(t.batch, prefix)
	if err != nil {
		return err
	}

	defer func() { _ = iter.Close() }()

	return allGetter(iter, prefix, fn)
}

func (t *pebbleTxn) Delete(prefix []byte, key []byte) error {
	return t.batch.Delete(append(prefix, key...), nil)
}

type pebbleReadTxn struct {
	snapshot *pebble.Snapshot
}

func newReadTxn(snapshot *pebble.Snapshot) basedb.ReadTxn {
	return &pebbleReadTxn{snapshot: snapshot}
}

func (t *pebbleReadTxn) Discard() {
	_ = t.snapshot.Close()
}

func (t *pebbleReadTxn) Get(prefix []byte, key []byte) (basedb.Obj, bool, error) {
	return getter(key, func(key []byte) ([]byte, io.Closer, error) {
		return t.snapshot.Get(append(prefix, key...))
	})
}

func (t *pebbleReadTxn) GetMany(prefix []byte, keys [][]byte, iterator func(basedb.Obj) error) error {
	return manyGetter(keys, func(key []byte) ([]byte, io.Closer, error) {
		return t.snapshot.Get(append(prefix, key...))
	}, iterator)
}

func (t *pebbleReadTxn) GetAll(prefix []byte, fn func(int, basedb.Obj) error) error {
	iter, err := makePrefixIter(t.snapshot, prefix)
	if err != nil {
		return err
	}

	defer func() { _ = iter.Close() }()

	return allGetter(iter, prefix, fn)
}
