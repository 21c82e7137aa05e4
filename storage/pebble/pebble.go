package pebble

import (
	"context"
	"errors"
	"io"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"go.uber.org/zap"

	"github.com/casparschwa/beaconrunner/storage/basedb"
)

var _ basedb.Database = &PebbleDB{}

// PebbleDB implements basedb.Database on top of a pebble store.
type PebbleDB struct {
	logger *zap.Logger
	db     *pebble.DB
}

// New creates a persistent DB instance.
func New(logger *zap.Logger, options basedb.Options) (*PebbleDB, error) {
	return createDB(logger, options, nil)
}

// NewInMemory creates an in-memory DB instance.
func NewInMemory(logger *zap.Logger, options basedb.Options) (*PebbleDB, error) {
	return createDB(logger, options, vfs.NewMem())
}

func createDB(logger *zap.Logger, options basedb.Options, fs vfs.FS) (*PebbleDB, error) {
	opts := &pebble.Options{
		FS: fs, // nil means the default filesystem
	}
	if options.Reporting {
		opts.Logger = newLogger(logger)
	} else {
		opts.Logger = newLogger(zap.NewNop())
	}
	db, err := pebble.Open(options.Path, opts)
	if err != nil {
		return nil, err
	}
	return &PebbleDB{
		logger: logger,
		db:     db,
	}, nil
}

// Pebble returns the underlying pebble.DB
func (pdb *PebbleDB) Pebble() *pebble.DB {
	return pdb.db
}

func (pdb *PebbleDB) Get(prefix []byte, key []byte) (basedb.Obj, bool, error) {
	return getter(key, func(key []byte) ([]byte, io.Closer, error) {
		return pdb.db.Get(append(prefix, key...))
	})
}

func (pdb *PebbleDB) Set(prefix, key, value []byte) error {
	return pdb.db.Set(append(prefix, key...), value, pebble.Sync)
}

func (pdb *PebbleDB) Delete(prefix, key []byte) error {
	return pdb.db.Delete(append(prefix, key...), pebble.Sync)
}

func (pdb *PebbleDB) GetMany(prefix []byte, keys [][]byte, fn func(basedb.Obj) error) error {
	return manyGetter(keys, func(key []byte) ([]byte, io.Closer, error) {
		return pdb.db.Get(append(prefix, key...))
	}, fn)
}

func (pdb *PebbleDB) GetAll(prefix []byte, fn func(int, basedb.Obj) error) error {
	iter, err := makePrefixIter(pdb.db, prefix)
	if err != nil {
		return err
	}

	defer func() { _ = iter.Close() }()

	return allGetter(iter, prefix, fn)
}

func (pdb *PebbleDB) SetMany(prefix []byte, n int, next func(int) (basedb.Obj, error)) error {
	batch := pdb.db.NewBatch()
	txn := newTxn(batch, pdb)
	if err := txn.SetMany(prefix, n, next); err != nil {
		_ = batch.Close()
		return err
	}
	return batch.Commit(pebble.Sync)
}

func (pdb *PebbleDB) Begin() basedb.Txn {
	return newTxn(pdb.db.NewIndexedBatch(), pdb)
}

func (pdb *PebbleDB) BeginRead() basedb.ReadTxn {
	return newReadTxn(pdb.db.NewSnapshot())
}

func (pdb *PebbleDB) Using(rw basedb.ReadWriter) basedb.ReadWriter {
	if rw == nil {
		return pdb
	}
	return rw
}

func (pdb *PebbleDB) UsingReader(r basedb.Reader) basedb.Reader {
	if r == nil {
		return pdb
	}
	return r
}

func (pdb *PebbleDB) CountPrefix(prefix []byte) (int64, error) {
	iter, err := makePrefixIter(pdb.db, prefix)
	if err != nil {
		return 0, err
	}

	defer func() { _ = iter.Close() }()

	count := int64(0)
	for iter.First(); iter.Valid(); iter.Next() {
		count++
	}

	if err := iter.Error(); err != nil {
		return 0, err
	}

	return count, nil
}

func (pdb *PebbleDB) DropPrefix(prefix []byte) error {
	batch := pdb.db.NewBatch()
	iter, err := makePrefixIter(pdb.db, prefix)
	if err != nil {
		return err
	}

	defer func() {
		_ = iter.Close()
		_ = batch.Close() // never returns an error
	}()

	for iter.First(); iter.Valid(); iter.Next() {
		if err := batch.Delete(iter.Key(), nil); err != nil {
			return err
		}
	}

	if err := iter.Error(); err != nil {
		return err
	}

	return batch.Commit(pebble.Sync)
}

func (pdb *PebbleDB) Update(fn func(basedb.Txn) error) error {
	batch := pdb.db.NewIndexedBatch()
	txn := newTxn(batch, pdb)
	if err := fn(txn); err != nil {
		_ = batch.Close()
		return err
	}
	return batch.Commit(pebble.Sync)
}

func (pdb *PebbleDB) QuickGC(context.Context) error {
	return nil // pebble does not require periodic gc
}

func (pdb *PebbleDB) FullGC(context.Context) error {
	iter, err := pdb.db.NewIter(nil)
	if err != nil {
		return err
	}

	var first, last []byte

	if iter.First() {
		first = append(first, iter.Key()...)
	}
	if iter.Last() {
		last = append(last, iter.Key()...)
	}
	if err := iter.Close(); err != nil {
		return err
	}

	if len(first) == 0 {
		// Empty store, nothing to compact.
		return nil
	}

	// Compact requires start < end, pad the bound for single-key stores.
	return pdb.db.Compact(first, append(last, 0), true)
}

func (pdb *PebbleDB) Close() error {
	return pdb.db.Close()
}

func makePrefixIter(dbOrBatch pebble.Reader, prefix []byte) (*pebble.Iterator, error) {
	keyUpperBound := func(b []byte) []byte {
		end := make([]byte, len(b))
		copy(end, b)
		for i := len(end) - 1; i >= 0; i-- {
			end[i] = end[i] + 1
			if end[i] != 0 {
				return end[:i+1]
			}
		}
		return nil // no upper-bound
	}

	return dbOrBatch.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
}

func getter(key []byte, fetch func(key []byte) ([]byte, io.Closer, error)) (basedb.Obj, bool, error) {
	value, closer, err := fetch(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return basedb.Obj{}, false, nil
		}
		return basedb.Obj{}, true, err
	}

	valCopy := make([]byte, len(value))
	copy(valCopy, value)
	if err := closer.Close(); err != nil {
		return basedb.Obj{}, true, err
	}
	return basedb.Obj{
		Key:   key,
		Value: valCopy,
	}, true, nil
}

func manyGetter(keys [][]byte, fetch func(key []byte) ([]byte, io.Closer, error), fn func(basedb.Obj) error) error {
	for _, key := range keys {
		obj, found, err := getter(key, fetch)
		if err != nil {
			return err
		}
		if !found {
			// missing keys are skipped, same as the badger engine
			continue
		}
		if err := fn(obj); err != nil {
			return err
		}
	}
	return nil
}

func allGetter(iter *pebble.Iterator, prefix []byte, fn func(int, basedb.Obj) error) error {
	i := 0
	for iter.First(); iter.Valid(); iter.Next() {
		v, err := iter.ValueAndErr()
		if err != nil {
			return err
		}

		key := make([]byte, len(iter.Key())-len(prefix))
		copy(key, iter.Key()[len(prefix):])

		val := make([]byte, len(v))
		copy(val, v)

		if err := fn(i, basedb.Obj{
			Key:   key,
			Value: val,
		}); err != nil {
			return err
		}
		i++
	}

	return iter.Error()
}
