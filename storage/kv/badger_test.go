package kv

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/casparschwa/beaconrunner/logging"
	"github.com/casparschwa/beaconrunner/storage/basedb"
)

func setupDB(t *testing.T) *BadgerDB {
	db, err := NewInMemory(logging.TestLogger(t), basedb.Options{})
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, db.Close())
	})
	return db
}

func TestBadgerEndToEnd(t *testing.T) {
	db := setupDB(t)

	prefix := []byte("test")
	require.NoError(t, db.Set(prefix, []byte("a"), []byte("1")))
	require.NoError(t, db.Set(prefix, []byte("b"), []byte("2")))
	require.NoError(t, db.Set(prefix, []byte("c"), []byte("3")))

	obj, found, err := db.Get(prefix, []byte("b"))
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []byte("b"), obj.Key)
	require.Equal(t, []byte("2"), obj.Value)

	_, found, err = db.Get(prefix, []byte("missing"))
	require.NoError(t, err)
	require.False(t, found)

	count, err := db.CountPrefix(prefix)
	require.NoError(t, err)
	require.Equal(t, int64(3), count)

	require.NoError(t, db.Delete(prefix, []byte("b")))
	_, found, err = db.Get(prefix, []byte("b"))
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, db.DropPrefix(prefix))
	count, err = db.CountPrefix(prefix)
	require.NoError(t, err)
	require.Equal(t, int64(0), count)
}

func TestBadgerGetAll(t *testing.T) {
	db := setupDB(t)

	prefix := []byte("all")
	n := 250 // more than a single iterator prefetch
	err := db.SetMany(prefix, n, func(i int) (basedb.Obj, error) {
		seq := uint64(i)
		return basedb.Obj{Key: uInt64ToByteSlice(seq), Value: uInt64ToByteSlice(seq)}, nil
	})
	require.NoError(t, err)

	visited := 0
	err = db.GetAll(prefix, func(i int, obj basedb.Obj) error {
		require.Equal(t, obj.Key, obj.Value)
		visited++
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, n, visited)
}

func TestBadgerGetMany(t *testing.T) {
	db := setupDB(t)

	prefix := []byte("many")
	for i := 0; i < 10; i++ {
		require.NoError(t, db.Set(prefix, []byte(fmt.Sprintf("key-%d", i)), []byte(fmt.Sprintf("value-%d", i))))
	}

	keys := [][]byte{[]byte("key-1"), []byte("key-3"), []byte("key-404")}
	var got []string
	err := db.GetMany(prefix, keys, func(obj basedb.Obj) error {
		got = append(got, string(obj.Key)+"="+string(obj.Value))
		return nil
	})
	require.NoError(t, err)
	// missing keys are skipped, not errors
	require.Equal(t, []string{"key-1=value-1", "key-3=value-3"}, got)

	require.NoError(t, db.GetMany(prefix, nil, func(obj basedb.Obj) error {
		t.Fatal("should not be called")
		return nil
	}))
}

func TestBadgerTxn(t *testing.T) {
	db := setupDB(t)
	prefix := []byte("txn")

	t.Run("commit", func(t *testing.T) {
		txn := db.Begin()
		require.NoError(t, txn.Set(prefix, []byte("k"), []byte("v")))

		// visible within the transaction before commit
		obj, found, err := txn.Get(prefix, []byte("k"))
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, []byte("v"), obj.Value)

		require.NoError(t, txn.Commit())

		_, found, err = db.Get(prefix, []byte("k"))
		require.NoError(t, err)
		require.True(t, found)
	})

	t.Run("discard", func(t *testing.T) {
		txn := db.Begin()
		require.NoError(t, txn.Set(prefix, []byte("dropped"), []byte("v")))
		txn.Discard()

		_, found, err := db.Get(prefix, []byte("dropped"))
		require.NoError(t, err)
		require.False(t, found)
	})

	t.Run("read txn", func(t *testing.T) {
		require.NoError(t, db.Set(prefix, []byte("r"), []byte("v")))

		txn := db.BeginRead()
		defer txn.Discard()

		obj, found, err := txn.Get(prefix, []byte("r"))
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, []byte("v"), obj.Value)
	})
}

func TestBadgerUpdate(t *testing.T) {
	db := setupDB(t)
	prefix := []byte("update")

	err := db.Update(func(txn basedb.Txn) error {
		if err := txn.Set(prefix, []byte("a"), []byte("1")); err != nil {
			return err
		}
		return txn.Set(prefix, []byte("b"), []byte("2"))
	})
	require.NoError(t, err)

	count, err := db.CountPrefix(prefix)
	require.NoError(t, err)
	require.Equal(t, int64(2), count)

	// a failing update rolls back
	err = db.Update(func(txn basedb.Txn) error {
		if err := txn.Set(prefix, []byte("c"), []byte("3")); err != nil {
			return err
		}
		return fmt.Errorf("boom")
	})
	require.Error(t, err)

	_, found, err := db.Get(prefix, []byte("c"))
	require.NoError(t, err)
	require.False(t, found)
}

func TestBadgerUsing(t *testing.T) {
	db := setupDB(t)

	require.Equal(t, basedb.ReadWriter(db), db.Using(nil))
	require.Equal(t, basedb.Reader(db), db.UsingReader(nil))

	txn := db.Begin()
	defer txn.Discard()
	require.Equal(t, basedb.ReadWriter(txn), db.Using(txn))
	require.Equal(t, basedb.Reader(txn), db.UsingReader(txn))
}
