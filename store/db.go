package store

import (
	"fmt"
	"math/big"
	"time"

	bolt "go.etcd.io/bbolt"

	"spvoracle.dev/core/consensus"
)

var (
	bucketHeaders = []byte("block_headers")
	bucketHeights = []byte("height_to_hash")
	bucketMeta    = []byte("meta")
)

var (
	metaKeyLatestBlockHash = []byte("latest_block_hash")
	metaKeyFirstBlockHash  = []byte("first_block_hash")
	metaKeyInitBlockHeight = []byte("init_block_height")
	metaKeyCheckPoW        = []byte("check_pow")
)

// Record is the persisted form of one observed header, corresponding to
// the "Header record" entries of blockHeaders. A record exists exactly when
// its hash key is present in the block_headers bucket; GetHeader reports a
// missing key as not found.
type Record struct {
	Header      consensus.Header
	Height      uint64
	IsCanonical bool
	ChainWork   *big.Int // signed; negative for pre-anchor extensions
}

// DB is a bbolt-backed store for block_headers (hash -> Record) and
// height_to_hash (height -> hash, canonical chain only), plus the two
// root pointers and the immutable init parameters. An optional bounded
// cache sits in front of header reads.
type DB struct {
	bdb   *bolt.DB
	cache *cache
}

// Open opens (creating if absent) a bbolt database at path and ensures its
// buckets exist.
func Open(path string, cacheSize int) (*DB, error) {
	bdb, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("store: open bbolt: %w", err)
	}

	if err := bdb.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketHeaders, bucketHeights, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("create bucket %s: %w", string(b), err)
			}
		}
		return nil
	}); err != nil {
		_ = bdb.Close()
		return nil, err
	}

	c, err := newCache(cacheSize)
	if err != nil {
		_ = bdb.Close()
		return nil, err
	}

	return &DB{bdb: bdb, cache: c}, nil
}

func (d *DB) Close() error {
	if d == nil || d.bdb == nil {
		return nil
	}
	return d.bdb.Close()
}

// Tx is a single bbolt transaction scoped to the header store's buckets.
// Every write issued through a Tx commits or rolls back together with
// every other write in the same Update call, giving Submit/BatchSubmit
// their required all-or-nothing semantics. Cache writes made through a Tx
// are staged in pendingCache and only applied to the shared cache once the
// underlying bbolt transaction actually commits, so a rolled-back Update
// never leaves stale data visible through the cache.
type Tx struct {
	tx           *bolt.Tx
	cache        *cache
	pendingCache map[[32]byte]Record
}

// Update runs fn inside a single read-write transaction. If fn returns an
// error, every write it made, including staged cache entries, is
// discarded.
func (d *DB) Update(fn func(*Tx) error) error {
	t := &Tx{cache: d.cache, pendingCache: make(map[[32]byte]Record)}
	err := d.bdb.Update(func(btx *bolt.Tx) error {
		t.tx = btx
		return fn(t)
	})
	if err == nil && d.cache != nil {
		for hash, rec := range t.pendingCache {
			d.cache.put(hash, rec)
		}
	}
	return err
}

// View runs fn inside a read-only transaction.
func (d *DB) View(fn func(*Tx) error) error {
	return d.bdb.View(func(btx *bolt.Tx) error {
		return fn(&Tx{tx: btx, cache: d.cache})
	})
}

func (t *Tx) PutHeader(hash [32]byte, rec Record) error {
	b, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	if err := t.tx.Bucket(bucketHeaders).Put(hash[:], b); err != nil {
		return err
	}
	if t.pendingCache != nil {
		t.pendingCache[hash] = rec
	}
	return nil
}

func (t *Tx) GetHeader(hash [32]byte) (Record, bool, error) {
	if t.pendingCache != nil {
		if rec, ok := t.pendingCache[hash]; ok {
			return rec, true, nil
		}
	}
	if t.cache != nil {
		if rec, ok := t.cache.get(hash); ok {
			return rec, true, nil
		}
	}
	v := t.tx.Bucket(bucketHeaders).Get(hash[:])
	if v == nil {
		return Record{}, false, nil
	}
	rec, err := decodeRecord(v)
	if err != nil {
		return Record{}, false, err
	}
	return rec, true, nil
}

func (t *Tx) PutHeightHash(height uint64, hash [32]byte) error {
	return t.tx.Bucket(bucketHeights).Put(encodeHeight(height), hash[:])
}

func (t *Tx) ClearHeightHash(height uint64) error {
	return t.tx.Bucket(bucketHeights).Delete(encodeHeight(height))
}

func (t *Tx) GetHeightHash(height uint64) ([32]byte, bool, error) {
	v := t.tx.Bucket(bucketHeights).Get(encodeHeight(height))
	if v == nil {
		return [32]byte{}, false, nil
	}
	var out [32]byte
	copy(out[:], v)
	return out, true, nil
}

func (t *Tx) SetLatestBlockHash(hash [32]byte) error {
	return t.tx.Bucket(bucketMeta).Put(metaKeyLatestBlockHash, hash[:])
}

func (t *Tx) LatestBlockHash() ([32]byte, bool, error) {
	return t.getMetaHash(metaKeyLatestBlockHash)
}

func (t *Tx) SetFirstBlockHash(hash [32]byte) error {
	return t.tx.Bucket(bucketMeta).Put(metaKeyFirstBlockHash, hash[:])
}

func (t *Tx) FirstBlockHash() ([32]byte, bool, error) {
	return t.getMetaHash(metaKeyFirstBlockHash)
}

func (t *Tx) getMetaHash(key []byte) ([32]byte, bool, error) {
	v := t.tx.Bucket(bucketMeta).Get(key)
	if v == nil {
		return [32]byte{}, false, nil
	}
	var out [32]byte
	copy(out[:], v)
	return out, true, nil
}

func (t *Tx) SetInitBlockHeight(height uint64) error {
	return t.tx.Bucket(bucketMeta).Put(metaKeyInitBlockHeight, encodeHeight(height))
}

func (t *Tx) InitBlockHeight() (uint64, bool, error) {
	v := t.tx.Bucket(bucketMeta).Get(metaKeyInitBlockHeight)
	if v == nil {
		return 0, false, nil
	}
	return decodeHeight(v), true, nil
}

func (t *Tx) SetCheckPoW(checkPoW bool) error {
	var b byte
	if checkPoW {
		b = 1
	}
	return t.tx.Bucket(bucketMeta).Put(metaKeyCheckPoW, []byte{b})
}

func (t *Tx) CheckPoW() (bool, bool, error) {
	v := t.tx.Bucket(bucketMeta).Get(metaKeyCheckPoW)
	if v == nil {
		return false, false, nil
	}
	return len(v) > 0 && v[0] == 1, true, nil
}
