// Package boltdb is a single node storage on a bbolt file.
package boltdb

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
	"go.etcd.io/bbolt"
)

var (
	studentsBucket = []byte("Students")
	teachersBucket = []byte("Teachers")
	classesBucket  = []byte("Classes")
	paymentsBucket = []byte("Payments")

	buckets = [][]byte{studentsBucket, teachersBucket, classesBucket, paymentsBucket}

	errMissingKey = errors.New("key not found")
)

type DB struct {
	bolt *bbolt.DB
}

// Open opens (or creates) the database file & its buckets.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Wrap(err, "creating database directory")
	}
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, errors.Wrap(err, "opening bolt database")
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range buckets {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "creating buckets")
	}
	return &DB{bolt: db}, nil
}

func (db *DB) Close() error {
	return db.bolt.Close()
}

// entry wraps stored values with their insertion sequence.
type entry[T any] struct {
	Seq   uint64 `json:"seq"`
	Value T      `json:"value"`
}

func get[T any](tx *bbolt.Tx, bucket []byte, key string) (entry[T], error) {
	var e entry[T]
	v := tx.Bucket(bucket).Get([]byte(key))
	if v == nil {
		return e, errMissingKey
	}
	if err := json.Unmarshal(v, &e); err != nil {
		return e, errors.Wrapf(err, "decoding %s/%s", bucket, key)
	}
	return e, nil
}

func put[T any](tx *bbolt.Tx, bucket []byte, key string, e entry[T]) error {
	data, err := json.Marshal(e)
	if err != nil {
		return errors.Wrapf(err, "encoding %s/%s", bucket, key)
	}
	return tx.Bucket(bucket).Put([]byte(key), data)
}

// insert stores value under a new sequence; conflict is returned if key is taken.
func insert[T any](tx *bbolt.Tx, bucket []byte, key string, value T, conflict error) error {
	b := tx.Bucket(bucket)
	if b.Get([]byte(key)) != nil {
		return conflict
	}
	seq, err := b.NextSequence()
	if err != nil {
		return err
	}
	return put(tx, bucket, key, entry[T]{Seq: seq, Value: value})
}

// update applies fn to the stored value of key.
func update[T any](tx *bbolt.Tx, bucket []byte, key string, missing error, fn func(*T) error) error {
	e, err := get[T](tx, bucket, key)
	if err != nil {
		if err == errMissingKey {
			return missing
		}
		return err
	}
	if err = fn(&e.Value); err != nil {
		return err
	}
	return put(tx, bucket, key, e)
}

// all returns the bucket values in insertion order.
func all[T any](tx *bbolt.Tx, bucket []byte) ([]T, error) {
	var entries []entry[T]
	err := tx.Bucket(bucket).ForEach(func(k, v []byte) error {
		var e entry[T]
		if err := json.Unmarshal(v, &e); err != nil {
			return errors.Wrapf(err, "decoding %s/%s", bucket, k)
		}
		entries = append(entries, e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Seq < entries[j].Seq })
	values := make([]T, 0, len(entries))
	for _, e := range entries {
		values = append(values, e.Value)
	}
	return values, nil
}

func removeID(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, i := range ids {
		if i != id {
			out = append(out, i)
		}
	}
	return out
}
