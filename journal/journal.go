// Package journal keeps a bounded on-disk record of recent dispatches on
// the actuator unit.
package journal

import (
	"encoding/binary"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"go.etcd.io/bbolt"
)

var entriesBucket = []byte("entries")

// Entry is one dispatched packet.
type Entry struct {
	Seq      uint64    `json:"seq"`
	Time     time.Time `json:"time"`
	Peer     string    `json:"peer"`
	Raw      string    `json:"raw"`
	Kind     string    `json:"kind"`
	Commands []string  `json:"commands,omitempty"`
	Error    string    `json:"error,omitempty"`
}

type Journal struct {
	*bbolt.DB
	limit int
}

// Open opens or creates the journal at path, keeping at most limit entries.
func Open(path string, limit int) (*Journal, error) {
	if limit <= 0 {
		return nil, errors.Errorf("journal limit must be positive, got %d", limit)
	}
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "opening journal %q", path)
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(entriesBucket)
		return err
	}); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "creating journal bucket")
	}
	return &Journal{DB: db, limit: limit}, nil
}

func key(seq uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, seq)
	return k
}

// Record appends e and drops the oldest entries beyond the limit. The
// assigned sequence number is returned.
func (j *Journal) Record(e Entry) (uint64, error) {
	err := j.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(entriesBucket)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		e.Seq = seq
		payload, err := json.Marshal(e)
		if err != nil {
			return err
		}
		if err := b.Put(key(seq), payload); err != nil {
			return err
		}
		var keys [][]byte
		c := b.Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			keys = append(keys, append([]byte(nil), k...))
		}
		for i := 0; i < len(keys)-j.limit; i++ {
			if err := b.Delete(keys[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, errors.Wrap(err, "recording journal entry")
	}
	return e.Seq, nil
}

// Recent returns up to n entries, newest first.
func (j *Journal) Recent(n int) ([]Entry, error) {
	var entries []Entry
	err := j.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(entriesBucket).Cursor()
		for k, v := c.Last(); k != nil && len(entries) < n; k, v = c.Prev() {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				return errors.Errorf("could not unmarshal entry %x: %v", k, err)
			}
			entries = append(entries, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}
