package storage

import (
	"fmt"
	"log"
	"strings"
	"time"

	"go.etcd.io/bbolt"
)

type BBoltStorage struct {
	db     *bbolt.DB
	bucket string
}

func newBBolt(path string) Storage {
	p := strings.Split(path, ":")
	if len(p) != 2 {
		// Error
		log.Fatalf(`BBolt path %q does not have expected format "<path>:<bucket>".`, path)
	}

	db, err := bbolt.Open(p[0], 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		log.Fatalf("Could not open database %q: %v", p[0], err)
	}

	db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(p[1]))
		if err != nil {
			return fmt.Errorf("create bucket %q: %s", p[1], err)
		}
		return nil
	})

	return &BBoltStorage{
		db:     db,
		bucket: p[1],
	}
}

func (s *BBoltStorage) Write(k string, v []byte) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(s.bucket))
		return b.Put([]byte(k), v)
	})
}

func (s *BBoltStorage) Read(k string) ([]byte, error) {
	var v []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(s.bucket))
		val := b.Get([]byte(k))
		if val == nil {
			return fmt.Errorf("key %q not in bucket %q", k, s.bucket)
		}
		v = make([]byte, len(val))
		copy(v, val)
		return nil
	})
	return v, err
}

func (s *BBoltStorage) Close() {
	s.db.Close()
}

func init() {
	register("bbolt", newBBolt)
}
