package storage

import (
	"encoding/json"
	"fmt"

	bolt "go.etcd.io/bbolt"
)

// Store is the narrow persistence interface subsystems depend on. Values are
// JSON documents keyed by string ids inside named buckets.
type Store interface {
	CreateBucket(bucket string) error
	Get(bucket, id string, i interface{}) error
	Create(bucket string, fn func(id string) interface{}) error
	Update(bucket, id string, i interface{}) error
	Delete(bucket, id string) error
	List(bucket string, fn func(id string, v []byte) error) error
	Close() error
}

type store struct {
	db *bolt.DB
}

// NewStore opens (creating if necessary) a bbolt database at path.
func NewStore(path string) (Store, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", path, err)
	}
	return &store{db: db}, nil
}

func (s *store) Close() error {
	return s.db.Close()
}

func (s *store) CreateBucket(bucket string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucket))
		return err
	})
}

func (s *store) Get(bucket, id string, i interface{}) error {
	return s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return fmt.Errorf("storage: bucket %s does not exist", bucket)
		}
		v := b.Get([]byte(id))
		if v == nil {
			return fmt.Errorf("storage: no entry %s in bucket %s", id, bucket)
		}
		return json.Unmarshal(v, i)
	})
}

// Create stores the value returned by fn under a freshly allocated id.
func (s *store) Create(bucket string, fn func(id string) interface{}) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return fmt.Errorf("storage: bucket %s does not exist", bucket)
		}
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		id := fmt.Sprintf("%d", seq)
		data, err := json.Marshal(fn(id))
		if err != nil {
			return err
		}
		return b.Put([]byte(id), data)
	})
}

func (s *store) Update(bucket, id string, i interface{}) error {
	data, err := json.Marshal(i)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return fmt.Errorf("storage: bucket %s does not exist", bucket)
		}
		return b.Put([]byte(id), data)
	})
}

func (s *store) Delete(bucket, id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return fmt.Errorf("storage: bucket %s does not exist", bucket)
		}
		return b.Delete([]byte(id))
	})
}

func (s *store) List(bucket string, fn func(id string, v []byte) error) error {
	return s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return fmt.Errorf("storage: bucket %s does not exist", bucket)
		}
		return b.ForEach(func(k, v []byte) error {
			return fn(string(k), v)
		})
	})
}
