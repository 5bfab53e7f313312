package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/kilupskalvis/wsi/internal/container"
	bolt "go.etcd.io/bbolt"
)

// Bucket names used by the registry store.
var (
	bucketDefinitions = []byte("definitions")
	bucketMaterials   = []byte("materials")
	bucketProfiles    = []byte("profiles")
	bucketStacks      = []byte("stacks")
	bucketKV          = []byte("kv")
)

const activeStackKey = "ACTIVE_STACK"

// classBuckets maps each entity class to its bucket
var classBuckets = map[container.Class][]byte{
	container.ClassDefinition: bucketDefinitions,
	container.ClassMaterial:   bucketMaterials,
	container.ClassProfile:    bucketProfiles,
	container.ClassStack:      bucketStacks,
}

// Store is the bbolt-backed registry.
type Store struct {
	db *bolt.DB
}

// New opens or creates a registry database at the given path.
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Initialize creates all required buckets.
func (s *Store) Initialize() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		buckets := [][]byte{
			bucketDefinitions,
			bucketMaterials,
			bucketProfiles,
			bucketStacks,
			bucketKV,
		}
		for _, name := range buckets {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	})
}

// bucketFor resolves the bucket name for an entity class
func bucketFor(class container.Class) ([]byte, error) {
	name, ok := classBuckets[class]
	if !ok {
		return nil, fmt.Errorf("unknown entity class: %s", class)
	}
	return name, nil
}

// FindByID retrieves a container by class and identity.
// Returns (nil, nil) if not found.
func (s *Store) FindByID(ctx context.Context, class container.Class, id string) (*container.Container, error) {
	name, err := bucketFor(class)
	if err != nil {
		return nil, err
	}

	var c *container.Container
	err = s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(name)
		if bucket == nil {
			return nil
		}

		data := bucket.Get([]byte(id))
		if data == nil {
			return nil
		}

		c = &container.Container{}
		return json.Unmarshal(data, c)
	})
	if err != nil {
		return nil, err
	}

	return c, nil
}

// FindByClass returns all containers of one class sorted by identity.
func (s *Store) FindByClass(ctx context.Context, class container.Class) ([]*container.Container, error) {
	name, err := bucketFor(class)
	if err != nil {
		return nil, err
	}

	var result []*container.Container
	err = s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(name)
		if bucket == nil {
			return nil
		}

		return bucket.ForEach(func(k, v []byte) error {
			var c container.Container
			if err := json.Unmarshal(v, &c); err != nil {
				return fmt.Errorf("unmarshal container: %w", err)
			}
			result = append(result, &c)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})

	return result, nil
}

// Add stores a container, replacing any entity with the same class and identity.
func (s *Store) Add(ctx context.Context, c *container.Container) error {
	name, err := bucketFor(c.Class)
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(name)
		if bucket == nil {
			return fmt.Errorf("%s bucket not found", name)
		}

		data, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("marshal container: %w", err)
		}

		return bucket.Put([]byte(c.ID), data)
	})
}

// UniqueID returns a collision-free identity derived from base
func (s *Store) UniqueID(ctx context.Context, base string) (string, error) {
	return NextID(base, func(candidate string) (bool, error) {
		return s.Contains(ctx, candidate)
	})
}

// UniqueName returns a collision-free display name derived from base
func (s *Store) UniqueName(ctx context.Context, base string) (string, error) {
	return NextName(base, func(candidate string) (bool, error) {
		return s.Contains(ctx, candidate)
	})
}

// Contains reports whether any stored container uses s as identity or name.
func (s *Store) Contains(ctx context.Context, candidate string) (bool, error) {
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		for _, name := range classBuckets {
			bucket := tx.Bucket(name)
			if bucket == nil {
				continue
			}

			if bucket.Get([]byte(candidate)) != nil {
				found = true
				return nil
			}

			err := bucket.ForEach(func(k, v []byte) error {
				var c container.Container
				if err := json.Unmarshal(v, &c); err != nil {
					return fmt.Errorf("unmarshal container: %w", err)
				}
				if c.Name == candidate {
					found = true
				}
				return nil
			})
			if err != nil {
				return err
			}
			if found {
				return nil
			}
		}
		return nil
	})
	return found, err
}

// ActiveStack retrieves the active machine stack identity from the kv
// bucket. Returns ("", nil) if none is set.
func (s *Store) ActiveStack(ctx context.Context) (string, error) {
	var id string
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketKV)
		if bucket == nil {
			return nil
		}

		data := bucket.Get([]byte(activeStackKey))
		if data != nil {
			id = string(data)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	return id, nil
}

// SetActiveStack records the active machine stack identity in the kv bucket.
func (s *Store) SetActiveStack(ctx context.Context, id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketKV)
		if bucket == nil {
			return fmt.Errorf("kv bucket not found")
		}

		return bucket.Put([]byte(activeStackKey), []byte(id))
	})
}

// Verify that *Store implements Registry at compile time
var _ Registry = (*Store)(nil)
