package bolt

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/fastygo/todo/domain"
	"github.com/fastygo/todo/repository"
)

var (
	tasksBucket = []byte("tasks")
	orderBucket = []byte("tasks_order")
)

var _ repository.TaskDataSource = (*Source)(nil)

// Source is the local TaskDataSource persisted in an embedded bbolt file.
// Tasks live in the "tasks" bucket keyed by id; "tasks_order" maps a
// sequence number to the id so listings keep insertion order.
type Source struct {
	db *bolt.DB
}

type record struct {
	Seq  uint64      `json:"seq"`
	Task domain.Task `json:"task"`
}

// Open initializes the bbolt file and ensures both buckets exist.
func Open(path string) (*Source, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(tasksBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(orderBucket)
		return err
	}); err != nil {
		db.Close()
		return nil, err
	}

	return &Source{db: db}, nil
}

// GetTasks fails with domain.ErrDataNotAvailable when the store is empty.
func (s *Source) GetTasks(context.Context) ([]domain.Task, error) {
	var tasks []domain.Task
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(tasksBucket)
		c := tx.Bucket(orderBucket).Cursor()
		for k, id := c.First(); k != nil; k, id = c.Next() {
			rec, err := decode(data.Get(id))
			if err != nil {
				return err
			}
			if rec != nil {
				tasks = append(tasks, rec.Task)
			}
		}
		return nil
	})
	if err != nil {
		return nil, domain.NotAvailable(err)
	}
	if len(tasks) == 0 {
		return nil, domain.ErrDataNotAvailable
	}
	return tasks, nil
}

func (s *Source) GetTask(_ context.Context, id string) (domain.Task, error) {
	var rec *record
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		rec, err = decode(tx.Bucket(tasksBucket).Get([]byte(id)))
		return err
	})
	if err != nil {
		return domain.Task{}, domain.NotAvailable(err)
	}
	if rec == nil {
		return domain.Task{}, domain.ErrDataNotAvailable
	}
	return rec.Task, nil
}

func (s *Source) SaveTask(_ context.Context, task domain.Task) error {
	if task.ID == "" {
		return domain.ErrMissingTaskID
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return put(tx, task)
	})
}

func (s *Source) CompleteTask(ctx context.Context, task domain.Task) error {
	return s.SaveTask(ctx, task.WithCompleted(true))
}

func (s *Source) CompleteTaskByID(_ context.Context, id string) error {
	return s.setCompleted(id, true)
}

func (s *Source) ActivateTask(ctx context.Context, task domain.Task) error {
	return s.SaveTask(ctx, task.WithCompleted(false))
}

func (s *Source) ActivateTaskByID(_ context.Context, id string) error {
	return s.setCompleted(id, false)
}

func (s *Source) ClearCompletedTasks(context.Context) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		var completed []string
		err := tx.Bucket(tasksBucket).ForEach(func(_, v []byte) error {
			rec, err := decode(v)
			if err != nil {
				return err
			}
			if rec.Task.Completed {
				completed = append(completed, rec.Task.ID)
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, id := range completed {
			if err := remove(tx, id); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Source) RefreshTasks(context.Context) {}

func (s *Source) DeleteTask(_ context.Context, id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return remove(tx, id)
	})
}

func (s *Source) DeleteAllTasks(context.Context) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{tasksBucket, orderBucket} {
			if err := tx.DeleteBucket(name); err != nil {
				return err
			}
			if _, err := tx.CreateBucket(name); err != nil {
				return err
			}
		}
		return nil
	})
}

// Close closes the bbolt database.
func (s *Source) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping reports whether the database is still open.
func (s *Source) Ping(context.Context) error {
	return s.db.View(func(tx *bolt.Tx) error {
		if tx.Bucket(tasksBucket) == nil {
			return fmt.Errorf("bucket %s missing", tasksBucket)
		}
		return nil
	})
}

func (s *Source) setCompleted(id string, completed bool) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		rec, err := decode(tx.Bucket(tasksBucket).Get([]byte(id)))
		if err != nil || rec == nil {
			return err
		}
		return put(tx, rec.Task.WithCompleted(completed))
	})
}

// put upserts task, allocating an order slot only on first insert.
func put(tx *bolt.Tx, task domain.Task) error {
	data := tx.Bucket(tasksBucket)
	key := []byte(task.ID)

	existing, err := decode(data.Get(key))
	if err != nil {
		return err
	}

	rec := record{Task: task}
	if existing != nil {
		rec.Seq = existing.Seq
	} else {
		order := tx.Bucket(orderBucket)
		seq, err := order.NextSequence()
		if err != nil {
			return err
		}
		rec.Seq = seq
		if err := order.Put(seqKey(seq), key); err != nil {
			return err
		}
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return data.Put(key, payload)
}

func remove(tx *bolt.Tx, id string) error {
	data := tx.Bucket(tasksBucket)
	rec, err := decode(data.Get([]byte(id)))
	if err != nil || rec == nil {
		return err
	}
	if err := tx.Bucket(orderBucket).Delete(seqKey(rec.Seq)); err != nil {
		return err
	}
	return data.Delete([]byte(id))
}

func decode(raw []byte) (*record, error) {
	if raw == nil {
		return nil, nil
	}
	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode task record: %w", err)
	}
	return &rec, nil
}

func seqKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}
