package correction

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/studio0rpiment/wayside/conceptual"
	"github.com/studio0rpiment/wayside/params"
	"go.etcd.io/bbolt"
)

var ErrNotFound = errors.New("correction not found")

// Store persists trained corrections in a bbolt database,
// one JSON value per experience id.
type Store struct {
	db *bbolt.DB
}

// OpenStore opens (or creates) the corrections database under datadir.
func OpenStore(datadir string) (*Store, error) {
	if err := os.MkdirAll(datadir, 0770); err != nil {
		return nil, err
	}
	db, err := bbolt.Open(filepath.Join(datadir, params.CorrectionsDBName), 0660, nil)
	if err != nil {
		return nil, fmt.Errorf("open corrections db: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(params.CorrectionsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Put(id conceptual.ExperienceID, c Correction) error {
	v, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(params.CorrectionsBucket).Put([]byte(id), v)
	})
}

func (s *Store) Get(id conceptual.ExperienceID) (Correction, error) {
	var c Correction
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(params.CorrectionsBucket).Get([]byte(id))
		if v == nil {
			return ErrNotFound
		}
		return json.Unmarshal(v, &c)
	})
	return c, err
}

func (s *Store) Delete(id conceptual.ExperienceID) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(params.CorrectionsBucket).Delete([]byte(id))
	})
}

func (s *Store) All() (map[conceptual.ExperienceID]Correction, error) {
	out := make(map[conceptual.ExperienceID]Correction)
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(params.CorrectionsBucket).ForEach(func(k, v []byte) error {
			var c Correction
			if err := json.Unmarshal(v, &c); err != nil {
				return fmt.Errorf("decode correction %s: %w", k, err)
			}
			out[conceptual.ExperienceID(k)] = c
			return nil
		})
	})
	return out, err
}

func (s *Store) Close() error {
	return s.db.Close()
}
