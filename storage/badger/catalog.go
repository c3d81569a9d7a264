// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package badger

import (
	"context"
	"encoding/binary"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/coursefinder/core"
	"github.com/poiesic/coursefinder/storage"
)

// catalogRepository implements storage.CatalogRepository on BadgerDB.
type catalogRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.CatalogRepository = (*catalogRepository)(nil)

// NewCatalogRepository creates a catalog repository backed by the given backend.
func NewCatalogRepository(backend *Backend) (storage.CatalogRepository, error) {
	idSeq, err := backend.GetSequence(catalogIDSeq)
	if err != nil {
		return nil, err
	}
	return &catalogRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

func (r *catalogRepository) nextSeq() (uint64, error) {
	seq, err := r.idSeq.Next()
	if err != nil {
		return 0, err
	}
	// Skip zero so sequence keys are never ambiguous with an unset value.
	if seq == 0 {
		seq, err = r.idSeq.Next()
		if err != nil {
			return 0, err
		}
	}
	return seq, nil
}

// PutCourses stores or replaces catalog entries. A course whose identifier is
// already present keeps its original insertion position.
func (r *catalogRepository) PutCourses(ctx context.Context, courses []*core.CourseRecord) error {
	for _, course := range courses {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := core.ValidateCourseRecord(course); err != nil {
			return err
		}
		if err := r.putCourse(course); err != nil {
			return err
		}
	}
	return nil
}

func (r *catalogRepository) putCourse(course *core.CourseRecord) error {
	data, err := storage.MarshalCourseRecord(course)
	if err != nil {
		return err
	}

	identKey := makeCatalogIdentKey(course.Identifier())

	return r.backend.WithTx(func(tx *badger.Txn) error {
		var seq uint64

		item, err := tx.Get(identKey)
		switch err {
		case nil:
			if err := item.Value(func(val []byte) error {
				seq = binary.BigEndian.Uint64(val)
				return nil
			}); err != nil {
				return err
			}
		case badger.ErrKeyNotFound:
			seq, err = r.nextSeq()
			if err != nil {
				return err
			}
			seqBytes := make([]byte, 8)
			binary.BigEndian.PutUint64(seqBytes, seq)
			if err := tx.Set(identKey, seqBytes); err != nil {
				return err
			}
		default:
			return err
		}

		if err := tx.Set(makeCatalogKey(seq), data); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// AllCourses returns every catalog entry in insertion order.
func (r *catalogRepository) AllCourses(ctx context.Context) ([]*core.CourseRecord, error) {
	var courses []*core.CourseRecord

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(catalogRecordPrefix)
		it := tx.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			err := it.Item().Value(func(val []byte) error {
				course, err := storage.UnmarshalCourseRecord(val)
				if err != nil {
					return err
				}
				courses = append(courses, course)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return courses, nil
}

// Count returns the number of catalog entries.
func (r *catalogRepository) Count(ctx context.Context) (int, error) {
	count := 0

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(catalogRecordPrefix)
		opts.PrefetchValues = false
		it := tx.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			count++
		}
		return nil
	}, false)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Close releases the repository's sequence allocator.
func (r *catalogRepository) Close() error {
	return r.idSeq.Release()
}
