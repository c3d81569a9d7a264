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
	"errors"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/coursefinder/core"
	"github.com/poiesic/coursefinder/storage"
)

// annotationRepository implements storage.AnnotationRepository on BadgerDB.
type annotationRepository struct {
	backend *Backend
}

var _ storage.AnnotationRepository = (*annotationRepository)(nil)

// NewAnnotationRepository creates an annotation repository backed by the
// given backend.
func NewAnnotationRepository(backend *Backend) storage.AnnotationRepository {
	return &annotationRepository{backend: backend}
}

// Get returns the cached keywords for a course.
func (r *annotationRepository) Get(ctx context.Context, key core.ID) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var keywords string
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeAnnotationKey(key))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrAnnotationNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			keywords = string(val)
			return nil
		})
	}, false)
	if err != nil {
		return "", err
	}
	return keywords, nil
}

// Put stores the keywords for a course.
func (r *annotationRepository) Put(ctx context.Context, key core.ID, keywords string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeAnnotationKey(key), []byte(keywords)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Close is a no-op; the shared backend owns the database handle.
func (r *annotationRepository) Close() error {
	return nil
}
