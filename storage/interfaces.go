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

package storage

import (
	"context"

	"github.com/poiesic/coursefinder/core"
)

// CatalogRepository stores the course catalog. The catalog is written by
// ingestion and read-only during a search.
type CatalogRepository interface {
	// PutCourses stores or replaces catalog entries.
	PutCourses(ctx context.Context, courses []*core.CourseRecord) error

	// AllCourses returns every catalog entry in insertion order.
	AllCourses(ctx context.Context) ([]*core.CourseRecord, error)

	// Count returns the number of catalog entries.
	Count(ctx context.Context) (int, error)

	// Close releases resources held by the repository.
	Close() error
}

// AnnotationRepository is the per-course keyword-annotation cache. Annotations
// are written by the background enricher and read during prompt construction.
// Writes are append-only per key; the enricher and the search pipeline never
// write the same key concurrently.
type AnnotationRepository interface {
	// Get returns the cached keywords for a course, or ErrAnnotationNotFound.
	Get(ctx context.Context, key core.ID) (string, error)

	// Put stores the keywords for a course.
	Put(ctx context.Context, key core.ID, keywords string) error

	// Close releases resources held by the repository.
	Close() error
}
