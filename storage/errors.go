package storage

import "errors"

var (
	// ErrAnnotationNotFound is returned when no annotation is cached for a course.
	ErrAnnotationNotFound = errors.New("annotation not found")

	// ErrSerialization wraps marshal/unmarshal failures.
	ErrSerialization = errors.New("serialization error")
)
