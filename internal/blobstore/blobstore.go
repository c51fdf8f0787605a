// Package blobstore stores archived attachments as bucket objects.
//
// GCS is backed by Cloud Storage. Memory keeps objects in process and stands
// in for the bucket in tests.
package blobstore

import "errors"

var (
	// ErrObjectExists is returned by Create when the key is already taken.
	ErrObjectExists = errors.New("object already exists")

	// ErrNotFound is returned by Read for a missing key.
	ErrNotFound = errors.New("object not found")
)
