// Package storage persists uploaded documents in object storage.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
)

var (
	ErrUploadFailed = errors.New("document upload failed")
	ErrInvalidKey   = errors.New("invalid storage key")
)

// Store writes objects and returns a location string for the stored object.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Backend() string
}

// SafeType turns a classification label into a key segment:
// "blood test results" -> "blood_test_results".
func SafeType(label string) string {
	return strings.ToLower(strings.ReplaceAll(label, " ", "_"))
}

// DocumentKey builds patients/{patientID}/{safe type}/{filename}. Every
// segment must be a single path element.
func DocumentKey(patientID, docType, filename string) (string, error) {
	segments := []string{patientID, SafeType(docType), filename}
	for _, segment := range segments {
		if !validSegment(segment) {
			return "", fmt.Errorf("%w: segment %q", ErrInvalidKey, segment)
		}
	}
	return path.Join(append([]string{"patients"}, segments...)...), nil
}

func validSegment(segment string) bool {
	if segment == "" || segment == "." || segment == ".." {
		return false
	}
	return !strings.ContainsAny(segment, `/\`)
}
