// Package publish stores generated model sources under content-addressed names.
package publish

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"path"
	"strings"
)

// ErrInvalidID is returned for DAG ids that can't be used as a single path segment.
var ErrInvalidID = errors.New("publish: invalid dag id")

// Publisher stores a generated source and returns where it can be fetched from.
type Publisher interface {
	Publish(ctx context.Context, dagID string, source []byte) (string, error)
}

// ObjectName is the content-addressed name of source published for dagID.
func ObjectName(dagID string, source []byte) string {
	sum := sha256.Sum256(source)
	return path.Join(dagID, hex.EncodeToString(sum[:])[:16]+".py")
}

// CheckID rejects ids that would leave the directory or prefix they are
// published under.
func CheckID(dagID string) error {
	switch {
	case dagID == "", dagID == ".", dagID == "..":
		return fmt.Errorf("%w: %q", ErrInvalidID, dagID)
	case strings.ContainsAny(dagID, `/\`), strings.Contains(dagID, ".."):
		return fmt.Errorf("%w: %q contains a path separator or \"..\"", ErrInvalidID, dagID)
	}
	return nil
}

// Open returns the publisher for target: a gs:// URL publishes to GCS,
// anything else is a local directory.
func Open(target string) (Publisher, error) {
	if strings.HasPrefix(target, "gs://") {
		return ParseGCSURL(target)
	}
	return &DirPublisher{Dir: strings.TrimPrefix(target, "file://")}, nil
}
