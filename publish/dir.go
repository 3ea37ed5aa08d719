package publish

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"k8s.io/klog/v2"
)

// DirPublisher writes sources below a local directory.
type DirPublisher struct {
	Dir string
}

var _ Publisher = (*DirPublisher)(nil)

func (p *DirPublisher) Publish(ctx context.Context, dagID string, source []byte) (string, error) {
	log := klog.FromContext(ctx)

	if err := CheckID(dagID); err != nil {
		return "", err
	}
	dest := filepath.Join(p.Dir, filepath.FromSlash(ObjectName(dagID, source)))
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return "", fmt.Errorf("creating directory for %q: %w", dest, err)
	}

	n, err := WriteFile(ctx, bytes.NewReader(source), dest)
	if err != nil {
		return "", err
	}
	log.Info("wrote source", "path", dest, "bytes", n)
	return dest, nil
}

// WriteFile copies src to destinationPath through a temp file in the same
// directory, so readers never observe a partial file.
func WriteFile(ctx context.Context, src io.Reader, destinationPath string) (int64, error) {
	log := klog.FromContext(ctx)

	dir := filepath.Dir(destinationPath)
	tempFile, err := os.CreateTemp(dir, "netgen")
	if err != nil {
		return 0, fmt.Errorf("creating temp file: %w", err)
	}

	shouldDeleteTempFile := true
	defer func() {
		if shouldDeleteTempFile {
			if err := os.Remove(tempFile.Name()); err != nil {
				log.Error(err, "removing temp file", "path", tempFile.Name())
			}
		}
	}()

	shouldCloseTempFile := true
	defer func() {
		if shouldCloseTempFile {
			if err := tempFile.Close(); err != nil {
				log.Error(err, "closing temp file", "path", tempFile.Name())
			}
		}
	}()

	n, err := io.Copy(tempFile, src)
	if err != nil {
		return n, fmt.Errorf("writing temp file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return n, fmt.Errorf("closing temp file: %w", err)
	}
	shouldCloseTempFile = false

	if err := os.Rename(tempFile.Name(), destinationPath); err != nil {
		return n, fmt.Errorf("renaming temp file: %w", err)
	}
	shouldDeleteTempFile = false

	return n, nil
}
