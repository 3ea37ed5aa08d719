package publish

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"k8s.io/klog/v2"
)

// GCSPublisher uploads sources to a Google Cloud Storage bucket.
type GCSPublisher struct {
	Bucket string
	Prefix string
}

var _ Publisher = (*GCSPublisher)(nil)

// ParseGCSURL splits gs://bucket/prefix into a publisher.
func ParseGCSURL(u string) (*GCSPublisher, error) {
	if !strings.HasPrefix(u, "gs://") {
		return nil, fmt.Errorf("must be a GCS bucket URL (gs://<bucketName>[/prefix]), got %q", u)
	}
	bucket, prefix, _ := strings.Cut(strings.TrimPrefix(u, "gs://"), "/")
	if bucket == "" {
		return nil, fmt.Errorf("missing bucket name in %q", u)
	}
	return &GCSPublisher{Bucket: bucket, Prefix: strings.Trim(prefix, "/")}, nil
}

func (p *GCSPublisher) Publish(ctx context.Context, dagID string, source []byte) (string, error) {
	log := klog.FromContext(ctx)

	if err := CheckID(dagID); err != nil {
		return "", err
	}
	objectKey := path.Join(p.Prefix, ObjectName(dagID, source))
	gcsURL := "gs://" + p.Bucket + "/" + objectKey

	client, err := storage.NewClient(ctx)
	if err != nil {
		return "", fmt.Errorf("creating GCS storage client: %w", err)
	}
	defer client.Close()

	obj := client.Bucket(p.Bucket).Object(objectKey)
	if _, err := obj.Attrs(ctx); err == nil {
		log.Info("source already published", "url", gcsURL)
		return gcsURL, nil
	} else if !errors.Is(err, storage.ErrObjectNotExist) {
		return "", fmt.Errorf("getting object attributes for %q: %w", gcsURL, err)
	}

	log.Info("uploading source to GCS", "dag", dagID, "destination", gcsURL)

	startedAt := time.Now()
	w := obj.NewWriter(ctx)
	w.ContentType = "text/x-python"
	n, err := io.Copy(w, bytes.NewReader(source))
	if err != nil {
		w.Close()
		return "", fmt.Errorf("uploading to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("closing GCS writer: %w", err)
	}

	log.Info("uploaded source to GCS", "url", gcsURL, "bytes", n, "duration", time.Since(startedAt))
	return gcsURL, nil
}
