package tzraster

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"
	"gocloud.dev/blob"
)

// Upload copies the mapping file and the image from outdir to a bucket,
// storing each file's xxhash digest as object metadata.
func Upload(ctx context.Context, logger *zap.Logger, outdir string, bucketURL string, prefix string, maxConcurrency int) error {
	b, err := OpenBucket(ctx, bucketURL, "")
	if err != nil {
		return fmt.Errorf("failed to setup bucket: %w", err)
	}
	defer b.Close()

	for _, artifact := range []struct {
		name        string
		contentType string
	}{
		{MappingFilename, "application/json"},
		{ImageFilename, "image/png"},
	} {
		key := artifact.name
		if prefix != "" {
			key = path.Join(prefix, artifact.name)
		}
		if err := uploadFile(ctx, b, filepath.Join(outdir, artifact.name), key, artifact.contentType, maxConcurrency); err != nil {
			return err
		}
		logger.Info("uploaded", zap.String("bucket", bucketURL), zap.String("key", key))
	}
	return nil
}

func fileDigest(name string) (uint64, int64, error) {
	f, err := os.Open(name)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()
	hasher := xxhash.New()
	n, err := io.Copy(hasher, f)
	if err != nil {
		return 0, 0, err
	}
	return hasher.Sum64(), n, nil
}

func uploadFile(ctx context.Context, b *blob.Bucket, source string, key string, contentType string, maxConcurrency int) error {
	digest, size, err := fileDigest(source)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}

	f, err := os.Open(source)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	opts := &blob.WriterOptions{
		ContentType:    contentType,
		MaxConcurrency: maxConcurrency,
		Metadata:       map[string]string{"xxhash": strconv.FormatUint(digest, 16)},
	}
	w, err := b.NewWriter(ctx, key, opts)
	if err != nil {
		return fmt.Errorf("failed to obtain writer: %w", err)
	}

	bar := getProgressWriter().NewBytesProgress(size, "uploading "+key)
	defer bar.Close()
	if _, err := io.Copy(io.MultiWriter(w, bar), f); err != nil {
		w.Close()
		return fmt.Errorf("failed to write to bucket: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close: %w", err)
	}
	return nil
}
