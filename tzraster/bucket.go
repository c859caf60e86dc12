package tzraster

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
)

// NormalizeBucketKey splits a local path or an object URL into a bucket URL
// and a key. An explicit bucket is returned unchanged.
func NormalizeBucketKey(bucket string, prefix string, key string) (string, string, error) {
	if bucket != "" {
		return bucket, key, nil
	}
	if strings.Contains(key, "://") {
		u, err := url.Parse(key)
		if err != nil {
			return "", "", err
		}
		if u.Scheme == "file" {
			dir, file := path.Split(u.Path)
			if strings.HasSuffix(dir, "/") && len(dir) > 1 {
				dir = dir[:len(dir)-1]
			}
			return "file://" + dir, file, nil
		}
		bucketURL := u.Scheme + "://" + u.Host
		if u.RawQuery != "" {
			bucketURL += "?" + u.RawQuery
		}
		return bucketURL, strings.TrimPrefix(u.Path, "/"), nil
	}
	fileprotocol := "file://"
	if string(os.PathSeparator) != "/" {
		fileprotocol += "/"
	}
	if prefix != "" {
		abs, err := filepath.Abs(prefix)
		if err != nil {
			return "", "", err
		}
		return fileprotocol + filepath.ToSlash(abs), key, nil
	}
	abs, err := filepath.Abs(key)
	if err != nil {
		return "", "", err
	}
	return fileprotocol + filepath.ToSlash(filepath.Dir(abs)), filepath.Base(abs), nil
}

// OpenBucket opens any registered gocloud bucket, scoped to prefix if given.
func OpenBucket(ctx context.Context, bucketURL string, bucketPrefix string) (*blob.Bucket, error) {
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, err
	}
	if bucketPrefix != "" && bucketPrefix != "/" && bucketPrefix != "." {
		bucket = blob.PrefixedBucket(bucket, path.Clean(bucketPrefix)+"/")
	}
	return bucket, nil
}

func isLocal(bucketURL string) bool {
	return bucketURL == "" || strings.HasPrefix(bucketURL, "file://")
}

func readObject(ctx context.Context, bucketURL string, key string) ([]byte, error) {
	bucketURL, key, err := NormalizeBucketKey(bucketURL, "", key)
	if err != nil {
		return nil, err
	}
	bucket, err := OpenBucket(ctx, bucketURL, "")
	if err != nil {
		return nil, fmt.Errorf("failed to open bucket %s, %w", bucketURL, err)
	}
	defer bucket.Close()
	return bucket.ReadAll(ctx, key)
}

// fetchLocal makes key and its sidecar files (same stem, given extensions)
// available on disk. Local files are used in place; remote objects are
// copied into a temp directory which cleanup removes.
func fetchLocal(ctx context.Context, bucketURL string, key string, sidecars ...string) (string, func(), error) {
	if isLocal(bucketURL) {
		if bucketURL == "" {
			return key, func() {}, nil
		}
		root := strings.TrimPrefix(bucketURL, "file://")
		return filepath.Join(filepath.FromSlash(root), filepath.FromSlash(key)), func() {}, nil
	}

	dir, err := os.MkdirTemp("", "tzraster")
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { os.RemoveAll(dir) }

	bucket, err := OpenBucket(ctx, bucketURL, "")
	if err != nil {
		cleanup()
		return "", nil, fmt.Errorf("failed to open bucket %s, %w", bucketURL, err)
	}
	defer bucket.Close()

	stem := strings.TrimSuffix(key, path.Ext(key))
	keys := []string{key}
	for _, ext := range sidecars {
		keys = append(keys, stem+ext)
	}
	for _, k := range keys {
		if err := copyObject(ctx, bucket, k, filepath.Join(dir, path.Base(k))); err != nil {
			cleanup()
			return "", nil, err
		}
	}
	return filepath.Join(dir, path.Base(key)), cleanup, nil
}

func copyObject(ctx context.Context, bucket *blob.Bucket, key string, dest string) error {
	r, err := bucket.NewReader(ctx, key, nil)
	if err != nil {
		return fmt.Errorf("failed to read %s, %w", key, err)
	}
	defer r.Close()

	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("failed to copy %s, %w", key, err)
	}
	return f.Close()
}
