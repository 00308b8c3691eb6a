// Package storage contains the blob store backends. Generated assets and
// normalized input images are persisted here; the public URLs it returns
// outlive any provider-side retention window.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// maxFetchSize caps a fetched remote object at 64 MiB.
const maxFetchSize = 64 << 20

// S3Store implements usecase.BlobStore against any S3-compatible bucket.
// A custom endpoint points it at R2 or MinIO.
type S3Store struct {
	client        *s3.Client
	httpClient    *http.Client
	bucket        string
	publicBaseURL string
}

// S3Config holds bucket coordinates and credentials source settings.
type S3Config struct {
	Bucket        string
	Region        string
	Endpoint      string
	PublicBaseURL string
}

// NewS3Store creates an S3Store. Credentials come from the default AWS
// provider chain.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Store{
		client:        client,
		httpClient:    &http.Client{Timeout: 2 * time.Minute},
		bucket:        cfg.Bucket,
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
	}, nil
}

// Put uploads data under a timestamped key in the category prefix and
// returns the public URL.
func (s *S3Store) Put(ctx context.Context, data []byte, contentType, category string) (string, error) {
	key := objectKey(category, contentType)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}

	return s.publicBaseURL + "/" + key, nil
}

// PutFromURL fetches a remote object and re-hosts it. The source is
// typically a provider result URL with a short retention window.
func (s *S3Store) PutFromURL(ctx context.Context, srcURL, category string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srcURL, nil)
	if err != nil {
		return "", fmt.Errorf("build fetch request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch source: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch source: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchSize+1))
	if err != nil {
		return "", fmt.Errorf("read source: %w", err)
	}
	if len(data) > maxFetchSize {
		return "", fmt.Errorf("source object exceeds %d bytes", maxFetchSize)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = guessContentType(srcURL)
	}

	return s.Put(ctx, data, contentType, category)
}

// objectKey builds "{category}/{unix-millis}_{random}.{ext}" so listings
// sort chronologically and collisions are practically impossible.
func objectKey(category, contentType string) string {
	return fmt.Sprintf("%s/%d_%s%s",
		category,
		time.Now().UnixMilli(),
		randomSuffix(6),
		extensionFor(contentType),
	)
}

const suffixAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

func randomSuffix(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = suffixAlphabet[rand.IntN(len(suffixAlphabet))]
	}
	return string(b)
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "video/mp4":
		return ".mp4"
	}
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".bin"
}

func guessContentType(srcURL string) string {
	ext := strings.ToLower(path.Ext(strings.SplitN(srcURL, "?", 2)[0]))
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
