// Package transfer moves whole files between a gitfs.Session and an
// external URL — a local path, an http(s):// URL, or an s3:// object —
// for seeding or archiving a tree. It is file-level import/export, not
// git remote replication: it never touches refs and never clones or
// fetches another repository's history.
package transfer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config carries optional S3 authentication overrides; a zero value
// falls back to the AWS SDK's default credential chain and region
// resolution.
type S3Config struct {
	AccessKey string
	SecretKey string
	Region    string
	Endpoint  string // custom S3-compatible endpoint, e.g. MinIO
}

// TransferOption configures an Import or Export call.
type TransferOption func(*transferConfig)

type transferConfig struct {
	s3 S3Config
}

// WithS3Config supplies explicit S3 credentials/region/endpoint instead
// of relying on the default AWS credential chain.
func WithS3Config(cfg S3Config) TransferOption {
	return func(c *transferConfig) { c.s3 = cfg }
}

func buildConfig(opts []TransferOption) transferConfig {
	var c transferConfig
	for _, o := range opts {
		o(&c)
	}
	return c
}

type urlScheme string

const (
	schemeS3    urlScheme = "s3"
	schemeHTTP  urlScheme = "http"
	schemeHTTPS urlScheme = "https"
	schemeFile  urlScheme = "file"
	schemeLocal urlScheme = "local"
)

func detectScheme(url string) urlScheme {
	lower := strings.ToLower(url)
	switch {
	case strings.HasPrefix(lower, "s3://"):
		return schemeS3
	case strings.HasPrefix(lower, "https://"):
		return schemeHTTPS
	case strings.HasPrefix(lower, "http://"):
		return schemeHTTP
	case strings.HasPrefix(lower, "file://"):
		return schemeFile
	default:
		return schemeLocal
	}
}

// openReader opens a streaming reader for a local path, http(s):// URL,
// or s3:// URL.
func openReader(url string, cfg transferConfig) (io.ReadCloser, error) {
	switch detectScheme(url) {
	case schemeLocal:
		return osOpen(url)
	case schemeFile:
		return osOpen(strings.TrimPrefix(url, "file://"))
	case schemeHTTP, schemeHTTPS:
		return openHTTPReader(url)
	case schemeS3:
		return openS3Reader(url, cfg.s3)
	default:
		return nil, fmt.Errorf("transfer: unsupported URL scheme: %s", url)
	}
}

// openWriter opens a streaming writer for a local path or s3:// URL.
// HTTP(S) and file:// targets are not writable: Export only documents
// a local path or an s3:// object as a destination.
func openWriter(url string, cfg transferConfig) (io.WriteCloser, error) {
	switch detectScheme(url) {
	case schemeLocal:
		return osCreate(url)
	case schemeS3:
		return openS3Writer(url, cfg.s3)
	default:
		return nil, fmt.Errorf("transfer: unsupported export destination: %s", url)
	}
}

func openHTTPReader(url string) (io.ReadCloser, error) {
	client := &http.Client{Timeout: 5 * time.Minute}

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("transfer: http request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("transfer: http request returned status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

func parseS3URL(url string) (bucket, key string, err error) {
	trimmed := strings.TrimPrefix(url, "s3://")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) < 2 {
		return "", "", fmt.Errorf("transfer: invalid s3 url: %s", url)
	}
	return parts[0], parts[1], nil
}

func s3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		creds := credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
		opts = append(opts, config.WithCredentialsProvider(creds))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("transfer: failed to load AWS config: %w", err)
	}

	var clientOpts []func(*s3.Options)
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	return s3.NewFromConfig(awsCfg, clientOpts...), nil
}

func openS3Reader(url string, cfg S3Config) (io.ReadCloser, error) {
	bucket, key, err := parseS3URL(url)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	client, err := s3Client(ctx, cfg)
	if err != nil {
		return nil, err
	}

	resp, err := client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)})
	if err != nil {
		return nil, fmt.Errorf("transfer: failed to get s3 object: %w", err)
	}
	return resp.Body, nil
}

// s3Writer buffers the full object before uploading on Close, since the
// S3 PutObject API needs a known content length up front.
type s3Writer struct {
	ctx    context.Context
	client *s3.Client
	bucket string
	key    string
	buf    []byte
	closed bool
}

func (w *s3Writer) Write(p []byte) (int, error) {
	if w.closed {
		return 0, fmt.Errorf("transfer: writer is closed")
	}
	w.buf = append(w.buf, p...)
	return len(p), nil
}

func (w *s3Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	_, err := w.client.PutObject(w.ctx, &s3.PutObjectInput{
		Bucket: aws.String(w.bucket),
		Key:    aws.String(w.key),
		Body:   strings.NewReader(string(w.buf)),
	})
	if err != nil {
		return fmt.Errorf("transfer: failed to upload to s3: %w", err)
	}
	return nil
}

func openS3Writer(url string, cfg S3Config) (io.WriteCloser, error) {
	bucket, key, err := parseS3URL(url)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	client, err := s3Client(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return &s3Writer{ctx: ctx, client: client, bucket: bucket, key: key}, nil
}

// osOpen and osCreate are seams so tests can swap in fakes without
// touching the real filesystem.
var osOpen = func(path string) (io.ReadCloser, error) { return os.Open(path) }
var osCreate = func(path string) (io.WriteCloser, error) { return os.Create(path) }
