package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/joseph-ayodele/proposal-extractor/constants"
	"github.com/joseph-ayodele/proposal-extractor/internal/common"
)

// ObjectGetter is the slice of the S3 API the fetcher uses.
type ObjectGetter interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Document is fetched source bytes plus a display name.
type Document struct {
	Source string
	Name   string
	Data   []byte
}

// Fetcher loads documents from local paths, http(s) URLs and s3://bucket/key.
type Fetcher struct {
	storage  common.StorageConfig
	maxBytes int64
	http     *http.Client
	logger   *slog.Logger

	s3Once sync.Once
	s3     ObjectGetter
	s3Err  error
}

// Option customizes a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient overrides the client used for http(s) sources.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.http = c }
}

// WithObjectGetter overrides the S3 client.
func WithObjectGetter(g ObjectGetter) Option {
	return func(f *Fetcher) {
		f.s3Once.Do(func() {})
		f.s3 = g
	}
}

// WithMaxBytes overrides the per-document size cap.
func WithMaxBytes(n int64) Option {
	return func(f *Fetcher) { f.maxBytes = n }
}

func NewFetcher(storage common.StorageConfig, logger *slog.Logger, opts ...Option) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := storage.HTTPTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	f := &Fetcher{
		storage:  storage,
		maxBytes: constants.MaxDocumentBytes,
		http:     &http.Client{Timeout: timeout},
		logger:   logger,
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Fetch reads the whole document named by uri.
func (f *Fetcher) Fetch(ctx context.Context, uri string) (*Document, error) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return nil, fmt.Errorf("%w: empty source", common.ErrInvalidInput)
	}
	start := time.Now()

	var (
		doc *Document
		err error
	)
	switch {
	case strings.HasPrefix(uri, "s3://"):
		doc, err = f.fetchS3(ctx, uri)
	case strings.HasPrefix(uri, "http://"), strings.HasPrefix(uri, "https://"):
		doc, err = f.fetchHTTP(ctx, uri)
	default:
		doc, err = f.fetchFile(strings.TrimPrefix(uri, "file://"))
	}
	if err != nil {
		f.logger.Error("ingest.fetch.error", "source", uri, "error", err)
		return nil, err
	}
	f.logger.Info("ingest.fetch.ok", "source", uri, "bytes", len(doc.Data), "elapsed_ms", time.Since(start).Milliseconds())
	return doc, nil
}

func (f *Fetcher) fetchFile(p string) (*Document, error) {
	st, err := os.Stat(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", p, common.ErrNotFound)
		}
		return nil, err
	}
	if st.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", common.ErrInvalidInput, p)
	}
	if st.Size() > f.maxBytes {
		return nil, f.tooLarge(p)
	}
	b, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p, err)
	}
	return &Document{Source: p, Name: path.Base(strings.ReplaceAll(p, "\\", "/")), Data: b}, nil
}

func (f *Fetcher) fetchHTTP(ctx context.Context, uri string) (*Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidInput, err)
	}
	resp, err := f.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", uri, err)
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			f.logger.Warn("ingest.fetch.body_close_error", "source", uri, "error", err)
		}
	}(resp.Body)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%s: %w", uri, common.ErrNotFound)
	case resp.StatusCode/100 != 2:
		return nil, fmt.Errorf("get %s: non-2xx status: %d", uri, resp.StatusCode)
	}

	b, err := f.readCapped(uri, resp.Body)
	if err != nil {
		return nil, err
	}
	name := uri
	if u, err := url.Parse(uri); err == nil && path.Base(u.Path) != "/" && path.Base(u.Path) != "." {
		name = path.Base(u.Path)
	}
	return &Document{Source: uri, Name: name, Data: b}, nil
}

func (f *Fetcher) fetchS3(ctx context.Context, uri string) (*Document, error) {
	bucket, key, ok := strings.Cut(strings.TrimPrefix(uri, "s3://"), "/")
	if !ok || bucket == "" || key == "" {
		return nil, fmt.Errorf("%w: want s3://bucket/key, got %q", common.ErrInvalidInput, uri)
	}
	client, err := f.s3Client(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 get failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.ContentLength != nil && *resp.ContentLength > f.maxBytes {
		return nil, f.tooLarge(uri)
	}
	b, err := f.readCapped(uri, resp.Body)
	if err != nil {
		return nil, err
	}
	return &Document{Source: uri, Name: path.Base(key), Data: b}, nil
}

// s3Client builds the client on first use. Static keys are used when
// configured; otherwise the default AWS credential chain applies.
func (f *Fetcher) s3Client(ctx context.Context) (ObjectGetter, error) {
	f.s3Once.Do(func() {
		opts := []func(*config.LoadOptions) error{config.WithRegion(f.storage.AwsRegion)}
		if f.storage.AwsAccessKey != "" && f.storage.AwsSecretKey != "" {
			opts = append(opts, config.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(f.storage.AwsAccessKey, f.storage.AwsSecretKey, ""),
			))
		}
		awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			f.s3Err = fmt.Errorf("load aws config: %w", err)
			return
		}
		f.s3 = s3.NewFromConfig(awsCfg)
	})
	return f.s3, f.s3Err
}

func (f *Fetcher) readCapped(src string, r io.Reader) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(r, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", src, err)
	}
	if int64(len(b)) > f.maxBytes {
		return nil, f.tooLarge(src)
	}
	return b, nil
}

func (f *Fetcher) tooLarge(src string) error {
	return fmt.Errorf("%w: %s exceeds %d bytes", common.ErrInvalidInput, src, f.maxBytes)
}
