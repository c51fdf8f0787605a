package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"cloud.google.com/go/storage"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/teemow/inboxvault/internal/instrumentation"
)

// GCS is a bucket-backed store. Signed URLs are minted with the service
// account key the client authenticates with.
type GCS struct {
	client     *storage.Client
	bucket     *storage.BucketHandle
	name       string
	accessID   string
	privateKey []byte
	metrics    *instrumentation.Metrics
}

// NewGCS creates a store for bucket using a service account JSON key.
// Extra client options are appended after the credentials option.
func NewGCS(ctx context.Context, bucket string, credentialsJSON []byte, opts ...option.ClientOption) (*GCS, error) {
	if bucket == "" {
		return nil, errors.New("bucket name is required")
	}

	jwt, err := google.JWTConfigFromJSON(credentialsJSON, storage.ScopeReadWrite)
	if err != nil {
		return nil, fmt.Errorf("signing requires a service account key: %w", err)
	}

	clientOpts := append([]option.ClientOption{option.WithCredentialsJSON(credentialsJSON)}, opts...)
	client, err := storage.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	return &GCS{
		client:     client,
		bucket:     client.Bucket(bucket),
		name:       bucket,
		accessID:   jwt.Email,
		privateKey: jwt.PrivateKey,
	}, nil
}

// SetMetrics enables Google API metrics for bucket calls.
func (g *GCS) SetMetrics(m *instrumentation.Metrics) {
	g.metrics = m
}

// Bucket returns the bucket name.
func (g *GCS) Bucket() string {
	return g.name
}

// Close releases the underlying client.
func (g *GCS) Close() error {
	return g.client.Close()
}

// ListKeys enumerates every object name under prefix, following all pages.
func (g *GCS) ListKeys(ctx context.Context, prefix string) (keys []string, err error) {
	ctx, done := g.observe(ctx, instrumentation.OperationList)
	defer func() { done(err) }()

	query := &storage.Query{Prefix: prefix}
	if err := query.SetAttrSelection([]string{"Name"}); err != nil {
		return nil, err
	}

	it := g.bucket.Objects(ctx, query)
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list objects under %q: %w", prefix, err)
		}
		keys = append(keys, attrs.Name)
	}
	return keys, nil
}

// Create writes data under key only if no object with that name exists.
// A lost race surfaces as ErrObjectExists.
func (g *GCS) Create(ctx context.Context, key string, data []byte) (err error) {
	ctx, done := g.observe(ctx, instrumentation.OperationCreate)
	defer func() { done(err) }()

	obj := g.bucket.Object(key).If(storage.Conditions{DoesNotExist: true})
	if err := g.put(ctx, obj, data); err != nil {
		if isPreconditionFailed(err) {
			return fmt.Errorf("%s: %w", key, ErrObjectExists)
		}
		return fmt.Errorf("failed to create object %q: %w", key, err)
	}
	return nil
}

// Write stores data under key, replacing any existing object.
func (g *GCS) Write(ctx context.Context, key string, data []byte) (err error) {
	ctx, done := g.observe(ctx, instrumentation.OperationCreate)
	defer func() { done(err) }()

	if err := g.put(ctx, g.bucket.Object(key), data); err != nil {
		return fmt.Errorf("failed to write object %q: %w", key, err)
	}
	return nil
}

func (g *GCS) put(ctx context.Context, obj *storage.ObjectHandle, data []byte) error {
	w := obj.NewWriter(ctx)
	w.ContentType = http.DetectContentType(data)

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

// Read returns the content of the object stored under key.
func (g *GCS) Read(ctx context.Context, key string) (data []byte, err error) {
	ctx, done := g.observe(ctx, instrumentation.OperationRead)
	defer func() { done(err) }()

	r, err := g.bucket.Object(key).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open object %q: %w", key, err)
	}
	defer r.Close()

	data, err = io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %q: %w", key, err)
	}
	return data, nil
}

// SignURL mints a V4 signed GET URL for key that is valid until expires.
func (g *GCS) SignURL(key string, expires time.Time) (string, error) {
	start := time.Now()

	u, err := g.bucket.SignedURL(key, &storage.SignedURLOptions{
		GoogleAccessID: g.accessID,
		PrivateKey:     g.privateKey,
		Method:         http.MethodGet,
		Expires:        expires,
		Scheme:         storage.SigningSchemeV4,
	})

	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
	}
	g.metrics.RecordGoogleAPIOperation(context.Background(), instrumentation.ServiceStorage,
		instrumentation.OperationSign, status, time.Since(start))

	if err != nil {
		return "", fmt.Errorf("failed to sign URL for %q: %w", key, err)
	}
	return u, nil
}

// observe starts a client span and returns a func that ends it and records the call.
func (g *GCS) observe(ctx context.Context, operation string) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceStorage, operation)

	return ctx, func(err error) {
		status := instrumentation.StatusSuccess
		// A lost create race is an expected outcome, not an API failure.
		if err != nil && !errors.Is(err, ErrObjectExists) {
			status = instrumentation.StatusError
			instrumentation.SetSpanError(span, err)
		}
		span.End()
		g.metrics.RecordGoogleAPIOperation(ctx, instrumentation.ServiceStorage, operation, status, time.Since(start))
	}
}

func isPreconditionFailed(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusPreconditionFailed
}
