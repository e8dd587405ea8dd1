package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	gcs "google.golang.org/api/storage/v1"
)

const gcsPublicHost = "https://storage.googleapis.com"

// GCSBackend uploads objects to a Google Cloud Storage bucket through the JSON API.
type GCSBackend struct {
	objects       *gcs.ObjectsService
	bucket        string
	publicBaseURL string
	acl           string
}

// NewGCSBackend creates the storage service. Credentials come from cfg.CredentialsFile when set,
// otherwise from Application Default Credentials. Extra client options are appended last.
func NewGCSBackend(ctx context.Context, cfg GCSConfig, opts ...option.ClientOption) (*GCSBackend, error) {
	var clientOpts []option.ClientOption
	if cfg.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	clientOpts = append(clientOpts, option.WithScopes(gcs.DevstorageReadWriteScope))
	clientOpts = append(clientOpts, opts...)

	svc, err := gcs.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create cloud storage client: %w", err)
	}

	baseURL := strings.TrimRight(cfg.PublicBaseURL, "/")
	if baseURL == "" {
		baseURL = gcsPublicHost + "/" + cfg.Bucket
	}

	return &GCSBackend{
		objects:       svc.Objects,
		bucket:        cfg.Bucket,
		publicBaseURL: baseURL,
		acl:           cfg.PredefinedACL,
	}, nil
}

// Upload inserts data as object name and returns its public URL.
func (b *GCSBackend) Upload(ctx context.Context, name string, data []byte) (string, error) {
	obj := &gcs.Object{
		Name:        name,
		ContentType: contentTypeFor(name),
	}

	call := b.objects.Insert(b.bucket, obj).
		Media(bytes.NewReader(data), googleapi.ContentType(obj.ContentType)).
		Context(ctx)
	if b.acl != "" {
		call = call.PredefinedAcl(b.acl)
	}

	if _, err := call.Do(); err != nil {
		return "", fmt.Errorf("failed to insert object %q into bucket %q: %w", name, b.bucket, err)
	}

	return b.publicBaseURL + "/" + url.PathEscape(name), nil
}
