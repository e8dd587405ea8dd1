// Package storage provides the upload backends that turn processed images into public URLs.
//
// Every backend satisfies [Backend]. The concrete backend is chosen once, from configuration,
// by [New]; the image pipeline only ever sees the interface.
package storage

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"
)

// Provider names accepted by New.
const (
	ProviderCustom = "custom"
	ProviderLocal  = "local"
	ProviderGCS    = "gcs"
)

// Backend uploads a named blob and returns a publicly resolvable URL for it.
type Backend interface {
	Upload(ctx context.Context, name string, data []byte) (string, error)
}

// Config selects and configures a storage backend.
type Config struct {
	Provider string       `mapstructure:"provider"`
	Custom   CustomConfig `mapstructure:"custom"`
	Local    LocalConfig  `mapstructure:"local"`
	GCS      GCSConfig    `mapstructure:"gcs"`
}

// CustomConfig configures the signed-upload backend.
type CustomConfig struct {
	SecretKey string `mapstructure:"secret_key"`
	UploadURL string `mapstructure:"upload_url"`
}

// LocalConfig configures the directory backend.
type LocalConfig struct {
	Dir           string `mapstructure:"dir"`
	PublicBaseURL string `mapstructure:"public_base_url"`
}

// GCSConfig configures the Google Cloud Storage backend.
type GCSConfig struct {
	Bucket          string `mapstructure:"bucket"`
	CredentialsFile string `mapstructure:"credentials_file"`
	PublicBaseURL   string `mapstructure:"public_base_url"`
	PredefinedACL   string `mapstructure:"predefined_acl"`
}

// ErrUnknownProvider is returned by Validate and New for an unsupported provider name.
var ErrUnknownProvider = errors.New("unsupported storage provider")

// Validate checks that the selected provider has the settings it needs.
func (c Config) Validate() error {
	switch normalizeProvider(c.Provider) {
	case ProviderCustom:
		if c.Custom.SecretKey == "" {
			return fmt.Errorf("storage provider %q requires a secret key (CUSTOM_SECRET_KEY)", ProviderCustom)
		}
		if c.Custom.UploadURL == "" {
			return fmt.Errorf("storage provider %q requires an upload url (CUSTOM_UPLOAD_URL)", ProviderCustom)
		}
	case ProviderLocal:
		if c.Local.Dir == "" {
			return fmt.Errorf("storage provider %q requires a directory (LOCAL_DIR)", ProviderLocal)
		}
		if c.Local.PublicBaseURL == "" {
			return fmt.Errorf("storage provider %q requires a public base url (LOCAL_PUBLIC_BASE_URL)", ProviderLocal)
		}
	case ProviderGCS:
		if c.GCS.Bucket == "" {
			return fmt.Errorf("storage provider %q requires a bucket (GCS_BUCKET)", ProviderGCS)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownProvider, c.Provider)
	}
	return nil
}

// New builds the backend named by cfg.Provider. An empty provider selects the custom backend.
func New(ctx context.Context, cfg Config) (Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch normalizeProvider(cfg.Provider) {
	case ProviderCustom:
		return NewSignedUploader(cfg.Custom, nil)
	case ProviderLocal:
		return NewLocalBackend(cfg.Local)
	case ProviderGCS:
		return NewGCSBackend(ctx, cfg.GCS)
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
}

func normalizeProvider(p string) string {
	p = strings.ToLower(strings.TrimSpace(p))
	if p == "" {
		return ProviderCustom
	}
	return p
}

// contentTypeFor guesses the MIME type of an uploaded file from its extension.
func contentTypeFor(name string) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func defaultHTTPClient() *http.Client {
	return &http.Client{Timeout: 60 * time.Second}
}
