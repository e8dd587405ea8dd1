package storage

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const maxResponseBody = 1 << 20

// SignedUploader posts files to an upload endpoint that authenticates requests with a
// timestamp and an MD5 signature derived from a shared secret:
//
//	POST {upload_url}?ts={unix_millis}&sign=md5("{unix_millis}:{secret}")
//
// The file travels as the multipart field "file".
type SignedUploader struct {
	secretKey string
	uploadURL *url.URL
	client    *http.Client
	now       func() time.Time
}

// NewSignedUploader validates cfg and returns an uploader. A nil client selects a default
// client with a 60 second timeout.
func NewSignedUploader(cfg CustomConfig, client *http.Client) (*SignedUploader, error) {
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("signed uploader: secret key is required")
	}
	u, err := url.Parse(cfg.UploadURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("signed uploader: invalid upload url %q", cfg.UploadURL)
	}
	if client == nil {
		client = defaultHTTPClient()
	}

	return &SignedUploader{
		secretKey: cfg.SecretKey,
		uploadURL: u,
		client:    client,
		now:       time.Now,
	}, nil
}

// Upload sends data as name and returns the URL reported by the server.
func (u *SignedUploader) Upload(ctx context.Context, name string, data []byte) (string, error) {
	ts := u.now().UnixMilli()

	endpoint := *u.uploadURL
	query := endpoint.Query()
	query.Set("ts", strconv.FormatInt(ts, 10))
	query.Set("sign", u.sign(ts))
	endpoint.RawQuery = query.Encode()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return "", fmt.Errorf("failed to create multipart body: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("failed to write multipart body: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("failed to finish multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), &body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := u.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP error %d: %s", resp.StatusCode, bytes.TrimSpace(respBody))
	}

	return parseUploadResponse(respBody)
}

func (u *SignedUploader) sign(ts int64) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%d:%s", ts, u.secretKey)))
	return hex.EncodeToString(sum[:])
}

type uploadResponse struct {
	Code    *int            `json:"code"`
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	URL     string          `json:"url"`
	Message string          `json:"message"`
}

// parseUploadResponse extracts the file URL from the server reply. A reply is successful when
// "code" is 0 or "success" is true; the URL is read from "data" (a string), "data.url" or "url".
func parseUploadResponse(body []byte) (string, error) {
	var resp uploadResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("server returned non-JSON response: %s", bytes.TrimSpace(body))
	}

	if !resp.Success && (resp.Code == nil || *resp.Code != 0) {
		msg := resp.Message
		if msg == "" {
			msg = "unknown server error"
		}
		return "", fmt.Errorf("server error: %s", msg)
	}

	fileURL := resp.URL
	if len(resp.Data) > 0 {
		var s string
		var obj struct {
			URL string `json:"url"`
		}
		switch {
		case json.Unmarshal(resp.Data, &s) == nil && s != "":
			fileURL = s
		case json.Unmarshal(resp.Data, &obj) == nil && obj.URL != "":
			fileURL = obj.URL
		}
	}

	if fileURL == "" {
		return "", fmt.Errorf("server reported success without a file url")
	}

	return fileURL, nil
}
