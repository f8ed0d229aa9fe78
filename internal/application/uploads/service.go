package uploads

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"bluetrust-backend/internal/domain"
	"bluetrust-backend/internal/pkg/validation"

	"github.com/google/uuid"
)

var (
	ErrNoFiles         = errors.New("At least one file name is required")
	ErrInvalidFileName = errors.New("Photos must be .jpg, .jpeg, .png, .webp or .heic files")
)

// StorageClient signs uploads into object storage.
type StorageClient interface {
	CreateSignedUploadURL(ctx context.Context, bucket, path string) (string, error)
}

// HTTPClient is a StorageClient backed by the Supabase storage HTTP API.
type HTTPClient struct {
	BaseURL   string
	SecretKey string
	Client    *http.Client
}

type signedUploadResponse struct {
	SignedURL      string `json:"signedUrl"`
	SignedURLSnake string `json:"signed_url"`
	URL            string `json:"url"` // relative path returned by upload/sign
	Path           string `json:"path"`
}

func (c *HTTPClient) CreateSignedUploadURL(ctx context.Context, bucket, path string) (string, error) {
	if c.Client == nil {
		c.Client = &http.Client{Timeout: 10 * time.Second}
	}
	if c.BaseURL == "" {
		return "", fmt.Errorf("supabase: SUPABASE_URL is not set")
	}
	if c.SecretKey == "" {
		return "", fmt.Errorf("supabase: SUPABASE_SECRET_KEY is not set")
	}
	base := strings.TrimRight(c.BaseURL, "/")
	url := fmt.Sprintf("%s/storage/v1/object/upload/sign/%s/%s", base, bucket, path)

	bodyBytes, _ := json.Marshal(map[string]interface{}{
		"expiresIn": 3600,
		"upsert":    false,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", err
	}
	req.Header.Set("apikey", c.SecretKey)
	req.Header.Set("Authorization", "Bearer "+c.SecretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("supabase request: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("supabase error: status %d body: %s", resp.StatusCode, string(respBody))
	}

	var data signedUploadResponse
	if err := json.Unmarshal(respBody, &data); err != nil {
		return "", fmt.Errorf("supabase response decode: %w", err)
	}
	if data.SignedURL != "" {
		return data.SignedURL, nil
	}
	if data.SignedURLSnake != "" {
		return data.SignedURLSnake, nil
	}
	if data.URL != "" {
		u := data.URL
		if u[0] != '/' {
			u = "/" + u
		}
		return base + "/storage/v1" + u, nil
	}
	return "", fmt.Errorf("supabase returned no signed URL, body: %s", string(respBody))
}

// Service signs site photo uploads.
type Service struct {
	Client      StorageClient
	SupabaseURL string
	Bucket      string
	Now         func() time.Time
}

// UploadResult is one signed slot. Path goes back into the project draft.
type UploadResult struct {
	FileName  string `json:"fileName"`
	UploadURL string `json:"uploadUrl"`
	PublicURL string `json:"publicUrl"`
	Path      string `json:"path"`
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// SignSitePhotos returns one signed upload URL per file name. Names past
// MaxPhotos are dropped. Objects are stored under the account id.
func (s *Service) SignSitePhotos(ctx context.Context, accountID uuid.UUID, fileNames []string) ([]UploadResult, error) {
	if len(fileNames) == 0 {
		return nil, ErrNoFiles
	}
	fileNames = domain.TruncatePhotos(fileNames)
	for _, name := range fileNames {
		if !validation.IsImageFileName(name) {
			return nil, ErrInvalidFileName
		}
	}

	publicBase := strings.TrimRight(s.SupabaseURL, "/")
	stamp := s.now().UnixMilli()
	out := make([]UploadResult, 0, len(fileNames))
	for i, name := range fileNames {
		path := fmt.Sprintf("%s/%d-%d-%s", accountID, stamp, i, name)
		signedURL, err := s.Client.CreateSignedUploadURL(ctx, s.Bucket, path)
		if err != nil {
			return nil, err
		}
		out = append(out, UploadResult{
			FileName:  name,
			UploadURL: signedURL,
			PublicURL: fmt.Sprintf("%s/storage/v1/object/public/%s/%s", publicBase, s.Bucket, path),
			Path:      path,
		})
	}
	return out, nil
}
