package uploads

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStorage struct {
	paths []string
	err   error
}

func (f *fakeStorage) CreateSignedUploadURL(_ context.Context, bucket, path string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.paths = append(f.paths, bucket+"/"+path)
	return "https://signed/" + path, nil
}

func TestSignSitePhotos(t *testing.T) {
	fs := &fakeStorage{}
	acct := uuid.MustParse("7c9e6679-7425-40de-944b-e07fc1f90ae7")
	svc := &Service{Client: fs, SupabaseURL: "https://x.supabase.co/", Bucket: "site-photos",
		Now: func() time.Time { return time.UnixMilli(1700000000000) }}

	out, err := svc.SignSitePhotos(context.Background(), acct, []string{"a.jpg", "b.png"})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, acct.String()+"/1700000000000-0-a.jpg", out[0].Path)
	assert.Equal(t, "https://x.supabase.co/storage/v1/object/public/site-photos/"+out[1].Path, out[1].PublicURL)
	assert.Equal(t, "https://signed/"+out[0].Path, out[0].UploadURL)
	assert.Len(t, fs.paths, 2)
}

func TestSignSitePhotos_Rejects(t *testing.T) {
	svc := &Service{Client: &fakeStorage{}, Bucket: "site-photos"}
	ctx := context.Background()

	_, err := svc.SignSitePhotos(ctx, uuid.New(), nil)
	assert.ErrorIs(t, err, ErrNoFiles)
	_, err = svc.SignSitePhotos(ctx, uuid.New(), []string{"../etc/passwd.jpg"})
	assert.ErrorIs(t, err, ErrInvalidFileName)
	_, err = svc.SignSitePhotos(ctx, uuid.New(), []string{"notes.pdf"})
	assert.ErrorIs(t, err, ErrInvalidFileName)

	svc.Client = &fakeStorage{err: errors.New("down")}
	_, err = svc.SignSitePhotos(ctx, uuid.New(), []string{"a.jpg"})
	assert.Error(t, err)
}

func TestSignSitePhotos_KeepsFirstFive(t *testing.T) {
	fs := &fakeStorage{}
	svc := &Service{Client: fs, Bucket: "site-photos"}
	names := []string{"1.jpg", "2.jpg", "3.jpg", "4.jpg", "5.jpg", "6.jpg", "7.jpg"}

	out, err := svc.SignSitePhotos(context.Background(), uuid.New(), names)
	require.NoError(t, err)
	require.Len(t, out, 5)
	assert.Equal(t, "5.jpg", out[4].FileName)
	assert.Len(t, fs.paths, 5)
}

func TestHTTPClient_CreateSignedUploadURL(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		assert.True(t, strings.HasPrefix(r.URL.Path, "/storage/v1/object/upload/sign/site-photos/"))
		_, _ = w.Write([]byte(`{"url":"/object/upload/sign/site-photos/p.jpg?token=abc"}`))
	}))
	defer srv.Close()

	c := &HTTPClient{BaseURL: srv.URL, SecretKey: "secret", Client: srv.Client()}
	u, err := c.CreateSignedUploadURL(context.Background(), "site-photos", "p.jpg")
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret", auth)
	assert.Equal(t, srv.URL+"/storage/v1/object/upload/sign/site-photos/p.jpg?token=abc", u)
}

func TestHTTPClient_MissingConfig(t *testing.T) {
	_, err := (&HTTPClient{}).CreateSignedUploadURL(context.Background(), "b", "p")
	assert.Error(t, err)
}
