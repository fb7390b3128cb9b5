package service

import (
	"bytes"
	"codegrow_backend/internal/config"
	"codegrow_backend/internal/util"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pngHeader 足以让 http.DetectContentType 识别为 image/png
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func fileHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("avatar", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))
	return req.MultipartForm.File["avatar"][0]
}

func TestUploadAvatarLocal(t *testing.T) {
	f := newFixture(t)
	user := f.createUser(t)
	dir := t.TempDir()

	svc := NewStorageService(&config.Config{Storage: config.StorageConfig{Type: "local", LocalPath: dir}}, f.users)

	url, err := svc.UploadAvatar(context.Background(), user.ID, fileHeader(t, "me.png", pngHeader))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "/uploads/avatars/"))
	assert.True(t, strings.HasSuffix(url, ".png"))

	stored := filepath.Join(dir, strings.TrimPrefix(url, "/uploads/"))
	_, err = os.Stat(stored)
	assert.NoError(t, err)
	assert.Equal(t, url, f.reloadUser(t, user.ID).Avatar)
}

func TestUploadAvatarRejectsNonImage(t *testing.T) {
	f := newFixture(t)
	user := f.createUser(t)
	dir := t.TempDir()

	svc := NewStorageService(&config.Config{Storage: config.StorageConfig{Type: "local", LocalPath: dir}}, f.users)

	_, err := svc.UploadAvatar(context.Background(), user.ID, fileHeader(t, "notes.png", []byte("just some text")))
	assert.ErrorIs(t, err, util.ErrInvalidContent)

	entries, _ := os.ReadDir(dir)
	assert.Empty(t, entries)
	assert.Empty(t, f.reloadUser(t, user.ID).Avatar)
}

func TestUploadAvatarTooLarge(t *testing.T) {
	f := newFixture(t)
	user := f.createUser(t)

	svc := NewStorageService(&config.Config{Storage: config.StorageConfig{Type: "local", LocalPath: t.TempDir()}}, f.users)

	big := append(append([]byte{}, pngHeader...), make([]byte, util.MaxAvatarSize)...)
	_, err := svc.UploadAvatar(context.Background(), user.ID, fileHeader(t, "big.png", big))
	assert.ErrorIs(t, err, util.ErrInvalidContent)
}
