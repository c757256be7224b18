package storage

import (
	"errors"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"filevault/internal/config"
)

func TestNewObjectStore_EndpointScheme(t *testing.T) {
	store, err := NewObjectStore(config.StorageConfig{
		Endpoint:  "https://minio.example.com:9000",
		AccessKey: "key",
		SecretKey: "secret",
		Bucket:    "filevault",
	})
	require.NoError(t, err)
	assert.Equal(t, "https", store.client.EndpointURL().Scheme)
	assert.Equal(t, "minio.example.com:9000", store.client.EndpointURL().Host)

	store, err = NewObjectStore(config.StorageConfig{Endpoint: "127.0.0.1:9000", Bucket: "filevault"})
	require.NoError(t, err)
	assert.Equal(t, "http", store.client.EndpointURL().Scheme)
}

func TestBuildKey(t *testing.T) {
	assert.Equal(t, "uploads/7/abc/report.pdf", BuildKey("uploads", 7, "abc", "report.pdf"))
	assert.Equal(t, "uploads/7/abc/report.pdf", BuildKey("/uploads/", 7, "abc", "report.pdf"))
	assert.Equal(t, "7/abc/a_b.txt", BuildKey("", 7, "abc", "a/b.txt"))
}

func TestKey_IsUniquePerCall(t *testing.T) {
	store, err := NewObjectStore(config.StorageConfig{Endpoint: "127.0.0.1:9000", Bucket: "filevault", Prefix: "uploads"})
	require.NoError(t, err)

	first := store.Key(3, "a.txt")
	second := store.Key(3, "a.txt")
	assert.NotEqual(t, first, second)
	assert.Regexp(t, `^uploads/3/[0-9A-Za-z]{27}/a\.txt$`, first)
}

func TestSafeName(t *testing.T) {
	assert.Equal(t, "file", SafeName("  "))
	assert.Equal(t, "file", SafeName(".."))
	assert.Equal(t, "x_y", SafeName(`x\y`))
}

func TestTranslate_NotFound(t *testing.T) {
	err := translate("k", minio.ErrorResponse{Code: "NoSuchKey"})
	assert.True(t, errors.Is(err, ErrObjectNotFound))

	err = translate("k", errors.New("boom"))
	assert.False(t, errors.Is(err, ErrObjectNotFound))
}
