package feed_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"feedsync/core/storage/mocks"
	"feedsync/feature/feed"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testBucket = "feedsync-test"

func archivedObject(data string) io.ReadCloser {
	return io.NopCloser(bytes.NewReader([]byte(data)))
}

func TestFetch_FreshFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write([]byte("BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n"))
	}))
	defer srv.Close()

	store := new(mocks.Client)
	// No archive yet
	store.On("GetObject", mock.Anything, testBucket, "feeds/cal-1/meta.json", mock.Anything).
		Return(nil, errors.New("not found"))
	store.On("GetObject", mock.Anything, testBucket, "feeds/cal-1/body.ics", mock.Anything).
		Return(nil, errors.New("not found"))
	store.On("PutObject", mock.Anything, testBucket, "feeds/cal-1/body.ics",
		mock.Anything, mock.Anything, mock.Anything).
		Return(minio.UploadInfo{}, nil)
	store.On("PutObject", mock.Anything, testBucket, "feeds/cal-1/meta.json",
		mock.Anything, mock.Anything, mock.Anything).
		Return(minio.UploadInfo{}, nil)

	f := feed.NewFetcher(store, testBucket, zap.NewNop(), 5)
	res, err := f.Fetch(context.Background(), "cal-1", srv.URL)
	require.NoError(t, err)
	assert.False(t, res.FromArchive)
	assert.Contains(t, string(res.Body), "BEGIN:VCALENDAR")

	store.AssertExpectations(t)
}

func TestFetch_NotModifiedUsesArchive(t *testing.T) {
	var gotETag string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotETag = r.Header.Get("If-None-Match")
		w.WriteHeader(http.StatusNotModified)
	}))
	defer srv.Close()

	store := new(mocks.Client)
	store.On("GetObject", mock.Anything, testBucket, "feeds/cal-1/meta.json", mock.Anything).
		Return(archivedObject(`{"url":"x","etag":"\"v1\""}`), nil)
	store.On("GetObject", mock.Anything, testBucket, "feeds/cal-1/body.ics", mock.Anything).
		Return(archivedObject("ARCHIVED"), nil)

	f := feed.NewFetcher(store, testBucket, zap.NewNop(), 5)
	res, err := f.Fetch(context.Background(), "cal-1", srv.URL)
	require.NoError(t, err)
	assert.True(t, res.FromArchive)
	assert.Equal(t, "ARCHIVED", string(res.Body))
	assert.Equal(t, `"v1"`, gotETag)
}

func TestFetch_NetworkFailureFallsBackToArchive(t *testing.T) {
	store := new(mocks.Client)
	store.On("GetObject", mock.Anything, testBucket, "feeds/cal-1/meta.json", mock.Anything).
		Return(nil, errors.New("not found"))
	store.On("GetObject", mock.Anything, testBucket, "feeds/cal-1/body.ics", mock.Anything).
		Return(archivedObject("ARCHIVED"), nil)

	f := feed.NewFetcher(store, testBucket, zap.NewNop(), 1)
	// Reserved TEST-NET address, nothing listens there
	res, err := f.Fetch(context.Background(), "cal-1", "http://192.0.2.1:9/feed.ics")
	require.NoError(t, err)
	assert.True(t, res.FromArchive)
	assert.Equal(t, "ARCHIVED", string(res.Body))
}

func TestFetch_NetworkFailureWithoutArchiveFails(t *testing.T) {
	store := new(mocks.Client)
	store.On("GetObject", mock.Anything, testBucket, mock.Anything, mock.Anything).
		Return(nil, errors.New("not found"))

	f := feed.NewFetcher(store, testBucket, zap.NewNop(), 1)
	_, err := f.Fetch(context.Background(), "cal-1", "http://192.0.2.1:9/feed.ics")
	assert.Error(t, err)
}

func TestDropArchive(t *testing.T) {
	store := new(mocks.Client)
	store.On("RemoveObject", mock.Anything, testBucket, "feeds/cal-1/meta.json", mock.Anything).
		Return(nil)
	store.On("RemoveObject", mock.Anything, testBucket, "feeds/cal-1/body.ics", mock.Anything).
		Return(nil)

	f := feed.NewFetcher(store, testBucket, zap.NewNop(), 5)
	err := f.DropArchive(context.Background(), "cal-1")
	assert.NoError(t, err)
	store.AssertExpectations(t)
}
