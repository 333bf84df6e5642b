package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"feedsync/core/storage"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// FetchResult contains the outcome of fetching a single feed.
type FetchResult struct {
	Body        []byte
	FromArchive bool // true when the archived body was reused (304 or network failure)
}

// archiveMeta holds the HTTP cache metadata stored next to the
// archived body.
type archiveMeta struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Fetcher retrieves ICS feeds with conditional requests and keeps the
// last good body archived in object storage, per calendar.
type Fetcher struct {
	client *http.Client
	store  storage.Client
	bucket string
	logger *zap.Logger
}

// NewFetcher creates a feed Fetcher. timeoutSeconds bounds the whole
// HTTP exchange for one feed.
func NewFetcher(store storage.Client, bucket string, logger *zap.Logger, timeoutSeconds int) *Fetcher {
	if timeoutSeconds <= 0 {
		timeoutSeconds = 15
	}
	return &Fetcher{
		client: &http.Client{
			Timeout: time.Duration(timeoutSeconds) * time.Second,
		},
		store:  store,
		bucket: bucket,
		logger: logger,
	}
}

// Fetch retrieves the feed for one calendar. On a 304 or a network
// error it falls back to the archived body; with no archive available
// the error propagates so the caller aborts the sync for this calendar.
func (f *Fetcher) Fetch(ctx context.Context, calendarID, url string) (FetchResult, error) {
	if url == "" {
		return FetchResult{}, errors.New("feed URL is empty")
	}

	meta, _ := f.loadMeta(ctx, calendarID)
	archived, _ := f.loadBody(ctx, calendarID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return FetchResult{}, err
	}
	if meta.ETag != "" {
		req.Header.Set("If-None-Match", meta.ETag)
	}
	if meta.LastModified != "" {
		req.Header.Set("If-Modified-Since", meta.LastModified)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if len(archived) > 0 {
			f.logger.Warn("feed fetch failed, using archived body",
				zap.String("calendar_id", calendarID), zap.Error(err))
			return FetchResult{Body: archived, FromArchive: true}, nil
		}
		return FetchResult{}, fmt.Errorf("feed fetch failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return FetchResult{}, readErr
		}

		newMeta := archiveMeta{
			URL:          url,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
			UpdatedAt:    time.Now().UTC(),
		}
		if saveErr := f.saveArchive(ctx, calendarID, newMeta, body); saveErr != nil {
			f.logger.Warn("feed archive save failed",
				zap.String("calendar_id", calendarID), zap.Error(saveErr))
		}

		return FetchResult{Body: body}, nil

	case http.StatusNotModified:
		if len(archived) == 0 {
			return FetchResult{}, errors.New("received 304 Not Modified but no archived body available")
		}
		return FetchResult{Body: archived, FromArchive: true}, nil

	default:
		if len(archived) > 0 {
			f.logger.Warn("feed fetch returned non-OK status, using archived body",
				zap.String("calendar_id", calendarID), zap.Int("status", resp.StatusCode))
			return FetchResult{Body: archived, FromArchive: true}, nil
		}
		return FetchResult{}, fmt.Errorf("feed fetch failed: %s", resp.Status)
	}
}

// DropArchive removes the archived body and metadata for one calendar.
// Called when the subscription is deleted.
func (f *Fetcher) DropArchive(ctx context.Context, calendarID string) error {
	// Meta first so a partial failure never leaves meta pointing at a
	// missing body.
	if err := f.store.RemoveObject(ctx, f.bucket, metaObjectName(calendarID), minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to remove feed metadata: %w", err)
	}
	if err := f.store.RemoveObject(ctx, f.bucket, bodyObjectName(calendarID), minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to remove feed body: %w", err)
	}
	return nil
}

func metaObjectName(calendarID string) string {
	return "feeds/" + calendarID + "/meta.json"
}

func bodyObjectName(calendarID string) string {
	return "feeds/" + calendarID + "/body.ics"
}

func (f *Fetcher) loadMeta(ctx context.Context, calendarID string) (archiveMeta, error) {
	var meta archiveMeta
	obj, err := f.store.GetObject(ctx, f.bucket, metaObjectName(calendarID), minio.GetObjectOptions{})
	if err != nil {
		return meta, err
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return archiveMeta{}, err
	}
	return meta, nil
}

func (f *Fetcher) loadBody(ctx context.Context, calendarID string) ([]byte, error) {
	obj, err := f.store.GetObject(ctx, f.bucket, bodyObjectName(calendarID), minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()
	return io.ReadAll(obj)
}

func (f *Fetcher) saveArchive(ctx context.Context, calendarID string, meta archiveMeta, body []byte) error {
	// Body first so meta never points at a missing body.
	_, err := f.store.PutObject(ctx, f.bucket, bodyObjectName(calendarID),
		bytes.NewReader(body), int64(len(body)),
		minio.PutObjectOptions{ContentType: "text/calendar"})
	if err != nil {
		return fmt.Errorf("failed to archive feed body: %w", err)
	}

	data, err := json.MarshalIndent(&meta, "", "  ")
	if err != nil {
		return err
	}
	_, err = f.store.PutObject(ctx, f.bucket, metaObjectName(calendarID),
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return fmt.Errorf("failed to archive feed metadata: %w", err)
	}
	return nil
}
