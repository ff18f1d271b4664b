package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	pgfailover "go-pgfailover"
	"go-pgfailover/content"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStore struct {
	records   []*content.Record
	addErr    error
	deleteErr error
	countErr  error
	deleted   []int
}

func (s *stubStore) Add(ctx context.Context, quote, imageName string, image io.Reader) (*content.Record, error) {
	if s.addErr != nil {
		return nil, s.addErr
	}

	var record = &content.Record{
		ID:            len(s.records) + 1,
		Quote:         quote,
		ImageFilename: "stored-" + imageName,
		CreatedAt:     time.Now(),
	}
	s.records = append(s.records, record)
	return record, nil
}

func (s *stubStore) List(ctx context.Context) ([]*content.Record, error) {
	return s.records, nil
}

func (s *stubStore) Delete(ctx context.Context, id int) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *stubStore) Count(ctx context.Context) (int, error) {
	if s.countErr != nil {
		return 0, s.countErr
	}
	return len(s.records), nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHandlers(t *testing.T) {
	var (
		newServerUnderTest = func(t *testing.T, store *stubStore) *server {
			registry, err := pgfailover.NewRegistry([]pgfailover.Node{
				{Host: "db1", Port: 5432},
				{Host: "db2", Port: 5432},
			})
			require.NoError(t, err)
			return newServer(store, registry, t.TempDir(), "test-host", testLogger())
		}
		doJSON = func(t *testing.T, sut *server, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
			var rec = httptest.NewRecorder()
			sut.routes().ServeHTTP(rec, req)

			var body map[string]any
			if rec.Body.Len() > 0 && json.Valid(rec.Body.Bytes()) {
				// Arrays are decoded by the caller; swallow errors here.
				_ = json.Unmarshal(rec.Body.Bytes(), &body)
			}
			return rec, body
		}
		newUpload = func(t *testing.T, quote, filename string) *http.Request {
			var (
				buf    bytes.Buffer
				writer = multipart.NewWriter(&buf)
			)

			if filename != "" {
				part, err := writer.CreateFormFile("image", filename)
				require.NoError(t, err)
				_, err = part.Write([]byte("image-bytes"))
				require.NoError(t, err)
			}
			if quote != "" {
				require.NoError(t, writer.WriteField("quote", quote))
			}
			require.NoError(t, writer.Close())

			var req = httptest.NewRequest(http.MethodPost, "/api/content", &buf)
			req.Header.Set("Content-Type", writer.FormDataContentType())
			return req
		}
	)

	t.Run("should list content with image urls", func(t *testing.T) {
		// Arrange
		var store = &stubStore{records: []*content.Record{
			{ID: 1, Quote: "hello", ImageFilename: "a.png", CreatedAt: time.Now()},
		}}
		var sut = newServerUnderTest(t, store)

		// Act
		var rec = httptest.NewRecorder()
		sut.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/content", nil))

		// Assert
		require.Equal(t, http.StatusOK, rec.Code)

		var out []contentResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
		require.Len(t, out, 1)
		assert.Equal(t, "/images/a.png", out[0].ImageURL)
	})

	t.Run("should return empty array when there is no content", func(t *testing.T) {
		// Arrange
		var sut = newServerUnderTest(t, &stubStore{})

		// Act
		var rec = httptest.NewRecorder()
		sut.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/content", nil))

		// Assert
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, "[]", rec.Body.String())
	})

	t.Run("should add content from multipart upload", func(t *testing.T) {
		// Arrange
		var (
			store = &stubStore{}
			sut   = newServerUnderTest(t, store)
		)

		// Act
		var rec, body = doJSON(t, sut, newUpload(t, "stay curious", "pic.png"))

		// Assert
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "/images/stored-pic.png", body["image_url"])
		require.Len(t, store.records, 1)
		assert.Equal(t, "stay curious", store.records[0].Quote)
	})

	t.Run("should reject upload without image", func(t *testing.T) {
		// Arrange
		var sut = newServerUnderTest(t, &stubStore{})

		// Act
		var rec, body = doJSON(t, sut, newUpload(t, "quote only", ""))

		// Assert
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, body["error"], "no image")
	})

	t.Run("should reject upload without quote", func(t *testing.T) {
		// Arrange
		var sut = newServerUnderTest(t, &stubStore{})

		// Act
		var rec, body = doJSON(t, sut, newUpload(t, "", "pic.png"))

		// Assert
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, body["error"], "quote")
	})

	t.Run("should map unsupported image type to bad request", func(t *testing.T) {
		// Arrange
		var sut = newServerUnderTest(t, &stubStore{addErr: content.ErrUnsupportedImageType})

		// Act
		var rec, _ = doJSON(t, sut, newUpload(t, "quote", "pic.png"))

		// Assert
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("should surface store failures as server errors", func(t *testing.T) {
		// Arrange
		var sut = newServerUnderTest(t, &stubStore{
			addErr: &pgfailover.NoAvailableNodeError{Intent: pgfailover.Write},
		})

		// Act
		var rec, _ = doJSON(t, sut, newUpload(t, "quote", "pic.png"))

		// Assert
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("should delete content by id", func(t *testing.T) {
		// Arrange
		var (
			store = &stubStore{}
			sut   = newServerUnderTest(t, store)
		)

		// Act
		var rec, _ = doJSON(t, sut,
			httptest.NewRequest(http.MethodDelete, "/api/content/42", nil))

		// Assert
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []int{42}, store.deleted)
	})

	t.Run("should return not found for missing content", func(t *testing.T) {
		// Arrange
		var sut = newServerUnderTest(t, &stubStore{deleteErr: content.ErrNotFound})

		// Act
		var rec, _ = doJSON(t, sut,
			httptest.NewRequest(http.MethodDelete, "/api/content/7", nil))

		// Assert
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("should report healthy with current node and count", func(t *testing.T) {
		// Arrange
		var store = &stubStore{records: []*content.Record{{ID: 1}}}
		var sut = newServerUnderTest(t, store)
		sut.registry.SetSticky(1)

		// Act
		var rec, body = doJSON(t, sut, httptest.NewRequest(http.MethodGet, "/api/health", nil))

		// Assert
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "healthy", body["status"])
		assert.Equal(t, "test-host", body["hostname"])
		assert.Equal(t, float64(2), body["database_index"])
		assert.Equal(t, "db2", body["db_host"])
		assert.Equal(t, float64(1), body["content_count"])
	})

	t.Run("should report degraded when the count fails", func(t *testing.T) {
		// Arrange
		var sut = newServerUnderTest(t, &stubStore{
			countErr: &pgfailover.NoAvailableNodeError{Intent: pgfailover.Read},
		})

		// Act
		var rec, body = doJSON(t, sut, httptest.NewRequest(http.MethodGet, "/api/health", nil))

		// Assert
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "degraded", body["status"])
		assert.NotEmpty(t, body["error"])
	})

	t.Run("should report time with a greeting", func(t *testing.T) {
		// Arrange
		var sut = newServerUnderTest(t, &stubStore{})

		// Act
		var rec, body = doJSON(t, sut, httptest.NewRequest(http.MethodGet, "/api/time", nil))

		// Assert
		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotEmpty(t, body["time"])
		assert.NotEmpty(t, body["greeting"])
	})
}

func TestGreetingFor(t *testing.T) {
	assert.Equal(t, "Good Night", greetingFor(0))
	assert.Equal(t, "Good Night", greetingFor(4))
	assert.Equal(t, "Good Morning", greetingFor(5))
	assert.Equal(t, "Good Morning", greetingFor(11))
	assert.Equal(t, "Good Afternoon", greetingFor(12))
	assert.Equal(t, "Good Afternoon", greetingFor(16))
	assert.Equal(t, "Good Evening", greetingFor(17))
	assert.Equal(t, "Good Evening", greetingFor(20))
	assert.Equal(t, "Good Night", greetingFor(21))
}
