package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	pgfailover "go-pgfailover"
	"go-pgfailover/content"

	"github.com/gorilla/mux"
)

// contentStore is the slice of the content layer the handlers use.
type contentStore interface {
	Add(ctx context.Context, quote, imageName string, image io.Reader) (*content.Record, error)
	List(ctx context.Context) ([]*content.Record, error)
	Delete(ctx context.Context, id int) error
	Count(ctx context.Context) (int, error)
}

type server struct {
	store    contentStore
	registry *pgfailover.Registry
	imageDir string
	hostname string
	logger   *slog.Logger
}

func newServer(store contentStore, registry *pgfailover.Registry, imageDir, hostname string, logger *slog.Logger) *server {
	return &server{
		store:    store,
		registry: registry,
		imageDir: imageDir,
		hostname: hostname,
		logger:   logger,
	}
}

func (s *server) routes() *mux.Router {
	var r = mux.NewRouter()
	r.HandleFunc("/api/content", s.handleListContent).Methods(http.MethodGet)
	r.HandleFunc("/api/content", s.handleAddContent).Methods(http.MethodPost)
	r.HandleFunc("/api/content/{id:[0-9]+}", s.handleDeleteContent).Methods(http.MethodDelete)
	r.HandleFunc("/api/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/time", s.handleTime).Methods(http.MethodGet)
	r.PathPrefix("/images/").Handler(
		http.StripPrefix("/images/", http.FileServer(http.Dir(s.imageDir))))
	return r
}

type contentResponse struct {
	ID            int       `json:"id"`
	Quote         string    `json:"quote"`
	ImageFilename string    `json:"image_filename"`
	ImageURL      string    `json:"image_url"`
	CreatedAt     time.Time `json:"created_at"`
}

func toContentResponse(record *content.Record) contentResponse {
	return contentResponse{
		ID:            record.ID,
		Quote:         record.Quote,
		ImageFilename: record.ImageFilename,
		ImageURL:      "/images/" + record.ImageFilename,
		CreatedAt:     record.CreatedAt,
	}
}

func (s *server) handleListContent(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.List(r.Context())
	if err != nil {
		s.serverError(w, "failed to list content", err)
		return
	}

	var out = make([]contentResponse, 0, len(records))
	for _, record := range records {
		out = append(out, toContentResponse(record))
	}

	s.writeJSON(w, http.StatusOK, out)
}

func (s *server) handleAddContent(w http.ResponseWriter, r *http.Request) {
	// The store enforces the same cap per file; this bounds the whole body.
	r.Body = http.MaxBytesReader(w, r.Body, content.MaxImageSize+1<<20)

	image, header, err := r.FormFile("image")
	if err != nil {
		s.clientError(w, http.StatusBadRequest, "no image file provided")
		return
	}
	defer image.Close()

	var quote = r.FormValue("quote")
	if quote == "" {
		s.clientError(w, http.StatusBadRequest, "quote is required")
		return
	}

	if header.Filename == "" {
		s.clientError(w, http.StatusBadRequest, "no file selected")
		return
	}

	record, err := s.store.Add(r.Context(), quote, header.Filename, image)
	if errors.Is(err, content.ErrUnsupportedImageType) || errors.Is(err, content.ErrImageTooLarge) {
		s.clientError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		s.serverError(w, "failed to add content", err)
		return
	}

	s.writeJSON(w, http.StatusCreated, map[string]any{
		"id":        record.ID,
		"message":   "content added successfully",
		"image_url": "/images/" + record.ImageFilename,
	})
}

func (s *server) handleDeleteContent(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		s.clientError(w, http.StatusBadRequest, "invalid content id")
		return
	}

	err = s.store.Delete(r.Context(), id)
	if errors.Is(err, content.ErrNotFound) {
		s.clientError(w, http.StatusNotFound, "content not found")
		return
	}
	if err != nil {
		s.serverError(w, "failed to delete content", err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{
		"message": "content deleted successfully",
	})
}

type healthResponse struct {
	Status        string `json:"status"`
	Hostname      string `json:"hostname"`
	DatabaseIndex int    `json:"database_index"`
	DatabaseHost  string `json:"db_host"`
	ContentCount  *int   `json:"content_count"`
	Error         string `json:"error,omitempty"`
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	var (
		sticky = s.registry.Sticky()
		status = healthResponse{
			Status:        "healthy",
			Hostname:      s.hostname,
			DatabaseIndex: sticky + 1,
			DatabaseHost:  s.registry.NodeAt(sticky).Host,
		}
	)

	count, err := s.store.Count(r.Context())
	if err != nil {
		status.Status = "degraded"
		status.Error = err.Error()
		s.writeJSON(w, http.StatusOK, status)
		return
	}

	status.ContentCount = &count
	s.writeJSON(w, http.StatusOK, status)
}

func (s *server) handleTime(w http.ResponseWriter, r *http.Request) {
	var now = time.Now()
	s.writeJSON(w, http.StatusOK, map[string]string{
		"time":     now.Format("15:04:05"),
		"date":     now.Format("January 02, 2006"),
		"greeting": greetingFor(now.Hour()),
	})
}

func greetingFor(hour int) string {
	switch {
	case hour >= 5 && hour < 12:
		return "Good Morning"
	case hour >= 12 && hour < 17:
		return "Good Afternoon"
	case hour >= 17 && hour < 21:
		return "Good Evening"
	default:
		return "Good Night"
	}
}

func (s *server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *server) clientError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *server) serverError(w http.ResponseWriter, message string, err error) {
	s.logger.Error(message, "error", err)
	s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
}
