package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/fabfab/docpipe/ingestion"
	"github.com/fabfab/docpipe/search"
	"github.com/fabfab/docpipe/store"
)

const maxUploadBytes = 100 << 20

// Server exposes HTTP handlers for uploads, document retrieval, and search.
type Server struct {
	ingestSvc *ingestion.Service
	searchSvc *search.Service
	docs      store.DocumentStore
	files     ingestion.FileStore
	logger    *log.Logger
	handler   http.Handler
}

type errorResponse struct {
	Error string `json:"error"`
}

type documentResponse struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Filename    string     `json:"filename"`
	ContentType string     `json:"contentType"`
	FileSize    int64      `json:"fileSize"`
	Description string     `json:"description,omitempty"`
	ContentHash string     `json:"contentHash"`
	Status      string     `json:"status"`
	PageCount   int        `json:"pageCount"`
	UploadedAt  time.Time  `json:"uploadedAt"`
	ProcessedAt *time.Time `json:"processedAt,omitempty"`
}

type textResponse struct {
	DocumentID string `json:"documentId"`
	Text       string `json:"text"`
}

type imageResponse struct {
	ID            string   `json:"id"`
	PageNumber    int      `json:"pageNumber"`
	ImageSequence int      `json:"imageSequence"`
	X             *float64 `json:"x,omitempty"`
	Y             *float64 `json:"y,omitempty"`
	Width         float64  `json:"width"`
	Height        float64  `json:"height"`
	Format        string   `json:"format"`
	IsDiagram     bool     `json:"isDiagram"`
	Caption       string   `json:"caption,omitempty"`
}

type searchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

type searchMatch struct {
	DocumentID    string  `json:"documentId"`
	Title         string  `json:"title"`
	Filename      string  `json:"filename"`
	PageNumber    int     `json:"pageNumber"`
	ChunkSequence int     `json:"chunkSequence"`
	Content       string  `json:"content"`
	Score         float64 `json:"score"`
}

func New(ingestSvc *ingestion.Service, searchSvc *search.Service, docs store.DocumentStore, files ingestion.FileStore, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}

	s := &Server{
		ingestSvc: ingestSvc,
		searchSvc: searchSvc,
		docs:      docs,
		files:     files,
		logger:    logger,
	}
	s.handler = s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST /v1/documents", s.handleUpload)
	mux.HandleFunc("GET /v1/documents/{id}", s.handleGetDocument)
	mux.HandleFunc("GET /v1/documents/{id}/text", s.handleGetText)
	mux.HandleFunc("GET /v1/documents/{id}/images", s.handleListImages)
	mux.HandleFunc("POST /v1/documents/{id}/reprocess", s.handleReprocess)
	mux.HandleFunc("GET /v1/images/{id}/raw", s.handleImageRaw)
	mux.HandleFunc("POST /v1/search", s.handleSearch)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("parse multipart form: %v", err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("read upload: %v", err))
		return
	}

	doc, err := s.ingestSvc.Ingest(r.Context(), ingestion.Upload{
		Data:        data,
		Filename:    header.Filename,
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		ContentType: header.Header.Get("Content-Type"),
	})
	if err != nil {
		if errors.Is(err, ingestion.ErrEmptyInput) {
			s.writeError(w, http.StatusBadRequest, "uploaded file is empty")
			return
		}
		s.logger.Printf("upload failed: %v", err)
		s.writeError(w, http.StatusInternalServerError, "ingestion failed")
		return
	}

	s.writeJSON(w, http.StatusOK, toDocumentResponse(doc))
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.documentFromPath(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, toDocumentResponse(doc))
}

func (s *Server) handleGetText(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.documentFromPath(w, r)
	if !ok {
		return
	}

	chunks, err := s.docs.ListChunks(r.Context(), doc.ID)
	if err != nil {
		s.logger.Printf("list chunks for %s: %v", doc.ID, err)
		s.writeError(w, http.StatusInternalServerError, "load chunks failed")
		return
	}

	s.writeJSON(w, http.StatusOK, textResponse{
		DocumentID: doc.ID.String(),
		Text:       ingestion.ReassembleText(chunks),
	})
}

func (s *Server) handleListImages(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.documentFromPath(w, r)
	if !ok {
		return
	}

	images, err := s.docs.ListImages(r.Context(), doc.ID)
	if err != nil {
		s.logger.Printf("list images for %s: %v", doc.ID, err)
		s.writeError(w, http.StatusInternalServerError, "load images failed")
		return
	}

	resp := make([]imageResponse, 0, len(images))
	for _, img := range images {
		resp = append(resp, imageResponse{
			ID:            img.ID.String(),
			PageNumber:    img.PageNumber,
			ImageSequence: img.ImageSequence,
			X:             img.X,
			Y:             img.Y,
			Width:         img.Width,
			Height:        img.Height,
			Format:        img.Format,
			IsDiagram:     img.IsDiagram,
			Caption:       img.Caption,
		})
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReprocess(w http.ResponseWriter, r *http.Request) {
	id, ok := s.idFromPath(w, r)
	if !ok {
		return
	}

	doc, err := s.ingestSvc.Reprocess(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "document not found")
			return
		}
		s.logger.Printf("reprocess %s: %v", id, err)
		s.writeError(w, http.StatusInternalServerError, "reprocess failed")
		return
	}

	s.writeJSON(w, http.StatusOK, toDocumentResponse(doc))
}

func (s *Server) handleImageRaw(w http.ResponseWriter, r *http.Request) {
	id, ok := s.idFromPath(w, r)
	if !ok {
		return
	}

	img, err := s.docs.GetImage(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "image not found")
			return
		}
		s.logger.Printf("get image %s: %v", id, err)
		s.writeError(w, http.StatusInternalServerError, "load image failed")
		return
	}

	data, err := s.files.ReadFile(img.ImagePath)
	if err != nil {
		s.logger.Printf("read image file %s: %v", img.ImagePath, err)
		s.writeError(w, http.StatusNotFound, "image bytes not found")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	matches, err := s.searchSvc.Search(r.Context(), req.Query, req.Limit)
	if err != nil {
		s.logger.Printf("search failed: %v", err)
		s.writeError(w, http.StatusInternalServerError, "search failed")
		return
	}

	resp := make([]searchMatch, 0, len(matches))
	for _, m := range matches {
		resp = append(resp, searchMatch{
			DocumentID:    m.DocumentID.String(),
			Title:         m.Title,
			Filename:      m.Filename,
			PageNumber:    m.PageNumber,
			ChunkSequence: m.ChunkSequence,
			Content:       m.Content,
			Score:         m.Score,
		})
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) idFromPath(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid id")
		return uuid.Nil, false
	}
	return id, true
}

func (s *Server) documentFromPath(w http.ResponseWriter, r *http.Request) (*store.Document, bool) {
	id, ok := s.idFromPath(w, r)
	if !ok {
		return nil, false
	}

	doc, err := s.docs.GetDocument(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "document not found")
			return nil, false
		}
		s.logger.Printf("get document %s: %v", id, err)
		s.writeError(w, http.StatusInternalServerError, "load document failed")
		return nil, false
	}
	return doc, true
}

func toDocumentResponse(doc *store.Document) documentResponse {
	return documentResponse{
		ID:          doc.ID.String(),
		Title:       doc.Title,
		Filename:    doc.Filename,
		ContentType: doc.ContentType,
		FileSize:    doc.FileSize,
		Description: doc.Description,
		ContentHash: doc.ContentHash,
		Status:      string(doc.Status),
		PageCount:   doc.PageCount,
		UploadedAt:  doc.UploadedAt,
		ProcessedAt: doc.ProcessedAt,
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Printf("encode response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, errorResponse{Error: message})
}
