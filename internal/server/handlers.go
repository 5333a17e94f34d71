package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"
	"github.com/hyperjump/docqa/internal/indexer"
	"github.com/hyperjump/docqa/internal/ingest"
	"github.com/hyperjump/docqa/internal/models"
	"github.com/hyperjump/docqa/internal/storage"
	"github.com/hyperjump/docqa/internal/tabular"
	"github.com/hyperjump/docqa/internal/vector"
	"go.uber.org/zap"
)

// Response signals.
const (
	SignalFileUploadSuccess   = "file_upload_success"
	SignalFileUploadFailed    = "file_upload_failed"
	SignalNoFiles             = "no_files_error"
	SignalProcessingSuccess   = "processing_success"
	SignalAssetDeleted        = "asset_deleted"
	SignalInsertSuccess       = "insert_into_vectordb_success"
	SignalInsertError         = "insert_into_vectordb_error"
	SignalCollectionRetrieved = "vectordb_collection_retrieved"
	SignalCollectionNotFound  = "vectordb_collection_not_found"
	SignalSearchSuccess       = "vectordb_search_success"
	SignalSearchError         = "vectordb_search_error"
	SignalAnswerSuccess       = "rag_answer_success"
	SignalAnswerError         = "rag_answer_error"
	SignalStoreUnavailable    = "relational_store_unavailable"
)

const maxMultipartMemory = 32 << 20

type uploadedFile struct {
	OriginalName string `json:"original_filename"`
	StoredName   string `json:"asset_name_stored,omitempty"`
	AssetID      int64  `json:"asset_db_id,omitempty"`
	Error        string `json:"error,omitempty"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	project, ok := s.project(w, r)
	if !ok {
		return
	}
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		s.respondJSON(w, http.StatusBadRequest, map[string]string{"signal": SignalNoFiles, "error": "invalid multipart body"})
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()
	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		s.respondJSON(w, http.StatusBadRequest, map[string]string{"signal": SignalNoFiles})
		return
	}

	var uploaded, rejected []uploadedFile
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			rejected = append(rejected, uploadedFile{OriginalName: fh.Filename, Error: "cannot read file"})
			continue
		}
		asset, err := s.svc.Uploader.Upload(r.Context(), project.ID, fh.Filename, f)
		_ = f.Close()
		if err != nil {
			s.logger.Warn("upload rejected", zap.String("file", fh.Filename), zap.Error(err))
			rejected = append(rejected, uploadedFile{OriginalName: fh.Filename, Error: uploadError(err)})
			continue
		}
		uploaded = append(uploaded, uploadedFile{OriginalName: fh.Filename, StoredName: asset.Name, AssetID: asset.ID})
	}
	if len(uploaded) == 0 {
		s.respondJSON(w, http.StatusBadRequest, map[string]any{"signal": SignalFileUploadFailed, "rejected_files": rejected})
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"signal":                 SignalFileUploadSuccess,
		"uploaded_files_details": uploaded,
		"rejected_files":         rejected,
	})
}

// uploadError keeps client-facing upload errors free of server paths.
func uploadError(err error) string {
	switch {
	case errors.Is(err, ingest.ErrUnsupportedType):
		return "unsupported file type"
	case errors.Is(err, ingest.ErrContentMismatch):
		return "file content does not match its extension"
	case errors.Is(err, storage.ErrTooLarge):
		return "file exceeds size limit"
	}
	return "upload failed"
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	project, ok := s.project(w, r)
	if !ok {
		return
	}
	var req models.ProcessRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.ChunkSize == 0 {
		req.ChunkSize = s.config.Processing.ChunkSize
	}
	if req.OverlapSize == 0 {
		req.OverlapSize = s.config.Processing.OverlapSize
	}
	res, err := s.svc.Processor.Process(r.Context(), project, req)
	switch {
	case errors.Is(err, indexer.ErrNoAssets):
		s.respondJSON(w, http.StatusBadRequest, map[string]string{"signal": SignalNoFiles})
		return
	case errors.Is(err, tabular.ErrUnavailable):
		s.logger.Error("process failed", zap.Int64("project_id", project.ID), zap.Error(err))
		s.respondJSON(w, http.StatusServiceUnavailable, map[string]string{"signal": SignalStoreUnavailable})
		return
	case err != nil:
		s.logger.Error("process failed", zap.Int64("project_id", project.ID), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "processing failed")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"signal":          SignalProcessingSuccess,
		"inserted_chunks": res.InsertedChunks,
		"processed_files": res.ProcessedFiles,
		"skipped_files":   res.SkippedFiles,
	})
}

func (s *Server) handleListAssets(w http.ResponseWriter, r *http.Request) {
	project, ok := s.project(w, r)
	if !ok {
		return
	}
	assets, err := s.svc.Storage.ListAssets(r.Context(), project.ID)
	if err != nil {
		s.logger.Error("list assets failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "failed to list assets")
		return
	}
	if assets == nil {
		assets = []*models.Asset{}
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"assets": assets})
}

func (s *Server) handleDeleteAsset(w http.ResponseWriter, r *http.Request) {
	projectID, err := parseID(chi.URLParam(r, "project"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid project id")
		return
	}
	assetID, err := parseID(chi.URLParam(r, "asset"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid asset id")
		return
	}
	project, err := s.svc.Storage.GetProject(r.Context(), projectID)
	if errors.Is(err, storage.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "project not found")
		return
	}
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to load project")
		return
	}
	err = s.svc.Processor.DeleteAsset(r.Context(), project, assetID)
	if errors.Is(err, storage.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "asset not found")
		return
	}
	if err != nil {
		s.logger.Error("delete asset failed", zap.Int64("asset_id", assetID), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "failed to delete asset")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"signal": SignalAssetDeleted, "asset_id": assetID})
}

func (s *Server) handlePush(w http.ResponseWriter, r *http.Request) {
	project, ok := s.project(w, r)
	if !ok {
		return
	}
	var req models.PushRequest
	if !s.decode(w, r, &req) {
		return
	}
	res, err := s.svc.Indexer.Push(r.Context(), project, req.DoReset)
	if err != nil {
		s.logger.Error("push failed", zap.Int64("project_id", project.ID), zap.Error(err))
		inserted := 0
		if res != nil {
			inserted = res.InsertedCount
		}
		s.respondJSON(w, http.StatusInternalServerError, map[string]any{"signal": SignalInsertError, "inserted_items_count": inserted})
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"signal":               SignalInsertSuccess,
		"collection":           res.Collection,
		"inserted_items_count": res.InsertedCount,
	})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	project, ok := s.project(w, r)
	if !ok {
		return
	}
	info, err := s.svc.Indexer.Info(r.Context(), project)
	if errors.Is(err, vector.ErrCollectionNotFound) {
		s.respondJSON(w, http.StatusNotFound, map[string]string{"signal": SignalCollectionNotFound})
		return
	}
	if err != nil {
		s.logger.Error("collection info failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "failed to read collection info")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"signal": SignalCollectionRetrieved, "collection_info": info})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	project, query, ok := s.searchRequest(w, r)
	if !ok {
		return
	}
	s.logger.Debug("search request", zap.String("query", query.Text), zap.Int("limit", query.Limit))
	results, err := s.svc.Indexer.Search(r.Context(), project, query.Text, query.Limit)
	if err != nil && !errors.Is(err, vector.ErrCollectionNotFound) {
		s.logger.Error("search failed", zap.Error(err))
		s.respondJSON(w, http.StatusInternalServerError, map[string]string{"signal": SignalSearchError})
		return
	}
	if results == nil {
		results = []models.RetrievedChunk{}
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"signal": SignalSearchSuccess, "results": results})
}

type answerResponse struct {
	Signal string `json:"signal"`
	*models.Answer
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	project, query, ok := s.searchRequest(w, r)
	if !ok {
		return
	}
	ans, err := s.svc.Pipeline.Ask(r.Context(), project, query.Text, query.Limit)
	if errors.Is(err, tabular.ErrUnavailable) {
		s.logger.Error("answer failed", zap.Error(err))
		s.respondJSON(w, http.StatusServiceUnavailable, map[string]string{"signal": SignalStoreUnavailable})
		return
	}
	if err != nil {
		s.logger.Error("answer failed", zap.Error(err))
		s.respondJSON(w, http.StatusInternalServerError, map[string]string{"signal": SignalAnswerError})
		return
	}
	if !query.IncludeTrace {
		ans.Trace = nil
		ans.Thoughts = ""
		ans.GeneratedSQL = ""
	}
	s.respondJSON(w, http.StatusOK, answerResponse{Signal: SignalAnswerSuccess, Answer: ans})
}

func (s *Server) handleExplainImage(w http.ResponseWriter, r *http.Request) {
	if s.svc.Captioner == nil {
		s.respondError(w, http.StatusNotImplemented, "vision is not configured")
		return
	}
	limit := s.config.Files.MaxSizeBytes()
	r.Body = http.MaxBytesReader(w, r.Body, limit+maxMultipartMemory)
	f, _, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "cannot read file")
		return
	}
	if int64(len(data)) > limit {
		s.respondError(w, http.StatusBadRequest, "file exceeds size limit")
		return
	}
	if !strings.HasPrefix(mimetype.Detect(data).String(), "image/") {
		s.respondError(w, http.StatusBadRequest, "Only image files are supported.")
		return
	}
	caption, err := s.svc.Captioner.Caption(r.Context(), data)
	if err != nil {
		s.logger.Error("explain image failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "failed to caption image")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"caption": caption})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	projects, err := s.svc.Storage.CountProjects(ctx)
	if err != nil {
		s.logger.Error("status: count projects failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	assets, err := s.svc.Storage.CountAssets(ctx)
	if err != nil {
		s.logger.Error("status: count assets failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	chunks, err := s.svc.Storage.CountChunks(ctx)
	if err != nil {
		s.logger.Error("status: count chunks failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := StatusResponse{
		Projects: projects,
		Assets:   assets,
		Chunks:   chunks,
		Config: &StatusConfig{
			StorageDriver:       s.config.Storage.Driver,
			TabularBackend:      s.config.Tabular.Backend,
			VectorBackend:       s.config.Vector.Backend,
			EmbeddingProvider:   s.config.Embedding.Provider,
			EmbeddingModel:      s.config.Embedding.Model,
			EmbeddingDimensions: s.config.Embedding.Dimensions,
			GenerationModel:     s.config.Generation.Model,
			ChunkSize:           s.config.Processing.ChunkSize,
			ChunkOverlap:        s.config.Processing.OverlapSize,
			Language:            s.config.Answer.Language,
		},
	}
	paths := []string{s.config.Storage.AssetsDir}
	if s.config.Storage.Driver == "sqlite" {
		paths = append(paths, storage.DatabaseFiles(s.config.Storage.DatabasePath)...)
	}
	if s.config.Tabular.Backend == "sqlite" {
		paths = append(paths, storage.DatabaseFiles(s.config.Tabular.SQLitePath)...)
	}
	if s.config.Vector.Backend == "memory" {
		paths = append(paths, s.config.Vector.MemoryPath)
	}
	if n, err := storage.DiskUsageBytes(paths...); err == nil {
		resp.DiskUsageBytes = &n
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// StatusConfig is the configuration summary in a status response.
type StatusConfig struct {
	StorageDriver       string `json:"storage_driver"`
	TabularBackend      string `json:"tabular_backend"`
	VectorBackend       string `json:"vector_backend"`
	EmbeddingProvider   string `json:"embedding_provider"`
	EmbeddingModel      string `json:"embedding_model,omitempty"`
	EmbeddingDimensions int    `json:"embedding_dimensions"`
	GenerationModel     string `json:"generation_model,omitempty"`
	ChunkSize           int    `json:"chunk_size"`
	ChunkOverlap        int    `json:"chunk_overlap"`
	Language            string `json:"language"`
}

// StatusResponse is the shape of GET /api/v1/status.
type StatusResponse struct {
	Projects       int64         `json:"projects"`
	Assets         int64         `json:"assets"`
	Chunks         int64         `json:"chunks"`
	DiskUsageBytes *int64        `json:"disk_usage_bytes,omitempty"`
	Config         *StatusConfig `json:"config,omitempty"`
}

// project resolves the {project} URL parameter, creating the project on first use.
func (s *Server) project(w http.ResponseWriter, r *http.Request) (*models.Project, bool) {
	id, err := parseID(chi.URLParam(r, "project"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid project id")
		return nil, false
	}
	project, err := s.svc.Storage.GetOrCreateProject(r.Context(), id)
	if err != nil {
		s.logger.Error("failed to load project", zap.Int64("project_id", id), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "failed to load project")
		return nil, false
	}
	return project, true
}

func (s *Server) searchRequest(w http.ResponseWriter, r *http.Request) (*models.Project, *models.SearchQuery, bool) {
	var query models.SearchQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return nil, nil, false
	}
	if err := query.Validate(s.config.Answer.DefaultLimit, s.config.Answer.MaxLimit); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return nil, nil, false
	}
	project, ok := s.project(w, r)
	if !ok {
		return nil, nil, false
	}
	return project, &query, true
}

// decode reads an optional JSON body into v. An empty body leaves v untouched.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err != nil && !errors.Is(err, io.EOF) {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
