package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"

	"kakeibo/internal/core"
)

type errorResponse struct {
	Detail string `json:"detail"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type importResponse struct {
	Count   int    `json:"count"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// respondServiceError maps the error taxonomy onto HTTP statuses:
// unknown ids are 404, cross-dataset conflicts 409, missing or invalid
// import mappings 400, everything else 500.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		respondJSON(w, http.StatusNotFound, errorResponse{Detail: err.Error()})
	case errors.Is(err, core.ErrConflict):
		respondJSON(w, http.StatusConflict, errorResponse{Detail: err.Error()})
	case errors.Is(err, core.ErrMappingNotFound), errors.Is(err, core.ErrInvalidMapping),
		errors.Is(err, core.ErrEmptyName), errors.Is(err, core.ErrEmptyItemName):
		respondJSON(w, http.StatusBadRequest, errorResponse{Detail: err.Error()})
	default:
		slog.ErrorContext(r.Context(), "Request failed",
			"method", r.Method, "url", r.URL.Path, "error", err)
		respondJSON(w, http.StatusInternalServerError, errorResponse{Detail: err.Error()})
	}
}

func respondBadRequest(w http.ResponseWriter, detail string) {
	respondJSON(w, http.StatusBadRequest, errorResponse{Detail: detail})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		respondBadRequest(w, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// pathInt64 parses the {id} path segment as an integer.
func pathInt64(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		respondBadRequest(w, "invalid id: "+r.PathValue("id"))
		return 0, false
	}
	return id, true
}

// queryDatasetID fetches the mandatory dataset_id query parameter.
func queryDatasetID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.URL.Query().Get("dataset_id")
	if id == "" {
		respondBadRequest(w, "dataset_id query parameter is required")
		return "", false
	}
	return id, true
}

// uploadedCSV pulls the "file" part out of a multipart upload, bounded
// by the configured request size limit. The caller owns closing it.
func (s *Server) uploadedCSV(w http.ResponseWriter, r *http.Request) (multipart.File, bool, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		respondBadRequest(w, "invalid multipart upload: "+err.Error())
		return nil, false, false
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		respondBadRequest(w, "missing file field: "+err.Error())
		return nil, false, false
	}
	overwrite, _ := strconv.ParseBool(r.FormValue("overwrite"))
	return file, overwrite, true
}
