package receipt

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/zombor/receipt-processor/internal/scanning"
)

const maxUploadSize = int64(50 << 20) // high-resolution phone photos

// corsError writes an error response with CORS headers set
func corsError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	http.Error(w, message, code)
}

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

func writeJSONError(w http.ResponseWriter, code int, message string) {
	setCORSHeaders(w)
	writeJSON(w, code, map[string]string{"error": message})
}

// processResponse reports the result of a processing run
type processResponse struct {
	Outcome string   `json:"outcome"`
	Receipt *Receipt `json:"receipt,omitempty"`
	Error   string   `json:"error,omitempty"`
}

func writeResult(w http.ResponseWriter, result Result) {
	resp := processResponse{Outcome: result.Outcome.String(), Receipt: result.Receipt}
	if result.Err != nil {
		resp.Error = result.Err.Error()
	}

	code := http.StatusCreated
	if !result.Succeeded() {
		code = http.StatusBadGateway
	}
	writeJSON(w, code, resp)
}

// handleEvent processes the document named by an S3 event notification
func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "Error reading request body")
		return
	}

	ref, err := scanning.ParseS3Event(body)
	if err != nil {
		slog.Error("Error parsing event", "error", err)
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeResult(w, s.service.ProcessDocument(r.Context(), ref))
}

// handleUploadReceipt stores an uploaded document and processes it
func (s *Server) handleUploadReceipt(w http.ResponseWriter, r *http.Request) {
	if s.config.UploadBucket == "" {
		writeJSONError(w, http.StatusNotImplemented, "Uploads are not enabled")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		errorMsg := "Error parsing form"
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			errorMsg = "File is too large. Maximum size is 50MB. Please compress or resize your image."
		}
		writeJSONError(w, http.StatusBadRequest, errorMsg)
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		writeJSONError(w, http.StatusBadRequest, "No file was selected. Please choose a file to upload.")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		writeJSONError(w, http.StatusInternalServerError, "Error reading file. Please try again.")
		return
	}

	contentType := strings.ToLower(strings.TrimSpace(header.Header.Get("Content-Type")))
	if contentType == "" || contentType == "application/octet-stream" {
		if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(header.Filename))); byExt != "" {
			contentType = byExt
		} else {
			contentType = http.DetectContentType(data)
		}
	}

	writeResult(w, s.service.ProcessUpload(r.Context(), s.config.UploadBucket, header.Filename, data, contentType))
}

// handleListReceipts returns a list of all receipts
func (s *Server) handleListReceipts(w http.ResponseWriter, r *http.Request) {
	receipts, err := s.service.ListReceipts(r.Context())
	if err != nil {
		slog.Error("Error listing receipts", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, receipts)
}

// handleGetReceipt returns a single receipt
func (s *Server) handleGetReceipt(w http.ResponseWriter, r *http.Request) {
	receipt, err := s.service.GetReceipt(r.Context(), r.PathValue("id"))
	if err != nil {
		lookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

// handleGetNotification returns the rendered notification body of a receipt
func (s *Server) handleGetNotification(w http.ResponseWriter, r *http.Request) {
	body, err := s.service.RenderNotification(r.Context(), r.PathValue("id"))
	if err != nil {
		lookupError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	io.WriteString(w, body)
}

// handleDeleteReceipt deletes a receipt
func (s *Server) handleDeleteReceipt(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteReceipt(r.Context(), r.PathValue("id")); err != nil {
		lookupError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSummary returns spend totals per vendor
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.service.SpendByVendor(r.Context())
	if err != nil {
		slog.Error("Error summarizing receipts", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func lookupError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNotFound) {
		corsError(w, "Receipt not found", http.StatusNotFound)
		return
	}
	slog.Error("Error loading receipt", "error", err)
	corsError(w, "Internal server error", http.StatusInternalServerError)
}
