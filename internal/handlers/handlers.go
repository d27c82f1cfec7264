package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"

	"github.com/Brownie44l1/paddy-api/internal/monitoring"
	"github.com/Brownie44l1/paddy-api/internal/paddy"
	"github.com/Brownie44l1/paddy-api/internal/uploads"
)

// NotPaddyMessage accompanies a not_paddy_leaf response.
const NotPaddyMessage = "The uploaded image is not a paddy leaf."

// formOverhead is the body allowance on top of MaxUploadBytes for multipart
// boundaries and part headers.
const formOverhead = 64 << 10

// Classifier is the diagnosis pipeline as seen by the HTTP layer.
type Classifier interface {
	Classify(data []byte) (paddy.Result, error)
}

// PredictionResponse is the body of a successful /predict call.
type PredictionResponse struct {
	Label      string   `json:"label"`
	Confidence *float64 `json:"confidence,omitempty"`
	Chemical   string   `json:"chemical,omitempty"`
	Organic    string   `json:"organic,omitempty"`
	Message    string   `json:"message,omitempty"`
	ImageURL   string   `json:"image_url,omitempty"`
}

type Handler struct {
	classifier     Classifier
	store          *uploads.Store
	maxUploadBytes int64
}

// NewHandler wires the pipeline and upload store. store may be nil, in which
// case uploads are not kept and responses carry no image_url.
func NewHandler(classifier Classifier, store *uploads.Store, maxUploadBytes int64) *Handler {
	return &Handler{
		classifier:     classifier,
		store:          store,
		maxUploadBytes: maxUploadBytes,
	}
}

// Routes registers every endpoint on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/health", enableCORS(h.Health))
	mux.HandleFunc("/predict", enableCORS(h.Predict))
	mux.HandleFunc("/uploads/", enableCORS(h.Upload))
}

func enableCORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		monitoring.Logf("failed to encode json response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// Predict classifies the multipart "image" field.
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+formOverhead)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "upload too large")
			return
		}
		writeError(w, http.StatusBadRequest, "failed to parse form")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no image file provided, use 'image' as the form field name")
		return
	}
	defer file.Close()

	if header.Size > h.maxUploadBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "upload too large")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read upload")
		return
	}

	monitoring.Logf("received file: %s, size: %d bytes", header.Filename, header.Size)

	result, err := h.classifier.Classify(data)
	if err != nil {
		monitoring.Logf("prediction error: %v", err)
		switch {
		case errors.Is(err, paddy.ErrDecode):
			writeError(w, http.StatusBadRequest, "invalid image format, supported: JPEG, PNG, GIF, BMP, WebP")
		case errors.Is(err, paddy.ErrInference):
			writeError(w, http.StatusInternalServerError, "prediction failed")
		default:
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	// Only uploads that produced a result are kept.
	var imageURL string
	if h.store != nil {
		name, err := h.store.Save(data)
		if err != nil {
			monitoring.Logf("upload save error: %v", err)
			writeError(w, http.StatusInternalServerError, "failed to store upload")
			return
		}
		imageURL = "/uploads/" + name
	}

	writeJSON(w, http.StatusOK, newPredictionResponse(result, imageURL))
}

func newPredictionResponse(result paddy.Result, imageURL string) PredictionResponse {
	resp := PredictionResponse{
		Label:    result.LabelName(),
		ImageURL: imageURL,
	}
	if !result.IsPaddy() {
		confidence := result.Confidence
		resp.Confidence = &confidence
		resp.Message = NotPaddyMessage
		return resp
	}
	resp.Chemical = result.Recommendation.Chemical
	resp.Organic = result.Recommendation.Organic
	return resp
}

// Upload serves a previously stored image.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if h.store == nil {
		writeError(w, http.StatusNotFound, "uploads are not stored")
		return
	}

	path, err := h.store.Path(r.URL.Path[len("/uploads/"):])
	if err != nil {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if _, err := os.Stat(path); err != nil {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	http.ServeFile(w, r, path)
}
