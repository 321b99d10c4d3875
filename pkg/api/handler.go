package api

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/nafeeshossain/allergen-detector/pkg/detect"
	"github.com/nafeeshossain/allergen-detector/pkg/history"
	"github.com/nafeeshossain/allergen-detector/pkg/kit"
	"github.com/nafeeshossain/allergen-detector/pkg/ocr"
)

const maxImageBytes = 8 << 20 // 8 MiB upload cap

// NewRouter returns an http.Handler with all scanner API routes.
func NewRouter(svc *Service) http.Handler {
	logged := func(name string, e kit.Endpoint) kit.Endpoint {
		return kit.Chain(kit.Logging(slog.Default(), name))(e)
	}

	mux := http.NewServeMux()
	h := &handler{
		scan:          logged("scan", scanEndpoint(svc)),
		scanImage:     logged("scan_image", scanImageEndpoint(svc)),
		barcode:       logged("barcode", barcodeEndpoint(svc)),
		listAllergens: logged("list_allergens", listAllergensEndpoint(svc)),
		addFeedback:   logged("add_feedback", addFeedbackEndpoint(svc)),
		listFeedback:  logged("list_feedback", listFeedbackEndpoint(svc)),
		listHistory:   logged("list_history", listHistoryEndpoint(svc)),
		svc:           svc,
	}

	mux.HandleFunc("GET /v1/scan", methodNotAllowed)
	mux.HandleFunc("POST /v1/scan", h.handleScan)
	mux.HandleFunc("POST /v1/scan/image", h.handleScanImage)
	mux.HandleFunc("GET /v1/barcode/{code}", h.handleBarcode)
	mux.HandleFunc("GET /v1/allergens", h.handleListAllergens)
	mux.HandleFunc("POST /v1/feedback", h.handleAddFeedback)
	mux.HandleFunc("GET /v1/feedback", h.handleListFeedback)
	mux.HandleFunc("GET /v1/history", h.handleHistory)
	mux.HandleFunc("GET /v1/health", h.handleHealth)

	return cors(requestID(mux))
}

type handler struct {
	scan          kit.Endpoint
	scanImage     kit.Endpoint
	barcode       kit.Endpoint
	listAllergens kit.Endpoint
	addFeedback   kit.Endpoint
	listFeedback  kit.Endpoint
	listHistory   kit.Endpoint
	svc           *Service
}

// --- scan (text) ---

type httpScanRequest struct {
	Text           string   `json:"text"`
	User           string   `json:"user,omitempty"`
	Product        string   `json:"product,omitempty"`
	Allergens      []string `json:"allergens,omitempty"`
	Strategy       string   `json:"strategy,omitempty"`
	FuzzyThreshold int      `json:"fuzzy_threshold,omitempty"`
	TokenFuzzy     bool     `json:"token_fuzzy,omitempty"`
}

func (r httpScanRequest) options() detect.Options {
	return detect.Options{
		Strategy:       detect.Strategy(r.Strategy),
		FuzzyThreshold: r.FuzzyThreshold,
		TokenFuzzy:     r.TokenFuzzy,
	}
}

func (h *handler) handleScan(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 64*1024) // 64 KiB max
	var req httpScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	resp, err := h.scan(r.Context(), &scanReq{
		Text:      req.Text,
		User:      req.User,
		Product:   req.Product,
		Allergens: req.Allergens,
		Opts:      req.options(),
	})
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- scan (image) ---

// handleScanImage accepts either a multipart form with an "image" field
// or a raw image body. Scan parameters come from form fields or query
// parameters respectively.
func (h *handler) handleScanImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes)

	req := &scanImageReq{}
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxImageBytes); err != nil {
			writeError(w, http.StatusBadRequest, "invalid multipart form")
			return
		}
		file, _, err := r.FormFile("image")
		if err != nil {
			writeError(w, http.StatusBadRequest, "missing image field")
			return
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			writeError(w, http.StatusBadRequest, "read image: "+err.Error())
			return
		}
		req.Image = data
		req.User = r.FormValue("user")
		req.Product = r.FormValue("product")
		req.Language = r.FormValue("language")
		req.Allergens = splitList(r.FormValue("allergens"))
	} else {
		data, err := io.ReadAll(r.Body)
		if err != nil {
			writeError(w, http.StatusBadRequest, "read image: "+err.Error())
			return
		}
		q := r.URL.Query()
		req.Image = data
		req.User = q.Get("user")
		req.Product = q.Get("product")
		req.Language = q.Get("language")
		req.Allergens = splitList(q.Get("allergens"))
	}

	if len(req.Image) == 0 {
		writeError(w, http.StatusBadRequest, "empty image")
		return
	}

	resp, err := h.scanImage(r.Context(), req)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- barcode lookup ---

func (h *handler) handleBarcode(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "missing barcode")
		return
	}

	q := r.URL.Query()
	resp, err := h.barcode(r.Context(), &barcodeReq{
		Code:      code,
		User:      q.Get("user"),
		Allergens: splitList(q.Get("allergens")),
	})
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- allergen listing ---

func (h *handler) handleListAllergens(w http.ResponseWriter, r *http.Request) {
	resp, err := h.listAllergens(r.Context(), nil)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- feedback ---

func (h *handler) handleAddFeedback(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 64*1024)
	var fb history.Feedback
	if err := json.NewDecoder(r.Body).Decode(&fb); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	resp, err := h.addFeedback(r.Context(), &fb)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *handler) handleListFeedback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	resp, err := h.listFeedback(r.Context(), &feedbackListReq{
		Product: q.Get("product"),
		Limit:   parseLimit(q.Get("limit")),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- history ---

func (h *handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	user := q.Get("user")
	if user == "" {
		writeError(w, http.StatusBadRequest, "missing user parameter")
		return
	}

	resp, err := h.listHistory(r.Context(), &historyReq{
		User:  user,
		Limit: parseLimit(q.Get("limit")),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- health ---

type healthResponse struct {
	Status    string `json:"status"`
	Allergens int    `json:"allergens"`
	Synonyms  int    `json:"synonyms"`
	Catalogs  int    `json:"catalogs"`
	OCR       bool   `json:"ocr"`
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Allergens: h.svc.Registry.AllergenCount(),
		Synonyms:  h.svc.Registry.SynonymCount(),
		Catalogs:  len(h.svc.Registry.ListCatalogs()),
		OCR:       ocr.Available(),
	})
}

// --- helpers ---

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrProductNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrOCRFailed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ocr.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseLimit(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

// requestID tags each request context with a short random ID that the
// endpoint logging middleware picks up.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b := make([]byte, 6)
		rand.Read(b)
		id := hex.EncodeToString(b)
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r.WithContext(kit.WithRequestID(r.Context(), id)))
	})
}

// cors is a simple CORS middleware for browser-based clients.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
