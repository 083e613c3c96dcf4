// Package httpapi exposes the registry operations as a JSON HTTP API.
//
// The handlers adapt requests to the core components and translate the error
// taxonomy into status codes; they hold no business rules of their own.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/xrfone/registry/internal/services/registry/domain"
	"github.com/xrfone/registry/internal/services/registry/storage"
)

// FingerprintHeader carries the caller's opaque, pre-validated identity.
// Authentication happens upstream; the value is trusted as-is.
const FingerprintHeader = "X-Xrf-User-Fingerprint"

// RequestIDHeader echoes the id assigned to each request.
const RequestIDHeader = "X-Request-Id"

// Store is the read surface the handlers serve from.
type Store interface {
	storage.AssetStore
	storage.AssetLister
	storage.CertificateStore
	storage.TrailStore
	storage.ContractStore
}

// Orchestrator executes the multi-step write operations.
type Orchestrator interface {
	CreateAsset(ctx context.Context, asset domain.Asset) (bool, error)
	TransferAsset(ctx context.Context, organization, assetID, newOrganization, newOwner string) (domain.Certificate, error)
}

// Service exposes registry operations over HTTP.
type Service struct {
	store Store
	orch  Orchestrator
}

// NewService creates the HTTP API backed by registry storage and the
// orchestrator.
func NewService(store Store, orch Orchestrator) *Service {
	return &Service{store: store, orch: orch}
}

// Router mounts the registry routes.
func (s *Service) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/assets", func(r chi.Router) {
			r.Post("/", s.createAsset)
			r.Get("/", s.listAssets)
			r.Get("/search", s.searchAssets)
			r.Get("/stream", s.streamAssets)
			r.Route("/{assetID}", func(r chi.Router) {
				r.Get("/", s.getAsset)
				r.Patch("/", s.updateAsset)
				r.Delete("/", s.deleteAsset)
				r.Get("/certificate", s.getAssetCertificate)
				r.Post("/transfer", s.transferAsset)
			})
		})
		r.Route("/contracts", func(r chi.Router) {
			r.Post("/", s.createContract)
			r.Get("/{assetID}", s.getContract)
		})
		r.Get("/certificates/{certificateID}/trail", s.getCertificateTrail)
	})

	return r
}

// requestID assigns a UUIDv4 to each request and echoes it in the response.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

func fingerprint(r *http.Request) (string, error) {
	value := r.Header.Get(FingerprintHeader)
	if value == "" {
		return "", errors.New("user fingerprint header is required")
	}
	return value, nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("encode response: %v", err)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, storage.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, storage.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, storage.ErrUnavailable):
		status = http.StatusServiceUnavailable
	}
	if status >= http.StatusInternalServerError {
		log.Printf("registry api: %v", err)
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func validationError(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: message})
}

// queryWindow parses offset/limit/order query parameters. Order parsing is
// strict; an unrecognized value is rejected rather than defaulted.
func queryWindow(r *http.Request) (offset int64, limit int, order storage.Order, err error) {
	query := r.URL.Query()

	if raw := query.Get("offset"); raw != "" {
		offset, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, 0, 0, errors.New("offset must be an integer")
		}
	}
	if raw := query.Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil {
			return 0, 0, 0, errors.New("limit must be an integer")
		}
	}
	order = storage.OrderAscending
	if raw := query.Get("order"); raw != "" {
		order, err = storage.ParseOrder(raw)
		if err != nil {
			return 0, 0, 0, err
		}
	}
	return offset, limit, order, nil
}
