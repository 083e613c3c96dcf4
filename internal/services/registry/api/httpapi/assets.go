package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/xrfone/registry/internal/services/registry/domain"
	"github.com/xrfone/registry/internal/services/registry/storage"
	"github.com/xrfone/registry/internal/services/registry/stream"
)

type assetJSON struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Symbol       string    `json:"symbol"`
	Description  string    `json:"description"`
	Organization string    `json:"organization"`
	Listable     bool      `json:"listable"`
	Tradable     bool      `json:"tradable"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	UpdatedBy    string    `json:"updated_by"`
}

func assetToJSON(asset domain.Asset) assetJSON {
	return assetJSON{
		ID:           asset.ID,
		Name:         asset.Name,
		Symbol:       asset.Symbol,
		Description:  asset.Description,
		Organization: asset.Organization,
		Listable:     asset.Listable,
		Tradable:     asset.Tradable,
		CreatedAt:    asset.CreatedAt,
		UpdatedAt:    asset.UpdatedAt,
		UpdatedBy:    asset.UpdatedBy,
	}
}

func assetsToJSON(assets []domain.Asset) []assetJSON {
	out := make([]assetJSON, 0, len(assets))
	for _, asset := range assets {
		out = append(out, assetToJSON(asset))
	}
	return out
}

type assetPageJSON struct {
	Offset int64       `json:"offset"`
	Total  int         `json:"total"`
	Assets []assetJSON `json:"assets"`
}

type createAssetRequest struct {
	Name         string `json:"name"`
	Symbol       string `json:"symbol"`
	Description  string `json:"description"`
	Organization string `json:"organization"`
}

func (s *Service) createAsset(w http.ResponseWriter, r *http.Request) {
	userFP, err := fingerprint(r)
	if err != nil {
		validationError(w, err.Error())
		return
	}
	var req createAssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		validationError(w, "invalid request body")
		return
	}

	asset, err := domain.NewAsset(req.Name, req.Symbol, userFP, req.Description, req.Organization)
	if err != nil {
		writeError(w, err)
		return
	}
	log.Printf("creating new asset (name=%s -> symbol=%s)", asset.Name, asset.Symbol)
	created, err := s.orch.CreateAsset(r.Context(), asset)
	if err != nil {
		writeError(w, err)
		return
	}
	if !created {
		writeError(w, errors.New("asset was not created"))
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"asset_id": asset.ID})
}

func (s *Service) getAsset(w http.ResponseWriter, r *http.Request) {
	asset, err := s.store.FindAssetByID(r.Context(), chi.URLParam(r, "assetID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, assetToJSON(asset))
}

type updateAssetRequest struct {
	Organization string  `json:"organization"`
	Name         *string `json:"name"`
	Symbol       *string `json:"symbol"`
	Description  *string `json:"description"`
	Listable     *bool   `json:"listable"`
	Tradable     *bool   `json:"tradable"`
}

func (s *Service) updateAsset(w http.ResponseWriter, r *http.Request) {
	userFP, err := fingerprint(r)
	if err != nil {
		validationError(w, err.Error())
		return
	}
	assetID := chi.URLParam(r, "assetID")
	var req updateAssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		validationError(w, "invalid request body")
		return
	}
	if req.Organization == "" {
		validationError(w, "please provide a valid asset id and organization id")
		return
	}

	fields := storage.UpdateAssetFields{
		Name:         req.Name,
		Symbol:       req.Symbol,
		Description:  req.Description,
		Organization: &req.Organization,
		Listable:     req.Listable,
		Tradable:     req.Tradable,
	}

	log.Printf("updating asset id=%s", assetID)
	updated, err := s.store.UpdateAsset(r.Context(), assetID, userFP, fields)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"updated": updated})
}

func (s *Service) deleteAsset(w http.ResponseWriter, r *http.Request) {
	assetID := chi.URLParam(r, "assetID")
	organization := r.URL.Query().Get("organization")
	if organization == "" {
		validationError(w, "organization is required")
		return
	}

	// Ownership-scoped lookup first so one tenant cannot delete another's
	// asset by id alone.
	asset, err := s.store.FindAssetByIDAndOrg(r.Context(), assetID, organization)
	if err != nil {
		writeError(w, err)
		return
	}
	log.Printf("deleting asset id=%s", asset.ID)
	deleted, err := s.store.DeleteAsset(r.Context(), asset.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": deleted})
}

func (s *Service) listAssets(w http.ResponseWriter, r *http.Request) {
	offset, limit, order, err := queryWindow(r)
	if err != nil {
		validationError(w, err.Error())
		return
	}
	assets, err := stream.Page(r.Context(), s.store, offset, limit, order)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, assetPageJSON{
		Offset: offset,
		Total:  len(assets),
		Assets: assetsToJSON(assets),
	})
}

func (s *Service) searchAssets(w http.ResponseWriter, r *http.Request) {
	offset, limit, order, err := queryWindow(r)
	if err != nil {
		validationError(w, err.Error())
		return
	}
	if limit < 1 || limit > stream.MaxPageLimit {
		validationError(w, "limit must be between 1 and 100")
		return
	}

	name := r.URL.Query().Get("name")
	symbol := r.URL.Query().Get("symbol")
	var assets []domain.Asset
	switch {
	case name != "":
		assets, err = s.store.SearchAssetsByName(r.Context(), name, offset, limit, order)
	case symbol != "":
		assets, err = s.store.SearchAssetsBySymbol(r.Context(), symbol, offset, limit, order)
	default:
		validationError(w, "a name or symbol search term is required")
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, assetPageJSON{
		Offset: offset,
		Total:  len(assets),
		Assets: assetsToJSON(assets),
	})
}

// streamAssets serves the unbounded asset listing as newline-delimited JSON
// batches, flushed as they are produced. A mid-stream failure is encoded as
// one terminal error line; batches already written are not retracted.
func (s *Service) streamAssets(w http.ResponseWriter, r *http.Request) {
	offset, limit, order, err := queryWindow(r)
	if err != nil {
		validationError(w, err.Error())
		return
	}
	assets, err := stream.New(s.store, offset, limit, order)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)
	encoder := json.NewEncoder(w)

	for assets.Next(r.Context()) {
		batch := assets.Batch()
		line := assetPageJSON{
			Offset: batch.Offset,
			Total:  len(batch.Assets),
			Assets: assetsToJSON(batch.Assets),
		}
		if err := encoder.Encode(line); err != nil {
			// Consumer went away; stop fetching.
			log.Printf("stream assets: %v", err)
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
	if err := assets.Err(); err != nil {
		log.Printf("stream assets: %v", err)
		if encErr := encoder.Encode(errorBody{Error: err.Error()}); encErr != nil {
			log.Printf("stream assets: %v", encErr)
		}
	}
}

type transferAssetRequest struct {
	Organization    string `json:"organization"`
	NewOrganization string `json:"new_organization"`
	NewOwner        string `json:"new_owner_fingerprint"`
}

func (s *Service) transferAsset(w http.ResponseWriter, r *http.Request) {
	assetID := chi.URLParam(r, "assetID")
	var req transferAssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		validationError(w, "invalid request body")
		return
	}
	if req.Organization == "" || req.NewOrganization == "" || req.NewOwner == "" {
		validationError(w, "organization, new_organization and new_owner_fingerprint are required")
		return
	}

	certificate, err := s.orch.TransferAsset(r.Context(), req.Organization, assetID, req.NewOrganization, req.NewOwner)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"certificate_id": certificate.ID})
}

func (s *Service) getAssetCertificate(w http.ResponseWriter, r *http.Request) {
	certificate, err := s.store.FindCertificateByAssetID(r.Context(), chi.URLParam(r, "assetID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, certificateToJSON(certificate))
}

type certificateJSON struct {
	ID        string    `json:"id"`
	AssetID   string    `json:"asset_id"`
	Payload   string    `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
}

func certificateToJSON(certificate domain.Certificate) certificateJSON {
	return certificateJSON{
		ID:        certificate.ID,
		AssetID:   certificate.AssetID,
		Payload:   certificate.Payload,
		CreatedAt: certificate.CreatedAt,
	}
}

type trailEntryJSON struct {
	CertificateID    string    `json:"certificate_id"`
	AssetID          string    `json:"asset_id"`
	OwnerFingerprint string    `json:"owner_fingerprint"`
	TransferredOn    time.Time `json:"transferred_on"`
}

func (s *Service) getCertificateTrail(w http.ResponseWriter, r *http.Request) {
	entries, err := s.store.ListTrailByCertificate(r.Context(), chi.URLParam(r, "certificateID"))
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]trailEntryJSON, 0, len(entries))
	for _, entry := range entries {
		out = append(out, trailEntryJSON{
			CertificateID:    entry.CertificateID,
			AssetID:          entry.AssetID,
			OwnerFingerprint: entry.OwnerFingerprint,
			TransferredOn:    entry.TransferredOn,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": out})
}
