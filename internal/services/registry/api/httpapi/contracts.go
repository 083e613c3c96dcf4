package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/xrfone/registry/internal/services/registry/domain"
)

type contractJSON struct {
	ID           string    `json:"id"`
	AssetID      string    `json:"asset_id"`
	Content      string    `json:"content"`
	Summary      string    `json:"summary"`
	Organization string    `json:"organization"`
	UpdatedBy    string    `json:"updated_by"`
	UpdateCount  int       `json:"update_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type createContractRequest struct {
	AssetID      string `json:"asset_id"`
	Content      string `json:"content"`
	Summary      string `json:"summary"`
	Organization string `json:"organization"`
}

func (s *Service) createContract(w http.ResponseWriter, r *http.Request) {
	userFP, err := fingerprint(r)
	if err != nil {
		validationError(w, err.Error())
		return
	}
	var req createContractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		validationError(w, "invalid request body")
		return
	}

	contract, err := domain.NewContract(req.AssetID, req.Content, req.Summary, userFP, req.Organization)
	if err != nil {
		writeError(w, err)
		return
	}
	log.Printf("attaching contract to asset %s", contract.AssetID)
	created, err := s.store.InsertContract(r.Context(), contract)
	if err != nil {
		writeError(w, err)
		return
	}
	if !created {
		writeError(w, errors.New("contract was not created"))
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"contract_id": contract.ID})
}

func (s *Service) getContract(w http.ResponseWriter, r *http.Request) {
	contract, err := s.store.FindContractByAssetID(r.Context(), chi.URLParam(r, "assetID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, contractJSON{
		ID:           contract.ID,
		AssetID:      contract.AssetID,
		Content:      contract.Content,
		Summary:      contract.Summary,
		Organization: contract.Organization,
		UpdatedBy:    contract.UpdatedBy,
		UpdateCount:  contract.UpdateCount,
		CreatedAt:    contract.CreatedAt,
		UpdatedAt:    contract.UpdatedAt,
	})
}
