package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"curamed.org/internal/auth"
	"curamed.org/internal/clinical"
)

// handlePatientResource dispatches /v1/patients/{id}.
//
// Tenant isolation is deliberate here: a patient owned by another organization
// is reported as 404, never 403, so the response does not confirm the record
// exists.
func (a *API) handlePatientResource(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/patients/"), "/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		a.getPatient(w, r, id)
	case http.MethodPut:
		a.updatePatient(w, r, id)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPut)
	}
}

// loadPatientScoped fetches the patient and applies the organization guard.
func (a *API) loadPatientScoped(w http.ResponseWriter, r *http.Request, principal auth.Principal, id string) (*clinical.Patient, bool) {
	patient, err := a.patients.Find(r.Context(), id)
	if err != nil {
		if errors.Is(err, clinical.ErrNotFound) {
			writeError(w, http.StatusNotFound, "patient not found")
		} else {
			writeError(w, http.StatusInternalServerError, "failed to load patient")
		}
		return nil, false
	}
	if !a.guard.SameOrganization(principal, patient.OrganizationID) {
		writeError(w, http.StatusNotFound, "patient not found")
		return nil, false
	}
	return patient, true
}

func (a *API) getPatient(w http.ResponseWriter, r *http.Request, id string) {
	principal, ok := a.ensurePermission(w, r, auth.PermPatientsView)
	if !ok {
		return
	}
	patient, ok := a.loadPatientScoped(w, r, principal, id)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, patient)
}

func (a *API) updatePatient(w http.ResponseWriter, r *http.Request, id string) {
	principal, ok := a.ensurePermission(w, r, auth.PermPatientsEdit)
	if !ok {
		return
	}
	patient, ok := a.loadPatientScoped(w, r, principal, id)
	if !ok {
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	patient.Name = req.Name
	if err := a.patients.Update(r.Context(), patient); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update patient")
		return
	}
	_ = a.recorder.Record(r.Context(), principal, "patient.update", "patient", patient.ID, map[string]string{
		"name": patient.Name,
	})
	writeJSON(w, http.StatusOK, patient)
}
