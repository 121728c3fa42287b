package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/containerd/errdefs"
	"github.com/cuemby/zoned/pkg/hostedzone"
	"github.com/cuemby/zoned/pkg/log"
	"github.com/cuemby/zoned/pkg/types"
	"github.com/gorilla/mux"
)

// maxBodyBytes bounds request bodies
const maxBodyBytes = 1 << 20

var errRouteNotFound = fmt.Errorf("route: %w", errdefs.ErrNotFound)

// CreateZoneRequest is the body of POST /hostedzone
type CreateZoneRequest struct {
	Name            string `json:"name"`
	CallerReference string `json:"callerReference,omitempty"`
	Comment         string `json:"comment,omitempty"`
}

// CreateZoneResponse is returned by POST /hostedzone
type CreateZoneResponse struct {
	HostedZone    *hostedzone.HostedZone    `json:"hostedZone"`
	ChangeInfo    *hostedzone.ChangeInfo    `json:"changeInfo"`
	DelegationSet *hostedzone.DelegationSet `json:"delegationSet"`
}

// GetZoneResponse is returned by GET /hostedzone/{id}
type GetZoneResponse struct {
	HostedZone    *hostedzone.HostedZone    `json:"hostedZone"`
	DelegationSet *hostedzone.DelegationSet `json:"delegationSet"`
}

// ChangeBatchRequest is the body of POST /hostedzone/{id}/rrset
type ChangeBatchRequest struct {
	Comment string              `json:"comment,omitempty"`
	Changes []hostedzone.Change `json:"changes"`
}

// ChangeInfoResponse wraps a change status
type ChangeInfoResponse struct {
	ChangeInfo *hostedzone.ChangeInfo `json:"changeInfo"`
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail names the error class and carries the message
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Server) listZones(w http.ResponseWriter, r *http.Request) {
	maxItems, err := maxItemsParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	list, err := s.service.ListZones(maxItems, r.URL.Query().Get("marker"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) createZone(w http.ResponseWriter, r *http.Request) {
	var req CreateZoneRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	hz, change, ds, err := s.service.CreateZone(req.Name, req.CallerReference, req.Comment)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Location", "/"+Version+"/hostedzone/"+hz.ID)
	writeJSON(w, http.StatusCreated, &CreateZoneResponse{
		HostedZone:    hz,
		ChangeInfo:    change,
		DelegationSet: ds,
	})
}

func (s *Server) getZone(w http.ResponseWriter, r *http.Request) {
	hz, ds, err := s.service.GetZone(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &GetZoneResponse{HostedZone: hz, DelegationSet: ds})
}

func (s *Server) deleteZone(w http.ResponseWriter, r *http.Request) {
	change, err := s.service.DeleteZone(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &ChangeInfoResponse{ChangeInfo: change})
}

func (s *Server) listRecords(w http.ResponseWriter, r *http.Request) {
	maxItems, err := maxItemsParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	q := r.URL.Query()
	list, err := s.service.ListRecords(mux.Vars(r)["id"], q.Get("name"), q.Get("type"), maxItems)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) changeRecords(w http.ResponseWriter, r *http.Request) {
	var req ChangeBatchRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	change, err := s.service.ChangeRecordSet(mux.Vars(r)["id"], req.Comment, req.Changes)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &ChangeInfoResponse{ChangeInfo: change})
}

func (s *Server) getChange(w http.ResponseWriter, r *http.Request) {
	change, err := s.service.GetChange(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &ChangeInfoResponse{ChangeInfo: change})
}

// maxItemsParam reads the optional maxitems query parameter. Zero lets the
// service apply its default.
func maxItemsParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("maxitems")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("maxitems %q: %w", raw, errdefs.ErrInvalidArgument)
	}
	return n, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode request body: %v: %w", err, errdefs.ErrInvalidArgument)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps an error class onto an HTTP status
func writeError(w http.ResponseWriter, err error) {
	status, code := http.StatusInternalServerError, "InternalError"
	switch {
	case errdefs.IsNotFound(err):
		status, code = http.StatusNotFound, "NotFound"
	case errdefs.IsAlreadyExists(err):
		status, code = http.StatusConflict, "AlreadyExists"
	case errdefs.IsInvalidArgument(err):
		status, code = http.StatusBadRequest, "InvalidArgument"
	case errdefs.IsPermissionDenied(err):
		status, code = http.StatusForbidden, "PermissionDenied"
	}

	if status == http.StatusInternalServerError {
		log.Logger.Error().Str("component", "api").Err(err).Msg("Request failed")
	}

	msg := err.Error()
	if errors.Is(err, types.ErrInternal) {
		// filesystem details stay in the log
		msg = types.ErrInternal.Error()
	}
	writeJSON(w, status, &ErrorResponse{Error: ErrorDetail{Code: code, Message: msg}})
}
