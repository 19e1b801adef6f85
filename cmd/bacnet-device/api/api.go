package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/bacnet-stack/bacnet-go/pkg/bacapp"
	"github.com/bacnet-stack/bacnet-go/pkg/bacnet"
	"github.com/bacnet-stack/bacnet-go/pkg/inspect"
	"github.com/bacnet-stack/bacnet-go/pkg/object"
	"github.com/bacnet-stack/bacnet-go/pkg/persistence"
	"github.com/bacnet-stack/bacnet-go/pkg/service"
)

// RequestIDHeader carries the id assigned to every request.
const RequestIDHeader = "X-Request-Id"

// errBadRequest marks malformed path segments, query parameters and bodies.
var errBadRequest = errors.New("bad request")

// API serves the objects of a DeviceService over HTTP.
type API struct {
	svc       *service.DeviceService
	inspector *inspect.Inspector
	logger    *slog.Logger
	version   string
}

// New creates the API. A nil logger discards request logs.
func New(svc *service.DeviceService, logger *slog.Logger, version string) *API {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &API{
		svc:       svc,
		inspector: inspect.NewInspector(svc),
		logger:    logger,
		version:   version,
	}
}

// Router returns the HTTP handler with every route registered.
func (a *API) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(a.requestID, a.logRequests)

	r.HandleFunc("/health", a.handleHealth).Methods(http.MethodGet)

	r.HandleFunc("/objects", a.handleListObjects).Methods(http.MethodGet)
	r.HandleFunc("/objects/{type}", a.handleCreateObject).Methods(http.MethodPost)
	r.HandleFunc("/objects/{type}/{instance}", a.handleGetObject).Methods(http.MethodGet)
	r.HandleFunc("/objects/{type}/{instance}", a.handleDeleteObject).Methods(http.MethodDelete)
	r.HandleFunc("/objects/{type}/{instance}/history", a.handleHistory).Methods(http.MethodGet)
	r.HandleFunc("/objects/{type}/{instance}/{property}", a.handleReadProperty).Methods(http.MethodGet)
	r.HandleFunc("/objects/{type}/{instance}/{property}", a.handleWriteProperty).Methods(http.MethodPut)

	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed", "")
	})
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSONError(w, http.StatusNotFound, "Not found", "")
	})
	return r
}

// requestID tags each request and response with a random id, keeping one
// supplied by the client.
func (a *API) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
			r.Header.Set(RequestIDHeader, id)
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

func (a *API) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		a.logger.Debug("http request",
			"id", r.Header.Get(RequestIDHeader),
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// handleHealth handles GET /health.
func (a *API) handleHealth(w http.ResponseWriter, _ *http.Request) {
	version := a.version
	if version == "" {
		version = "dev"
	}
	writeJSONResponse(w, http.StatusOK, map[string]string{
		"status":        "ok",
		"version":       version,
		"communication": a.svc.CommunicationState().String(),
	})
}

// handleListObjects handles GET /objects.
func (a *API) handleListObjects(w http.ResponseWriter, _ *http.Request) {
	d := a.svc.Device()
	resp := ObjectListResponse{Device: d.ID().String()}
	for _, id := range a.svc.Objects() {
		name, _ := d.ObjectName(id)
		resp.Objects = append(resp.Objects, ObjectSummary{
			ID:       id.String(),
			Type:     id.Type.String(),
			Instance: id.Instance,
			Name:     name,
		})
	}
	resp.Total = len(resp.Objects)
	writeJSONResponse(w, http.StatusOK, resp)
}

// handleGetObject handles GET /objects/{type}/{instance}.
func (a *API) handleGetObject(w http.ResponseWriter, r *http.Request) {
	id, err := objectFromVars(mux.Vars(r))
	if err != nil {
		writeError(w, err)
		return
	}
	info, err := a.inspector.ReadAll(id)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := ObjectResponse{
		ID:         info.ID.String(),
		Name:       info.Name,
		Units:      info.Unit,
		Properties: make(map[string]any, len(info.Properties)),
	}
	for _, p := range info.Properties {
		resp.Properties[p.ID.String()] = jsonValue(p.ID, p.Values, bacnet.ArrayAll)
	}
	writeJSONResponse(w, http.StatusOK, resp)
}

// handleReadProperty handles GET /objects/{type}/{instance}/{property}.
func (a *API) handleReadProperty(w http.ResponseWriter, r *http.Request) {
	path, err := pathFromVars(mux.Vars(r))
	if err != nil {
		writeError(w, err)
		return
	}
	if s := r.URL.Query().Get("index"); s != "" {
		n, err := strconv.ParseUint(s, 10, 32)
		if err != nil || uint32(n) == bacnet.ArrayAll {
			writeError(w, fmt.Errorf("%w: index %q", errBadRequest, s))
			return
		}
		path.ArrayIndex = uint32(n)
	}

	vs, err := a.inspector.Read(path)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := PropertyResponse{
		Object:   path.Object.String(),
		Property: path.Property.String(),
		Value:    jsonValue(path.Property, vs, path.ArrayIndex),
	}
	if path.ArrayIndex != bacnet.ArrayAll {
		idx := path.ArrayIndex
		resp.Index = &idx
	}
	writeJSONResponse(w, http.StatusOK, resp)
}

// handleWriteProperty handles PUT /objects/{type}/{instance}/{property}.
func (a *API) handleWriteProperty(w http.ResponseWriter, r *http.Request) {
	path, err := pathFromVars(mux.Vars(r))
	if err != nil {
		writeError(w, err)
		return
	}

	var req WriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if req.Index != nil {
		path.ArrayIndex = *req.Index
	}
	text, err := valueText(req.Value)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := a.inspector.Write(path, text, req.Priority); err != nil {
		writeError(w, err)
		return
	}

	vs, err := a.inspector.Read(path)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, PropertyResponse{
		Object:   path.Object.String(),
		Property: path.Property.String(),
		Index:    req.Index,
		Value:    jsonValue(path.Property, vs, path.ArrayIndex),
	})
}

// handleCreateObject handles POST /objects/{type}.
func (a *API) handleCreateObject(w http.ResponseWriter, r *http.Request) {
	t, ok := inspect.ResolveObjectType(mux.Vars(r)["type"])
	if !ok {
		writeError(w, fmt.Errorf("%w: %q", bacnet.ErrUnknownObjectType, mux.Vars(r)["type"]))
		return
	}

	var req CreateRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "Invalid request body", err.Error())
			return
		}
	}
	instance := bacnet.MaxInstance
	if req.Instance != nil {
		instance = *req.Instance
	}

	id, err := a.svc.CreateObject(t, instance, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	name, _ := a.svc.Device().ObjectName(id)
	w.Header().Set("Location", fmt.Sprintf("/objects/%s/%d", id.Type, id.Instance))
	writeJSONResponse(w, http.StatusCreated, CreateResponse{
		ID:       id.String(),
		Instance: id.Instance,
		Name:     name,
	})
}

// handleDeleteObject handles DELETE /objects/{type}/{instance}.
func (a *API) handleDeleteObject(w http.ResponseWriter, r *http.Request) {
	id, err := objectFromVars(mux.Vars(r))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := a.svc.DeleteObject(id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleHistory handles GET /objects/{type}/{instance}/history with the
// optional query parameters since (RFC 3339) and limit.
func (a *API) handleHistory(w http.ResponseWriter, r *http.Request) {
	id, err := objectFromVars(mux.Vars(r))
	if err != nil {
		writeError(w, err)
		return
	}

	q := r.URL.Query()
	var since time.Time
	if s := q.Get("since"); s != "" {
		since, err = time.Parse(time.RFC3339, s)
		if err != nil {
			writeError(w, fmt.Errorf("%w: since %q", errBadRequest, s))
			return
		}
	}
	limit := 0
	if s := q.Get("limit"); s != "" {
		limit, err = strconv.Atoi(s)
		if err != nil || limit < 0 {
			writeError(w, fmt.Errorf("%w: limit %q", errBadRequest, s))
			return
		}
	}

	entries, err := a.svc.History(r.Context(), id, since, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := HistoryResponse{Object: id.String(), Entries: entries, Total: len(entries)}
	if resp.Entries == nil {
		resp.Entries = []persistence.Entry{}
	}
	if !since.IsZero() {
		resp.Since = &since
	}
	writeJSONResponse(w, http.StatusOK, resp)
}

func objectFromVars(vars map[string]string) (bacnet.ObjectID, error) {
	t, ok := inspect.ResolveObjectType(vars["type"])
	if !ok {
		return bacnet.ObjectID{}, fmt.Errorf("%w: %q", bacnet.ErrUnknownObjectType, vars["type"])
	}
	n, err := strconv.ParseUint(vars["instance"], 10, 22)
	if err != nil {
		return bacnet.ObjectID{}, fmt.Errorf("%w: instance %q", errBadRequest, vars["instance"])
	}
	return bacnet.ObjectID{Type: t, Instance: uint32(n)}, nil
}

func pathFromVars(vars map[string]string) (*inspect.Path, error) {
	id, err := objectFromVars(vars)
	if err != nil {
		return nil, err
	}
	prop, ok := inspect.ResolveProperty(vars["property"])
	if !ok {
		return nil, fmt.Errorf("%w: %q", bacnet.ErrUnknownPropertyName, vars["property"])
	}
	return &inspect.Path{Object: id, Property: prop, ArrayIndex: bacnet.ArrayAll}, nil
}

// valueText converts a decoded JSON value to the text form parsed by the
// inspector.
func valueText(v any) (string, error) {
	switch v := v.(type) {
	case nil:
		return "null", nil
	case bool:
		return strconv.FormatBool(v), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case string:
		return v, nil
	default:
		return "", fmt.Errorf("%w: unsupported value %T", errBadRequest, v)
	}
}

// jsonValue converts property values for a JSON response. Arrays read
// whole become JSON arrays; enumerations with known names are rendered by
// name.
func jsonValue(prop bacnet.PropertyID, vs []bacapp.Value, index uint32) any {
	if len(vs) == 1 && (index != bacnet.ArrayAll || !object.IsArrayProperty(prop)) {
		return scalarValue(prop, vs[0])
	}
	out := make([]any, len(vs))
	for i, v := range vs {
		out[i] = scalarValue(prop, v)
	}
	return out
}

func scalarValue(prop bacnet.PropertyID, v bacapp.Value) any {
	switch {
	case prop == bacnet.PropObjectType && v.Tag == bacapp.TagEnumerated:
		return bacnet.ObjectType(v.Enumerated).String()
	case prop == bacnet.PropUnits && v.Tag == bacapp.TagEnumerated:
		return bacnet.EngineeringUnits(v.Enumerated).String()
	case prop == bacnet.PropStatusFlags && v.Tag == bacapp.TagBitString:
		flags := make(map[string]bool, 4)
		for i, name := range []string{"in_alarm", "fault", "overridden", "out_of_service"} {
			flags[name] = i < v.BitString.Len() && v.BitString.Bit(i)
		}
		return flags
	default:
		return v.Interface()
	}
}

// httpStatus maps an error to its HTTP status code.
func httpStatus(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, bacapp.ErrParseValue),
		errors.Is(err, inspect.ErrNoTag):
		return http.StatusBadRequest
	case errors.Is(err, bacnet.ErrUnknownObjectType),
		errors.Is(err, bacnet.ErrUnknownPropertyName):
		return http.StatusNotFound
	}

	var be *bacnet.Error
	if !errors.As(err, &be) {
		return http.StatusInternalServerError
	}
	switch be.Code {
	case bacnet.CodeUnknownObject, bacnet.CodeUnknownProperty:
		return http.StatusNotFound
	case bacnet.CodeWriteAccessDenied, bacnet.CodeObjectDeletionNotPermitted,
		bacnet.CodeDynamicCreationNotSupported, bacnet.CodeServiceRequestDenied:
		return http.StatusForbidden
	case bacnet.CodeDuplicateName, bacnet.CodeDuplicateObjectID:
		return http.StatusConflict
	case bacnet.CodeNoSpaceForObject, bacnet.CodeNoSpaceToAddListElement:
		return http.StatusInsufficientStorage
	case bacnet.CodeOther:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// writeError writes err with its mapped status code.
func writeError(w http.ResponseWriter, err error) {
	status := httpStatus(err)
	resp := ErrorResponse{Error: http.StatusText(status), Details: err.Error()}
	var be *bacnet.Error
	if errors.As(err, &be) {
		resp.Class = be.Class.String()
		resp.Code = be.Code.String()
	}
	writeJSONResponse(w, status, resp)
}

// writeJSONResponse writes a JSON response.
func writeJSONResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeJSONError writes a JSON error response.
func writeJSONError(w http.ResponseWriter, status int, message, details string) {
	writeJSONResponse(w, status, ErrorResponse{Error: message, Details: details})
}
