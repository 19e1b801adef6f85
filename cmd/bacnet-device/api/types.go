// Package api provides the HTTP API of bacnet-device.
package api

import (
	"time"

	"github.com/bacnet-stack/bacnet-go/pkg/persistence"
)

// ObjectSummary identifies one object in GET /objects.
type ObjectSummary struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Instance uint32 `json:"instance"`
	Name     string `json:"name"`
}

// ObjectListResponse is the response for GET /objects.
type ObjectListResponse struct {
	Device  string          `json:"device"`
	Objects []ObjectSummary `json:"objects"`
	Total   int             `json:"total"`
}

// ObjectResponse is the response for GET /objects/{type}/{instance}.
// Properties are keyed by property name.
type ObjectResponse struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Units      string         `json:"units,omitempty"`
	Properties map[string]any `json:"properties"`
}

// PropertyResponse is the response for a single property read.
type PropertyResponse struct {
	Object   string  `json:"object"`
	Property string  `json:"property"`
	Index    *uint32 `json:"index,omitempty"`
	Value    any     `json:"value"`
}

// WriteRequest is the request body for PUT
// /objects/{type}/{instance}/{property}. A null value relinquishes the
// priority slot.
type WriteRequest struct {
	Value    any     `json:"value"`
	Priority uint8   `json:"priority,omitempty"`
	Index    *uint32 `json:"index,omitempty"`
}

// CreateRequest is the request body for POST /objects/{type}. A missing
// instance lets the device pick one.
type CreateRequest struct {
	Instance *uint32 `json:"instance,omitempty"`
	Name     string  `json:"name,omitempty"`
}

// CreateResponse is the response for POST /objects/{type}.
type CreateResponse struct {
	ID       string `json:"id"`
	Instance uint32 `json:"instance"`
	Name     string `json:"name"`
}

// HistoryResponse is the response for GET
// /objects/{type}/{instance}/history.
type HistoryResponse struct {
	Object  string              `json:"object"`
	Since   *time.Time          `json:"since,omitempty"`
	Entries []persistence.Entry `json:"entries"`
	Total   int                 `json:"total"`
}

// ErrorResponse is a standard error response. Class and Code are set for
// BACnet errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Class   string `json:"class,omitempty"`
	Code    string `json:"code,omitempty"`
}
