package event

import (
	"strconv"
	"time"
)

// DirectionIncoming marks traffic observed on the gateway's inbound listener.
// The sidecar only ever mirrors inbound traffic, so every event carries it.
const DirectionIncoming = "Incoming"

// apiVersionHeader is the request header the gateway uses to tag API versions.
const apiVersionHeader = "x-api-version"

// RequestInfo is the request half of an analytics event.
type RequestInfo struct {
	Time             string            `json:"time"`
	Verb             string            `json:"verb"`
	URI              string            `json:"uri"`
	Headers          map[string]string `json:"headers"`
	TransferEncoding string            `json:"transfer_encoding,omitempty"`
	APIVersion       string            `json:"api_version,omitempty"`
	IPAddress        string            `json:"ip_address,omitempty"`
	Body             interface{}       `json:"body"`
}

// NewRequestInfo returns a RequestInfo stamped with the current time.
func NewRequestInfo() RequestInfo {
	return RequestInfo{
		Time:    time.Now().UTC().Format(time.RFC3339Nano),
		Headers: map[string]string{},
	}
}

// SetHeaders installs the normalized header map and derives verb, URI,
// API version and client IP from it. Pseudo-headers are consumed for the
// derived fields and then removed from the map.
func (r *RequestInfo) SetHeaders(headers map[string]string) {
	r.Headers = headers

	if method, ok := r.Headers[":method"]; ok {
		r.Verb = method
	}
	if path, ok := r.Headers[":path"]; ok {
		r.URI = path
	}
	stripPseudoHeaders(r.Headers)

	r.APIVersion = r.Headers[apiVersionHeader]
	r.IPAddress = ClientIP(r.Headers)
}

// SetBody finalizes the accumulated request body. Empty bodies are left as
// the zero value and never marked.
func (r *RequestInfo) SetBody(body []byte) {
	if len(body) > 0 {
		r.Body, r.TransferEncoding = encodeBody(body)
	}
}

// ResponseInfo is the response half of an analytics event. It is created
// lazily on the first response-leg message and stays nil for streams the
// gateway closes before a response arrives.
type ResponseInfo struct {
	Time             string            `json:"time"`
	Status           int               `json:"status"`
	Headers          map[string]string `json:"headers"`
	IPAddress        string            `json:"ip_address,omitempty"`
	Body             interface{}       `json:"body"`
	TransferEncoding string            `json:"transfer_encoding,omitempty"`
}

// NewResponseInfo returns a ResponseInfo stamped with the current time.
func NewResponseInfo() *ResponseInfo {
	return &ResponseInfo{
		Time:    time.Now().UTC().Format(time.RFC3339Nano),
		Headers: map[string]string{},
	}
}

// SetHeaders installs the normalized header map and extracts the status code
// from the :status pseudo-header. An unparsable status leaves the field unset.
func (r *ResponseInfo) SetHeaders(headers map[string]string) {
	r.Headers = headers

	if status, ok := r.Headers[":status"]; ok {
		if code, err := strconv.Atoi(status); err == nil {
			r.Status = code
		}
	}
	stripPseudoHeaders(r.Headers)
}

// SetBody finalizes the accumulated response body.
func (r *ResponseInfo) SetBody(body []byte) {
	if len(body) > 0 {
		r.Body, r.TransferEncoding = encodeBody(body)
	}
}

// Event is one fully assembled transaction record, the unit shipped to the
// collector. Once pushed to the ingestion queue it is never mutated again.
type Event struct {
	Request      RequestInfo   `json:"request"`
	Response     *ResponseInfo `json:"response,omitempty"`
	UserID       string        `json:"user_id,omitempty"`
	CompanyID    string        `json:"company_id,omitempty"`
	Metadata     interface{}   `json:"metadata"`
	Direction    string        `json:"direction"`
	SessionToken string        `json:"session_token,omitempty"`
	BlockedBy    string        `json:"blocked_by,omitempty"`
}

// New returns an event for an inbound transaction with the request side
// initialized.
func New() *Event {
	return &Event{
		Request:   NewRequestInfo(),
		Direction: DirectionIncoming,
	}
}

// EnsureResponse lazily creates the response record.
func (e *Event) EnsureResponse() *ResponseInfo {
	if e.Response == nil {
		e.Response = NewResponseInfo()
	}
	return e.Response
}

// ResolveIdentity populates user_id and company_id from the request header
// map using the configured header names. Header names must already be
// lowercase. Identity headers that only appear on the response leg are
// deliberately not consulted.
func (e *Event) ResolveIdentity(userIDHeader, companyIDHeader string) {
	if userIDHeader != "" {
		if v, ok := e.Request.Headers[userIDHeader]; ok {
			e.UserID = v
		}
	}
	if companyIDHeader != "" {
		if v, ok := e.Request.Headers[companyIDHeader]; ok {
			e.CompanyID = v
		}
	}
}
