package event

import (
	"encoding/base64"
	"strings"
	"testing"

	corev3 "github.com/envoyproxy/go-control-plane/envoy/config/core/v3"
)

func headerMap(pairs ...[2]string) *corev3.HeaderMap {
	hm := &corev3.HeaderMap{}
	for _, p := range pairs {
		hm.Headers = append(hm.Headers, &corev3.HeaderValue{Key: p[0], Value: p[1]})
	}
	return hm
}

func TestHeaderMapToMap_LowercasesKeys(t *testing.T) {
	cases := [][2]string{
		{"Content-Type", "application/json"},
		{"X-REQUEST-ID", "abc"},
		{"aCCepT", "*/*"},
	}

	m := HeaderMapToMap(headerMap(cases...))

	for key := range m {
		if key != strings.ToLower(key) {
			t.Errorf("key %q is not lowercase", key)
		}
	}
	if m["content-type"] != "application/json" {
		t.Errorf("content-type = %q, want application/json", m["content-type"])
	}
	if m["x-request-id"] != "abc" {
		t.Errorf("x-request-id = %q, want abc", m["x-request-id"])
	}
}

func TestHeaderMapToMap_JoinsRepeatedHeaders(t *testing.T) {
	m := HeaderMapToMap(headerMap(
		[2]string{"Set-Cookie", "a=1"},
		[2]string{"set-cookie", "b=2"},
		[2]string{"SET-COOKIE", "c=3"},
	))

	if got, want := m["set-cookie"], "a=1, b=2, c=3"; got != want {
		t.Errorf("set-cookie = %q, want %q", got, want)
	}
}

func TestHeaderMapToMap_RawValueFallback(t *testing.T) {
	hm := &corev3.HeaderMap{
		Headers: []*corev3.HeaderValue{
			{Key: "X-Binary", RawValue: []byte{0x68, 0x69, 0xff}},
		},
	}

	m := HeaderMapToMap(hm)
	if got := m["x-binary"]; !strings.HasPrefix(got, "hi") {
		t.Errorf("x-binary = %q, want lossy decode starting with 'hi'", got)
	}
}

func TestHeaderMapToMap_Nil(t *testing.T) {
	m := HeaderMapToMap(nil)
	if m == nil || len(m) != 0 {
		t.Errorf("HeaderMapToMap(nil) = %v, want empty map", m)
	}
}

func TestRequestInfo_SetHeaders(t *testing.T) {
	req := NewRequestInfo()
	req.SetHeaders(HeaderMapToMap(headerMap(
		[2]string{":method", "POST"},
		[2]string{":path", "/v1/widgets"},
		[2]string{":authority", "api.example.com"},
		[2]string{"X-Api-Version", "2024-01-01"},
		[2]string{"Host", "api.example.com"},
	)))

	if req.Verb != "POST" {
		t.Errorf("Verb = %q, want POST", req.Verb)
	}
	if req.URI != "/v1/widgets" {
		t.Errorf("URI = %q, want /v1/widgets", req.URI)
	}
	if req.APIVersion != "2024-01-01" {
		t.Errorf("APIVersion = %q, want 2024-01-01", req.APIVersion)
	}
	for key := range req.Headers {
		if strings.HasPrefix(key, ":") {
			t.Errorf("pseudo-header %q survived normalization", key)
		}
	}
	if _, ok := req.Headers["host"]; !ok {
		t.Error("regular header dropped during pseudo-header strip")
	}
}

func TestResponseInfo_SetHeaders_Status(t *testing.T) {
	tests := []struct {
		name   string
		status string
		want   int
	}{
		{"valid", "204", 204},
		{"unparsable", "not-a-code", 0},
		{"empty", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := NewResponseInfo()
			resp.SetHeaders(HeaderMapToMap(headerMap(
				[2]string{":status", tt.status},
				[2]string{"Content-Length", "0"},
			)))
			if resp.Status != tt.want {
				t.Errorf("Status = %d, want %d", resp.Status, tt.want)
			}
			if _, ok := resp.Headers[":status"]; ok {
				t.Error(":status pseudo-header survived normalization")
			}
		})
	}
}

func TestSetBody_ValidJSON(t *testing.T) {
	req := NewRequestInfo()
	req.SetBody([]byte(`{"name":"widget","count":3}`))

	body, ok := req.Body.(map[string]interface{})
	if !ok {
		t.Fatalf("Body = %T, want parsed object", req.Body)
	}
	if body["name"] != "widget" {
		t.Errorf("body name = %v, want widget", body["name"])
	}
	if req.TransferEncoding != "" {
		t.Errorf("TransferEncoding = %q, want unset for parsed body", req.TransferEncoding)
	}
}

func TestSetBody_InvalidJSONBase64(t *testing.T) {
	raw := []byte("\x00\x01 not json at all")
	req := NewRequestInfo()
	req.SetBody(raw)

	encoded, ok := req.Body.(string)
	if !ok {
		t.Fatalf("Body = %T, want base64 string", req.Body)
	}
	if encoded != base64.StdEncoding.EncodeToString(raw) {
		t.Errorf("Body = %q, want base64 of original bytes", encoded)
	}
	if req.TransferEncoding != "base64" {
		t.Errorf("TransferEncoding = %q, want base64", req.TransferEncoding)
	}
}

func TestSetBody_Empty(t *testing.T) {
	req := NewRequestInfo()
	req.SetBody(nil)
	req.SetBody([]byte{})

	if req.Body != nil {
		t.Errorf("Body = %v, want nil for empty body", req.Body)
	}
	if req.TransferEncoding != "" {
		t.Errorf("TransferEncoding = %q, want unset for empty body", req.TransferEncoding)
	}
}

func TestSetBody_ChunkedConcat(t *testing.T) {
	// Chunks that are individually invalid JSON must parse once concatenated.
	chunks := [][]byte{[]byte(`{"a":`), []byte(`[1,2,`), []byte(`3]}`)}
	var accumulated []byte
	for _, c := range chunks {
		accumulated = append(accumulated, c...)
	}

	req := NewRequestInfo()
	req.SetBody(accumulated)

	if req.TransferEncoding != "" {
		t.Fatalf("TransferEncoding = %q, concatenated chunks should parse", req.TransferEncoding)
	}
	body, ok := req.Body.(map[string]interface{})
	if !ok {
		t.Fatalf("Body = %T, want parsed object", req.Body)
	}
	if _, ok := body["a"]; !ok {
		t.Error("parsed body missing key from first chunk")
	}
}

func TestResolveIdentity(t *testing.T) {
	ev := New()
	ev.Request.SetHeaders(map[string]string{
		"x-user-id":    "u-42",
		"x-company-id": "c-7",
	})

	ev.ResolveIdentity("x-user-id", "x-company-id")

	if ev.UserID != "u-42" {
		t.Errorf("UserID = %q, want u-42", ev.UserID)
	}
	if ev.CompanyID != "c-7" {
		t.Errorf("CompanyID = %q, want c-7", ev.CompanyID)
	}
}

func TestResolveIdentity_Unconfigured(t *testing.T) {
	ev := New()
	ev.Request.SetHeaders(map[string]string{"x-user-id": "u-42"})

	ev.ResolveIdentity("", "")

	if ev.UserID != "" || ev.CompanyID != "" {
		t.Errorf("identity fields set without configured headers: %q %q", ev.UserID, ev.CompanyID)
	}
}

func TestNew_Direction(t *testing.T) {
	ev := New()
	if ev.Direction != DirectionIncoming {
		t.Errorf("Direction = %q, want %q", ev.Direction, DirectionIncoming)
	}
	if ev.Response != nil {
		t.Error("Response should be nil until a response-leg message arrives")
	}
}

func TestEnsureResponse_Lazy(t *testing.T) {
	ev := New()
	first := ev.EnsureResponse()
	second := ev.EnsureResponse()
	if first != second {
		t.Error("EnsureResponse created a second response record")
	}
}
