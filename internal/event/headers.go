package event

import (
	"encoding/base64"
	"strings"

	corev3 "github.com/envoyproxy/go-control-plane/envoy/config/core/v3"

	json "github.com/goccy/go-json"
)

// HeaderMapToMap flattens an Envoy header list into a normalized map:
// keys are lowercased, repeated headers are joined with ", " in encounter
// order, and headers carried only as raw bytes are decoded lossily.
func HeaderMapToMap(headerMap *corev3.HeaderMap) map[string]string {
	out := map[string]string{}
	if headerMap == nil {
		return out
	}

	for _, header := range headerMap.GetHeaders() {
		key := strings.ToLower(header.GetKey())

		value := header.GetValue()
		if value == "" && len(header.GetRawValue()) > 0 {
			// Envoy sends binary-safe values in raw_value only.
			value = string(header.GetRawValue())
		}

		if existing, ok := out[key]; ok {
			out[key] = existing + ", " + value
		} else {
			out[key] = value
		}
	}

	return out
}

// stripPseudoHeaders removes HTTP/2 pseudo-headers (":method", ":path",
// ":status", ...) after their values have been extracted.
func stripPseudoHeaders(headers map[string]string) {
	for k := range headers {
		if strings.HasPrefix(k, ":") {
			delete(headers, k)
		}
	}
}

// encodeBody parses raw body bytes as JSON. Bodies that are not valid JSON
// are carried as a base64 string with the transfer encoding marker set so
// the collector can reverse it.
func encodeBody(body []byte) (interface{}, string) {
	var parsed interface{}
	if err := json.Unmarshal(body, &parsed); err == nil {
		return parsed, ""
	}
	return base64.StdEncoding.EncodeToString(body), "base64"
}
