package event

import (
	"net"
	"strings"
)

// clientIPHeaders is the fixed priority order for client-IP derivation.
// The first header that yields any valid IP literal wins, even when a
// lower-priority header would too.
var clientIPHeaders = []string{
	"x-client-ip",
	"x-forwarded-for",
	"cf-connecting-ip",
	"fastly-client-ip",
	"true-client-ip",
	"x-real-ip",
	"x-cluster-client-ip",
	"x-forwarded",
	"forwarded-for",
	"forwarded",
	"x-appengine-user-ip",
	"cf-pseudo-ipv4",
}

// ClientIP derives the originating client address from a normalized header
// map. Comma-separated values are scanned left to right and the first token
// that parses as an IP literal is returned. Returns "" when nothing parses.
func ClientIP(headers map[string]string) string {
	for _, name := range clientIPHeaders {
		value, ok := headers[name]
		if !ok {
			continue
		}
		for _, token := range strings.Split(value, ",") {
			token = strings.TrimSpace(token)
			if net.ParseIP(token) != nil {
				return token
			}
		}
	}
	return ""
}
