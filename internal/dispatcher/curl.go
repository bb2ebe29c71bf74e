package dispatcher

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// CurlCommand reconstructs an equivalent curl invocation for a delivery,
// for human-readable tracing only. Header order is sorted so the output is
// stable across runs.
func CurlCommand(method, url string, headers http.Header, body []byte) string {
	var b strings.Builder
	fmt.Fprintf(&b, "curl -v -X %s '%s'", method, url)

	names := make([]string, 0, len(headers))
	for name := range headers {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		for _, value := range headers[name] {
			fmt.Fprintf(&b, " -H '%s: %s'", name, value)
		}
	}

	if len(body) > 0 {
		fmt.Fprintf(&b, " --data '%s'", string(body))
	}

	return b.String()
}
