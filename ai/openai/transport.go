package openai

import "net/http"

// headerTransport stamps the identifying headers OpenRouter uses for
// attribution on every outbound request.
type headerTransport struct {
	base    http.RoundTripper
	referer string
	title   string
}

func newHeaderTransport(base http.RoundTripper, referer, title string) *headerTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &headerTransport{base: base, referer: referer, title: title}
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	if t.referer != "" {
		req.Header.Set("HTTP-Referer", t.referer)
	}
	if t.title != "" {
		req.Header.Set("X-Title", t.title)
	}
	return t.base.RoundTrip(req)
}
