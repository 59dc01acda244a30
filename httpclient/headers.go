package httpclient

import "net/http"

// ComposeHeaders converts a plain key/value mapping into an http.Header.
// Keys are canonicalized; a nil or empty mapping yields an empty header.
func ComposeHeaders(headers map[string]string) http.Header {
	h := make(http.Header, len(headers))
	for k, v := range headers {
		h.Set(k, v)
	}
	return h
}

// mergeHeaders copies src into dst, replacing values for keys present in both.
func mergeHeaders(dst, src http.Header) {
	for k, v := range src {
		dst[http.CanonicalHeaderKey(k)] = append([]string(nil), v...)
	}
}
