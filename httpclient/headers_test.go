package httpclient

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComposeHeaders(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    http.Header
	}{
		{
			name:    "given nil map, then returns empty header",
			headers: nil,
			want:    http.Header{},
		},
		{
			name:    "given lowercase keys, then canonicalizes them",
			headers: map[string]string{"authorization": "Bearer t", "x-request-id": "abc"},
			want: http.Header{
				"Authorization": {"Bearer t"},
				"X-Request-Id":  {"abc"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComposeHeaders(tt.headers))
		})
	}
}

func TestMergeHeaders(t *testing.T) {
	dst := http.Header{"Accept": {"text/plain"}, "X-Keep": {"1"}}
	src := http.Header{"accept": {"application/json", "text/csv"}}

	mergeHeaders(dst, src)

	assert.Equal(t, []string{"application/json", "text/csv"}, dst.Values("Accept"))
	assert.Equal(t, "1", dst.Get("X-Keep"))

	// dst must not alias src.
	src["accept"][0] = "changed"
	assert.Equal(t, "application/json", dst.Get("Accept"))
}
