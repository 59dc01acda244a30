package httpclient

import (
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"reflect"
	"slices"
	"strings"

	json "github.com/goccy/go-json"
)

// Encoding selects how RequestOptions.Params are attached to a request.
type Encoding int

const (
	// EncodingURL is method dependent: GET, HEAD and DELETE carry the
	// parameters in the query string, every other method sends them as an
	// application/x-www-form-urlencoded body. This is the default.
	EncodingURL Encoding = iota

	// EncodingQuery always appends the parameters to the query string.
	EncodingQuery

	// EncodingJSON sends the parameters as a JSON object body.
	EncodingJSON
)

// String returns the encoding name.
func (e Encoding) String() string {
	switch e {
	case EncodingURL:
		return "url"
	case EncodingQuery:
		return "query"
	case EncodingJSON:
		return "json"
	default:
		return fmt.Sprintf("encoding(%d)", int(e))
	}
}

const (
	contentTypeForm = "application/x-www-form-urlencoded; charset=utf-8"
	contentTypeJSON = "application/json"
)

// encodedParams is the result of applying an Encoding to a parameter map.
type encodedParams struct {
	rawQuery    string
	body        []byte
	contentType string
}

// encodeParams applies enc to params for the given method. An empty
// parameter map produces no query and no body.
func encodeParams(method string, params map[string]any, enc Encoding) (encodedParams, error) {
	if len(params) == 0 {
		return encodedParams{}, nil
	}

	switch enc {
	case EncodingJSON:
		data, err := json.Marshal(params)
		if err != nil {
			return encodedParams{}, fmt.Errorf("encoding json parameters: %w", err)
		}
		return encodedParams{body: data, contentType: contentTypeJSON}, nil

	case EncodingQuery:
		return encodedParams{rawQuery: formEncode(params)}, nil

	case EncodingURL:
		if encodesInURL(method) {
			return encodedParams{rawQuery: formEncode(params)}, nil
		}
		return encodedParams{body: []byte(formEncode(params)), contentType: contentTypeForm}, nil

	default:
		return encodedParams{}, fmt.Errorf("unsupported parameter encoding %s", enc)
	}
}

func encodesInURL(method string) bool {
	switch strings.ToUpper(method) {
	case "", http.MethodGet, http.MethodHead, http.MethodDelete:
		return true
	default:
		return false
	}
}

// appendQuery adds an already-encoded query to u, keeping any query the
// caller put in the URL string.
func appendQuery(u *url.URL, rawQuery string) {
	if rawQuery == "" {
		return
	}
	if u.RawQuery == "" {
		u.RawQuery = rawQuery
		return
	}
	u.RawQuery += "&" + rawQuery
}

// formEncode flattens params into key=value pairs sorted by key.
// Slices become key[]=v, nested maps become key[sub]=v and booleans
// become 1 or 0.
func formEncode(params map[string]any) string {
	var pairs []string
	for _, key := range slices.Sorted(maps.Keys(params)) {
		pairs = appendComponents(pairs, key, params[key])
	}
	return strings.Join(pairs, "&")
}

func appendComponents(pairs []string, key string, value any) []string {
	switch v := value.(type) {
	case nil:
		return append(pairs, url.QueryEscape(key)+"=")
	case bool:
		if v {
			return append(pairs, url.QueryEscape(key)+"=1")
		}
		return append(pairs, url.QueryEscape(key)+"=0")
	case string:
		return append(pairs, url.QueryEscape(key)+"="+url.QueryEscape(v))
	case map[string]any:
		for _, sub := range slices.Sorted(maps.Keys(v)) {
			pairs = appendComponents(pairs, key+"["+sub+"]", v[sub])
		}
		return pairs
	case map[string]string:
		for _, sub := range slices.Sorted(maps.Keys(v)) {
			pairs = appendComponents(pairs, key+"["+sub+"]", v[sub])
		}
		return pairs
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		for i := range rv.Len() {
			pairs = appendComponents(pairs, key+"[]", rv.Index(i).Interface())
		}
		return pairs
	}

	return append(pairs, url.QueryEscape(key)+"="+url.QueryEscape(fmt.Sprint(value)))
}
