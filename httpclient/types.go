package httpclient

import "net/http"

// Doer is the transport engine a Client submits requests to.
// *http.Client satisfies it; tests substitute their own.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Operation names, used as Error.Op, span names, log fields and metric labels.
const (
	OpRequestJSON = "RequestJSON"
	OpRequestData = "RequestData"
	OpDownload    = "Download"
	OpUpload      = "Upload"
)
