package imagehandler

// HeaderComposer builds the base response headers.
type HeaderComposer struct {
	CORSEnabled bool
	CORSOrigin  string
}

// Compose returns a fresh header map for a response. The credentials header
// is only set for gateway ingress.
func (c HeaderComposer) Compose(isError, isALB bool) map[string]string {
	headers := map[string]string{
		"Access-Control-Allow-Methods": "GET",
		"Access-Control-Allow-Headers": "Content-Type, Authorization",
	}
	if !isALB {
		headers["Access-Control-Allow-Credentials"] = "true"
	}
	if c.CORSEnabled {
		headers["Access-Control-Allow-Origin"] = c.CORSOrigin
	}
	if isError {
		headers["Content-Type"] = "application/json"
	}
	return headers
}
