package verification

import (
	"context"
	"strings"
)

// RequestInfo holds what is known about the party requesting a verification.
// All fields are empty if a verification is not triggered by a request, e.g.
// from the command line.
type RequestInfo struct {
	IP             string
	UserAgent      string
	Referer        string
	AcceptLanguage string
}

type requestInfoKey struct{}

// WithRequestInfo returns a copy of ctx carrying info
func WithRequestInfo(ctx context.Context, info RequestInfo) context.Context {
	return context.WithValue(ctx, requestInfoKey{}, info)
}

// RequestInfoFromContext returns the RequestInfo stored in ctx, or the zero
// value if there is none
func RequestInfoFromContext(ctx context.Context) RequestInfo {
	if ctx == nil {
		return RequestInfo{}
	}
	info, _ := ctx.Value(requestInfoKey{}).(RequestInfo)
	return info
}

// VerifierInfo builds the descriptive verifier string from the referer and
// accept-language headers. The referer part comes first; a part is omitted if
// its header is absent.
func (info RequestInfo) VerifierInfo(catalog *Catalog) string {
	var parts []string
	if info.Referer != "" {
		parts = append(parts, catalog.Message(KeyVerifierSource)+": "+info.Referer)
	}
	if info.AcceptLanguage != "" {
		parts = append(parts, catalog.Message(KeyVerifierLanguage)+": "+info.AcceptLanguage)
	}
	return strings.Join(parts, ", ")
}
