package sso

import (
	"net"
	"net/http"
	"strings"

	"github.com/platinummonkey/perimeter/pkg/directory"
)

// validation factor names understood by the remote directory service
const (
	factorRemoteAddress = "remote_address"
	factorForwardedFor  = "X-Forwarded-For"
	factorUserAgent     = "USER_AGENT"
)

// ValidationFactors extracts the client-identifying attributes from the
// request that SSO tokens are bound to. The same factors must be presented
// at issuance and at every re-validation; the extraction must therefore be
// deterministic for a given client.
func ValidationFactors(r *http.Request) []directory.ValidationFactor {
	factors := make([]directory.ValidationFactor, 0, 3)

	if addr := remoteAddress(r); addr != "" {
		factors = append(factors, directory.ValidationFactor{
			Name:  factorRemoteAddress,
			Value: addr,
		})
	}

	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		factors = append(factors, directory.ValidationFactor{
			Name:  factorForwardedFor,
			Value: forwarded,
		})
	}

	if ua := r.Header.Get("User-Agent"); ua != "" {
		factors = append(factors, directory.ValidationFactor{
			Name:  factorUserAgent,
			Value: ua,
		})
	}

	return factors
}

// remoteAddress strips the port from RemoteAddr
func remoteAddress(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}
