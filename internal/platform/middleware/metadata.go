package middleware

import (
	"net/http"
	"net/netip"
	"strings"

	"github.com/mssola/useragent"

	"inkwell/pkg/requestcontext"
)

// maxXFFHeaderLength bounds the X-Forwarded-For header to keep malformed
// proxies from smuggling arbitrary data into rate-limit keys.
const maxXFFHeaderLength = 500

// Metadata extracts the client IP and User-Agent and stores them in the
// request context. The IP is what the idempotency cache and rate limiter
// key on, so X-Forwarded-For is only honored when the direct peer is a
// trusted proxy.
type Metadata struct {
	trustedProxies []netip.Prefix
}

// NewMetadata creates the metadata middleware. With no trusted proxies
// the remote address is always used as-is.
func NewMetadata(trustedProxies []netip.Prefix) *Metadata {
	return &Metadata{trustedProxies: trustedProxies}
}

// Handler stores client metadata in the context for downstream handlers.
func (m *Metadata) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := m.clientIP(r)
		ctx := requestcontext.WithClientMetadata(r.Context(), ip, r.Header.Get("User-Agent"))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *Metadata) clientIP(r *http.Request) string {
	remoteIP := parseRemoteAddr(r.RemoteAddr)
	if remoteIP == "" {
		return "unknown"
	}

	xff := r.Header.Get("X-Forwarded-For")
	if xff == "" || !m.isTrustedProxy(remoteIP) || len(xff) > maxXFFHeaderLength {
		return remoteIP
	}

	// First IP in the XFF chain is the original client.
	clientIP := xff
	if before, _, ok := strings.Cut(xff, ","); ok {
		clientIP = before
	}
	clientIP = strings.TrimSpace(clientIP)

	if _, err := netip.ParseAddr(clientIP); err != nil {
		return remoteIP
	}
	return clientIP
}

func (m *Metadata) isTrustedProxy(ip string) bool {
	if len(m.trustedProxies) == 0 {
		return false
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	for _, prefix := range m.trustedProxies {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// parseRemoteAddr extracts the IP from RemoteAddr (strips port).
func parseRemoteAddr(remoteAddr string) string {
	if remoteAddr == "" {
		return ""
	}

	// IPv6 with brackets: [::1]:port
	if strings.HasPrefix(remoteAddr, "[") {
		if idx := strings.LastIndex(remoteAddr, "]:"); idx != -1 {
			return remoteAddr[1:idx]
		}
		return strings.Trim(strings.Split(remoteAddr, "]:")[0], "[]")
	}

	if idx := strings.LastIndex(remoteAddr, ":"); idx != -1 {
		return remoteAddr[:idx]
	}
	return remoteAddr
}

// DeviceLabel extracts a human-readable device name from a User-Agent
// string, e.g. "Chrome on Mac OS X". Used for request logging only.
func DeviceLabel(userAgentString string) string {
	if userAgentString == "" {
		return "unknown"
	}

	ua := useragent.New(userAgentString)
	browser, _ := ua.Browser()
	os := ua.OS()

	browser = strings.TrimSpace(browser)
	os = strings.TrimSpace(os)
	if browser == "" && os == "" {
		return "unknown"
	}
	if os == "" {
		return browser
	}
	if browser == "" {
		return os
	}
	return browser + " on " + os
}
