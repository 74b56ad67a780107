package officeauth

import (
	"net"
	"net/http"
	"strings"
)

// RequestContext carries the parts of an inbound request that identity
// resolution needs. Build it with [NewRequestContext] or by hand in tests.
type RequestContext struct {
	Headers    http.Header
	Cookies    []*http.Cookie
	RemoteAddr string
}

// NewRequestContext snapshots r. A nil request yields an empty context.
func NewRequestContext(r *http.Request) *RequestContext {
	if r == nil {
		return &RequestContext{Headers: http.Header{}}
	}
	return &RequestContext{
		Headers:    r.Header,
		Cookies:    r.Cookies(),
		RemoteAddr: r.RemoteAddr,
	}
}

// Cookie returns the value of the named cookie, or "" when absent.
func (rc *RequestContext) Cookie(name string) string {
	if rc == nil {
		return ""
	}
	for _, c := range rc.Cookies {
		if c != nil && c.Name == name {
			return c.Value
		}
	}
	return ""
}

// BearerToken extracts the credential from "Authorization: Bearer <token>".
// The scheme is matched case-insensitively; anything else, including a
// header with extra fields, yields ok=false.
func (rc *RequestContext) BearerToken() (string, bool) {
	if rc == nil || rc.Headers == nil {
		return "", false
	}
	return bearerToken(rc.Headers.Get("Authorization"))
}

func bearerToken(value string) (string, bool) {
	value = strings.TrimSpace(value)
	if len(value) < 7 || !strings.EqualFold(value[:7], "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(value[7:])
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", false
	}
	return token, true
}

// ClientIP returns the first X-Forwarded-For entry, then X-Real-IP, then the
// host part of RemoteAddr, falling back to "unknown".
func (rc *RequestContext) ClientIP() string {
	if rc == nil {
		return "unknown"
	}
	if rc.Headers != nil {
		if xff := rc.Headers.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if first = strings.TrimSpace(first); first != "" {
				return first
			}
		}
		if xri := strings.TrimSpace(rc.Headers.Get("X-Real-IP")); xri != "" {
			return xri
		}
	}
	if rc.RemoteAddr != "" {
		if host, _, err := net.SplitHostPort(rc.RemoteAddr); err == nil && host != "" {
			return host
		}
		return rc.RemoteAddr
	}
	return "unknown"
}
