package engine

import (
	"fmt"
	"strings"
)

// AnnouncePath is where announce payloads are posted.
const AnnouncePath = "/handles"

// Endpoints resolves the per-identifier paths of the remote API.
type Endpoints struct {
	CreateServiceID string
	DeleteServiceID string
	TemplateName    string
}

// CreatePath is the PUT target for a new resource.
func (e Endpoints) CreatePath(id string) string {
	return sessionPath(e.CreateServiceID, e.TemplateName, id)
}

// DeletePath is the DELETE target that removes the caller from id. It is
// scoped to DeleteServiceID, not CreateServiceID.
func (e Endpoints) DeletePath(id string) string {
	return sessionPath(e.DeleteServiceID, e.TemplateName, id) + "/members/me"
}

func sessionPath(serviceID, template, id string) string {
	return "/serviceconfigs/" + escapeSegment(serviceID) +
		"/sessiontemplates/" + escapeSegment(template) +
		"/sessions/" + escapeSegment(id)
}

// escapeSegment percent-encodes s for use as one path segment. Unreserved
// characters, sub-delimiters, ':' and '@' stay literal (RFC 3986 pchar), so
// a template such as "global(lfg)" goes on the wire unchanged. '/' is
// always encoded.
func escapeSegment(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isPathChar(c) {
			b.WriteByte(c)
			continue
		}
		fmt.Fprintf(&b, "%%%02X", c)
	}
	return b.String()
}

func isPathChar(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("-._~!$&'()*+,;=:@", c) >= 0
}
