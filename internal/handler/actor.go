package handler

import (
	"net"
	"net/http"
	"strings"

	"go-fileops/internal/middleware"
	"go-fileops/internal/model"
)

// actorFromRequest identifies who is making the request for job ownership and
// the audit journal. RemoteAddr has already been rewritten by chi's RealIP.
func actorFromRequest(r *http.Request) model.AuditActor {
	actor := model.AuditActor{IP: remoteHost(r.RemoteAddr)}

	if claims, ok := middleware.ClaimsFromContext(r.Context()); ok {
		actor.UserID = claims.UserID
		actor.Username = claims.Username
		actor.Role = claims.Role
	}
	return actor
}

func remoteHost(addr string) string {
	addr = strings.TrimSpace(addr)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
