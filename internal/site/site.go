// Package site resolves the tenant a request belongs to and guards the
// site administration endpoints.
package site

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/localtv/localtv/internal/auth"
	"github.com/localtv/localtv/internal/database"
	"github.com/localtv/localtv/internal/httputil"
)

type Site struct {
	ID     string `json:"id"`
	Domain string `json:"domain"`
	Name   string `json:"name"`
}

type contextKey string

const siteKey contextKey = "site"

func ContextWithSite(ctx context.Context, s Site) context.Context {
	return context.WithValue(ctx, siteKey, s)
}

// FromContext returns the site attached by Middleware.
func FromContext(ctx context.Context) (Site, bool) {
	s, ok := ctx.Value(siteKey).(Site)
	return s, ok
}

var ErrNotFound = errors.New("site not found")

func Lookup(ctx context.Context, db database.DBTX, domain string) (Site, error) {
	var s Site
	err := db.QueryRow(ctx,
		`SELECT id, domain, name FROM sites WHERE domain = $1`,
		domain,
	).Scan(&s.ID, &s.Domain, &s.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return Site{}, ErrNotFound
	}
	if err != nil {
		return Site{}, fmt.Errorf("look up site %s: %w", domain, err)
	}
	return s, nil
}

// Middleware attaches the site matching the request host, falling back to
// defaultDomain when the host is not a known site.
func Middleware(db database.DBTX, defaultDomain string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			host := hostname(r.Host)

			s, err := Lookup(r.Context(), db, host)
			if errors.Is(err, ErrNotFound) && host != defaultDomain {
				s, err = Lookup(r.Context(), db, defaultDomain)
			}
			if err != nil {
				if errors.Is(err, ErrNotFound) {
					httputil.WriteError(w, http.StatusNotFound, "site not found")
					return
				}
				slog.Error("site: lookup failed", "host", host, "error", err)
				httputil.WriteError(w, http.StatusInternalServerError, "failed to resolve site")
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithSite(r.Context(), s)))
		})
	}
}

// RequireAdmin lets the request through only when the authenticated user is
// a superuser or an administrator of the current site.
func RequireAdmin(db database.DBTX) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := auth.UserIDFromContext(r.Context())
			if userID == "" {
				httputil.WriteError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			s, ok := FromContext(r.Context())
			if !ok {
				httputil.WriteError(w, http.StatusNotFound, "site not found")
				return
			}

			var isAdmin bool
			err := db.QueryRow(r.Context(),
				`SELECT u.is_superuser OR EXISTS (
				   SELECT 1 FROM site_admins sa WHERE sa.site_id = $1 AND sa.user_id = u.id
				 ) FROM users u WHERE u.id = $2`,
				s.ID, userID,
			).Scan(&isAdmin)
			if err != nil && !errors.Is(err, pgx.ErrNoRows) {
				httputil.WriteError(w, http.StatusInternalServerError, "failed to verify site administrator")
				return
			}
			if !isAdmin {
				httputil.WriteError(w, http.StatusForbidden, "site administrator required")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func hostname(hostport string) string {
	if host, _, err := net.SplitHostPort(hostport); err == nil {
		return strings.ToLower(host)
	}
	return strings.ToLower(hostport)
}
