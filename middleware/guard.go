package middleware

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/xpert786/portalauth"
	"github.com/xpert786/portalauth/route"
)

// Guard rejects anonymous requests with a redirect to the login screen. The
// original path is preserved as a returnTo query parameter so login can send
// the user back.
func Guard(engine *portalauth.Engine, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := withCallerInfo(r)
		if !engine.IsAuthenticated(ctx) {
			redirectToLogin(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireArea admits a request only when the decision table would land the
// current principal inside areaPrefix (for example "/firm/"). Principals the
// table sends elsewhere are redirected there instead of being served.
func RequireArea(engine *portalauth.Engine, areaPrefix string, next http.Handler) http.Handler {
	if !strings.HasSuffix(areaPrefix, "/") {
		areaPrefix += "/"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := withCallerInfo(r)
		p, err := engine.CurrentPrincipal(ctx)
		if err != nil {
			redirectToLogin(w, r)
			return
		}
		target := engine.DecideFor(p, "")
		if !strings.HasPrefix(target+"/", areaPrefix) {
			http.Redirect(w, r, target, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func redirectToLogin(w http.ResponseWriter, r *http.Request) {
	target := route.PathLogin
	if r.URL.Path != "" && r.URL.Path != "/" {
		q := url.Values{"returnTo": {r.URL.Path}}
		target += "?" + q.Encode()
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// withCallerInfo forwards the request's origin into the engine's audit
// context.
func withCallerInfo(r *http.Request) context.Context {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	ctx := portalauth.WithClientIP(r.Context(), ip)
	return portalauth.WithUserAgent(ctx, r.UserAgent())
}
