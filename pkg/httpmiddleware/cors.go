package httpmiddleware

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSConfig configures the CORS middleware behaviour.
type CORSConfig struct {
	// AllowOrigins is a list of origins that may make cross-origin requests.
	// An empty list or the single entry "*" allows every origin.
	AllowOrigins []string

	// AllowMethods lists the HTTP methods clients may use in actual requests.
	// Defaults to "GET, POST, PUT, DELETE, OPTIONS" when empty.
	AllowMethods []string

	// AllowHeaders lists the request headers clients may send. When empty the
	// middleware echoes back Access-Control-Request-Headers from the preflight.
	AllowHeaders []string

	// ExposeHeaders lists response headers the browser is allowed to access.
	ExposeHeaders []string

	// AllowCredentials allows responses to credentialed requests. Credentialed
	// responses must name a concrete origin, so enabling this disables the
	// wildcard and switches to echoing the matched origin.
	AllowCredentials bool

	// MaxAge is how long (in seconds) preflight results may be cached.
	// Zero omits the header; a negative value sends "0".
	MaxAge int
}

// originSet matches request origins case-insensitively while remembering the
// configured spelling for echo-back.
type originSet struct {
	wildcard bool
	byLower  map[string]string
}

func newOriginSet(origins []string, credentials bool) originSet {
	s := originSet{wildcard: len(origins) == 0, byLower: make(map[string]string, len(origins))}
	for _, o := range origins {
		if o == "*" {
			s.wildcard = true
			continue
		}
		s.byLower[strings.ToLower(o)] = o
	}
	if credentials {
		// "*" is not a valid allow-origin for credentialed responses.
		s.wildcard = false
	}
	return s
}

// resolve returns the Access-Control-Allow-Origin value for origin, or ""
// when the origin is not allowed.
func (s originSet) resolve(origin string) string {
	if s.wildcard {
		return "*"
	}
	return s.byLower[strings.ToLower(origin)]
}

// CORS returns a middleware that handles Cross-Origin Resource Sharing:
// preflight detection via Access-Control-Request-Method, Vary headers so
// shared caches never serve one origin's response to another, and optional
// credential and expose-header support.
func CORS(cfg CORSConfig) Middleware {
	origins := newOriginSet(cfg.AllowOrigins, cfg.AllowCredentials)

	allowMethods := strings.Join(cfg.AllowMethods, ", ")
	if allowMethods == "" {
		allowMethods = "GET, POST, PUT, DELETE, OPTIONS"
	}
	allowHeaders := strings.Join(cfg.AllowHeaders, ", ")
	exposeHeaders := strings.Join(cfg.ExposeHeaders, ", ")

	var maxAge string
	switch {
	case cfg.MaxAge > 0:
		maxAge = strconv.Itoa(cfg.MaxAge)
	case cfg.MaxAge < 0:
		maxAge = "0"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				// Same-origin request. Still vary on Origin when responses
				// differ per origin, so caches stay correct.
				if !origins.wildcard {
					w.Header().Add("Vary", "Origin")
				}
				next.ServeHTTP(w, r)
				return
			}

			allowOrigin := origins.resolve(origin)

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				writePreflight(w, r, cfg, allowOrigin, allowMethods, allowHeaders, maxAge)
				return
			}

			// Simple or actual request.
			if !origins.wildcard {
				w.Header().Add("Vary", "Origin")
			}
			if allowOrigin != "" {
				w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
				if cfg.AllowCredentials {
					w.Header().Set("Access-Control-Allow-Credentials", "true")
				}
				if exposeHeaders != "" {
					w.Header().Set("Access-Control-Expose-Headers", exposeHeaders)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writePreflight(w http.ResponseWriter, r *http.Request, cfg CORSConfig, allowOrigin, allowMethods, allowHeaders, maxAge string) {
	h := w.Header()
	h.Add("Vary", "Origin")
	h.Add("Vary", "Access-Control-Request-Method")
	h.Add("Vary", "Access-Control-Request-Headers")

	// Disallowed origin: answer the preflight without CORS headers.
	if allowOrigin == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	h.Set("Access-Control-Allow-Origin", allowOrigin)
	h.Set("Access-Control-Allow-Methods", allowMethods)

	switch {
	case allowHeaders != "":
		h.Set("Access-Control-Allow-Headers", allowHeaders)
	default:
		if rh := r.Header.Get("Access-Control-Request-Headers"); rh != "" {
			h.Set("Access-Control-Allow-Headers", rh)
		}
	}

	if cfg.AllowCredentials {
		h.Set("Access-Control-Allow-Credentials", "true")
	}
	if maxAge != "" {
		h.Set("Access-Control-Max-Age", maxAge)
	}
	w.WriteHeader(http.StatusNoContent)
}
