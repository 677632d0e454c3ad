package proxy

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/Git-me-Harish/Video-KYC/internal/shared"
)

// Prefix is the public mount point of the chat service.
const Prefix = "/chat"

const msgUpstreamUnavailable = "Upstream service unavailable"

// Forwarder relays /chat traffic to the chat upstream. It never reads or
// writes session state, and the session cookie is not sent upstream.
type Forwarder struct {
	target        *url.URL
	proxy         *httputil.ReverseProxy
	logger        *slog.Logger
	sessionCookie string
}

// NewForwarder builds a Forwarder for the given upstream base URL. The cookie
// named sessionCookie is removed from forwarded requests.
func NewForwarder(upstream, sessionCookie string, logger *slog.Logger) (*Forwarder, error) {
	target, err := url.Parse(upstream)
	if err != nil {
		return nil, fmt.Errorf("parse upstream url: %w", err)
	}
	if target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("upstream url %q must be absolute", upstream)
	}
	if logger == nil {
		logger = slog.Default()
	}
	f := &Forwarder{target: target, logger: logger, sessionCookie: sessionCookie}
	f.proxy = &httputil.ReverseProxy{
		Rewrite:      f.rewrite,
		ErrorHandler: f.handleError,
	}
	return f, nil
}

// MountRoutes attaches the proxy under Prefix for every method.
func (f *Forwarder) MountRoutes(r chi.Router) {
	r.Handle(Prefix, f)
	r.Handle(Prefix+"/*", f)
}

func (f *Forwarder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.proxy.ServeHTTP(w, r)
}

func (f *Forwarder) rewrite(pr *httputil.ProxyRequest) {
	pr.Out.URL.Path = stripPrefix(pr.In.URL.Path)
	pr.Out.URL.RawPath = ""
	// SetURL also rewrites the Host header to the upstream's.
	pr.SetURL(f.target)
	pr.SetXForwarded()
	f.dropSessionCookie(pr.Out)
}

func (f *Forwarder) dropSessionCookie(out *http.Request) {
	if f.sessionCookie == "" {
		return
	}
	cookies := out.Cookies()
	out.Header.Del("Cookie")
	for _, c := range cookies {
		if c.Name != f.sessionCookie {
			out.AddCookie(c)
		}
	}
}

func (f *Forwarder) handleError(w http.ResponseWriter, r *http.Request, err error) {
	f.logger.Error("chat upstream",
		slog.String("request_id", chimw.GetReqID(r.Context())),
		slog.String("upstream", f.target.Host),
		slog.Any("error", fmt.Errorf("%w: %v", shared.ErrUnavailableDependency, err)),
	)
	shared.WriteMessage(w, http.StatusBadGateway, msgUpstreamUnavailable, "")
}

func stripPrefix(path string) string {
	rest := strings.TrimPrefix(path, Prefix)
	if !strings.HasPrefix(rest, "/") {
		rest = "/" + rest
	}
	return rest
}
