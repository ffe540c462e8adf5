// Package gateway assembles the reverse proxy, its route table and the
// middleware chain in front of it.
package gateway

import (
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/atendeflow/gateway/internal/config"
	svcerrors "github.com/atendeflow/gateway/internal/errors"
	"github.com/atendeflow/gateway/internal/logging"
)

// upstreamProxy is one routed backend service.
type upstreamProxy struct {
	name   string
	prefix string
	proxy  *httputil.ReverseProxy
}

// newUpstreamProxy builds a reverse proxy for a configured upstream.
// The full request path is forwarded; backends own the /api/... namespace.
func newUpstreamProxy(name string, up *config.UpstreamConfig, logger *logging.Logger) (*upstreamProxy, error) {
	target, err := url.Parse(up.URL)
	if err != nil {
		return nil, err
	}

	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Errorf("proxy to %s failed for %s %s: %v", name, r.Method, r.URL.Path, err)
		svcerrors.UpstreamUnavailable(name).WriteJSON(w)
	}

	return &upstreamProxy{name: name, prefix: up.Prefix, proxy: proxy}, nil
}

func (u *upstreamProxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	u.proxy.ServeHTTP(w, r)
}
