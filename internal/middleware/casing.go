// Package middleware provides the HTTP middleware chain for the API gateway.
package middleware

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/atendeflow/gateway/internal/casing"
	svcerrors "github.com/atendeflow/gateway/internal/errors"
	"github.com/atendeflow/gateway/internal/logging"
)

// maxTransformBody bounds how much of a body the casing transform will
// buffer. Larger bodies pass through unconverted rather than exhaust memory.
const maxTransformBody = 8 << 20

// CasingTransform reconciles the frontend's camelCase JSON contract with the
// backends' snake_case one: request bodies are rewritten camel -> snake
// before they reach the proxy, response bodies snake -> camel on the way out.
type CasingTransform struct {
	logger *logging.Logger
}

// NewCasingTransform creates the casing middleware.
func NewCasingTransform(logger *logging.Logger) *CasingTransform {
	return &CasingTransform{logger: logger}
}

// Handler returns the casing middleware handler.
func (t *CasingTransform) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hasJSONBody(r) {
			if ok := t.rewriteRequestBody(w, r); !ok {
				return
			}
		}

		// Upstreams must answer uncompressed so the body can be
		// transformed; compression back to the client is the outer
		// server's concern.
		r.Header.Del("Accept-Encoding")

		rec := &bufferingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rec, r)
		t.flushResponse(r, w, rec)
	})
}

// rewriteRequestBody converts the request body's keys to snake_case in
// place. It reports false after writing an error response.
func (t *CasingTransform) rewriteRequestBody(w http.ResponseWriter, r *http.Request) bool {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxTransformBody+1))
	r.Body.Close()
	if err != nil {
		svcerrors.BadRequest("unreadable request body").WriteJSON(w)
		return false
	}
	if len(body) > maxTransformBody {
		// Too large to transform; forward untouched.
		r.Body = io.NopCloser(bytes.NewReader(body))
		return true
	}

	converted, changed, err := transformJSON(body, casing.ToSnakeCase)
	if err != nil {
		t.logger.Warnf("request body conversion failed: %v", err)
		svcerrors.PayloadTooDeep().WriteJSON(w)
		return false
	}
	if changed {
		body = converted
		r.ContentLength = int64(len(body))
		r.Header.Set("Content-Length", strconv.Itoa(len(body)))
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	return true
}

// flushResponse converts a buffered JSON response to camelCase and writes it
// to the real response writer. Upstreams that compress despite the stripped
// Accept-Encoding are decompressed first; converted bodies go out identity.
func (t *CasingTransform) flushResponse(r *http.Request, w http.ResponseWriter, rec *bufferingResponseWriter) {
	body := rec.buf.Bytes()

	if isJSONContentType(rec.Header().Get("Content-Type")) && len(body) > 0 && len(body) <= maxTransformBody {
		gzipped := strings.EqualFold(rec.Header().Get("Content-Encoding"), "gzip")
		payload := body
		tooLarge := false
		if gzipped {
			decoded, overflow, err := gunzipWithLimit(body, maxTransformBody)
			if err != nil {
				t.logger.Errorf("response body decompression failed for %s %s: %v", r.Method, r.URL.Path, err)
				w.Header().Del("Content-Length")
				svcerrors.UpstreamUnavailable("upstream").WriteJSON(w)
				return
			}
			payload = decoded
			tooLarge = overflow
		}

		if !tooLarge {
			converted, changed, err := transformJSON(payload, casing.ToCamelCase)
			if err != nil {
				t.logger.Errorf("response body conversion failed for %s %s: %v", r.Method, r.URL.Path, err)
				w.Header().Del("Content-Length")
				svcerrors.UpstreamUnavailable("upstream").WriteJSON(w)
				return
			}
			if changed {
				body = converted
				if gzipped {
					w.Header().Del("Content-Encoding")
				}
			}
		}
	}

	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(rec.statusCode)
	if len(body) > 0 {
		w.Write(body)
	}
}

// gunzipWithLimit decompresses data up to limit bytes. The second return
// value reports that the decompressed body exceeds the limit, in which case
// the caller should leave the original bytes untouched.
func gunzipWithLimit(data []byte, limit int) ([]byte, bool, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, false, err
	}
	defer zr.Close()

	decoded, err := io.ReadAll(io.LimitReader(zr, int64(limit)+1))
	if err != nil {
		return nil, false, err
	}
	if len(decoded) > limit {
		return nil, true, nil
	}
	return decoded, false, nil
}

// transformJSON decodes data, converts its keys with fn and re-encodes it.
// Bodies that are not valid JSON pass through unchanged (changed=false);
// validating them is the backend's job, not the gateway's.
func transformJSON(data []byte, fn casing.KeyFunc) ([]byte, bool, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || (trimmed[0] != '{' && trimmed[0] != '[') {
		return data, false, nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var value any
	if err := dec.Decode(&value); err != nil {
		return data, false, nil
	}

	converted, err := casing.ConvertKeys(value, fn)
	if err != nil {
		return nil, false, err
	}

	out, err := json.Marshal(converted)
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}

func hasJSONBody(r *http.Request) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return false
	}
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return isJSONContentType(r.Header.Get("Content-Type"))
	}
	return false
}

func isJSONContentType(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(ct))
	return strings.HasPrefix(ct, "application/json")
}

// bufferingResponseWriter captures the downstream response so the body can be
// rewritten before anything reaches the client.
type bufferingResponseWriter struct {
	http.ResponseWriter
	buf         bytes.Buffer
	statusCode  int
	wroteHeader bool
}

func (w *bufferingResponseWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.statusCode = code
		w.wroteHeader = true
	}
}

func (w *bufferingResponseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.buf.Write(b)
}
