// Package notify injects the "you are hijacking another user" banner into
// HTML pages served during a hijacked session.
package notify

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/hlog"
)

// HistoryCookie is set while a session is acting as another user.
const HistoryCookie = "hijack_history"

// MarkerSource yields the text the banner is inserted before.
type MarkerSource interface {
	InsertBefore() (string, error)
}

// Inject returns body with banner inserted before the last occurrence of
// marker. body is returned untouched when marker is empty or absent.
func Inject(body, banner []byte, marker string) []byte {
	if marker == "" {
		return body
	}
	i := bytes.LastIndex(body, []byte(marker))
	if i < 0 {
		return body
	}

	out := make([]byte, 0, len(body)+len(banner))
	out = append(out, body[:i]...)
	out = append(out, banner...)
	out = append(out, body[i:]...)
	return out
}

// Hijacked reports whether the request carries the hijack history cookie.
func Hijacked(r *http.Request) bool {
	c, err := r.Cookie(HistoryCookie)
	return err == nil && c.Value != ""
}

// Middleware buffers HTML responses for requests where active returns true
// and injects banner before the configured marker. Responses carrying a
// Content-Encoding are left as they are.
func Middleware(markers MarkerSource, banner []byte, active func(*http.Request) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !active(r) {
				next.ServeHTTP(w, r)
				return
			}

			buf := &bufferedWriter{header: w.Header(), status: http.StatusOK}
			next.ServeHTTP(buf, r)

			body := buf.body.Bytes()
			if injectable(w.Header()) {
				marker, err := markers.InsertBefore()
				if err != nil {
					hlog.FromRequest(r).Warn().Err(err).Msg("No banner marker configured")
				} else {
					body = Inject(body, banner, marker)
					w.Header().Set("Content-Length", strconv.Itoa(len(body)))
				}
			}

			w.WriteHeader(buf.status)
			if _, err := w.Write(body); err != nil {
				hlog.FromRequest(r).Error().Err(err).Msg("Error writing response")
			}
		})
	}
}

// injectable reports whether the buffered body is plain HTML. Encoded
// bodies are passed through untouched.
func injectable(h http.Header) bool {
	return strings.HasPrefix(h.Get("Content-Type"), "text/html") && h.Get("Content-Encoding") == ""
}

// bufferedWriter holds the status and body until the handler returns.
type bufferedWriter struct {
	header http.Header
	status int
	wrote  bool
	body   bytes.Buffer
}

func (b *bufferedWriter) Header() http.Header { return b.header }

func (b *bufferedWriter) WriteHeader(status int) {
	if b.wrote {
		return
	}
	b.status = status
	b.wrote = true
}

func (b *bufferedWriter) Write(p []byte) (int, error) {
	if !b.wrote {
		b.WriteHeader(http.StatusOK)
	}
	if b.header.Get("Content-Type") == "" {
		b.header.Set("Content-Type", http.DetectContentType(p))
	}
	return b.body.Write(p)
}
