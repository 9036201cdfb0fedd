package server

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"sync"
)

var gzipPool = sync.Pool{
	New: func() interface{} { return gzip.NewWriter(io.Discard) },
}

// gzipWriter decides on the encoding when the status is known. Bodyless
// responses, such as the 304 of a revalidated /data file, go out plain.
type gzipWriter struct {
	http.ResponseWriter
	gz     *gzip.Writer
	status int
	plain  bool
}

func (w *gzipWriter) WriteHeader(status int) {
	if w.status != 0 {
		return
	}
	w.status = status
	if status == http.StatusNoContent || status == http.StatusNotModified || status < 200 {
		w.plain = true
	} else {
		w.Header().Set("Content-Encoding", "gzip")
		// http.ServeFile has set the uncompressed length.
		w.Header().Del("Content-Length")
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *gzipWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.WriteHeader(http.StatusOK)
	}
	if w.plain {
		return w.ResponseWriter.Write(b)
	}
	if w.gz == nil {
		w.gz = gzipPool.Get().(*gzip.Writer)
		w.gz.Reset(w.ResponseWriter)
	}
	return w.gz.Write(b)
}

func (w *gzipWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

// finish terminates the gzip stream. An encoded response with no body still
// gets a valid empty stream.
func (w *gzipWriter) finish() {
	if w.status == 0 || w.plain {
		return
	}
	if w.gz == nil {
		w.gz = gzipPool.Get().(*gzip.Writer)
		w.gz.Reset(w.ResponseWriter)
	}
	w.gz.Close()
	w.gz.Reset(io.Discard)
	gzipPool.Put(w.gz)
	w.gz = nil
}

// CompressionMiddleware gzips the page, assets, /data and /api/steps for
// clients that accept it. The /ws handshake is never wrapped because the
// upgrader hijacks the raw writer; paths in skip (such as /metrics, which
// promhttp encodes itself) pass through as well.
func CompressionMiddleware(skip ...string) func(http.Handler) http.Handler {
	exempt := make(map[string]bool, len(skip))
	for _, p := range skip {
		exempt[p] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if exempt[r.URL.Path] ||
				strings.EqualFold(r.Header.Get("Upgrade"), "websocket") ||
				!strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Add("Vary", "Accept-Encoding")
			gw := &gzipWriter{ResponseWriter: w}
			defer gw.finish()
			next.ServeHTTP(gw, r)
		})
	}
}
