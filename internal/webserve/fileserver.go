// SPDX-License-Identifier: MIT

package webserve

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// reportServer serves files from the results root with checks against
// path traversal, symlink escapes and directory listing. Responses carry
// a weak ETag so clients revalidate cheaply between pipeline runs.
func (s *Server) reportServer() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			recordReportDenied("method_not_allowed")
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		path := r.URL.Path
		if isPathTraversal(path) {
			s.logger.Warn().
				Str("event", "report_req.denied").
				Str("path", path).
				Str("reason", "path_escape").
				Msg("detected traversal sequence")
			recordReportDenied("path_escape")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		if path == "" || strings.HasSuffix(path, "/") {
			recordReportDenied("directory_listing")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		absRoot, err := filepath.Abs(s.cfg.ResultsRoot)
		if err != nil {
			s.logger.Error().Err(err).Msg("could not resolve results root")
			recordReportDenied("internal_error")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		fullPath := filepath.Join(absRoot, path)
		realPath, err := filepath.EvalSymlinks(fullPath)
		if err != nil {
			if os.IsNotExist(err) {
				recordReportDenied("not_found")
				http.Error(w, "Not found", http.StatusNotFound)
				return
			}
			s.logger.Error().Err(err).Str("path", fullPath).Msg("could not evaluate symlinks")
			recordReportDenied("internal_error")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		realRoot, err := filepath.EvalSymlinks(absRoot)
		if err != nil {
			s.logger.Error().Err(err).Msg("could not evaluate symlinks on results root")
			recordReportDenied("internal_error")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		// The resolved path must stay inside the resolved root, even
		// when a symlink inside the root points elsewhere.
		relPath, err := filepath.Rel(realRoot, realPath)
		if err != nil || strings.HasPrefix(relPath, "..") || filepath.IsAbs(relPath) {
			s.logger.Warn().
				Str("event", "report_req.denied").
				Str("path", path).
				Str("resolved_path", realPath).
				Str("reason", "path_escape").
				Msg("path escapes results root")
			recordReportDenied("path_escape")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		// #nosec G304 -- realPath is validated to reside inside the results root
		f, err := os.Open(realPath)
		if err != nil {
			s.logger.Error().Err(err).Str("path", realPath).Msg("could not open report file")
			recordReportDenied("internal_error")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		defer func() {
			if err := f.Close(); err != nil {
				s.logger.Warn().Err(err).Str("path", realPath).Msg("failed to close report file")
			}
		}()

		info, err := f.Stat()
		if err != nil {
			s.logger.Error().Err(err).Str("path", realPath).Msg("could not stat report file")
			recordReportDenied("internal_error")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if info.IsDir() {
			recordReportDenied("directory_listing")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		// Weak validator from modtime and size. The index and the
		// rolling latest copies change between runs, dated reports
		// do not.
		etag := fmt.Sprintf(`W/"%x-%x"`, info.ModTime().UnixNano(), info.Size())
		w.Header().Set("ETag", etag)
		w.Header().Set("Cache-Control", "public, max-age=300")
		if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
			recordReportCacheHit()
			w.WriteHeader(http.StatusNotModified)
			return
		}

		lowerName := strings.ToLower(info.Name())
		switch {
		case strings.HasSuffix(lowerName, ".html"):
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
		case strings.HasSuffix(lowerName, ".json"):
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
		}

		recordReportServed()
		recordReportCacheMiss()
		http.ServeContent(w, r, info.Name(), info.ModTime(), f)
	})
}

// isPathTraversal checks for traversal attempts. It decodes the input
// multiple times to catch double-encoding, applies Unicode normalization
// and rejects NUL bytes.
func isPathTraversal(p string) bool {
	decoded := p
	for i := 0; i < 3; i++ {
		prev := decoded
		if d, err := url.PathUnescape(decoded); err == nil {
			decoded = d
		} else if d2, err2 := url.QueryUnescape(decoded); err2 == nil {
			decoded = d2
		}
		if decoded == prev {
			break
		}
	}

	lower := strings.ToLower(decoded)
	dangerSubstrings := []string{
		"..",
		"%00",
		"%c0%ae",    // overlong UTF-8 for '.'
		"%e0%80%ae", // another overlong variant
	}
	for _, pat := range dangerSubstrings {
		if strings.Contains(lower, pat) {
			return true
		}
	}
	if strings.IndexByte(decoded, 0x00) >= 0 {
		return true
	}

	return strings.Contains(strings.ToLower(norm.NFC.String(decoded)), "..")
}
