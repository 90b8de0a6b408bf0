// Package middleware holds the HTTP wrappers shared by every route the
// game server exposes.
package middleware

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// statusRecorder captures the response status for the access log. It
// forwards Hijack and Flush so the WebSocket upgrade on /session/ws/
// still works through the wrapper.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return hj.Hijack()
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// LogMiddleware logs every request with its method, path, response
// status and duration.
func LogMiddleware(logger *logrus.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			logger.WithFields(logrus.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   rec.status,
				"duration": time.Since(start),
				"remote":   r.RemoteAddr,
			}).Info("http request")
		})
	}
}

// LogSessionSocketConnect records a viewer joining a session socket.
func LogSessionSocketConnect(logger *logrus.Logger, remoteAddr, sessionID, role string) {
	logger.WithFields(logrus.Fields{
		"remote":     remoteAddr,
		"session_id": sessionID,
		"role":       role,
	}).Info("session socket connected")
}

// LogSessionSocketDisconnect records the viewer leaving, with the close
// error when the shutdown was not clean.
func LogSessionSocketDisconnect(logger *logrus.Logger, remoteAddr, sessionID, role string, err error) {
	fields := logrus.Fields{
		"remote":     remoteAddr,
		"session_id": sessionID,
		"role":       role,
	}
	if err != nil {
		fields["error"] = err
	}
	logger.WithFields(fields).Info("session socket disconnected")
}
