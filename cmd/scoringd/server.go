package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/dreamware/scoring/internal/api"
	"github.com/dreamware/scoring/internal/health"
	"github.com/dreamware/scoring/internal/metrics"
)

// maxBodyBytes caps a request body.
const maxBodyBytes = 1 << 20

const requestIDHeader = "X-Request-Id"

type ctxKey int

const requestIDKey ctxKey = iota

type server struct {
	router  *api.Router
	monitor *health.Monitor
	log     logrus.FieldLogger
}

func newServer(router *api.Router, monitor *health.Monitor, log logrus.FieldLogger) *server {
	return &server{router: router, monitor: monitor, log: log}
}

func (s *server) routes() http.Handler {
	r := mux.NewRouter()
	r.Use(s.withRequestID, s.recoverer)

	method := metrics.InstrumentHandler("/method", http.HandlerFunc(s.handleMethod))
	r.Handle("/method", method).Methods(http.MethodPost)
	r.Handle("/method/", method).Methods(http.MethodPost)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	// mux skips middleware when nothing matches, so wrap these directly.
	r.NotFoundHandler = s.withRequestID(http.HandlerFunc(s.handleNotFound))
	r.MethodNotAllowedHandler = s.withRequestID(http.HandlerFunc(s.handleNotFound))
	return r
}

// withRequestID takes the caller's request id or assigns a fresh one.
func (s *server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = strings.ReplaceAll(uuid.NewString(), "-", "")
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

func requestID(r *http.Request) string {
	id, _ := r.Context().Value(requestIDKey).(string)
	return id
}

func (s *server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if p := recover(); p != nil {
				s.log.WithField("request_id", requestID(r)).WithField("panic", p).Error("unexpected error")
				s.writeEnvelope(w, nil, api.InternalError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *server) handleMethod(w http.ResponseWriter, r *http.Request) {
	call := &api.CallContext{RequestID: requestID(r)}

	body, raw, err := readObject(w, r)
	if err != nil {
		s.log.WithFields(call.Fields()).WithError(err).Debug("unreadable request body")
		s.finish(w, call, nil, api.BadRequest)
		return
	}
	s.log.WithFields(call.Fields()).Infof("%s: %s", r.URL.Path, raw)

	payload, status := s.router.Dispatch(r.Context(), body, call)
	s.finish(w, call, payload, status)
}

// readObject decodes the body as a JSON object with numbers kept as
// json.Number.
func readObject(w http.ResponseWriter, r *http.Request) (map[string]any, []byte, error) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, raw, err
	}
	if dec.More() {
		return nil, raw, errors.New("trailing data after JSON value")
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, raw, errors.New("request body is not a JSON object")
	}
	return obj, raw, nil
}

func (s *server) finish(w http.ResponseWriter, call *api.CallContext, payload any, status api.Status) {
	s.writeEnvelope(w, payload, status)
	s.log.WithFields(call.Fields()).WithField("code", int(status)).Info("request served")
}

func (s *server) writeEnvelope(w http.ResponseWriter, payload any, status api.Status) {
	out := map[string]any{"code": int(status)}
	if status.IsError() {
		msg, _ := payload.(string)
		if msg == "" {
			msg = status.Text()
		}
		out["error"] = msg
	} else {
		out["response"] = payload
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(int(status))
	if err := json.NewEncoder(w).Encode(out); err != nil {
		s.log.WithError(err).Warn("write response")
	}
}

func (s *server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.finish(w, &api.CallContext{RequestID: requestID(r)}, nil, api.NotFound)
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	status := http.StatusOK
	resp := map[string]any{"status": "ok"}
	if s.monitor != nil {
		resp["targets"] = s.monitor.All()
		if !s.monitor.Healthy() {
			status = http.StatusServiceUnavailable
			resp["status"] = "unhealthy"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
