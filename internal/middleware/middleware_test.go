package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vyrodovalexey/pantry-tracker/internal/auth"
)

type staticAuthenticator struct {
	subject string
}

func (a staticAuthenticator) Authenticate(*http.Request) (*auth.AuthInfo, error) {
	return &auth.AuthInfo{Method: auth.AuthMethodAPIKey, Subject: a.subject}, nil
}

func (staticAuthenticator) Method() auth.AuthMethod { return auth.AuthMethodAPIKey }

func TestResponseWriter_WriteHeader(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
	}{
		{name: "OK", statusCode: http.StatusOK},
		{name: "See Other", statusCode: http.StatusSeeOther},
		{name: "Not Found", statusCode: http.StatusNotFound},
		{name: "Service Unavailable", statusCode: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			rec := httptest.NewRecorder()
			rw := newResponseWriter(rec)

			// Act
			rw.WriteHeader(tt.statusCode)
			rw.WriteHeader(http.StatusTeapot)

			// Assert
			if rw.statusCode != tt.statusCode {
				t.Errorf("statusCode = %d, want %d", rw.statusCode, tt.statusCode)
			}
			if rec.Code != tt.statusCode {
				t.Errorf("recorder.Code = %d, want %d", rec.Code, tt.statusCode)
			}
		})
	}
}

func TestResponseWriter_WriteImpliesOK(t *testing.T) {
	// Arrange
	rec := httptest.NewRecorder()
	rw := newResponseWriter(rec)

	// Act
	n, err := rw.Write([]byte("pantry"))

	// Assert
	if err != nil || n != len("pantry") {
		t.Fatalf("Write() = %d, %v", n, err)
	}
	if !rw.written || rw.statusCode != http.StatusOK {
		t.Errorf("written = %v, statusCode = %d", rw.written, rw.statusCode)
	}
}

func TestResponseWriter_HijackUnsupported(t *testing.T) {
	// Arrange
	rw := newResponseWriter(httptest.NewRecorder())

	// Act
	_, _, err := rw.Hijack()

	// Assert
	if err != http.ErrNotSupported {
		t.Errorf("Hijack() error = %v, want %v", err, http.ErrNotSupported)
	}
}

func TestChain_Order(t *testing.T) {
	// Arrange
	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	handler := Chain(mark("first"), mark("second"), mark("third"))(
		http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			order = append(order, "handler")
		}),
	)

	// Act
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	// Assert
	if got := strings.Join(order, ","); got != "first,second,third,handler" {
		t.Errorf("order = %s", got)
	}
}

func TestLogging(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		status    int
		wantLevel zapcore.Level
	}{
		{name: "page request", path: "/", status: http.StatusOK, wantLevel: zapcore.InfoLevel},
		{name: "row action", path: "/items/Milk/increment", status: http.StatusSeeOther, wantLevel: zapcore.InfoLevel},
		{name: "health probe", path: "/health", status: http.StatusOK, wantLevel: zapcore.DebugLevel},
		{name: "metrics scrape", path: "/metrics", status: http.StatusOK, wantLevel: zapcore.DebugLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			core, logs := observer.New(zapcore.DebugLevel)
			handler := Logging(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))

			// Act
			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, tt.path, nil))

			// Assert
			entries := logs.All()
			if len(entries) != 1 {
				t.Fatalf("got %d log entries, want 1", len(entries))
			}
			if entries[0].Level != tt.wantLevel {
				t.Errorf("level = %v, want %v", entries[0].Level, tt.wantLevel)
			}
			fields := entries[0].ContextMap()
			if fields["status"] != int64(tt.status) {
				t.Errorf("status field = %v, want %d", fields["status"], tt.status)
			}
			if fields["path"] != tt.path {
				t.Errorf("path field = %v, want %s", fields["path"], tt.path)
			}
		})
	}
}

func TestLogging_RecordsAuthenticatedSubject(t *testing.T) {
	// Arrange
	core, logs := observer.New(zapcore.InfoLevel)
	handler := Chain(
		Logging(zap.New(core)),
		Auth(staticAuthenticator{subject: "kitchen"}, zap.NewNop()),
	)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// Act
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	// Assert
	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d log entries, want 1", len(entries))
	}
	if got := entries[0].ContextMap()["subject"]; got != "kitchen" {
		t.Errorf("subject field = %v, want kitchen", got)
	}
}

func TestRecovery_RecoversPanic(t *testing.T) {
	// Arrange
	core, logs := observer.New(zapcore.ErrorLevel)
	handler := Recovery(zap.New(core))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("shelf collapsed")
	}))
	rec := httptest.NewRecorder()

	// Act
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	// Assert
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("Status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
	if logs.FilterMessage("panic recovered").Len() != 1 {
		t.Error("panic should be logged")
	}
}

func TestRequestID(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
	}{
		{name: "generated", incoming: ""},
		{name: "propagated", incoming: "req-123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			var fromContext string
			handler := RequestID()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				fromContext, _ = r.Context().Value(RequestIDKey).(string)
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.incoming != "" {
				req.Header.Set(RequestIDHeader, tt.incoming)
			}
			rec := httptest.NewRecorder()

			// Act
			handler.ServeHTTP(rec, req)

			// Assert
			got := rec.Header().Get(RequestIDHeader)
			if got == "" {
				t.Fatal("response is missing the request ID header")
			}
			if tt.incoming != "" && got != tt.incoming {
				t.Errorf("request ID = %q, want %q", got, tt.incoming)
			}
			if fromContext != got {
				t.Errorf("context request ID = %q, want %q", fromContext, got)
			}
		})
	}
}

func TestMetrics_UsesRouteTemplate(t *testing.T) {
	// Arrange
	router := mux.NewRouter()
	var seen string
	router.HandleFunc("/items/{name}/increment", func(w http.ResponseWriter, r *http.Request) {
		seen = normalizeRequestPath(r)
		w.WriteHeader(http.StatusSeeOther)
	})
	router.Use(mux.MiddlewareFunc(Metrics()))
	rec := httptest.NewRecorder()

	// Act
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/items/Milk/increment", nil))

	// Assert
	if rec.Code != http.StatusSeeOther {
		t.Errorf("Status = %d, want %d", rec.Code, http.StatusSeeOther)
	}
	if seen != "/items/{name}/increment" {
		t.Errorf("path label = %q, want route template", seen)
	}
}

func TestNormalizeRequestPath_NoRoute(t *testing.T) {
	// Act
	got := normalizeRequestPath(httptest.NewRequest(http.MethodGet, "/unrouted", nil))

	// Assert
	if got != "/unrouted" {
		t.Errorf("normalizeRequestPath() = %q, want /unrouted", got)
	}
}
