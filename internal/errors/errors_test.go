package errors

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/gradviz/internal/logging"
)

var errSentinel = stderrors.New("unknown objective")

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		err    *Error
		status int
		code   int
		msg    string
	}{
		{"bad request", BadRequest("value %d out of range", 7), http.StatusBadRequest, CodeInvalidParams, "value 7 out of range"},
		{"not found", NotFound("session %q not found", "abc"), http.StatusNotFound, CodeNotFound, `session "abc" not found`},
		{"too many", TooManyRequests("limit %d", 3), http.StatusTooManyRequests, CodeServerError, "limit 3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, tt.err.Status)
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.msg, tt.err.Error())
			assert.NotEmpty(t, tt.err.StackTrace())
		})
	}
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, http.StatusBadRequest, CodeInvalidParams, "ignored"))

	err := Wrap(fmt.Errorf("objective %q: %w", "x", errSentinel), http.StatusNotFound, CodeNotFound, "get objective").
		WithOperation("lookup")
	assert.Equal(t, `get objective: operation=lookup: objective "x": unknown objective`, err.Error())
	assert.True(t, Is(err, errSentinel))

	var target *Error
	require.True(t, As(fmt.Errorf("outer: %w", err), &target))
	assert.Equal(t, http.StatusNotFound, target.Status)
}

func TestFrom(t *testing.T) {
	orig := BadRequest("nope")
	assert.Same(t, orig, From(fmt.Errorf("context: %w", orig)))

	plain := From(errSentinel)
	assert.Equal(t, http.StatusInternalServerError, plain.Status)
	assert.Equal(t, CodeServerError, plain.Code)
	assert.Equal(t, "unknown objective", plain.Error())
}

func TestRecoveryMiddleware(t *testing.T) {
	var buf bytes.Buffer
	mw := RecoveryMiddleware(logging.New(logging.ErrorLevel, &buf))

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("engine exploded")
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/sessions/x/step", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, buf.String(), "Recovered from panic")
	assert.Contains(t, buf.String(), "engine exploded")
}

func TestRecoveryMiddlewareRepanicsOnAbort(t *testing.T) {
	mw := RecoveryMiddleware(logging.New(logging.ErrorLevel, &bytes.Buffer{}))
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}
