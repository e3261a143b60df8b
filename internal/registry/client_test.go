package registry

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dstack-health-agent/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var testReg = model.WorkerRegistration{
	Pubkey:   "aabbccddeeff00112233445566778899aabbccddeeff00112233445566778899",
	Owner:    "0x8ba1f109551bD432803012645Ac136ddd64DBA72",
	NodeType: "node-H100x1",
}

type registryFixture struct {
	checkStatus    int
	checkBody      string
	registerStatus int
	registerBody   string

	checkCalls     int
	registerCalls  int
	lastRegistered model.WorkerRegistration
}

func (f *registryFixture) start(t *testing.T) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/permissions/"):
			f.checkCalls++
			assert.Equal(t, "/permissions/"+testReg.Pubkey, r.URL.Path)
			w.WriteHeader(f.checkStatus)
			_, _ = w.Write([]byte(f.checkBody))
		case r.Method == http.MethodPost && r.URL.Path == "/workers":
			f.registerCalls++
			require.NoError(t, json.NewDecoder(r.Body).Decode(&f.lastRegistered))
			w.WriteHeader(f.registerStatus)
			_, _ = w.Write([]byte(f.registerBody))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestEnsureRegisteredAlreadyRegistered(t *testing.T) {
	fx := &registryFixture{
		checkStatus: http.StatusOK,
		checkBody:   `{"write": {"mode": "AllowAll"}}`,
	}
	srv := fx.start(t)

	err := New(srv.URL, testLogger()).EnsureRegistered(context.Background(), testReg)
	require.NoError(t, err)
	assert.Equal(t, 1, fx.checkCalls)
	assert.Equal(t, 0, fx.registerCalls, "AllowAll permission must skip registration")
}

func TestEnsureRegisteredRestrictedMode(t *testing.T) {
	fx := &registryFixture{
		checkStatus:    http.StatusOK,
		checkBody:      `{"write": {"mode": "Restricted"}}`,
		registerStatus: http.StatusCreated,
	}
	srv := fx.start(t)

	err := New(srv.URL, testLogger()).EnsureRegistered(context.Background(), testReg)
	require.NoError(t, err)
	assert.Equal(t, 1, fx.registerCalls)
	assert.Equal(t, testReg, fx.lastRegistered)
}

func TestEnsureRegisteredCheckNotFound(t *testing.T) {
	fx := &registryFixture{
		checkStatus:    http.StatusNotFound,
		registerStatus: http.StatusCreated,
	}
	srv := fx.start(t)

	err := New(srv.URL, testLogger()).EnsureRegistered(context.Background(), testReg)
	require.NoError(t, err)
	assert.Equal(t, 1, fx.registerCalls)
}

func TestEnsureRegisteredCheckParseFailure(t *testing.T) {
	// An unparseable 2xx permission body is treated as "not registered".
	fx := &registryFixture{
		checkStatus:    http.StatusOK,
		checkBody:      `{{{`,
		registerStatus: http.StatusOK,
	}
	srv := fx.start(t)

	err := New(srv.URL, testLogger()).EnsureRegistered(context.Background(), testReg)
	require.NoError(t, err)
	assert.Equal(t, 1, fx.registerCalls)
}

func TestEnsureRegisteredCheckNetworkFailureFailsOpen(t *testing.T) {
	// The permission check dies at the network level (connection torn down
	// mid-request); the workflow must still issue exactly one registration.
	var registerCalls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/permissions/") {
			hj, ok := w.(http.Hijacker)
			require.True(t, ok)
			conn, _, err := hj.Hijack()
			require.NoError(t, err)
			_ = conn.Close()
			return
		}
		if r.Method == http.MethodPost && r.URL.Path == "/workers" {
			registerCalls++
			w.WriteHeader(http.StatusCreated)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	err := New(srv.URL, testLogger()).EnsureRegistered(context.Background(), testReg)
	require.NoError(t, err)
	assert.Equal(t, 1, registerCalls)
}

func TestCheckRegisteredNetworkFailure(t *testing.T) {
	dead := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	dead.Close()

	_, err := New(dead.URL, testLogger()).CheckRegistered(context.Background(), testReg.Pubkey)
	require.Error(t, err)
}

func TestEnsureRegisteredRegisterFailureIsFatal(t *testing.T) {
	fx := &registryFixture{
		checkStatus:    http.StatusNotFound,
		registerStatus: http.StatusInternalServerError,
		registerBody:   "owner not allowed",
	}
	srv := fx.start(t)

	err := New(srv.URL, testLogger()).EnsureRegistered(context.Background(), testReg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
	assert.Contains(t, err.Error(), "owner not allowed")
	assert.Equal(t, 1, fx.registerCalls, "no retry at the registration layer")
}

func TestRegisterNetworkFailure(t *testing.T) {
	dead := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	dead.Close()

	err := New(dead.URL, testLogger()).Register(context.Background(), testReg)
	require.Error(t, err)
}
