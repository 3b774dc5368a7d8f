package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	agenthandler "agentmemory/internal/agent/handler"
	agentservice "agentmemory/internal/agent/service"
	agentstore "agentmemory/internal/agent/store"
	"agentmemory/internal/events"
	jwttoken "agentmemory/internal/jwt_token"
	"agentmemory/internal/ledger"
	ledgerhandler "agentmemory/internal/ledger/handler"
	"agentmemory/internal/platform/logger"
	"agentmemory/pkg/domain"
)

func newTestServer(t *testing.T, faucet bool) (*httptest.Server, *jwttoken.Service) {
	t.Helper()
	log := logger.New()
	jwtSvc := jwttoken.NewService("test-key", "agentmemory")
	agentSvc := agentservice.New(
		agentstore.NewInMemory(),
		events.NewStorePublisher(events.NewInMemoryStore()),
		nil,
	)
	router := NewRouter(log,
		agenthandler.New(agentSvc, log, jwtSvc),
		ledgerhandler.New(ledger.NewInMemory(), log, jwtSvc, faucet),
	)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, jwtSvc
}

func bearer(t *testing.T, jwtSvc *jwttoken.Service, seed string) string {
	t.Helper()
	token, err := jwtSvc.GenerateCallerToken(domain.DeriveAddress("wallet", []byte(seed)), time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t, false)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRegisterAgentRequiresToken(t *testing.T) {
	srv, _ := newTestServer(t, false)

	resp, err := http.Post(srv.URL+"/agents", "application/json", strings.NewReader(`{"agent_id":"trader-1"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRegisterAgentEndToEnd(t *testing.T) {
	srv, jwtSvc := newTestServer(t, false)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/agents", strings.NewReader(`{"agent_id":"trader-1"}`))
	require.NoError(t, err)
	req.Header.Set("Authorization", bearer(t, jwtSvc, "alice"))

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	// The record is readable without authentication.
	getResp, err := http.Get(srv.URL + "/agents/trader-1")
	require.NoError(t, err)
	defer getResp.Body.Close()
	assert.Equal(t, http.StatusOK, getResp.StatusCode)

	// Replaying the registration surfaces the derived-key collision.
	replay, err := http.NewRequest(http.MethodPost, srv.URL+"/agents", strings.NewReader(`{"agent_id":"trader-1"}`))
	require.NoError(t, err)
	replay.Header.Set("Authorization", bearer(t, jwtSvc, "alice"))
	replayResp, err := http.DefaultClient.Do(replay)
	require.NoError(t, err)
	defer replayResp.Body.Close()
	assert.Equal(t, http.StatusConflict, replayResp.StatusCode)
}

func TestFaucetRouteOnlyWhenEnabled(t *testing.T) {
	addr := domain.DeriveAddress("wallet", []byte("alice")).String()

	srv, jwtSvc := newTestServer(t, false)
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/ledger/"+addr+"/mint", strings.NewReader(`{"amount":100}`))
	require.NoError(t, err)
	req.Header.Set("Authorization", bearer(t, jwtSvc, "alice"))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	devSrv, devJWT := newTestServer(t, true)
	devReq, err := http.NewRequest(http.MethodPost, devSrv.URL+"/ledger/"+addr+"/mint", strings.NewReader(`{"amount":100}`))
	require.NoError(t, err)
	devReq.Header.Set("Authorization", bearer(t, devJWT, "alice"))
	devResp, err := http.DefaultClient.Do(devReq)
	require.NoError(t, err)
	defer devResp.Body.Close()
	assert.Equal(t, http.StatusOK, devResp.StatusCode)

	balResp, err := http.Get(devSrv.URL + "/ledger/" + addr)
	require.NoError(t, err)
	defer balResp.Body.Close()
	assert.Equal(t, http.StatusOK, balResp.StatusCode)
}
