package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *testEnv) rpc(t *testing.T, method string, params interface{}) map[string]interface{} {
	t.Helper()

	req := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
	}
	if params != nil {
		req["params"] = params
	}
	rr := e.do(t, http.MethodPost, "/rpc", req)
	require.Equal(t, http.StatusOK, rr.Code)
	return decode(t, rr)
}

func rpcResult(t *testing.T, resp map[string]interface{}) map[string]interface{} {
	t.Helper()

	require.Nil(t, resp["error"], "unexpected error: %v", resp["error"])
	result, ok := resp["result"].(map[string]interface{})
	require.True(t, ok, "result should be an object")
	return result
}

func rpcErrorCode(t *testing.T, resp map[string]interface{}) float64 {
	t.Helper()

	errObj, ok := resp["error"].(map[string]interface{})
	require.True(t, ok, "response should contain error object")
	return errObj["code"].(float64)
}

func TestJSONRPCSessionFlow(t *testing.T) {
	env := newTestEnv(t)

	created := rpcResult(t, env.rpc(t, "session.create", map[string]interface{}{"objective": "beale"}))
	id := created["id"].(string)
	assert.Equal(t, "beale", created["objective"])

	// Params may also be wrapped in a one-element array.
	stepped := rpcResult(t, env.rpc(t, "session.step", []interface{}{map[string]interface{}{"session_id": id}}))
	assert.Equal(t, 1.0, stepped["iteration"])

	started := rpcResult(t, env.rpc(t, "session.start", map[string]interface{}{"session_id": id}))
	assert.Equal(t, "running", started["status"])
	assert.Equal(t, 2.0, started["iteration"])

	switched := rpcResult(t, env.rpc(t, "session.selectObjective", map[string]interface{}{"session_id": id, "name": "quadratic"}))
	assert.Equal(t, "idle", switched["status"])
	assert.Equal(t, 0.0, switched["iteration"])
	assert.Equal(t, 0, env.sched.Pending(), "changing objective cancels the cadence")

	rate := rpcResult(t, env.rpc(t, "session.setLearningRate", map[string]interface{}{"session_id": id, "value": 0.3}))
	assert.Equal(t, 0.3, rate["learning_rate"])

	speed := rpcResult(t, env.rpc(t, "session.setSpeed", map[string]interface{}{"session_id": id, "level": 7}))
	assert.Equal(t, 7.0, speed["speed"])

	reset := rpcResult(t, env.rpc(t, "session.reset", map[string]interface{}{"session_id": id}))
	assert.Equal(t, 0.0, reset["iteration"])

	got := rpcResult(t, env.rpc(t, "session.get", map[string]interface{}{"session_id": id}))
	assert.Equal(t, id, got["id"])

	closed := rpcResult(t, env.rpc(t, "session.close", map[string]interface{}{"session_id": id}))
	assert.Equal(t, "closed", closed["status"])

	resp := env.rpc(t, "session.get", map[string]interface{}{"session_id": id})
	assert.Equal(t, -32004.0, rpcErrorCode(t, resp))
}

func TestJSONRPCObjectivesList(t *testing.T) {
	env := newTestEnv(t)

	resp := env.rpc(t, "objectives.list", nil)
	list, ok := resp["result"].([]interface{})
	require.True(t, ok)
	assert.Len(t, list, 3)
}

func TestJSONRPCErrors(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body string
		code float64
	}{
		{"parse error", `{`, -32700},
		{"wrong version", `{"jsonrpc":"1.0","id":1,"method":"objectives.list"}`, -32600},
		{"missing method", `{"jsonrpc":"2.0","id":1}`, -32600},
		{"unknown method", `{"jsonrpc":"2.0","id":1,"method":"session.teleport"}`, -32601},
		{"missing params", `{"jsonrpc":"2.0","id":1,"method":"session.step"}`, -32602},
		{"empty params array", `{"jsonrpc":"2.0","id":1,"method":"session.step","params":[]}`, -32602},
		{"missing session id", `{"jsonrpc":"2.0","id":1,"method":"session.step","params":{}}`, -32602},
		{"unknown session", `{"jsonrpc":"2.0","id":1,"method":"session.step","params":{"session_id":"x"}}`, -32004},
		{"unknown objective", `{"jsonrpc":"2.0","id":1,"method":"session.create","params":{"objective":"nope"}}`, -32602},
		{"missing rate", `{"jsonrpc":"2.0","id":1,"method":"session.setLearningRate","params":{"session_id":"x"}}`, -32602},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/rpc", strings.NewReader(tt.body))
			rr := httptest.NewRecorder()
			env.router.ServeHTTP(rr, req)

			require.Equal(t, http.StatusOK, rr.Code)
			assert.Equal(t, tt.code, rpcErrorCode(t, decode(t, rr)))
		})
	}
}
