package pipeline

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemoteAgentRoundTrip(t *testing.T) {
	var got string
	agent := askFunc(func(_ context.Context, task string) (string, error) {
		got = task
		return "Created CASE-AB12CD", nil
	})
	mux := http.NewServeMux()
	mux.Handle("POST /invocations", InvocationHandler(agent))
	srv := httptest.NewServer(mux)
	defer srv.Close()

	remote := NewRemoteAgent(srv.URL+"/", srv.Client())
	out, err := remote.Ask(context.Background(), "create a case for PAT-2847")
	require.NoError(t, err)
	assert.Equal(t, "Created CASE-AB12CD", out)
	assert.Equal(t, "create a case for PAT-2847", got)
}

func TestRemoteAgentErrorStatus(t *testing.T) {
	agent := askFunc(func(context.Context, string) (string, error) { return "", errors.New("model overloaded") })
	srv := httptest.NewServer(InvocationHandler(agent))
	defer srv.Close()

	_, err := NewRemoteAgent(srv.URL, srv.Client()).Ask(context.Background(), "anything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
	assert.Contains(t, err.Error(), "model overloaded")
}

func TestInvocationHandlerRejectsMalformed(t *testing.T) {
	h := InvocationHandler(reply("unused"))
	for _, body := range []string{`not json`, `{}`, `{"input":{"text":"  "}}`} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/invocations", strings.NewReader(body)))
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, body)
	}
}

func TestRouter(t *testing.T) {
	r := NewRouter(map[string]int{"direct": 1, "remote": 2}, "direct")
	v, err := r.Route("remote")
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	v, err = r.Route("unknown")
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	assert.Equal(t, []string{"direct", "remote"}, r.Names())

	strict := NewRouter(map[string]int{"a": 1}, "")
	_, err = strict.Route("b")
	assert.Error(t, err)
	assert.True(t, strict.Has("a"))
}
