package transport

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/retorded/chordring/internal/logger"
	"github.com/retorded/chordring/internal/ring"
)

// noopTransport reports every peer alive on Status and answers every
// other ring.Transport call with "unreachable", which is all the
// handler tests below need: a solo node only ever probes its own
// status (find_successor step 1) and is never asked to delegate.
type noopTransport struct{}

func (noopTransport) Status(addr string) error                  { return nil }
func (noopTransport) GetPredecessor(addr string) (string, error) { return "", fmt.Errorf("unreachable") }
func (noopTransport) GetSuccessorList(addr string) ([]string, error) {
	return nil, fmt.Errorf("unreachable")
}
func (noopTransport) FindSuccessor(ctx context.Context, addr string, keyID int) (string, error) {
	return "", fmt.Errorf("unreachable")
}
func (noopTransport) Notify(addr, self string) error { return fmt.Errorf("unreachable") }
func (noopTransport) GetValue(addr, key string) (string, error) {
	return "", fmt.Errorf("unreachable")
}
func (noopTransport) SetValue(addr, key, value string) error { return fmt.Errorf("unreachable") }
func (noopTransport) SetSuccessor(addr, successor string) error {
	return fmt.Errorf("unreachable")
}
func (noopTransport) SetPredecessor(addr, predecessor string) error {
	return fmt.Errorf("unreachable")
}

func newTestServer(t *testing.T) (*httptest.Server, *ring.Node, string) {
	t.Helper()
	node := ring.New("127.0.0.1:0", 8, 3, noopTransport{}, logger.NopLogger{}, ring.Noop())
	client := NewClient(logger.NopLogger{})
	srv := NewServer("127.0.0.1:0", node, client, logger.NopLogger{})

	ts := httptest.NewServer(srv.http.Handler)
	t.Cleanup(ts.Close)
	addr := strings.TrimPrefix(ts.URL, "http://")
	return ts, node, addr
}

func TestHandleStatus_OK(t *testing.T) {
	ts, _, _ := newTestServer(t)
	resp, err := http.Get(ts.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHandleGetPredecessor_NotFoundWhenEmpty(t *testing.T) {
	ts, _, _ := newTestServer(t)
	resp, err := http.Get(ts.URL + "/predecessor")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandleNotify_EmptyBodyIsBadRequest(t *testing.T) {
	ts, _, _ := newTestServer(t)
	resp, err := http.Post(ts.URL+"/notify", "text/plain", strings.NewReader(""))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode) // POST isn't registered; PUT is

	req, err := http.NewRequest(http.MethodPut, ts.URL+"/notify", strings.NewReader(""))
	require.NoError(t, err)
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp2.StatusCode)
}

func TestHandleNotify_SetsPredecessor(t *testing.T) {
	ts, node, _ := newTestServer(t)
	req, err := http.NewRequest(http.MethodPut, ts.URL+"/notify", strings.NewReader("127.0.0.1:9999"))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "127.0.0.1:9999", node.Predecessor())
}

func TestHandleValue_RoundTrip(t *testing.T) {
	ts, _, _ := newTestServer(t)

	putReq, err := http.NewRequest(http.MethodPut, ts.URL+"/value/greeting", strings.NewReader("hello"))
	require.NoError(t, err)
	putResp, err := http.DefaultClient.Do(putReq)
	require.NoError(t, err)
	defer putResp.Body.Close()
	require.Equal(t, http.StatusOK, putResp.StatusCode)

	getResp, err := http.Get(ts.URL + "/value/greeting")
	require.NoError(t, err)
	defer getResp.Body.Close()
	require.Equal(t, http.StatusOK, getResp.StatusCode)
}

func TestHandlePutValue_EmptyBodyIsBadRequest(t *testing.T) {
	ts, _, _ := newTestServer(t)
	req, err := http.NewRequest(http.MethodPut, ts.URL+"/value/x", strings.NewReader(""))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleStorage_SoloNodeServesLocally(t *testing.T) {
	ts, _, _ := newTestServer(t)

	putReq, err := http.NewRequest(http.MethodPut, ts.URL+"/storage/k1", strings.NewReader("v1"))
	require.NoError(t, err)
	putResp, err := http.DefaultClient.Do(putReq)
	require.NoError(t, err)
	defer putResp.Body.Close()
	require.Equal(t, http.StatusOK, putResp.StatusCode)

	getResp, err := http.Get(ts.URL + "/storage/k1")
	require.NoError(t, err)
	defer getResp.Body.Close()
	require.Equal(t, http.StatusOK, getResp.StatusCode)
}

func TestHandleJoin_MissingNprimeIsBadRequest(t *testing.T) {
	ts, _, _ := newTestServer(t)
	resp, err := http.Post(ts.URL+"/join", "text/plain", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSimCrash_DropsConnectionsExceptSimRecover(t *testing.T) {
	ts, node, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/status")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	node.SimCrash()

	shortClient := &http.Client{}
	_, err = shortClient.Get(ts.URL + "/status")
	require.Error(t, err, "crashed node must not answer /status")

	recoverResp, err := http.Post(ts.URL+"/sim-recover", "text/plain", nil)
	require.NoError(t, err)
	defer recoverResp.Body.Close()
	require.Equal(t, http.StatusOK, recoverResp.StatusCode)
	require.False(t, node.IsCrashed())

	afterResp, err := http.Get(ts.URL + "/status")
	require.NoError(t, err)
	defer afterResp.Body.Close()
	require.Equal(t, http.StatusOK, afterResp.StatusCode)
}

func TestClientServer_FindSuccessorRoundTrip(t *testing.T) {
	_, node, addr := newTestServer(t)

	client := NewClient(logger.NopLogger{})
	got, err := client.FindSuccessor(context.Background(), addr, node.ID())
	require.NoError(t, err)
	require.Equal(t, node.Address(), got)
}

func TestClientServer_GetSuccessorListRoundTrip(t *testing.T) {
	_, node, addr := newTestServer(t)
	client := NewClient(logger.NopLogger{})

	list, err := client.GetSuccessorList(addr)
	require.NoError(t, err)
	require.Equal(t, node.SuccessorList(), list)
}

func TestClientServer_SetSuccessorAndPredecessorRoundTrip(t *testing.T) {
	_, node, addr := newTestServer(t)
	client := NewClient(logger.NopLogger{})

	require.NoError(t, client.SetSuccessor(addr, "127.0.0.1:7001"))
	require.Equal(t, "127.0.0.1:7001", node.Successor())

	require.NoError(t, client.SetPredecessor(addr, "127.0.0.1:7002"))
	require.Equal(t, "127.0.0.1:7002", node.Predecessor())
}

func TestClientServer_GetPredecessorNotFound(t *testing.T) {
	_, _, addr := newTestServer(t)
	client := NewClient(logger.NopLogger{})

	_, err := client.GetPredecessor(addr)
	require.ErrorIs(t, err, ring.ErrNotFound)
}
