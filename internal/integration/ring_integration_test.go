// Package integration exercises a handful of real nodes talking over
// real loopback HTTP connections, end to end through cmd/node's
// building blocks (ring.Node + transport.Client/Server) without a
// container runtime.
package integration_test

import (
	"context"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/retorded/chordring/internal/logger"
	"github.com/retorded/chordring/internal/ring"
	"github.com/retorded/chordring/internal/ringid"
	"github.com/retorded/chordring/internal/transport"
)

const (
	testM = 8
	testR = 4
)

type member struct {
	addr   string
	node   *ring.Node
	server *transport.Server
	client *transport.Client
	stop   func()
}

func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

func spawn(t *testing.T) *member {
	t.Helper()
	addr := freeAddr(t)
	client := transport.NewClient(logger.NopLogger{})
	node := ring.New(addr, testM, testR, client, logger.NopLogger{}, ring.Noop())
	server := transport.NewServer(addr, node, client, logger.NopLogger{})

	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()
	waitUntilUp(t, addr)

	stopMaint := node.RunMaintenance(context.Background())
	m := &member{
		addr:   addr,
		node:   node,
		server: server,
		client: client,
		stop: func() {
			stopMaint()
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = server.Shutdown(ctx)
		},
	}
	t.Cleanup(m.stop)
	return m
}

func waitUntilUp(t *testing.T, addr string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, 50*time.Millisecond)
		if err == nil {
			conn.Close()
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("server at %s never came up", addr)
}

func stabilizeAll(members []*member, rounds int) {
	for i := 0; i < rounds; i++ {
		for _, m := range members {
			m.node.Stabilize()
		}
		for _, m := range members {
			m.node.FixFinger()
		}
	}
}

func TestSoloRing_ServesStorageOverHTTP(t *testing.T) {
	m := spawn(t)

	resp, err := http.Post("http://"+m.addr+"/storage/hello", "text/plain", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode, "POST isn't a registered method for /storage/{key}")

	putReq, err := http.NewRequest(http.MethodPut, "http://"+m.addr+"/storage/hello", strings.NewReader("world"))
	require.NoError(t, err)
	putResp, err := http.DefaultClient.Do(putReq)
	require.NoError(t, err)
	defer putResp.Body.Close()
	require.Equal(t, http.StatusOK, putResp.StatusCode)

	getResp, err := http.Get("http://" + m.addr + "/storage/hello")
	require.NoError(t, err)
	defer getResp.Body.Close()
	require.Equal(t, http.StatusOK, getResp.StatusCode)
}

func TestThreeNodeRing_ConvergesAndRoutesEveryKey(t *testing.T) {
	a := spawn(t)
	b := spawn(t)
	c := spawn(t)

	require.NoError(t, b.node.Join(a.addr))
	require.NoError(t, c.node.Join(a.addr))

	members := []*member{a, b, c}
	stabilizeAll(members, 30)

	// P1: successor-following from any node returns to itself within
	// len(members) hops.
	for _, start := range members {
		cur := start.node.Successor()
		seen := map[string]bool{start.addr: true}
		reached := false
		for i := 0; i < len(members); i++ {
			if cur == start.addr {
				reached = true
				break
			}
			require.False(t, seen[cur], "cycle shorter than ring size")
			seen[cur] = true
			next := findMember(members, cur)
			require.NotNil(t, next, "successor %s is not a known member", cur)
			cur = next.node.Successor()
		}
		require.True(t, reached, "successor chain from %s never returned to itself", start.addr)
	}

	// Routing consistency: every key in the identifier space resolves
	// to the same owner address regardless of which node it's asked
	// against.
	for keyID := 0; keyID < 1<<testM; keyID++ {
		var owners []string
		for _, m := range members {
			owner, err := m.node.FindSuccessor(context.Background(), keyID)
			require.NoError(t, err)
			owners = append(owners, owner)
		}
		for i := 1; i < len(owners); i++ {
			require.Equal(t, owners[0], owners[i], "key %d routed inconsistently", keyID)
		}
	}
}

func TestGracefulLeave_HandsOffStorageToSuccessor(t *testing.T) {
	a := spawn(t)
	b := spawn(t)

	require.NoError(t, b.node.Join(a.addr))
	stabilizeAll([]*member{a, b}, 20)

	key := "k"
	owner, err := a.node.FindSuccessor(context.Background(), ringid.Hash(key, testM))
	require.NoError(t, err)
	owningMember := findMember([]*member{a, b}, owner)
	require.NotNil(t, owningMember)
	owningMember.node.LocalSet(key, "v")

	require.NoError(t, owningMember.node.Leave())

	remaining := a
	if owningMember == a {
		remaining = b
	}
	v, ok := remaining.node.LocalGet(key)
	require.True(t, ok)
	require.Equal(t, "v", v)
}

func TestSimCrashRecover_FiveNodeRing(t *testing.T) {
	members := make([]*member, 5)
	members[0] = spawn(t)
	for i := 1; i < 5; i++ {
		members[i] = spawn(t)
		require.NoError(t, members[i].node.Join(members[0].addr))
	}
	stabilizeAll(members, 40)

	crashed := members[2]
	crashed.node.SimCrash()
	require.True(t, crashed.node.IsCrashed())

	resp, err := http.Get("http://" + crashed.addr + "/status")
	if err == nil {
		resp.Body.Close()
		t.Fatalf("crashed node must not answer requests")
	}

	crashed.node.SimRecover()
	require.False(t, crashed.node.IsCrashed())
	waitUntilUp(t, crashed.addr)

	stabilizeAll(members, 20)
	okResp, err := http.Get("http://" + crashed.addr + "/status")
	require.NoError(t, err)
	defer okResp.Body.Close()
	require.Equal(t, http.StatusOK, okResp.StatusCode)
}

func findMember(members []*member, addr string) *member {
	for _, m := range members {
		if m.addr == addr {
			return m
		}
	}
	return nil
}
