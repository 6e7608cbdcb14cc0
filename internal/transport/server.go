package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/retorded/chordring/internal/logger"
	"github.com/retorded/chordring/internal/ring"
	"github.com/retorded/chordring/internal/ringid"
	"github.com/retorded/chordring/internal/telemetry"
)

// Server exposes a *ring.Node over the HTTP surface of spec.md §6. It
// holds the Client given to NewServer so that /storage/{key} can
// forward to the owning peer when this node isn't it.
type Server struct {
	node   *ring.Node
	client *Client
	log    logger.Logger
	http   *http.Server
}

// NewServer builds a Server bound to addr ("host:port"), serving node.
func NewServer(addr string, node *ring.Node, client *Client, lgr logger.Logger) *Server {
	if lgr == nil {
		lgr = logger.NopLogger{}
	}
	s := &Server{
		node:   node,
		client: client,
		log:    lgr.Named("transport.server"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /node-info", s.handleNodeInfo)
	mux.HandleFunc("GET /predecessor", s.handleGetPredecessor)
	mux.HandleFunc("GET /successor_list", s.handleSuccessorList)
	mux.HandleFunc("GET /find_successor/{id}", s.handleFindSuccessor)
	mux.HandleFunc("GET /value/{key}", s.handleGetValue)
	mux.HandleFunc("GET /storage/{key}", s.handleGetStorage)
	mux.HandleFunc("GET /network", s.handleNetwork)
	mux.HandleFunc("PUT /value/{key}", s.handlePutValue)
	mux.HandleFunc("PUT /storage/{key}", s.handlePutStorage)
	mux.HandleFunc("PUT /notify", s.handleNotify)
	mux.HandleFunc("PUT /successor", s.handlePutSuccessor)
	mux.HandleFunc("PUT /predecessor", s.handlePutPredecessor)
	mux.HandleFunc("PUT /fix_fingers", s.handleFixFingers)
	mux.HandleFunc("POST /join", s.handleJoin)
	mux.HandleFunc("POST /leave", s.handleLeave)
	mux.HandleFunc("POST /sim-crash", s.handleSimCrash)
	mux.HandleFunc("POST /sim-recover", s.handleSimRecover)

	s.http = &http.Server{
		Addr:    addr,
		Handler: s.crashMiddleware(mux),
	}
	return s
}

// ListenAndServe blocks serving the node's RPC surface.
func (s *Server) ListenAndServe() error {
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("transport: serve: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// crashMiddleware implements spec.md §6's "drop every request except
// sim_recover without reply" while sim_crashed is set. A dropped
// request closes the connection rather than answering with any
// status code — from the caller's point of view it is indistinguishable
// from a dead peer.
func (s *Server) crashMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		isSimRecover := r.Method == http.MethodPost && r.URL.Path == "/sim-recover"
		if s.node.IsCrashed() && !isSimRecover {
			dropConnection(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func dropConnection(w http.ResponseWriter) {
	hj, ok := w.(http.Hijacker)
	if !ok {
		return
	}
	conn, _, err := hj.Hijack()
	if err != nil {
		return
	}
	conn.Close()
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleNodeInfo(w http.ResponseWriter, r *http.Request) {
	info := struct {
		NodeHash  string   `json:"node_hash"`
		Successor string   `json:"successor"`
		Others    []string `json:"others"`
	}{
		NodeHash:  strconv.Itoa(s.node.ID()),
		Successor: s.node.Successor(),
		Others:    nonEmpty(s.node.FingerTable()),
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleGetPredecessor(w http.ResponseWriter, r *http.Request) {
	pred := s.node.Predecessor()
	if pred == "" {
		http.NotFound(w, r)
		return
	}
	writeText(w, http.StatusOK, pred)
}

func (s *Server) handleSuccessorList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.node.SuccessorList())
}

func (s *Server) handleFindSuccessor(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		http.Error(w, "bad id", http.StatusBadRequest)
		return
	}
	ctx := telemetry.ExtractHTTP(r.Context(), r)
	addr, err := s.node.FindSuccessor(ctx, id)
	if err != nil {
		s.log.Debug("find_successor failed", logger.F("id", id), logger.F("err", err))
		http.NotFound(w, r)
		return
	}
	writeText(w, http.StatusOK, addr)
}

func (s *Server) handleGetValue(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	value, ok := s.node.LocalGet(key)
	if !ok {
		http.NotFound(w, r)
		return
	}
	writeText(w, http.StatusOK, value)
}

func (s *Server) handlePutValue(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	body, err := io.ReadAll(r.Body)
	if err != nil || len(body) == 0 {
		http.Error(w, "empty or unreadable body", http.StatusBadRequest)
		return
	}
	s.node.LocalSet(key, string(body))
	w.WriteHeader(http.StatusOK)
}

// handleGetStorage is the client-facing routed read: it hashes key,
// resolves the owner via find_successor, and either answers locally
// or forwards to the owner (spec.md §6).
func (s *Server) handleGetStorage(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	owner, err := s.resolveOwner(r.Context(), key)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if owner == s.node.Address() {
		value, ok := s.node.LocalGet(key)
		if !ok {
			http.NotFound(w, r)
			return
		}
		writeText(w, http.StatusOK, value)
		return
	}

	value, err := s.client.GetValue(owner, key)
	switch {
	case errors.Is(err, ring.ErrNotFound):
		http.NotFound(w, r)
	case err != nil:
		http.Error(w, fmt.Sprintf("transport error reaching owner: %v", err), http.StatusInternalServerError)
	default:
		writeText(w, http.StatusOK, value)
	}
}

func (s *Server) handlePutStorage(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	body, err := io.ReadAll(r.Body)
	if err != nil || len(body) == 0 {
		http.Error(w, "empty or unreadable body", http.StatusBadRequest)
		return
	}

	owner, err := s.resolveOwner(r.Context(), key)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if owner == s.node.Address() {
		s.node.LocalSet(key, string(body))
		w.WriteHeader(http.StatusOK)
		return
	}

	if err := s.client.SetValue(owner, key, string(body)); err != nil {
		http.Error(w, fmt.Sprintf("transport error reaching owner: %v", err), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// resolveOwner hashes key into the ring and asks find_successor for
// its owner. Callers map a non-nil error to their own status: PUT
// /storage/{key} treats it as a 400 routing failure per spec.md §6,
// while GET /storage/{key} has no such case in its row and maps it to
// the 500 transport-error class instead (spec.md §7).
func (s *Server) resolveOwner(ctx context.Context, key string) (addr string, err error) {
	keyID := ringid.Hash(key, s.node.M())
	owner, err := s.node.FindSuccessor(ctx, keyID)
	if err != nil {
		return "", fmt.Errorf("routing failed: %w", err)
	}
	return owner, nil
}

func (s *Server) handleNetwork(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, nonEmpty(s.node.FingerTable()))
}

func (s *Server) handleNotify(w http.ResponseWriter, r *http.Request) {
	candidate, err := readNonEmptyBody(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.node.Notify(candidate)
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handlePutSuccessor(w http.ResponseWriter, r *http.Request) {
	addr, err := readNonEmptyBody(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.node.SetSuccessor(addr)
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handlePutPredecessor(w http.ResponseWriter, r *http.Request) {
	addr, err := readNonEmptyBody(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.node.SetPredecessor(addr)
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleFixFingers(w http.ResponseWriter, r *http.Request) {
	s.node.FixFinger()
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	nprime := r.URL.Query().Get("nprime")
	if nprime == "" {
		http.Error(w, "missing nprime", http.StatusBadRequest)
		return
	}
	if err := s.node.Join(nprime); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleLeave(w http.ResponseWriter, r *http.Request) {
	_ = s.node.Leave()
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleSimCrash(w http.ResponseWriter, r *http.Request) {
	s.node.SimCrash()
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleSimRecover(w http.ResponseWriter, r *http.Request) {
	s.node.SimRecover()
	w.WriteHeader(http.StatusOK)
}

func readNonEmptyBody(r *http.Request) (string, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return "", fmt.Errorf("unreadable body: %w", err)
	}
	if len(body) == 0 {
		return "", errors.New("empty body")
	}
	return string(body), nil
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func nonEmpty(addrs []string) []string {
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		if a != "" {
			out = append(out, a)
		}
	}
	return out
}

