// Package server exposes the variantd operations over JSON-RPC: plain
// HTTP POST on /rpc for request/response methods, and websocket
// connections on /ws that additionally receive progress push
// notifications for their client id.
package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	cws "github.com/coder/websocket"
	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/jhttp"

	"github.com/variantdl/variantdl/internal/api"
	"github.com/variantdl/variantdl/internal/broadcast"
)

// Server hosts the RPC bridge and the subscription websocket endpoint.
type Server struct {
	log    *log.Logger
	svc    *api.Service
	bc     *broadcast.Broadcaster
	addr   string
	bridge jhttp.Bridge
	srv    *http.Server
	mu     sync.Mutex
}

// NewServer creates a Server listening on addr once started.
func NewServer(l *log.Logger, svc *api.Service, bc *broadcast.Broadcaster, addr string) *Server {
	s := &Server{
		log:  l,
		svc:  svc,
		bc:   bc,
		addr: addr,
	}
	s.bridge = jhttp.NewBridge(s.methods(), nil)
	return s
}

// Start serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/rpc", s.bridge)
	mux.HandleFunc("/ws", s.handleSubscribe)

	s.mu.Lock()
	s.srv = &http.Server{Addr: s.addr, Handler: mux}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			s.log.Printf("error shutting down server: %v", err)
		}
	}()

	s.log.Printf("rpc server listening on %s", s.addr)
	err := s.srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops the HTTP server and closes the RPC bridge.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	err := srv.Shutdown(ctx)
	if berr := s.bridge.Close(); berr != nil && err == nil {
		err = berr
	}
	return err
}

// handleSubscribe upgrades the connection to a websocket and runs a
// jrpc2 server over it, registered in the broadcaster under the
// client's channel. The connection receives download.progress push
// notifications for that client until it closes; registration is
// independent of any job lifecycle.
func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	clientID := r.URL.Query().Get("client_id")
	if clientID == "" {
		http.Error(w, "missing client_id", http.StatusBadRequest)
		return
	}
	conn, err := cws.Accept(w, r, nil)
	if err != nil {
		s.log.Printf("websocket accept failed: %v", err)
		return
	}

	ch := &wsChannel{conn: conn, ctx: r.Context()}
	rpcSrv := jrpc2.NewServer(s.methods(), &jrpc2.ServerOptions{AllowPush: true}).Start(ch)
	s.bc.Subscribe(clientID, rpcSrv)
	defer s.bc.Unsubscribe(clientID, rpcSrv)

	if err := rpcSrv.Wait(); err != nil {
		s.log.Printf("subscription for %s closed: %v", clientID, err)
	}
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.addr
}
