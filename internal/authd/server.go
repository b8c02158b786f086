// Package authd hosts the passkey registration and authentication endpoints.
package authd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/manimate/passkey/internal/api"
	"github.com/manimate/passkey/internal/assertion"
	"github.com/manimate/passkey/internal/authn"
	"github.com/manimate/passkey/internal/identity/local"
	"github.com/manimate/passkey/internal/register"
	"github.com/manimate/passkey/internal/storage/sqlite"
)

// Server hosts the passkey HTTP service.
type Server struct {
	listener   net.Listener
	httpServer *http.Server
	store      *sqlite.Store
}

// New creates a configured server listening on the configured address.
func New(cfg Config) (*Server, error) {
	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}

	accounts, err := local.New(store.DB(), local.Config{
		Issuer:     cfg.SessionIssuer,
		SigningKey: []byte(cfg.SessionKey),
		SessionTTL: cfg.SessionTTL,
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("configure identity service: %w", err)
	}

	registerService := register.New(accounts, store)
	authnService := authn.New(store, accounts, assertion.RelyingParty{
		ID:      cfg.RPID,
		Origins: cfg.RPOrigins,
	})

	mux := http.NewServeMux()
	api.RegisterRoutes(mux, api.NewHandlers(registerService, authnService))

	listener, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("listen on %s: %w", cfg.Addr, err)
	}

	return &Server{
		listener:   listener,
		httpServer: &http.Server{Handler: mux},
		store:      store,
	}, nil
}

// Addr returns the listener address.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Run creates and serves a server until the context ends.
func Run(ctx context.Context, cfg Config) error {
	server, err := New(cfg)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// Serve starts the server and blocks until it stops or the context ends.
func (s *Server) Serve(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.closeStore()

	log.Printf("passkey auth server listening at %v", s.listener.Addr())
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.httpServer.Serve(s.listener)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = s.httpServer.Shutdown(shutdownCtx)
		err := <-serveErr
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve HTTP: %w", err)
	}
}

func (s *Server) closeStore() {
	if s == nil || s.store == nil {
		return
	}
	if err := s.store.Close(); err != nil {
		log.Printf("close store: %v", err)
	}
}
