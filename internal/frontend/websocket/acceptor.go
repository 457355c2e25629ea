package websocket

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/cory-johannsen/trivia/internal/config"
)

// Acceptor listens for websocket connections and runs one read loop per
// client. It implements the server.Service interface.
type Acceptor struct {
	cfg     config.ServerConfig
	hub     *Hub
	handler *CommandHandler
	logger  *zap.Logger

	httpServer *http.Server
	upgrader   websocket.Upgrader
}

// NewAcceptor creates a websocket acceptor with the given configuration.
//
// Precondition: cfg must have a valid port; hub, handler, and logger
// must be non-nil.
// Postcondition: Returns an Acceptor ready to be started with Start.
func NewAcceptor(cfg config.ServerConfig, hub *Hub, handler *CommandHandler, logger *zap.Logger) *Acceptor {
	a := &Acceptor{
		cfg:     cfg,
		hub:     hub,
		handler: handler,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", a.serveWS)
	a.httpServer = &http.Server{
		Addr:    cfg.Addr(),
		Handler: mux,
	}
	return a
}

// Start runs the HTTP listener and blocks until Stop is called.
//
// Precondition: The acceptor must not already be running.
// Postcondition: Returns nil after a clean shutdown, or the listener
// error.
func (a *Acceptor) Start() error {
	a.logger.Info("websocket acceptor listening",
		zap.String("addr", a.cfg.Addr()),
	)
	if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listening on %s: %w", a.cfg.Addr(), err)
	}
	return nil
}

// Stop gracefully shuts the listener down, closing client connections.
func (a *Acceptor) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.httpServer.Shutdown(ctx); err != nil {
		a.logger.Warn("acceptor shutdown", zap.Error(err))
	}
}

// serveWS upgrades one HTTP request, allocates an opaque handle for the
// connection, and runs its read loop until the client disconnects.
func (a *Acceptor) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	handle := uuid.NewString()
	client := newClient(handle, conn, a.cfg.SendBuffer, a.logger)
	a.hub.AddClient(client)

	a.logger.Info("client connected",
		zap.String("handle", handle),
		zap.String("remote", r.RemoteAddr),
	)

	go client.writePump(a.cfg.WriteTimeout)
	client.readPump(a.handler.Dispatch)

	a.handler.Disconnect(handle)
	a.hub.RemoveClient(handle)

	a.logger.Info("client disconnected",
		zap.String("handle", handle),
	)
}
