package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"

	"sift/internal/logging"
)

// Controller is the agent surface exposed over the socket.
type Controller interface {
	ControlStatus(ctx context.Context) StatusResponse
	ControlSync(ctx context.Context) (SyncResponse, error)
	ControlSignals(ctx context.Context) (SignalsResponse, error)
}

// Server exposes agent control via JSON-RPC over a Unix domain socket.
type Server struct {
	path       string
	controller Controller
	logger     *slog.Logger
	listener   net.Listener
	rpcServer  *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, controller Controller, logger *slog.Logger) (*Server, error) {
	if controller == nil {
		return nil, errors.New("ipc server requires a controller")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{controller: controller, logger: logger, ctx: ctx}
	if err := rpcServer.RegisterName("Sift", srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:       path,
		controller: controller,
		logger:     logger,
		listener:   listener,
		rpcServer:  rpcServer,
		ctx:        serverCtx,
		cancel:     cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				s.logger.Warn("accept failed", logging.Error(err))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err))
	}
}

type service struct {
	controller Controller
	logger     *slog.Logger
	ctx        context.Context
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	*resp = s.controller.ControlStatus(s.ctx)
	return nil
}

func (s *service) Sync(_ SyncRequest, resp *SyncResponse) error {
	s.logger.Debug("sync requested over ipc")
	result, err := s.controller.ControlSync(s.ctx)
	if err != nil {
		return err
	}
	*resp = result
	return nil
}

func (s *service) Signals(_ SignalsRequest, resp *SignalsResponse) error {
	result, err := s.controller.ControlSignals(s.ctx)
	if err != nil {
		return err
	}
	*resp = result
	return nil
}
