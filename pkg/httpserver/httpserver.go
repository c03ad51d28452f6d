// Package httpserver serves the HTTP functions outside of Cloud Functions.
package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/docshistory/histories-backend/internal/changetracker"
	"github.com/docshistory/histories-backend/internal/functions/previewhistorydiff"
	"github.com/docshistory/histories-backend/internal/logging"
	"go.opencensus.io/plugin/ochttp"
	"go.uber.org/zap"
)

// Config holds server config
type Config struct {
	Port string `env:"PORT,default=8080"`
}

// Server provides a gracefully-stoppable http server implementation. It is safe
// for concurrent use in goroutines.
type Server struct {
	ip       string
	port     string
	listener net.Listener
}

// NewHandler creates the HTTP handler serving the history functions
func NewHandler(ctx context.Context, tracker *changetracker.Tracker) http.Handler {
	logger := logging.FromContext(ctx).Named("httpserver")

	mux := http.NewServeMux()
	mux.Handle("/PreviewHistoryDiff", withLogger(logger, previewhistorydiff.Handler(tracker)))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func withLogger(logger *zap.SugaredLogger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.WithLogger(r.Context(), logger.With("path", r.URL.Path))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// NewServer creates the HTTP server
func NewServer(ctx context.Context, config *Config) (*Server, error) {

	// Create the net listener first, so the connection ready when we return. This
	// guarantees that it can accept requests.
	addr := ":" + config.Port
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to create listener on %s: %w", addr, err)
	}

	return &Server{
		ip:       listener.Addr().(*net.TCPAddr).IP.String(),
		port:     strconv.Itoa(listener.Addr().(*net.TCPAddr).Port),
		listener: listener,
	}, nil
}

// ServeHTTPHandler serves with the http handler
func (s *Server) ServeHTTPHandler(ctx context.Context, handler http.Handler) error {
	return s.ServeHTTP(ctx, &http.Server{
		Handler: &ochttp.Handler{
			Handler: handler,
		},
	})
}

// Port returns the port the server listens on
func (s *Server) Port() string {
	return s.port
}

// ServeHTTP serves srv until ctx is done
func (s *Server) ServeHTTP(ctx context.Context, srv *http.Server) error {
	logger := logging.FromContext(ctx)

	// Spawn a goroutine that listens for context closure. When the context is
	// closed, the server is stopped.
	errCh := make(chan error, 1)
	go func() {
		<-ctx.Done()

		logger.Debugf("server.Serve: context closed")
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()

		logger.Debugf("server.Serve: shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			select {
			case errCh <- err:
			default:
			}
		}
	}()

	// Run the server. This will block until the provided context is closed.
	if err := srv.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to serve: %w", err)
	}

	logger.Debugf("server.Serve: serving stopped")

	// Return any errors that happened during shutdown.
	select {
	case err := <-errCh:
		return fmt.Errorf("failed to shutdown: %w", err)
	default:
		return nil
	}
}
