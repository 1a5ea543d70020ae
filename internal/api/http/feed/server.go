package feed

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/oshokin/gh-releases/internal/domain/release"
	"github.com/oshokin/gh-releases/internal/logger"
)

const (
	// PathPrefix is the URL prefix under which the feed directory is served.
	PathPrefix = "/gh_releases/"

	loopbackAddress   = "127.0.0.1:0"
	readHeaderTimeout = 10 * time.Second
)

// Server is a running loopback feed server.
type Server struct {
	// httpServer serves the feed directory.
	httpServer *http.Server
	// listener is the bound loopback socket.
	listener net.Listener
	// root is the served directory.
	root string
	// done is closed when the serving goroutine returns.
	done chan struct{}
	// stopOnce makes Shutdown idempotent.
	stopOnce sync.Once
	// ctx carries the scoped logger.
	ctx context.Context //nolint:containedctx // Used only for logging after Start returns.
}

// Start binds 127.0.0.1:0 and serves root. It returns once the listener is
// bound and accepting, so Port is valid immediately.
func Start(ctx context.Context, root string) (*Server, error) {
	ctx = logger.WithName(ctx, "feed")

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: feed directory: %w", release.ErrServerBind, err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", release.ErrServerBind, root)
	}

	lc := net.ListenConfig{}

	listener, err := lc.Listen(ctx, "tcp", loopbackAddress)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", release.ErrServerBind, err)
	}

	s := &Server{
		listener: listener,
		root:     root,
		done:     make(chan struct{}),
		ctx:      ctx,
	}

	//nolint:exhaustruct // Defaults are fine for the remaining fields.
	s.httpServer = &http.Server{
		Handler:           Handler(root),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	ready := make(chan struct{})

	go func() {
		defer close(s.done)

		close(ready)

		if serveErr := s.httpServer.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			logger.ErrorKV(ctx, "Feed server stopped unexpectedly", "error", serveErr)
		}
	}()

	<-ready

	logger.InfoKV(ctx, "Feed server listening", "address", listener.Addr().String(), "root", root)

	return s, nil
}

// Port returns the OS-assigned port.
func (s *Server) Port() int {
	addr, ok := s.listener.Addr().(*net.TCPAddr)
	if !ok {
		return 0
	}

	return addr.Port
}

// Root returns the served directory.
func (s *Server) Root() string {
	return s.root
}

// URL returns the loopback URL of a file relative to the served directory.
func (s *Server) URL(name string) string {
	return "http://" + net.JoinHostPort("127.0.0.1", strconv.Itoa(s.Port())) +
		path.Join(PathPrefix, strings.TrimPrefix(name, "/"))
}

// Shutdown stops accepting connections and waits for in-flight requests.
// Calling it more than once is safe.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error

	s.stopOnce.Do(func() {
		err = s.httpServer.Shutdown(ctx)

		select {
		case <-s.done:
		case <-ctx.Done():
			if err == nil {
				err = ctx.Err()
			}
		}

		logger.InfoKV(s.ctx, "Feed server stopped", "port", s.Port())
	})

	if err != nil {
		return fmt.Errorf("shutdown feed server: %w", err)
	}

	return nil
}

// Handler serves root under PathPrefix with static file semantics:
// GET and HEAD only, no directory listings, traversal-safe lookups.
func Handler(root string) http.Handler {
	files := http.StripPrefix(strings.TrimSuffix(PathPrefix, "/"), http.FileServer(noListingFS{http.Dir(root)}))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)

			return
		}

		if !strings.HasPrefix(r.URL.Path, PathPrefix) {
			http.NotFound(w, r)
			return
		}

		files.ServeHTTP(w, r)
	})
}

// noListingFS hides directories so the file server answers 404 instead of an index.
type noListingFS struct {
	fs http.FileSystem
}

// Open opens regular files only.
func (n noListingFS) Open(name string) (http.File, error) {
	f, err := n.fs.Open(name)
	if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	if info.IsDir() {
		_ = f.Close()
		return nil, os.ErrNotExist
	}

	return f, nil
}
