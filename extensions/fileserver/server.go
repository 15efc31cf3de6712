package fileserver

import (
	"net"
	"net/http"
	"net/netip"
	"os"
	"sync"

	E "github.com/sagernet/sing/common/exceptions"
	"github.com/sirupsen/logrus"
)

type Options struct {
	Bind    netip.AddrPort
	Handler http.Handler
}

// Server serves a fixed handler on a TCP listener. Start is non-blocking,
// Close releases the listener exactly once.
type Server struct {
	bind    netip.AddrPort
	handler http.Handler

	access   sync.Mutex
	listener *net.TCPListener
	server   *http.Server
}

func New(options Options) (*Server, error) {
	if !options.Bind.IsValid() {
		return nil, E.New("invalid bind address")
	}
	if options.Handler == nil {
		return nil, E.New("missing handler")
	}
	return &Server{bind: options.Bind, handler: options.Handler}, nil
}

// Static returns the file-serving engine over root. File and directory
// semantics are the engine's defaults, nothing is intercepted.
func Static(root string) (http.Handler, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, E.Cause(err, "open root directory")
	}
	if !info.IsDir() {
		return nil, E.New(root, " is not a directory")
	}
	return http.FileServer(http.Dir(root)), nil
}

func (s *Server) Start() error {
	s.access.Lock()
	defer s.access.Unlock()
	if s.listener != nil {
		return E.New("server already started")
	}
	listener, err := net.ListenTCP("tcp", net.TCPAddrFromAddrPort(s.bind))
	if err != nil {
		return err
	}
	s.listener = listener
	s.server = &http.Server{Handler: requestLogger(s.handler)}
	go func(server *http.Server) {
		err := server.Serve(listener)
		if err != nil && err != http.ErrServerClosed {
			logrus.Error(err)
		}
	}(s.server)
	return nil
}

// Addr returns the bound address, or nil before Start. Useful when the
// configured port is 0.
func (s *Server) Addr() net.Addr {
	s.access.Lock()
	defer s.access.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) Close() error {
	s.access.Lock()
	defer s.access.Unlock()
	if s.server == nil {
		return nil
	}
	err := s.server.Close()
	s.server = nil
	s.listener = nil
	return err
}
