package sync

import (
	"bufio"
	"errors"
	"net"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Server is the TCP side of the event feed: clients connect and receive
// newline-delimited JSON events. Incoming data is consumed and ignored.
type Server struct {
	Addr string
	Hub  *Hub
	Log  zerolog.Logger

	ln      atomic.Pointer[net.TCPListener]
	closing atomic.Bool
}

func NewServer(addr string, hub *Hub, log zerolog.Logger) *Server {
	return &Server{Addr: addr, Hub: hub, Log: log}
}

func (s *Server) Run() error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	tcpLn, _ := ln.(*net.TCPListener)
	s.ln.Store(tcpLn)
	s.Log.Info().Str("addr", s.Addr).Msg("tcp feed listening")

	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.closing.Load() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			continue
		}

		s.Hub.Add(conn)
		s.Hub.Welcome(conn)
		s.Log.Debug().Stringer("remote", conn.RemoteAddr()).Msg("feed client connected")

		go func(c net.Conn) {
			defer func() {
				s.Hub.Remove(c)
				s.Log.Debug().Stringer("remote", c.RemoteAddr()).Msg("feed client disconnected")
			}()

			sc := bufio.NewScanner(c)
			for sc.Scan() {
				// ignore incoming lines
			}
		}(conn)
	}
}

func (s *Server) Close() error {
	s.closing.Store(true)
	if ln := s.ln.Load(); ln != nil {
		return ln.Close()
	}
	return nil
}
