// Package transport implements the UDP request loop: one datagram in, one
// datagram out, each request handled on its own goroutine.
package transport

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/digestry/digestry/internal/common"
	"github.com/digestry/digestry/internal/logging"
	"github.com/digestry/digestry/internal/protocol"
	"github.com/digestry/digestry/internal/server/services"
)

// maxDatagramSize bounds a request datagram. Requests are a handful of
// short headers; anything larger is already garbage.
const maxDatagramSize = 8192

// Server reads request datagrams from a UDP socket, runs them through
// authentication, authorization and the digest service, and writes one
// response datagram per readable request.
type Server struct {
	log    logging.Logger
	auth   *services.AuthService
	digest *services.DigestService

	addr string
	conn *net.UDPConn
	wg   sync.WaitGroup
}

func NewServer(addr string, auth *services.AuthService, digest *services.DigestService, log logging.Logger) *Server {
	return &Server{
		log:    log.With("module", "transport"),
		auth:   auth,
		digest: digest,
		addr:   addr,
	}
}

// Listen binds the UDP socket. Callers that need the bound address (for
// instance when listening on port 0) read it from LocalAddr afterwards.
func (s *Server) Listen() error {
	udpAddr, err := net.ResolveUDPAddr("udp", s.addr)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", s.addr, err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.addr, err)
	}
	s.conn = conn
	return nil
}

// LocalAddr returns the bound address. Valid only after Listen.
func (s *Server) LocalAddr() net.Addr {
	return s.conn.LocalAddr()
}

// Serve reads datagrams until ctx is canceled, then waits for in-flight
// handlers to finish. Each datagram is handled on its own goroutine, so a
// slow backend never blocks the read loop.
func (s *Server) Serve(ctx context.Context) error {
	s.log.Info(ctx, "listening", "addr", s.conn.LocalAddr().String())

	go func() {
		<-ctx.Done()
		s.conn.Close()
	}()

	buf := make([]byte, maxDatagramSize)
	for {
		n, remote, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				s.wg.Wait()
				s.log.Info(ctx, "listener stopped")
				return nil
			}
			return fmt.Errorf("reading datagram: %w", err)
		}

		data := make([]byte, n)
		copy(data, buf[:n])

		s.wg.Add(1)
		go func(data []byte, remote *net.UDPAddr) {
			defer s.wg.Done()
			s.handle(ctx, data, remote)
		}(data, remote)
	}
}

// Run binds the socket and serves until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve(ctx)
}

func (s *Server) handle(ctx context.Context, data []byte, remote *net.UDPAddr) {
	start := time.Now()

	req, err := protocol.ParseRequest(data)
	if err != nil {
		thread, ok := protocol.PeekThread(data)
		if !ok {
			s.log.Warn(ctx, "dropping undecodable datagram", "remote", remote.String(), "error", err)
			return
		}
		s.log.Warn(ctx, "malformed request", "remote", remote.String(), "error", err)
		s.send(ctx, protocol.NewResponse(thread, protocol.CodeBadRequest), remote)
		return
	}

	resp := s.dispatch(ctx, req, remote)
	s.send(ctx, resp, remote)

	s.log.Debug(ctx, "request handled",
		"op", req.Op, "code", resp.Code, "remote", remote.String(),
		"elapsed", time.Since(start))
}

func (s *Server) dispatch(ctx context.Context, req *protocol.Request, remote *net.UDPAddr) *protocol.Response {
	if !protocol.CompatibleVersion(req.Version) {
		return protocol.NewResponse(req.Thread, protocol.CodeUnsupportedVersion)
	}
	if !protocol.KnownOp(req.Op) {
		return protocol.NewResponse(req.Thread, protocol.CodeNotImplemented)
	}

	user, err := s.auth.Authenticate(ctx, req)
	if err != nil {
		s.log.Warn(ctx, "authentication failed",
			"user", req.User, "op", req.Op, "remote", remote.String(), "error", err)
		return protocol.NewResponse(req.Thread, protocol.CodeUnauthorized)
	}
	if err := s.auth.Authorize(user, req.Op); err != nil {
		s.log.Warn(ctx, "operation denied",
			"user", user, "op", req.Op, "remote", remote.String())
		return protocol.NewResponse(req.Thread, protocol.CodeForbidden)
	}

	resp, err := s.execute(ctx, req)
	if err != nil {
		if errors.Is(err, common.ErrBadRequest) {
			return protocol.NewResponse(req.Thread, protocol.CodeBadRequest)
		}
		s.log.Error(ctx, "operation failed",
			"user", user, "op", req.Op, "error", err)
		return protocol.NewResponse(req.Thread, protocol.CodeInternalError)
	}
	return resp
}

func (s *Server) execute(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	resp := protocol.NewResponse(req.Thread, protocol.CodeOK)

	switch req.Op {
	case protocol.OpPing:
		// The status line is the whole answer.

	case protocol.OpPong:
		// Pong answers as if every digest had been reported the maximum
		// number of times and whitelisted never.
		resp.Set(protocol.HeaderCount, strconv.FormatInt(math.MaxInt64, 10))
		resp.Set(protocol.HeaderWLCount, "0")

	case protocol.OpCheck:
		rec, err := s.digest.Check(ctx, req.Digest)
		if err != nil {
			return nil, err
		}
		resp.Set(protocol.HeaderCount, strconv.FormatInt(rec.ReportCount, 10))
		resp.Set(protocol.HeaderWLCount, strconv.FormatInt(rec.WhitelistCount, 10))

	case protocol.OpReport:
		if _, err := s.digest.Report(ctx, req.Digest); err != nil {
			return nil, err
		}

	case protocol.OpWhitelist:
		if _, err := s.digest.Whitelist(ctx, req.Digest); err != nil {
			return nil, err
		}

	case protocol.OpInfo:
		rec, err := s.digest.Info(ctx, req.Digest)
		if err != nil {
			return nil, err
		}
		resp.Set(protocol.HeaderCount, strconv.FormatInt(rec.ReportCount, 10))
		resp.Set(protocol.HeaderEntered, unixOrUnset(rec.ReportEntered))
		resp.Set(protocol.HeaderUpdated, unixOrUnset(rec.ReportUpdated))
		resp.Set(protocol.HeaderWLCount, strconv.FormatInt(rec.WhitelistCount, 10))
		resp.Set(protocol.HeaderWLEntered, unixOrUnset(rec.WhitelistEntered))
		resp.Set(protocol.HeaderWLUpdated, unixOrUnset(rec.WhitelistUpdated))
	}

	return resp, nil
}

func (s *Server) send(ctx context.Context, resp *protocol.Response, remote *net.UDPAddr) {
	if _, err := s.conn.WriteToUDP(resp.Marshal(), remote); err != nil {
		s.log.Error(ctx, "sending response", "remote", remote.String(), "error", err)
	}
}

// unixOrUnset renders a timestamp as unix seconds, or -1 for the zero
// time, which marks a counter that has never been touched.
func unixOrUnset(t time.Time) string {
	if t.IsZero() {
		return "-1"
	}
	return strconv.FormatInt(t.Unix(), 10)
}
