// Package listener accepts control commands over TCP and feeds them, one
// line at a time, into the scheduler's command queue.
package listener

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"

	logx "tellmewhen/pkg/logx"
)

const (
	DefaultMaxLine    = 4 << 10
	DefaultRatePerSec = 20
	DefaultIdle       = 30 * time.Second
)

var ErrNotListening = errors.New("listener: not listening")

type Option func(*Server)

// WithRate limits accepted commands across all connections. Throttled
// commands wait for a token; they are not dropped.
func WithRate(perSec, burst int) Option {
	return func(s *Server) {
		if perSec <= 0 {
			s.lim = rate.NewLimiter(rate.Inf, 0)
			return
		}
		s.lim = rate.NewLimiter(rate.Limit(perSec), max(1, burst))
	}
}

func WithMaxLine(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxLine = n
		}
	}
}

func WithIdleTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.idle = d
		}
	}
}

// Server reads newline-terminated UTF-8 commands from TCP clients.
type Server struct {
	addr  string
	queue chan<- string
	log   logx.Logger

	lim     *rate.Limiter
	maxLine int
	idle    time.Duration

	mu sync.Mutex
	ln net.Listener
	wg sync.WaitGroup
}

func New(addr string, queue chan<- string, log logx.Logger, opts ...Option) *Server {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Server{
		addr:    addr,
		queue:   queue,
		log:     log,
		lim:     rate.NewLimiter(rate.Limit(DefaultRatePerSec), DefaultRatePerSec),
		maxLine: DefaultMaxLine,
		idle:    DefaultIdle,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Listen binds the socket. It is separate from Serve so callers can report
// readiness only once the port is actually open.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()
	s.log.Info("listening for commands", logx.String("addr", ln.Addr().String()))
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Serve accepts connections until ctx is done. Listen must be called first.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	ln := s.ln
	s.mu.Unlock()
	if ln == nil {
		return ErrNotListening
	}

	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()
	defer s.wg.Wait()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				s.log.Warn("accept timeout", logx.Err(err))
				continue
			}
			return fmt.Errorf("accept: %w", err)
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handle(ctx, conn)
		}()
	}
}

func (s *Server) handle(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	remote := conn.RemoteAddr().String()
	log := s.log.With(logx.String("remote", remote))

	// maxLine bounds the command itself; the buffer also holds its newline.
	sc := bufio.NewScanner(conn)
	sc.Buffer(make([]byte, 0, min(512, s.maxLine+1)), s.maxLine+1)
	for {
		_ = conn.SetReadDeadline(time.Now().Add(s.idle))
		if !sc.Scan() {
			break
		}
		line := strings.TrimSuffix(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if !utf8.ValidString(line) {
			log.Warn("dropping command: invalid UTF-8")
			continue
		}
		if err := s.lim.Wait(ctx); err != nil {
			return
		}
		select {
		case s.queue <- line:
		case <-ctx.Done():
			return
		}
	}
	if err := sc.Err(); err != nil && ctx.Err() == nil {
		if errors.Is(err, bufio.ErrTooLong) {
			log.Warn("dropping connection: command too long", logx.Int("max", s.maxLine))
			return
		}
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			log.Debug("connection idle; closing")
			return
		}
		log.Debug("connection read error", logx.Err(err))
	}
}

// Send delivers one command to a running server.
func Send(ctx context.Context, addr, cmd string) error {
	if strings.ContainsAny(cmd, "\r\n") {
		return errors.New("command must be a single line")
	}
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("connect %s: %w", addr, err)
	}
	defer conn.Close()
	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(dl)
	}
	if _, err := conn.Write([]byte(cmd + "\n")); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	return nil
}
