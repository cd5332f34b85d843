package redis

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/adeilh/minutes/cache"
)

var ErrClosed = errors.New("redis: store closed")

// Store implements cache.SetStore using the Redis RESP protocol.
type Store struct {
	opts   Options
	dialFn dialFunc
	pool   chan *clientConn

	mu     sync.RWMutex
	closed bool
}

type dialFunc func(context.Context, Options) (net.Conn, error)

// NewStore builds a Redis-backed cache store. No connection is opened until
// the first command; use Ping to verify reachability.
func NewStore(opts Options) *Store {
	cfg := opts.withDefaults()
	return &Store{opts: cfg, dialFn: defaultDial, pool: make(chan *clientConn, cfg.PoolSize)}
}

// WithDial allows overriding the dialer (useful for tests/mocks).
func (s *Store) WithDial(fn dialFunc) {
	if fn != nil {
		s.dialFn = fn
	}
}

// Addr reports the server address the store dials.
func (s *Store) Addr() string { return s.opts.Addr }

func (s *Store) Ping(ctx context.Context) error {
	resp, err := s.do(ctx, "PING")
	if err != nil {
		return err
	}
	if msg, ok := resp.(string); ok && msg == "PONG" {
		return nil
	}
	return fmt.Errorf("redis: unexpected PING response %v", resp)
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	resp, err := s.do(ctx, "GET", key)
	if err != nil {
		return nil, err
	}
	switch v := resp.(type) {
	case nil:
		return nil, cache.ErrNotFound
	case []byte:
		return append([]byte(nil), v...), nil
	default:
		return nil, fmt.Errorf("redis: unexpected GET response %T", resp)
	}
}

func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	args := []string{"SET", key, string(value)}
	if ttl > 0 {
		args = append(args, "PX", millis(ttl))
	}
	resp, err := s.do(ctx, args...)
	if err != nil {
		return err
	}
	if !isOK(resp) {
		return fmt.Errorf("redis: SET failed: %v", resp)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	resp, err := s.do(ctx, "DEL", key)
	if err != nil {
		return err
	}
	switch v := resp.(type) {
	case int64:
		if v == 0 {
			return cache.ErrNotFound
		}
		return nil
	default:
		return fmt.Errorf("redis: DEL failed: %v", resp)
	}
}

// SAdd adds members to the set at key. With ttl > 0 the SADD and PEXPIRE
// are pipelined on one connection.
func (s *Store) SAdd(ctx context.Context, key string, ttl time.Duration, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	args := append([]string{"SADD", key}, members...)
	if ttl <= 0 {
		_, err := s.do(ctx, args...)
		return err
	}
	p, err := s.Pipeline(ctx)
	if err != nil {
		return err
	}
	defer p.Close()
	p.Queue(args...)
	p.Queue("PEXPIRE", key, millis(ttl))
	responses, err := p.Exec(ctx)
	if err != nil {
		return err
	}
	for _, resp := range responses {
		if _, ok := resp.(int64); !ok {
			return fmt.Errorf("redis: SADD failed: %v", resp)
		}
	}
	return nil
}

func (s *Store) SMembers(ctx context.Context, key string) ([]string, error) {
	resp, err := s.do(ctx, "SMEMBERS", key)
	if err != nil {
		return nil, err
	}
	return stringsReply(resp)
}

// Close drains the connection pool. Commands issued afterwards fail with ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	for {
		select {
		case conn := <-s.pool:
			_ = conn.Close()
		default:
			return nil
		}
	}
}

// do runs a single command and returns its decoded reply.
func (s *Store) do(ctx context.Context, parts ...string) (any, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	var resp any
	err := s.withConn(ctx, func(conn *clientConn) error {
		if err := s.send(conn, parts...); err != nil {
			return err
		}
		r, err := s.read(conn)
		if err != nil {
			return err
		}
		resp = r
		return nil
	})
	return resp, err
}

func (s *Store) withConn(ctx context.Context, fn func(*clientConn) error) error {
	conn, err := s.acquireConn(ctx)
	if err != nil {
		return err
	}
	broken := false
	defer func() {
		s.releaseConn(conn, broken)
	}()
	if err := fn(conn); err != nil {
		var netErr net.Error
		if errors.Is(err, net.ErrClosed) || errors.Is(err, io.EOF) || errors.As(err, &netErr) {
			broken = true
		}
		return err
	}
	return nil
}

func (s *Store) dial(ctx context.Context) (net.Conn, error) {
	if s.dialFn == nil {
		s.dialFn = defaultDial
	}
	return s.dialFn(ctx, s.opts)
}

func (s *Store) handshake(conn net.Conn, reader *bufio.Reader) error {
	if s.opts.Password != "" {
		if err := s.sendRaw(conn, "AUTH", s.opts.Password); err != nil {
			return err
		}
		if err := s.expectOK(reader); err != nil {
			return err
		}
	}
	if s.opts.DB > 0 {
		if err := s.sendRaw(conn, "SELECT", strconv.Itoa(s.opts.DB)); err != nil {
			return err
		}
		if err := s.expectOK(reader); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) expectOK(reader *bufio.Reader) error {
	resp, err := decodeRESP(reader)
	if err != nil {
		return err
	}
	if isOK(resp) {
		return nil
	}
	return fmt.Errorf("redis: expected OK, got %v", resp)
}

func (s *Store) send(conn *clientConn, parts ...string) error {
	if err := applyDeadline(conn.SetWriteDeadline, s.opts.WriteTimeout); err != nil {
		return err
	}
	_, err := conn.Write(buildCommand(parts...))
	return err
}

func (s *Store) read(conn *clientConn) (any, error) {
	if err := applyDeadline(conn.SetReadDeadline, s.opts.ReadTimeout); err != nil {
		return nil, err
	}
	return decodeRESP(conn.reader)
}

// Pipeline acquires a dedicated connection and allows batching commands before
// reading their responses, reducing round-trips under load.
func (s *Store) Pipeline(ctx context.Context) (*Pipeline, error) {
	conn, err := s.acquireConn(ctx)
	if err != nil {
		return nil, err
	}
	return &Pipeline{store: s, conn: conn}, nil
}

type Pipeline struct {
	store   *Store
	conn    *clientConn
	cmds    [][]string
	closed  bool
	closing sync.Mutex
}

// Queue appends a command to the pipeline.
func (p *Pipeline) Queue(parts ...string) {
	if p.closed {
		return
	}
	p.cmds = append(p.cmds, append([]string(nil), parts...))
}

// Exec sends all queued commands and reads the replies in order.
func (p *Pipeline) Exec(ctx context.Context) ([]any, error) {
	if p.closed {
		return nil, errors.New("redis pipeline closed")
	}
	if len(p.cmds) == 0 {
		return nil, nil
	}
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	var broken bool
	defer func() {
		p.closeInternal(broken)
	}()
	for _, cmd := range p.cmds {
		if err := p.store.send(p.conn, cmd...); err != nil {
			broken = true
			return nil, err
		}
	}
	responses := make([]any, 0, len(p.cmds))
	for range p.cmds {
		resp, err := p.store.read(p.conn)
		if err != nil {
			broken = true
			return nil, err
		}
		responses = append(responses, resp)
	}
	return responses, nil
}

// Close releases the underlying connection without executing queued commands.
func (p *Pipeline) Close() {
	p.closeInternal(false)
}

func (p *Pipeline) closeInternal(broken bool) {
	p.closing.Lock()
	defer p.closing.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	p.store.releaseConn(p.conn, broken)
}

type clientConn struct {
	net.Conn
	reader *bufio.Reader
}

func (s *Store) acquireConn(ctx context.Context) (*clientConn, error) {
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return nil, ErrClosed
	}
	select {
	case conn := <-s.pool:
		return conn, nil
	default:
		return s.newConn(ctx)
	}
}

func (s *Store) releaseConn(conn *clientConn, broken bool) {
	if conn == nil {
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if broken || s.closed {
		_ = conn.Close()
		return
	}
	select {
	case s.pool <- conn:
	default:
		_ = conn.Close()
	}
}

func (s *Store) newConn(ctx context.Context) (*clientConn, error) {
	nc, err := s.dial(ctx)
	if err != nil {
		return nil, err
	}
	reader := bufio.NewReader(nc)
	if err := s.handshake(nc, reader); err != nil {
		_ = nc.Close()
		return nil, err
	}
	return &clientConn{Conn: nc, reader: reader}, nil
}

// sendRaw is used during handshake before the buffered reader is available.
func (s *Store) sendRaw(conn net.Conn, parts ...string) error {
	if err := applyDeadline(conn.SetWriteDeadline, s.opts.WriteTimeout); err != nil {
		return err
	}
	_, err := conn.Write(buildCommand(parts...))
	return err
}

func defaultDial(ctx context.Context, opts Options) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: opts.DialTimeout}
	return dialer.DialContext(ctx, "tcp", opts.Addr)
}

func millis(d time.Duration) string {
	ms := d.Milliseconds()
	if ms == 0 {
		ms = 1
	}
	return strconv.FormatInt(ms, 10)
}

func applyDeadline(setter func(time.Time) error, timeout time.Duration) error {
	if timeout <= 0 {
		return nil
	}
	return setter(time.Now().Add(timeout))
}

func ctxErr(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
