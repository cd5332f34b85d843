package redis

import (
	"net"
	"strconv"
	"time"
)

const (
	DefaultHost = "localhost"
	DefaultPort = 6379
)

// Options controls how the Redis cache store connects to the server.
type Options struct {
	Addr         string
	Password     string
	DB           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
}

// HostPort joins host and port into an address, substituting DefaultHost and
// DefaultPort for empty or non-positive values.
func HostPort(host string, port int) string {
	if host == "" {
		host = DefaultHost
	}
	if port <= 0 {
		port = DefaultPort
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

func (o Options) withDefaults() Options {
	if o.Addr == "" {
		o.Addr = HostPort("", 0)
	}
	if o.DialTimeout <= 0 {
		o.DialTimeout = 5 * time.Second
	}
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = 2 * time.Second
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 2 * time.Second
	}
	if o.DB < 0 {
		o.DB = 0
	}
	if o.PoolSize <= 0 {
		o.PoolSize = 8
	}
	return o
}
