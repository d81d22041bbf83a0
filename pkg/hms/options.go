package hms

import (
	"time"

	"go.uber.org/zap"
)

// Options configures a metastore connection.
type Options struct {
	// Endpoint
	Host string
	Port int

	// Identity sent in the set_ugi handshake. The handshake is skipped
	// entirely when DisableUgi is set, matching servers that run SASL.
	Username   string
	Groups     []string
	DisableUgi bool

	// Timeouts
	DialTimeout   time.Duration // default 30 seconds
	SocketTimeout time.Duration // default 60 seconds, metadata calls can be slow

	// Transport
	BufferSize int // default 4096

	// Logging
	Logger *zap.Logger
}

// SetDefaults sets default values for options
func (o *Options) SetDefaults() *Options {
	if o.Host == "" {
		o.Host = "127.0.0.1"
	}

	if o.Port == 0 {
		o.Port = 9083
	}

	if o.Username == "" {
		o.Username = "anonymous"
	}

	if o.DialTimeout == 0 {
		o.DialTimeout = 30 * time.Second
	}

	if o.SocketTimeout == 0 {
		o.SocketTimeout = 60 * time.Second
	}

	if o.BufferSize == 0 {
		o.BufferSize = 4096
	}

	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}

	return o
}
