package satellite

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/fernwood-iot/satellite/internal/wyoming"
)

// Listener accepts incoming server connections and enforces single-owner
// server binding (spec.md §4.8). Each connection is served by a fresh
// handler identified by a per-Listener counter (1, 2, 3, ...), standing in
// for the original's id(self) with something that survives Go's lack of
// object identity as a comparable id.
type Listener struct {
	base   *Base
	logger *log.Logger
	nextID atomic.Int64
}

// NewListener builds a Listener bound to base.
func NewListener(base *Base, logger *log.Logger) *Listener {
	return &Listener{base: base, logger: logger}
}

// Serve accepts connections on uri ("tcp://host:port" or
// "unix:///path/to.sock") until ctx is cancelled.
func (l *Listener) Serve(ctx context.Context, uri string) error {
	network, address, err := splitListenURI(uri)
	if err != nil {
		return err
	}

	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, network, address)
	if err != nil {
		return fmt.Errorf("satellite: listen %s: %w", uri, err)
	}
	defer ln.Close()

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("satellite: accept on %s: %w", uri, err)
		}
		id := strconv.FormatInt(l.nextID.Add(1), 10)
		go l.handleConn(ctx, id, conn)
	}
}

func splitListenURI(uri string) (network, address string, err error) {
	switch {
	case strings.HasPrefix(uri, "tcp://"):
		return "tcp", strings.TrimPrefix(uri, "tcp://"), nil
	case strings.HasPrefix(uri, "unix://"):
		return "unix", strings.TrimPrefix(uri, "unix://"), nil
	default:
		return "", "", fmt.Errorf("satellite: unsupported server uri scheme %q", uri)
	}
}

// connWriter adapts a net.Conn to Base's eventWriter via a wyoming.Writer.
// Writes are serialized, since the ping loop, the mic task and the
// connection handler all write to the bound server.
type connWriter struct {
	mu sync.Mutex
	w  *wyoming.Writer
}

func (c *connWriter) Write(ev wyoming.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.w.Write(ev)
}

func (l *Listener) handleConn(ctx context.Context, id string, conn net.Conn) {
	defer conn.Close()

	reader := wyoming.NewReader(conn)
	writer := &connWriter{w: wyoming.NewWriter(conn)}
	owns := false

	for {
		ev, err := reader.Read()
		if err != nil {
			break
		}

		if ev.Type == wyoming.TypeDescribe {
			info := l.base.BuildInfo()
			l.base.UpdateInfo(ctx, info)
			if err := writer.Write(compositeInfoEvent(info)); err != nil {
				break
			}
			continue
		}

		current := l.base.ServerID()
		switch {
		case current == "":
			l.base.SetServer(id, writer)
			owns = true
		case current != id:
			l.logger.Warn("refusing connection, server already bound", "handler", id, "bound_to", current)
			return
		}

		l.base.EventFromServer(ctx, ev)
	}

	if owns && l.base.ServerID() == id {
		l.base.ClearServer()
	}
}
