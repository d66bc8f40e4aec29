// Package peer implements the transport layer connecting the satellite to
// its mic/snd/wake/event peers and to the conversational server: a
// reconnecting TCP/Unix socket client and a spawned-subprocess client,
// both exchanging the wyoming event stream (spec.md §4.2/§4.5).
//
// The reconnect-with-backoff shape follows teacher's
// connect_listen_thread in src/kissnet.go, adapted from a blocking
// C-style retry loop into a context-cancellable goroutine returning typed
// errors instead of printing and looping forever.
package peer

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"os/exec"
	"strings"
	"sync"

	"github.com/fernwood-iot/satellite/internal/wyoming"
)

// Client is a connected peer: something that can send and receive
// wyoming events. Socket and Process are the two concrete
// implementations; satellite code only depends on this interface.
type Client interface {
	Send(ev wyoming.Event) error
	Recv() (wyoming.Event, error)
	Close() error
}

// Dialer creates a fresh, connected Client on demand. Reconnect (below)
// calls it after every disconnect, matching teacher's pattern of
// recreating the socket from scratch on each retry rather than trying to
// repair a half-open connection.
type Dialer func(ctx context.Context) (Client, error)

// DialTCP returns a Dialer connecting to a host:port address.
func DialTCP(addr string) Dialer {
	return func(ctx context.Context) (Client, error) {
		var d net.Dialer
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("peer: dial tcp %s: %w", addr, err)
		}
		return newSocketClient(conn), nil
	}
}

// DialUnix returns a Dialer connecting to a Unix domain socket path.
func DialUnix(path string) Dialer {
	return func(ctx context.Context) (Client, error) {
		var d net.Dialer
		conn, err := d.DialContext(ctx, "unix", path)
		if err != nil {
			return nil, fmt.Errorf("peer: dial unix %s: %w", path, err)
		}
		return newSocketClient(conn), nil
	}
}

// ParseURI splits a "tcp://host:port" or "unix:///path/to.sock" peer URI
// into a Dialer, matching the --mic-uri/--snd-uri/--wake-uri/--event-uri
// forms named in spec.md §6.
func ParseURI(uri string) (Dialer, error) {
	switch {
	case strings.HasPrefix(uri, "tcp://"):
		return DialTCP(strings.TrimPrefix(uri, "tcp://")), nil
	case strings.HasPrefix(uri, "unix://"):
		return DialUnix(strings.TrimPrefix(uri, "unix://")), nil
	default:
		return nil, fmt.Errorf("peer: unsupported uri scheme %q", uri)
	}
}

// socketClient wraps a net.Conn as a Client.
type socketClient struct {
	conn net.Conn
	r    *wyoming.Reader
	w    *wyoming.Writer
	mu   sync.Mutex
}

func newSocketClient(conn net.Conn) *socketClient {
	return &socketClient{conn: conn, r: wyoming.NewReader(conn), w: wyoming.NewWriter(conn)}
}

func (c *socketClient) Send(ev wyoming.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.w.Write(ev)
}

func (c *socketClient) Recv() (wyoming.Event, error) {
	return c.r.Read()
}

func (c *socketClient) Close() error {
	return c.conn.Close()
}

// processClient wraps a spawned child process's stdin/stdout as a Client,
// matching spec.md §4.2's process-peer transport: the child's stdout is
// read for events this side receives, and events this side sends are
// written to its stdin.
type processClient struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
	r      *wyoming.Reader
	w      *wyoming.Writer
	mu     sync.Mutex
}

// DialProcess returns a Dialer that spawns command (argv[0] plus args)
// fresh on every (re)connect attempt, mirroring teacher's kisspt_open_pt
// texture of tearing down and recreating the transport rather than
// reusing a stale child across restarts.
func DialProcess(command []string) Dialer {
	return func(ctx context.Context) (Client, error) {
		if len(command) == 0 {
			return nil, fmt.Errorf("peer: empty process command")
		}
		cmd := exec.CommandContext(ctx, command[0], command[1:]...)
		stdin, err := cmd.StdinPipe()
		if err != nil {
			return nil, fmt.Errorf("peer: stdin pipe for %q: %w", command[0], err)
		}
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			return nil, fmt.Errorf("peer: stdout pipe for %q: %w", command[0], err)
		}
		if err := cmd.Start(); err != nil {
			return nil, fmt.Errorf("peer: start %q: %w", command[0], err)
		}
		return &processClient{
			cmd:    cmd,
			stdin:  stdin,
			stdout: stdout,
			r:      wyoming.NewReader(bufio.NewReader(stdout)),
			w:      wyoming.NewWriter(stdin),
		}, nil
	}
}

func (c *processClient) Send(ev wyoming.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.w.Write(ev)
}

func (c *processClient) Recv() (wyoming.Event, error) {
	return c.r.Read()
}

func (c *processClient) Close() error {
	stdinErr := c.stdin.Close()
	stdoutErr := c.stdout.Close()
	_ = c.cmd.Wait()
	if stdinErr != nil {
		return stdinErr
	}
	return stdoutErr
}
