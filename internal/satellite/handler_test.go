package satellite_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fernwood-iot/satellite/internal/config"
	"github.com/fernwood-iot/satellite/internal/logging"
	"github.com/fernwood-iot/satellite/internal/satellite"
	"github.com/fernwood-iot/satellite/internal/wyoming"
)

func reserveLoopbackAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

func dialLoopback(t *testing.T, addr string) (*wyoming.Reader, *wyoming.Writer, net.Conn) {
	t.Helper()
	var conn net.Conn
	require.Eventually(t, func() bool {
		c, err := net.Dial("tcp", addr)
		if err != nil {
			return false
		}
		conn = c
		return true
	}, 2*time.Second, 10*time.Millisecond)
	return wyoming.NewReader(conn), wyoming.NewWriter(conn), conn
}

func TestListenerSingleOwnerBinding(t *testing.T) {
	addr := reserveLoopbackAddr(t)

	logger := logging.New(logging.Options{})
	base := satellite.NewBase(config.Satellite{Name: "front-room"}, logger)
	base.Triggers = satellite.NewTriggers(nil, nil, logger)
	listener := satellite.NewListener(base, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go listener.Serve(ctx, "tcp://"+addr)

	r1, w1, conn1 := dialLoopback(t, addr)
	defer conn1.Close()

	require.NoError(t, w1.Write(wyoming.Event{Type: wyoming.TypeDescribe}))
	info, err := r1.Read()
	require.NoError(t, err)
	assert.Equal(t, wyoming.TypeInfo, info.Type)

	require.NoError(t, w1.Write(wyoming.NewPing("a")))
	pong, err := r1.Read()
	require.NoError(t, err)
	assert.Equal(t, wyoming.TypePong, pong.Type)

	require.Eventually(t, func() bool { return base.ServerID() != "" }, time.Second, 5*time.Millisecond)
	owner := base.ServerID()

	r2, w2, conn2 := dialLoopback(t, addr)
	defer conn2.Close()

	require.NoError(t, w2.Write(wyoming.NewPing("b")))
	_, err = r2.Read()
	assert.Error(t, err, "second connection must be refused while the first owns the server")
	assert.Equal(t, owner, base.ServerID(), "binding must not change on a refused connection")

	conn1.Close()
	require.Eventually(t, func() bool { return base.ServerID() == "" }, time.Second, 5*time.Millisecond)
}

func TestListenerDescribeWorksWithoutBinding(t *testing.T) {
	addr := reserveLoopbackAddr(t)

	logger := logging.New(logging.Options{})
	base := satellite.NewBase(config.Satellite{Name: "hallway"}, logger)
	base.Triggers = satellite.NewTriggers(nil, nil, logger)
	listener := satellite.NewListener(base, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go listener.Serve(ctx, "tcp://"+addr)

	r, w, conn := dialLoopback(t, addr)
	defer conn.Close()

	require.NoError(t, w.Write(wyoming.Event{Type: wyoming.TypeDescribe}))
	info, err := r.Read()
	require.NoError(t, err)
	require.Equal(t, wyoming.TypeInfo, info.Type)

	satInfo, ok := info.Data["satellite"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "hallway", satInfo["name"])

	assert.Equal(t, "", base.ServerID(), "describe alone must not bind ownership")
}
