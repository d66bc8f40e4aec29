package peer_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fernwood-iot/satellite/internal/peer"
	"github.com/fernwood-iot/satellite/internal/wyoming"
)

func TestParseURI(t *testing.T) {
	_, err := peer.ParseURI("tcp://localhost:12345")
	require.NoError(t, err)

	_, err = peer.ParseURI("unix:///tmp/x.sock")
	require.NoError(t, err)

	_, err = peer.ParseURI("http://nope")
	assert.Error(t, err)
}

func TestDialTCPRoundTrip(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	srvDone := make(chan struct{})
	go func() {
		defer close(srvDone)
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		r := wyoming.NewReader(conn)
		ev, err := r.Read()
		if err != nil {
			return
		}
		w := wyoming.NewWriter(conn)
		_ = w.Write(wyoming.NewPong(wyoming.StringField(ev, "text")))
	}()

	dial := peer.DialTCP(ln.Addr().String())
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	client, err := dial(ctx)
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.Send(wyoming.NewPing("hello")))

	reply, err := client.Recv()
	require.NoError(t, err)
	assert.Equal(t, "pong", reply.Type)
	assert.Equal(t, "hello", wyoming.StringField(reply, "text"))

	<-srvDone
}

func TestManagedConnectRetriesUntilListenerUp(t *testing.T) {
	addr := "127.0.0.1:18765"
	dial := peer.DialTCP(addr)
	m := peer.NewManaged(dial, 50*time.Millisecond)

	ready := make(chan struct{})
	go func() {
		time.Sleep(150 * time.Millisecond)
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return
		}
		close(ready)
		conn, _ := ln.Accept()
		if conn != nil {
			conn.Close()
		}
		ln.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, m.Connect(ctx))

	select {
	case <-ready:
	case <-time.After(time.Second):
		t.Fatal("listener never came up")
	}
}
