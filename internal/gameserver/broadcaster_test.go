package gameserver

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/seednode-labs/quiznight/internal/gameengine"
	"github.com/seednode-labs/quiznight/internal/protocol"
	"github.com/stretchr/testify/require"
)

func pipedConnection(t *testing.T, id string) (*Connection, net.Conn) {
	t.Helper()
	server, client := net.Pipe()
	t.Cleanup(func() { client.Close(); server.Close() })

	c := newConnection(id, server)
	go c.writePump()
	return c, client
}

func TestBroadcastOnlyReachesMatchingPin(t *testing.T) {
	set := NewConnectionSet()

	inPin, inClient := pipedConnection(t, "in")
	inPin.State = &gameengine.ConnState{CurrentPin: "111111"}
	set.add(inPin)

	outPin, outClient := pipedConnection(t, "out")
	outPin.State = &gameengine.ConnState{CurrentPin: "222222"}
	set.add(outPin)

	set.Broadcast("111111", map[string]any{"type": "CHAT", "message": "hi"})

	scanner := protocol.NewScanner(inClient)
	var frame map[string]any
	require.NoError(t, scanner.Next(&frame))
	require.Equal(t, "CHAT", frame["type"])

	require.NoError(t, outClient.SetReadDeadline(time.Now().Add(50*time.Millisecond)))
	_, err := outClient.Read(make([]byte, 1))
	require.Error(t, err, "connection in another PIN must not receive the broadcast")

	require.Equal(t, 2, set.Count())
}

func TestConnectionEnqueueDropsOnFullBuffer(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()
	defer server.Close()

	c := newConnection("slow", server)
	// No writePump running: buffer fills, then the connection closes
	// itself rather than blocking the caller.
	for i := 0; i < outboundBuffer; i++ {
		c.Enqueue(map[string]any{"type": "PING"})
	}
	c.Enqueue(map[string]any{"type": "ONE_TOO_MANY"})

	select {
	case <-c.closed:
	default:
		t.Fatal("expected connection to close after buffer overflow")
	}
}

func TestConcurrentCloseDoesNotPanic(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()
	defer server.Close()

	c := newConnection("racy", server)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Close()
		}()
	}
	wg.Wait()

	select {
	case <-c.closed:
	default:
		t.Fatal("expected connection to be closed")
	}
}
