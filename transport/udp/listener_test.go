package udp

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/flowlens/ipfixcore"
)

func TestListenerDecodesOneDatagram(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := pc.LocalAddr().String()
	pc.Close()

	records := make(ipfix.ChannelSink, 2)
	l := New(addr, ipfix.NewEphemeralCache, records)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go l.Listen(ctx)
	time.Sleep(50 * time.Millisecond) // let the bind land before sending

	conn, err := net.Dial("udp", addr)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	for _, msg := range [][]byte{templateDatagram(), dataDatagram()} {
		if _, err := conn.Write(msg); err != nil {
			t.Fatal(err)
		}
	}

	select {
	case rec := <-records:
		if rec.Data.Values[0].String() != "172.16.0.1" {
			t.Fatalf("got %v", rec.Data.Values[0])
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for decoded record")
	}
}

func templateDatagram() []byte {
	return []byte{
		0, 10, 0, 28,
		0, 0, 0, 1,
		0, 0, 0, 1,
		0, 0, 0, 9,
		0, 2, 0, 12,
		1, 0, 0, 1,
		0, 8, 0, 4,
	}
}

func dataDatagram() []byte {
	return []byte{
		0, 10, 0, 24,
		0, 0, 0, 1,
		0, 0, 0, 2,
		0, 0, 0, 9,
		1, 0, 0, 8,
		172, 16, 0, 1,
	}
}
