package tcp

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/flowlens/ipfixcore"
)

func TestListenerDecodesOneConnection(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	records := make(ipfix.ChannelSink, 1)
	l := New(addr, ipfix.NewEphemeralCache, records)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ready := make(chan struct{})
	go func() {
		go func() {
			for i := 0; i < 50; i++ {
				if conn, err := net.Dial("tcp", addr); err == nil {
					conn.Close()
					close(ready)
					return
				}
				time.Sleep(10 * time.Millisecond)
			}
		}()
		l.Listen(ctx)
	}()

	select {
	case <-ready:
	case <-time.After(2 * time.Second):
		t.Fatal("listener never accepted a connection")
	}

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	if _, err := conn.Write(sampleMessage()); err != nil {
		t.Fatal(err)
	}

	select {
	case rec := <-records:
		if rec.Data.Values[0].String() != "10.0.0.1" {
			t.Fatalf("got %v", rec.Data.Values[0])
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for decoded record")
	}
}

// sampleMessage is a template message for id 256 (one sourceIPv4Address
// field) immediately followed by a data message carrying 10.0.0.1,
// hand-encoded per RFC 7011 rather than via the ipfix package's
// unexported encoders.
func sampleMessage() []byte {
	templateMsg := []byte{
		0, 10, 0, 28, // version, length
		0, 0, 0, 1, // export time
		0, 0, 0, 1, // sequence number
		0, 0, 0, 7, // observation domain id
		0, 2, 0, 12, // set header: id=2 (template set), length=12
		1, 0, 0, 1, // template record: templateId=256, fieldCount=1
		0, 8, 0, 4, // field: informationElementId=8 (sourceIPv4Address), length=4
	}
	dataMsg := []byte{
		0, 10, 0, 24,
		0, 0, 0, 1,
		0, 0, 0, 2,
		0, 0, 0, 7,
		1, 0, 0, 8, // set header: id=256 (data set), length=8
		10, 0, 0, 1, // sourceIPv4Address
	}
	return append(templateMsg, dataMsg...)
}
