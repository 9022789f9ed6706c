package alerts

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/liamashdown/whalewatch/internal/trade"
)

func TestSMTPSenderNoRecipients(t *testing.T) {
	s := NewSMTPSender("localhost", 25, "", "", "alerts@example.com", nil)
	if err := s.Send(context.Background(), sampleRecord(trade.SideBuy)); err == nil {
		t.Error("expected error without recipients")
	}
}

// A server that accepts but never greets must not hold the caller past its deadline
func TestSMTPSenderHonorsContext(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	var mu sync.Mutex
	var conns []net.Conn
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, c)
			mu.Unlock()
		}
	}()
	t.Cleanup(func() {
		ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			c.Close()
		}
	})

	port := ln.Addr().(*net.TCPAddr).Port
	s := NewSMTPSender("127.0.0.1", port, "", "", "alerts@example.com", []string{"ops@example.com"})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err = s.Send(ctx, sampleRecord(trade.SideBuy))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Send() error = %v, want deadline exceeded", err)
	}
	if time.Since(start) > time.Second {
		t.Errorf("Send() blocked for %v", time.Since(start))
	}
}

func TestSMTPMessage(t *testing.T) {
	s := NewSMTPSender("localhost", 25, "", "", "alerts@example.com", []string{"a@example.com", "b@example.com"})
	msg := s.buildMessage(sampleRecord(trade.SideSell).Sanitized())

	for _, want := range []string{
		"To: a@example.com, b@example.com\r\n",
		"Subject: [WHALE_EXIT] SELL $75000.00 on Will (BTC) hit $100k? b\r\n",
		"WHALEWATCH ALERT - WHALE EXITING POSITION",
		"Trade:          0xdeadbeef",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
}
