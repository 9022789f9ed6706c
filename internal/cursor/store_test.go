package cursor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/liamashdown/whalewatch/internal/trade"
)

// respServer answers GET and SET over the redis wire protocol from a map
type respServer struct {
	ln net.Listener

	mu   sync.Mutex
	data map[string]string
}

func newRESPServer(t *testing.T) *respServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	s := &respServer{ln: ln, data: make(map[string]string)}
	go s.serve()
	t.Cleanup(func() { ln.Close() })
	return s
}

func (s *respServer) serve() {
	for {
		c, err := s.ln.Accept()
		if err != nil {
			return
		}
		go s.handle(c)
	}
}

func (s *respServer) handle(c net.Conn) {
	defer c.Close()
	r := bufio.NewReader(c)
	for {
		args, err := readCommand(r)
		if err != nil {
			return
		}
		_, _ = io.WriteString(c, s.reply(args))
	}
}

func (s *respServer) reply(args []string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch strings.ToUpper(args[0]) {
	case "GET":
		v, ok := s.data[args[1]]
		if !ok {
			return "$-1\r\n"
		}
		return fmt.Sprintf("$%d\r\n%s\r\n", len(v), v)
	case "SET":
		s.data[args[1]] = args[2]
		return "+OK\r\n"
	default:
		return "-ERR unknown command\r\n"
	}
}

func readCommand(r *bufio.Reader) ([]string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return nil, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "*")))
	if err != nil {
		return nil, err
	}

	args := make([]string, 0, n)
	for i := 0; i < n; i++ {
		header, err := r.ReadString('\n')
		if err != nil {
			return nil, err
		}
		size, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(header, "$")))
		if err != nil {
			return nil, err
		}
		buf := make([]byte, size+2)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
		args = append(args, string(buf[:size]))
	}
	return args, nil
}

func TestRedisStore(t *testing.T) {
	srv := newRESPServer(t)
	client := redis.NewClient(&redis.Options{Addr: srv.ln.Addr().String()})
	defer client.Close()

	ctx := context.Background()
	store := NewRedisStore(client)

	if _, ok, err := store.Load(ctx, trade.SourceKalshi); err != nil || ok {
		t.Fatalf("empty Load() = ok %v, err %v", ok, err)
	}
	if err := store.Save(ctx, trade.SourceKalshi, "K9"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	id, ok, err := store.Load(ctx, trade.SourceKalshi)
	if err != nil || !ok || id != "K9" {
		t.Errorf("Load() = %q, %v, %v", id, ok, err)
	}

	srv.mu.Lock()
	_, stored := srv.data["whalewatch:cursor:kalshi"]
	srv.mu.Unlock()
	if !stored {
		t.Error("cursor not stored under the whalewatch prefix")
	}
}

func TestRedisStoreUnreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	store := NewRedisStore(client)
	if _, _, err := store.Load(context.Background(), trade.SourcePolymarket); err == nil {
		t.Error("expected error from unreachable redis")
	}
	if err := store.Save(context.Background(), trade.SourcePolymarket, "P1"); err == nil {
		t.Error("expected error from unreachable redis")
	}
}

type fakeState map[string]string

func (f fakeState) GetState(_ context.Context, key string) (string, error) {
	return f[key], nil
}

func (f fakeState) SetState(_ context.Context, key, value string) error {
	f[key] = value
	return nil
}

func TestDBStore(t *testing.T) {
	ctx := context.Background()
	state := fakeState{}
	store := NewDBStore(state)

	if _, ok, _ := store.Load(ctx, trade.SourcePolymarket); ok {
		t.Error("expected no cursor before Save")
	}
	if err := store.Save(ctx, trade.SourcePolymarket, "0xh1:1:BUY"); err != nil {
		t.Fatal(err)
	}
	if state["cursor:polymarket"] != "0xh1:1:BUY" {
		t.Errorf("state = %v", state)
	}
	if id, ok, _ := store.Load(ctx, trade.SourcePolymarket); !ok || id != "0xh1:1:BUY" {
		t.Errorf("Load() = %q, %v", id, ok)
	}
}
