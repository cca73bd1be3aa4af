package sensor

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    int
		wantErr bool
	}{
		{"valid line", "RR,993", 993, false},
		{"with newline", "RR,993\n", 993, false},
		{"with crlf", "RR,1200\r\n", 1200, false},
		{"with spaces", "  RR, 850 ", 850, false},
		{"wrong prefix", "HR,993", 0, true},
		{"no value", "RR,", 0, true},
		{"not a number", "RR,abc", 0, true},
		{"empty", "", 0, true},
		{"garbage", "<<<noise>>>", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr, err := ParseLine(tt.line)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrBadLine)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, rr)
		})
	}
}

func TestTCPSourceReadsSamplesAndSkipsGarbage(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		conn.Write([]byte("RR,800\nnoise\nRR,810\n"))
		time.Sleep(200 * time.Millisecond)
	}()

	source := NewTCPSource(listener.Addr().String(), 100*time.Millisecond, 10*time.Millisecond, 50*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := make(chan Sample, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		source.Run(ctx, out)
	}()

	var got []int
	timeout := time.After(2 * time.Second)
	for len(got) < 2 {
		select {
		case s := <-out:
			got = append(got, s.RRMS)
		case <-timeout:
			t.Fatal("timed out waiting for samples")
		}
	}

	assert.Equal(t, []int{800, 810}, got)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("source did not stop after context cancel")
	}
}

func TestTCPSourceKeepsPartialLineAcrossDeadline(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		// Строка разрезана паузой длиннее дедлайна чтения
		conn.Write([]byte("RR,9"))
		time.Sleep(250 * time.Millisecond)
		conn.Write([]byte("93\nRR,800\n"))
		time.Sleep(200 * time.Millisecond)
	}()

	source := NewTCPSource(listener.Addr().String(), 100*time.Millisecond, 10*time.Millisecond, 50*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := make(chan Sample, 16)
	go source.Run(ctx, out)

	var got []int
	timeout := time.After(2 * time.Second)
	for len(got) < 2 {
		select {
		case s := <-out:
			got = append(got, s.RRMS)
		case <-timeout:
			t.Fatalf("timed out, received %v", got)
		}
	}

	assert.Equal(t, []int{993, 800}, got)
}

func TestTCPSourceStopsWhileDisconnected(t *testing.T) {
	// Адрес без слушателя: источник крутится в цикле переподключения
	source := NewTCPSource("127.0.0.1:1", 50*time.Millisecond, 10*time.Millisecond, 20*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan Sample, 1)

	done := make(chan struct{})
	go func() {
		defer close(done)
		source.Run(ctx, out)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("source did not observe cancellation")
	}
}

func TestNextBackoff(t *testing.T) {
	assert.Equal(t, 2*time.Second, nextBackoff(time.Second, 30*time.Second))
	assert.Equal(t, 30*time.Second, nextBackoff(20*time.Second, 30*time.Second))
	assert.Equal(t, 30*time.Second, nextBackoff(30*time.Second, 30*time.Second))
}
