package emulator

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// Sender отправляет строки протокола датчика потребителям
type Sender interface {
	Send(line string) error
	Close() error
}

// FormatLine форматирует RR-интервал в строку протокола датчика
func FormatLine(rrMS int) string {
	return fmt.Sprintf("RR,%d\n", rrMS)
}

// ===== TCP =====

// TCPSender слушает TCP-порт и рассылает строки всем подключенным клиентам.
// Эмулирует поведение реального датчика: клиент подключается к нему сам.
type TCPSender struct {
	listener net.Listener
	logger   *zap.Logger

	mu    sync.Mutex
	conns map[net.Conn]bool

	done chan struct{}
}

// NewTCPSender начинает слушать addr и принимать клиентов
func NewTCPSender(addr string, logger *zap.Logger) (*TCPSender, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s := &TCPSender{
		listener: listener,
		logger:   logger,
		conns:    make(map[net.Conn]bool),
		done:     make(chan struct{}),
	}
	go s.acceptLoop()

	logger.Info("sensor emulator listening", zap.String("addr", addr))
	return s, nil
}

func (s *TCPSender) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
				s.logger.Warn("accept failed", zap.Error(err))
				continue
			}
		}

		s.mu.Lock()
		s.conns[conn] = true
		s.mu.Unlock()
		s.logger.Info("client connected", zap.String("remote", conn.RemoteAddr().String()))
	}
}

// Send рассылает строку всем подключенным клиентам
func (s *TCPSender) Send(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for conn := range s.conns {
		conn.SetWriteDeadline(time.Now().Add(time.Second))
		if _, err := conn.Write([]byte(line)); err != nil {
			s.logger.Info("client disconnected", zap.String("remote", conn.RemoteAddr().String()))
			conn.Close()
			delete(s.conns, conn)
		}
	}
	return nil
}

// Close останавливает listener и закрывает все соединения
func (s *TCPSender) Close() error {
	close(s.done)
	err := s.listener.Close()

	s.mu.Lock()
	for conn := range s.conns {
		conn.Close()
		delete(s.conns, conn)
	}
	s.mu.Unlock()
	return err
}

// ===== MQTT =====

// MQTTSender публикует строки протокола в MQTT-топик
type MQTTSender struct {
	client mqtt.Client
	topic  string
	logger *zap.Logger
}

// NewMQTTSender подключается к брокеру и возвращает отправителя
func NewMQTTSender(brokerURL, topic, clientID string, logger *zap.Logger) (*MQTTSender, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(5 * time.Second)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	logger.Info("sensor emulator connected to broker", zap.String("broker", brokerURL))
	return &MQTTSender{client: client, topic: topic, logger: logger}, nil
}

// Send публикует строку в топик
func (s *MQTTSender) Send(line string) error {
	token := s.client.Publish(s.topic, 1, false, line)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish: %w", err)
	}
	return nil
}

// Close отключается от брокера
func (s *MQTTSender) Close() error {
	s.client.Disconnect(250)
	return nil
}

// ===== Цикл эмуляции =====

// Run генерирует RR-интервалы и отправляет их до отмены контекста.
// Следующий интервал отправляется через длительность предыдущего, как у
// настоящего датчика: интервал и есть пауза между ударами.
func Run(ctx context.Context, gen *RRGenerator, sender Sender, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	for {
		rr := gen.NextValue()
		if err := sender.Send(FormatLine(rr)); err != nil {
			logger.Warn("send failed", zap.Error(err))
		}

		timer := time.NewTimer(time.Duration(rr) * time.Millisecond)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}
