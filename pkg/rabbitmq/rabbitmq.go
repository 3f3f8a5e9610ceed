package rabbitmq

import (
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/taxidata/platform/pkg/config"
	"github.com/taxidata/platform/pkg/logger"
	"go.uber.org/zap"
)

const (
	maxRetries    = 10
	retryInterval = 3 * time.Second
)

// Connection wraps amqp.Connection and re-dials when the broker drops it
type Connection struct {
	cfg         *config.RabbitMQConfig
	conn        *amqp.Connection
	mu          sync.RWMutex // protects conn during reconnects
	notifyClose chan *amqp.Error
	done        chan struct{}
}

// NewConnection dials the broker, declares the configured queue and starts the
// reconnect loop
func NewConnection(cfg *config.RabbitMQConfig) (*Connection, error) {
	c := &Connection{
		cfg:  cfg,
		done: make(chan struct{}),
	}

	var err error
	for i := 0; i < maxRetries; i++ {
		if err = c.connect(); err != nil {
			logger.Warn("rabbitmq connect failed, retrying",
				zap.Int("attempt", i+1),
				zap.Int("max_attempts", maxRetries),
				zap.Error(err),
			)
			time.Sleep(retryInterval)
			continue
		}
		go c.reconnectLoop()
		return c, nil
	}
	return nil, fmt.Errorf("unable to connect to rabbitmq after %d attempts: %w", maxRetries, err)
}

func (c *Connection) connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	conn, err := amqp.Dial(c.cfg.URL())
	if err != nil {
		return fmt.Errorf("failed to dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if _, err := ch.QueueDeclare(c.cfg.Queue, true, false, false, false, nil); err != nil {
		conn.Close()
		return fmt.Errorf("failed to declare queue %q: %w", c.cfg.Queue, err)
	}

	c.conn = conn
	c.notifyClose = make(chan *amqp.Error, 1)
	c.conn.NotifyClose(c.notifyClose)

	logger.Info("rabbitmq connection established", zap.String("queue", c.cfg.Queue))
	return nil
}

func (c *Connection) reconnectLoop() {
	for {
		select {
		case <-c.done:
			return
		case amqpErr := <-c.notifyClose:
			if amqpErr == nil {
				return
			}
			logger.Error("rabbitmq connection lost", zap.Error(amqpErr))
			for {
				select {
				case <-c.done:
					return
				default:
				}
				if err := c.connect(); err != nil {
					logger.Warn("rabbitmq reconnect failed", zap.Error(err))
					time.Sleep(retryInterval)
					continue
				}
				break
			}
		}
	}
}

// Channel opens a fresh channel on the current connection with the configured
// prefetch applied
func (c *Connection) Channel() (*amqp.Channel, error) {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil || conn.IsClosed() {
		return nil, fmt.Errorf("rabbitmq connection is not available")
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if err := ch.Qos(c.cfg.Prefetch, 0, false); err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to set prefetch: %w", err)
	}
	return ch, nil
}

// Consume opens a channel and returns the delivery stream for the configured queue
func (c *Connection) Consume(consumerTag string) (<-chan amqp.Delivery, error) {
	ch, err := c.Channel()
	if err != nil {
		return nil, err
	}
	return ch.Consume(c.cfg.Queue, consumerTag, false, false, false, false, nil)
}

// Close shuts down the connection and the reconnect loop
func (c *Connection) Close() error {
	close(c.done)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil && !c.conn.IsClosed() {
		return c.conn.Close()
	}
	return nil
}
