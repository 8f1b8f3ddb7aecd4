// Package mq 提供基于RabbitMQ的消息发布/订阅
//
// 通知以JSON发布到topic类型的Exchange，routing key为通知类型
// （如purchase.shipping_required），下游按通配符订阅：
//
//	purchase.*   发货与员工购买
//	item.#       物品请求与到货
//	sync.#       同步删除保护
package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher 消息发布者
type Publisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	logger   *slog.Logger
}

// NewPublisher 连接RabbitMQ并声明持久化Exchange
func NewPublisher(url, exchange, exchangeType string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("连接RabbitMQ失败: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("创建Channel失败: %w", err)
	}

	if err := declareExchange(channel, exchange, exchangeType); err != nil {
		channel.Close()
		conn.Close()
		return nil, err
	}

	logger := slog.Default().With("component", "mq", "exchange", exchange)
	logger.Info("消息发布者已创建", "type", exchangeType)

	return &Publisher{
		conn:     conn,
		channel:  channel,
		exchange: exchange,
		logger:   logger,
	}, nil
}

func declareExchange(ch *amqp.Channel, exchange, exchangeType string) error {
	err := ch.ExchangeDeclare(
		exchange,
		exchangeType,
		true,  // Durable
		false, // AutoDelete
		false, // Internal
		false, // NoWait
		nil,
	)
	if err != nil {
		return fmt.Errorf("声明Exchange失败: %w", err)
	}
	return nil
}

// Publish 发布消息（JSON序列化，持久化投递）
func (p *Publisher) Publish(ctx context.Context, routingKey string, message any) error {
	msg, err := newPublishing(message, time.Now())
	if err != nil {
		return err
	}

	err = p.channel.PublishWithContext(
		ctx,
		p.exchange,
		routingKey,
		false, // Mandatory
		false, // Immediate
		msg,
	)
	if err != nil {
		return fmt.Errorf("发布消息失败: %w", err)
	}

	p.logger.Debug("消息已发布", "routing_key", routingKey, "bytes", len(msg.Body))
	return nil
}

// newPublishing 构造持久化的JSON消息
func newPublishing(message any, now time.Time) (amqp.Publishing, error) {
	body, err := json.Marshal(message)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("消息序列化失败: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    now,
	}, nil
}

// Close 关闭发布者
func (p *Publisher) Close() error {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// Consumer 消息消费者
type Consumer struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
	logger  *slog.Logger
}

// NewConsumer 声明Queue并按routingKeys绑定到Exchange
func NewConsumer(url, exchange, exchangeType, queue string, routingKeys []string) (*Consumer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("连接RabbitMQ失败: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("创建Channel失败: %w", err)
	}

	fail := func(err error) (*Consumer, error) {
		channel.Close()
		conn.Close()
		return nil, err
	}

	if err := declareExchange(channel, exchange, exchangeType); err != nil {
		return fail(err)
	}

	q, err := channel.QueueDeclare(
		queue,
		true,  // Durable
		false, // AutoDelete
		false, // Exclusive
		false, // NoWait
		nil,
	)
	if err != nil {
		return fail(fmt.Errorf("声明Queue失败: %w", err))
	}

	for _, key := range routingKeys {
		if err := channel.QueueBind(q.Name, key, exchange, false, nil); err != nil {
			return fail(fmt.Errorf("绑定Queue失败: %w", err))
		}
	}

	logger := slog.Default().With("component", "mq", "queue", q.Name)
	logger.Info("消息消费者已创建", "routing_keys", routingKeys)

	return &Consumer{
		conn:    conn,
		channel: channel,
		queue:   q.Name,
		logger:  logger,
	}, nil
}

// Handler 处理一条消息，返回错误时消息重新入队
type Handler func(routingKey string, body []byte) error

// Consume 手动确认模式消费，直到ctx取消
func (c *Consumer) Consume(ctx context.Context, handler Handler) error {
	if err := c.channel.Qos(1, 0, false); err != nil {
		return fmt.Errorf("设置Qos失败: %w", err)
	}

	msgs, err := c.channel.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("开始消费失败: %w", err)
	}

	c.logger.Info("开始消费消息")

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("消费者退出")
			return nil

		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("消息Channel已关闭")
			}

			if err := handler(msg.RoutingKey, msg.Body); err != nil {
				c.logger.Warn("消息处理失败，重新入队", "routing_key", msg.RoutingKey, "error", err)
				msg.Nack(false, true)
				continue
			}
			msg.Ack(false)
		}
	}
}

// Close 关闭消费者
func (c *Consumer) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
