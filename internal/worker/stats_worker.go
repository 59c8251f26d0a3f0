package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/bakehouse/storefront-api/internal/model"
	"github.com/bakehouse/storefront-api/internal/repository"
	"github.com/bakehouse/storefront-api/internal/service"
)

const (
	statusQueueName = service.OrderStatusQueue
	dlxExchange     = "order-status.dlx"
	dlqQueueName    = "order-status.dlq"
	idempotencyTTL  = 24 * time.Hour
)

// StatsWorker drops cached agent dashboards when an order changes status, so
// the next dashboard load recomputes against fresh data.
type StatsWorker struct {
	channel     *amqp.Channel
	orderRepo   repository.OrderRepository
	redisClient *redis.Client
	log         *slog.Logger
	done        chan struct{}
}

func NewStatsWorker(
	ch *amqp.Channel,
	orderRepo repository.OrderRepository,
	redisClient *redis.Client,
	log *slog.Logger,
) *StatsWorker {
	return &StatsWorker{
		channel:     ch,
		orderRepo:   orderRepo,
		redisClient: redisClient,
		log:         log,
		done:        make(chan struct{}),
	}
}

// SetupRabbitMQ declares exchanges, queues, and bindings (DLX/DLQ).
func SetupRabbitMQ(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(dlxExchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare DLX: %w", err)
	}
	if _, err := ch.QueueDeclare(dlqQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare DLQ: %w", err)
	}
	if err := ch.QueueBind(dlqQueueName, statusQueueName, dlxExchange, false, nil); err != nil {
		return fmt.Errorf("bind DLQ: %w", err)
	}
	if _, err := ch.QueueDeclare(statusQueueName, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    dlxExchange,
		"x-dead-letter-routing-key": statusQueueName,
	}); err != nil {
		return fmt.Errorf("declare status queue: %w", err)
	}
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set QoS: %w", err)
	}
	return nil
}

func (w *StatsWorker) Start(ctx context.Context) error {
	msgs, err := w.channel.Consume(statusQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	go func() {
		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				w.processMessage(ctx, msg)
			case <-w.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	w.log.Info("stats worker started")
	return nil
}

func (w *StatsWorker) Stop() { close(w.done) }

func (w *StatsWorker) processMessage(ctx context.Context, msg amqp.Delivery) {
	var statusMsg model.OrderStatusMessage
	if err := json.Unmarshal(msg.Body, &statusMsg); err != nil {
		w.log.Error("unmarshal status message", "error", err)
		_ = msg.Nack(false, false)
		return
	}

	log := w.log.With("order_id", statusMsg.OrderID, "status", statusMsg.Status)

	// Idempotency check via Redis
	idempotencyKey := "status_event:" + statusMsg.OrderID.String() + ":" + string(statusMsg.Status)
	exists, err := w.redisClient.Exists(ctx, idempotencyKey).Result()
	if err != nil {
		log.Error("check idempotency key", "error", err)
		_ = msg.Nack(false, true)
		return
	}
	if exists > 0 {
		log.Info("status event already processed, skipping")
		_ = msg.Ack(false)
		return
	}

	if err := w.invalidateDashboards(ctx, statusMsg); err != nil {
		log.Error("invalidate dashboards failed", "error", err)
		_ = msg.Nack(false, false) // to DLQ
		return
	}

	if err := w.redisClient.Set(ctx, idempotencyKey, "1", idempotencyTTL).Err(); err != nil {
		log.Error("set idempotency key", "error", err)
	}

	_ = msg.Ack(false)
	log.Info("dashboards invalidated")
}

func (w *StatsWorker) invalidateDashboards(ctx context.Context, msg model.OrderStatusMessage) error {
	agentIDs, err := w.orderRepo.AgentIDsForOrder(ctx, msg.OrderID)
	if err != nil {
		return fmt.Errorf("resolve order agents: %w", err)
	}

	for _, agentID := range agentIDs {
		if err := w.redisClient.Del(ctx, service.StatsCacheKey(agentID)).Err(); err != nil {
			return fmt.Errorf("drop cached stats for agent %s: %w", agentID, err)
		}
	}
	return nil
}
