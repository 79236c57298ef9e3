package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sysu-ecnc-dev/itinerary-planner/backend/internal/config"
	"github.com/sysu-ecnc-dev/itinerary-planner/backend/internal/domain"
)

// Message 队列中的消息只包含任务 ID，请求内容保存在 Store 中
type Message struct {
	JobID string `json:"jobID"`
}

type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}

type AMQPPublisher struct {
	channel *amqp.Channel
	queue   string
	timeout time.Duration
}

func NewAMQPPublisher(cfg *config.Config, ch *amqp.Channel) *AMQPPublisher {
	return &AMQPPublisher{
		channel: ch,
		queue:   cfg.RabbitMQ.Queue,
		timeout: time.Duration(cfg.RabbitMQ.PublishTimeout) * time.Second,
	}
}

func (p *AMQPPublisher) Publish(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	return p.channel.PublishWithContext(
		ctx,
		"",
		p.queue,
		true,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}

// DeclareQueue 声明持久化的任务队列，api 和 worker 都会调用
func DeclareQueue(ch *amqp.Channel, name string) (amqp.Queue, error) {
	return ch.QueueDeclare(
		name,  // 队列名称
		true,  // 是否持久化
		false, // 是否自动删除，设置为 false 可以避免没有消费者的时候自动删除队列
		false, // 是否独占
		false, // 是否不等待
		nil,   // 额外参数
	)
}

// Queue 负责提交任务和查询任务状态
type Queue struct {
	store     Store
	publisher Publisher
	now       func() time.Time
}

func NewQueue(store Store, publisher Publisher) *Queue {
	return &Queue{store: store, publisher: publisher, now: time.Now}
}

// Submit 先保存任务再投递消息，投递失败时任务被标记为失败
func (q *Queue) Submit(ctx context.Context, req domain.ItineraryRequest) (*domain.ItineraryJob, error) {
	now := q.now()
	job := &domain.ItineraryJob{
		ID:        uuid.NewString(),
		Status:    domain.JobStatusQueued,
		Request:   req,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := q.store.Save(ctx, job); err != nil {
		return nil, fmt.Errorf("保存任务失败: %w", err)
	}

	if err := q.publisher.Publish(ctx, Message{JobID: job.ID}); err != nil {
		job.Status = domain.JobStatusFailed
		job.Error = "任务投递失败"
		job.UpdatedAt = q.now()
		_ = q.store.Save(ctx, job)
		return nil, fmt.Errorf("投递任务失败: %w", err)
	}

	return job, nil
}

func (q *Queue) Status(ctx context.Context, id string) (*domain.ItineraryJob, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrJobNotFound
	}
	return q.store.Get(ctx, id)
}
