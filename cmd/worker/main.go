package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/sysu-ecnc-dev/itinerary-planner/backend/internal/config"
	"github.com/sysu-ecnc-dev/itinerary-planner/backend/internal/geocode"
	"github.com/sysu-ecnc-dev/itinerary-planner/backend/internal/jobs"
	"github.com/sysu-ecnc-dev/itinerary-planner/backend/internal/mailer"
	"github.com/sysu-ecnc-dev/itinerary-planner/backend/internal/planner"
	"github.com/sysu-ecnc-dev/itinerary-planner/backend/internal/repository"
	"github.com/sysu-ecnc-dev/itinerary-planner/backend/internal/travel"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	/**********************************************
	 * 创建 logger
	 **********************************************/
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	/**********************************************
	 * 读取配置文件
	 **********************************************/
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法读取配置文件", slog.String("error", err.Error()))
		return
	}

	/**********************************************
	 * 连接数据库，用于按 ID 加载地点集合
	 **********************************************/
	dbpool, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		logger.Error("无法创建数据库连接池", slog.String("error", err.Error()))
		return
	}
	defer dbpool.Close()

	dbpool.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	dbpool.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	dbpool.SetConnMaxIdleTime(time.Duration(cfg.Database.MaxIdleTime) * time.Second)

	pingCtx, pingCancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer pingCancel()
	if err := dbpool.PingContext(pingCtx); err != nil {
		logger.Error("无法连接到数据库", slog.String("error", err.Error()))
		return
	}

	repo := repository.NewRepository(cfg, dbpool)

	/**********************************************
	 * 连接 redis
	 **********************************************/
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       0,
	})
	defer rdb.Close()

	/**********************************************
	 * 创建邮件客户端，未配置 SMTP 时不发送通知邮件
	 **********************************************/
	var notifier jobs.Notifier
	if cfg.Email.SMTP.Host != "" {
		client, err := mailer.NewClient(cfg)
		if err != nil {
			logger.Error("无法连接到邮件服务器", slog.String("error", err.Error()))
			return
		}
		defer client.Close()

		m, err := mailer.New(client, cfg.Email.SMTP.Username)
		if err != nil {
			logger.Error("无法解析邮件模板", slog.String("error", err.Error()))
			return
		}
		notifier = m
	}

	/**********************************************
	 * 创建 planner 和 worker
	 **********************************************/
	var geocoder planner.Geocoder
	if cfg.Google.APIKey != "" {
		geocoder = geocode.NewClient(cfg)
	}
	p := planner.New(cfg, repo, geocoder, travel.NewProvider(cfg, rdb))
	worker := jobs.NewWorker(jobs.NewRedisStore(cfg, rdb), p, notifier, logger)

	/**********************************************
	 * 连接 RabbitMQ
	 **********************************************/
	conn, err := amqp.Dial(cfg.RabbitMQ.DSN)
	if err != nil {
		logger.Error("无法连接到 RabbitMQ", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	// 创建通道
	ch, err := conn.Channel()
	if err != nil {
		logger.Error("无法创建通道", slog.String("error", err.Error()))
		return
	}
	defer ch.Close()

	// 每次只取一条消息，遗传算法是 CPU 密集型任务
	if err := ch.Qos(1, 0, false); err != nil {
		logger.Error("无法设置预取数量", slog.String("error", err.Error()))
		return
	}

	// 声明队列
	q, err := jobs.DeclareQueue(ch, cfg.RabbitMQ.Queue)
	if err != nil {
		logger.Error("无法声明队列", slog.String("error", err.Error()))
		return
	}

	// 监听 CTRL+C
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// 消费消息
	msgs, err := ch.Consume(
		q.Name, // 队列
		"",     // 消费者标识，设置为空字符串，表示由 RabbitMQ 自动分配
		false,  // 是否自动确认消息
		false,  // 是否独占队列
		false,  // 是否禁止消费者接受自己发送的消息，必须设置为 false，因为 RabbitMQ 不支持这个参数
		false,  // 是否不等待，等待 RabbitMQ 响应
		nil,    // 额外参数
	)
	if err != nil {
		logger.Error("无法消费消息", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 用于关闭 goroutine 的上下文，正在运行的任务会被取消并重新入队
	ctx, cancel := context.WithCancel(context.Background())
	wg := sync.WaitGroup{}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					logger.Error("消息通道已关闭")
					return
				}
				logger.Info("收到消息", slog.String("message", string(msg.Body)))

				switch worker.Handle(ctx, msg.Body, msg.Redelivered) {
				case jobs.AckDone:
					_ = msg.Ack(false)
				case jobs.AckRequeue:
					_ = msg.Nack(false, true) // 将消息重新入队
				case jobs.AckDrop:
					_ = msg.Nack(false, false)
				}
			}
		}
	}()

	// 等待 CTRL+C 信号
	logger.Info("等待消息...（按 CTRL+C 退出）")
	<-sigChan

	// 优雅退出
	slog.Info("正在关闭 itinerary worker...")
	cancel()
	wg.Wait() // 等待所有 goroutine 完成
	slog.Info("itinerary worker 已成功关闭")
}
