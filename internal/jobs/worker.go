package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/sysu-ecnc-dev/itinerary-planner/backend/internal/domain"
	"github.com/sysu-ecnc-dev/itinerary-planner/backend/internal/geocode"
	"github.com/sysu-ecnc-dev/itinerary-planner/backend/internal/metrics"
	"github.com/sysu-ecnc-dev/itinerary-planner/backend/internal/scheduler"
)

type Planner interface {
	Plan(ctx context.Context, req *domain.ItineraryRequest, opts ...scheduler.Option) (*domain.RunResult, error)
}

type Notifier interface {
	NotifyItineraryReady(ctx context.Context, to string, job *domain.ItineraryJob) error
}

// Ack 消息的处理结果
type Ack int

const (
	AckDone    Ack = iota // 确认消息
	AckRequeue            // 重新入队
	AckDrop               // 丢弃消息
)

type Worker struct {
	store    Store
	planner  Planner
	notifier Notifier // 可以为 nil
	logger   *slog.Logger
	now      func() time.Time
}

func NewWorker(store Store, planner Planner, notifier Notifier, logger *slog.Logger) *Worker {
	return &Worker{
		store:    store,
		planner:  planner,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// permanent 判断错误是否重试也不会成功
func permanent(err error) bool {
	var (
		de *scheduler.DataError
		ae *scheduler.AlgorithmError
	)
	return errors.As(err, &de) ||
		errors.As(err, &ae) ||
		errors.Is(err, sql.ErrNoRows) ||
		errors.Is(err, geocode.ErrNotFound)
}

// Handle 处理一条任务消息
// 输入数据错误和算法错误会让任务失败；其他错误（例如外部服务暂时不可用）第一次出现时重新入队，重投后仍失败则任务失败
func (w *Worker) Handle(ctx context.Context, body []byte, redelivered bool) Ack {
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil || msg.JobID == "" {
		w.logger.Error("任务消息格式错误", slog.String("body", string(body)))
		return AckDrop
	}

	job, err := w.store.Get(ctx, msg.JobID)
	if err != nil {
		if errors.Is(err, ErrJobNotFound) {
			w.logger.Warn("任务不存在或已过期", slog.String("job", msg.JobID))
			return AckDrop
		}
		w.logger.Error("读取任务失败", slog.String("job", msg.JobID), slog.String("error", err.Error()))
		return AckRequeue
	}
	if job.Status == domain.JobStatusDone || job.Status == domain.JobStatusFailed {
		return AckDone
	}

	job.Status = domain.JobStatusRunning
	job.UpdatedAt = w.now()
	if err := w.store.Save(ctx, job); err != nil {
		w.logger.Error("更新任务状态失败", slog.String("job", job.ID), slog.String("error", err.Error()))
		return AckRequeue
	}
	metrics.Jobs.WithLabelValues(string(domain.JobStatusRunning)).Inc()

	logger := w.logger.With(slog.String("job", job.ID))
	logger.Info("开始生成行程")

	result, err := w.planner.Plan(ctx, &job.Request, scheduler.WithLogger(logger))
	if err != nil {
		// worker 关闭导致的取消不算失败
		if (!permanent(err) && !redelivered) || ctx.Err() != nil {
			logger.Warn("生成行程失败，任务将重新入队", slog.String("error", err.Error()))
			job.Status = domain.JobStatusQueued
			job.UpdatedAt = w.now()
			if err := w.store.Save(context.WithoutCancel(ctx), job); err != nil {
				logger.Error("更新任务状态失败", slog.String("error", err.Error()))
			}
			return AckRequeue
		}

		logger.Error("生成行程失败", slog.String("error", err.Error()))
		job.Status = domain.JobStatusFailed
		job.Error = err.Error()
	} else {
		job.Status = domain.JobStatusDone
		job.Result = result
		job.Error = ""
	}
	job.UpdatedAt = w.now()

	if err := w.store.Save(ctx, job); err != nil {
		logger.Error("保存任务结果失败", slog.String("error", err.Error()))
		return AckRequeue
	}
	metrics.Jobs.WithLabelValues(string(job.Status)).Inc()

	if job.Status == domain.JobStatusDone && job.Request.NotifyEmail != "" && w.notifier != nil {
		// 邮件发送失败不影响任务结果
		if err := w.notifier.NotifyItineraryReady(ctx, job.Request.NotifyEmail, job); err != nil {
			logger.Error("发送行程邮件失败", slog.String("error", err.Error()))
		}
	}

	logger.Info("任务处理完成", slog.String("status", string(job.Status)))
	return AckDone
}
