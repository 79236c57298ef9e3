package handler

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/sysu-ecnc-dev/itinerary-planner/backend/internal/domain"
	"github.com/sysu-ecnc-dev/itinerary-planner/backend/internal/geocode"
	"github.com/sysu-ecnc-dev/itinerary-planner/backend/internal/jobs"
	"github.com/sysu-ecnc-dev/itinerary-planner/backend/internal/scheduler"
)

// planErrorMessage 把可以告诉调用方的错误转换成提示信息，其余错误返回空字符串
func planErrorMessage(err error) string {
	var de *scheduler.DataError
	switch {
	case errors.As(err, &de):
		return de.Error()
	case errors.Is(err, sql.ErrNoRows):
		return "地点集合不存在"
	case errors.Is(err, geocode.ErrNotFound):
		return "无法解析住宿地址"
	case errors.Is(err, context.DeadlineExceeded):
		return "行程生成超时"
	}
	return ""
}

func (h *Handler) planError(w http.ResponseWriter, r *http.Request, err error) {
	if msg := planErrorMessage(err); msg != "" {
		h.errorResponse(w, r, msg)
		return
	}
	h.internalServerError(w, r, err)
}

func (h *Handler) readItineraryRequest(r *http.Request) (*domain.ItineraryRequest, error) {
	var req domain.ItineraryRequest
	if err := h.readJSON(r, &req); err != nil {
		return nil, err
	}
	if err := h.validate.Struct(req); err != nil {
		return nil, err
	}
	return &req, nil
}

func (h *Handler) CreateItinerary(w http.ResponseWriter, r *http.Request) {
	req, err := h.readItineraryRequest(r)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	result, err := h.planner.Plan(r.Context(), req, scheduler.WithLogger(slog.Default()))
	if err != nil {
		h.planError(w, r, err)
		return
	}

	h.successResponse(w, r, "生成行程成功", result)
}

func (h *Handler) SubmitItineraryJob(w http.ResponseWriter, r *http.Request) {
	req, err := h.readItineraryRequest(r)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	job, err := h.jobs.Submit(r.Context(), *req)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "已提交行程生成任务", job)
}

func (h *Handler) GetItineraryJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.jobs.Status(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		switch {
		case errors.Is(err, jobs.ErrJobNotFound):
			h.errorResponse(w, r, "任务不存在或已过期")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "获取任务成功", job)
}

type streamMessage struct {
	Type    string            `json:"type"` // result 或 error
	Result  *domain.RunResult `json:"result,omitempty"`
	Message string            `json:"message,omitempty"`
}

// progressMessage 每一代推送一次，type 为 generation
type progressMessage struct {
	Type string `json:"type"`
	scheduler.Progress
}

// StreamItinerary 客户端连接后发送一个行程请求，服务端逐代推送进度，最后推送结果或错误
func (h *Handler) StreamItinerary(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()

	conn.SetReadLimit(4 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))

	var req domain.ItineraryRequest
	if err := conn.ReadJSON(&req); err != nil {
		_ = conn.WriteJSON(streamMessage{Type: "error", Message: "无法解析请求"})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		_ = conn.WriteJSON(streamMessage{Type: "error", Message: h.errorMessage(err)})
		return
	}
	_ = conn.SetReadDeadline(time.Time{})

	// 客户端断开时取消运行
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	// 观察者在运行遗传算法的 goroutine 中同步调用，只有这里会写连接
	observer := func(p scheduler.Progress) {
		_ = conn.WriteJSON(progressMessage{Type: "generation", Progress: p})
	}

	result, err := h.planner.Plan(ctx, &req, scheduler.WithLogger(slog.Default()), scheduler.WithObserver(observer))
	if err != nil {
		msg := planErrorMessage(err)
		if msg == "" {
			slog.Error("生成行程失败", "error", err)
			msg = "服务器内部错误"
		}
		_ = conn.WriteJSON(streamMessage{Type: "error", Message: msg})
		return
	}

	_ = conn.WriteJSON(streamMessage{Type: "result", Result: result})
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
