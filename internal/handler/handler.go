package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
	"github.com/gorilla/websocket"
	"github.com/sysu-ecnc-dev/itinerary-planner/backend/internal/config"
	"github.com/sysu-ecnc-dev/itinerary-planner/backend/internal/domain"
	"github.com/sysu-ecnc-dev/itinerary-planner/backend/internal/metrics"
	"github.com/sysu-ecnc-dev/itinerary-planner/backend/internal/places"
	"github.com/sysu-ecnc-dev/itinerary-planner/backend/internal/scheduler"
)

type PlaceSetRepository interface {
	CreatePlaceSet(ps *domain.PlaceSet) error
	GetAllPlaceSets() ([]*domain.PlaceSet, error)
	GetPlaceSetByID(id int64) (*domain.PlaceSet, error)
	UpdatePlaceSet(ps *domain.PlaceSet) error
	DeletePlaceSet(id int64) error
}

type ItineraryPlanner interface {
	Plan(ctx context.Context, req *domain.ItineraryRequest, opts ...scheduler.Option) (*domain.RunResult, error)
}

type JobQueue interface {
	Submit(ctx context.Context, req domain.ItineraryRequest) (*domain.ItineraryJob, error)
	Status(ctx context.Context, id string) (*domain.ItineraryJob, error)
}

type Handler struct {
	validate   *validator.Validate
	config     *config.Config
	repository PlaceSetRepository
	translator ut.Translator
	planner    ItineraryPlanner
	jobs       JobQueue // 为 nil 时不注册异步任务相关的路由
	places     *places.Reader
	upgrader   websocket.Upgrader

	Mux *chi.Mux
}

func NewHandler(cfg *config.Config, repo PlaceSetRepository, planner ItineraryPlanner, jobs JobQueue) (*Handler, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	zh := zh.New()
	uni := ut.New(zh, zh)
	trans, _ := uni.GetTranslator("zh")
	if err := zh_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	return &Handler{
		validate:   validate,
		config:     cfg,
		repository: repo,
		translator: trans,
		planner:    planner,
		jobs:       jobs,
		places:     places.NewReader(validate),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(_ *http.Request) bool { return true },
		},

		Mux: chi.NewRouter(),
	}, nil
}

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)

	h.Mux.Get("/healthz", h.Healthz)
	h.Mux.Method(http.MethodGet, "/metrics", metrics.Handler())

	h.Mux.Route("/itineraries", func(r chi.Router) {
		r.Post("/", h.CreateItinerary)
		r.Get("/stream", h.StreamItinerary)
		if h.jobs != nil {
			r.Route("/jobs", func(r chi.Router) {
				r.With(h.auth).Post("/", h.SubmitItineraryJob)
				r.Get("/{id}", h.GetItineraryJob)
			})
		}
	})

	h.Mux.Route("/place-sets", func(r chi.Router) {
		r.With(h.auth).Post("/", h.CreatePlaceSet)
		r.Get("/", h.GetAllPlaceSets)
		r.Route("/{id}", func(r chi.Router) {
			r.Use(h.placeSet)
			r.Get("/", h.GetPlaceSet)
			r.With(h.auth).Patch("/", h.UpdatePlaceSet)
			r.With(h.auth).Delete("/", h.DeletePlaceSet)
		})
	})
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	h.successResponse(w, r, "ok", nil)
}
