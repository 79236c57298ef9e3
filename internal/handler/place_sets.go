package handler

import (
	"database/sql"
	"errors"
	"mime"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sysu-ecnc-dev/itinerary-planner/backend/internal/domain"
	"github.com/sysu-ecnc-dev/itinerary-planner/backend/internal/places"
	"github.com/sysu-ecnc-dev/itinerary-planner/backend/internal/utils"
)

func (h *Handler) GetAllPlaceSets(w http.ResponseWriter, r *http.Request) {
	sets, err := h.repository.GetAllPlaceSets()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取所有地点集合成功", sets)
}

// readPlaceSet 支持 JSON 请求体，或者 Content-Type 为 text/csv 的地点表（名称和目的地通过查询参数给出）
func (h *Handler) readPlaceSet(r *http.Request) (*domain.PlaceSet, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "text/csv" {
		table, err := h.places.ReadCSV(r.Body)
		if err != nil {
			return nil, err
		}
		req := struct {
			Name        string `validate:"required"`
			Destination string
		}{
			Name:        r.URL.Query().Get("name"),
			Destination: r.URL.Query().Get("destination"),
		}
		if err := h.validate.Struct(req); err != nil {
			return nil, err
		}
		return &domain.PlaceSet{Name: req.Name, Destination: req.Destination, Places: table}, nil
	}

	var req struct {
		Name        string         `json:"name" validate:"required"`
		Destination string         `json:"destination"`
		Places      []domain.Place `json:"places" validate:"required,min=1,dive"`
	}
	if err := h.readJSON(r, &req); err != nil {
		return nil, err
	}
	if err := h.validate.Struct(req); err != nil {
		return nil, err
	}
	return &domain.PlaceSet{Name: req.Name, Destination: req.Destination, Places: req.Places}, nil
}

// validatePlaceSet 地点集合中可以包含一个 HOTEL 行作为默认住宿
func validatePlaceSet(ps *domain.PlaceSet) error {
	_, candidates, _, err := places.SplitHotel(ps.Places)
	if err != nil {
		return err
	}
	if err := utils.ValidatePlaces(candidates); err != nil {
		return err
	}
	for _, p := range ps.Places {
		if err := utils.ValidateOpeningHours(p.OpeningHours); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) CreatePlaceSet(w http.ResponseWriter, r *http.Request) {
	ps, err := h.readPlaceSet(r)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := validatePlaceSet(ps); err != nil {
		h.badRequest(w, r, err)
		return
	}

	if err := h.repository.CreatePlaceSet(ps); err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.As(err, &pgErr):
			switch pgErr.ConstraintName {
			case "places_place_set_id_name_key":
				h.errorResponse(w, r, "地点名称重复")
			default:
				h.internalServerError(w, r, err)
			}
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "创建地点集合成功", ps)
}

func (h *Handler) GetPlaceSet(w http.ResponseWriter, r *http.Request) {
	ps := r.Context().Value(PlaceSetCtx).(*domain.PlaceSet)

	h.successResponse(w, r, "获取地点集合成功", ps)
}

func (h *Handler) UpdatePlaceSet(w http.ResponseWriter, r *http.Request) {
	ps := r.Context().Value(PlaceSetCtx).(*domain.PlaceSet)

	var req struct {
		Name        *string `json:"name" validate:"omitempty,min=1"`
		Destination *string `json:"destination"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	if req.Name != nil {
		ps.Name = *req.Name
	}
	if req.Destination != nil {
		ps.Destination = *req.Destination
	}

	if err := h.repository.UpdatePlaceSet(ps); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, "请重试")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "更新地点集合成功", ps)
}

func (h *Handler) DeletePlaceSet(w http.ResponseWriter, r *http.Request) {
	ps := r.Context().Value(PlaceSetCtx).(*domain.PlaceSet)

	if err := h.repository.DeletePlaceSet(ps.ID); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, "地点集合不存在")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "删除地点集合成功", nil)
}
