package repository

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/sysu-ecnc-dev/itinerary-planner/backend/internal/domain"
)

func (r *Repository) CreatePlaceSet(ps *domain.PlaceSet) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.TransactionTimeout)*time.Second)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `
		INSERT INTO place_sets (name, destination)
		VALUES ($1, $2)
		RETURNING id, created_at, version
	`
	if err := tx.QueryRowContext(ctx, query, ps.Name, ps.Destination).Scan(&ps.ID, &ps.CreatedAt, &ps.Version); err != nil {
		return err
	}

	for i, place := range ps.Places {
		query = `
			INSERT INTO places (place_set_id, position, name, latitude, longitude, estimated_minutes, priority)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id
		`
		params := []any{ps.ID, i, place.Name, place.Latitude, place.Longitude, place.EstimatedMinutes, place.Priority}

		var placeID int64
		if err := tx.QueryRowContext(ctx, query, params...).Scan(&placeID); err != nil {
			return err
		}

		for day, hours := range place.OpeningHours {
			query = `
				INSERT INTO place_opening_hours (place_id, day, hours)
				VALUES ($1, $2, $3)
			`
			if _, err := tx.ExecContext(ctx, query, placeID, day, hours); err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}

// GetAllPlaceSets 只返回地点集合的基本信息，不包含地点
func (r *Repository) GetAllPlaceSets() ([]*domain.PlaceSet, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		SELECT id, name, destination, created_at, version
		FROM place_sets
		ORDER BY id
	`

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sets := make([]*domain.PlaceSet, 0)
	for rows.Next() {
		ps := &domain.PlaceSet{}
		if err := rows.Scan(&ps.ID, &ps.Name, &ps.Destination, &ps.CreatedAt, &ps.Version); err != nil {
			return nil, err
		}
		sets = append(sets, ps)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sets, nil
}

// GetPlaceSetByID 地点集合不存在时返回 sql.ErrNoRows
func (r *Repository) GetPlaceSetByID(id int64) (*domain.PlaceSet, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		SELECT
			ps.name,
			ps.destination,
			ps.created_at,
			ps.version,
			p.id,
			p.position,
			p.name,
			p.latitude,
			p.longitude,
			p.estimated_minutes,
			p.priority,
			poh.day,
			poh.hours
		FROM place_sets ps
		LEFT JOIN places p ON ps.id = p.place_set_id
		LEFT JOIN place_opening_hours poh ON p.id = poh.place_id
		WHERE ps.id = $1
		ORDER BY p.position
	`

	rows, err := r.dbpool.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ps := &domain.PlaceSet{
		ID: id,
	}
	found := false
	placesMap := make(map[int64]*domain.Place)
	positions := make(map[int64]int32)

	for rows.Next() {
		var row struct {
			Name        string
			Destination string
			CreatedAt   time.Time
			Version     int32

			PlaceID          sql.NullInt64
			Position         sql.NullInt32
			PlaceName        sql.NullString
			Latitude         sql.NullFloat64
			Longitude        sql.NullFloat64
			EstimatedMinutes sql.NullInt32
			Priority         sql.NullBool
			Day              sql.NullString
			Hours            sql.NullString
		}

		dst := []any{
			&row.Name,
			&row.Destination,
			&row.CreatedAt,
			&row.Version,
			&row.PlaceID,
			&row.Position,
			&row.PlaceName,
			&row.Latitude,
			&row.Longitude,
			&row.EstimatedMinutes,
			&row.Priority,
			&row.Day,
			&row.Hours,
		}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}

		if !found {
			found = true
			ps.Name = row.Name
			ps.Destination = row.Destination
			ps.CreatedAt = row.CreatedAt
			ps.Version = row.Version
		}

		if !row.PlaceID.Valid {
			// 说明该集合中没有任何地点
			continue
		}

		place, exists := placesMap[row.PlaceID.Int64]
		if !exists {
			place = &domain.Place{
				Name:             row.PlaceName.String,
				Latitude:         row.Latitude.Float64,
				Longitude:        row.Longitude.Float64,
				OpeningHours:     make(map[string]string, len(domain.Weekdays)),
				EstimatedMinutes: int(row.EstimatedMinutes.Int32),
				Priority:         row.Priority.Bool,
			}
			placesMap[row.PlaceID.Int64] = place
			positions[row.PlaceID.Int64] = row.Position.Int32
		}

		if !row.Day.Valid {
			// 缺少营业时间的日期视为闭馆
			continue
		}

		place.OpeningHours[row.Day.String] = row.Hours.String
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	if !found {
		return nil, sql.ErrNoRows
	}

	// 按插入时的顺序还原地点，行号即为最优个体中使用的下标
	ids := make([]int64, 0, len(placesMap))
	for placeID := range placesMap {
		ids = append(ids, placeID)
	}
	sort.Slice(ids, func(i, j int) bool {
		return positions[ids[i]] < positions[ids[j]]
	})

	ps.Places = make([]domain.Place, 0, len(ids))
	for _, placeID := range ids {
		ps.Places = append(ps.Places, *placesMap[placeID])
	}

	return ps, nil
}

func (r *Repository) UpdatePlaceSet(ps *domain.PlaceSet) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		UPDATE place_sets
		SET
			name = $1,
			destination = $2,
			version = version + 1
		WHERE id = $3 AND version = $4
		RETURNING version
	`

	params := []any{ps.Name, ps.Destination, ps.ID, ps.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, params...).Scan(&ps.Version); err != nil {
		return err
	}

	return nil
}

func (r *Repository) DeletePlaceSet(id int64) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		DELETE FROM place_sets WHERE id = $1
	`

	result, err := r.dbpool.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	return nil
}
