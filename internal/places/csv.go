package places

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sysu-ecnc-dev/itinerary-planner/backend/internal/domain"
)

// 地点表的列名
const (
	ColumnName      = "places"
	ColumnLatitude  = "latitude"
	ColumnLongitude = "longitude"
	ColumnDuration  = "estimated_duration_min"
	ColumnPriority  = "priority"
)

// RequiredColumns 地点表必须包含的列，顺序无关
var RequiredColumns = slices.Concat(
	[]string{ColumnName, ColumnLatitude, ColumnLongitude},
	domain.Weekdays,
	[]string{ColumnDuration, ColumnPriority},
)

// RowError 地点表中某一行不合法，整张表都会被拒绝
type RowError struct {
	Row    int // 从 1 开始，不包含表头
	Column string
	Err    error
}

func (e *RowError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("第 %d 行: %v", e.Row, e.Err)
	}
	return fmt.Sprintf("第 %d 行的 %s 列: %v", e.Row, e.Column, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

type Reader struct {
	validate *validator.Validate
}

func NewReader(validate *validator.Validate) *Reader {
	if validate == nil {
		validate = validator.New(validator.WithRequiredStructEnabled())
	}
	return &Reader{validate: validate}
}

// ReadCSV 读取地点表，缺少列或任意一行不合法都会返回错误
// HOTEL 行会原样返回，由调用方决定如何处理
func (rd *Reader) ReadCSV(r io.Reader) ([]domain.Place, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("地点表为空")
		}
		return nil, err
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(name)] = i
	}

	var missing []string
	for _, name := range RequiredColumns {
		if _, ok := columns[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("地点表缺少列: %s", strings.Join(missing, ", "))
	}

	var places []domain.Place
	for row := 1; ; row++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &RowError{Row: row, Err: err}
		}

		place, err := rd.parseRow(row, record, columns)
		if err != nil {
			return nil, err
		}
		places = append(places, place)
	}

	if len(places) == 0 {
		return nil, errors.New("地点表为空")
	}

	return places, nil
}

func (rd *Reader) parseRow(row int, record []string, columns map[string]int) (domain.Place, error) {
	cell := func(name string) string {
		return strings.TrimSpace(record[columns[name]])
	}

	place := domain.Place{
		Name:         cell(ColumnName),
		OpeningHours: make(map[string]string, len(domain.Weekdays)),
	}

	var err error
	if place.Latitude, err = strconv.ParseFloat(cell(ColumnLatitude), 64); err != nil {
		return place, &RowError{Row: row, Column: ColumnLatitude, Err: err}
	}
	if place.Longitude, err = strconv.ParseFloat(cell(ColumnLongitude), 64); err != nil {
		return place, &RowError{Row: row, Column: ColumnLongitude, Err: err}
	}
	if place.EstimatedMinutes, err = strconv.Atoi(cell(ColumnDuration)); err != nil {
		return place, &RowError{Row: row, Column: ColumnDuration, Err: err}
	}
	if place.Priority, err = parsePriority(cell(ColumnPriority)); err != nil {
		return place, &RowError{Row: row, Column: ColumnPriority, Err: err}
	}
	for _, day := range domain.Weekdays {
		place.OpeningHours[day] = cell(day)
	}

	if err := rd.validate.Struct(place); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return place, &RowError{Row: row, Column: validationErrors[0].Field(), Err: err}
		}
		return place, &RowError{Row: row, Err: err}
	}

	return place, nil
}

// parsePriority 只接受 0 和 1
func parsePriority(s string) (bool, error) {
	switch s {
	case "0":
		return false, nil
	case "1":
		return true, nil
	}
	return false, fmt.Errorf("优先级只能是 0 或 1，而不是 %q", s)
}

// SplitHotel 将地点表中的 HOTEL 行取出，其余地点按原顺序返回
// rows[i] 是 rest[i] 在原表中的下标，地点表中最多只能有一个 HOTEL 行
func SplitHotel(places []domain.Place) (hotel *domain.Place, rest []domain.Place, rows []int, err error) {
	rest = make([]domain.Place, 0, len(places))
	rows = make([]int, 0, len(places))

	for i := range places {
		if places[i].Name == domain.HotelName {
			if hotel != nil {
				return nil, nil, nil, &RowError{Row: i + 1, Column: ColumnName, Err: fmt.Errorf("%s 只能出现一次", domain.HotelName)}
			}
			hotel = &places[i]
			continue
		}
		rest = append(rest, places[i])
		rows = append(rows, i)
	}

	return hotel, rest, rows, nil
}

// WriteCSV 按 RequiredColumns 的顺序写出地点表
func WriteCSV(w io.Writer, places []domain.Place) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(RequiredColumns); err != nil {
		return err
	}

	for _, place := range places {
		record := []string{
			place.Name,
			strconv.FormatFloat(place.Latitude, 'f', -1, 64),
			strconv.FormatFloat(place.Longitude, 'f', -1, 64),
		}
		for _, day := range domain.Weekdays {
			record = append(record, place.OpeningHours[day])
		}
		priority := "0"
		if place.Priority {
			priority = "1"
		}
		record = append(record, strconv.Itoa(place.EstimatedMinutes), priority)

		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
