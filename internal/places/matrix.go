package places

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sysu-ecnc-dev/itinerary-planner/backend/internal/domain"
)

// ReadMatrixCSV 读取出行时间表（分钟）和距离表（米）
// 两张表的第一行和第一列都是地点名称，行是出发地，列是目的地；距离表按出行时间表的名称顺序对齐
func ReadMatrixCSV(duration, distance io.Reader) (*domain.TravelMatrix, error) {
	names, durations, err := readTable(duration)
	if err != nil {
		return nil, fmt.Errorf("读取出行时间表失败: %w", err)
	}
	distanceNames, distances, err := readTable(distance)
	if err != nil {
		return nil, fmt.Errorf("读取距离表失败: %w", err)
	}

	if len(distanceNames) != len(names) {
		return nil, errors.New("出行时间表和距离表的地点数量不一致")
	}
	index := make(map[string]int, len(distanceNames))
	for i, name := range distanceNames {
		index[name] = i
	}

	m := &domain.TravelMatrix{
		Places:   names,
		Duration: durations,
		Distance: make([][]int, len(names)),
	}
	for i, from := range names {
		fi, ok := index[from]
		if !ok {
			return nil, fmt.Errorf("距离表中缺少地点 %q", from)
		}
		m.Distance[i] = make([]int, len(names))
		for j, to := range names {
			m.Distance[i][j] = distances[fi][index[to]]
		}
	}

	return m, nil
}

// readTable 读取带行列名称的方阵，行名称必须与列名称顺序一致
func readTable(r io.Reader) ([]string, [][]int, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, errors.New("表格为空")
	}

	names := make([]string, 0, len(records[0])-1)
	for _, name := range records[0][1:] {
		names = append(names, strings.TrimSpace(name))
	}
	if len(records)-1 != len(names) {
		return nil, nil, fmt.Errorf("表格有 %d 列地点，但有 %d 行", len(names), len(records)-1)
	}

	values := make([][]int, len(names))
	for i, record := range records[1:] {
		if name := strings.TrimSpace(record[0]); name != names[i] {
			return nil, nil, fmt.Errorf("第 %d 行的地点 %q 与第 %d 列的地点 %q 不一致", i+1, name, i+1, names[i])
		}

		values[i] = make([]int, len(names))
		for j, cell := range record[1:] {
			v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
			if err != nil {
				return nil, nil, &RowError{Row: i + 1, Column: names[j], Err: err}
			}
			values[i][j] = int(v)
		}
	}

	return names, values, nil
}

// WriteMatrixCSV 以 ReadMatrixCSV 能读取的格式写出一张表
func WriteMatrixCSV(w io.Writer, names []string, values [][]int) error {
	cw := csv.NewWriter(w)

	header := append([]string{ColumnName}, names...)
	if err := cw.Write(header); err != nil {
		return err
	}
	for i, name := range names {
		record := make([]string, 0, len(names)+1)
		record = append(record, name)
		for _, v := range values[i] {
			record = append(record, strconv.Itoa(v))
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
