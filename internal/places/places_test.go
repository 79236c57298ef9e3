package places

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sysu-ecnc-dev/itinerary-planner/backend/internal/domain"
)

const sampleCSV = `places,latitude,longitude,mon,tue,wed,thu,fri,sat,sun,estimated_duration_min,priority
HOTEL,35.0116,135.7681,00:00-23:59,00:00-23:59,00:00-23:59,00:00-23:59,00:00-23:59,00:00-23:59,00:00-23:59,0,0
Fushimi Inari Taisha,34.9671,135.7727,00:00-23:59,00:00-23:59,00:00-23:59,00:00-23:59,00:00-23:59,00:00-23:59,00:00-23:59,120,1
Kinkaku-ji,35.0394,135.7292,09:00-17:00,09:00-17:00,09:00-17:00,09:00-17:00,09:00-17:00,09:00-17:00,Closed,60,0
`

func TestReadCSV(t *testing.T) {
	places, err := NewReader(nil).ReadCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Len(t, places, 3)

	kinkaku := places[2]
	assert.Equal(t, "Kinkaku-ji", kinkaku.Name)
	assert.InDelta(t, 35.0394, kinkaku.Latitude, 1e-9)
	assert.Equal(t, 60, kinkaku.EstimatedMinutes)
	assert.False(t, kinkaku.Priority)
	assert.Equal(t, "Closed", kinkaku.OpeningHours["sun"])
	assert.Equal(t, "09:00-17:00", kinkaku.OpeningHours["mon"])
	assert.True(t, places[1].Priority)

	hotel, rest, rows, err := SplitHotel(places)
	require.NoError(t, err)
	require.NotNil(t, hotel)
	assert.Equal(t, domain.HotelName, hotel.Name)
	require.Len(t, rest, 2)
	assert.Equal(t, "Fushimi Inari Taisha", rest[0].Name)
	assert.Equal(t, []int{1, 2}, rows)
}

func TestSplitHotel(t *testing.T) {
	table := []domain.Place{{Name: "A"}, {Name: domain.HotelName}, {Name: "B"}}

	hotel, rest, rows, err := SplitHotel(table)
	require.NoError(t, err)
	require.NotNil(t, hotel)
	assert.Equal(t, []int{0, 2}, rows)
	for i, place := range rest {
		assert.Equal(t, table[rows[i]].Name, place.Name)
	}

	hotel, rest, rows, err = SplitHotel(table[:1])
	require.NoError(t, err)
	assert.Nil(t, hotel)
	assert.Len(t, rest, 1)
	assert.Equal(t, []int{0}, rows)

	table = append(table, domain.Place{Name: domain.HotelName})
	_, _, _, err = SplitHotel(table)
	var rowErr *RowError
	require.ErrorAs(t, err, &rowErr)
	assert.Equal(t, 4, rowErr.Row)
	assert.Equal(t, ColumnName, rowErr.Column)
}

func TestReadCSVColumnOrderDoesNotMatter(t *testing.T) {
	in := "priority,estimated_duration_min,sun,sat,fri,thu,wed,tue,mon,longitude,latitude,places\n" +
		"1,45,Closed,Closed,Closed,Closed,Closed,Closed,10:00-12:00,2.35,48.85,Louvre\n"

	places, err := NewReader(nil).ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, places, 1)
	assert.Equal(t, "Louvre", places[0].Name)
	assert.Equal(t, "10:00-12:00", places[0].OpeningHours["mon"])
	assert.Equal(t, 45, places[0].EstimatedMinutes)
}

func TestReadCSVMissingColumns(t *testing.T) {
	in := "places,latitude,longitude,mon\nA,1,2,Closed\n"

	_, err := NewReader(nil).ReadCSV(strings.NewReader(in))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "estimated_duration_min")
	assert.Contains(t, err.Error(), "priority")
}

func TestReadCSVRejectsBadRows(t *testing.T) {
	header := strings.Join(RequiredColumns, ",") + "\n"
	week := strings.Repeat("Closed,", 7)

	cases := []struct {
		name   string
		row    string
		column string
	}{
		{name: "latitude not a number", row: "A,north,2," + week + "30,0", column: ColumnLatitude},
		{name: "latitude out of range", row: "A,91,2," + week + "30,0", column: "Latitude"},
		{name: "duration not an integer", row: "A,1,2," + week + "half,0", column: ColumnDuration},
		{name: "negative duration", row: "A,1,2," + week + "-5,0", column: "EstimatedMinutes"},
		{name: "priority not 0 or 1", row: "A,1,2," + week + "30,yes", column: ColumnPriority},
		{name: "missing name", row: ",1,2," + week + "30,0", column: "Name"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := header + "OK,1,2," + week + "30,1\n" + tc.row + "\n"

			_, err := NewReader(nil).ReadCSV(strings.NewReader(in))
			var rowErr *RowError
			require.True(t, errors.As(err, &rowErr), "got %v", err)
			assert.Equal(t, 2, rowErr.Row)
			assert.Equal(t, tc.column, rowErr.Column)
		})
	}
}

func TestReadCSVEmpty(t *testing.T) {
	_, err := NewReader(nil).ReadCSV(strings.NewReader(""))
	require.Error(t, err)

	_, err = NewReader(nil).ReadCSV(strings.NewReader(strings.Join(RequiredColumns, ",") + "\n"))
	require.Error(t, err)
}

func TestWriteCSVRoundTrip(t *testing.T) {
	places, err := NewReader(nil).ReadCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, places))

	again, err := NewReader(nil).ReadCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, places, again)
}

func TestReadMatrixCSV(t *testing.T) {
	duration := "places,HOTEL,A,B\nHOTEL,0,5,7\nA,6,0,3\nB,8,4,0\n"
	// 距离表的地点顺序与出行时间表不同
	distance := "places,B,HOTEL,A\nB,0,640,320\nHOTEL,560,0,400\nA,240,480,0\n"

	m, err := ReadMatrixCSV(strings.NewReader(duration), strings.NewReader(distance))
	require.NoError(t, err)

	assert.Equal(t, []string{"HOTEL", "A", "B"}, m.Places)
	assert.Equal(t, [][]int{{0, 5, 7}, {6, 0, 3}, {8, 4, 0}}, m.Duration)
	assert.Equal(t, [][]int{{0, 400, 560}, {480, 0, 240}, {640, 320, 0}}, m.Distance)
}

func TestReadMatrixCSVErrors(t *testing.T) {
	good := "places,HOTEL,A\nHOTEL,0,5\nA,5,0\n"

	cases := map[string]struct{ duration, distance string }{
		"row names out of order": {duration: "places,HOTEL,A\nA,0,5\nHOTEL,5,0\n", distance: good},
		"not square":             {duration: "places,HOTEL,A\nHOTEL,0,5\n", distance: good},
		"bad number":             {duration: "places,HOTEL,A\nHOTEL,0,x\nA,5,0\n", distance: good},
		"different places":       {duration: good, distance: "places,HOTEL,B\nHOTEL,0,5\nB,5,0\n"},
		"different sizes":        {duration: good, distance: "places,HOTEL\nHOTEL,0\n"},
		"empty":                  {duration: "", distance: good},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ReadMatrixCSV(strings.NewReader(tc.duration), strings.NewReader(tc.distance))
			require.Error(t, err)
		})
	}
}

func TestWriteMatrixCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMatrixCSV(&buf, []string{"HOTEL", "A"}, [][]int{{0, 5}, {6, 0}}))
	assert.Equal(t, "places,HOTEL,A\nHOTEL,0,5\nA,6,0\n", buf.String())
}
