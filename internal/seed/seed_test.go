package seed

import (
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/itinerary-planner/backend/internal/domain"
)

type recordingCreator struct {
	sets []*domain.PlaceSet
	err  error
}

func (c *recordingCreator) CreatePlaceSet(ps *domain.PlaceSet) error {
	if c.err != nil {
		return c.err
	}
	ps.ID = int64(len(c.sets) + 1)
	c.sets = append(c.sets, ps)
	return nil
}

func TestRandomPlaceSets(t *testing.T) {
	repo := &recordingCreator{}
	area := Area{Name: "lisboa", Latitude: 38.7223, Longitude: -9.1393, RadiusKm: 5}

	cnt := RandomPlaceSets(repo, rand.New(rand.NewSource(1)), area, 3, 8)
	assert.Equal(t, 3, cnt)
	require.Len(t, repo.sets, 3)

	for _, ps := range repo.sets {
		require.Len(t, ps.Places, 9)
		assert.Equal(t, domain.HotelName, ps.Places[0].Name)
		assert.Equal(t, "lisboa", ps.Destination)
		for _, p := range ps.Places[1:] {
			assert.InDelta(t, area.Latitude, p.Latitude, 0.05)
		}
	}
}

func TestRandomPlaceSetsSkipsFailures(t *testing.T) {
	repo := &recordingCreator{err: errors.New("db down")}
	cnt := RandomPlaceSets(repo, rand.New(rand.NewSource(1)), Area{Name: "x", RadiusKm: 1}, 2, 3)
	assert.Zero(t, cnt)
}

func TestImportCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "places.csv")
	data := "places,latitude,longitude,mon,tue,wed,thu,fri,sat,sun,estimated_duration_min,priority\n" +
		"HOTEL,38.71,-9.14,,,,,,,,0,0\n" +
		"Museu,38.70,-9.14,09:00-18:00,09:00-18:00,Closed,09:00-18:00,09:00-18:00,10:00-14:00,Closed,60,1\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	repo := &recordingCreator{}
	ps, err := ImportCSV(repo, path, "lisboa", "Lisboa")
	require.NoError(t, err)
	assert.Equal(t, int64(1), ps.ID)
	require.Len(t, ps.Places, 2)
	assert.Equal(t, "Closed", ps.Places[1].OpeningHours["wed"])
}

func TestImportCSVRejectsInvalidTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "places.csv")
	data := "places,latitude,longitude,mon,tue,wed,thu,fri,sat,sun,estimated_duration_min,priority\n" +
		"HOTEL,38.71,-9.14,,,,,,,,0,0\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	repo := &recordingCreator{}
	_, err := ImportCSV(repo, path, "empty", "")
	assert.Error(t, err)
	assert.Empty(t, repo.sets)

	_, err = ImportCSV(repo, filepath.Join(t.TempDir(), "missing.csv"), "x", "")
	assert.Error(t, err)
}
