package seed

import (
	"fmt"
	"log/slog"
	"math/rand"
	"os"

	"github.com/sysu-ecnc-dev/itinerary-planner/backend/internal/domain"
	"github.com/sysu-ecnc-dev/itinerary-planner/backend/internal/places"
	"github.com/sysu-ecnc-dev/itinerary-planner/backend/internal/utils"
)

type PlaceSetCreator interface {
	CreatePlaceSet(ps *domain.PlaceSet) error
}

// Area 随机地点的生成范围
type Area struct {
	Name      string
	Latitude  float64
	Longitude float64
	RadiusKm  float64
}

// RandomPlaceSets 在 area 内随机生成 n 个地点集合，每个集合包含 size 个地点和一个 HOTEL 行
// 返回成功插入的数量
func RandomPlaceSets(repo PlaceSetCreator, rng *rand.Rand, area Area, n, size int) int {
	cnt := 0
	for i := 0; i < n; i++ {
		table := utils.GenerateRandomPlaces(rng, size, area.Latitude, area.Longitude, area.RadiusKm)
		hotel := domain.NewHotel(area.Latitude, area.Longitude)

		ps := &domain.PlaceSet{
			Name:        fmt.Sprintf("%s-%s", area.Name, utils.GenerateRandomID(4, 4)),
			Destination: area.Name,
			Places:      append([]domain.Place{hotel}, table...),
		}
		if err := repo.CreatePlaceSet(ps); err != nil {
			slog.Error("无法插入地点集合", "error", err)
			continue
		}

		cnt++
	}
	return cnt
}

// ImportCSV 把地点表文件导入为一个地点集合，文件中的 HOTEL 行会作为默认住宿一并保存
func ImportCSV(repo PlaceSetCreator, path, name, destination string) (*domain.PlaceSet, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	table, err := places.NewReader(nil).ReadCSV(file)
	if err != nil {
		return nil, err
	}

	_, candidates, _, err := places.SplitHotel(table)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidatePlaces(candidates); err != nil {
		return nil, err
	}

	ps := &domain.PlaceSet{
		Name:        name,
		Destination: destination,
		Places:      table,
	}
	if err := repo.CreatePlaceSet(ps); err != nil {
		return nil, err
	}
	return ps, nil
}
