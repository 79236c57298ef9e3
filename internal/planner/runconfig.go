package planner

import (
	"errors"
	"io"

	"github.com/sysu-ecnc-dev/itinerary-planner/backend/internal/domain"
	"gopkg.in/yaml.v3"
)

// RunConfig 命令行工具使用的运行配置文件
//
//	startDate: 2024-05-06
//	endDate: 2024-05-08
//	lodging:
//	  address: Rua Augusta 1, Lisboa
//	parameters:
//	  populationSize: 80
//	  seed: 42
type RunConfig struct {
	StartDate string `yaml:"startDate"`
	EndDate   string `yaml:"endDate"`
	Lodging   struct {
		Address   string   `yaml:"address"`
		Latitude  *float64 `yaml:"latitude"`
		Longitude *float64 `yaml:"longitude"`
	} `yaml:"lodging"`
	Parameters domain.RunParameters `yaml:"parameters"`
}

func LoadRunConfig(r io.Reader) (*RunConfig, error) {
	rc := &RunConfig{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(rc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("运行配置为空")
		}
		return nil, err
	}
	return rc, nil
}

// Request 把运行配置和地点表组合成行程请求，matrix 为 nil 时由 Provider 获取
func (rc *RunConfig) Request(places []domain.Place, matrix *domain.TravelMatrix) *domain.ItineraryRequest {
	return &domain.ItineraryRequest{
		Places: places,
		Matrix: matrix,
		Lodging: domain.Lodging{
			Address:   rc.Lodging.Address,
			Latitude:  rc.Lodging.Latitude,
			Longitude: rc.Lodging.Longitude,
		},
		StartDate:  rc.StartDate,
		EndDate:    rc.EndDate,
		Parameters: rc.Parameters,
	}
}
