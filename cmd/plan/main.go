package main

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/sysu-ecnc-dev/itinerary-planner/backend/internal/config"
	"github.com/sysu-ecnc-dev/itinerary-planner/backend/internal/domain"
	"github.com/sysu-ecnc-dev/itinerary-planner/backend/internal/geocode"
	"github.com/sysu-ecnc-dev/itinerary-planner/backend/internal/places"
	"github.com/sysu-ecnc-dev/itinerary-planner/backend/internal/planner"
	"github.com/sysu-ecnc-dev/itinerary-planner/backend/internal/scheduler"
	"github.com/sysu-ecnc-dev/itinerary-planner/backend/internal/travel"
)

func main() {
	var (
		placesPath   string
		durationPath string
		distancePath string
		configPath   string
		outPath      string
		verbose      bool
	)

	flag.StringVar(&placesPath, "places", "", "地点表 CSV 文件（必填）")
	flag.StringVar(&durationPath, "duration", "", "出行时间矩阵 CSV 文件，为空时通过 Google Routes 或直线距离估算")
	flag.StringVar(&distancePath, "distance", "", "出行距离矩阵 CSV 文件，必须和 -duration 一起使用")
	flag.StringVar(&configPath, "config", "", "运行配置 YAML 文件（必填）")
	flag.StringVar(&outPath, "out", "", "结果输出文件，为空时输出到标准输出")
	flag.BoolVar(&verbose, "v", false, "输出每一代的日志")
	flag.Parse()

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if placesPath == "" || configPath == "" || (durationPath == "") != (distancePath == "") {
		flag.Usage()
		os.Exit(2)
	}

	// 命令行工具只需要遗传算法默认参数和 Google 相关配置
	sc, err := config.LoadSection[config.SchedulerConfig]("SCHEDULER_")
	if err != nil {
		logger.Error("无法读取遗传算法配置", "error", err)
		os.Exit(1)
	}
	gc, err := config.LoadSection[config.GoogleConfig]("GOOGLE_")
	if err != nil {
		logger.Error("无法读取 Google 配置", "error", err)
		os.Exit(1)
	}
	cfg := &config.Config{Scheduler: *sc, Google: *gc}

	rc, err := readRunConfig(configPath)
	if err != nil {
		logger.Error("无法读取运行配置", "error", err)
		os.Exit(1)
	}

	table, err := readPlaces(placesPath)
	if err != nil {
		logger.Error("无法读取地点表", "error", err)
		os.Exit(1)
	}

	var matrix *domain.TravelMatrix
	if durationPath != "" {
		matrix, err = readMatrix(durationPath, distancePath)
		if err != nil {
			logger.Error("无法读取出行矩阵", "error", err)
			os.Exit(1)
		}
	}

	var geocoder planner.Geocoder
	if cfg.Google.APIKey != "" {
		geocoder = geocode.NewClient(cfg)
	}
	p := planner.New(cfg, nil, geocoder, travel.NewProvider(cfg, nil))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := p.Plan(ctx, rc.Request(table, matrix), scheduler.WithLogger(logger))
	if err != nil {
		logger.Error("生成行程失败", "error", err)
		os.Exit(1)
	}

	var out io.Writer = os.Stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			logger.Error("无法创建输出文件", "error", err)
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		logger.Error("无法输出结果", "error", err)
		os.Exit(1)
	}
}

func readRunConfig(path string) (*planner.RunConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return planner.LoadRunConfig(f)
}

func readPlaces(path string) ([]domain.Place, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return places.NewReader(nil).ReadCSV(f)
}

func readMatrix(durationPath, distancePath string) (*domain.TravelMatrix, error) {
	duration, err := os.Open(durationPath)
	if err != nil {
		return nil, err
	}
	defer duration.Close()

	distance, err := os.Open(distancePath)
	if err != nil {
		return nil, err
	}
	defer distance.Close()

	return places.ReadMatrixCSV(duration, distance)
}
