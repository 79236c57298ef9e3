package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/sysu-ecnc-dev/itinerary-planner/backend/internal/config"
	"github.com/sysu-ecnc-dev/itinerary-planner/backend/internal/handler"
	"github.com/sysu-ecnc-dev/itinerary-planner/backend/internal/repository"
	"github.com/sysu-ecnc-dev/itinerary-planner/backend/internal/seed"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	var (
		op          int
		n           int
		size        int
		randomSeed  int64
		area        seed.Area
		file        string
		name        string
		destination string
		subject     string
	)

	flag.IntVar(&op, "op", 0, "要执行的操作 (1: 插入随机地点集合, 2: 从 CSV 导入地点集合, 3: 签发访问令牌)")
	flag.IntVar(&n, "n", 5, "要插入的地点集合数量")
	flag.IntVar(&size, "size", 12, "每个随机地点集合包含的地点数量")
	flag.Int64Var(&randomSeed, "seed", 0, "随机数种子，0 表示使用当前时间")
	flag.StringVar(&area.Name, "area", "lisboa", "随机地点所在的区域名称")
	flag.Float64Var(&area.Latitude, "lat", 38.7223, "随机地点的中心纬度")
	flag.Float64Var(&area.Longitude, "lng", -9.1393, "随机地点的中心经度")
	flag.Float64Var(&area.RadiusKm, "radius", 5, "随机地点的范围（千米）")
	flag.StringVar(&file, "file", "", "要导入的地点表 CSV 文件")
	flag.StringVar(&name, "name", "", "导入的地点集合名称")
	flag.StringVar(&destination, "destination", "", "导入的地点集合目的地")
	flag.StringVar(&subject, "sub", "seed", "令牌的 subject")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	// 读取配置文件
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法读取配置文件", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 签发令牌不需要连接数据库
	if op == 3 {
		token, err := handler.IssueToken(cfg.JWT.Secret, subject, time.Duration(cfg.JWT.Expiration)*time.Second)
		if err != nil {
			logger.Error("无法签发令牌", slog.String("error", err.Error()))
			os.Exit(1)
		}
		fmt.Println(token)
		return
	}

	// 创建数据库连接池
	dbpool, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		logger.Error("无法创建数据库连接池", "error", err)
		return
	}
	defer dbpool.Close()

	dbpool.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	dbpool.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	dbpool.SetConnMaxIdleTime(time.Duration(cfg.Database.MaxIdleTime) * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer cancel()

	// sql.Open 只是创建数据库连接池对象，并不会立即连接到数据库，因此需要显式地 ping 一下
	if err := dbpool.PingContext(ctx); err != nil {
		logger.Error("无法连接到数据库", "error", err)
		return
	}

	// 创建 repository
	repo := repository.NewRepository(cfg, dbpool)

	// 执行操作
	switch op {
	case 0:
		slog.Error("未指定操作")
	case 1:
		if n <= 0 || size <= 0 {
			slog.Error("请输入合法的地点集合数量和地点数量")
			return
		}
		if randomSeed == 0 {
			randomSeed = time.Now().UnixNano()
		}

		cnt := seed.RandomPlaceSets(repo, rand.New(rand.NewSource(randomSeed)), area, n, size)
		slog.Info("插入地点集合成功", slog.Int("count", cnt), slog.Int64("seed", randomSeed))
	case 2:
		if file == "" || name == "" {
			slog.Error("请指定要导入的文件和地点集合名称")
			return
		}

		ps, err := seed.ImportCSV(repo, file, name, destination)
		if err != nil {
			slog.Error("导入地点集合失败", slog.String("error", err.Error()))
			return
		}
		slog.Info("导入地点集合成功", slog.Int64("id", ps.ID), slog.Int("places", len(ps.Places)))
	default:
		slog.Error("指定的操作非法")
	}
}
