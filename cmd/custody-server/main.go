package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"custody-core/internal/handler"
	"custody-core/internal/model"
	"custody-core/internal/server"
	"custody-core/internal/service"
	"custody-core/internal/service/mq"

	"custody-core/pkg/cache"
	"custody-core/pkg/chainrpc"
	"custody-core/pkg/config"
	"custody-core/pkg/database"
	"custody-core/pkg/device"
	"custody-core/pkg/keystore"
	"custody-core/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"

	_ "custody-core/docs"
)

// @title Custody Core API
// @version 1.0
// @description PIN-gated hardware wallet signing and broadcast service
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url http://www.swagger.io/support
// @contact.email support@swagger.io

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8080
// @BasePath /api/v1
func main() {
	// 0. 初始化 Config
	config.Init()

	// 1. 初始化 Logger
	logger.Init(config.Global.App.Env)
	defer logger.Sync()

	// 2. 构造 DSN 并连接数据库
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=Asia/Shanghai",
		config.Global.DB.Host,
		config.Global.DB.User,
		config.Global.DB.Password,
		config.Global.DB.Name,
		config.Global.DB.Port,
	)

	db, err := database.ConnectPostgres(dsn)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}

	// 3. 连接 Redis
	rdb, err := database.ConnectRedis(config.Global.Redis.Addr, config.Global.Redis.Password, config.Global.Redis.DB)
	if err != nil {
		logger.Fatal("Redis 连接失败", zap.Error(err))
	}

	// 4. 数据库迁移 (仅开发环境)
	if config.Global.App.Env == "development" {
		logger.Info("开发环境: 尝试自动迁移 Schema (GORM AutoMigrate)...")
		if err := db.AutoMigrate(model.AllModels()...); err != nil {
			logger.Fatal("数据库自动迁移失败", zap.Error(err))
		}
	} else {
		logger.Info("生产环境: 跳过 AutoMigrate，请使用 migrate 工具管理 Schema")
	}

	// 5. 播种链配置
	chainService := service.NewChainService(db)
	if err := chainService.Seed(context.Background()); err != nil {
		logger.Fatal("链配置播种失败", zap.Error(err))
	}

	// 6. 加载并解密设备种子
	// Keystore 是唯一落盘形态，助记词只存在于设备内存里
	deviceCfg := config.Global.Device
	keyJSON, err := keystore.LoadFromFile(deviceCfg.KeystorePath)
	if err != nil {
		logger.Fatal("读取 Keystore 失败，请先运行 custody-cli init", zap.Error(err))
	}
	mnemonic, err := keystore.DecryptSeed(keyJSON, deviceCfg.Password)
	if err != nil {
		logger.Fatal("Keystore 解密失败", zap.Error(err))
	}

	// 7. 初始化模拟签名设备
	dev, err := device.NewSimulated(
		deviceCfg.Name,
		deviceCfg.PinHash,
		deviceCfg.PinLength,
		mnemonic,
		deviceCfg.Resettable,
	)
	if err != nil {
		logger.Fatal("设备初始化失败", zap.Error(err))
	}
	keystoreJSON, err := json.Marshal(keyJSON)
	if err != nil {
		logger.Fatal("序列化 Keystore 失败", zap.Error(err))
	}
	deviceID := ensureDevice(db, deviceCfg.Name, deviceCfg.PinHash, deviceCfg.PinLength, string(keystoreJSON))

	// 8. 初始化 RPC 网关
	gateway, err := chainrpc.NewEthGateway(config.Global.Chains.Endpoints)
	if err != nil {
		logger.Fatal("RPC 网关初始化失败", zap.Error(err))
	}

	// 9. 会话缓存走 Redis，带 TTL 自动过期
	var sessionCache cache.Cache = cache.NewRedisCache(rdb)

	// 10. 初始化消息队列
	mqType := config.Global.Redis.MQType
	var producer mq.Producer
	if mqType == "kafka" {
		logger.Info("使用 Kafka 作为消息队列...")
		producer = mq.NewKafkaProducer(config.Global.Kafka.Brokers, service.TopicTransactionRecorded)
	} else {
		logger.Info("使用 Redis Streams 作为消息队列...")
		producer = mq.NewRedisProducer(rdb)
	}

	// 11. 组装服务层
	walletService := service.NewWalletService(db)
	recorderService := service.NewRecorderService(db)
	sessionService := service.NewSessionService(
		dev,
		chainService,
		walletService,
		sessionCache,
		deviceID,
		deviceCfg.SeedGroups,
		time.Duration(config.Global.Session.UnlockTTLMinutes)*time.Minute,
	)
	signingService := service.NewSigningService(
		dev,
		gateway,
		recorderService,
		sessionService,
		chainService,
		walletService,
		deviceID,
	)

	// 12. 启动消息中继
	relayService := service.NewRelayService(db, producer)
	go relayService.Start(context.Background())

	// 13. HTTP Router
	r := server.NewHTTPRouter(
		handler.NewDeviceHandler(sessionService),
		handler.NewTransactionHandler(signingService, recorderService),
		handler.NewWalletHandler(walletService, chainService, deviceID),
	)

	// 14. 运行 (阻塞)
	app := server.New(server.Config{HttpPort: config.Global.App.HttpPort}, r)
	app.Run()

	// 15. 退出后资源清理
	logger.Info("正在关闭数据库连接...")
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
	rdb.Close()
	logger.Info("系统已退出")
}

// ensureDevice 保证设备表里有本机设备的一行，返回其 ID。
// 加密后的 Keystore 随设备落库，老行缺失时顺带补上。
func ensureDevice(db *gorm.DB, name, pinHash string, pinLength int, seedKeystore string) uint64 {
	var dev model.Device
	err := db.Where("name = ?", name).First(&dev).Error
	if err == nil {
		if dev.SeedKeystore == "" && seedKeystore != "" {
			if err := db.Model(&dev).Update("seed_keystore", seedKeystore).Error; err != nil {
				logger.Warn("补写设备 Keystore 失败", zap.Error(err))
			}
		}
		return dev.ID
	}

	dev = model.Device{
		Name:         name,
		PinHash:      pinHash,
		PinLength:    pinLength,
		SeedKeystore: seedKeystore,
	}
	if err := db.Create(&dev).Error; err != nil {
		logger.Fatal("设备登记失败", zap.Error(err))
	}
	logger.Info("设备已登记", zap.Uint64("device_id", dev.ID), zap.String("name", name))
	return dev.ID
}
