package main

import (
	"context"
	"os"
	"time"

	"dispatch-core/internal/backend"
	"dispatch-core/internal/dispatch"
	"dispatch-core/internal/handler"
	"dispatch-core/internal/server"
	"dispatch-core/internal/service"
	"dispatch-core/internal/service/mq"
	"dispatch-core/internal/wallet"

	"dispatch-core/pkg/config"
	"dispatch-core/pkg/database"
	"dispatch-core/pkg/logger"
	"dispatch-core/pkg/monitor"
	"dispatch-core/pkg/utils/lock"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// 0. 配置和日志
	config.Init()
	logger.Init(config.Global.App.Env)
	defer logger.Sync()

	if config.Global.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	monitor.Init()

	// 1. 数据库和 Redis
	db, err := database.ConnectPostgres(config.Global.DB.DSN(), config.Global.DB.Debug)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	defer database.Close(db)

	rdb, err := database.ConnectRedis(config.Global.Redis.Addr, config.Global.Redis.Password, config.Global.Redis.DB)
	if err != nil {
		logger.Fatal("Redis 连接失败", zap.Error(err))
	}
	defer rdb.Close()

	// 2. 钱包
	walletCfg := config.Global.Wallet
	password := walletCfg.Password
	if password == "" {
		password = os.Getenv("WALLET_PASSWORD")
	}
	dialCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	w, err := wallet.Open(dialCtx, wallet.Options{
		Mode:           walletCfg.Mode,
		RpcURL:         walletCfg.RpcUrl,
		Account:        walletCfg.Account,
		KeystorePath:   walletCfg.KeystorePath,
		Password:       password,
		DerivationPath: walletCfg.DerivationPath,
		NodeRpcURL:     walletCfg.NodeRpcUrl,
	})
	cancel()
	if err != nil {
		logger.Fatal("钱包初始化失败", zap.Error(err))
	}
	defer w.Close()

	// 3. 后端客户端
	backendClient, err := backend.NewClient(backend.Config{
		BaseURL: config.Global.Backend.BaseURL,
		Token:   config.Global.Backend.Token,
		Timeout: config.Global.Backend.Timeout,
	})
	if err != nil {
		logger.Fatal("后端客户端初始化失败", zap.Error(err))
	}

	// 4. 派发引擎
	dc := config.Global.Dispatch
	engine := dispatch.New(w.Port, w.Sender, backendClient, dispatch.Options{
		SendCallsVersion:   dc.SendCallsVersion,
		PollMaxAttempts:    dc.PollMaxAttempts,
		PollInterval:       dc.PollInterval,
		RequireGaslessFlag: dc.RequireGaslessFlag,
		OnTransition:       service.TransitionHook,
	})

	store := service.NewGormRecordStore(db, dc.EventTopic)
	dispatchService := service.NewDispatchService(
		backendClient,
		engine,
		dispatch.NewCapabilityProbe(w.Port),
		lock.NewRedisLock(rdb),
		store,
		dc.LockTTL,
	)

	// 5. 消息队列
	var producer mq.Producer
	if config.Global.Redis.MQType == "kafka" {
		logger.Info("使用 Kafka 作为消息队列...", zap.Strings("brokers", config.Global.Kafka.Brokers))
		producer = mq.NewKafkaProducer(config.Global.Kafka.Brokers, config.Global.Kafka.Topic)
	} else {
		logger.Info("使用 Redis Streams 作为消息队列...")
		producer = mq.NewRedisProducer(rdb, 100000)
	}
	defer producer.Close()

	relayService := service.NewRelayService(store, producer)

	// 6. HTTP
	r := server.NewHTTPRouter(handler.NewDispatchHandler(dispatchService))

	// 关闭时要等进行中的派发走完轮询
	shutdown := time.Duration(dc.PollMaxAttempts)*dc.PollInterval + config.Global.Backend.Timeout*2
	app := server.New(server.Config{
		HttpPort:        config.Global.App.HttpPort,
		ShutdownTimeout: shutdown,
	}, r)
	app.Go(relayService.Start)

	app.Run()
	logger.Info("系统已退出")
}
