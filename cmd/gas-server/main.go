package main

import (
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"wallet-gas/internal/handler"
	"wallet-gas/internal/model"
	"wallet-gas/internal/server"
	"wallet-gas/internal/service"
	"wallet-gas/internal/service/mq"
	"wallet-gas/internal/service/observer"
	"wallet-gas/pkg/config"
	"wallet-gas/pkg/database"
	"wallet-gas/pkg/lock"
	"wallet-gas/pkg/logger"
	"wallet-gas/pkg/storage"
	"wallet-gas/pkg/units"
)

func main() {
	// 0. 初始化 Config
	config.Init()
	cfg := config.Global

	// 1. 初始化 Logger
	logger.Init(cfg.App.Env)
	defer logger.Sync()

	// 2. 连接 Redis (只有 redis/tiered 存储或 Redis Streams 发布时需要)
	var rdb *redis.Client
	if cfg.Fee.Store != "memory" || (cfg.Fee.DraftTopic != "" && cfg.Redis.MQType != "kafka") {
		var err error
		rdb, err = database.ConnectRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Fatal("Redis 连接失败", zap.Error(err))
		}
	}

	// 3. 自定义默认值存储 + 编辑锁
	var (
		store  storage.Persistence
		locker lock.DistributedLock
	)
	switch cfg.Fee.Store {
	case "redis":
		store = storage.NewRedisStore(rdb)
		locker = lock.NewRedisLock(rdb)
	case "tiered":
		store = storage.NewTieredStore(storage.NewMemoryStoreWithTTL(cfg.Fee.LocalCacheTTL), storage.NewRedisStore(rdb))
		locker = lock.NewRedisLock(rdb)
	default:
		store = storage.NewMemoryStore()
		locker = lock.NewLocalLock()
	}
	logger.Info("custom default store ready", zap.String("store", cfg.Fee.Store))

	// 4. 网络费用估算
	var provider service.FeeEstimateProvider
	if cfg.Fee.RpcUrl != "" {
		obs, err := observer.Dial(cfg.Fee.RpcUrl, cfg.Fee.Network, 12*time.Second)
		if err != nil {
			logger.Fatal("连接 RPC 节点失败", zap.Error(err))
		}
		provider = obs
	} else {
		logger.Warn("fee.rpc_url 未配置，使用静态费用估算")
		static := service.NewStaticEstimateProvider()
		if err := static.SetEstimates(cfg.Fee.Network, devEstimates()); err != nil {
			logger.Fatal("静态费用估算无效", zap.Error(err))
		}
		provider = static
	}

	// 5. 业务服务
	defaults := service.NewCustomDefaultService(store)
	tiers := service.NewTierService(provider, defaults)
	safety := service.NewSafetyService(provider)
	drafts := service.NewDraftService(tiers, cfg.Fee.DefaultGasLimit)
	flow := service.NewEditFlowService(drafts, tiers, safety, defaults, locker, cfg.Fee.LockTTL)

	// 6. 草稿事件发布 (其他进程中的窗口订阅)
	var producer mq.Producer
	var publisher *service.DraftPublisher
	if cfg.Fee.DraftTopic != "" {
		if cfg.Redis.MQType == "kafka" {
			logger.Info("使用 Kafka 发布草稿事件...", zap.Strings("brokers", cfg.Kafka.Brokers))
			producer = mq.NewKafkaProducer(cfg.Kafka.Brokers, cfg.Fee.DraftTopic)
		} else {
			logger.Info("使用 Redis Streams 发布草稿事件...")
			producer = mq.NewRedisProducer(rdb, 10000)
		}
		publisher = service.NewDraftPublisher(producer, cfg.Fee.DraftTopic)
		publisher.Attach(drafts)
	}

	// 7. 定时清理无人处理的草稿
	janitor := service.NewCronService(drafts, flow, cfg.Fee.DraftIdleTTL)
	janitor.Start()

	// 8. HTTP
	r := server.NewHTTPRouter(handler.NewGasFeeHandler(drafts, flow, tiers, cfg.Fee.Network))
	app := server.New(server.Config{HttpPort: cfg.App.HttpPort}, r)

	// 9. 退出后资源清理
	app.OnShutdown(janitor.Stop)
	if publisher != nil {
		app.OnShutdown(publisher.Close)
	}
	if kp, ok := producer.(*mq.KafkaProducer); ok {
		app.OnShutdown(func() {
			if err := kp.Close(); err != nil {
				logger.Error("关闭 Kafka Producer 失败", zap.Error(err))
			}
		})
	}
	if rdb != nil {
		app.OnShutdown(func() {
			logger.Info("正在关闭 Redis 连接...")
			_ = rdb.Close()
		})
	}

	// 运行 (阻塞)
	app.Run()
	logger.Info("系统已退出")
}

// devEstimates 未配置 RPC 时的静态估算
func devEstimates() model.FeeEstimates {
	return model.FeeEstimates{
		Low:        model.FeeEstimate{MaxFeePerGas: units.GweiToWei(25), MaxPriorityFeePerGas: units.GweiToWei(1), EstimatedConfirmSeconds: 60},
		Medium:     model.FeeEstimate{MaxFeePerGas: units.GweiToWei(40), MaxPriorityFeePerGas: units.GweiToWei(2), EstimatedConfirmSeconds: 30},
		High:       model.FeeEstimate{MaxFeePerGas: units.GweiToWei(60), MaxPriorityFeePerGas: units.GweiToWei(3), EstimatedConfirmSeconds: 15},
		Congestion: 0.5,
	}
}
