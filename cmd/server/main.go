package main

import (
	"math/rand"
	"time"

	"github.com/LolHubFun/server-vps/internal/cache"
	"github.com/LolHubFun/server-vps/internal/chain"
	"github.com/LolHubFun/server-vps/internal/config"
	"github.com/LolHubFun/server-vps/internal/database"
	"github.com/LolHubFun/server-vps/internal/event"
	"github.com/LolHubFun/server-vps/internal/evolution"
	"github.com/LolHubFun/server-vps/internal/ledger"
	"github.com/LolHubFun/server-vps/internal/logger"
	"github.com/LolHubFun/server-vps/internal/logic"
	"github.com/LolHubFun/server-vps/internal/metrics"
	"github.com/LolHubFun/server-vps/internal/poller"
	"github.com/LolHubFun/server-vps/internal/router"
	"github.com/LolHubFun/server-vps/internal/task"
	"github.com/gin-gonic/gin"
)

func main() {
	// 加载配置
	cfg := config.Load()
	logger.Configure(cfg.Log)
	defer logger.Sync()

	// 初始化数据库
	db, err := database.Init(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to initialize database: %v", err)
	}

	// 初始化Redis缓存
	cacheStore, err := cache.New(cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to initialize redis: %v", err)
	}
	defer cacheStore.Close()

	// 链客户端提供者
	provider := chain.NewProvider(cfg.Chain)

	// 事件台账与进化引擎
	ledgerStore := ledger.NewGormStore(db)
	evolutionStore := evolution.NewGormStore(db)
	generator := evolution.NewReplicateGenerator(cfg.Pipeline.ReplicateToken)
	pipeline := evolution.NewPipeline(generator, rand.New(rand.NewSource(time.Now().UnixNano())))
	engine := evolution.NewEngine(evolutionStore, evolutionStore, pipeline, cacheStore, cfg.Pipeline.SuggestionLimit)
	admin := evolution.NewAdmin(evolutionStore, engine)

	// 事件处理器
	processor := event.NewProcessor(
		ledgerStore,
		ledger.NewReplayGuard(),
		event.NewGormProjectStore(db),
		engine,
		cacheStore,
		chain.NewTxReader(provider),
	)

	// 轮询器
	clientProvider := poller.NewChainClientProvider(provider)
	tokenPoller := poller.NewTokenCreatedPoller(
		clientProvider,
		poller.NewCursorStore(db),
		processor,
		cfg.Chain.FactoryAddress,
		cfg.Chain.DefaultChainId,
	)
	projectPoller := poller.NewProjectEventPoller(
		clientProvider,
		poller.NewGormProjectLister(db),
		processor,
		cfg.Task.ProjectPollBatchSize,
	)

	// 指标聚合与一致性核对
	snapshotter := metrics.NewSnapshotter(cacheStore)
	aggregator := metrics.NewAggregator(provider, metrics.NewGormStore(db), ledgerStore, snapshotter, cfg.Task.MetricsBatchSize)
	checker := evolution.NewConsistencyChecker(provider, evolutionStore, engine)

	// 读路径
	projectLogic := logic.NewProjectLogic(db, cacheStore, ledgerStore, provider)

	// 启动定时任务
	manager := task.NewManager()
	manager.Register(
		task.NewTokenPollJob(tokenPoller, cfg.Task.TokenPollInterval),
		task.NewProjectEventsJob(projectPoller, cfg.Task.ProjectPollInterval),
		task.NewMetricsJob(aggregator, projectLogic, cfg.Task.MetricsInterval),
		task.NewConsistencyJob(checker, cfg.Task.ConsistencyInterval),
	)
	manager.Start()
	defer manager.Stop()

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 启动服务器
	r := router.Setup(projectLogic, admin, cacheStore)
	logger.Info("Server starting on port %s", cfg.Server.Port)
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		logger.Fatal("Failed to start server: %v", err)
	}
}
