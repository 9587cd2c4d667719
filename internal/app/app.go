package app

import (
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap/zapcore"

	"github.com/nguyentranbao-ct/livechat/internal/config"
	"github.com/nguyentranbao-ct/livechat/internal/kafka"
	"github.com/nguyentranbao-ct/livechat/internal/repo/mongodb"
	"github.com/nguyentranbao-ct/livechat/internal/server"
	"github.com/nguyentranbao-ct/livechat/internal/usecase"
	"github.com/nguyentranbao-ct/livechat/pkg/logger"
)

// Invoke builds the application graph and runs funcs against it.
func Invoke(funcs ...any) *fx.App {
	conf := config.MustLoad()
	if err := logger.Init(conf.Log.Level, conf.Log.Format); err != nil {
		panic(err)
	}
	log := logger.MustNamed("app")
	log.Debugw("config loaded", "server", conf.Server, "kafka_enabled", conf.Kafka.Enabled, "redis_enabled", conf.Redis.Enabled)

	return fx.New(
		fx.WithLogger(func() fxevent.Logger {
			l := &fxevent.ZapLogger{
				Logger: log.Desugar(),
			}
			l.UseLogLevel(zapcore.DebugLevel)
			return l
		}),
		fx.Supply(conf),
		fx.Provide(
			newMongoDB,
			newRedis,
			newRateLimiter,
			newPresenceStore,
			newOrigin,
			newPublisher,
			newBroadcaster,
			asEventBroadcaster,
			asEmitter,

			mongodb.NewUserRepository,
			mongodb.NewAuthTokenRepository,
			mongodb.NewNoteRepository,
			mongodb.NewVisitorRepository,
			mongodb.NewChatSessionRepository,
			mongodb.NewMessageRepository,
			mongodb.NewMigrationRepository,

			usecase.NewVisitorNamer,
			usecase.NewAuthUsecase,
			usecase.NewNoteUsecase,
			usecase.NewAgentUsecase,
			usecase.NewVisitorUsecase,
			usecase.NewSessionUsecase,
			usecase.NewMessageUsecase,

			server.NewSocketServer,
			server.NewSocketHandler,
			server.NewHandler,
			server.NewAuthController,
			server.NewNoteController,
			server.NewVisitorController,
			server.NewSessionController,
			server.NewMessageController,
		),
		fx.Invoke(funcs...),
	)
}

// Serve lists the invocations of the serve command.
var Serve = []any{
	RunMigrations,
	usecase.SeedAgents,
	StartTokenCleanup,
	kafka.StartRelayEvents,
	server.StartServer,
}
