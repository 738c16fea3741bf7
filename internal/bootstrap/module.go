package bootstrap

import (
	"context"
	"log/slog"
	"time"

	"go.uber.org/fx"
	"gorm.io/gorm"

	"doora/internal/api"
	"doora/internal/bootstrap/config"
	"doora/internal/bootstrap/database"
	"doora/internal/bootstrap/logging"
	"doora/internal/infrastructure/feed"
	"doora/internal/infrastructure/notify"
	sqliterepo "doora/internal/infrastructure/persistence/sqlite/repository"
	sqliteuow "doora/internal/infrastructure/persistence/sqlite/uow"
	"doora/internal/infrastructure/stats"
	"doora/internal/ports"
	usecase "doora/internal/usecase/delegation"
)

var Module = fx.Options(
	fx.Provide(provideConfig),
	fx.Provide(provideDatabase),
	fx.Provide(provideApp),
	fx.Provide(
		fx.Annotate(
			sqliterepo.NewDelegationRepository,
			fx.As(new(ports.DelegationRepository)),
		),
	),
	fx.Provide(
		fx.Annotate(
			sqliterepo.NewNotificationRepository,
			fx.As(new(ports.NotificationRepository)),
		),
	),
	fx.Provide(
		fx.Annotate(
			sqliteuow.NewUnitOfWork,
			fx.As(new(ports.UnitOfWork)),
		),
	),
	fx.Provide(
		fx.Annotate(
			feed.New,
			fx.As(new(ports.ChangeFeed)),
		),
	),
	fx.Provide(
		fx.Annotate(
			notify.NewNotifier,
			fx.As(new(ports.Notifier)),
		),
	),
	fx.Provide(
		fx.Annotate(
			stats.NewProfileStats,
			fx.As(new(ports.ProfileStats)),
		),
	),
	fx.Provide(usecase.NewService),
	fx.Provide(provideRunner),
	fx.Provide(provideServer),
)

type configParams struct {
	fx.In

	Ctx        context.Context
	ConfigFile string `name:"configFile"`
}

func provideConfig(p configParams) (config.Config, error) {
	ctx := logging.WithAttrs(p.Ctx, slog.String("component", "bootstrap.fx"))
	return config.Load(ctx, p.ConfigFile)
}

func provideDatabase(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (*gorm.DB, error) {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.fx"))

	db, err := database.Open(logCtx, cfg.Database)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})

	return db, nil
}

func provideApp(cfg config.Config, db *gorm.DB) *App {
	return &App{
		Config: cfg,
		DB:     db,
	}
}

func provideRunner(service *usecase.Service, changeFeed ports.ChangeFeed, cfg config.Config) *usecase.Runner {
	debounce := time.Duration(cfg.Watchdog.DebounceMs) * time.Millisecond
	return usecase.NewRunner(service, changeFeed, debounce)
}

func provideServer(cfg config.Config, service *usecase.Service, changeFeed ports.ChangeFeed) *api.Server {
	return api.NewServer(cfg.Server.Addr, service, changeFeed)
}
