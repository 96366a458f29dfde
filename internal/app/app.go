// Package app wires configuration, storage, the session flow, and the
// Telegram transport into a runnable bot.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	corebootstrap "github.com/pettai/petbot/core/bootstrap"
	coretelegram "github.com/pettai/petbot/core/telegram"
	"github.com/pettai/petbot/core/telegram/commands"
	"github.com/pettai/petbot/core/telegram/router"
	"github.com/pettai/petbot/internal/flow"
	"github.com/pettai/petbot/internal/pets"
	"github.com/pettai/petbot/internal/profile"
	"github.com/pettai/petbot/internal/provider"

	tghelpers "github.com/pettai/petbot/core/telegram/helpers"
	tele "gopkg.in/telebot.v4"
)

func nowUTC() time.Time {
	return time.Now().UTC()
}

// App holds the bot's long-lived components.
type App struct {
	cfg *Config
	db  *sqlx.DB

	messenger   *botMessenger
	coordinator *flow.Coordinator
	profiles    *profile.Store
	petStats    *pets.StatsStore
	wordles     *pets.WordleStore
	scheduler   *pets.Scheduler
}

// New bootstraps infrastructure (logger, database, migrations) and builds the
// domain components.
func New(cfg *Config) (*App, error) {
	res, err := corebootstrap.Run(corebootstrap.Options{
		Config:   &cfg.Core,
		Database: cfg.Database,
	})
	if err != nil {
		return nil, err
	}

	providerClient, err := provider.NewClient(cfg.Provider)
	if err != nil {
		_ = res.DB.Close()
		return nil, err
	}

	profiles := profile.NewStore(res.DB)
	wordles := pets.NewWordleStore(res.DB)

	scheduler, err := pets.NewScheduler(wordles)
	if err != nil {
		_ = res.DB.Close()
		return nil, fmt.Errorf("app: scheduler: %w", err)
	}

	messenger := &botMessenger{}
	coordinator := flow.NewCoordinator(cfg.Flow.flowConfig(), messenger, providerClient, profiles)

	return &App{
		cfg:         cfg,
		db:          res.DB,
		messenger:   messenger,
		coordinator: coordinator,
		profiles:    profiles,
		petStats:    pets.NewStatsStore(res.DB),
		wordles:     wordles,
		scheduler:   scheduler,
	}, nil
}

func (a *App) registry() *coretelegram.Registry {
	reg := coretelegram.NewRegistry()

	reg.RegisterCommand("/start", commands.Command{
		Handler:     a.handleStart,
		Description: "Start over and show the welcome screen",
	})
	reg.RegisterCommand("/pet", commands.Command{
		Handler:     a.handlePet,
		Description: "Show your pet dashboard",
	})
	reg.RegisterCommand("/wordle", commands.Command{
		Handler:     a.handleWordle,
		Description: "Save or show the wordle of the day",
	})
	reg.RegisterCommand("/errors", commands.Command{
		Handler:     a.handleErrors,
		Description: "Show recent flow errors",
		AdminOnly:   true,
		Hidden:      true,
	})

	_ = reg.RegisterCallback(flow.CallbackGetSession, a.handleGetSession)
	_ = reg.RegisterCallback(cbPetRefresh, a.handlePetRefresh)

	return reg
}

// TelegramRunOptions assembles the transport wiring consumed by cmd.Run.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	reg := a.registry()

	routes := router.CommandRoutes(reg, router.CommandRouteOptions{
		AdminID: a.cfg.Core.Telegram.AdminID,
		OnAdminReject: func(c tele.Context) error {
			return tghelpers.SendText(c, "This command is not available.")
		},
	})
	routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{}))
	routes = append(routes, router.TextRoutes(&fsmAdapter{app: a}, reg, router.TextOptions{})...)

	return coretelegram.RunOptions{
		Config:      &a.cfg.Core,
		Registry:    reg,
		Middlewares: coretelegram.DefaultMiddlewares(&a.cfg.Core, nil),
		Routes:      routes,
		OnStart: func(ctx context.Context, rt coretelegram.Runtime) error {
			a.messenger.Bind(rt.Bot)
			a.scheduler.Start()
			return nil
		},
		OnStop: func(ctx context.Context, rt coretelegram.Runtime) error {
			a.scheduler.Stop()
			a.coordinator.Close()
			return a.db.Close()
		},
	}, nil
}
