// Package wire assembles chat-svc. wire.go is the injector declaration and
// wire_gen.go its generated body; the providers live here.
package wire

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gorm.io/gorm"

	"gosocialchat/internal/chat/events"
	"gosocialchat/internal/chat/handler"
	"gosocialchat/internal/chat/hub"
	"gosocialchat/internal/chat/service"
	"gosocialchat/internal/common"
	"gosocialchat/internal/config"
	"gosocialchat/internal/dbmongo"
	"gosocialchat/internal/dbmysql"
)

type Application struct {
	Config      *config.Config
	DB          *gorm.DB
	Handler     *handler.ChatHandler
	Hub         *hub.Hub
	Events      *events.Manager
	Issuer      *common.TokenIssuer
	Registry    *prometheus.Registry
	HTTPMetrics *common.HTTPMetrics
	Observers   Observers
}

// Observers records what was subscribed to the event manager.
type Observers struct {
	Sync  []string
	Async []string
}

func ProvideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func ProvideDatabase(cfg *config.Config) (*gorm.DB, func(), error) {
	return dbmysql.NewMySQL(cfg)
}

// ProvideArchive connects the mongo archive when it is enabled. A failed
// connection is not fatal: search falls back to SQL and the archive is nil.
func ProvideArchive(cfg *config.Config) (*dbmongo.MessageArchive, func(), error) {
	noop := func() {}
	if !cfg.MongoDB.Enabled {
		slog.Info("message archive disabled")
		return nil, noop, nil
	}

	client, err := dbmongo.NewMongoConnection(cfg)
	if err != nil {
		slog.Warn("message archive unavailable, using SQL search", "error", err)
		return nil, noop, nil
	}

	archive := dbmongo.NewMessageArchive(client.Collection(cfg))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := archive.EnsureIndexes(ctx); err != nil {
		slog.Warn("archive index creation failed", "error", err)
	}

	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Close(ctx); err != nil {
			slog.Warn("closing MongoDB client", "error", err)
		}
	}
	return archive, cleanup, nil
}

// ProvideSearcher returns a nil interface, not a typed nil, when the archive is
// off so the service can tell the difference.
func ProvideSearcher(archive *dbmongo.MessageArchive) service.Searcher {
	if archive == nil {
		return nil
	}
	return archive
}

func ProvideEventManager(cfg *config.Config, reg prometheus.Registerer) (*events.Manager, func()) {
	m := events.NewManager(cfg.Chat.EventWorkers, cfg.Chat.EventBufferSize, events.NewMetrics(reg))
	return m, m.Shutdown
}

func ProvidePublisher(m *events.Manager) service.Publisher {
	return m
}

func ProvideTokenIssuer(cfg *config.Config) *common.TokenIssuer {
	return common.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.TokenTTL())
}

func ProvideHub(validator hub.TokenValidator, members hub.MembershipChecker, cfg *config.Config, reg prometheus.Registerer) (*hub.Hub, func()) {
	h := hub.NewHub(validator, members, hub.OptionsFromConfig(cfg), hub.NewMetrics(reg))
	return h, h.Close
}

// SubscribeObservers attaches the hub synchronously, so pushes keep publish
// order, and the archive on the worker pool.
func SubscribeObservers(m *events.Manager, h *hub.Hub, archive *dbmongo.MessageArchive) Observers {
	var obs Observers
	m.Subscribe(h)
	obs.Sync = append(obs.Sync, h.Name())
	if archive != nil {
		m.SubscribeAsync(archive)
		obs.Async = append(obs.Async, archive.Name())
	}
	return obs
}
