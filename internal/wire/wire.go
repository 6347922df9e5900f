//go:build wireinject
// +build wireinject

package wire

import (
	"github.com/google/wire"
	"github.com/prometheus/client_golang/prometheus"

	"gosocialchat/internal/chat/handler"
	"gosocialchat/internal/chat/hub"
	"gosocialchat/internal/chat/repository"
	"gosocialchat/internal/chat/service"
	"gosocialchat/internal/common"
	"gosocialchat/internal/config"
)

func InitializeApplication(cfg *config.Config) (*Application, func(), error) {
	wire.Build(
		ProvideRegistry,
		wire.Bind(new(prometheus.Registerer), new(*prometheus.Registry)),
		ProvideDatabase,
		ProvideArchive,
		ProvideSearcher,
		ProvideEventManager,
		ProvidePublisher,
		ProvideTokenIssuer,
		wire.Bind(new(hub.TokenValidator), new(*common.TokenIssuer)),
		repository.NewChatRepository,
		service.NewChatService,
		wire.Bind(new(hub.MembershipChecker), new(service.ChatService)),
		handler.NewChatHandler,
		ProvideHub,
		common.NewHTTPMetrics,
		SubscribeObservers,
		wire.Struct(new(Application), "*"),
	)
	return nil, nil, nil
}
