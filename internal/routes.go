package internal

import (
	"amuletbot/internal/controllers"
	"amuletbot/internal/providers"
	"net/http"
)

func InitRoutes(apiController *controllers.ApiController) providers.RouterProviderInterface {
	routers := providers.NewRouterProvider()

	routers.Get("/leaderboard", http.HandlerFunc(apiController.GetLeaderboard))
	routers.Get("/holder", http.HandlerFunc(apiController.GetHolder))
	routers.Post("/backup", http.HandlerFunc(apiController.CreateBackup))
	return routers
}
