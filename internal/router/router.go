package router

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"

	"archinsight/internal/handler"
	"archinsight/internal/middleware"
	"archinsight/internal/service"
)

// Register wires routes and middleware.
func Register(
	e *echo.Echo,
	authSvc service.AuthService,
	authHandler *handler.AuthHandler,
	blockHandler *handler.BlockHandler,
	vaultHandler *handler.VaultHandler,
	adminHandler *handler.AdminHandler,
) {
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())

	// Add validator
	e.Validator = &CustomValidator{validator: validator.New()}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api")

	// Public routes
	api.POST("/auth/login", authHandler.Login)

	// Secured routes (require a session token)
	secured := api.Group("", middleware.Session(authSvc))

	secured.POST("/auth/logout", authHandler.Logout)
	secured.GET("/me", authHandler.Me)

	// Block routes
	secured.POST("/blocks", blockHandler.Create)
	secured.GET("/blocks", blockHandler.ListOwn)
	secured.GET("/blocks/accessible", blockHandler.ListAccessible)
	secured.GET("/blocks/:id", blockHandler.Get)
	secured.PUT("/blocks/:id", blockHandler.Update)
	secured.DELETE("/blocks/:id", blockHandler.Delete)
	secured.POST("/blocks/:id/share", blockHandler.Share)
	secured.DELETE("/blocks/:id/share/:teamID", blockHandler.Unshare)
	secured.POST("/blocks/:id/visibility", blockHandler.SetVisibility)

	// API key routes
	secured.GET("/apikeys", vaultHandler.List)
	secured.PUT("/apikeys/:name", vaultHandler.Save)
	secured.GET("/apikeys/:name", vaultHandler.Get)
	secured.DELETE("/apikeys/:name", vaultHandler.Delete)

	// Admin routes
	admin := secured.Group("/admin", middleware.RequireAdmin())

	admin.GET("/stats", adminHandler.Stats)
	admin.GET("/users", adminHandler.ListUsers)
	admin.POST("/users", adminHandler.CreateUser)
	admin.GET("/users/:id", adminHandler.GetUser)
	admin.PATCH("/users/:id", adminHandler.UpdateUser)
	admin.DELETE("/users/:id", adminHandler.DeleteUser)
	admin.GET("/teams", adminHandler.ListTeams)
	admin.POST("/teams", adminHandler.CreateTeam)
	admin.DELETE("/teams/:id", adminHandler.DeleteTeam)
	admin.POST("/cleanup", adminHandler.Cleanup)
	admin.GET("/recent-logins", adminHandler.RecentLogins)
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
