package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/shopcore/cart-service/internal/middleware"
)

type Deps struct {
	CartHandler *CartHTTP
	JWTSecret   []byte
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	cart := e.Group("/cart")
	cart.Use(middleware.RequireAuth(d.JWTSecret))

	cart.GET("", d.CartHandler.GetCart)
	cart.POST("", d.CartHandler.ReplaceCart)
	cart.DELETE("", d.CartHandler.DeleteCart)
	cart.POST("/items", d.CartHandler.AddItem)
	cart.PUT("/items/:id", d.CartHandler.SetItemQuantity)
	cart.DELETE("/items/:id", d.CartHandler.RemoveItem)
	cart.POST("/checkout", d.CartHandler.Checkout)
}
