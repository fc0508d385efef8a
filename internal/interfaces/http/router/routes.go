package router

import (
	"github.com/gin-gonic/gin"
	"github.com/storefront/backend/internal/interfaces/http/handler"
)

// NewCartRoutes returns the cart resource routes
func NewCartRoutes(carts *handler.CartHandler) *DomainGroup {
	g := NewDomainGroup("cart", "/cart")
	g.GET("", carts.Get)
	g.DELETE("", carts.Clear)
	g.POST("/items", carts.AddItem)
	g.PUT("/items/:product_id", carts.UpdateQuantity)
	g.DELETE("/items/:product_id", carts.RemoveItem)
	return g
}

// NewSessionRoutes returns the session lifecycle routes
func NewSessionRoutes(sessions *handler.SessionHandler) *DomainGroup {
	return NewDomainGroup("session", "/session").
		POST("/sign-out", sessions.SignOut)
}

// RegisterSystemRoutes mounts the unversioned probes. They bypass the session
// middleware so they answer without a device id.
func RegisterSystemRoutes(engine *gin.Engine, system *handler.SystemHandler) {
	engine.GET("/health", system.Health)
	engine.GET("/system/info", system.GetSystemInfo)
}
