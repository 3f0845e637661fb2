package main

import (
	"github.com/julienschmidt/httprouter"
)

// SetupBookRoutes injects the book related api endpoints.
func (api *APIHandler) SetupBookRoutes(router *httprouter.Router, m *MiddlewareMap) *httprouter.Router {
	router.RedirectTrailingSlash = true
	router.POST("/api/v1/book", m.public(api.CreateBook))
	router.GET("/api/v1/book", m.public(api.GetAllBooks))
	router.GET("/api/v1/book/:id", m.public(api.GetOneBook))
	router.PUT("/api/v1/book/:id", m.public(api.UpdateBook))
	router.DELETE("/api/v1/book/:id", m.public(api.DeleteOneBook))
	return router
}
