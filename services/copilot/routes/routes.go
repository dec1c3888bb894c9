// Copyright (C) 2026 Schrader Mechanical (dev@schradermech.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/schradermade/hvac-ai-sub000/services/copilot/handlers"
	"github.com/schradermade/hvac-ai-sub000/services/copilot/middleware"
	"github.com/schradermade/hvac-ai-sub000/services/copilot/services"
	"github.com/schradermade/hvac-ai-sub000/services/copilot/store"
)

func SetupRoutes(router *gin.Engine, service *services.AnswerService, turns store.ConversationStore,
	source handlers.ContextSource, validator middleware.TokenValidator) {

	router.GET("/health", handlers.HandleHealth)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	chat := handlers.NewChatHandler(service, turns, source)
	history := handlers.NewHistoryHandler(turns)

	// Job-scoped copilot routes
	jobs := router.Group("/jobs/:jobId/ai", middleware.AuthMiddleware(validator))
	{
		jobs.POST("/chat", chat.HandleJobChat)
		jobs.GET("/conversation", history.HandleJobConversation)
	}
}
