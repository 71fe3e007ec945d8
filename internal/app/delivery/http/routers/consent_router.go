package routers

import (
	"consent-service/internal/app/delivery/http/controllers"
	"consent-service/internal/app/delivery/http/middlewares"

	"github.com/go-chi/chi/v5"
)

func attachConsentRoutes(router chi.Router, middlewares *middlewares.Middlewares, consentController *controllers.ConsentController) {
	router.Use(middlewares.Authenticate)
	router.Get("/", consentController.GetConsent)
	router.Post("/", consentController.UpdateConsent)
}
