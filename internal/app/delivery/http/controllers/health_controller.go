package controllers

import (
	"net/http"

	"consent-service/internal/pkg/constvars"
	"consent-service/internal/pkg/dto/responses"
	"consent-service/internal/pkg/utils"
)

func Health(w http.ResponseWriter, r *http.Request) {
	utils.BuildSuccessResponse(w, constvars.StatusOK, constvars.HealthStatusOK, responses.HealthResponse{Status: constvars.HealthStatusOK})
}
