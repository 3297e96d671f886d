package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"gymClashAPI/middleware"
	"gymClashAPI/services"
)

type RescueHandler struct {
	rescueService *services.RescueService
}

func NewRescueHandler(rescueService *services.RescueService) *RescueHandler {
	return &RescueHandler{
		rescueService: rescueService,
	}
}

// Rescue lets a freshly eliminated member buy back in with a proof photo
// inside the 24 hour window.
func (h *RescueHandler) Rescue(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var body struct {
		GuildID  string `json:"guild_id"`
		UserName string `json:"user_name"`
		PhotoURL string `json:"photo_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if body.GuildID == "" {
		respondWithError(w, http.StatusBadRequest, "guild_id is required")
		return
	}

	log.Printf("Rescue Handler: attempt by %s in guild %s", userID, body.GuildID)

	result, err := h.rescueService.Rescue(ctx, body.GuildID, userID, body.UserName, body.PhotoURL, time.Now())
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}
