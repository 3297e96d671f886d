package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"gymClashAPI/internal/storage"
	"gymClashAPI/internal/types/profile"
	"gymClashAPI/middleware"
	"gymClashAPI/services"
)

type ProfileHandler struct {
	profileService *services.ProfileService
}

func NewProfileHandler(profileService *services.ProfileService) *ProfileHandler {
	return &ProfileHandler{
		profileService: profileService,
	}
}

func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	stats, err := h.profileService.Get(ctx, userID, r.URL.Query().Get("user_name"), time.Now())
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, stats)
}

func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var body struct {
		profile.UpdateProfileRequest
		UserName string `json:"user_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !validGoal(body.Goal) {
		respondWithError(w, http.StatusBadRequest, "goal must be between 1 and 7")
		return
	}

	result, err := h.profileService.Update(ctx, userID, body.UserName, &body.UpdateProfileRequest, time.Now())
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

// validGoal accepts a nil goal (nothing requested) or one inside the
// allowed weekly range.
func validGoal(goal *int) bool {
	if goal == nil {
		return true
	}
	return *goal >= profile.MinGoal && *goal <= profile.MaxGoal
}

// Helper functions
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithServiceError maps the service sentinels onto HTTP statuses so
// handlers never leak raw internals for expected rejections.
func respondWithServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrSelfChallenge):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrNotParticipant):
		respondWithError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, services.ErrNoActiveChallenge),
		errors.Is(err, services.ErrNoElimination),
		errors.Is(err, storage.ErrNotFound):
		respondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrChallengeExists),
		errors.Is(err, services.ErrAlreadyParticipant),
		errors.Is(err, services.ErrMinimumParticipants),
		errors.Is(err, services.ErrAlreadyFrozen),
		errors.Is(err, services.ErrNotFrozen):
		respondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrRescueTooLate),
		errors.Is(err, services.ErrLateWindowClosed),
		errors.Is(err, services.ErrChallengeEnded):
		respondWithError(w, http.StatusGone, err.Error())
	default:
		respondWithError(w, http.StatusInternalServerError, err.Error())
	}
}
