package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"gymClashAPI/internal/types/challenge"
	"gymClashAPI/middleware"
	"gymClashAPI/services"
)

type ChallengeHandler struct {
	challengeService *services.ChallengeService
}

func NewChallengeHandler(challengeService *services.ChallengeService) *ChallengeHandler {
	return &ChallengeHandler{
		challengeService: challengeService,
	}
}

func (h *ChallengeHandler) Setup(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var body struct {
		challenge.SetupRequest
		UserName string `json:"user_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		log.Printf("Setup Handler: Failed to decode request body: %v", err)
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if body.GuildID == "" || body.Opponent.UserID == "" {
		respondWithError(w, http.StatusBadRequest, "guild_id and opponent are required")
		return
	}
	if !validGoal(body.OpponentGoal) {
		respondWithError(w, http.StatusBadRequest, "goal must be between 1 and 7")
		return
	}

	creator := challenge.Member{UserID: userID, UserName: body.UserName}
	ch, err := h.challengeService.Setup(ctx, creator, &body.SetupRequest, time.Now())
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, ch)
}

func (h *ChallengeHandler) AddPlayer(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req challenge.AddPlayerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.GuildID == "" || req.Player.UserID == "" {
		respondWithError(w, http.StatusBadRequest, "guild_id and player are required")
		return
	}
	if !validGoal(req.Goal) {
		respondWithError(w, http.StatusBadRequest, "goal must be between 1 and 7")
		return
	}

	participant, err := h.challengeService.AddPlayer(ctx, userID, &req)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, participant)
}

func (h *ChallengeHandler) RemovePlayer(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if _, ok := middleware.GetUserID(ctx); !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var body struct {
		GuildID string `json:"guild_id"`
		UserID  string `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.challengeService.RemovePlayer(ctx, body.GuildID, body.UserID); err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Player removed from challenge"})
}

func (h *ChallengeHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	guildID := mux.Vars(r)["guildId"]

	if err := h.challengeService.Cancel(ctx, guildID, userID); err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Challenge cancelled"})
}

func (h *ChallengeHandler) SetCheckinChannel(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var body struct {
		GuildID   string `json:"guild_id"`
		ChannelID string `json:"channel_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if body.ChannelID == "" {
		respondWithError(w, http.StatusBadRequest, "channel_id is required")
		return
	}

	if err := h.challengeService.SetCheckinChannel(ctx, body.GuildID, userID, body.ChannelID); err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Check-in channel updated"})
}

func (h *ChallengeHandler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if _, ok := middleware.GetUserID(ctx); !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	guildID := mux.Vars(r)["guildId"]

	stats, err := h.challengeService.Stats(ctx, guildID, time.Now())
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, stats)
}

func (h *ChallengeHandler) UserChallenges(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	challenges, err := h.challengeService.UserChallenges(ctx, userID, time.Now())
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, challenges)
}

func (h *ChallengeHandler) Freeze(w http.ResponseWriter, r *http.Request) {
	h.setFrozen(w, r, true)
}

func (h *ChallengeHandler) Unfreeze(w http.ResponseWriter, r *http.Request) {
	h.setFrozen(w, r, false)
}

func (h *ChallengeHandler) setFrozen(w http.ResponseWriter, r *http.Request, frozen bool) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	guildID := mux.Vars(r)["guildId"]

	var err error
	if frozen {
		err = h.challengeService.Freeze(ctx, guildID, userID)
	} else {
		err = h.challengeService.Unfreeze(ctx, guildID, userID)
	}
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]bool{"is_frozen": frozen})
}

func (h *ChallengeHandler) FreezeAll(w http.ResponseWriter, r *http.Request) {
	h.setFrozenAll(w, r, true)
}

func (h *ChallengeHandler) UnfreezeAll(w http.ResponseWriter, r *http.Request) {
	h.setFrozenAll(w, r, false)
}

func (h *ChallengeHandler) setFrozenAll(w http.ResponseWriter, r *http.Request, frozen bool) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var (
		touched int
		err     error
	)
	if frozen {
		touched, err = h.challengeService.FreezeAll(ctx, userID)
	} else {
		touched, err = h.challengeService.UnfreezeAll(ctx, userID)
	}
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]int{"challenges": touched})
}
