package controllers

import (
	"amuletbot/internal/amulet"
	"amuletbot/internal/models"
	"amuletbot/internal/providers"
	"amuletbot/internal/services"
	"net/http"
	"slices"
	"time"

	json "github.com/goccy/go-json"
)

type ApiController struct {
	logger providers.Logger
	repo   services.GuildRepositoryInterface
	engine amulet.EngineInterface
	cache  providers.CacheProviderInterface
}

func NewApiController(logger providers.Logger, repo services.GuildRepositoryInterface, engine amulet.EngineInterface, cache providers.CacheProviderInterface) *ApiController {
	return &ApiController{
		logger: logger,
		repo:   repo,
		engine: engine,
		cache:  cache,
	}
}

type leaderboardResponse struct {
	GuildID  string                    `json:"guildId"`
	Category string                    `json:"category"`
	Entries  []models.LeaderboardEntry `json:"entries"`
}

type holderResponse struct {
	GuildID   string     `json:"guildId"`
	Held      bool       `json:"held"`
	UserID    string     `json:"userId,omitempty"`
	Name      string     `json:"name,omitempty"`
	ChannelID string     `json:"channelId,omitempty"`
	Since     *time.Time `json:"since,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

type backupResponse struct {
	Path string `json:"path"`
}

func writeJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func (ac *ApiController) serveFromCacheOrCompute(w http.ResponseWriter, cacheKey string, compute func() (any, error)) {
	if data, ok := ac.cache.Get(cacheKey); ok {
		writeJSON(w, http.StatusOK, data)
		return
	}

	result, err := compute()
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	gson, err := json.Marshal(result)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	ac.cache.Set(cacheKey, gson)
	writeJSON(w, http.StatusOK, gson)
}

func (ac *ApiController) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	guildID := r.URL.Query().Get("guild")
	if guildID == "" {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	category := r.URL.Query().Get("category")
	if category == "" {
		category = models.CategoryAmuletTime
	}
	if !slices.Contains(models.DefaultCategories, category) {
		http.Error(w, "Unknown category", http.StatusBadRequest)
		return
	}

	ac.serveFromCacheOrCompute(w, providers.CacheKey(providers.CacheNamespaceLeaderboard, guildID, category), func() (any, error) {
		return leaderboardResponse{
			GuildID:  guildID,
			Category: category,
			Entries:  ac.repo.GetLeaderboard(guildID, category),
		}, nil
	})
}

func (ac *ApiController) GetHolder(w http.ResponseWriter, r *http.Request) {
	guildID := r.URL.Query().Get("guild")
	if guildID == "" {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	state, ok := ac.repo.GetGameState(guildID)
	if !ok {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}

	resp := holderResponse{GuildID: guildID}
	if profile, held := ac.engine.CurrentHolder(guildID); held {
		since := state.Amulet.LastTransferred
		expires, _ := ac.engine.ExpiresAt(guildID)
		resp.Held = true
		resp.UserID = profile.ID
		resp.Name = profile.Name()
		resp.ChannelID = state.Amulet.ChannelID
		resp.Since = &since
		resp.ExpiresAt = &expires
	}

	gson, err := json.Marshal(resp)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, gson)
}

func (ac *ApiController) CreateBackup(w http.ResponseWriter, r *http.Request) {
	path, err := ac.repo.CreateBackup()
	if err != nil {
		ac.logger.Errorf(providers.GetLogTypeByRequestType(r.Method), "Backup request failed: %s", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	gson, err := json.Marshal(backupResponse{Path: path})
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, gson)
}
