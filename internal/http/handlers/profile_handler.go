package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/skillswap-backend/internal/dto"
	"github.com/ignatzorin/skillswap-backend/internal/http/handlers/common"
	"github.com/ignatzorin/skillswap-backend/internal/interface/http/response"
	"github.com/ignatzorin/skillswap-backend/internal/models"
	"github.com/ignatzorin/skillswap-backend/internal/service"
)

// ProfileManager операции над собственным профилем и навыками.
type ProfileManager interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*models.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, in service.ProfileInput) (*models.User, error)
	UploadAvatar(ctx context.Context, userID uuid.UUID, r io.Reader) (string, error)

	AddSkillOffer(ctx context.Context, userID uuid.UUID, in service.OfferInput) (*models.SkillOffer, error)
	UpdateSkillOffer(ctx context.Context, userID, offerID uuid.UUID, in service.OfferInput) (*models.SkillOffer, error)
	DeleteSkillOffer(ctx context.Context, userID, offerID uuid.UUID) error
	AddSkillWant(ctx context.Context, userID uuid.UUID, in service.WantInput) (*models.SkillWant, error)
	UpdateSkillWant(ctx context.Context, userID, wantID uuid.UUID, in service.WantInput) (*models.SkillWant, error)
	DeleteSkillWant(ctx context.Context, userID, wantID uuid.UUID) error
}

type ProfileHandler struct {
	users          ProfileManager
	maxUploadBytes int64
}

func NewProfileHandler(users ProfileManager, maxUploadMB int64) *ProfileHandler {
	return &ProfileHandler{users: users, maxUploadBytes: maxUploadMB * 1024 * 1024}
}

// GetProfile обрабатывает GET /api/profile.
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	userID, ok := common.RequireUser(c)
	if !ok {
		return
	}
	user, err := h.users.GetProfile(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, user)
}

// UpdateProfile обрабатывает PUT /api/profile.
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	userID, ok := common.RequireUser(c)
	if !ok {
		return
	}
	var req dto.UpdateProfileRequest
	if !common.BindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	in := service.ProfileInput{DisplayName: req.DisplayName, Bio: req.Bio, Location: req.Location}
	if req.Preferences != nil {
		current, err := h.users.GetProfile(ctx, userID)
		if err != nil {
			response.Error(c, err)
			return
		}
		prefs := mergePreferences(current.Preferences, req.Preferences)
		in.Preferences = &prefs
	}

	user, err := h.users.UpdateProfile(ctx, userID, in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessMessage(c, "профиль обновлён", user)
}

// UploadAvatar обрабатывает POST /api/profile/avatar (multipart, поле avatar).
func (h *ProfileHandler) UploadAvatar(c *gin.Context) {
	userID, ok := common.RequireUser(c)
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+1<<20)
	file, err := c.FormFile("avatar")
	if err != nil {
		response.BadRequest(c, "поле avatar обязательно")
		return
	}
	if h.maxUploadBytes > 0 && file.Size > h.maxUploadBytes {
		response.BadRequest(c, "файл слишком большой")
		return
	}

	f, err := file.Open()
	if err != nil {
		response.BadRequest(c, "не удалось прочитать файл")
		return
	}
	defer f.Close()

	url, err := h.users.UploadAvatar(c.Request.Context(), userID, f)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessMessage(c, "аватар обновлён", gin.H{"avatarUrl": url})
}

// AddOffer обрабатывает POST /api/profile/skills/offered.
func (h *ProfileHandler) AddOffer(c *gin.Context) {
	userID, ok := common.RequireUser(c)
	if !ok {
		return
	}
	var req dto.SkillOfferRequest
	if !common.BindJSON(c, &req) {
		return
	}
	offer, err := h.users.AddSkillOffer(c.Request.Context(), userID, offerInput(req))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "навык добавлен", offer)
}

// UpdateOffer обрабатывает PUT /api/profile/skills/offered/:id.
func (h *ProfileHandler) UpdateOffer(c *gin.Context) {
	userID, ok := common.RequireUser(c)
	if !ok {
		return
	}
	offerID, ok := common.UUIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.SkillOfferRequest
	if !common.BindJSON(c, &req) {
		return
	}
	offer, err := h.users.UpdateSkillOffer(c.Request.Context(), userID, offerID, offerInput(req))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, offer)
}

// DeleteOffer обрабатывает DELETE /api/profile/skills/offered/:id.
func (h *ProfileHandler) DeleteOffer(c *gin.Context) {
	userID, ok := common.RequireUser(c)
	if !ok {
		return
	}
	offerID, ok := common.UUIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.users.DeleteSkillOffer(c.Request.Context(), userID, offerID); err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessMessage(c, "навык удалён", nil)
}

// AddWant обрабатывает POST /api/profile/skills/wanted.
func (h *ProfileHandler) AddWant(c *gin.Context) {
	userID, ok := common.RequireUser(c)
	if !ok {
		return
	}
	var req dto.SkillWantRequest
	if !common.BindJSON(c, &req) {
		return
	}
	want, err := h.users.AddSkillWant(c.Request.Context(), userID, wantInput(req))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "навык добавлен", want)
}

// UpdateWant обрабатывает PUT /api/profile/skills/wanted/:id.
func (h *ProfileHandler) UpdateWant(c *gin.Context) {
	userID, ok := common.RequireUser(c)
	if !ok {
		return
	}
	wantID, ok := common.UUIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.SkillWantRequest
	if !common.BindJSON(c, &req) {
		return
	}
	want, err := h.users.UpdateSkillWant(c.Request.Context(), userID, wantID, wantInput(req))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, want)
}

// DeleteWant обрабатывает DELETE /api/profile/skills/wanted/:id.
func (h *ProfileHandler) DeleteWant(c *gin.Context) {
	userID, ok := common.RequireUser(c)
	if !ok {
		return
	}
	wantID, ok := common.UUIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.users.DeleteSkillWant(c.Request.Context(), userID, wantID); err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessMessage(c, "навык удалён", nil)
}

func mergePreferences(current models.Preferences, req *dto.PreferencesRequest) models.Preferences {
	if req.EmailNotifications != nil {
		current.EmailNotifications = *req.EmailNotifications
	}
	if req.RealtimeNotifications != nil {
		current.RealtimeNotifications = *req.RealtimeNotifications
	}
	if req.SessionReminders != nil {
		current.SessionReminders = *req.SessionReminders
	}
	return current
}

func offerInput(req dto.SkillOfferRequest) service.OfferInput {
	return service.OfferInput{Name: req.Name, Level: req.Level, Category: req.Category, Description: req.Description}
}

func wantInput(req dto.SkillWantRequest) service.WantInput {
	return service.WantInput{Name: req.Name, Level: req.Level, Category: req.Category, Priority: req.Priority, Progress: req.Progress}
}
