// Package handler содержит HTTP-обработчики приёма событий и административного API.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/govalues/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/autorefund/internal/middleware"
	"github.com/mmeshcher/autorefund/internal/model"
	"github.com/mmeshcher/autorefund/internal/service"
	"github.com/mmeshcher/autorefund/internal/settings"
	"github.com/mmeshcher/autorefund/internal/validation"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	Submit(ev model.Event) error
	Settings() model.Settings
	UpdateSettings(ctx context.Context, p settings.Patch) (model.Settings, error)
	Blacklist() []string
	AddToBlacklist(ctx context.Context, username string) (bool, error)
	RemoveFromBlacklist(ctx context.Context, username string) (bool, error)
}

// Handler реализует HTTP-обработчики сервиса автовозвратов.
type Handler struct {
	service    Service
	logger     *zap.Logger
	signature  *middleware.SignatureMiddleware
	adminToken string
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, signature *middleware.SignatureMiddleware, adminToken string) *Handler {
	return &Handler{
		service:    s,
		logger:     logger,
		signature:  signature,
		adminToken: adminToken,
	}
}

type feedbackEventRequest struct {
	Kind     string `json:"kind"`
	AuthorID int64  `json:"author_id"`
	ChatID   int64  `json:"chat_id"`
	Text     string `json:"text"`
}

type orderEventRequest struct {
	Order struct {
		ID            string      `json:"id"`
		BuyerUsername string      `json:"buyer_username"`
		Sum           json.Number `json:"sum"`
	} `json:"order"`
}

// FeedbackEvent принимает системное сообщение площадки об отзыве.
func (h *Handler) FeedbackEvent(w http.ResponseWriter, r *http.Request) {
	var req feedbackEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Kind == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	h.submit(w, model.FeedbackEvent{
		Kind:     model.FeedbackKind(strings.ToUpper(req.Kind)),
		AuthorID: req.AuthorID,
		ChatID:   req.ChatID,
		Text:     req.Text,
	})
}

// OrderEvent принимает событие о новом заказе.
func (h *Handler) OrderEvent(w http.ResponseWriter, r *http.Request) {
	var req orderEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if !validation.IsValidOrderID(req.Order.ID) || req.Order.BuyerUsername == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	sum, err := decimal.Parse(req.Order.Sum.String())
	if err != nil || sum.IsNeg() {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	h.submit(w, model.OrderEvent{
		OrderID:       req.Order.ID,
		BuyerUsername: req.Order.BuyerUsername,
		Sum:           sum,
	})
}

func (h *Handler) submit(w http.ResponseWriter, ev model.Event) {
	if err := h.service.Submit(ev); err != nil {
		if errors.Is(err, service.ErrQueueFull) || errors.Is(err, service.ErrStopped) {
			h.logger.Warn("event rejected", zap.Error(err))
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
			return
		}
		h.logger.Error("submit event error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

type settingsResponse struct {
	Star1                    bool        `json:"star_1"`
	Star2                    bool        `json:"star_2"`
	Star3                    bool        `json:"star_3"`
	Star4                    bool        `json:"star_4"`
	Star5                    bool        `json:"star_5"`
	MaxPrice                 json.Number `json:"max_price"`
	BlockUser                bool        `json:"block_user"`
	RefundNotification       bool        `json:"refund_notification"`
	FeedbackDelete           bool        `json:"feedback_delete"`
	RefundNotificationChatID int64       `json:"refund_notification_chat_id"`
	BlacklistMessage         string      `json:"blacklist_message"`
}

func newSettingsResponse(s model.Settings) settingsResponse {
	return settingsResponse{
		Star1:                    s.StarEnabled[0],
		Star2:                    s.StarEnabled[1],
		Star3:                    s.StarEnabled[2],
		Star4:                    s.StarEnabled[3],
		Star5:                    s.StarEnabled[4],
		MaxPrice:                 json.Number(s.MaxPrice.String()),
		BlockUser:                s.BlockUser,
		RefundNotification:       s.RefundNotification,
		FeedbackDelete:           s.FeedbackDeleteEnabled,
		RefundNotificationChatID: s.RefundNotificationTarget,
		BlacklistMessage:         s.BlacklistMessage,
	}
}

type settingsPatchRequest struct {
	Star1                    *bool        `json:"star_1"`
	Star2                    *bool        `json:"star_2"`
	Star3                    *bool        `json:"star_3"`
	Star4                    *bool        `json:"star_4"`
	Star5                    *bool        `json:"star_5"`
	MaxPrice                 *json.Number `json:"max_price"`
	BlockUser                *bool        `json:"block_user"`
	RefundNotification       *bool        `json:"refund_notification"`
	FeedbackDelete           *bool        `json:"feedback_delete"`
	RefundNotificationChatID *int64       `json:"refund_notification_chat_id"`
	BlacklistMessage         *string      `json:"blacklist_message"`
}

func (req settingsPatchRequest) toPatch() (settings.Patch, error) {
	p := settings.Patch{
		Stars:                    make(map[int]bool),
		BlockUser:                req.BlockUser,
		RefundNotification:       req.RefundNotification,
		FeedbackDeleteEnabled:    req.FeedbackDelete,
		RefundNotificationTarget: req.RefundNotificationChatID,
		BlacklistMessage:         req.BlacklistMessage,
	}

	for i, v := range []*bool{req.Star1, req.Star2, req.Star3, req.Star4, req.Star5} {
		if v != nil {
			p.Stars[i+1] = *v
		}
	}

	if req.MaxPrice != nil {
		price, err := decimal.Parse(req.MaxPrice.String())
		if err != nil {
			return settings.Patch{}, err
		}
		p.MaxPrice = &price
	}

	if req.BlacklistMessage != nil && strings.TrimSpace(*req.BlacklistMessage) == "" {
		return settings.Patch{}, errors.New("blacklist message must not be empty")
	}

	return p, nil
}

// GetSettings возвращает текущие настройки.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, newSettingsResponse(h.service.Settings()))
}

// UpdateSettings применяет частичное изменение настроек.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	patch, err := req.toPatch()
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	updated, err := h.service.UpdateSettings(r.Context(), patch)
	if err != nil {
		if errors.Is(err, settings.ErrNegativePrice) || errors.Is(err, settings.ErrInvalidStar) {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		h.logger.Error("update settings error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, newSettingsResponse(updated))
}

// GetBlacklist возвращает чёрный список.
func (h *Handler) GetBlacklist(w http.ResponseWriter, r *http.Request) {
	list := h.service.Blacklist()
	if list == nil {
		list = []string{}
	}
	h.writeJSON(w, http.StatusOK, list)
}

// AddToBlacklist добавляет покупателя в чёрный список.
func (h *Handler) AddToBlacklist(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	if !validation.IsValidUsername(username) {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	added, err := h.service.AddToBlacklist(r.Context(), username)
	if err != nil {
		h.logger.Error("add to blacklist error", zap.Error(err), zap.String("username", username))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if added {
		w.WriteHeader(http.StatusCreated)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// RemoveFromBlacklist удаляет покупателя из чёрного списка.
func (h *Handler) RemoveFromBlacklist(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	if !validation.IsValidUsername(username) {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	removed, err := h.service.RemoveFromBlacklist(r.Context(), username)
	if err != nil {
		h.logger.Error("remove from blacklist error", zap.Error(err), zap.String("username", username))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if !removed {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Health сообщает, что сервис запущен.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response error", zap.Error(err))
	}
}
