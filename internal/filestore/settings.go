package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/govalues/decimal"

	"github.com/mmeshcher/autorefund/internal/model"
	"github.com/mmeshcher/autorefund/internal/settings"
)

type settingsRecord struct {
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

func toRecord(s model.Settings) settingsRecord {
	return settingsRecord{
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

func (r settingsRecord) toModel() (model.Settings, error) {
	price, err := decimal.Parse(r.MaxPrice.String())
	if err != nil {
		return model.Settings{}, fmt.Errorf("parse max_price %q: %w", r.MaxPrice, err)
	}
	return model.Settings{
		StarEnabled:              [5]bool{r.Star1, r.Star2, r.Star3, r.Star4, r.Star5},
		MaxPrice:                 price,
		BlockUser:                r.BlockUser,
		RefundNotification:       r.RefundNotification,
		FeedbackDeleteEnabled:    r.FeedbackDelete,
		RefundNotificationTarget: r.RefundNotificationChatID,
		BlacklistMessage:         r.BlacklistMessage,
	}, nil
}

// SettingsFile хранит настройки в JSON-файле с ключами star_1..star_5, max_price и т.д.
type SettingsFile struct {
	path string
}

// NewSettingsFile создаёт хранилище настроек по указанному пути.
func NewSettingsFile(path string) *SettingsFile {
	return &SettingsFile{path: path}
}

// LoadSettings читает настройки. Отсутствующие в файле ключи получают значения по умолчанию.
func (f *SettingsFile) LoadSettings(ctx context.Context) (model.Settings, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return model.Settings{}, settings.ErrNotFound
		}
		return model.Settings{}, fmt.Errorf("read settings: %w", err)
	}

	rec := toRecord(model.DefaultSettings())
	if err := json.Unmarshal(data, &rec); err != nil {
		return model.Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	return rec.toModel()
}

// SaveSettings атомарно перезаписывает файл настроек.
func (f *SettingsFile) SaveSettings(ctx context.Context, s model.Settings) error {
	return writeJSON(f.path, toRecord(s))
}
