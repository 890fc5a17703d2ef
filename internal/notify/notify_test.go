package notify

import (
	"context"
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mmeshcher/autorefund/internal/model"
)

func TestCompose(t *testing.T) {
	tests := []struct {
		name string
		kind model.NotificationKind
		user string
		want string
	}{
		{
			name: "blacklisted only",
			kind: model.NotificationBlacklistedOnly,
			user: "buyer",
			want: "[AutoRefund] Пользователь buyer добавлен в ЧС",
		},
		{
			name: "refunded and blacklisted",
			kind: model.NotificationRefundedAndBlacklisted,
			user: "buyer",
			want: "[AutoRefund]\n<b>Возврат выполнен.</b>\n<i>Пользователь buyer добавлен в ЧС</i>",
		},
		{
			name: "order blocked",
			kind: model.NotificationOrderBlockedRefund,
			user: "buyer",
			want: "[AutoRefund] Пользователь buyer из ЧС попытался оформить заказ. Выполнен автоматический возврат",
		},
		{
			name: "username escaped",
			kind: model.NotificationBlacklistedOnly,
			user: "<script>&",
			want: "[AutoRefund] Пользователь &lt;script&gt;&amp; добавлен в ЧС",
		},
		{
			name: "unknown kind",
			kind: "OTHER",
			user: "buyer",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Compose(tt.kind, tt.user))
		})
	}
}

type stubSettings struct {
	s model.Settings
}

func (s stubSettings) Snapshot() model.Settings {
	return s.s
}

type sent struct {
	target int64
	text   string
}

type stubSink struct {
	sent []sent
	err  error
}

func (s *stubSink) Send(ctx context.Context, target int64, text string) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, sent{target: target, text: text})
	return nil
}

func TestSender_Notify(t *testing.T) {
	n := model.Notification{Kind: model.NotificationRefundedAndBlacklisted, Username: "buyer"}

	tests := []struct {
		name       string
		enabled    bool
		target     int64
		sinkErr    error
		wantErr    error
		wantAnyErr bool
		wantSent   int
	}{
		{name: "delivered", enabled: true, target: 42, wantSent: 1},
		{name: "disabled", enabled: false, target: 42, wantErr: ErrDisabled},
		{name: "no target", enabled: true, target: 0, wantErr: ErrNoTarget},
		{name: "sink failure", enabled: true, target: 42, sinkErr: errors.New("network"), wantAnyErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := model.DefaultSettings()
			cfg.RefundNotification = tt.enabled
			cfg.RefundNotificationTarget = tt.target
			sink := &stubSink{err: tt.sinkErr}

			err := NewSender(sink, stubSettings{s: cfg}, zap.NewNop()).Notify(context.Background(), n)

			switch {
			case tt.wantErr != nil:
				require.ErrorIs(t, err, tt.wantErr)
			case tt.wantAnyErr:
				require.Error(t, err)
			default:
				require.NoError(t, err)
			}
			require.Len(t, sink.sent, tt.wantSent)
			if tt.wantSent > 0 {
				assert.Equal(t, tt.target, sink.sent[0].target)
				assert.Equal(t, Compose(n.Kind, n.Username), sink.sent[0].text)
			}
		})
	}
}

type fakeBot struct {
	sent []tgbotapi.Chattable
	err  error
}

func (b *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	b.sent = append(b.sent, c)
	return tgbotapi.Message{}, b.err
}

func TestTelegramSink_Send(t *testing.T) {
	bot := &fakeBot{}
	sink := &TelegramSink{bot: bot}

	require.NoError(t, sink.Send(context.Background(), 100, "<b>text</b>"))

	require.Len(t, bot.sent, 1)
	msg, ok := bot.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, int64(100), msg.ChatID)
	assert.Equal(t, "<b>text</b>", msg.Text)
	assert.Equal(t, tgbotapi.ModeHTML, msg.ParseMode)
}

func TestTelegramSink_Errors(t *testing.T) {
	sink := &TelegramSink{bot: &fakeBot{err: errors.New("forbidden")}}
	require.Error(t, sink.Send(context.Background(), 100, "text"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	bot := &fakeBot{}
	sink = &TelegramSink{bot: bot}
	require.ErrorIs(t, sink.Send(ctx, 100, "text"), context.Canceled)
	assert.Empty(t, bot.sent)
}
