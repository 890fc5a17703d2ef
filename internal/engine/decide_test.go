package engine

import (
	"testing"

	"github.com/govalues/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/autorefund/internal/model"
)

func policy(maxPrice string, stars ...int) model.Settings {
	s := model.DefaultSettings()
	s.MaxPrice = decimal.MustParse(maxPrice)
	for _, st := range stars {
		s.StarEnabled[st-1] = true
	}
	return s
}

func reviewed(sum string, stars int) model.Order {
	return model.Order{
		ID:            "ABCD1234",
		Status:        model.OrderStatusClosed,
		Sum:           decimal.MustParse(sum),
		BuyerUsername: "buyer",
		Review:        &model.Review{Stars: stars},
	}
}

func TestExtractOrderID(t *testing.T) {
	id, err := ExtractOrderID("Покупатель buyer написал отзыв к заказу #ABCD1234.")
	require.NoError(t, err)
	assert.Equal(t, "ABCD1234", id)

	_, err = ExtractOrderID("Покупатель buyer написал отзыв")
	require.ErrorIs(t, err, ErrMalformedEvent)
}

func TestDecideFeedback_NewOrChanged(t *testing.T) {
	refundAndBlock := model.Decision{
		Refund:    true,
		Blacklist: true,
		Message:   true,
		Notification: &model.Notification{
			Kind:     model.NotificationRefundedAndBlacklisted,
			Username: "buyer",
		},
	}

	tests := []struct {
		name        string
		settings    model.Settings
		order       model.Order
		blacklisted bool
		want        model.Decision
	}{
		{
			name:     "refund and blacklist",
			settings: policy("100", 3),
			order:    reviewed("50", 3),
			want:     refundAndBlock,
		},
		{
			name:     "sum equal to threshold",
			settings: policy("100", 3),
			order:    reviewed("100", 3),
			want:     refundAndBlock,
		},
		{
			name:     "sum above threshold",
			settings: policy("100", 3),
			order:    reviewed("150", 3),
			want:     model.Decision{Reason: "order sum exceeds max price"},
		},
		{
			name:     "rating disabled",
			settings: policy("100", 3),
			order:    reviewed("50", 4),
			want:     model.Decision{Reason: "refund disabled for rating"},
		},
		{
			name:     "rating out of range",
			settings: policy("100", 1, 2, 3, 4, 5),
			order:    reviewed("50", 0),
			want:     model.Decision{Reason: "refund disabled for rating"},
		},
		{
			name:     "no review",
			settings: policy("100", 3),
			order:    model.Order{ID: "ABCD1234", Sum: decimal.MustParse("50"), BuyerUsername: "buyer"},
			want:     model.Decision{Reason: "order has no review"},
		},
		{
			name:        "already blacklisted refunds only",
			settings:    policy("100", 3),
			order:       reviewed("50", 3),
			blacklisted: true,
			want:        model.Decision{Refund: true},
		},
		{
			name: "blacklisting disabled refunds only",
			settings: func() model.Settings {
				s := policy("100", 3)
				s.BlockUser = false
				return s
			}(),
			order: reviewed("50", 3),
			want:  model.Decision{Refund: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, kind := range []model.FeedbackKind{model.FeedbackNew, model.FeedbackChanged} {
				got := DecideFeedback(tt.settings, kind, tt.order, tt.blacklisted)
				assert.Equal(t, tt.want, got, "kind=%s", kind)
			}
		})
	}
}

func TestDecideFeedback_Deleted(t *testing.T) {
	enabled := func() model.Settings {
		s := policy("100")
		s.FeedbackDeleteEnabled = true
		return s
	}

	blockOnly := model.Decision{
		Blacklist: true,
		Message:   true,
		Notification: &model.Notification{
			Kind:     model.NotificationBlacklistedOnly,
			Username: "buyer",
		},
	}

	tests := []struct {
		name        string
		settings    model.Settings
		order       model.Order
		blacklisted bool
		wantNoOp    bool
	}{
		{name: "trigger disabled", settings: policy("100"), order: reviewed("50", 1), wantNoOp: true},
		{name: "blacklists buyer", settings: enabled(), order: reviewed("50", 1)},
		{
			name: "blacklisting disabled",
			settings: func() model.Settings {
				s := enabled()
				s.BlockUser = false
				return s
			}(),
			order:    reviewed("50", 1),
			wantNoOp: true,
		},
		{
			name:     "order already refunded",
			settings: enabled(),
			order: func() model.Order {
				o := reviewed("50", 1)
				o.Status = model.OrderStatusRefunded
				return o
			}(),
			wantNoOp: true,
		},
		{name: "sum above threshold", settings: enabled(), order: reviewed("500", 1), wantNoOp: true},
		{name: "already blacklisted", settings: enabled(), order: reviewed("50", 1), blacklisted: true, wantNoOp: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DecideFeedback(tt.settings, model.FeedbackDeleted, tt.order, tt.blacklisted)
			if tt.wantNoOp {
				assert.True(t, got.NoOp())
				assert.NotEmpty(t, got.Reason)
				return
			}
			assert.Equal(t, blockOnly, got)
		})
	}
}

func TestDecideFeedback_NeverRefundsOnDelete(t *testing.T) {
	s := policy("100", 1, 2, 3, 4, 5)
	s.FeedbackDeleteEnabled = true

	got := DecideFeedback(s, model.FeedbackDeleted, reviewed("10", 1), false)
	assert.False(t, got.Refund)
}

func TestDecideOrder(t *testing.T) {
	s := policy("100")
	ev := model.OrderEvent{OrderID: "ZXCV0987", BuyerUsername: "buyer", Sum: decimal.MustParse("40")}

	got := DecideOrder(s, ev, true)
	assert.Equal(t, model.Decision{
		Refund:  true,
		Message: true,
		Notification: &model.Notification{
			Kind:     model.NotificationOrderBlockedRefund,
			Username: "buyer",
		},
	}, got)

	assert.True(t, DecideOrder(s, ev, false).NoOp())

	ev.Sum = decimal.MustParse("100.01")
	assert.True(t, DecideOrder(s, ev, true).NoOp())
}

func TestDecideFeedback_BlockUserOffDisablesAllBlacklisting(t *testing.T) {
	s := policy("100", 3)
	s.FeedbackDeleteEnabled = true
	s.BlockUser = false

	deleted := DecideFeedback(s, model.FeedbackDeleted, reviewed("50", 3), false)
	assert.True(t, deleted.NoOp())
	assert.Equal(t, "blacklisting disabled", deleted.Reason)

	reviewedNew := DecideFeedback(s, model.FeedbackNew, reviewed("50", 3), false)
	assert.True(t, reviewedNew.Refund)
	assert.False(t, reviewedNew.Blacklist)
	assert.False(t, reviewedNew.Message)
	assert.Nil(t, reviewedNew.Notification)
}
