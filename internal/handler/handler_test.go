package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/govalues/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/autorefund/internal/middleware"
	"github.com/mmeshcher/autorefund/internal/model"
	"github.com/mmeshcher/autorefund/internal/service"
	"github.com/mmeshcher/autorefund/internal/settings"
)

const (
	testSecret     = "test-secret"
	testAdminToken = "admin-token"
)

type stubService struct {
	submitted []model.Event
	submitErr error

	current   model.Settings
	lastPatch *settings.Patch
	updateErr error

	blacklist []string
	added     bool
	removed   bool
	listErr   error
}

func (s *stubService) Submit(ev model.Event) error {
	if s.submitErr != nil {
		return s.submitErr
	}
	s.submitted = append(s.submitted, ev)
	return nil
}

func (s *stubService) Settings() model.Settings {
	return s.current
}

func (s *stubService) UpdateSettings(ctx context.Context, p settings.Patch) (model.Settings, error) {
	s.lastPatch = &p
	if s.updateErr != nil {
		return model.Settings{}, s.updateErr
	}
	return s.current, nil
}

func (s *stubService) Blacklist() []string {
	return s.blacklist
}

func (s *stubService) AddToBlacklist(ctx context.Context, username string) (bool, error) {
	return s.added, s.listErr
}

func (s *stubService) RemoveFromBlacklist(ctx context.Context, username string) (bool, error) {
	return s.removed, s.listErr
}

type testServer struct {
	handler   http.Handler
	signature *middleware.SignatureMiddleware
}

func newTestServer(t *testing.T, svc Service) *testServer {
	t.Helper()

	logger, err := zap.NewDevelopment()
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	signature := middleware.NewSignatureMiddleware(testSecret)
	h := NewHandler(svc, logger, signature, testAdminToken)

	return &testServer{handler: h.SetupRouter(), signature: signature}
}

func (s *testServer) event(t *testing.T, path string, body []byte) *http.Response {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set(middleware.SignatureHeader, s.signature.Sign(body))
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec.Result()
}

func (s *testServer) admin(t *testing.T, method, path, body string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+testAdminToken)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec.Result()
}

func TestFeedbackEvent_Accepted(t *testing.T) {
	svc := &stubService{}
	srv := newTestServer(t, svc)

	body := []byte(`{"kind":"new","author_id":5,"chat_id":77,"text":"Отзыв к заказу #ABCD1234"}`)
	res := srv.event(t, "/api/events/feedback", body)

	if res.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusAccepted)
	}
	if len(svc.submitted) != 1 {
		t.Fatalf("submitted %d events, want 1", len(svc.submitted))
	}
	ev, ok := svc.submitted[0].(model.FeedbackEvent)
	if !ok {
		t.Fatalf("submitted %T, want model.FeedbackEvent", svc.submitted[0])
	}
	if ev.Kind != model.FeedbackNew || ev.ChatID != 77 || ev.AuthorID != 5 {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestFeedbackEvent_BadSignature(t *testing.T) {
	svc := &stubService{}
	srv := newTestServer(t, svc)

	req := httptest.NewRequest(http.MethodPost, "/api/events/feedback", strings.NewReader(`{"kind":"NEW"}`))
	req.Header.Set(middleware.SignatureHeader, "deadbeef")
	rec := httptest.NewRecorder()
	srv.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if len(svc.submitted) != 0 {
		t.Fatalf("event must not be submitted")
	}
}

func TestFeedbackEvent_BadRequest(t *testing.T) {
	srv := newTestServer(t, &stubService{})

	for _, body := range []string{`{"text":"no kind"}`, `not json`} {
		res := srv.event(t, "/api/events/feedback", []byte(body))
		if res.StatusCode != http.StatusBadRequest {
			t.Fatalf("body %q: status = %d, want %d", body, res.StatusCode, http.StatusBadRequest)
		}
	}
}

func TestOrderEvent(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		submitErr error
		want      int
	}{
		{name: "accepted", body: `{"order":{"id":"ZXCV0987","buyer_username":"buyer","sum":49.90}}`, want: http.StatusAccepted},
		{name: "string sum", body: `{"order":{"id":"ZXCV0987","buyer_username":"buyer","sum":"49.90"}}`, want: http.StatusAccepted},
		{name: "bad order id", body: `{"order":{"id":"zx","buyer_username":"buyer","sum":10}}`, want: http.StatusBadRequest},
		{name: "no buyer", body: `{"order":{"id":"ZXCV0987","sum":10}}`, want: http.StatusBadRequest},
		{name: "negative sum", body: `{"order":{"id":"ZXCV0987","buyer_username":"buyer","sum":-1}}`, want: http.StatusBadRequest},
		{
			name:      "queue full",
			body:      `{"order":{"id":"ZXCV0987","buyer_username":"buyer","sum":10}}`,
			submitErr: service.ErrQueueFull,
			want:      http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubService{submitErr: tt.submitErr}
			srv := newTestServer(t, svc)

			res := srv.event(t, "/api/events/order", []byte(tt.body))
			if res.StatusCode != tt.want {
				t.Fatalf("status = %d, want %d", res.StatusCode, tt.want)
			}
			if tt.want != http.StatusAccepted {
				return
			}
			ev := svc.submitted[0].(model.OrderEvent)
			if ev.Sum.Cmp(decimal.MustParse("49.90")) != 0 {
				t.Fatalf("sum = %s, want 49.90", ev.Sum)
			}
		})
	}
}

func TestGetSettings(t *testing.T) {
	current := model.DefaultSettings()
	current.StarEnabled[2] = true
	current.MaxPrice = decimal.MustParse("100")
	srv := newTestServer(t, &stubService{current: current})

	res := srv.admin(t, http.MethodGet, "/api/settings", "")
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}
	if ct := res.Header.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content-type = %q, want application/json", ct)
	}

	var got map[string]any
	if err := json.NewDecoder(res.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got["star_3"] != true || got["star_1"] != false || got["max_price"] != float64(100) {
		t.Fatalf("unexpected settings: %v", got)
	}
	if got["blacklist_message"] != model.DefaultBlacklistMessage {
		t.Fatalf("unexpected blacklist message: %v", got["blacklist_message"])
	}
}

func TestSettings_RequireAdminToken(t *testing.T) {
	srv := newTestServer(t, &stubService{})

	req := httptest.NewRequest(http.MethodGet, "/api/settings", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec := httptest.NewRecorder()
	srv.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestUpdateSettings_Patch(t *testing.T) {
	svc := &stubService{current: model.DefaultSettings()}
	srv := newTestServer(t, svc)

	res := srv.admin(t, http.MethodPatch, "/api/settings", `{"star_2":true,"max_price":"250.5","refund_notification_chat_id":42}`)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	p := svc.lastPatch
	if p == nil {
		t.Fatalf("patch was not passed to service")
	}
	if len(p.Stars) != 1 || !p.Stars[2] {
		t.Fatalf("unexpected stars: %v", p.Stars)
	}
	if p.MaxPrice == nil || p.MaxPrice.Cmp(decimal.MustParse("250.5")) != 0 {
		t.Fatalf("unexpected max price: %v", p.MaxPrice)
	}
	if p.RefundNotificationTarget == nil || *p.RefundNotificationTarget != 42 {
		t.Fatalf("unexpected target: %v", p.RefundNotificationTarget)
	}
	if p.BlockUser != nil || p.BlacklistMessage != nil {
		t.Fatalf("fields absent from request must stay nil")
	}
}

func TestUpdateSettings_Errors(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		updateErr error
		want      int
	}{
		{name: "bad json", body: `{`, want: http.StatusBadRequest},
		{name: "empty message", body: `{"blacklist_message":"  "}`, want: http.StatusBadRequest},
		{name: "negative price", body: `{"max_price":-1}`, updateErr: settings.ErrNegativePrice, want: http.StatusBadRequest},
		{name: "not persisted", body: `{"block_user":false}`, updateErr: settings.ErrNotPersisted, want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, &stubService{updateErr: tt.updateErr})

			res := srv.admin(t, http.MethodPatch, "/api/settings", tt.body)
			if res.StatusCode != tt.want {
				t.Fatalf("status = %d, want %d", res.StatusCode, tt.want)
			}
		})
	}
}

func TestGetBlacklist_EmptyArray(t *testing.T) {
	srv := newTestServer(t, &stubService{})

	res := srv.admin(t, http.MethodGet, "/api/blacklist", "")
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	var got []string
	if err := json.NewDecoder(res.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty array, got %v", got)
	}
}

func TestBlacklistEndpoints(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		svc    *stubService
		want   int
	}{
		{name: "add new", method: http.MethodPut, path: "/api/blacklist/buyer", svc: &stubService{added: true}, want: http.StatusCreated},
		{name: "add existing", method: http.MethodPut, path: "/api/blacklist/buyer", svc: &stubService{}, want: http.StatusOK},
		{name: "add invalid", method: http.MethodPut, path: "/api/blacklist/bad%20name", svc: &stubService{}, want: http.StatusBadRequest},
		{
			name:   "add not persisted",
			method: http.MethodPut,
			path:   "/api/blacklist/buyer",
			svc:    &stubService{added: true, listErr: errors.New("disk full")},
			want:   http.StatusInternalServerError,
		},
		{name: "remove", method: http.MethodDelete, path: "/api/blacklist/buyer", svc: &stubService{removed: true}, want: http.StatusNoContent},
		{name: "remove absent", method: http.MethodDelete, path: "/api/blacklist/buyer", svc: &stubService{}, want: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, tt.svc)

			res := srv.admin(t, tt.method, tt.path, "")
			if res.StatusCode != tt.want {
				t.Fatalf("status = %d, want %d", res.StatusCode, tt.want)
			}
		})
	}
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, &stubService{})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	srv.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}
