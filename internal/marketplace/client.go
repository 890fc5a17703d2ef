// Package marketplace предоставляет клиент API торговой площадки: заказы, возвраты, чаты.
package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/govalues/decimal"

	"github.com/mmeshcher/autorefund/internal/model"
)

var (
	// ErrOrderNotFound возвращается, если площадка не знает заказ.
	ErrOrderNotFound = errors.New("order not found")
	// ErrRefundRejected возвращается, если площадка отказала в возврате.
	ErrRefundRejected = errors.New("refund rejected")
	// ErrNotConfigured возвращается клиентом без адреса площадки.
	ErrNotConfigured = errors.New("marketplace client not configured")
)

// Client инкапсулирует HTTP-взаимодействие с площадкой от имени аккаунта магазина.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

type reviewResponse struct {
	Stars int    `json:"stars"`
	Text  string `json:"text"`
}

type orderResponse struct {
	ID            string          `json:"id"`
	Status        string          `json:"status"`
	Sum           json.Number     `json:"sum"`
	BuyerUsername string          `json:"buyer_username"`
	Review        *reviewResponse `json:"review"`
}

type chatResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type messageRequest struct {
	Text string `json:"text"`
}

// NewClient создаёт клиент площадки по базовому адресу и токену аккаунта.
func NewClient(baseURL, token string) *Client {
	base := strings.TrimRight(baseURL, "/")
	if base != "" && !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	return &Client{
		baseURL: base,
		token:   token,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	if c == nil || c.baseURL == "" {
		return nil, ErrNotConfigured
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	return resp, nil
}

// GetOrder возвращает снимок заказа.
func (c *Client) GetOrder(ctx context.Context, orderID string) (*model.Order, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/orders/"+url.PathEscape(orderID), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var result orderResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	sum, err := decimal.Parse(result.Sum.String())
	if err != nil {
		return nil, fmt.Errorf("parse order sum %q: %w", result.Sum, err)
	}

	order := &model.Order{
		ID:            result.ID,
		Status:        model.OrderStatus(result.Status),
		Sum:           sum,
		BuyerUsername: result.BuyerUsername,
	}
	if result.Review != nil {
		order.Review = &model.Review{
			Stars: result.Review.Stars,
			Text:  result.Review.Text,
		}
	}

	return order, nil
}

// Refund оформляет возврат средств по заказу.
func (c *Client) Refund(ctx context.Context, orderID string) error {
	resp, err := c.do(ctx, http.MethodPost, "/api/orders/"+url.PathEscape(orderID)+"/refund", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		return nil
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	case http.StatusConflict, http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %s", ErrRefundRejected, orderID)
	}
	return fmt.Errorf("unexpected status: %d", resp.StatusCode)
}

// SendMessage отправляет сообщение в чат с покупателем.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	resp, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/chats/%d/messages", chatID), messageRequest{Text: text})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	return nil
}

// GetChatByName ищет чат с покупателем по имени. Если чата нет, возвращает nil без ошибки.
func (c *Client) GetChatByName(ctx context.Context, username string) (*model.Chat, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/chats?username="+url.QueryEscape(username), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &model.Chat{ID: result.ID, Name: result.Name}, nil
}
