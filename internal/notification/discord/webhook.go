// Package discord는 Discord 웹훅으로 생명주기 알림을 전송합니다
package discord

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const footerText = "Pacifica Trading Bot 🤖"

// Client는 Discord 웹훅 클라이언트입니다.
// 비어있는 웹훅 URL은 해당 채널 비활성화를 의미합니다
type Client struct {
	tradeWebhook string
	errorWebhook string
	infoWebhook  string
	httpClient   *http.Client
}

// ClientOption은 클라이언트 생성 옵션입니다
type ClientOption func(*Client)

// WithHTTPClient는 사용자 정의 HTTP 클라이언트를 설정합니다
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout은 웹훅 전송 타임아웃을 설정합니다
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient는 새로운 Discord 웹훅 클라이언트를 생성합니다
func NewClient(tradeWebhook, errorWebhook, infoWebhook string, opts ...ClientOption) *Client {
	c := &Client{
		tradeWebhook: tradeWebhook,
		errorWebhook: errorWebhook,
		infoWebhook:  infoWebhook,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// sendToWebhook은 메시지를 웹훅으로 전송합니다. URL이 비어있으면 무시합니다
func (c *Client) sendToWebhook(url string, msg WebhookMessage) error {
	if url == "" {
		return nil
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("웹훅 메시지 직렬화 실패: %w", err)
	}

	resp, err := c.httpClient.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("웹훅 전송 실패: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("웹훅 전송 실패: 상태 코드 %d", resp.StatusCode)
	}

	return nil
}
