package discord

import (
	"fmt"
	"strings"
	"time"

	"github.com/assist-by/pacifica/internal/notification"
)

// NotifyStartup은 봇 시작 알림을 전송합니다
func (c *Client) NotifyStartup(info notification.StartupInfo) error {
	embed := NewEmbed().
		SetTitle("🚀 봇 시작").
		SetDescription(fmt.Sprintf("**모드**: %s\n**기준 잔고**: $%.2f\n**일일 한도**: %d회",
			info.Mode, info.Balance, info.DailyLimit)).
		AddField("거래 페어", strings.Join(info.Pairs, ", "), false).
		SetColor(notification.ColorInfo).
		SetFooter(footerText).
		SetTimestamp(time.Now())

	return c.sendToWebhook(c.infoWebhook, WebhookMessage{
		Embeds: []Embed{*embed},
	})
}

// NotifyShutdown은 봇 종료 알림을 전송합니다
func (c *Client) NotifyShutdown(reason string) error {
	embed := NewEmbed().
		SetTitle("🛑 봇 종료").
		SetDescription(fmt.Sprintf("**사유**: %s", reason)).
		SetColor(notification.ColorWarning).
		SetFooter(footerText).
		SetTimestamp(time.Now())

	return c.sendToWebhook(c.infoWebhook, WebhookMessage{
		Embeds: []Embed{*embed},
	})
}

// NotifyPositionOpened는 포지션 진입 알림을 전송합니다
func (c *Client) NotifyPositionOpened(info notification.TradeInfo) error {
	embed := NewEmbed().
		SetTitle(fmt.Sprintf("%s 포지션 진입: %s %s", sideEmoji(info.PositionType), info.Symbol, info.PositionType)).
		SetDescription(fmt.Sprintf(
			"**수량**: %v\n**진입가**: $%.2f\n**명목 가치**: $%.2f (잔고의 %.1f%%, %dx)\n**보유 예정**: %s\n**오늘 거래**: %d/%d회",
			info.Quantity, info.EntryPrice, info.Notional, info.RiskPercent, info.Leverage,
			info.PlannedHold.Round(time.Second), info.DailyTrades, info.DailyLimit,
		)).
		SetColor(notification.GetColorForPosition(info.PositionType)).
		SetFooter(footerText).
		SetTimestamp(time.Now())

	return c.sendToWebhook(c.tradeWebhook, WebhookMessage{
		Embeds: []Embed{*embed},
	})
}

// NotifyPositionClosed는 포지션 청산 알림을 전송합니다
func (c *Client) NotifyPositionClosed(info notification.CloseInfo) error {
	title := fmt.Sprintf("✅ 포지션 청산: %s %s", info.Symbol, info.PositionType)
	color := notification.ColorInfo
	pnlLine := "**손익**: 미상"

	if info.PnL != nil {
		if *info.PnL >= 0 {
			title = fmt.Sprintf("💰 포지션 청산: %s %s", info.Symbol, info.PositionType)
			color = notification.ColorSuccess
			pnlLine = fmt.Sprintf("**손익**: +$%.2f", *info.PnL)
		} else {
			title = fmt.Sprintf("📉 포지션 청산: %s %s", info.Symbol, info.PositionType)
			color = notification.ColorError
			pnlLine = fmt.Sprintf("**손익**: -$%.2f", -*info.PnL)
		}
	}

	desc := fmt.Sprintf("**수량**: %v\n**진입가**: $%.2f", info.Quantity, info.EntryPrice)
	if info.ExitPrice > 0 {
		desc += fmt.Sprintf("\n**청산가**: $%.2f", info.ExitPrice)
	}
	desc += fmt.Sprintf("\n**보유 시간**: %s\n%s", info.HoldTime.Round(time.Second), pnlLine)

	embed := NewEmbed().
		SetTitle(title).
		SetDescription(desc).
		SetColor(color).
		SetFooter(footerText).
		SetTimestamp(time.Now())

	return c.sendToWebhook(c.tradeWebhook, WebhookMessage{
		Embeds: []Embed{*embed},
	})
}

// NotifyLiquidation은 거래소 측 포지션 소멸 알림을 전송합니다
func (c *Client) NotifyLiquidation(info notification.LiquidationInfo) error {
	embed := NewEmbed().
		SetTitle(fmt.Sprintf("⚠️ 포지션 소멸 감지: %s %s", info.Symbol, info.PositionType)).
		SetDescription(fmt.Sprintf(
			"**수량**: %v\n**진입가**: $%.2f\n**보유 시간**: %s\n거래소 조회에서 포지션이 사라졌습니다. 강제 청산 가능성이 있습니다",
			info.Quantity, info.EntryPrice, info.Age.Round(time.Second),
		)).
		SetColor(notification.ColorWarning).
		SetFooter(footerText).
		SetTimestamp(time.Now())

	return c.sendToWebhook(c.errorWebhook, WebhookMessage{
		Embeds: []Embed{*embed},
	})
}

// NotifyFault는 복구 불가 오류 알림을 전송합니다
func (c *Client) NotifyFault(err error) error {
	embed := NewEmbed().
		SetTitle("❌ 치명적 오류로 봇 정지").
		SetDescription(fmt.Sprintf("```%v```", err)).
		SetColor(notification.ColorError).
		SetFooter(footerText).
		SetTimestamp(time.Now())

	return c.sendToWebhook(c.errorWebhook, WebhookMessage{
		Embeds: []Embed{*embed},
	})
}

// SendInfo는 일반 정보 알림을 전송합니다
func (c *Client) SendInfo(message string) error {
	embed := NewEmbed().
		SetDescription(message).
		SetColor(notification.ColorInfo).
		SetFooter(footerText).
		SetTimestamp(time.Now())

	return c.sendToWebhook(c.infoWebhook, WebhookMessage{
		Embeds: []Embed{*embed},
	})
}

// SendError는 에러 알림을 전송합니다
func (c *Client) SendError(err error) error {
	embed := NewEmbed().
		SetTitle("에러 발생").
		SetDescription(fmt.Sprintf("```%v```", err)).
		SetColor(notification.ColorError).
		SetFooter(footerText).
		SetTimestamp(time.Now())

	return c.sendToWebhook(c.errorWebhook, WebhookMessage{
		Embeds: []Embed{*embed},
	})
}

// sideEmoji는 포지션 방향에 따른 이모지를 반환합니다
func sideEmoji(positionType string) string {
	switch positionType {
	case "LONG":
		return "🚀"
	case "SHORT":
		return "🔻"
	default:
		return "⚠️"
	}
}
