package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/example/velora/internal/models"
)

// TelegramService pushes cancellation events to the staff channel.
type TelegramService struct {
	botToken    string
	adminChatID string
}

// NewTelegramService creates a new TelegramService.
func NewTelegramService(botToken, adminChatID string) *TelegramService {
	return &TelegramService{
		botToken:    botToken,
		adminChatID: adminChatID,
	}
}

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// SendMessage sends a message to the specified chat.
func (s *TelegramService) SendMessage(chatID, text string) error {
	if s.botToken == "" {
		log.Println("[Telegram] Bot token not configured")
		return nil
	}

	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", s.botToken)

	msg := telegramMessage{
		ChatID:    chatID,
		Text:      text,
		ParseMode: "HTML",
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		log.Printf("[Telegram] Failed to send message: %v", err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("[Telegram] Unexpected status: %d", resp.StatusCode)
		return fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}

	return nil
}

// SendToAdmin sends a message to the admin chat.
func (s *TelegramService) SendToAdmin(text string) error {
	if s.adminChatID == "" {
		log.Println("[Telegram] Admin chat ID not configured")
		return nil
	}
	return s.SendMessage(s.adminChatID, text)
}

// FormatAmount formats a monetary amount with its currency.
func FormatAmount(amount float64, currency string) string {
	if currency == "" {
		currency = "USD"
	}
	return fmt.Sprintf("%.2f %s", amount, currency)
}

// NotifyCancellationRequested alerts the admin chat that a new cancellation
// request is awaiting review.
func (s *TelegramService) NotifyCancellationRequested(req *models.CancellationRequest, order *models.Order) error {
	if s.adminChatID == "" {
		return nil
	}

	kind := "Full order"
	if req.Type == models.CancellationPartialItems {
		kind = fmt.Sprintf("Partial (%d items)", len(req.ItemIDs))
	}

	message := fmt.Sprintf(`<b>🔔 CANCELLATION REQUEST</b>
<b>📋 Order:</b> %s
<b>📦 Scope:</b> %s
<b>💬 Reason:</b> %s
<b>💰 Quoted refund:</b> %s (%.0f%%)
━━━━━━━━━━━━━━━━━━`,
		order.OrderNumber,
		kind,
		req.Reason,
		FormatAmount(req.RefundAmount, order.Currency),
		req.RefundPercentage,
	)

	return s.SendToAdmin(strings.TrimSpace(message))
}

// NotifyCancellationDecided reports an admin decision to the channel.
func (s *TelegramService) NotifyCancellationDecided(req *models.CancellationRequest, order *models.Order) error {
	if s.adminChatID == "" {
		return nil
	}

	header := "✅ CANCELLATION APPROVED"
	detail := fmt.Sprintf("<b>💰 Refund:</b> %s (%.0f%%)", FormatAmount(req.RefundAmount, order.Currency), req.RefundPercentage)
	if req.Status == models.CancellationStatusRejected {
		header = "❌ CANCELLATION REJECTED"
		detail = fmt.Sprintf("<b>💬 Notes:</b> %s", req.AdminNotes)
	}

	message := fmt.Sprintf(`<b>%s</b>
<b>📋 Order:</b> %s
%s
━━━━━━━━━━━━━━━━━━`,
		header,
		order.OrderNumber,
		detail,
	)

	return s.SendToAdmin(strings.TrimSpace(message))
}
