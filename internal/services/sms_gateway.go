package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// SMSGateway posts messages to an HTTP SMS provider.
type SMSGateway struct {
	apiURL   string
	apiKey   string
	senderID string
	client   *http.Client
}

func NewSMSGateway(apiURL, apiKey, senderID string, client *http.Client) *SMSGateway {
	if client == nil {
		client = http.DefaultClient
	}
	return &SMSGateway{apiURL: apiURL, apiKey: apiKey, senderID: senderID, client: client}
}

type smsRequest struct {
	To      string `json:"to"`
	From    string `json:"from,omitempty"`
	Message string `json:"message"`
}

func (g *SMSGateway) Name() string { return "sms" }

func (g *SMSGateway) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(smsRequest{To: msg.To, From: g.senderID, Message: msg.Text})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("send sms: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("sms gateway returned status %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}
	return nil
}
