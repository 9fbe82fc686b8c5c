package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const plivoMessageURL = "https://api.plivo.com/v1/Account/%s/Message/"

// Client sends WhatsApp messages through the Plivo Message API.
type Client struct {
	authID     string
	authToken  string
	source     string
	httpClient *http.Client
}

func NewClient(authID, authToken, sourceNumber string) *Client {
	return &Client{
		authID:    authID,
		authToken: authToken,
		source:    sourceNumber,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Configured reports whether credentials and a source number are present.
func (c *Client) Configured() bool {
	return c.authID != "" && c.authToken != "" && c.source != ""
}

type sendMessageReq struct {
	Src  string `json:"src"`
	Dst  string `json:"dst"`
	Text string `json:"text"`
	Type string `json:"type"`
}

// SendMessage delivers text to the given number over WhatsApp.
func (c *Client) SendMessage(ctx context.Context, to, text string) error {
	if !c.Configured() {
		return fmt.Errorf("whatsapp client not configured")
	}
	if to == "" {
		return fmt.Errorf("missing destination number")
	}
	if !strings.HasPrefix(to, "+") {
		to = "+" + to
	}

	reqBody := sendMessageReq{
		Src:  c.source,
		Dst:  to,
		Text: text,
		Type: "whatsapp",
	}
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return err
	}

	url := fmt.Sprintf(plivoMessageURL, c.authID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.authID, c.authToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send whatsapp message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var bodyBytes []byte
		if resp.Body != nil {
			bodyBytes, _ = io.ReadAll(resp.Body)
		}
		return fmt.Errorf("plivo api returned status: %s, body: %s", resp.Status, string(bodyBytes))
	}
	return nil
}
