package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/aibekov/fitplanner/internal/domain"
)

// Client talks to the Google generative-language REST API. One POST per
// plan, no retries; upstream hiccups surface to the caller.
type Client struct {
	APIKey  string
	Model   string
	BaseURL string
	HTTP    *http.Client
}

func NewClient(apiKey, model string) *Client {
	return &Client{
		APIKey:  apiKey,
		Model:   model,
		BaseURL: "https://generativelanguage.googleapis.com",
		HTTP:    http.DefaultClient,
	}
}

type generateRequest struct {
	Contents []content `json:"contents"`
}
type content struct {
	Parts []part `json:"parts"`
}
type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Prompt interpolates the stored preferences into the plan request the
// model sees.
func Prompt(wd domain.WorkoutData) string {
	deref := func(p *string) string {
		if p == nil {
			return ""
		}
		return *p
	}
	return fmt.Sprintf(
		"Create a %s workout plan for someone focused on %s. Their height is %s cm, weight is %s kg, allergies: %s, injuries: %s.",
		deref(wd.PlanType), deref(wd.Goal), deref(wd.Height), deref(wd.Weight), deref(wd.Allergy), deref(wd.Injuries),
	)
}

// GeneratePlan sends the prompt and returns the first candidate's text
// with markdown emphasis asterisks stripped.
func (c *Client) GeneratePlan(ctx context.Context, wd domain.WorkoutData) (string, error) {
	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: Prompt(wd)}}}},
	})
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.BaseURL, c.Model, c.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("generativelanguage: status %d", resp.StatusCode)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("empty candidate response")
	}

	plan := out.Candidates[0].Content.Parts[0].Text
	return strings.ReplaceAll(plan, "*", ""), nil
}
