package emails

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const brevoAPI = "https://api.brevo.com/v3/smtp/email"

// BrevoSendRequest matches Brevo API v3 send transactional email body.
type BrevoSendRequest struct {
	Sender      BrevoSender   `json:"sender"`
	To          []BrevoTo     `json:"to"`
	Subject     string        `json:"subject"`
	HTMLContent string        `json:"htmlContent"`
	ReplyTo     *BrevoReplyTo `json:"replyTo,omitempty"`
}

type BrevoSender struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type BrevoTo struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type BrevoReplyTo struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// DecisionNotice is what the submitter is told about a reviewed project.
type DecisionNotice struct {
	ProjectName    string
	Outcome        string
	CreditsAwarded int64
	Comments       string
	Reason         string
	ReviewerName   string
}

// Sender notifies submitters of verification decisions. Nil = no-op.
type Sender interface {
	SendDecision(ctx context.Context, toEmail, toName string, n DecisionNotice) error
}

// BrevoClient sends emails via Brevo (Sendinblue) API: SENDINBLUE_API_KEY, MAIL_FROM.
type BrevoClient struct {
	APIKey   string
	MailFrom string
	Endpoint string
	Client   *http.Client
}

func (c *BrevoClient) from() string {
	if c.MailFrom != "" {
		return c.MailFrom
	}
	return "noreply@bluetrust.in"
}

func (c *BrevoClient) endpoint() string {
	if c.Endpoint != "" {
		return c.Endpoint
	}
	return brevoAPI
}

// send sends one email via Brevo API.
func (c *BrevoClient) send(ctx context.Context, toEmail, toName, subject, html string) error {
	if c.APIKey == "" {
		return nil
	}
	body := BrevoSendRequest{
		Sender:      BrevoSender{Email: c.from(), Name: "BlueTrust"},
		To:          []BrevoTo{{Email: toEmail, Name: toName}},
		Subject:     subject,
		HTMLContent: html,
		ReplyTo:     &BrevoReplyTo{Email: "support@bluetrust.in", Name: "BlueTrust Support"},
	}
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(bodyBytes))
	if err != nil {
		return err
	}
	req.Header.Set("api-key", c.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.Client == nil {
		c.Client = &http.Client{Timeout: 15 * time.Second}
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("brevo send failed: status %d", resp.StatusCode)
	}
	return nil
}

// SendDecision tells the submitter whether their project was approved.
func (c *BrevoClient) SendDecision(ctx context.Context, toEmail, toName string, n DecisionNotice) error {
	if c.APIKey == "" || toEmail == "" {
		return nil
	}
	if toName == "" {
		toName = "there"
	}
	return c.send(ctx, toEmail, toName, DecisionSubject(n), EmailLayout(decisionContent(toName, n)))
}

// DecisionSubject is the subject line for a decision notice.
func DecisionSubject(n DecisionNotice) string {
	if n.Outcome == "approve" {
		return fmt.Sprintf("Your project %q has been verified", n.ProjectName)
	}
	return fmt.Sprintf("Your project %q was not approved", n.ProjectName)
}

func decisionContent(toName string, n DecisionNotice) string {
	if n.Outcome == "approve" {
		return fmt.Sprintf(`
    <h1>Project Verified</h1>
    <p>Hi %s,</p>
    <p>Your project <strong>%s</strong> has been reviewed by %s and approved.</p>
    <p><strong>%d carbon credits</strong> have been added to your account and are ready to sell on the marketplace.</p>
    <h2>Reviewer comments</h2>
    <p>%s</p>
    <p>The BlueTrust Team</p>
`, EscapeHTML(toName), EscapeHTML(n.ProjectName), EscapeHTML(n.ReviewerName), n.CreditsAwarded, EscapeHTML(n.Comments))
	}
	return fmt.Sprintf(`
    <h1>Project Not Approved</h1>
    <p>Hi %s,</p>
    <p>Your project <strong>%s</strong> has been reviewed by %s and could not be approved.</p>
    <h2>Reason</h2>
    <p>%s</p>
    <p>You can submit a new project with updated documentation at any time.</p>
    <p>The BlueTrust Team</p>
`, EscapeHTML(toName), EscapeHTML(n.ProjectName), EscapeHTML(n.ReviewerName), EscapeHTML(n.Reason))
}
