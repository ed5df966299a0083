// -----------------------------------------------------------------------
// Email Sink - SMTP notification with the analysis report attached
// -----------------------------------------------------------------------

package sinks

import (
	"context"
	"crypto/rand"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/specto/internal/common"
	"github.com/ternarybob/specto/internal/interfaces"
	"github.com/ternarybob/specto/internal/models"
)

// EmailSink sends a notification email for each completed analysis.
// When a report service is wired in, the mail carries an HTML report
// body alongside the plain text summary.
type EmailSink struct {
	config  common.EmailSinkConfig
	reports interfaces.ReportService
	logger  arbor.ILogger
}

// NewEmailSink creates the SMTP notification sink. reports may be nil,
// in which case mails are plain text only.
func NewEmailSink(config common.EmailSinkConfig, reports interfaces.ReportService, logger arbor.ILogger) *EmailSink {
	return &EmailSink{
		config:  config,
		reports: reports,
		logger:  logger,
	}
}

// Name identifies the sink in logs and error maps
func (s *EmailSink) Name() string {
	return "email"
}

// Deliver sends the analysis summary to every configured recipient
func (s *EmailSink) Deliver(ctx context.Context, job *models.AnalysisJob, record *models.BusinessRecord) error {
	if s.config.Host == "" || s.config.From == "" || len(s.config.To) == 0 {
		return fmt.Errorf("email sink not fully configured")
	}

	subject := fmt.Sprintf("Website analysis completed: %s", record.Metadata.URLAnalyzed)
	textBody := emailTextBody(record)

	htmlBody := ""
	if s.reports != nil {
		html, err := s.reports.HTML(record)
		if err != nil {
			s.logger.Warn().Err(err).Str("analysis_id", job.ID).Msg("Falling back to plain text email")
		} else {
			htmlBody = string(html)
		}
	}

	msg := s.buildMessage(subject, htmlBody, textBody)
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	var auth smtp.Auth
	if s.config.Username != "" {
		auth = smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)
	}

	if s.config.UseTLS {
		return s.sendWithTLS(addr, auth, msg)
	}
	return smtp.SendMail(addr, auth, s.config.From, s.config.To, []byte(msg))
}

// buildMessage assembles the MIME message. HTML bodies are base64
// encoded so long rendered lines survive the RFC 5322 line limit.
func (s *EmailSink) buildMessage(subject, htmlBody, textBody string) string {
	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("From: %s\r\n", s.config.From))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(s.config.To, ", ")))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))

	if htmlBody != "" {
		boundary := generateBoundary()
		msg.WriteString("MIME-Version: 1.0\r\n")
		msg.WriteString(fmt.Sprintf("Content-Type: multipart/alternative; boundary=\"%s\"\r\n", boundary))
		msg.WriteString("\r\n")

		msg.WriteString(fmt.Sprintf("--%s\r\n", boundary))
		msg.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
		msg.WriteString("Content-Transfer-Encoding: base64\r\n")
		msg.WriteString("\r\n")
		msg.WriteString(encodeBase64WithLineBreaks(textBody))
		msg.WriteString("\r\n")

		msg.WriteString(fmt.Sprintf("--%s\r\n", boundary))
		msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
		msg.WriteString("Content-Transfer-Encoding: base64\r\n")
		msg.WriteString("\r\n")
		msg.WriteString(encodeBase64WithLineBreaks(htmlBody))
		msg.WriteString("\r\n")

		msg.WriteString(fmt.Sprintf("--%s--\r\n", boundary))
	} else {
		msg.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
		msg.WriteString("\r\n")
		msg.WriteString(textBody)
	}

	return msg.String()
}

// sendWithTLS connects over TLS, falling back to STARTTLS when the
// server does not accept a direct TLS connection
func (s *EmailSink) sendWithTLS(addr string, auth smtp.Auth, msg string) error {
	host := strings.Split(addr, ":")[0]

	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: host})
	if err != nil {
		return s.sendWithSTARTTLS(addr, auth, msg)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, host)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer client.Close()

	return s.send(client, auth, msg)
}

// sendWithSTARTTLS dials plain and upgrades the connection
func (s *EmailSink) sendWithSTARTTLS(addr string, auth smtp.Auth, msg string) error {
	host := strings.Split(addr, ":")[0]

	client, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer client.Close()

	if err := client.StartTLS(&tls.Config{ServerName: host}); err != nil {
		return fmt.Errorf("failed to start TLS: %w", err)
	}

	return s.send(client, auth, msg)
}

func (s *EmailSink) send(client *smtp.Client, auth smtp.Auth, msg string) error {
	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}

	if err := client.Mail(s.config.From); err != nil {
		return fmt.Errorf("failed to set mail from: %w", err)
	}
	for _, recipient := range s.config.To {
		if err := client.Rcpt(recipient); err != nil {
			return fmt.Errorf("failed to set recipient %s: %w", recipient, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to start data: %w", err)
	}
	if _, err := w.Write([]byte(msg)); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	return client.Quit()
}

// emailTextBody renders the plain text summary of one analysis
func emailTextBody(record *models.BusinessRecord) string {
	var b strings.Builder

	name := record.AIAnalysis.BusinessName
	if name == "" {
		name = record.Metadata.URLAnalyzed
	}

	fmt.Fprintf(&b, "Website analysis for %s\r\n\r\n", name)
	fmt.Fprintf(&b, "URL: %s\r\n", record.Metadata.URLAnalyzed)
	if record.AIAnalysis.Industry != "" {
		fmt.Fprintf(&b, "Industry: %s\r\n", record.AIAnalysis.Industry)
	}
	fmt.Fprintf(&b, "Social platforms detected: %d\r\n", record.SocialPresence.PresenceScore)
	fmt.Fprintf(&b, "SSL: %s\r\n", yesNo(record.TechnicalMetrics.SSL))
	fmt.Fprintf(&b, "Mobile friendly: %s\r\n", yesNo(record.TechnicalMetrics.MobileFriendly.Friendly))

	if emails := record.ContactInfo.Emails; len(emails) > 0 {
		fmt.Fprintf(&b, "Contact email: %s\r\n", emails[0])
	}
	if phones := record.ContactInfo.Phones; len(phones) > 0 {
		fmt.Fprintf(&b, "Contact phone: %s\r\n", phones[0])
	}

	if record.AIAnalysis.Failed() {
		fmt.Fprintf(&b, "\r\nAI analysis was unavailable: %s\r\n", record.AIAnalysis.Error)
	} else if summary := record.AIAnalysis.Insights.ExecutiveSummary; summary != "" {
		fmt.Fprintf(&b, "\r\n%s\r\n", summary)
	}

	return b.String()
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

// generateBoundary creates a unique MIME boundary string
func generateBoundary() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "specto_boundary_fallback"
	}
	return fmt.Sprintf("specto_%x", b)
}

// encodeBase64WithLineBreaks encodes content as base64 with 76-char
// line breaks per RFC 2045
func encodeBase64WithLineBreaks(content string) string {
	encoded := base64.StdEncoding.EncodeToString([]byte(content))

	var result strings.Builder
	const lineLen = 76

	for i := 0; i < len(encoded); i += lineLen {
		end := i + lineLen
		if end > len(encoded) {
			end = len(encoded)
		}
		result.WriteString(encoded[i:end])
		if end < len(encoded) {
			result.WriteString("\r\n")
		}
	}

	return result.String()
}

var _ interfaces.ResultSink = (*EmailSink)(nil)
