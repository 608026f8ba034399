package notifications

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"github.com/geocoder89/dibs/internal/observability"
)

//go:embed templates/*
var templateFS embed.FS

const (
	TemplateConfirm       = "confirm"
	TemplateResetPassword = "reset_password"
	TemplateChangeEmail   = "change_email"
)

type MailerConfig struct {
	BaseURL       string
	SubjectPrefix string
}

// Mailer renders account emails and hands them to a Transport.
type Mailer struct {
	transport Transport
	cfg       MailerConfig
	prom      *observability.Prom

	text *texttemplate.Template
	html *htmltemplate.Template
}

func NewMailer(t Transport, cfg MailerConfig, prom *observability.Prom) (*Mailer, error) {
	text, err := texttemplate.ParseFS(templateFS, "templates/*.txt")
	if err != nil {
		return nil, fmt.Errorf("parse text templates: %w", err)
	}

	html, err := htmltemplate.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse html templates: %w", err)
	}

	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")

	return &Mailer{transport: t, cfg: cfg, prom: prom, text: text, html: html}, nil
}

type mailData struct {
	Username string
	Link     string
}

func (m *Mailer) SendConfirmation(ctx context.Context, in ConfirmationInput) error {
	return m.send(ctx, in.Email, "Confirm Your Account", TemplateConfirm, mailData{
		Username: in.Username,
		Link:     m.cfg.BaseURL + "/auth/confirm/" + in.Token,
	})
}

func (m *Mailer) SendPasswordReset(ctx context.Context, in PasswordResetInput) error {
	return m.send(ctx, in.Email, "Reset Your Password", TemplateResetPassword, mailData{
		Username: in.Username,
		Link:     m.cfg.BaseURL + "/auth/reset/" + in.Token,
	})
}

func (m *Mailer) SendEmailChange(ctx context.Context, in EmailChangeInput) error {
	return m.send(ctx, in.NewEmail, "Confirm your email address", TemplateChangeEmail, mailData{
		Username: in.Username,
		Link:     m.cfg.BaseURL + "/auth/change_email/" + in.Token,
	})
}

func (m *Mailer) send(ctx context.Context, to, subject, name string, data mailData) error {
	msg, err := m.render(to, subject, name, data)
	if err != nil {
		m.prom.IncMail(name, "failed")
		return err
	}

	if err := m.transport.Send(ctx, msg); err != nil {
		m.prom.IncMail(name, "failed")
		return fmt.Errorf("send %s mail: %w", name, err)
	}

	m.prom.IncMail(name, "sent")
	return nil
}

func (m *Mailer) render(to, subject, name string, data mailData) (Message, error) {
	var text, html bytes.Buffer

	if err := m.text.ExecuteTemplate(&text, name+".txt", data); err != nil {
		return Message{}, fmt.Errorf("render %s text: %w", name, err)
	}
	if err := m.html.ExecuteTemplate(&html, name+".html", data); err != nil {
		return Message{}, fmt.Errorf("render %s html: %w", name, err)
	}

	if m.cfg.SubjectPrefix != "" {
		subject = m.cfg.SubjectPrefix + " " + subject
	}

	return Message{
		To:       to,
		Subject:  subject,
		Text:     text.String(),
		HTML:     html.String(),
		Template: name,
	}, nil
}
