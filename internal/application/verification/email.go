package verification

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"text/template"
	"time"

	"github.com/mridang-api/internal/domain"
	"github.com/mridang-api/internal/infrastructure/smtp"
)

// EmailSubject is the fixed subject line of verification emails.
const EmailSubject = "Your OTP for Email Verification - Mridang"

//go:embed templates/otp_email.html templates/otp_email.txt
var templateFS embed.FS

var (
	htmlTmpl = htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/otp_email.html"))
	textTmpl = template.Must(template.ParseFS(templateFS, "templates/otp_email.txt"))
)

type emailData struct {
	Code      string
	ExpiresIn string
	Year      int
}

type emailDelivery struct {
	mailer smtp.Mailer
	ttl    time.Duration
	mock   bool
	now    func() time.Time
}

// NewEmailDelivery sends codes through mailer. With mock set, nothing is sent
// and the receipt asks the caller to return the code instead.
func NewEmailDelivery(mailer smtp.Mailer, ttl time.Duration, mock bool) Delivery {
	return &emailDelivery{mailer: mailer, ttl: ttl, mock: mock, now: time.Now}
}

func (d *emailDelivery) Deliver(ctx context.Context, email, code string) (Receipt, error) {
	if d.mock {
		return Receipt{Mock: true}, nil
	}
	msg, err := renderEmail(email, code, d.ttl, d.now())
	if err != nil {
		return Receipt{}, domain.NewError(domain.ErrInternal, MsgSendFailed, err)
	}
	if err := d.mailer.SendEmail(ctx, msg); err != nil {
		return Receipt{}, domain.NewError(domain.ErrDelivery, MsgSendFailed, fmt.Errorf("send email: %w", err))
	}
	return Receipt{}, nil
}

func renderEmail(to, code string, ttl time.Duration, now time.Time) (smtp.Message, error) {
	data := emailData{Code: code, ExpiresIn: HumanizeTTL(ttl), Year: now.Year()}

	var html, text bytes.Buffer
	if err := htmlTmpl.Execute(&html, data); err != nil {
		return smtp.Message{}, fmt.Errorf("render html email: %w", err)
	}
	if err := textTmpl.Execute(&text, data); err != nil {
		return smtp.Message{}, fmt.Errorf("render text email: %w", err)
	}
	return smtp.Message{
		To:       to,
		Subject:  EmailSubject,
		HTMLBody: html.String(),
		TextBody: text.String(),
	}, nil
}
