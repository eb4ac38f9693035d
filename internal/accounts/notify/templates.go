package notify

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/a-h/templ"
	"github.com/aussiebroadwan/accounts/internal/accounts/domain"
)

// Brand is the product identity the emails are signed with.
type Brand struct {
	AppName      string
	SupportEmail string
}

func (b Brand) appName() string {
	if b.AppName == "" {
		return "Accounts"
	}
	return b.AppName
}

// envelope is the per-kind part of an email: subject, inbox preview and body.
type envelope struct {
	subject string
	preview string
	body    templ.Component
}

// Render turns msg into a ready-to-send Email.
func Render(ctx context.Context, brand Brand, msg domain.Message) (Email, error) {
	env, err := compose(brand, msg.Notification)
	if err != nil {
		return Email{}, err
	}

	var sb strings.Builder
	if err := layout(brand, env).Render(ctx, &sb); err != nil {
		return Email{}, fmt.Errorf("notify: render %s: %w", msg.Notification.Kind(), err)
	}

	return Email{
		To:      msg.To,
		Subject: env.subject,
		Tag:     strings.ToLower(string(msg.Notification.Kind())),
		HTML:    sb.String(),
	}, nil
}

func compose(brand Brand, n domain.Notification) (envelope, error) {
	switch n := n.(type) {
	case domain.VerificationEmail:
		return envelope{
			subject: "Verify Your Email Address",
			preview: "Verify your email to activate your account",
			body: paragraphs(
				text("Hi %s,", n.Name),
				text("Thanks for signing up to %s. Confirm your email address to activate your account.", brand.appName()),
				button(n.Link, "Verify Email"),
				text("This link expires in %s.", humanDuration(n.ValidFor)),
				text("If you did not create an account, you can ignore this email."),
			),
		}, nil

	case domain.PasswordResetEmail:
		return envelope{
			subject: "Reset Your Password",
			preview: "Reset your password to regain access",
			body: paragraphs(
				text("Hi %s,", n.Name),
				text("We received a request to reset the password of your %s account.", brand.appName()),
				button(n.Link, "Reset Password"),
				text("This link expires in %s.", humanDuration(n.ValidFor)),
				text("If you did not ask for a reset, your password has not been changed."),
			),
		}, nil

	case domain.WelcomeEmail:
		return envelope{
			subject: fmt.Sprintf("Welcome to %s!", brand.appName()),
			preview: "Get started with your new account",
			body: paragraphs(
				text("Hi %s,", n.Name),
				text("Your email is verified and your %s account is ready. You can now log in.", brand.appName()),
			),
		}, nil

	case domain.PasswordChangedEmail:
		return envelope{
			subject: "Password Changed Successfully",
			preview: "Your password has been updated",
			body: paragraphs(
				text("Hi %s,", n.Name),
				text("The password of your %s account was changed on %s.", brand.appName(), n.ChangedAt.UTC().Format("2 Jan 2006 at 15:04 MST")),
				text("If this was not you, reset your password immediately and contact support."),
			),
		}, nil

	case domain.MFACodeEmail:
		return envelope{
			subject: "Your Security Code",
			preview: "Verify your identity.",
			body: paragraphs(
				text("Hi %s,", n.Name),
				text("Use this code to finish signing in:"),
				code(n.Code),
				text("The code expires in %s. Never share it with anyone.", humanDuration(n.ValidFor)),
			),
		}, nil
	}
	return envelope{}, fmt.Errorf("notify: no template for %T", n)
}

func layout(brand Brand, env envelope) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w,
			`<!DOCTYPE html><html><head><meta charset="utf-8"><title>%s</title></head>`+
				`<body style="font-family:Arial,sans-serif;color:#222">`+
				`<span style="display:none;max-height:0;overflow:hidden">%s</span>`+
				`<div style="max-width:560px;margin:0 auto;padding:24px">`,
			templ.EscapeString(env.subject), templ.EscapeString(env.preview),
		); err != nil {
			return err
		}

		if err := env.body.Render(ctx, w); err != nil {
			return err
		}

		footer := "The " + brand.appName() + " team"
		if brand.SupportEmail != "" {
			footer += " · " + brand.SupportEmail
		}
		_, err := fmt.Fprintf(w,
			`<hr style="border:none;border-top:1px solid #eee"><p style="color:#888;font-size:12px">%s</p></div></body></html>`,
			templ.EscapeString(footer),
		)
		return err
	})
}

func paragraphs(parts ...templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		for _, p := range parts {
			if err := p.Render(ctx, w); err != nil {
				return err
			}
		}
		return nil
	})
}

func text(format string, args ...any) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, "<p>"+templ.EscapeString(fmt.Sprintf(format, args...))+"</p>")
		return err
	})
}

func button(link, label string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		href := templ.EscapeString(string(templ.URL(link)))
		_, err := fmt.Fprintf(w,
			`<p><a href="%s" style="display:inline-block;padding:12px 20px;background:#2d6cdf;color:#fff;text-decoration:none;border-radius:4px">%s</a></p>`+
				`<p style="font-size:12px;color:#666">Or paste this link into your browser: %s</p>`,
			href, templ.EscapeString(label), href,
		)
		return err
	})
}

func code(value string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w,
			`<p style="font-size:28px;letter-spacing:6px;font-weight:bold">`+templ.EscapeString(value)+`</p>`)
		return err
	})
}

// humanDuration renders the validity windows used in emails: whole hours
// or whole minutes.
func humanDuration(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		return plural(int(d/time.Hour), "hour")
	case d >= time.Minute:
		return plural(int(d/time.Minute), "minute")
	default:
		return plural(int(d/time.Second), "second")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
