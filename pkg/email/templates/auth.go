package templates

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
)

// ActionData is the content of a single call-to-action email.
type ActionData struct {
	AppName   string
	Name      string // recipient display name, optional
	Link      string
	ExpiresIn string // human readable validity window, e.g. "24 hours"
}

// Verification is the body of the email-address confirmation message.
func Verification(d ActionData) templ.Component {
	return layout(d.AppName, "Confirm your email address", templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := greeting(d.Name).Render(ctx, w); err != nil {
			return err
		}
		if err := paragraph(fmt.Sprintf("Thanks for signing up for %s. Confirm your email address to activate your account.", d.AppName)).Render(ctx, w); err != nil {
			return err
		}
		if err := button("Confirm email", d.Link).Render(ctx, w); err != nil {
			return err
		}
		return footnote(fmt.Sprintf("This link expires in %s. If you did not create an account, ignore this email.", d.ExpiresIn)).Render(ctx, w)
	}))
}

// PasswordReset is the body of the password reset message.
func PasswordReset(d ActionData) templ.Component {
	return layout(d.AppName, "Reset your password", templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := greeting(d.Name).Render(ctx, w); err != nil {
			return err
		}
		if err := paragraph("We received a request to reset the password for your account.").Render(ctx, w); err != nil {
			return err
		}
		if err := button("Reset password", d.Link).Render(ctx, w); err != nil {
			return err
		}
		return footnote(fmt.Sprintf("This link expires in %s and can be used once. All active sessions are signed out after the reset. If you did not request it, ignore this email.", d.ExpiresIn)).Render(ctx, w)
	}))
}

func layout(appName, title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w,
			`<!DOCTYPE html><html><head><meta charset="utf-8"><title>%s</title></head>`+
				`<body style="margin:0;padding:24px;background:#f4f4f5;font-family:Helvetica,Arial,sans-serif;color:#18181b">`+
				`<table role="presentation" width="100%%" cellpadding="0" cellspacing="0"><tr><td align="center">`+
				`<table role="presentation" width="560" cellpadding="0" cellspacing="0" style="background:#ffffff;border-radius:8px;padding:32px">`+
				`<tr><td><h1 style="font-size:20px;margin:0 0 24px">%s</h1>`,
			templ.EscapeString(title), templ.EscapeString(title)); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		_, err := fmt.Fprintf(w,
			`</td></tr></table><p style="font-size:12px;color:#71717a">%s</p></td></tr></table></body></html>`,
			templ.EscapeString(appName))
		return err
	})
}

func greeting(name string) templ.Component {
	if name == "" {
		return paragraph("Hello,")
	}
	return paragraph("Hello " + name + ",")
}

func paragraph(text string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<p style="font-size:15px;line-height:22px;margin:0 0 16px">%s</p>`, templ.EscapeString(text))
		return err
	})
}

func footnote(text string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<p style="font-size:13px;line-height:18px;color:#71717a;margin:24px 0 0">%s</p>`, templ.EscapeString(text))
		return err
	})
}

// button renders a call-to-action link. The href is escaped as an attribute
// and restricted to http(s) URLs by templ.URL.
func button(label, href string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w,
			`<p style="margin:24px 0"><a href="%s" style="display:inline-block;background:#2563eb;color:#ffffff;padding:12px 20px;border-radius:6px;text-decoration:none;font-weight:600">%s</a></p>`+
				`<p style="font-size:13px;color:#71717a;word-break:break-all">%s</p>`,
			templ.EscapeString(string(templ.URL(href))), templ.EscapeString(label), templ.EscapeString(href))
		return err
	})
}
