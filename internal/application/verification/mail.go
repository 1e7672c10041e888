package verification

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/go-otp-auth/internal/domain"
)

var codeMail = template.Must(template.New("code").Parse(`<div style="max-width:480px;margin:auto;font-family:Arial,sans-serif;border:1px solid #e0e0e0;border-radius:8px;padding:24px;color:#333">
  <h2 style="text-align:center;color:#0d6efd">{{.Heading}}</h2>
  <p>Hello,</p>
  <p>{{.Intro}}</p>
  <div style="font-size:28px;font-weight:bold;letter-spacing:4px;text-align:center;margin:20px 0;color:#0d6efd">{{.Code}}</div>
  <p style="font-size:14px;color:#555">If you did not request this code, you can safely ignore this email.</p>
  <p style="font-size:14px;color:#555">This code will expire in {{.Minutes}} minutes.</p>
</div>
`))

type codeMailData struct {
	Heading string
	Intro   string
	Code    string
	Minutes int
}

func renderCodeMail(purpose domain.Purpose, code string, minutes int) (subject, body string, err error) {
	data := codeMailData{Code: code, Minutes: minutes}
	switch purpose {
	case domain.PurposeSignup:
		subject = "Your verification code"
		data.Heading = "Account verification"
		data.Intro = "Use the following code to verify your account:"
	case domain.PurposeRecovery:
		subject = "Your password reset code"
		data.Heading = "Password recovery"
		data.Intro = "Use the following code to reset your password:"
	default:
		return "", "", fmt.Errorf("unknown purpose %q", purpose)
	}
	var buf bytes.Buffer
	if err := codeMail.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("render mail: %w", err)
	}
	return subject, buf.String(), nil
}
