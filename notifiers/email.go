package notifiers

import (
	"bytes"
	"embed"
	"encoding/base64"
	"fmt"
	"html/template"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/smtp"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"

	"github.com/kova98/insightgrep/models"
)

const highlightCount = 5

//go:embed templates/report.html
var emailTemplates embed.FS

var reportTemplate = template.Must(template.New("emails").ParseFS(emailTemplates, "templates/*.html"))

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type Mailer struct {
	smtpHost string
	smtpPort string
	from     string
	password string
	send     sendFunc
}

func NewMailer(smtpHost, smtpPort, from, password string) *Mailer {
	return &Mailer{
		smtpHost: smtpHost,
		smtpPort: smtpPort,
		from:     from,
		password: password,
		send:     smtp.SendMail,
	}
}

type highlight struct {
	Title    string
	Author   string
	URL      string
	Score    int
	Comments int
}

// ReportEmail summarizes a collection for recipient. When pdfPath points at
// an existing file it is attached.
func (m *Mailer) ReportEmail(recipient string, c *models.Collection, pdfPath string) (models.Email, error) {
	highlights := make([]highlight, 0, highlightCount)
	for _, envelope := range c.Posts {
		if len(highlights) >= highlightCount {
			break
		}
		p := envelope.Data
		if p.Author == models.AutoModerator {
			continue
		}
		highlights = append(highlights, highlight{
			Title:    strings.TrimSpace(p.Title),
			Author:   p.Author,
			URL:      p.URL(),
			Score:    p.Score,
			Comments: p.NumComments,
		})
	}

	var attachments []models.Attachment
	if pdfPath != "" {
		raw, err := os.ReadFile(pdfPath)
		switch {
		case err == nil:
			attachments = append(attachments, models.Attachment{
				Filename:    filepath.Base(pdfPath),
				ContentType: "application/pdf",
				Data:        raw,
			})
		case os.IsNotExist(err):
			slog.Warn("pdf not found, sending without attachment", "path", pdfPath)
		default:
			return models.Email{}, fmt.Errorf("read pdf attachment: %w", err)
		}
	}

	var buf bytes.Buffer
	tmplData := struct {
		Subreddit  string
		Term       string
		Total      int
		Collected  string
		Highlights []highlight
		HasBook    bool
	}{
		Subreddit:  c.Subreddit,
		Term:       c.Term,
		Total:      len(c.Posts),
		Collected:  c.CollectedAt.UTC().Format("Jan 02, 2006 15:04 MST"),
		Highlights: highlights,
		HasBook:    len(attachments) > 0,
	}
	if err := reportTemplate.ExecuteTemplate(&buf, "report.html", tmplData); err != nil {
		return models.Email{}, fmt.Errorf("render report template: %w", err)
	}

	return models.Email{
		To:          recipient,
		Subject:     fmt.Sprintf("insightgrep: %d career insights from r/%s", len(c.Posts), c.Subreddit),
		Body:        buf.String(),
		Attachments: attachments,
	}, nil
}

// BuildMessage assembles the RFC 5322 message: a single HTML part, or a
// multipart/mixed body when there are attachments.
func (m *Mailer) BuildMessage(mail models.Email) ([]byte, error) {
	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: insightgrep <%s>\r\n", m.from)
	fmt.Fprintf(&msg, "To: %s\r\n", mail.To)
	fmt.Fprintf(&msg, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", mail.Subject))
	msg.WriteString("MIME-Version: 1.0\r\n")

	if len(mail.Attachments) == 0 {
		msg.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
		msg.WriteString(mail.Body)
		return msg.Bytes(), nil
	}

	mw := multipart.NewWriter(&msg)
	fmt.Fprintf(&msg, "Content-Type: multipart/mixed; boundary=%s\r\n\r\n", mw.Boundary())

	part, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"text/html; charset=UTF-8"},
	})
	if err != nil {
		return nil, fmt.Errorf("create body part: %w", err)
	}
	if _, err := part.Write([]byte(mail.Body)); err != nil {
		return nil, fmt.Errorf("write body part: %w", err)
	}

	for _, a := range mail.Attachments {
		part, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {fmt.Sprintf("%s; name=%q", a.ContentType, a.Filename)},
			"Content-Transfer-Encoding": {"base64"},
			"Content-Disposition":       {fmt.Sprintf("attachment; filename=%q", a.Filename)},
		})
		if err != nil {
			return nil, fmt.Errorf("create attachment part: %w", err)
		}
		if _, err := part.Write(wrapBase64(a.Data)); err != nil {
			return nil, fmt.Errorf("write attachment part: %w", err)
		}
	}

	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}
	return msg.Bytes(), nil
}

func (m *Mailer) Send(mail models.Email) error {
	message, err := m.BuildMessage(mail)
	if err != nil {
		return err
	}

	auth := smtp.PlainAuth("", m.from, m.password, m.smtpHost)
	addr := fmt.Sprintf("%s:%s", m.smtpHost, m.smtpPort)
	err = m.send(addr, auth, m.from, []string{mail.To}, message)
	if err != nil {
		slog.Error("Failed to send email", "error", err)
		return err
	}

	slog.Info("email sent", "recipient", mail.To, "subject", mail.Subject, "attachments", len(mail.Attachments))
	return nil
}

func wrapBase64(raw []byte) []byte {
	encoded := base64.StdEncoding.EncodeToString(raw)

	var out bytes.Buffer
	for len(encoded) > 76 {
		out.WriteString(encoded[:76])
		out.WriteString("\r\n")
		encoded = encoded[76:]
	}
	out.WriteString(encoded)
	out.WriteString("\r\n")
	return out.Bytes()
}
