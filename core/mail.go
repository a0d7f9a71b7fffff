package core

import (
	"bytes"
	"encoding/base64"
	htmltmpl "html/template"
	"io"
	"io/fs"
	"log"
	"net/http"
	"net/mail"
	"path"
	"strings"
	"sync"
	texttmpl "text/template"
	"time"

	"github.com/pkg/errors"

	appfs "github.com/udemo/academy/fs"
)

const emailTemplatesDir = "templates/email"

var (
	emailTemplates map[string]*emailTemplate // by name, without ext
	tmplOnce       sync.Once
)

type (
	executor interface {
		Execute(w io.Writer, data interface{}) error
	}

	// emailTemplate pairs the plain text and HTML variants sharing a base name; either may be missing.
	emailTemplate struct {
		text *texttmpl.Template
		html *htmltmpl.Template
	}

	Attachment struct {
		Content     *bytes.Buffer // base64 encoded
		ContentType string
		Filename    string
	}

	EmailMessage struct {
		To          []mail.Address
		Cc          []mail.Address
		Bcc         []mail.Address
		Subject     string
		BodyStr     string // plain text, bypasses templates
		Attachments []Attachment

		TemplateName string
		TemplateData interface{}
		TextContent  string
		HTMLContent  string
	}

	// ContextData is the root value every email template executes against.
	ContextData struct {
		AppName         string
		FrontendBaseURL string
		Year            int
		Data            interface{}
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// SendMessages sends messages concurrently
		SendMessages(messages ...*EmailMessage)
	}
)

// Render fills TextContent and HTMLContent. Unknown template names are an error.
func (m *EmailMessage) Render() error {
	if m.BodyStr != "" {
		m.TextContent = m.BodyStr
		return nil
	}
	if m.TemplateName == "" {
		return nil
	}

	tmplOnce.Do(func() { loadEmailTemplates(nil) })
	tmpl, ok := emailTemplates[m.TemplateName]
	if !ok {
		return errors.Errorf("unknown email template %q", m.TemplateName)
	}
	if tmpl.text == nil && tmpl.html == nil {
		return errors.Errorf("email template %q has no usable variant", m.TemplateName)
	}

	data := ContextData{
		AppName:         Conf.AppName,
		FrontendBaseURL: Conf.FrontendBaseURL,
		Year:            time.Now().Year(),
		Data:            m.TemplateData,
	}
	var err error
	if tmpl.text != nil {
		if m.TextContent, err = execute(tmpl.text, data); err != nil {
			return errors.Wrapf(err, "rendering %s.txt", m.TemplateName)
		}
	}
	if tmpl.html != nil {
		if m.HTMLContent, err = execute(tmpl.html, data); err != nil {
			return errors.Wrapf(err, "rendering %s.gohtml", m.TemplateName)
		}
	}
	return nil
}

func execute(tmpl executor, data ContextData) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Attach base64 encodes r; the content type is sniffed unless given.
func (m *EmailMessage) Attach(r io.Reader, filename string, ct ...string) error {
	content, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	at := Attachment{
		Filename: filename,
		Content:  bytes.NewBufferString(base64.StdEncoding.EncodeToString(content)),
	}
	if len(ct) > 0 {
		at.ContentType = ct[0]
	} else {
		at.ContentType = http.DetectContentType(content)
	}
	m.Attachments = append(m.Attachments, at)
	return nil
}

func (m *EmailMessage) HasRecipients() bool  { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool     { return m.TextContent != "" || m.HTMLContent != "" }
func (m *EmailMessage) HasAttachments() bool { return len(m.Attachments) > 0 }

// ParseEmailTemplates eagerly parses the embedded email templates so that broken ones surface at startup.
func ParseEmailTemplates(logger Logger) {
	tmplOnce.Do(func() { loadEmailTemplates(logger) })
}

func loadEmailTemplates(logger Logger) {
	tmpls, errs := parseEmailTemplates(appfs.FS, Conf.Debug || Conf.TestMode)
	emailTemplates = tmpls
	for _, err := range errs {
		if logger != nil {
			logger.Error(err.Error(), err)
		} else {
			log.Print(err)
		}
	}
}

// parseEmailTemplates layers every non-underscored .txt/.gohtml file of fsys over the matching _base file.
// A file that fails to parse is skipped and reported; the rest are still usable.
func parseEmailTemplates(fsys fs.FS, strict bool) (map[string]*emailTemplate, []error) {
	tmpls := make(map[string]*emailTemplate)
	fps, err := fs.Glob(fsys, path.Join(emailTemplatesDir, "*"))
	if err != nil {
		return tmpls, []error{errors.Wrap(err, "listing email templates")}
	}

	var errs []error
	for _, fp := range fps {
		fname := path.Base(fp)
		ext := path.Ext(fname)
		if strings.HasPrefix(fname, "_") || (ext != ".txt" && ext != ".gohtml") {
			continue
		}
		name := strings.TrimSuffix(fname, ext)
		tmpl, ok := tmpls[name]
		if !ok {
			tmpl = new(emailTemplate)
			tmpls[name] = tmpl
		}

		base := path.Join(emailTemplatesDir, "_base"+ext)
		if ext == ".txt" {
			tmpl.text, err = texttmpl.ParseFS(fsys, base, fp)
			if err == nil && strict {
				tmpl.text = tmpl.text.Option("missingkey=error")
			}
		} else {
			tmpl.html, err = htmltmpl.ParseFS(fsys, base, fp)
			if err == nil && strict {
				tmpl.html = tmpl.html.Option("missingkey=error")
			}
		}
		if err != nil {
			errs = append(errs, errors.Wrapf(err, "parsing %s", fp))
		}
	}
	return tmpls, errs
}
