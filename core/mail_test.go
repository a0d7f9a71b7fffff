package core

import (
	"encoding/base64"
	"net/mail"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmailMessage_Attach(t *testing.T) {
	m := EmailMessage{To: []mail.Address{{Address: "an@test.test"}}}
	assert.False(t, m.HasAttachments())

	require.NoError(t, m.Attach(strings.NewReader("id,title\n1,Go\n"), "courses.csv", "text/csv"))
	require.NoError(t, m.Attach(strings.NewReader("plain notes"), "notes.txt"))

	require.Len(t, m.Attachments, 2)
	assert.True(t, m.HasAttachments())
	assert.Equal(t, "courses.csv", m.Attachments[0].Filename)
	assert.Equal(t, "text/csv", m.Attachments[0].ContentType)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("id,title\n1,Go\n")), m.Attachments[0].Content.String())
	assert.Equal(t, "text/plain; charset=utf-8", m.Attachments[1].ContentType)
}

func TestEmailMessage_Render(t *testing.T) {
	t.Run("plain body", func(t *testing.T) {
		m := EmailMessage{BodyStr: "xin chào", TemplateName: "otp"}
		require.NoError(t, m.Render())
		assert.Equal(t, "xin chào", m.TextContent)
		assert.Empty(t, m.HTMLContent)
	})

	t.Run("embedded otp template", func(t *testing.T) {
		m := EmailMessage{
			TemplateName: "otp",
			TemplateData: map[string]interface{}{"Name": "An", "Code": "123456", "ValidMinutes": 10},
		}
		require.NoError(t, m.Render())
		assert.Contains(t, m.TextContent, "123456")
		assert.Contains(t, m.HTMLContent, "123456")
		assert.True(t, m.HasContent())
	})

	t.Run("unknown template", func(t *testing.T) {
		m := EmailMessage{TemplateName: "nope"}
		assert.Error(t, m.Render())
	})

	t.Run("template that failed to parse", func(t *testing.T) {
		ParseEmailTemplates(nil)
		emailTemplates["broken"] = new(emailTemplate)
		defer delete(emailTemplates, "broken")

		m := EmailMessage{TemplateName: "broken"}
		assert.Error(t, m.Render())
		assert.False(t, m.HasContent())
	})
}

func Test_parseEmailTemplates(t *testing.T) {
	fsys := fstest.MapFS{
		"templates/email/_base.txt":      {Data: []byte(`{{template "content" .}} - {{.AppName}}`)},
		"templates/email/_base.gohtml":   {Data: []byte(`<p>{{template "content" .}}</p>`)},
		"templates/email/welcome.txt":    {Data: []byte(`{{define "content"}}hi {{.Data.Name}}{{end}}`)},
		"templates/email/welcome.gohtml": {Data: []byte(`{{define "content"}}<b>{{.Data.Name}}</b>{{end}}`)},
		"templates/email/notice.txt":     {Data: []byte(`{{define "content"}}notice{{end}}`)},
		"templates/email/broken.gohtml":  {Data: []byte(`{{define "content"}}{{.Data.Name}`)},
		"templates/email/readme.md":      {Data: []byte(`ignored`)},
	}

	tmpls, errs := parseEmailTemplates(fsys, true)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "broken.gohtml")
	assert.Len(t, tmpls, 3)

	require.NotNil(t, tmpls["welcome"].text)
	require.NotNil(t, tmpls["welcome"].html)
	assert.Nil(t, tmpls["notice"].html)

	data := ContextData{AppName: "Academy", Data: map[string]interface{}{"Name": "<An>"}}
	text, err := execute(tmpls["welcome"].text, data)
	require.NoError(t, err)
	assert.Equal(t, "hi <An> - Academy", text)

	html, err := execute(tmpls["welcome"].html, data)
	require.NoError(t, err)
	assert.Equal(t, "<p><b>&lt;An&gt;</b></p>", html)

	_, err = execute(tmpls["welcome"].text, ContextData{Data: map[string]interface{}{}})
	assert.Error(t, err, "missing keys fail in strict mode")
}
