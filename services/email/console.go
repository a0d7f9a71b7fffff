package emailsvc

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"mime"
	"mime/multipart"
	"net/mail"
	"net/textproto"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/udemo/academy/core"
)

var (
	sentMessages = make([]core.EmailMessage, 0)
	mu           sync.Mutex
)

// SentMessages returns a copy of the messages delivered by the console services.
func SentMessages() []core.EmailMessage {
	mu.Lock()
	defer mu.Unlock()
	msgs := make([]core.EmailMessage, len(sentMessages))
	copy(msgs, sentMessages)
	return msgs
}

// LastMessageTo returns the most recent message sent to addr.
func LastMessageTo(addr string) (core.EmailMessage, bool) {
	mu.Lock()
	defer mu.Unlock()
	for i := len(sentMessages) - 1; i >= 0; i-- {
		for _, to := range sentMessages[i].To {
			if strings.EqualFold(to.Address, addr) {
				return sentMessages[i], true
			}
		}
	}
	return core.EmailMessage{}, false
}

func ResetSentMessages() {
	mu.Lock()
	sentMessages = sentMessages[:0]
	mu.Unlock()
}

type consoleService struct {
	defaultFromEmail mail.Address
	subjPrefix       string
	disableOutput    bool
	logger           core.Logger
}

var _ core.EmailService = (*consoleService)(nil)

// NewConsoleService prints emails to the standard logger instead of sending them.
func NewConsoleService(logger core.Logger) core.EmailService {
	return &consoleService{
		defaultFromEmail: core.Conf.DefaultFromEmail(),
		subjPrefix:       "[" + core.Conf.AppName + "] ",
		logger:           logger,
	}
}

func (svc consoleService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		go svc.sendMessage(msg)
	}
}

func (svc consoleService) sendMessage(msg *core.EmailMessage) {
	if err := msg.Render(); err != nil {
		svc.logError(errors.Wrap(err, "rendering email"))
		return
	}
	if msg.HasRecipients() && (msg.HasContent() || msg.HasAttachments()) {
		if err := svc.send(*msg); err != nil {
			svc.logError(err)
			return
		}
		mu.Lock()
		sentMessages = append(sentMessages, *msg)
		mu.Unlock()
	}
}

func (svc consoleService) logError(err error) {
	if svc.logger != nil {
		svc.logger.Error(err.Error(), err)
		return
	}
	log.Printf("%+v", err)
}

func (svc consoleService) send(msg core.EmailMessage) error {
	var buf bytes.Buffer
	if err := svc.writeMIME(&buf, msg); err != nil {
		return err
	}
	if !svc.disableOutput {
		log.Println(buf.String())
	}
	return nil
}

// writeMIME renders msg as multipart/alternative, wrapped in multipart/mixed when it carries attachments.
func (svc consoleService) writeMIME(out io.Writer, msg core.EmailMessage) error {
	hdr := []struct{ key, val string }{
		{"From", svc.defaultFromEmail.String()},
		{"MIME-Version", "1.0"},
		{"Date", time.Now().Format(time.RFC1123Z)},
		{"Subject", mime.QEncoding.Encode("utf-8", svc.subjPrefix+msg.Subject)},
		{"To", joinAddresses(msg.To)},
		{"Cc", joinAddresses(msg.Cc)},
	}
	for _, h := range hdr {
		if h.val != "" {
			fmt.Fprintf(out, "%s: %s\r\n", h.key, h.val)
		}
	}

	var mixed *multipart.Writer
	if msg.HasAttachments() {
		mixed = multipart.NewWriter(out)
		fmt.Fprintf(out, "Content-Type: multipart/mixed; boundary=%s\r\n\r\n", mixed.Boundary())
	}

	alt := multipart.NewWriter(out)
	boundary := alt.Boundary()
	altType := "multipart/alternative; boundary=" + boundary
	if mixed != nil {
		part, err := mixed.CreatePart(textproto.MIMEHeader{"Content-Type": {altType}})
		if err != nil {
			return errors.Wrap(err, "creating multipart/alternative part")
		}
		alt = multipart.NewWriter(part)
		if err = alt.SetBoundary(boundary); err != nil {
			return errors.Wrap(err, "setting alternative boundary")
		}
	} else {
		fmt.Fprintf(out, "Content-Type: %s\r\n\r\n", altType)
	}

	parts := []struct{ ct, content string }{{"text/plain; charset=utf-8", msg.TextContent}}
	if msg.HTMLContent != "" {
		parts = append(parts, struct{ ct, content string }{"text/html; charset=utf-8", msg.HTMLContent})
	}
	for _, p := range parts {
		w, err := alt.CreatePart(textproto.MIMEHeader{"Content-Type": {p.ct}})
		if err != nil {
			return errors.Wrapf(err, "creating %s part", p.ct)
		}
		fmt.Fprintf(w, "%s\r\n", p.content)
	}
	if err := alt.Close(); err != nil {
		return errors.Wrap(err, "closing multipart/alternative")
	}
	if mixed == nil {
		return nil
	}

	for _, at := range msg.Attachments {
		w, err := mixed.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {at.ContentType},
			"Content-Transfer-Encoding": {"base64"},
			"Content-Disposition":       {mime.FormatMediaType("attachment", map[string]string{"filename": at.Filename})},
		})
		if err != nil {
			return errors.Wrapf(err, "attaching %s", at.Filename)
		}
		fmt.Fprintf(w, "%s\r\n", at.Content.String())
	}
	return errors.Wrap(mixed.Close(), "closing multipart/mixed")
}

func joinAddresses(addrs []mail.Address) string {
	toJoin := make([]string, 0, len(addrs))
	for _, a := range addrs {
		toJoin = append(toJoin, a.String())
	}
	return strings.Join(toJoin, ", ")
}

type consoleServiceMock struct {
	consoleService
}

// NewConsoleServiceMock sends synchronously and silently; used by tests.
func NewConsoleServiceMock() core.EmailService {
	return &consoleServiceMock{
		consoleService: consoleService{
			defaultFromEmail: core.Conf.DefaultFromEmail(),
			subjPrefix:       "[" + core.Conf.AppName + "] ",
			disableOutput:    true,
		},
	}
}

func (svc *consoleServiceMock) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		// run synchronously
		svc.sendMessage(msg)
	}
}
