package emailsvc

import (
	"fmt"
	"net/http"
	"net/mail"
	"strings"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/trezcool/kodi/core"
)

var (
	host     = "https://api.sendgrid.com"
	endpoint = "/v3/mail/send"
)

// sendgridService delivers Kodi notifications. Every message is tagged with the app name and its
// template so bounces and opens can be grouped per notification kind in the SendGrid dashboard.
type sendgridService struct {
	key        string
	from       *sgmail.Email
	app        string
	subjPrefix string
	do         func(rest.Request) (*rest.Response, error)
	logger     core.Logger
}

var _ core.EmailService = (*sendgridService)(nil)

func NewSendgridService(conf *core.Config, logger core.Logger) core.EmailService {
	from := conf.DefaultFromEmail
	return &sendgridService{
		key:        conf.SendgridApiKey,
		from:       sgmail.NewEmail(from.Name, from.Address),
		app:        strings.ToLower(conf.AppName),
		subjPrefix: "[" + conf.AppName + "] ",
		do:         sendgrid.MakeRequestRetry,
		logger:     logger,
	}
}

func (svc sendgridService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		go func() {
			if err := msg.Render(); err != nil {
				svc.logger.Error(fmt.Sprintf("rendering email: %v", err), err)
				return
			}
			if !msg.HasRecipients() || !(msg.HasContent() || msg.HasAttachments()) {
				return
			}
			if err := svc.send(*msg); err != nil {
				svc.logger.Error(fmt.Sprintf("sending %q email: %v", msg.Subject, err), err)
			}
		}()
	}
}

// prepare builds a single personalization. SendGrid rejects a request where the same address
// appears twice across to, cc and bcc, so later duplicates are dropped.
func (svc sendgridService) prepare(msg core.EmailMessage) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = svc.subjPrefix + msg.Subject

	seen := make(map[string]bool)
	unique := func(addrs []mail.Address) []*sgmail.Email {
		var res []*sgmail.Email
		for _, addr := range addrs {
			key := strings.ToLower(strings.TrimSpace(addr.Address))
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			res = append(res, sgmail.NewEmail(addr.Name, addr.Address))
		}
		return res
	}
	p.AddTos(unique(msg.To)...)
	p.AddCCs(unique(msg.Cc)...)
	p.AddBCCs(unique(msg.Bcc)...)

	kind := msg.TemplateName
	if kind == "" {
		kind = "plain"
	}
	p.SetCustomArg("app", svc.app)
	p.SetCustomArg("template", kind)

	m := sgmail.NewV3Mail()
	m.SetFrom(svc.from)
	m.AddPersonalizations(p)
	m.AddCategories(svc.app, kind)

	m.AddContent(sgmail.NewContent("text/plain", msg.TextContent))
	if msg.HTMLContent != "" {
		m.AddContent(sgmail.NewContent("text/html", msg.HTMLContent))
	}

	for _, a := range msg.Attachments {
		m.AddAttachment(&sgmail.Attachment{
			Content:     a.Content.String(),
			Type:        a.ContentType,
			Filename:    a.Filename,
			Disposition: "attachment",
		})
	}
	return m
}

// send posts the message, retrying while SendGrid rate limits the account.
func (svc sendgridService) send(msg core.EmailMessage) error {
	req := sendgrid.GetRequest(svc.key, endpoint, host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(svc.prepare(msg))

	res, err := svc.do(req)
	if err != nil {
		return errors.Wrap(err, "sendgrid")
	}
	if res.StatusCode >= http.StatusBadRequest {
		return errors.Errorf("sendgrid status %d: %s", res.StatusCode, res.Body)
	}
	return nil
}

// New picks SendGrid when an API key is configured, the console otherwise.
func New(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.SendgridApiKey != "" && !conf.TestMode {
		return NewSendgridService(conf, logger)
	}
	return NewConsoleService(conf, logger)
}
