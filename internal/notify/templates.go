package notify

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/testwebinoue-debug/sept3/internal/core/domain"
	"github.com/testwebinoue-debug/sept3/internal/core/service"
)

// Subjects.
const (
	AdminSubject     = "【sept.3】お問い合わせがありました"
	AutoReplySubject = "【sept.3】お問い合わせを受け付けました"
)

const (
	bodyTimeLayout = "2006年01月02日 15:04:05"
	mailerName     = "sept3-contact"
)

const autoReplyFooter = `内容を確認の上、担当者より改めてご連絡させていただきます。
今しばらくお待ちくださいますようお願いいたします。

※このメールは自動送信されています。
※このメールに返信されても対応できませんのでご了承ください。

━━━━━━━━━━━━━━━━━━━━━━━━━━
sept.3 Inc.
〒530-0012 大阪市北区芝田1-12-7 大栄ビル新館N1003
TEL: 06-6376-0903
FAX: 06-6376-0913
━━━━━━━━━━━━━━━━━━━━━━━━━━
`

// TemplateConfig holds the addresses the composer writes into mails.
type TemplateConfig struct {
	AdminAddr string
	FromAddr  string
	FromName  string

	// ErrorTo receives error notices. Defaults to AdminAddr.
	ErrorTo string

	// IncludeUserAgent adds the client User-Agent to the admin notice.
	IncludeUserAgent bool
}

// Composer implements service.MailComposer.
type Composer struct {
	cfg TemplateConfig
	now func() time.Time
}

// NewComposer creates a Composer.
func NewComposer(cfg TemplateConfig) *Composer {
	if cfg.ErrorTo == "" {
		cfg.ErrorTo = cfg.AdminAddr
	}
	return &Composer{cfg: cfg, now: time.Now}
}

// AdminNotice renders the notification sent to the site owner.
func (c *Composer) AdminNotice(sub *domain.Submission, meta domain.RequestMeta) *domain.Mail {
	var b strings.Builder
	b.WriteString("【お問い合わせ内容】\n\n")
	writeSummary(&b, sub, true)
	b.WriteString("---\n")
	b.WriteString("送信日時: " + c.at(meta).Format(bodyTimeLayout) + "\n")
	b.WriteString("送信元IP: " + meta.ClientIP + "\n")
	if c.cfg.IncludeUserAgent {
		ua := meta.UserAgent
		if ua == "" {
			ua = "Unknown"
		}
		b.WriteString("User-Agent: " + ua + "\n")
	}

	return c.mail(c.cfg.AdminAddr, AdminSubject, b.String(), sub.Email)
}

// AutoReply renders the confirmation sent to the customer.
func (c *Composer) AutoReply(sub *domain.Submission, _ domain.RequestMeta) *domain.Mail {
	var b strings.Builder
	b.WriteString(sub.LastName + " " + sub.FirstName + " 様\n\n")
	b.WriteString("この度は、sept.3へお問い合わせいただきありがとうございます。\n")
	b.WriteString("以下の内容でお問い合わせを受け付けました。\n\n")
	b.WriteString("---\n\n")
	writeSummary(&b, sub, false)
	b.WriteString("---\n\n")
	b.WriteString(autoReplyFooter)

	return c.mail(sub.Email, AutoReplySubject, b.String(), c.cfg.FromAddr)
}

// ErrorNotice renders an operator notice about a failure.
func (c *Composer) ErrorNotice(subject, message string, meta domain.RequestMeta) *domain.Mail {
	var b strings.Builder
	b.WriteString("エラーが発生しました:\n\n")
	b.WriteString(message + "\n\n")
	b.WriteString("時刻: " + c.at(meta).Format(domain.AuditTimeLayout) + "\n")
	b.WriteString("IP: " + meta.ClientIP + "\n")

	m := c.mail(c.cfg.ErrorTo, subject, b.String(), "")
	m.FromName = ""
	return m
}

func writeSummary(b *strings.Builder, sub *domain.Submission, withKana bool) {
	b.WriteString("お問い合わせの種類: " + sub.InquiryType.Label() + "\n")
	if sub.Company != "" {
		b.WriteString("会社名: " + sub.Company + "\n")
	}
	b.WriteString("お名前: " + sub.LastName + " " + sub.FirstName + "\n")
	if withKana {
		b.WriteString("フリガナ: " + sub.LastNameKana + " " + sub.FirstNameKana + "\n")
	}
	b.WriteString("電話番号: " + sub.Phone + "\n")
	b.WriteString("メールアドレス: " + sub.Email + "\n")
	b.WriteString("\n【お問い合わせ内容】\n")
	b.WriteString(sub.Content + "\n\n")
}

func (c *Composer) mail(to, subject, body, replyTo string) *domain.Mail {
	h := map[string]string{
		"Content-Type":              "text/plain; charset=UTF-8",
		"Content-Transfer-Encoding": "8bit",
		"Message-ID":                "<" + uuid.NewString() + "@" + addrDomain(c.cfg.FromAddr) + ">",
		"X-Mailer":                  mailerName,
	}
	if replyTo != "" {
		h["Reply-To"] = replyTo
	}
	return &domain.Mail{
		To:       to,
		Subject:  subject,
		Body:     body,
		Headers:  h,
		FromName: c.cfg.FromName,
		FromAddr: c.cfg.FromAddr,
	}
}

func (c *Composer) at(meta domain.RequestMeta) time.Time {
	if !meta.At.IsZero() {
		return meta.At
	}
	return c.now()
}

func addrDomain(addr string) string {
	if i := strings.LastIndexByte(addr, '@'); i >= 0 && i < len(addr)-1 {
		return addr[i+1:]
	}
	return "localhost"
}

var _ service.MailComposer = (*Composer)(nil)
