package service

import (
	"context"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/width"

	"github.com/testwebinoue-debug/sept3/internal/core/domain"
)

// DomainResolver reports whether a mail domain can receive mail.
type DomainResolver interface {
	// HasMailHost reports whether domain has an MX or an A record.
	HasMailHost(ctx context.Context, domain string) (bool, error)
}

// ValidationRules holds the field limits and deny lists.
type ValidationRules struct {
	MaxNameLength    int
	MaxCompanyLength int
	MaxContentLength int
	MinContentLength int
	MaxEmailLength   int
	MaxPhoneLength   int

	// MXCheck enables the DomainResolver lookup.
	MXCheck bool

	DisposableDomains []string
	ProhibitedWords   []string
}

// Validation rule names reported in Rejection.Rule.
const (
	RuleRequired   = "required"
	RuleMaxLength  = "max_length"
	RuleMinLength  = "min_length"
	RuleEnum       = "enum"
	RuleKatakana   = "katakana"
	RulePhone      = "phone_format"
	RuleEmail      = "email_format"
	RuleDisposable = "disposable_domain"
	RuleMailHost   = "mail_host"
	RuleProhibited = "prohibited_word"
)

// ProhibitedContentMessage is the generic message for content matches.
const ProhibitedContentMessage = "不正な文字列が含まれています"

var (
	katakanaPattern = regexp.MustCompile(`^[ァ-ヶー\s]+$`)
	phonePattern    = regexp.MustCompile(`^0\d{9,10}$`)
)

// Validator checks a Submission's fields in a fixed order; the first
// failure decides the rejection.
type Validator struct {
	rules      ValidationRules
	resolver   DomainResolver
	disposable map[string]struct{}
	prohibited []string
}

// NewValidator creates a Validator. resolver may be nil when MXCheck is off.
func NewValidator(rules ValidationRules, resolver DomainResolver) *Validator {
	v := &Validator{
		rules:      rules,
		resolver:   resolver,
		disposable: make(map[string]struct{}, len(rules.DisposableDomains)),
	}
	for _, d := range rules.DisposableDomains {
		v.disposable[strings.ToLower(strings.TrimSpace(d))] = struct{}{}
	}
	for _, w := range rules.ProhibitedWords {
		if w = strings.ToLower(w); w != "" {
			v.prohibited = append(v.prohibited, w)
		}
	}
	return v
}

// ValidateFields runs the structural checks: presence, length, inquiry
// type, kana, phone and email. On success sub.Phone holds digits only and
// sub.Email is lower-cased.
func (v *Validator) ValidateFields(ctx context.Context, sub *domain.Submission) *domain.Rejection {
	// 1. Required fields
	required := []struct {
		name  string
		value string
	}{
		{"inquiryType", string(sub.InquiryType)},
		{"lastName", sub.LastName},
		{"firstName", sub.FirstName},
		{"lastNameKana", sub.LastNameKana},
		{"firstNameKana", sub.FirstNameKana},
		{"phone", sub.Phone},
		{"email", sub.Email},
		{"content", sub.Content},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return domain.ValidationRejection(f.name, RuleRequired, "必須項目が入力されていません: "+f.name)
		}
	}

	// 2. Lengths in characters
	if utf8.RuneCountInString(sub.LastName) > v.rules.MaxNameLength {
		return domain.ValidationRejection("lastName", RuleMaxLength, fmt.Sprintf("お名前が長すぎます（%d文字以内）", v.rules.MaxNameLength))
	}
	if utf8.RuneCountInString(sub.FirstName) > v.rules.MaxNameLength {
		return domain.ValidationRejection("firstName", RuleMaxLength, fmt.Sprintf("お名前が長すぎます（%d文字以内）", v.rules.MaxNameLength))
	}
	if utf8.RuneCountInString(sub.Company) > v.rules.MaxCompanyLength {
		return domain.ValidationRejection("company", RuleMaxLength, fmt.Sprintf("会社名が長すぎます（%d文字以内）", v.rules.MaxCompanyLength))
	}
	n := utf8.RuneCountInString(sub.Content)
	if n > v.rules.MaxContentLength {
		return domain.ValidationRejection("content", RuleMaxLength, fmt.Sprintf("お問い合わせ内容が長すぎます（%d文字以内）", v.rules.MaxContentLength))
	}
	if n < v.rules.MinContentLength {
		return domain.ValidationRejection("content", RuleMinLength, fmt.Sprintf("お問い合わせ内容は%d文字以上で入力してください", v.rules.MinContentLength))
	}

	// 3. Inquiry type
	if !sub.InquiryType.Valid() {
		return domain.ValidationRejection("inquiryType", RuleEnum, "お問い合わせの種類が不正です")
	}

	// 4. Kana
	if !katakanaPattern.MatchString(sub.LastNameKana) {
		return domain.ValidationRejection("lastNameKana", RuleKatakana, "フリガナはカタカナで入力してください")
	}
	if !katakanaPattern.MatchString(sub.FirstNameKana) {
		return domain.ValidationRejection("firstNameKana", RuleKatakana, "フリガナはカタカナで入力してください")
	}

	// 5. Phone
	phone, ok := v.normalizePhone(sub.Phone)
	if !ok {
		return domain.ValidationRejection("phone", RulePhone, "電話番号の形式が正しくありません")
	}
	sub.Phone = phone

	// 6. Email
	email, rule := v.checkEmail(ctx, sub.Email)
	if rule != "" {
		return domain.ValidationRejection("email", rule, "メールアドレスの形式が正しくないか、存在しないドメインです")
	}
	sub.Email = email

	return nil
}

// ScanContent rejects a submission whose company, name or content holds a
// prohibited word. Matching is a case-insensitive substring search.
func (v *Validator) ScanContent(sub *domain.Submission) *domain.Rejection {
	text := strings.ToLower(sub.Company + sub.LastName + sub.FirstName + sub.Content)
	for _, w := range v.prohibited {
		if strings.Contains(text, w) {
			r := domain.ValidationRejection("content", RuleProhibited, ProhibitedContentMessage).Blocked()
			r.Stage = domain.StageContent
			r.Reason = "Prohibited word detected"
			return r
		}
	}
	return nil
}

// normalizePhone folds full-width digits, drops everything that is not a
// digit and checks the domestic number shape.
func (v *Validator) normalizePhone(raw string) (string, bool) {
	folded := width.Fold.String(raw)
	var b strings.Builder
	for _, r := range folded {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) > v.rules.MaxPhoneLength {
		return "", false
	}
	return digits, phonePattern.MatchString(digits)
}

// checkEmail returns the normalized address, or the failing rule name.
func (v *Validator) checkEmail(ctx context.Context, raw string) (string, string) {
	email := strings.ToLower(strings.TrimSpace(raw))

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Name != "" || addr.Address != email {
		return "", RuleEmail
	}
	at := strings.LastIndexByte(email, '@')
	host := email[at+1:]
	if !strings.Contains(host, ".") || strings.HasPrefix(host, ".") || strings.HasSuffix(host, ".") {
		return "", RuleEmail
	}
	if len(email) > v.rules.MaxEmailLength {
		return "", RuleMaxLength
	}
	if _, bad := v.disposable[host]; bad {
		return "", RuleDisposable
	}
	if v.rules.MXCheck && v.resolver != nil {
		ok, err := v.resolver.HasMailHost(ctx, host)
		if err != nil || !ok {
			return "", RuleMailHost
		}
	}
	return email, ""
}
