package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// InquiryType enumerates the accepted inquiry categories.
type InquiryType string

const (
	InquiryConsultation InquiryType = "consultation"
	InquiryOther        InquiryType = "other"
)

// Label returns the Japanese label used in mail bodies and logs.
func (t InquiryType) Label() string {
	if t == InquiryConsultation {
		return "新規お取引のご相談"
	}
	return "その他"
}

// Valid reports whether t is one of the accepted values.
func (t InquiryType) Valid() bool {
	return t == InquiryConsultation || t == InquiryOther
}

// UnixSeconds accepts a JSON number or a numeric string. Anything else
// decodes to zero, which no timestamp window accepts.
type UnixSeconds int64

// UnmarshalJSON implements json.Unmarshaler.
func (u *UnixSeconds) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*u = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		b = []byte(strings.TrimSpace(s))
	}
	if f, err := strconv.ParseFloat(string(b), 64); err == nil {
		*u = UnixSeconds(int64(f))
		return nil
	}
	*u = 0
	return nil
}

// Submission is one contact-form post. It is never persisted.
type Submission struct {
	InquiryType   InquiryType `json:"inquiryType"`
	Company       string      `json:"company"`
	LastName      string      `json:"lastName"`
	FirstName     string      `json:"firstName"`
	LastNameKana  string      `json:"lastNameKana"`
	FirstNameKana string      `json:"firstNameKana"`
	Phone         string      `json:"phone"`
	Email         string      `json:"email"`
	Content       string      `json:"content"`

	// Honeypot is the hidden "website" field; humans leave it empty.
	Honeypot  string      `json:"website"`
	Timestamp UnixSeconds `json:"timestamp"`

	CSRFToken         string `json:"csrf_token"`
	DoubleSubmitToken string `json:"double_submit_token"`
	BotScoreToken     string `json:"recaptcha_token"`
}

// Normalize trims and NFC-normalizes the user-entered text fields.
// Tokens and the honeypot are left untouched.
func (s *Submission) Normalize() {
	for _, f := range []*string{
		&s.Company, &s.LastName, &s.FirstName, &s.LastNameKana,
		&s.FirstNameKana, &s.Phone, &s.Email, &s.Content,
	} {
		*f = strings.TrimSpace(norm.NFC.String(*f))
	}
	s.InquiryType = InquiryType(strings.TrimSpace(string(s.InquiryType)))
}

// FullName returns "last first" as used in mail bodies.
func (s *Submission) FullName() string {
	return s.LastName + " " + s.FirstName
}

// FullKana returns "lastKana firstKana".
func (s *Submission) FullKana() string {
	return s.LastNameKana + " " + s.FirstNameKana
}
