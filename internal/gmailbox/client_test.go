package gmailbox

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/nalgeon/be"
	gmail "google.golang.org/api/gmail/v1"
)

func TestReplySubject(t *testing.T) {
	be.Equal(t, ReplySubject("Invoice"), "Re: Invoice")
	be.Equal(t, ReplySubject("Re: Invoice"), "Re: Invoice")
	be.Equal(t, ReplySubject("RE: Invoice"), "RE: Invoice")
	be.Equal(t, ReplySubject("re: Invoice"), "re: Invoice")
	be.Equal(t, ReplySubject(""), "Re: ")
}

func TestBuildRaw(t *testing.T) {
	raw, err := buildRaw("a@b.com", "Hello", "body text")
	be.Err(t, err, nil)

	decoded, err := base64.URLEncoding.DecodeString(raw)
	be.Err(t, err, nil)

	rfc822 := string(decoded)
	be.True(t, strings.Contains(rfc822, "To: a@b.com"))
	be.True(t, strings.Contains(rfc822, "Subject: Hello"))
	be.True(t, strings.Contains(rfc822, "body text"))
}

func TestHeaderValue(t *testing.T) {
	payload := &gmail.MessagePart{
		Headers: []*gmail.MessagePartHeader{
			{Name: "From", Value: "a@b.com"},
			{Name: "Subject", Value: "Invoice"},
		},
	}
	be.Equal(t, HeaderValue(payload, "From"), "a@b.com")
	be.Equal(t, HeaderValue(payload, "subject"), "Invoice")
	be.Equal(t, HeaderValue(payload, "Date"), "")
	be.Equal(t, HeaderValue(nil, "From"), "")
}

func TestInternalTime(t *testing.T) {
	msg := &gmail.Message{InternalDate: 1700000000000}
	be.Equal(t, InternalTime(msg).UnixMilli(), int64(1700000000000))
}
