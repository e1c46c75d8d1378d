package gmailbox

import (
	"encoding/base64"
	"testing"

	"github.com/nalgeon/be"
	gmail "google.golang.org/api/gmail/v1"
)

func b64(s string) string {
	return base64.URLEncoding.EncodeToString([]byte(s))
}

func TestDecodeBodyPlainPart(t *testing.T) {
	payload := &gmail.MessagePart{
		MimeType: "multipart/mixed",
		Parts: []*gmail.MessagePart{
			{MimeType: "text/plain", Body: &gmail.MessagePartBody{Data: b64("hello world")}},
		},
	}
	be.Equal(t, DecodeBody(payload), "hello world")
}

func TestDecodeBodyMultipartAlternative(t *testing.T) {
	payload := &gmail.MessagePart{
		MimeType: "multipart/mixed",
		Parts: []*gmail.MessagePart{
			{
				MimeType: "multipart/alternative",
				Parts: []*gmail.MessagePart{
					{MimeType: "text/plain", Body: &gmail.MessagePartBody{Data: b64("plain body")}},
					{MimeType: "text/html", Body: &gmail.MessagePartBody{Data: b64("<b>html body</b>")}},
				},
			},
		},
	}
	be.Equal(t, DecodeBody(payload), "plain body")
}

func TestDecodeBodyHTMLOnlyYieldsEmpty(t *testing.T) {
	payload := &gmail.MessagePart{
		MimeType: "multipart/alternative",
		Parts: []*gmail.MessagePart{
			{MimeType: "text/html", Body: &gmail.MessagePartBody{Data: b64("<b>html only</b>")}},
		},
	}
	be.Equal(t, DecodeBody(payload), "")
}

func TestDecodeBodyInlineData(t *testing.T) {
	payload := &gmail.MessagePart{
		MimeType: "text/plain",
		Body:     &gmail.MessagePartBody{Data: b64("inline body")},
	}
	be.Equal(t, DecodeBody(payload), "inline body")
}

func TestDecodeBodyUnpaddedData(t *testing.T) {
	payload := &gmail.MessagePart{
		MimeType: "text/plain",
		Body:     &gmail.MessagePartBody{Data: base64.RawURLEncoding.EncodeToString([]byte("no padding"))},
	}
	be.Equal(t, DecodeBody(payload), "no padding")
}

func TestDecodeBodyConcatenatesPlainParts(t *testing.T) {
	payload := &gmail.MessagePart{
		MimeType: "multipart/mixed",
		Parts: []*gmail.MessagePart{
			{MimeType: "text/plain", Body: &gmail.MessagePartBody{Data: b64("first ")}},
			{MimeType: "text/plain", Body: &gmail.MessagePartBody{Data: b64("second")}},
		},
	}
	be.Equal(t, DecodeBody(payload), "first second")
}

func TestDecodeBodyNilPayload(t *testing.T) {
	be.Equal(t, DecodeBody(nil), "")
}
