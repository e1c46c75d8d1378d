package gmailbox

import (
	"encoding/base64"
	"strings"

	gmail "google.golang.org/api/gmail/v1"
)

// DecodeBody extracts plain text from a full message payload.
//
// It walks the MIME part tree, collecting text/plain leaves and
// descending into multipart/alternative branches. A payload without
// parts but with inline body data is decoded directly. Decoding is
// best-effort: a message with no plain-text part yields "", never an
// error.
func DecodeBody(payload *gmail.MessagePart) string {
	if payload == nil {
		return ""
	}
	if len(payload.Parts) == 0 {
		if payload.Body != nil {
			return decodeData(payload.Body.Data)
		}
		return ""
	}
	return decodeParts(payload.Parts)
}

func decodeParts(parts []*gmail.MessagePart) string {
	var b strings.Builder
	for _, part := range parts {
		switch part.MimeType {
		case "text/plain":
			if part.Body != nil {
				b.WriteString(decodeData(part.Body.Data))
			}
		case "multipart/alternative":
			return decodeParts(part.Parts)
		}
	}
	return b.String()
}

// decodeData handles both padded and unpadded base64url, which the
// provider emits interchangeably.
func decodeData(data string) string {
	if data == "" {
		return ""
	}
	raw, err := base64.URLEncoding.DecodeString(data)
	if err != nil {
		raw, err = base64.RawURLEncoding.DecodeString(data)
		if err != nil {
			return ""
		}
	}
	return string(raw)
}
