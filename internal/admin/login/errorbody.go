package login

import (
	"bytes"
	"encoding/json"
	"strings"
)

// BodyShape tags which variant of ErrorBody is populated.
type BodyShape int

const (
	// BodyEmpty means the response carried no body.
	BodyEmpty BodyShape = iota
	// BodyDetailText is {"detail": "..."}.
	BodyDetailText
	// BodyDetailList is {"detail": [{"msg": "..."}, {"message": "..."}]}.
	BodyDetailList
	// BodyUnrecognised holds any other payload; Raw keeps the bytes.
	BodyUnrecognised
)

// ErrorBody is the decoded failure payload of the Authentication Service.
type ErrorBody struct {
	Shape    BodyShape
	Detail   string
	Messages []string
	Raw      []byte
}

type detailEnvelope struct {
	Detail json.RawMessage `json:"detail"`
}

type detailItem struct {
	Msg     string `json:"msg"`
	Message string `json:"message"`
}

// ParseErrorBody decodes raw into one of the known shapes. It never fails.
func ParseErrorBody(raw []byte) ErrorBody {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return ErrorBody{Shape: BodyEmpty}
	}
	unrecognised := ErrorBody{Shape: BodyUnrecognised, Raw: append([]byte(nil), trimmed...)}

	var env detailEnvelope
	if err := json.Unmarshal(trimmed, &env); err != nil || len(env.Detail) == 0 {
		return unrecognised
	}

	var text string
	if err := json.Unmarshal(env.Detail, &text); err == nil {
		return ErrorBody{Shape: BodyDetailText, Detail: text, Raw: unrecognised.Raw}
	}

	var items []json.RawMessage
	if err := json.Unmarshal(env.Detail, &items); err != nil {
		return unrecognised
	}
	messages := make([]string, 0, len(items))
	for _, rawItem := range items {
		var item detailItem
		if err := json.Unmarshal(rawItem, &item); err != nil {
			continue
		}
		msg := item.Msg
		if strings.TrimSpace(msg) == "" {
			msg = item.Message
		}
		if strings.TrimSpace(msg) == "" {
			continue
		}
		messages = append(messages, msg)
	}
	return ErrorBody{Shape: BodyDetailList, Messages: messages, Raw: unrecognised.Raw}
}

// ValidationMessage returns the text the server asked to display, if any.
func (b ErrorBody) ValidationMessage() (string, bool) {
	switch b.Shape {
	case BodyDetailText:
		if strings.TrimSpace(b.Detail) == "" {
			return "", false
		}
		return b.Detail, true
	case BodyDetailList:
		if len(b.Messages) == 0 {
			return "", false
		}
		return strings.Join(b.Messages, ", "), true
	default:
		return "", false
	}
}
