package httpapi

import (
	"encoding/json"
	"strings"

	"github.com/xpert786/portalauth"
)

// envelope is the API's uniform response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Errors  json.RawMessage `json:"errors"`
}

// fieldErrors normalizes the envelope's errors payload into FieldErrors.
// Three shapes occur in the wild: a map of field to message list, a map of
// field to single message, and a flat "field: msg; field: msg" string. When
// the errors payload is absent the message itself is tried as the flat form.
func (env *envelope) fieldErrors() portalauth.FieldErrors {
	if fe := parseFieldErrors(env.Errors); fe.Any() {
		return fe
	}
	return parseDelimited(env.Message)
}

func parseFieldErrors(raw json.RawMessage) portalauth.FieldErrors {
	fe := portalauth.FieldErrors{}
	if len(raw) == 0 || string(raw) == "null" {
		return fe
	}

	var multi map[string][]string
	if err := json.Unmarshal(raw, &multi); err == nil {
		for field, msgs := range multi {
			for _, m := range msgs {
				fe.Add(field, m)
			}
		}
		return fe
	}

	var single map[string]string
	if err := json.Unmarshal(raw, &single); err == nil {
		for field, m := range single {
			fe.Add(field, m)
		}
		return fe
	}

	var flat string
	if err := json.Unmarshal(raw, &flat); err == nil {
		return parseDelimited(flat)
	}
	return fe
}

// parseDelimited splits "email: taken; password: too weak" into field
// errors. Segments without a colon do not name a field and are skipped.
func parseDelimited(s string) portalauth.FieldErrors {
	fe := portalauth.FieldErrors{}
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		field, msg, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		field = strings.TrimSpace(field)
		msg = strings.TrimSpace(msg)
		if field == "" || msg == "" || strings.Contains(field, " ") {
			continue
		}
		fe.Add(field, msg)
	}
	return fe
}
