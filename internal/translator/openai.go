// Package translator turns an inbound OpenAI-style chat completion body into
// the payload sent to the NIM API.
package translator

import (
	"net/http"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/gribgrubs/nvidia-nim-proxy/internal/models"
	"github.com/gribgrubs/nvidia-nim-proxy/internal/provider"
)

const (
	contentTypeJSON = "application/json"
	opTranslate     = "translate request"
)

type field struct {
	name       string
	defaultRaw string
}

// payloadFields lists the forwarded fields in outbound order, with the raw
// JSON used when the inbound body omits them.
var payloadFields = []field{
	{name: "model", defaultRaw: `"` + models.DefaultModel + `"`},
	{name: "messages", defaultRaw: `[]`},
	{name: "temperature", defaultRaw: `0.7`},
	{name: "max_tokens", defaultRaw: `1024`},
	{name: "top_p", defaultRaw: `1.0`},
	{name: "stream", defaultRaw: `false`},
}

// Translate builds the upstream payload from a raw inbound body.
//
// Missing fields get their defaults. Present fields are copied as raw JSON,
// so null or mistyped values reach the upstream unchanged. Any other key is
// dropped. The only failures are a body that is not JSON or not a JSON
// object.
func Translate(body []byte) (models.OutboundPayload, error) {
	if !gjson.ValidBytes(body) {
		return models.OutboundPayload{}, provider.Errorf(provider.KindInvalidRequest, opTranslate, "invalid JSON payload")
	}

	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return models.OutboundPayload{}, provider.Errorf(provider.KindInvalidRequest, opTranslate, "request body must be a JSON object, got %s", describe(root))
	}

	out := []byte(`{}`)
	for _, f := range payloadFields {
		raw := f.defaultRaw
		if value := root.Get(f.name); value.Exists() {
			raw = value.Raw
		}

		var err error
		out, err = sjson.SetRawBytes(out, f.name, []byte(raw))
		if err != nil {
			return models.OutboundPayload{}, provider.Wrap(provider.KindSerialization, opTranslate, err)
		}
	}

	return models.OutboundPayload{
		Body:   out,
		Model:  resolveModel(root.Get("model")),
		Stream: truthy(root.Get("stream")),
	}, nil
}

// Headers returns the headers every upstream request carries.
func Headers(apiKey string) http.Header {
	h := make(http.Header, 2)
	h.Set("Authorization", "Bearer "+apiKey)
	h.Set("Content-Type", contentTypeJSON)
	return h
}

func resolveModel(value gjson.Result) string {
	switch {
	case !value.Exists():
		return models.DefaultModel
	case value.Type == gjson.String:
		return value.Str
	default:
		return value.Raw
	}
}

// truthy applies JSON truthiness: false, null, 0, "" and empty containers
// are false.
func truthy(value gjson.Result) bool {
	switch value.Type {
	case gjson.True:
		return true
	case gjson.Number:
		return value.Num != 0
	case gjson.String:
		return value.Str != ""
	case gjson.JSON:
		empty := true
		value.ForEach(func(_, _ gjson.Result) bool {
			empty = false
			return false
		})
		return !empty
	default:
		return false
	}
}

func describe(value gjson.Result) string {
	switch value.Type {
	case gjson.Null:
		return "null"
	case gjson.False, gjson.True:
		return "boolean"
	case gjson.Number:
		return "number"
	case gjson.String:
		return "string"
	default:
		if value.IsArray() {
			return "array"
		}
		return "object"
	}
}
