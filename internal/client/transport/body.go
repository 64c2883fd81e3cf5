package transport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

// Response is a successful (2xx) reply.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
	// JSON is true when the content type declared JSON.
	JSON bool
}

// Decode unmarshals a JSON body into v. A non-JSON, empty or malformed body
// yields an *Error with OutcomeParseError.
func (r *Response) Decode(v any) error {
	if !r.JSON {
		return newError(OutcomeParseError, r.Status, MsgUnexpected, fmt.Errorf("content is not json"))
	}
	if len(bytes.TrimSpace(r.Body)) == 0 {
		return newError(OutcomeParseError, r.Status, MsgUnexpected, fmt.Errorf("empty body"))
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return newError(OutcomeParseError, r.Status, MsgUnexpected, err)
	}
	return nil
}

// Value returns the parsed JSON document (map, slice, number...) for JSON
// responses and the raw text otherwise.
func (r *Response) Value() any {
	if !r.JSON {
		return r.Text()
	}
	var v any
	if err := json.Unmarshal(r.Body, &v); err != nil {
		return r.Text()
	}
	return v
}

func (r *Response) Text() string {
	return string(r.Body)
}

func isJSONContent(contentType string) bool {
	if contentType == "" {
		return false
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.Contains(strings.ToLower(contentType), "json")
	}
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}

// errorMessage extracts a human-readable message from an error body.
//
// Recognised shapes, in order:
//
//	{"detail": "text"}
//	{"detail": [{"msg": "text", ...}, ...]}   first entry wins
//	{"detail": {"message": "text"}}
//	{"message": "text"}
//	{"error": "text"} or {"error": {"message": "text"}}
//
// Anything else falls back to the HTTP status text.
func errorMessage(body []byte, status int) string {
	if msg := extractMessage(body); msg != "" {
		return msg
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return fmt.Sprintf("Request failed with status %d", status)
}

func extractMessage(body []byte) string {
	if len(body) == 0 || !gjson.ValidBytes(body) {
		return ""
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return ""
	}

	if d := root.Get("detail"); d.Exists() {
		switch {
		case d.Type == gjson.String:
			if s := strings.TrimSpace(d.String()); s != "" {
				return s
			}
		case d.IsArray():
			if msg := firstMessage(d.Get("0")); msg != "" {
				return msg
			}
		case d.IsObject():
			if msg := firstMessage(d); msg != "" {
				return msg
			}
		}
	}

	if m := root.Get("message"); m.Type == gjson.String && strings.TrimSpace(m.String()) != "" {
		return strings.TrimSpace(m.String())
	}

	if e := root.Get("error"); e.Exists() {
		if e.Type == gjson.String {
			return strings.TrimSpace(e.String())
		}
		if e.IsObject() {
			return firstMessage(e)
		}
	}
	return ""
}

func firstMessage(r gjson.Result) string {
	if r.Type == gjson.String {
		return strings.TrimSpace(r.String())
	}
	for _, key := range []string{"msg", "message"} {
		if v := r.Get(key); v.Type == gjson.String && strings.TrimSpace(v.String()) != "" {
			return strings.TrimSpace(v.String())
		}
	}
	return ""
}
