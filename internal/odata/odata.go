// Package odata holds the small pieces of the list-items wire format shared by the
// client and the local emulator: string literals, path segments, media types and
// error bodies.
package odata

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const (
	// MediaTypeNoMetadata asks the host to omit OData metadata from payloads.
	MediaTypeNoMetadata = "application/json;odata=nometadata"

	HeaderMethodOverride = "X-HTTP-Method"
	HeaderIfMatch        = "IF-MATCH"
	HeaderRequestID      = "client-request-id"

	MethodMerge  = "MERGE"
	MethodDelete = "DELETE"
)

// Error codes the host uses for the failures the client distinguishes.
const (
	CodeListNotFound   = "-1, System.ArgumentException"
	CodeItemNotFound   = "-2147024809, System.ArgumentException"
	CodeETagMismatch   = "-1, Microsoft.SharePoint.Client.ClientServiceException"
	CodeInvalidRequest = "-1, Microsoft.SharePoint.Client.InvalidClientQueryException"
)

// QuoteString renders s as an OData string literal ('...' with embedded quotes doubled).
func QuoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// UnquoteString is the inverse of QuoteString.
func UnquoteString(lit string) (string, error) {
	if len(lit) < 2 || lit[0] != '\'' || lit[len(lit)-1] != '\'' {
		return "", fmt.Errorf("not a string literal: %s", lit)
	}
	body := lit[1 : len(lit)-1]
	var b strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c == '\'' {
			if i+1 >= len(body) || body[i+1] != '\'' {
				return "", fmt.Errorf("unescaped quote in literal: %s", lit)
			}
			i++
		}
		b.WriteByte(c)
	}
	return b.String(), nil
}

// GetByTitle renders the lists path segment for a list title.
func GetByTitle(title string) string {
	return "getbytitle(" + QuoteString(title) + ")"
}

// ParseGetByTitle extracts the list title from a getbytitle('...') segment.
func ParseGetByTitle(seg string) (string, error) {
	const prefix = "getbytitle("
	if !strings.HasPrefix(strings.ToLower(seg), prefix) || !strings.HasSuffix(seg, ")") {
		return "", errors.New("expected getbytitle('<title>')")
	}
	return UnquoteString(seg[len(prefix) : len(seg)-1])
}

// EscapeSegment percent-encodes the bytes that cannot appear literally inside one
// path segment. Quotes and parentheses stay literal: hosts match getbytitle('...')
// and items(<id>) on the raw request path.
func EscapeSegment(seg string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	for i := 0; i < len(seg); i++ {
		c := seg[i]
		switch {
		case c <= 0x20, c >= 0x7f, c == '%', c == '/', c == '?', c == '#', c == '\\':
			b.WriteByte('%')
			b.WriteByte(hex[c>>4])
			b.WriteByte(hex[c&0x0f])
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// ErrorBody is the nometadata error envelope:
//
//	{"odata.error": {"code": "...", "message": {"lang": "en-US", "value": "..."}}}
type ErrorBody struct {
	Error *ErrorDetail `json:"odata.error,omitempty"`
}

type ErrorDetail struct {
	Code    string       `json:"code"`
	Message ErrorMessage `json:"message"`
}

type ErrorMessage struct {
	Lang  string `json:"lang,omitempty"`
	Value string `json:"value"`
}

func NewErrorBody(code, msg string) ErrorBody {
	return ErrorBody{Error: &ErrorDetail{Code: code, Message: ErrorMessage{Lang: "en-US", Value: msg}}}
}

// ParseErrorBody returns the code and message of an OData error payload, ok=false
// when b is not one.
func ParseErrorBody(b []byte) (code, msg string, ok bool) {
	var eb ErrorBody
	if err := json.Unmarshal(b, &eb); err != nil || eb.Error == nil {
		return "", "", false
	}
	return eb.Error.Code, eb.Error.Message.Value, true
}
