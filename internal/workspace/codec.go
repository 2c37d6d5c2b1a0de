package workspace

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/shaped-ai/playground/pkg/core"
)

// QueryParam is the URL query parameter holding the workspace token.
const QueryParam = "q"

// Codec converts workspace state to and from an opaque URL-safe token.
//
// Token layout: base64(base64(encodeURIComponent(json))). Neither method
// returns an error; failures are reported on the codec's logger.
type Codec struct {
	logger *slog.Logger
}

// NewCodec creates a codec that reports encode failures on logger.
func NewCodec(logger *slog.Logger) *Codec {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Codec{logger: logger}
}

// Encode returns the token for state, or "" when the state cannot be serialized.
func (c *Codec) Encode(state *core.QueryPageState) (token string) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Warn("failed to encode workspace state", "error", fmt.Sprint(r))
			token = ""
		}
	}()

	if state == nil {
		c.logger.Warn("failed to encode workspace state", "error", "nil state")
		return ""
	}
	if state.Tabs == nil {
		wire := *state
		wire.Tabs = []core.QueryTabState{}
		state = &wire
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(state); err != nil {
		c.logger.Warn("failed to encode workspace state", "error", err)
		return ""
	}

	escaped := escapeURIComponent(bytes.TrimSuffix(buf.Bytes(), []byte("\n")))
	once := base64.StdEncoding.EncodeToString([]byte(escaped))
	return base64.StdEncoding.EncodeToString([]byte(once))
}

// Decode parses a token. It returns false for any malformed input: bad
// base64 at either layer, a broken percent escape, invalid UTF-8, text
// that is not JSON, or JSON that is not a well-shaped workspace.
func (c *Codec) Decode(token string) (state *core.QueryPageState, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Debug("failed to decode workspace token", "error", fmt.Sprint(r))
			state, ok = nil, false
		}
	}()

	token = strings.TrimSpace(token)
	if token == "" {
		return nil, false
	}

	once, err := decodeBase64(token)
	if err != nil {
		c.logger.Debug("workspace token is not base64", "error", err)
		return nil, false
	}
	escaped, err := decodeBase64(string(once))
	if err != nil {
		c.logger.Debug("workspace token payload is not base64", "error", err)
		return nil, false
	}
	text, err := url.PathUnescape(string(escaped))
	if err != nil {
		c.logger.Debug("workspace token has a broken escape", "error", err)
		return nil, false
	}
	if !utf8.ValidString(text) {
		c.logger.Debug("workspace token is not valid UTF-8")
		return nil, false
	}

	var decoded core.QueryPageState
	if err := json.Unmarshal([]byte(text), &decoded); err != nil {
		c.logger.Debug("workspace token is not JSON", "error", err)
		return nil, false
	}
	if err := checkFieldCase([]byte(text)); err != nil {
		c.logger.Debug("workspace token has an unexpected shape", "error", err)
		return nil, false
	}
	if err := decoded.Validate(); err != nil {
		c.logger.Debug("workspace token has an unexpected shape", "error", err)
		return nil, false
	}
	return &decoded, true
}

// TokenFromURL extracts the workspace token from a raw URL or a bare query
// string. It returns "" when the URL does not parse or has no token.
func TokenFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Query().Get(QueryParam)
}

// WithToken returns base with the workspace token set, replacing any
// previous one. An empty token removes the parameter.
func WithToken(base, token string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base URL %q: %w", base, err)
	}
	q := u.Query()
	if token == "" {
		q.Del(QueryParam)
	} else {
		q.Set(QueryParam, token)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

var (
	pageFields = jsonFieldNames(core.QueryPageState{})
	tabFields  = jsonFieldNames(core.QueryTabState{})
)

// checkFieldCase rejects keys that encoding/json would fold onto a field
// without matching its name exactly. text must already decode as a
// workspace.
func checkFieldCase(text []byte) error {
	var page map[string]json.RawMessage
	if err := json.Unmarshal(text, &page); err != nil {
		return err
	}
	if err := exactKeys(page, pageFields); err != nil {
		return err
	}

	raw, ok := page["tabs"]
	if !ok {
		return nil
	}
	var tabs []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &tabs); err != nil {
		return err
	}
	for i, tab := range tabs {
		if err := exactKeys(tab, tabFields); err != nil {
			return fmt.Errorf("tab %d: %w", i, err)
		}
	}
	return nil
}

func exactKeys(obj map[string]json.RawMessage, fields []string) error {
	for key := range obj {
		for _, field := range fields {
			if key != field && strings.EqualFold(key, field) {
				return fmt.Errorf("key %q does not match field %q", key, field)
			}
		}
	}
	return nil
}

// jsonFieldNames lists the JSON names of v's tagged fields.
func jsonFieldNames(v any) []string {
	t := reflect.TypeOf(v)
	names := make([]string, 0, t.NumField())
	for i := range t.NumField() {
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		if name != "" && name != "-" {
			names = append(names, name)
		}
	}
	return names
}

// decodeBase64 reverses the standard alphabet. A '+' turned into a space by
// form decoding and missing padding are both tolerated.
func decodeBase64(s string) ([]byte, error) {
	s = strings.ReplaceAll(s, " ", "+")
	if len(s)%4 != 0 {
		return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
	}
	return base64.StdEncoding.DecodeString(s)
}

const upperHex = "0123456789ABCDEF"

// escapeURIComponent percent-encodes every byte outside the unreserved set
// of ECMAScript's encodeURIComponent.
func escapeURIComponent(src []byte) string {
	var b strings.Builder
	b.Grow(len(src))
	for _, c := range src {
		if isUnreservedURIByte(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperHex[c>>4])
		b.WriteByte(upperHex[c&0x0f])
	}
	return b.String()
}

func isUnreservedURIByte(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}
