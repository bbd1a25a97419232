package logger

import (
	"bytes"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/go-logfmt/logfmt"
	json "github.com/goccy/go-json"
)

// TimestampFormat is ISO-8601 with microseconds. Records are always rendered
// in UTC so the zone renders as "Z".
const TimestampFormat = "2006-01-02T15:04:05.000000Z07:00"

// Keys of the fixed record fields, in render order.
const (
	KeyTimestamp = "timestamp"
	KeyLevel     = "level"
	KeyModule    = "module"
	KeyFunction  = "function"
	KeyMessage   = "message"
)

// AttrCollisionPrefix is prepended to attribute keys that would shadow one
// of the fixed record keys.
const AttrCollisionPrefix = "attr."

// Attr is a flattened key/value pair attached to a record.
type Attr struct {
	Key   string
	Value any
}

// Record is the unit of information produced by one logging call.
type Record struct {
	Time     time.Time
	Level    slog.Level
	Module   string
	Function string
	Message  string
	Attrs    []Attr
}

// Renderer turns a record into a single newline-terminated line.
// Renderers must not retain the record.
type Renderer func(Record) []byte

// RendererFor returns the renderer for a format. Unknown formats get JSON.
func RendererFor(format Format) Renderer {
	if format == FormatLogfmt {
		return RenderLogfmt
	}
	return RenderJSON
}

// attrKey keeps attributes from overriding the fixed record fields.
func attrKey(key string) string {
	switch key {
	case KeyTimestamp, KeyLevel, KeyModule, KeyFunction, KeyMessage:
		return AttrCollisionPrefix + key
	}
	return key
}

func (r Record) timestamp() string {
	return r.Time.UTC().Format(TimestampFormat)
}

// RenderJSON renders a record as a JSON object with keys in the order
// timestamp, level, module, function, message, followed by attributes.
func RenderJSON(r Record) []byte {
	var buf bytes.Buffer
	buf.WriteByte('{')
	writeJSONField(&buf, KeyTimestamp, r.timestamp(), false)
	writeJSONField(&buf, KeyLevel, LevelName(r.Level), true)
	writeJSONField(&buf, KeyModule, r.Module, true)
	writeJSONField(&buf, KeyFunction, r.Function, true)
	writeJSONField(&buf, KeyMessage, r.Message, true)
	for _, a := range r.Attrs {
		writeJSONField(&buf, attrKey(a.Key), a.Value, true)
	}
	buf.WriteString("}\n")
	return buf.Bytes()
}

func writeJSONField(buf *bytes.Buffer, key string, value any, sep bool) {
	if sep {
		buf.WriteByte(',')
	}
	buf.Write(marshalJSON(key))
	buf.WriteByte(':')
	buf.Write(marshalJSON(value))
}

// marshalJSON never fails: values the encoder rejects, or whose marshalers
// panic, are rendered as their fmt representation.
func marshalJSON(v any) (out []byte) {
	defer func() {
		if recover() != nil {
			out = fallbackJSON(v)
		}
	}()

	if err, ok := v.(error); ok {
		v = err.Error()
	}

	b, err := json.MarshalNoEscape(v)
	if err != nil {
		return fallbackJSON(v)
	}
	return b
}

func fallbackJSON(v any) []byte {
	b, err := json.MarshalNoEscape(safeSprint(v))
	if err != nil {
		return []byte(`"!BADVALUE"`)
	}
	return b
}

// RenderLogfmt renders a record as logfmt with the same key order as
// RenderJSON. Values are quoted as needed so the line stays single-line.
func RenderLogfmt(r Record) []byte {
	var buf bytes.Buffer
	enc := logfmt.NewEncoder(&buf)

	encodeLogfmt(enc, KeyTimestamp, r.timestamp())
	encodeLogfmt(enc, KeyLevel, LevelName(r.Level))
	encodeLogfmt(enc, KeyModule, r.Module)
	encodeLogfmt(enc, KeyFunction, r.Function)
	encodeLogfmt(enc, KeyMessage, r.Message)
	for _, a := range r.Attrs {
		encodeLogfmt(enc, attrKey(a.Key), a.Value)
	}

	// EndRecord only writes the newline; bytes.Buffer cannot fail.
	_ = enc.EndRecord()
	return buf.Bytes()
}

func encodeLogfmt(enc *logfmt.Encoder, key string, value any) {
	key = logfmtKey(key)
	if enc.EncodeKeyval(key, value) == nil {
		return
	}
	// Composite values (maps, slices, structs) are not supported by logfmt.
	_ = enc.EncodeKeyval(key, safeSprint(value))
}

// logfmtKey replaces characters logfmt does not allow in keys.
func logfmtKey(key string) string {
	if key == "" {
		return "_"
	}
	valid := true
	for _, r := range key {
		if r <= ' ' || r == '=' || r == '"' || r == utf8.RuneError {
			valid = false
			break
		}
	}
	if valid {
		return key
	}

	b := make([]rune, 0, len(key))
	for _, r := range key {
		if r <= ' ' || r == '=' || r == '"' || r == utf8.RuneError {
			r = '_'
		}
		b = append(b, r)
	}
	return string(b)
}

func safeSprint(v any) (s string) {
	defer func() {
		if p := recover(); p != nil {
			s = fmt.Sprintf("!PANIC(%v)", p)
		}
	}()
	return fmt.Sprintf("%+v", v)
}
