package config

import (
	"errors"
	"fmt"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/encoding/unicode"
)

// ErrUnknownEncoding is returned when an encoding name is not one of Encodings().
var ErrUnknownEncoding = errors.New("unknown encoding")

// Encoding is a character encoding usable on an IRC connection.
// Values are singletons; compare them by pointer.
type Encoding struct {
	Name     string
	Language string
	codec    encoding.Encoding
}

var (
	EncodingUTF8        = &Encoding{Name: "UTF-8", Language: "Unicode", codec: unicode.UTF8}
	EncodingWindows1252 = &Encoding{Name: "Windows-1252", Language: "Latin", codec: charmap.Windows1252}
	EncodingISO885915   = &Encoding{Name: "ISO-8859-15", Language: "Latin", codec: charmap.ISO8859_15}
	EncodingISO2022JP   = &Encoding{Name: "ISO-2022-JP", Language: "Japanese", codec: japanese.ISO2022JP}
	// x/text's EUC-KR decoder covers the CP949 (Unified Hangul Code) extension.
	EncodingCP949   = &Encoding{Name: "CP949", Language: "Korean", codec: korean.EUCKR}
	EncodingGBK     = &Encoding{Name: "GBK", Language: "Simplified Chinese", codec: simplifiedchinese.GBK}
	EncodingGB18030 = &Encoding{Name: "GB18030", Language: "Simplified Chinese", codec: simplifiedchinese.GB18030}
	EncodingBig5    = &Encoding{Name: "Big5", Language: "Traditional Chinese", codec: traditionalchinese.Big5}
)

var encodings = []*Encoding{
	EncodingUTF8,
	EncodingWindows1252,
	EncodingISO885915,
	EncodingISO2022JP,
	EncodingCP949,
	EncodingGBK,
	EncodingGB18030,
	EncodingBig5,
}

// Encodings returns every supported encoding in display order.
func Encodings() []*Encoding {
	out := make([]*Encoding, len(encodings))
	copy(out, encodings)
	return out
}

// EncodingByName resolves a display name such as "ISO-2022-JP".
func EncodingByName(name string) (*Encoding, error) {
	for _, e := range encodings {
		if e.Name == name {
			return e, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownEncoding, name)
}

// EncodingByLabel resolves a value produced by Label.
func EncodingByLabel(label string) (*Encoding, error) {
	for _, e := range encodings {
		if e.Label() == label {
			return e, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownEncoding, label)
}

// Label is the text shown in encoding selectors, e.g. "CP949 (Korean)".
func (e *Encoding) Label() string {
	return fmt.Sprintf("%s (%s)", e.Name, e.Language)
}

func (e *Encoding) String() string {
	return e.Name
}

// EncodeString converts s from UTF-8 into this encoding. Characters the
// encoding cannot represent are replaced.
func (e *Encoding) EncodeString(s string) (string, error) {
	return e.NewEncoder().String(s)
}

// DecodeString converts s from this encoding into UTF-8. Invalid byte
// sequences decode to U+FFFD.
func (e *Encoding) DecodeString(s string) (string, error) {
	return e.codec.NewDecoder().String(s)
}

// NewDecoder returns a streaming decoder into UTF-8.
func (e *Encoding) NewDecoder() *encoding.Decoder {
	return e.codec.NewDecoder()
}

// NewEncoder returns an encoder from UTF-8 that replaces characters the
// encoding cannot represent.
func (e *Encoding) NewEncoder() *encoding.Encoder {
	return encoding.ReplaceUnsupported(e.codec.NewEncoder())
}

// IsUTF8 reports whether the encoding passes text through unchanged.
func (e *Encoding) IsUTF8() bool {
	return e == EncodingUTF8
}
