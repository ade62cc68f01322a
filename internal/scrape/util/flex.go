package util

import (
	"bytes"
	"encoding/json"
	"strings"
)

// FlexString decodes a JSON string, number or bool as its text. Employer APIs are not
// consistent about quoting ids.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	*f = FlexString(string(b))
	return nil
}

func (f FlexString) String() string { return string(f) }

// FlexStrings decodes a string, an array of strings, or null.
type FlexStrings []string

func (f *FlexStrings) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*f = nil
		return nil
	case b[0] == '[':
		var raw []FlexString
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
		out := make([]string, 0, len(raw))
		for _, r := range raw {
			if s := strings.TrimSpace(string(r)); s != "" {
				out = append(out, s)
			}
		}
		*f = out
		return nil
	default:
		var one FlexString
		if err := json.Unmarshal(b, &one); err != nil {
			return err
		}
		if s := strings.TrimSpace(string(one)); s != "" {
			*f = []string{s}
		} else {
			*f = nil
		}
		return nil
	}
}

func (f FlexStrings) First() string {
	if len(f) == 0 {
		return ""
	}
	return f[0]
}
