package review

import (
	"encoding/json"
	"errors"
	"strings"
)

// Themes is the ordered list of keywords extracted from a review.
type Themes []string

// Clone returns a non-nil copy.
func (t Themes) Clone() Themes {
	c := make(Themes, len(t))
	copy(c, t)
	return c
}

// MarshalJSON encodes the themes as a JSON array; nil encodes as [].
func (t Themes) MarshalJSON() ([]byte, error) {
	return json.Marshal([]string(t.Clone()))
}

// JSON returns the themes as a JSON array string, the stored form.
func (t Themes) JSON() string {
	b, err := json.Marshal([]string(t.Clone()))
	if err != nil {
		return "[]"
	}
	return string(b)
}

// ListLiteral formats the themes the way the analysis CSV carries them:
// ['slow', 'app'].
func (t Themes) ListLiteral() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, theme := range t {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(quoteLiteral(theme))
	}
	b.WriteByte(']')
	return b.String()
}

func quoteLiteral(s string) string {
	quote := byte('\'')
	if strings.ContainsRune(s, '\'') && !strings.ContainsRune(s, '"') {
		quote = '"'
	}
	var b strings.Builder
	b.WriteByte(quote)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\\' || c == quote {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
	b.WriteByte(quote)
	return b.String()
}

var errNotList = errors.New("not a quoted string list")

// ParseThemes reads themes from the loose formats found in upstream files
// and the database:
//
//   - empty or whitespace-only input gives an empty list
//   - a bracketed list of single- or double-quoted strings gives its values
//   - anything else is wrapped as a single-element list
func ParseThemes(raw string) Themes {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Themes{}
	}
	if themes, err := parseList(s); err == nil {
		return themes
	}
	return Themes{s}
}

func parseList(s string) (Themes, error) {
	if len(s) < 2 || s[0] != '[' || s[len(s)-1] != ']' {
		return nil, errNotList
	}
	p := listParser{src: s[1 : len(s)-1]}
	themes := Themes{}

	p.skipSpace()
	if p.done() {
		return themes, nil
	}
	for {
		item, err := p.quoted()
		if err != nil {
			return nil, err
		}
		themes = append(themes, item)

		p.skipSpace()
		if p.done() {
			return themes, nil
		}
		if p.src[p.pos] != ',' {
			return nil, errNotList
		}
		p.pos++
		p.skipSpace()
		// Trailing comma.
		if p.done() {
			return themes, nil
		}
	}
}

type listParser struct {
	src string
	pos int
}

func (p *listParser) done() bool { return p.pos >= len(p.src) }

func (p *listParser) skipSpace() {
	for !p.done() && strings.ContainsRune(" \t\r\n", rune(p.src[p.pos])) {
		p.pos++
	}
}

// quoted reads one quoted string. Double-quoted items follow JSON string
// rules; single-quoted items only unescape \\ and \'.
func (p *listParser) quoted() (string, error) {
	if p.done() {
		return "", errNotList
	}
	quote := p.src[p.pos]
	if quote != '\'' && quote != '"' {
		return "", errNotList
	}
	start := p.pos
	p.pos++

	var b strings.Builder
	for !p.done() {
		c := p.src[p.pos]
		switch {
		case c == '\\' && p.pos+1 < len(p.src):
			next := p.src[p.pos+1]
			if quote == '\'' && (next == '\\' || next == '\'') {
				b.WriteByte(next)
			} else {
				b.WriteByte(c)
				b.WriteByte(next)
			}
			p.pos += 2
		case c == quote:
			p.pos++
			if quote == '\'' {
				return b.String(), nil
			}
			var out string
			if err := json.Unmarshal([]byte(p.src[start:p.pos]), &out); err != nil {
				return "", errNotList
			}
			return out, nil
		default:
			b.WriteByte(c)
			p.pos++
		}
	}
	return "", errNotList
}
