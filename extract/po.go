package extract

import (
	"context"
	"fmt"
	"os"
	"strings"
)

func init() {
	DefaultRegistry.Register(KindPO, []string{".po", ".pot"}, func() Extractor {
		return NewPOExtractor()
	})
}

// POExtractor parses gettext catalogs. The header entry (empty msgid)
// is dropped, matching how catalog libraries expose it as metadata
// instead of a message.
type POExtractor struct{}

// NewPOExtractor creates a PO extractor.
func NewPOExtractor() *POExtractor {
	return &POExtractor{}
}

// Extract parses the file at path. A malformed catalog aborts with a
// ParseError and no entries, so translation rules never see half of a
// file.
func (p *POExtractor) Extract(ctx context.Context, path string) (*Unit, error) {
	unit := &Unit{Path: path, Kind: KindPO, PO: &POFacts{}}

	content, err := os.ReadFile(path)
	if err != nil {
		unit.ParseError = &ParseError{Message: err.Error()}
		return unit, nil
	}

	facts, perr := parsePO(content)
	unit.PO = facts
	unit.ParseError = perr
	return unit, nil
}

type poBuffer int

const (
	poBufNone poBuffer = iota
	poBufMsgID
	poBufMsgStr
	poBufDiscard // msgctxt, plural forms
)

type poEntryBuilder struct {
	entry      POEntry
	buf        poBuffer
	seenMsgID  bool
	seenMsgStr bool
	comments   []string
}

func parsePO(content []byte) (*POFacts, *ParseError) {
	facts := &POFacts{}
	text := strings.TrimPrefix(string(content), "\ufeff")

	var b *poEntryBuilder
	flush := func() {
		if b == nil {
			return
		}
		if b.seenMsgID && b.entry.MsgID != "" {
			b.entry.Comment = strings.Join(b.comments, "\n")
			entry := b.entry
			facts.Entries = append(facts.Entries, &entry)
		}
		b = nil
	}
	ensure := func(lineno int, obsolete bool) {
		if b == nil {
			b = &poEntryBuilder{}
			b.entry.Line = lineno
		}
		if obsolete {
			b.entry.Obsolete = true
		}
	}
	syntaxErr := func(lineno int) (*POFacts, *ParseError) {
		return &POFacts{}, &ParseError{
			Line:    lineno,
			Message: fmt.Sprintf("Syntax error in po file (line %d)", lineno),
		}
	}

	for idx, raw := range strings.Split(text, "\n") {
		lineno := idx + 1
		trimmed := strings.TrimSpace(strings.TrimRight(raw, "\r"))

		obsolete := false
		if strings.HasPrefix(trimmed, "#~") {
			obsolete = true
			trimmed = strings.TrimSpace(strings.TrimPrefix(trimmed, "#~"))
			if trimmed == "" {
				continue
			}
		}

		switch {
		case trimmed == "":
			flush()

		case strings.HasPrefix(trimmed, "#"):
			if b != nil && b.seenMsgStr {
				flush()
			}
			ensure(lineno, obsolete)
			switch {
			case strings.HasPrefix(trimmed, "#."):
				comment := strings.TrimPrefix(strings.TrimPrefix(trimmed, "#."), " ")
				b.comments = append(b.comments, comment)
			case strings.HasPrefix(trimmed, "#,"):
				for _, flag := range strings.Split(strings.TrimPrefix(trimmed, "#,"), ",") {
					if flag = strings.TrimSpace(flag); flag != "" {
						b.entry.Flags = append(b.entry.Flags, flag)
					}
				}
			}

		case strings.HasPrefix(trimmed, "msgid_plural"):
			ensure(lineno, obsolete)
			rest := strings.TrimSpace(strings.TrimPrefix(trimmed, "msgid_plural"))
			if _, ok := poUnquote(rest); !ok {
				return syntaxErr(lineno)
			}
			b.buf = poBufDiscard

		case strings.HasPrefix(trimmed, "msgid"):
			if b != nil && b.seenMsgID {
				flush()
			}
			ensure(lineno, obsolete)
			rest := strings.TrimSpace(strings.TrimPrefix(trimmed, "msgid"))
			s, ok := poUnquote(rest)
			if !ok {
				return syntaxErr(lineno)
			}
			b.entry.MsgID += s
			b.entry.MsgIDLine = lineno
			b.seenMsgID = true
			b.buf = poBufMsgID

		case strings.HasPrefix(trimmed, "msgstr["):
			end := strings.Index(trimmed, "]")
			if end == -1 || b == nil {
				return syntaxErr(lineno)
			}
			rest := strings.TrimSpace(trimmed[end+1:])
			if _, ok := poUnquote(rest); !ok {
				return syntaxErr(lineno)
			}
			b.seenMsgStr = true
			b.buf = poBufDiscard

		case strings.HasPrefix(trimmed, "msgstr"):
			if b == nil {
				return syntaxErr(lineno)
			}
			rest := strings.TrimSpace(strings.TrimPrefix(trimmed, "msgstr"))
			s, ok := poUnquote(rest)
			if !ok {
				return syntaxErr(lineno)
			}
			b.entry.MsgStr += s
			b.seenMsgStr = true
			b.buf = poBufMsgStr

		case strings.HasPrefix(trimmed, "msgctxt"):
			if b != nil && b.seenMsgID {
				flush()
			}
			ensure(lineno, obsolete)
			rest := strings.TrimSpace(strings.TrimPrefix(trimmed, "msgctxt"))
			if _, ok := poUnquote(rest); !ok {
				return syntaxErr(lineno)
			}
			b.buf = poBufDiscard

		case strings.HasPrefix(trimmed, `"`):
			if b == nil || b.buf == poBufNone {
				return syntaxErr(lineno)
			}
			s, ok := poUnquote(trimmed)
			if !ok {
				return syntaxErr(lineno)
			}
			switch b.buf {
			case poBufMsgID:
				b.entry.MsgID += s
			case poBufMsgStr:
				b.entry.MsgStr += s
			}

		default:
			return syntaxErr(lineno)
		}
	}
	flush()

	return facts, nil
}

// poUnquote strips the surrounding quotes and resolves escapes.
func poUnquote(s string) (string, bool) {
	if len(s) < 2 || !strings.HasPrefix(s, `"`) || !strings.HasSuffix(s, `"`) {
		return "", false
	}
	inner := s[1 : len(s)-1]
	if !strings.Contains(inner, `\`) {
		if strings.Contains(inner, `"`) {
			return "", false
		}
		return inner, true
	}

	var out strings.Builder
	for i := 0; i < len(inner); i++ {
		c := inner[i]
		if c == '"' {
			return "", false
		}
		if c != '\\' {
			out.WriteByte(c)
			continue
		}
		i++
		if i >= len(inner) {
			return "", false
		}
		switch inner[i] {
		case 'n':
			out.WriteByte('\n')
		case 't':
			out.WriteByte('\t')
		case 'r':
			out.WriteByte('\r')
		default:
			out.WriteByte(inner[i])
		}
	}
	return out.String(), true
}
