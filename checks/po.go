package checks

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/c360studio/odoolint/config"
	"github.com/c360studio/odoolint/extract"
)

var (
	moduleCommentPattern = regexp.MustCompile(`^(module[s]?): (\w+)`)
	msgidCleanPattern    = regexp.MustCompile(`[\n\t]*`)
)

// checkPO validates the translation catalogs of one addon: every
// entry carries a module comment, msgids are unique per file, and
// python-format translations still render with the msgid's variables.
func checkPO(cfg *config.Config, units []*extract.Unit, result *Result) {
	for _, unit := range units {
		if unit.ParseError != nil {
			result.Add("po_syntax_error",
				fmt.Sprintf("%s:%d %s", unit.Path, unit.ParseError.Line, unit.ParseError.Message))
			continue
		}

		duplicated := make(map[string][]*extract.POEntry)
		var order []string

		for _, entry := range unit.PO.Entries {
			if entry.Obsolete {
				continue
			}
			if _, seen := duplicated[entry.MsgID]; !seen {
				order = append(order, entry.MsgID)
			}
			duplicated[entry.MsgID] = append(duplicated[entry.MsgID], entry)

			checkPOEntry(unit.Path, entry, result)
		}

		for _, msgid := range order {
			entries := duplicated[msgid]
			if len(entries) < 2 {
				continue
			}
			lines := make([]string, 0, len(entries)-1)
			for _, dup := range entries[1:] {
				lines = append(lines, strconv.Itoa(dup.MsgIDLine))
			}
			result.Add("po_duplicate_message_definition",
				fmt.Sprintf("%s:%d Duplicate PO message %q in lines %s",
					unit.Path, entries[0].MsgIDLine, shortMsgID(msgid), strings.Join(lines, ", ")))
		}
	}
}

func checkPOEntry(path string, entry *extract.POEntry, result *Result) {
	if !moduleCommentPattern.MatchString(entry.Comment) {
		result.Add("po_requires_module",
			fmt.Sprintf("%s:%d Translation requires comment '#. module: MODULE'", path, entry.Line))
	}

	if entry.MsgStr == "" || !entry.HasFlag("python-format") {
		return
	}
	if err := ParsePrintf(entry.MsgID, entry.MsgStr); err != nil {
		result.Add("po_python_parse_printf",
			fmt.Sprintf("%s:%d Translation parse error (printf): %s", path, entry.MsgIDLine, err))
		return
	}
	if err := ParseFormat(entry.MsgID, entry.MsgStr); err != nil {
		result.Add("po_python_parse_format",
			fmt.Sprintf("%s:%d Translation parse error (format): %s", path, entry.MsgIDLine, err))
	}
}

// shortMsgID compresses a msgid to at most 40 characters with
// newlines and tabs stripped.
func shortMsgID(msgid string) string {
	short := strings.TrimSpace(msgidCleanPattern.ReplaceAllString(truncate(msgid, 40), ""))
	if len(msgid) > 40 {
		short += "..."
	}
	return short
}
