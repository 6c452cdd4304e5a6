package checks

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Placeholder compatibility between a source string and its
// translation is verified by dummy substitution: extract dummy values
// from the source's placeholders, render the source with them (a
// failure means the source's own shape is indeterminate and the check
// is skipped), then render the translation with the identical values.
// A translation that cannot be rendered would crash at runtime when
// the application substitutes real values.
//
// Two grammars are covered independently: printf-style interpolation
// ("%s", "%(name)s", "%1$s") and str.format-style substitution ("{}",
// "{0}", "{name}"). The renderers reimplement just enough of each
// grammar's semantics to catch missing keys, out-of-range positions,
// type mismatches, and dangling delimiters.

// printfPattern matches one printf placeholder: boost-style %N%,
// ordinal %N$s, named %(key)s, or plain %s with optional flags, width,
// precision, and length modifiers.
var printfPattern = regexp.MustCompile(
	`%(?:(\d+)%|(?:(\d+)\$|\((\w+)\))?[+#-]*(?:\d+)?(?:\.\d+)?(?:hh\|h\|l\|ll)?([\w@]))`)

// printfConversions are the conversion characters the printf grammar
// accepts at render time.
const printfConversions = "diouxXeEfFgGcrsa"

// printfDummies extracts dummy substitution values from a printf
// string: empty string for %s placeholders, zero for everything else.
// Named placeholders build the map, unnamed ones the ordered list.
// Literal %% escapes are stripped before scanning.
func printfDummies(s string) ([]any, map[string]any) {
	var args []any
	kwargs := make(map[string]any)

	s = strings.ReplaceAll(s, "%%", "")
	for _, line := range strings.Split(s, "\n") {
		for _, m := range printfPattern.FindAllStringSubmatch(line, -1) {
			boost, key, conv := m[1], m[3], m[4]
			var v any = 0
			if boost == "" && conv == "s" {
				v = ""
			}
			if key == "" {
				args = append(args, v)
			} else {
				kwargs[key] = v
			}
		}
	}
	return args, kwargs
}

// renderPrintf simulates interpolating format with the dummy operand:
// the positional tuple when args is non-nil, the named mapping
// otherwise. It returns an error wherever the real interpolation
// would fail.
func renderPrintf(format string, args []any, kwargs map[string]any) error {
	positional := args != nil
	argIdx := 0

	next := func() (any, error) {
		if argIdx >= len(args) {
			return nil, errors.New("not enough arguments for format string")
		}
		v := args[argIdx]
		argIdx++
		return v, nil
	}

	for pos := 0; pos < len(format); pos++ {
		if format[pos] != '%' {
			continue
		}
		pos++
		if pos >= len(format) {
			return errors.New("incomplete format")
		}
		if format[pos] == '%' {
			continue
		}

		var key string
		hasKey := false
		if format[pos] == '(' {
			end := strings.IndexByte(format[pos:], ')')
			if end < 0 {
				return errors.New("incomplete format key")
			}
			key = format[pos+1 : pos+end]
			hasKey = true
			pos += end + 1
			if pos >= len(format) {
				return errors.New("incomplete format")
			}
		}

		for pos < len(format) && strings.IndexByte("#0- +", format[pos]) >= 0 {
			pos++
		}
		starWidth := func() error {
			v, err := next()
			if err != nil {
				return err
			}
			if _, ok := v.(int); !ok {
				return errors.New("* wants int")
			}
			pos++
			return nil
		}
		if pos < len(format) && format[pos] == '*' {
			if err := starWidth(); err != nil {
				return err
			}
		} else {
			for pos < len(format) && format[pos] >= '0' && format[pos] <= '9' {
				pos++
			}
		}
		if pos < len(format) && format[pos] == '.' {
			pos++
			if pos < len(format) && format[pos] == '*' {
				if err := starWidth(); err != nil {
					return err
				}
			} else {
				for pos < len(format) && format[pos] >= '0' && format[pos] <= '9' {
					pos++
				}
			}
		}
		for pos < len(format) && strings.IndexByte("hlL", format[pos]) >= 0 {
			pos++
		}
		if pos >= len(format) {
			return errors.New("incomplete format")
		}

		conv := format[pos]
		if strings.IndexByte(printfConversions, conv) < 0 {
			return fmt.Errorf("unsupported format character %q", conv)
		}

		var value any
		switch {
		case hasKey && positional:
			return errors.New("format requires a mapping")
		case hasKey:
			v, ok := kwargs[key]
			if !ok {
				return fmt.Errorf("missing key %q", key)
			}
			value = v
		case positional:
			v, err := next()
			if err != nil {
				return err
			}
			value = v
		default:
			// An unnamed placeholder against a mapping operand formats
			// the mapping itself, so only numeric conversions fail.
			value = kwargs
		}

		if strings.IndexByte("diouxXeEfFgGc", conv) >= 0 {
			if _, ok := value.(int); !ok {
				return fmt.Errorf("%%%c format: a number is required", conv)
			}
		}
	}

	if positional && argIdx < len(args) {
		return errors.New("not all arguments converted during string formatting")
	}
	return nil
}

// ParsePrintf verifies that candidate renders with the dummy values
// extracted from reference's printf placeholders. A nil return means
// compatible, placeholder-free, or an indeterminate reference.
func ParsePrintf(reference, candidate string) error {
	args, kwargs := printfDummies(reference)
	if len(args) == 0 && len(kwargs) == 0 {
		return nil
	}
	// A non-empty positional list wins over named placeholders, same
	// as interpolating with a tuple operand.
	if len(args) > 0 {
		kwargs = nil
	} else {
		args = nil
	}

	if err := renderPrintf(reference, args, kwargs); err != nil {
		return nil
	}
	if err := renderPrintf(candidate, args, kwargs); err != nil {
		return fmt.Errorf("translation string couldn't be parsed using str%%variables: %w", err)
	}
	return nil
}

// formatFields scans a str.format template and returns the
// replacement-field names in order. "{{" and "}}" are literals; an
// unbalanced brace is an error.
func formatFields(s string) ([]string, error) {
	var fields []string
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '}':
			if i+1 < len(s) && s[i+1] == '}' {
				i++
				continue
			}
			return nil, errors.New("single '}' encountered in format string")
		case '{':
			if i+1 < len(s) && s[i+1] == '{' {
				i++
				continue
			}
			j := i + 1
			nameEnd := -1
			depth := 1
			for ; j < len(s); j++ {
				switch s[j] {
				case '{':
					depth++
				case '}':
					depth--
				case ':', '!':
					if depth == 1 && nameEnd == -1 {
						nameEnd = j
					}
				}
				if depth == 0 {
					break
				}
			}
			if depth != 0 {
				return nil, errors.New("single '{' encountered in format string")
			}
			if nameEnd == -1 {
				nameEnd = j
			}
			fields = append(fields, s[i+1:nameEnd])
			i = j
		}
	}
	return fields, nil
}

// formatDummies extracts dummy substitution values from a str.format
// string. Auto-positional "{}" fields grow the list one by one,
// explicit "{N}" fields grow it to N+1, and named fields fill the
// map. Lines that fail to scan contribute nothing.
func formatDummies(s string) ([]int, map[string]int) {
	var sizes []int
	kwargs := make(map[string]int)

	for _, line := range strings.Split(s, "\n") {
		fields, err := formatFields(line)
		if err != nil {
			continue
		}
		for _, f := range fields {
			switch {
			case f == "":
				sizes = append(sizes, 0)
			case allDigits(f):
				n, _ := strconv.Atoi(f)
				sizes = append(sizes, n+1)
			default:
				kwargs[f] = 0
			}
		}
	}

	var args []int
	if len(sizes) > 0 {
		max := sizes[0]
		for _, n := range sizes[1:] {
			if n > max {
				max = n
			}
		}
		count := len(sizes)
		if max != 0 {
			count = max
		}
		args = make([]int, count)
		for i := range args {
			args[i] = i
		}
	}
	return args, kwargs
}

// renderFormat simulates formatting with the dummy positional list and
// named map, returning an error wherever str.format would fail:
// unbalanced braces, index out of range, missing keys, switching
// between automatic and manual numbering, or attribute access on a
// dummy value.
func renderFormat(s string, args []int, kwargs map[string]int) error {
	fields, err := formatFields(s)
	if err != nil {
		return err
	}

	auto := 0
	manual := false
	automatic := false
	for _, f := range fields {
		base, rest := f, ""
		for k := 0; k < len(f); k++ {
			if f[k] == '.' || f[k] == '[' {
				base, rest = f[:k], f[k:]
				break
			}
		}

		switch {
		case base == "":
			if manual {
				return errors.New("cannot switch from manual field specification to automatic field numbering")
			}
			automatic = true
			if auto >= len(args) {
				return fmt.Errorf("replacement index %d out of range", auto)
			}
			auto++
		case allDigits(base):
			if automatic {
				return errors.New("cannot switch from automatic field numbering to manual field specification")
			}
			manual = true
			idx, _ := strconv.Atoi(base)
			if idx >= len(args) {
				return fmt.Errorf("replacement index %d out of range", idx)
			}
		default:
			if _, ok := kwargs[base]; !ok {
				return fmt.Errorf("missing key %q", base)
			}
		}

		if rest != "" {
			return fmt.Errorf("cannot resolve %q on a substitution value", rest)
		}
	}
	return nil
}

// ParseFormat verifies that candidate renders with the dummy values
// extracted from reference's str.format placeholders. A nil return
// means compatible, placeholder-free, or an indeterminate reference.
func ParseFormat(reference, candidate string) error {
	args, kwargs := formatDummies(reference)
	if len(args) == 0 && len(kwargs) == 0 {
		return nil
	}

	if err := renderFormat(reference, args, kwargs); err != nil {
		return nil
	}
	if err := renderFormat(candidate, args, kwargs); err != nil {
		return fmt.Errorf("translation string couldn't be parsed using str.format: %w", err)
	}
	return nil
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}
