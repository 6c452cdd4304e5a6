package checks

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/c360studio/odoolint/config"
	"github.com/c360studio/odoolint/extract"
)

// hardcodedIDThreshold separates probable record ids from legitimate
// small constants (selection values, months, limits) inside quoted
// numbers in domains and contexts.
const hardcodedIDThreshold = 100

var (
	activeIDPattern    = regexp.MustCompile(`\b(active_id|active_ids|active_model)\b`)
	quotedNumberPattern = regexp.MustCompile(`['"](\d+)['"]`)
)

// xmlAdvancedChecker runs the view-hygiene rules: deprecated context
// variables, accessibility roles, button typing, QWeb t-raw,
// hardcoded ids and clashing view priorities. Files that failed to
// parse are skipped; the syntax error is reported elsewhere.
type xmlAdvancedChecker struct {
	cfg    *config.Config
	units  []*extract.Unit
	result *Result
}

func checkXMLAdvanced(cfg *config.Config, units []*extract.Unit, result *Result) {
	c := &xmlAdvancedChecker{cfg: cfg, units: units, result: result}

	for _, unit := range units {
		if unit.ParseError != nil {
			continue
		}
		c.checkDeprecatedActiveID(unit)
		c.checkAlertMissingRole(unit)
		c.checkButtonWithoutType(unit)
		c.checkTRawUsage(unit)
		c.checkHardcodedIDs(unit)
		c.checkDuplicateViewPriority(unit)
	}
}

// checkDeprecatedActiveID flags active_id, active_ids and
// active_model inside expression attributes; Odoo deprecated them in
// favor of explicit default_* context keys.
func (c *xmlAdvancedChecker) checkDeprecatedActiveID(unit *extract.Unit) {
	attrs := []string{"context", "domain", "attrs", "options", "filter_domain", "default", "eval"}

	for _, attr := range attrs {
		unit.XML.Root.Walk(func(el *extract.XMLElement) {
			if !el.HasAttr(attr) {
				return
			}
			value := el.Attr(attr)
			for _, match := range activeIDPattern.FindAllString(value, -1) {
				c.result.Add("xml_deprecated_active_id_usage",
					fmt.Sprintf("%s:%d Deprecated use of %q in %s=\"%s...\"",
						unit.Path, el.Line, match, attr, truncate(value, 50)))
			}
		})
	}
}

func (c *xmlAdvancedChecker) checkAlertMissingRole(unit *extract.Unit) {
	validRoles := map[string]bool{"alert": true, "alertdialog": true, "status": true}

	unit.XML.Root.Walk(func(el *extract.XMLElement) {
		classes := el.Attr("class")
		if !strings.Contains(classes, "alert-") || strings.Contains(classes, "alert-link") {
			return
		}
		if !validRoles[el.Attr("role")] {
			c.result.Add("xml_alert_missing_role",
				fmt.Sprintf("%s:%d Element with class %q should have role=\"alert\", role=\"alertdialog\", or role=\"status\"",
					unit.Path, el.Line, classes))
		}
	})
}

// checkButtonWithoutType flags buttons declaring neither type nor
// special; special="cancel" buttons define their behavior without a
// type.
func (c *xmlAdvancedChecker) checkButtonWithoutType(unit *extract.Unit) {
	unit.XML.Root.Walk(func(el *extract.XMLElement) {
		if el.Tag != "button" || el.HasAttr("type") || el.HasAttr("special") {
			return
		}
		name := el.Attr("name")
		if name == "" {
			name = "unnamed"
		}
		c.result.Add("xml_button_without_type",
			fmt.Sprintf("%s:%d Button %q is missing type attribute", unit.Path, el.Line, name))
	})
}

func (c *xmlAdvancedChecker) checkTRawUsage(unit *extract.Unit) {
	unit.XML.Root.Walk(func(el *extract.XMLElement) {
		if !el.HasAttr("t-raw") {
			return
		}
		c.result.Add("xml_deprecated_t_raw",
			fmt.Sprintf("%s:%d Deprecated t-raw=%q, use t-out with markup() instead",
				unit.Path, el.Line, el.Attr("t-raw")))
	})
}

// checkHardcodedIDs flags quoted numbers above the threshold inside
// domain, context and eval attributes. Values already using ref() are
// trusted as a whole.
func (c *xmlAdvancedChecker) checkHardcodedIDs(unit *extract.Unit) {
	for _, attr := range []string{"domain", "context", "eval"} {
		unit.XML.Root.Walk(func(el *extract.XMLElement) {
			if !el.HasAttr(attr) {
				return
			}
			value := el.Attr(attr)
			if strings.Contains(value, "ref(") {
				return
			}
			for _, match := range quotedNumberPattern.FindAllStringSubmatch(value, -1) {
				id, err := strconv.Atoi(match[1])
				if err != nil || id <= hardcodedIDThreshold {
					continue
				}
				c.result.Add("xml_hardcoded_id",
					fmt.Sprintf("%s:%d Possible hardcoded ID %q in %s, consider using ref()",
						unit.Path, el.Line, match[1], attr))
			}
		})
	}
}

type viewSite struct {
	id   string
	line int
}

// checkDuplicateViewPriority groups inheriting views per file by
// (inherited view, priority) and flags groups of two or more; load
// order between equal priorities is undefined.
func (c *xmlAdvancedChecker) checkDuplicateViewPriority(unit *extract.Unit) {
	type groupKey struct {
		inheritRef string
		priority   string
	}
	groups := make(map[groupKey][]viewSite)
	var order []groupKey

	unit.XML.Root.Walk(func(el *extract.XMLElement) {
		if el.Tag != "record" || el.Attr("model") != "ir.ui.view" {
			return
		}
		var inheritRef string
		inherited, prioritySet := false, false
		priority := "16"
		for _, field := range el.ChildrenByTag("field") {
			switch field.Attr("name") {
			case "inherit_id":
				if !inherited {
					inherited = true
					inheritRef = field.Attr("ref")
				}
			case "priority":
				if prioritySet {
					continue
				}
				prioritySet = true
				if field.HasAttr("eval") {
					priority = field.Attr("eval")
				} else if field.Text != "" {
					priority = field.Text
				}
			}
		}
		if !inherited {
			return
		}
		key := groupKey{inheritRef, priority}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], viewSite{el.Attr("id"), el.Line})
	})

	for _, key := range order {
		views := groups[key]
		if len(views) < 2 {
			continue
		}
		ids := make([]string, len(views))
		for i, view := range views {
			ids[i] = view.id
		}
		c.result.Add("xml_duplicate_view_priority",
			fmt.Sprintf("%s:%d Views (%s) inherit from %q with same priority %s",
				unit.Path, views[0].line, strings.Join(ids, ", "), key.inheritRef, key.priority))
	}
}

// truncate returns at most n bytes of s.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
