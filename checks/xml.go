package checks

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/c360studio/odoolint/config"
	"github.com/c360studio/odoolint/extract"
)

// minReplacePriority is the view priority below which a "replace"
// position is considered dangerous to other modules extending the
// same view.
const minReplacePriority = 99

var resourceExtPattern = regexp.MustCompile(`^\.[a-zA-Z]+$`)

// xmlChecker runs the structural XML rules over the XML units of one
// addon. Duplicate detection spans files, so all units are collected
// before anything is reported.
type xmlChecker struct {
	cfg        *config.Config
	moduleName string
	units      []*extract.Unit
	result     *Result
}

func checkXML(cfg *config.Config, moduleName string, units []*extract.Unit, result *Result) {
	c := &xmlChecker{cfg: cfg, moduleName: moduleName, units: units, result: result}

	c.checkSyntaxErrors()
	c.checkRecords()
	c.checkDeprecatedDataNode()
	c.checkDeprecatedOpenerpNode()
	c.checkDeprecatedQWebDirective()
	c.checkInvalidCharLink()
}

func (c *xmlChecker) checkSyntaxErrors() {
	for _, unit := range c.units {
		if unit.ParseError == nil {
			continue
		}
		c.result.Add("xml_syntax_error",
			fmt.Sprintf("%s:%d %s", unit.Path, unit.ParseError.Line, unit.ParseError.Message))
	}
}

type recordSite struct {
	path    string
	element *extract.XMLElement
}

type xmlFieldKey struct {
	name         string
	context      string
	filterDomain string
	parent       *extract.XMLElement
}

// checkRecords validates <record> declarations: duplicate ids across
// the addon, duplicate fields within one record tree, redundant
// module prefixes, and the per-model rules for views, users and
// filters.
func (c *xmlChecker) checkRecords() {
	ids := make(map[string][]recordSite)
	var idOrder []string
	fields := make(map[xmlFieldKey][]recordSite)
	var fieldOrder []xmlFieldKey

	for _, unit := range c.units {
		root := unit.XML.Root
		if root.Tag != "odoo" && root.Tag != "openerp" {
			continue
		}
		root.Walk(func(el *extract.XMLElement) {
			if el.Tag != "record" || !el.HasAttr("id") {
				return
			}
			noupdate := "0"
			if el.Parent != nil && el.Parent.HasAttr("noupdate") {
				noupdate = el.Parent.Attr("noupdate")
			}
			key := fmt.Sprintf("%s/%s_noupdate_%s", unit.Section, el.Attr("id"), noupdate)
			if _, seen := ids[key]; !seen {
				idOrder = append(idOrder, key)
			}
			ids[key] = append(ids[key], recordSite{unit.Path, el})

			if !hasDirectField(el, "inherit_id") {
				for _, field := range recordFields(el) {
					fkey := xmlFieldKey{
						name:         field.Attr("name"),
						context:      field.Attr("context"),
						filterDomain: field.Attr("filter_domain"),
						parent:       field.Parent,
					}
					if _, seen := fields[fkey]; !seen {
						fieldOrder = append(fieldOrder, fkey)
					}
					fields[fkey] = append(fields[fkey], recordSite{unit.Path, field})
				}
			}

			c.checkRedundantModuleName(unit.Path, el)
			c.checkView(unit.Path, el)
			c.checkUser(unit.Path, el)
			c.checkFilter(unit.Path, el)
		})
	}

	for _, key := range idOrder {
		sites := ids[key]
		if len(sites) < 2 {
			continue
		}
		locations := make([]string, 0, len(sites)-1)
		for _, site := range sites[1:] {
			locations = append(locations, fmt.Sprintf("%s:%d", site.path, site.element.Line))
		}
		c.result.Add("xml_duplicate_record_id",
			fmt.Sprintf("%s:%d Duplicate xml record id %q in %s",
				sites[0].path, sites[0].element.Line, key, strings.Join(locations, ", ")))
	}

	for _, key := range fieldOrder {
		sites := fields[key]
		if len(sites) < 2 {
			continue
		}
		lines := make([]string, 0, len(sites)-1)
		for _, site := range sites[1:] {
			lines = append(lines, strconv.Itoa(site.element.Line))
		}
		c.result.Add("xml_duplicate_fields",
			fmt.Sprintf("%s:%d Duplicate xml field %q in lines %s",
				sites[0].path, sites[0].element.Line, key.name, strings.Join(lines, ", ")))
	}
}

// recordFields collects the field declarations that count for
// duplicate detection: direct fields of the record, fields two levels
// down inside an arch, and fields nested one tree or form deeper.
func recordFields(record *extract.XMLElement) []*extract.XMLElement {
	var out []*extract.XMLElement

	appendNamed := func(el *extract.XMLElement) {
		if el.Tag == "field" && el.HasAttr("name") {
			out = append(out, el)
		}
	}

	for _, child := range record.Children {
		appendNamed(child)
		if child.Tag != "field" {
			continue
		}
		for _, mid := range child.Children {
			for _, inner := range mid.Children {
				appendNamed(inner)
				if inner.Tag != "field" {
					continue
				}
				for _, viewTag := range inner.Children {
					if viewTag.Tag != "tree" && viewTag.Tag != "form" {
						continue
					}
					for _, nested := range viewTag.Children {
						appendNamed(nested)
					}
				}
			}
		}
	}
	return out
}

func hasDirectField(record *extract.XMLElement, name string) bool {
	for _, child := range record.ChildrenByTag("field") {
		if child.Attr("name") == name {
			return true
		}
	}
	return false
}

func (c *xmlChecker) checkRedundantModuleName(path string, record *extract.XMLElement) {
	recordID := record.Attr("id")
	module, name, found := strings.Cut(recordID, ".")
	if !found || module != c.moduleName {
		return
	}
	c.result.Add("xml_redundant_module_name",
		fmt.Sprintf("%s:%d Redundant module name <record id=%q better using only <record id=%q",
			path, record.Line, recordID, name))
}

func (c *xmlChecker) checkView(path string, record *extract.XMLElement) {
	if record.Attr("model") != "ir.ui.view" {
		return
	}

	priority := viewPriority(record)
	if viewHasReplace(record) && priority < minReplacePriority {
		c.result.Add("xml_view_dangerous_replace_low_priority",
			fmt.Sprintf("%s:%d Dangerous \"replace\" with priority %d < %d",
				path, record.Line, priority, minReplacePriority))
	}

	record.Walk(func(el *extract.XMLElement) {
		if el.Tag != "tree" {
			return
		}
		var found []string
		for _, attr := range []string{"colors", "fonts", "string"} {
			if el.HasAttr(attr) {
				found = append(found, attr)
			}
		}
		if len(found) > 0 {
			c.result.Add("xml_deprecated_tree_attribute",
				fmt.Sprintf("%s:%d Deprecated \"<tree %s=...\"", path, el.Line, strings.Join(found, ", ")))
		}
	})
}

// viewPriority reads the first direct priority field, preferring its
// eval attribute over its text. Anything unparseable is 0.
func viewPriority(record *extract.XMLElement) int {
	for _, field := range record.ChildrenByTag("field") {
		if field.Attr("name") != "priority" {
			continue
		}
		raw := field.Attr("eval")
		if raw == "" {
			raw = strings.TrimSpace(field.Text)
		}
		if raw == "" {
			return 0
		}
		priority, err := strconv.Atoi(raw)
		if err != nil {
			return 0
		}
		return priority
	}
	return 0
}

func viewHasReplace(record *extract.XMLElement) bool {
	for _, field := range record.ChildrenByTag("field") {
		if field.Attr("name") != "arch" || field.Attr("type") != "xml" {
			continue
		}
		replaced := false
		field.Walk(func(el *extract.XMLElement) {
			if el != field && el.Attr("position") == "replace" {
				replaced = true
			}
		})
		return replaced
	}
	return false
}

func (c *xmlChecker) checkUser(path string, record *extract.XMLElement) {
	if record.Attr("model") != "res.users" {
		return
	}
	if hasDirectField(record, "name") && !strings.Contains(record.Attr("context"), "no_reset_password") {
		c.result.Add("xml_create_user_wo_reset_password",
			fmt.Sprintf("%s:%d record res.users without context=\"{'no_reset_password': True}\"",
				path, record.Line))
	}
}

func (c *xmlChecker) checkFilter(path string, record *extract.XMLElement) {
	if record.Attr("model") != "ir.filters" {
		return
	}
	count := 0
	for _, field := range record.ChildrenByTag("field") {
		if name := field.Attr("name"); name == "name" || name == "user_id" {
			count++
		}
	}
	if count == 1 {
		c.result.Add("xml_dangerous_filter_wo_user",
			fmt.Sprintf("%s:%d Dangerous filter without explicit `user_id`", path, record.Line))
	}
}

// checkDeprecatedDataNode flags a root whose only child is a <data>
// wrapper, which is redundant since Odoo 8.
func (c *xmlChecker) checkDeprecatedDataNode() {
	for _, unit := range c.units {
		root := unit.XML.Root
		if root.Tag != "odoo" && root.Tag != "openerp" {
			continue
		}
		if len(root.Children) == 1 && root.Children[0].Tag == "data" {
			c.result.Add("xml_deprecated_data_node",
				fmt.Sprintf("%s:%d Use <odoo> instead of <odoo><data>", unit.Path, root.Line))
		}
	}
}

func (c *xmlChecker) checkDeprecatedOpenerpNode() {
	for _, unit := range c.units {
		root := unit.XML.Root
		if root.Tag != "openerp" {
			continue
		}
		c.result.Add("xml_deprecated_openerp_xml_node",
			fmt.Sprintf("%s:%d Deprecated <openerp> xml node, use <odoo>", unit.Path, root.Line))
	}
}

func (c *xmlChecker) checkDeprecatedQWebDirective() {
	deprecated := []string{"t-esc-options", "t-field-options", "t-raw-options"}

	for _, unit := range c.units {
		root := unit.XML.Root
		if root.Tag != "odoo" && root.Tag != "openerp" {
			continue
		}
		root.Walk(func(template *extract.XMLElement) {
			if template.Tag != "template" {
				return
			}
			template.Walk(func(el *extract.XMLElement) {
				if el == template {
					return
				}
				var found []string
				for _, attr := range deprecated {
					if el.HasAttr(attr) {
						found = append(found, attr)
					}
				}
				if len(found) > 0 {
					sort.Strings(found)
					c.result.Add("xml_deprecated_qweb_directive",
						fmt.Sprintf("%s:%d Deprecated QWeb directive %q. Use \"t-options\"",
							unit.Path, el.Line, strings.Join(found, ", ")))
				}
			})
		})
	}
}

// checkInvalidCharLink flags link/script resources with an absolute
// path but an unusable extension, usually a typo or a templated URL.
func (c *xmlChecker) checkInvalidCharLink() {
	for _, unit := range c.units {
		unit.XML.Root.Walk(func(el *extract.XMLElement) {
			var resource string
			switch el.Tag {
			case "link":
				resource = el.Attr("href")
			case "script":
				resource = el.Attr("src")
			default:
				return
			}
			if resource == "" {
				return
			}
			ext := filepath.Ext(filepath.Base(resource))
			if strings.HasPrefix(resource, "/") && !resourceExtPattern.MatchString(ext) {
				c.result.Add("xml_not_valid_char_link",
					fmt.Sprintf("%s:%d Resource contains invalid character", unit.Path, el.Line))
			}
		})
	}
}
