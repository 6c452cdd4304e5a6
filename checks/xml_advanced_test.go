package checks

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/c360studio/odoolint/config"
	"github.com/c360studio/odoolint/extract"
)

func runXMLAdvanced(t *testing.T, units ...*extract.Unit) *Result {
	t.Helper()
	result := NewResult(config.DefaultConfig())
	checkXMLAdvanced(config.DefaultConfig(), units, result)
	return result
}

func TestCheckDeprecatedActiveID(t *testing.T) {
	unit := parseXML(t, "views/act.xml", `<odoo>
    <record id="v1" model="ir.ui.view">
        <field name="arch" type="xml">
            <field name="partner_id" context="{'default_partner_id': active_id}"/>
        </field>
    </record>
</odoo>
`)
	result := runXMLAdvanced(t, unit)

	assert.Equal(t,
		[]string{`views/act.xml:4 Deprecated use of "active_id" in context="{'default_partner_id': active_id}..."`},
		result.Messages("xml_deprecated_active_id_usage"))
}

func TestCheckDeprecatedActiveIDTruncatesValue(t *testing.T) {
	long := "{'default_partner_id': active_id, 'default_company_id': 1, 'x': 2}"
	unit := parseXML(t, "views/act.xml", `<odoo>
    <record id="v1" model="ir.ui.view">
        <field name="arch" type="xml">
            <field name="partner_id" context="`+long+`"/>
        </field>
    </record>
</odoo>
`)
	result := runXMLAdvanced(t, unit)

	assert.Equal(t,
		[]string{`views/act.xml:4 Deprecated use of "active_id" in context="` + long[:50] + `..."`},
		result.Messages("xml_deprecated_active_id_usage"))
}

func TestCheckAlertMissingRole(t *testing.T) {
	unit := parseXML(t, "views/alert.xml", `<odoo>
    <template id="warning_banner">
        <div class="alert alert-warning">Careful</div>
        <div class="alert alert-danger" role="alert">Broken</div>
        <a class="alert-link" href="#">details</a>
    </template>
</odoo>
`)
	result := runXMLAdvanced(t, unit)

	assert.Equal(t,
		[]string{`views/alert.xml:3 Element with class "alert alert-warning" should have role="alert", role="alertdialog", or role="status"`},
		result.Messages("xml_alert_missing_role"))
}

func TestCheckButtonWithoutType(t *testing.T) {
	unit := parseXML(t, "views/form.xml", `<odoo>
    <record id="v1" model="ir.ui.view">
        <field name="arch" type="xml">
            <form>
                <button name="action_confirm"/>
                <button name="action_cancel" special="cancel"/>
                <button name="action_done" type="object"/>
                <button/>
            </form>
        </field>
    </record>
</odoo>
`)
	result := runXMLAdvanced(t, unit)

	assert.Equal(t, []string{
		`views/form.xml:5 Button "action_confirm" is missing type attribute`,
		`views/form.xml:8 Button "unnamed" is missing type attribute`,
	}, result.Messages("xml_button_without_type"))
}

func TestCheckTRawUsage(t *testing.T) {
	unit := parseXML(t, "views/tmpl.xml", `<odoo>
    <template id="snippet">
        <span t-raw="object.description"/>
    </template>
</odoo>
`)
	result := runXMLAdvanced(t, unit)

	assert.Equal(t,
		[]string{`views/tmpl.xml:3 Deprecated t-raw="object.description", use t-out with markup() instead`},
		result.Messages("xml_deprecated_t_raw"))
}

func TestCheckHardcodedIDs(t *testing.T) {
	unit := parseXML(t, "views/hc.xml", `<odoo>
    <record id="v1" model="ir.ui.view">
        <field name="arch" type="xml">
            <field name="partner_id" domain="[('id', '=', '4821')]"/>
            <field name="month" context="{'default_month': '12'}"/>
            <field name="tag_ids" eval="[ref('base.main_company'), '9999']"/>
        </field>
    </record>
</odoo>
`)
	result := runXMLAdvanced(t, unit)

	// '12' is below the threshold and the eval already uses ref().
	assert.Equal(t,
		[]string{`views/hc.xml:4 Possible hardcoded ID "4821" in domain, consider using ref()`},
		result.Messages("xml_hardcoded_id"))
}

func TestCheckDuplicateViewPriority(t *testing.T) {
	unit := parseXML(t, "views/inherit.xml", `<odoo>
    <record id="view_a" model="ir.ui.view">
        <field name="inherit_id" ref="sale.view_order_form"/>
    </record>
    <record id="view_b" model="ir.ui.view">
        <field name="inherit_id" ref="sale.view_order_form"/>
        <field name="priority" eval="16"/>
    </record>
    <record id="view_c" model="ir.ui.view">
        <field name="inherit_id" ref="sale.view_order_form"/>
        <field name="priority" eval="20"/>
    </record>
</odoo>
`)
	result := runXMLAdvanced(t, unit)

	// view_a's implicit priority 16 matches view_b's explicit one;
	// view_c differs.
	assert.Equal(t,
		[]string{`views/inherit.xml:2 Views (view_a, view_b) inherit from "sale.view_order_form" with same priority 16`},
		result.Messages("xml_duplicate_view_priority"))
}

func TestCheckDuplicateViewPriorityNonInheritingIgnored(t *testing.T) {
	unit := parseXML(t, "views/base.xml", `<odoo>
    <record id="view_a" model="ir.ui.view">
        <field name="priority" eval="16"/>
    </record>
    <record id="view_b" model="ir.ui.view">
        <field name="priority" eval="16"/>
    </record>
</odoo>
`)
	result := runXMLAdvanced(t, unit)

	assert.Nil(t, result.Messages("xml_duplicate_view_priority"))
}

func TestCheckXMLAdvancedSkipsBrokenFiles(t *testing.T) {
	unit := parseXML(t, "views/broken.xml", "<odoo><record></odoo>")
	result := runXMLAdvanced(t, unit)

	assert.True(t, result.Empty())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "abcde", truncate("abcdefgh", 5))
}
