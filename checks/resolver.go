package checks

import "github.com/c360studio/odoolint/extract"

// capabilityBases are the mail mixins a model inherits to gain message
// and tracking support.
var capabilityBases = map[string]bool{
	"mail.thread":                 true,
	"mail.activity.mixin":         true,
	"mail.thread.main.attachment": true,
	"mail.thread.cc":              true,
	"mail.thread.blacklist":       true,
}

// knownMailThreadModels are standard Odoo models that already carry
// mail.thread. Extending any of them keeps the capability without
// repeating the mixin in _inherit.
var knownMailThreadModels = []string{
	"mail.thread",
	"mail.activity.mixin",
	"mail.thread.main.attachment",
	"mail.thread.cc",
	"mail.thread.blacklist",
	"account.move",
	"account.move.line",
	"account.payment",
	"account.bank.statement",
	"account.bank.statement.line",
	"account.reconcile.model",
	"crm.lead",
	"crm.team",
	"hr.employee",
	"hr.department",
	"hr.applicant",
	"hr.expense",
	"hr.expense.sheet",
	"hr.leave",
	"hr.leave.allocation",
	"hr.payslip",
	"hr.payslip.run",
	"hr.contract",
	"maintenance.request",
	"maintenance.equipment",
	"mrp.production",
	"mrp.workorder",
	"mrp.bom",
	"project.project",
	"project.task",
	"purchase.order",
	"purchase.requisition",
	"sale.order",
	"sale.subscription",
	"stock.picking",
	"stock.move",
	"stock.scrap",
	"stock.inventory",
	"stock.warehouse.orderpoint",
	"helpdesk.ticket",
	"fleet.vehicle",
	"fleet.vehicle.log.services",
	"fleet.vehicle.log.contract",
	"event.event",
	"event.registration",
	"survey.survey",
	"survey.user_input",
	"slide.channel",
	"slide.slide",
	"repair.order",
	"quality.alert",
	"quality.check",
	"lunch.supplier",
	"lunch.order",
	"calendar.event",
	"note.note",
	"product.template",
	"product.product",
	"res.partner",
	"res.users",
}

// ResolveMailThread propagates the mail.thread capability across the
// inheritance graph of a batch of models and sets HasMailThread on
// every model that holds it, directly or transitively.
//
// The algorithm is a worklist over a reverse adjacency list (parent
// name → dependent models). The marked set is seeded with the known
// capability holders; marking a model enqueues its identity so its own
// dependents get visited. Marking is monotonic, the queue is bounded
// by the edge count, and the fixed point is independent of input
// order, so cyclic or adversarial graphs still terminate.
//
// The returned set maps model name → marked, for callers that need to
// test names the batch never declared.
func ResolveMailThread(models []*extract.Model) map[string]bool {
	dependents := make(map[string][]*extract.Model)
	for _, model := range models {
		for _, parent := range model.Inherits {
			dependents[parent] = append(dependents[parent], model)
		}
	}

	marked := make(map[string]bool, len(knownMailThreadModels))
	queue := make([]string, 0, len(knownMailThreadModels)+len(models))
	for _, name := range knownMailThreadModels {
		marked[name] = true
		queue = append(queue, name)
	}

	mark := func(model *extract.Model) {
		model.HasMailThread = true
		if id := model.Identity(); id != "" && !marked[id] {
			marked[id] = true
			queue = append(queue, id)
		}
	}

	for len(queue) > 0 {
		parent := queue[0]
		queue = queue[1:]
		for _, model := range dependents[parent] {
			if !model.HasMailThread {
				mark(model)
			}
		}
	}

	// A model redeclaring a known capability holder under its own _name
	// keeps the capability even without naming a mixin.
	for _, model := range models {
		if !model.HasMailThread && marked[model.Identity()] {
			model.HasMailThread = true
		}
	}
	return marked
}
