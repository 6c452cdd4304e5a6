package checks

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/c360studio/odoolint/extract"
)

func model(name string, inherits ...string) *extract.Model {
	return &extract.Model{Class: "Test", Name: name, Inherits: inherits, IsOdooModel: true}
}

func TestResolveMailThreadDirectMixin(t *testing.T) {
	order := model("my.order", "mail.thread")
	plain := model("my.plain")

	ResolveMailThread([]*extract.Model{order, plain})

	assert.True(t, order.HasMailThread)
	assert.False(t, plain.HasMailThread)
}

func TestResolveMailThreadTransitiveChain(t *testing.T) {
	base := model("my.base", "mail.activity.mixin")
	mid := model("my.mid", "my.base")
	leaf := model("my.leaf", "my.mid")

	ResolveMailThread([]*extract.Model{leaf, mid, base})

	assert.True(t, base.HasMailThread)
	assert.True(t, mid.HasMailThread)
	assert.True(t, leaf.HasMailThread)
}

func TestResolveMailThreadOrderIndependence(t *testing.T) {
	build := func() []*extract.Model {
		return []*extract.Model{
			model("a", "b"),
			model("b", "c"),
			model("c", "mail.thread"),
			model("d", "e"),
		}
	}

	forward := build()
	ResolveMailThread(forward)

	reversed := build()
	for i, j := 0, len(reversed)-1; i < j; i, j = i+1, j-1 {
		reversed[i], reversed[j] = reversed[j], reversed[i]
	}
	ResolveMailThread(reversed)

	for i := range forward {
		want := forward[i]
		for _, got := range reversed {
			if got.Name == want.Name {
				assert.Equal(t, want.HasMailThread, got.HasMailThread, "model %s", want.Name)
			}
		}
	}
	assert.True(t, forward[0].HasMailThread)
	assert.False(t, forward[3].HasMailThread)
}

func TestResolveMailThreadCycleTerminates(t *testing.T) {
	a := model("cycle.a", "cycle.b")
	b := model("cycle.b", "cycle.a")

	marked := ResolveMailThread([]*extract.Model{a, b})

	assert.False(t, a.HasMailThread)
	assert.False(t, b.HasMailThread)
	assert.False(t, marked["cycle.a"])
}

func TestResolveMailThreadCycleWithCapability(t *testing.T) {
	a := model("cycle.a", "cycle.b", "mail.thread")
	b := model("cycle.b", "cycle.a")

	ResolveMailThread([]*extract.Model{a, b})

	assert.True(t, a.HasMailThread)
	assert.True(t, b.HasMailThread)
}

func TestResolveMailThreadKnownModelExtension(t *testing.T) {
	// Extending sale.order without _name keeps the standard model's
	// capability.
	ext := &extract.Model{Class: "SaleOrder", Inherits: []string{"sale.order"}, IsOdooModel: true}
	child := model("my.child", "sale.order")

	ResolveMailThread([]*extract.Model{ext, child})

	assert.True(t, ext.HasMailThread)
	assert.True(t, child.HasMailThread)
}

func TestResolveMailThreadRedeclaredKnownName(t *testing.T) {
	// A model declaring _name = "project.task" is the standard
	// capability holder itself.
	task := model("project.task")

	ResolveMailThread([]*extract.Model{task})

	assert.True(t, task.HasMailThread)
}

func TestResolveMailThreadMarkedSetExposesUndeclaredNames(t *testing.T) {
	marked := ResolveMailThread(nil)

	assert.True(t, marked["mail.thread"])
	assert.True(t, marked["res.partner"])
	assert.False(t, marked["my.model"])
}
