package future

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/sencha/orion-core/api/schemas"
)

// Future classes, used as state-table keys and in diagnostics.
const (
	classElement   = "element"
	classComponent = "component"
	classButton    = "button"
	classField     = "field"
	classList      = "list"
	classGrid      = "grid"
	classItem      = "item"
	classRow       = "row"
	classCell      = "cell"
)

// StateCtx is what a state descriptor evaluates against.
type StateCtx struct {
	// El is the future's resolved element. Nil only for descriptors whose
	// availability allows detachment.
	El schemas.Element
	// Comp is the future's resolved component, nil for plain element futures.
	Comp schemas.Component
	// Args are the call-site parameters of the state method.
	Args []any

	Host  schemas.Host
	Sched schemas.Scheduler
}

// StateDescriptor defines one named wait state of a future class. Three
// strategies, picked in order:
//
//   - Arm set: subscribe to widget events, check Is once, and settle on a
//     debounced re-check after any event fires.
//   - Is set: poll the predicate on every drain tick.
//   - neither: wait on the readiness pipeline's availability and visibility
//     gates alone.
type StateDescriptor struct {
	Availability schemas.Availability
	Visibility   schemas.Visibility

	Is  func(ctx *StateCtx) bool
	Arm func(ctx *StateCtx, recheck func()) (cancel func())
}

type stateTable map[string]*StateDescriptor

// armEvents builds an Arm that subscribes recheck to widget events.
func armEvents(events ...string) func(*StateCtx, func()) func() {
	return func(ctx *StateCtx, recheck func()) func() {
		if ctx.Comp == nil {
			return nil
		}
		offs := make([]func(), 0, len(events))
		for _, ev := range events {
			offs = append(offs, ctx.Comp.On(ev, recheck))
		}
		return func() {
			for _, off := range offs {
				off()
			}
		}
	}
}

func propTrue(comp schemas.Component, prop string) bool {
	if comp == nil {
		return false
	}
	v, ok := comp.Get(prop).(bool)
	return ok && v
}

// valueEqual compares a widget property against an expected value. Values
// cross the component boundary as any, so comparison is structural.
func valueEqual(got, want any) bool {
	if got == want {
		return true
	}
	return reflect.DeepEqual(got, want)
}

// elementStates are shared by every future class.
func elementStates() stateTable {
	return stateTable{
		"visible": {Visibility: schemas.RequireVisible},
		"hidden":  {Visibility: schemas.RequireHidden},
		"removed": {Availability: schemas.RequireDetached},
		"text": {Is: func(ctx *StateCtx) bool {
			want, _ := ctx.Args[0].(string)
			return ctx.El.Text() == want
		}},
		"textLike": {Is: func(ctx *StateCtx) bool {
			want, _ := ctx.Args[0].(string)
			return strings.Contains(ctx.El.Text(), want)
		}},
		"hasCls": {Is: func(ctx *StateCtx) bool {
			name, _ := ctx.Args[0].(string)
			return ctx.El.HasClass(name)
		}},
	}
}

// componentStates extend the element states with widget lifecycle waits.
// Expanded and collapsed are variant-patched.
func componentStates() stateTable {
	t := elementStates()
	t["rendered"] = &StateDescriptor{Is: func(ctx *StateCtx) bool {
		return ctx.Comp != nil && ctx.Comp.Rendered()
	}}
	t["destroyed"] = &StateDescriptor{
		Is: func(ctx *StateCtx) bool {
			return ctx.Comp != nil && ctx.Comp.Destroyed()
		},
		Arm: armEvents("destroy"),
	}
	t["viewReady"] = &StateDescriptor{
		Is: func(ctx *StateCtx) bool {
			return propTrue(ctx.Comp, "viewReady")
		},
		Arm: armEvents("viewready"),
	}
	t["expanded"] = &StateDescriptor{
		Is:  func(ctx *StateCtx) bool { return ctx.Comp != nil && !propTrue(ctx.Comp, "collapsed") },
		Arm: armEvents("expand", "collapse"),
	}
	t["collapsed"] = &StateDescriptor{
		Is:  func(ctx *StateCtx) bool { return propTrue(ctx.Comp, "collapsed") },
		Arm: armEvents("expand", "collapse"),
	}
	return t
}

func buttonStates() stateTable {
	t := componentStates()
	t["pressed"] = &StateDescriptor{
		Is:  func(ctx *StateCtx) bool { return propTrue(ctx.Comp, "pressed") },
		Arm: armEvents("toggle"),
	}
	t["unpressed"] = &StateDescriptor{
		Is:  func(ctx *StateCtx) bool { return !propTrue(ctx.Comp, "pressed") },
		Arm: armEvents("toggle"),
	}
	return t
}

func fieldStates() stateTable {
	t := componentStates()
	t["value"] = &StateDescriptor{
		Is: func(ctx *StateCtx) bool {
			return ctx.Comp != nil && valueEqual(ctx.Comp.Get("value"), ctx.Args[0])
		},
		Arm: armEvents("change"),
	}
	t["valueLike"] = &StateDescriptor{
		Is: func(ctx *StateCtx) bool {
			if ctx.Comp == nil {
				return false
			}
			want, _ := ctx.Args[0].(string)
			return strings.Contains(fmt.Sprint(ctx.Comp.Get("value")), want)
		},
		Arm: armEvents("change"),
	}
	t["checked"] = &StateDescriptor{
		Is:  func(ctx *StateCtx) bool { return propTrue(ctx.Comp, "checked") },
		Arm: armEvents("change"),
	}
	t["unchecked"] = &StateDescriptor{
		Is:  func(ctx *StateCtx) bool { return ctx.Comp != nil && !propTrue(ctx.Comp, "checked") },
		Arm: armEvents("change"),
	}
	return t
}

func collectionStates() stateTable {
	t := componentStates()
	t["loaded"] = &StateDescriptor{
		Is:  func(ctx *StateCtx) bool { return propTrue(ctx.Comp, "loaded") },
		Arm: armEvents("load"),
	}
	t["count"] = &StateDescriptor{
		Is: func(ctx *StateCtx) bool {
			want, _ := ctx.Args[0].(int)
			coll, ok := ctx.Comp.(schemas.Collection)
			return ok && coll.RecordCount() == want
		},
		Arm: armEvents("load", "datachanged"),
	}
	return t
}

// baseTables is the variant-independent registry.
func baseTables() map[string]stateTable {
	return map[string]stateTable{
		classElement:   elementStates(),
		classComponent: componentStates(),
		classButton:    buttonStates(),
		classField:     fieldStates(),
		classList:      collectionStates(),
		classGrid:      collectionStates(),
		classItem:      elementStates(),
		classRow:       elementStates(),
		classCell:      elementStates(),
	}
}

// variantPatches hold the descriptors whose implementation depends on the
// toolkit. The classic toolkit keeps widget state in component properties;
// the modern one surfaces most of it as element classes and folds checkboxes
// into the value property.
var variantPatches = map[Variant]map[string]stateTable{
	VariantClassic: {},
	VariantModern: {
		classComponent: {
			"expanded": &StateDescriptor{
				Is:  func(ctx *StateCtx) bool { return ctx.El != nil && ctx.El.HasClass("x-expanded") },
				Arm: armEvents("expand", "collapse"),
			},
			"collapsed": &StateDescriptor{
				Is:  func(ctx *StateCtx) bool { return ctx.El != nil && !ctx.El.HasClass("x-expanded") },
				Arm: armEvents("expand", "collapse"),
			},
		},
		classButton: {
			"pressed": &StateDescriptor{
				Is:  func(ctx *StateCtx) bool { return ctx.El != nil && ctx.El.HasClass("x-pressed") },
				Arm: armEvents("toggle"),
			},
			"unpressed": &StateDescriptor{
				Is:  func(ctx *StateCtx) bool { return ctx.El != nil && !ctx.El.HasClass("x-pressed") },
				Arm: armEvents("toggle"),
			},
		},
		classField: {
			"checked": &StateDescriptor{
				Is:  func(ctx *StateCtx) bool { return propTrue(ctx.Comp, "value") },
				Arm: armEvents("change"),
			},
			"unchecked": &StateDescriptor{
				Is:  func(ctx *StateCtx) bool { return ctx.Comp != nil && !propTrue(ctx.Comp, "value") },
				Arm: armEvents("change"),
			},
		},
	},
}

// mergedTables deep-copies the base registry and applies the variant's
// patches. Applied once per driver.
func mergedTables(variant Variant) map[string]stateTable {
	tables := baseTables()
	for class, patches := range variantPatches[variant] {
		table, ok := tables[class]
		if !ok {
			table = stateTable{}
			tables[class] = table
		}
		for name, desc := range patches {
			table[name] = desc
		}
	}
	// Variant patches on shared vocabularies propagate to the classes that
	// inherit them.
	if comp, ok := variantPatches[variant][classComponent]; ok {
		for _, class := range []string{classButton, classField, classList, classGrid} {
			for name, desc := range comp {
				tables[class][name] = desc
			}
		}
	}
	return tables
}
