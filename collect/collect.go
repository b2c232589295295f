// Package collect drives the hint engines over the elements of a file.
//
// Every element is processed on its own: a failure while handling one
// element, including a panic, drops that element's hints and nothing else.
package collect

import (
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/rlch/pyhints"
	"github.com/rlch/pyhints/params"
	"github.com/rlch/pyhints/render"
	"github.com/rlch/pyhints/suppress"
)

// ErrPanic wraps a panic recovered while collecting an element.
var ErrPanic = errors.New("panic while collecting hints")

// Source is a parsed file: its binding sites and call expressions.
type Source interface {
	Sites() []*pyhints.Site
	Calls() []*pyhints.Expr
}

// Collector turns binding sites and calls into hints.
type Collector struct {
	Oracle   pyhints.Oracle
	Settings pyhints.Settings
	Chain    *suppress.Chain
	Params   *params.Resolver
	Logger   *zap.Logger
}

// New returns a collector using the built-in suppression rules.
// A nil logger disables logging.
func New(oracle pyhints.Oracle, settings pyhints.Settings, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Collector{
		Oracle:   oracle,
		Settings: settings,
		Chain:    suppress.NewChain(oracle, settings),
		Params:   params.New(oracle, settings),
		Logger:   logger,
	}
}

// FromConfig returns a collector for the file at path, with the settings
// and extra suppression rules of cfg.
func FromConfig(cfg *pyhints.Config, oracle pyhints.Oracle, path string, logger *zap.Logger) (*Collector, error) {
	chain, err := suppress.FromConfig(cfg, oracle, path)
	if err != nil {
		return nil, err
	}

	c := New(oracle, chain.Settings, logger)
	c.Chain = chain

	return c, nil
}

// All returns every hint for src, sorted by offset.
func (c *Collector) All(src Source) []pyhints.Hint {
	var variables, functions []*pyhints.Site

	for _, site := range src.Sites() {
		if site.Kind == pyhints.SiteFunction {
			functions = append(functions, site)
		} else {
			variables = append(variables, site)
		}
	}

	hints := c.Variables(variables)
	hints = append(hints, c.Functions(functions)...)
	hints = append(hints, c.Calls(src.Calls())...)

	Sort(hints)

	return hints
}

// Variables returns the type hints for variable sites.
func (c *Collector) Variables(sites []*pyhints.Site) []pyhints.Hint {
	if !c.Settings.ShowGeneralVariableTypeHints {
		return nil
	}

	return c.typeHints(sites, pyhints.HintVariableType)
}

// Functions returns the return type hints for function sites.
func (c *Collector) Functions(sites []*pyhints.Site) []pyhints.Hint {
	if !c.Settings.ShowFunctionReturnTypeHints {
		return nil
	}

	return c.typeHints(sites, pyhints.HintReturnType)
}

func (c *Collector) typeHints(sites []*pyhints.Site, kind pyhints.HintKind) []pyhints.Hint {
	var hints []pyhints.Hint

	for _, site := range sites {
		c.guard(site.Name, site.Offset, func() error {
			typ, err := c.Oracle.TypeOf(site)
			if err != nil {
				return err
			}

			rule, err := c.Chain.ExplainType(site, typ)
			if err != nil {
				return err
			}

			if rule != "" {
				c.Logger.Debug("Hint suppressed",
					zap.String("name", site.Name),
					zap.String("rule", rule),
					zap.Stringer("type", typeStringer{typ}))

				return nil
			}

			hints = append(hints, pyhints.Hint{
				Kind:   kind,
				Node:   render.Render(typ),
				Offset: site.HintOffset,
			})

			return nil
		})
	}

	return hints
}

// Calls returns the parameter hints for call expressions.
func (c *Collector) Calls(calls []*pyhints.Expr) []pyhints.Hint {
	var hints []pyhints.Hint

	for _, call := range calls {
		c.guard(call.Text, call.Offset, func() error {
			found, err := c.Params.Hints(call)
			if err != nil {
				return err
			}

			hints = append(hints, found...)

			return nil
		})
	}

	return hints
}

// guard runs fn, logging and dropping errors and panics.
func (c *Collector) guard(element string, offset int, fn func() error) {
	var err error

	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%w: %v", ErrPanic, r)
			}
		}()

		err = fn()
	}()

	if err == nil {
		return
	}

	fields := []zap.Field{zap.String("element", element), zap.Int("offset", offset), zap.Error(err)}

	switch {
	case errors.Is(err, pyhints.ErrStale), errors.Is(err, pyhints.ErrOracle):
		c.Logger.Debug("Skipping element", fields...)
	default:
		c.Logger.Warn("Skipping element", fields...)
	}
}

// Sort orders hints by offset, keeping the relative order of hints that
// share one.
func Sort(hints []pyhints.Hint) {
	sort.SliceStable(hints, func(i, j int) bool {
		return hints[i].Offset < hints[j].Offset
	})
}

type typeStringer struct{ t pyhints.Type }

func (s typeStringer) String() string { return pyhints.TypeString(s.t) }
