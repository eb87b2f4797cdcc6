package calculator

import (
	"fmt"
	"sort"

	"github.com/giygas/desprescricao-api/equivalence"
	"github.com/giygas/desprescricao-api/taper"
)

const (
	ProtocolTiered      = "tiered"
	ProtocolExponential = "exponential"
)

// Protocol pairs one equivalence table with one schedule generator. The two
// built-in protocols use tables with opposite conventions and are kept apart.
type Protocol struct {
	Name            string
	Description     string
	Table           *equivalence.Table
	Generator       *taper.Generator
	InitialRounding taper.Rounding
}

// ProtocolInfo describes a protocol for listings.
type ProtocolInfo struct {
	Name          string                             `json:"name"`
	Description   string                             `json:"description"`
	Table         string                             `json:"table"`
	Convention    string                             `json:"convention"`
	ReferenceMg   float64                            `json:"reference_mg,omitempty"`
	Factors       map[string]float64                 `json:"factors"`
	Destinations  map[string]equivalence.Destination `json:"destinations"`
	Policy        string                             `json:"policy"`
	MaxWeeks      int                                `json:"max_weeks"`
	SafetyCeiling int                                `json:"safety_ceiling_drops,omitempty"`
	Default       bool                               `json:"default"`
}

// Options configure the built-in protocols.
type Options struct {
	DefaultProtocol     string
	SafetyCeiling       int
	ExponentialMaxWeeks int
}

// DefaultOptions mirror the values documented for each protocol
func DefaultOptions() Options {
	return Options{
		DefaultProtocol:     ProtocolTiered,
		SafetyCeiling:       taper.DefaultSafetyCeiling,
		ExponentialMaxWeeks: taper.DefaultExponentialMaxWeeks,
	}
}

// Registry is the immutable set of protocols built at startup.
type Registry struct {
	protocols       map[string]*Protocol
	defaultProtocol string
}

// NewRegistry builds the tiered and exponential protocols.
func NewRegistry(opts Options) (*Registry, error) {
	perMg, err := equivalence.NewDiazepamPerMgTable()
	if err != nil {
		return nil, fmt.Errorf("failed to build %s table: %w", equivalence.DiazepamPerMgV1, err)
	}

	tenMg, err := equivalence.NewTenMgReferenceTable()
	if err != nil {
		return nil, fmt.Errorf("failed to build %s table: %w", equivalence.TenMgReferenceV1, err)
	}

	tieredRules := taper.TieredRules(opts.SafetyCeiling)
	tiered, err := taper.NewGenerator(tieredRules)
	if err != nil {
		return nil, fmt.Errorf("failed to build tiered generator: %w", err)
	}

	exponentialRules := taper.ExponentialRules(opts.ExponentialMaxWeeks)
	exponential, err := taper.NewGenerator(exponentialRules)
	if err != nil {
		return nil, fmt.Errorf("failed to build exponential generator: %w", err)
	}

	return NewRegistryFromProtocols(opts.DefaultProtocol,
		&Protocol{
			Name:            ProtocolTiered,
			Description:     "10% weekly cut above 40 drops, 5% above 20 drops, then one drop per week",
			Table:           perMg,
			Generator:       tiered,
			InitialRounding: tieredRules.InitialRounding,
		},
		&Protocol{
			Name:            ProtocolExponential,
			Description:     "4% weekly cut until the dose rounds to zero drops",
			Table:           tenMg,
			Generator:       exponential,
			InitialRounding: exponentialRules.InitialRounding,
		},
	)
}

// NewRegistryFromProtocols builds a registry from custom protocols.
func NewRegistryFromProtocols(defaultProtocol string, protocols ...*Protocol) (*Registry, error) {
	r := &Registry{
		protocols:       make(map[string]*Protocol, len(protocols)),
		defaultProtocol: defaultProtocol,
	}

	for _, p := range protocols {
		if p == nil || p.Name == "" || p.Table == nil || p.Generator == nil {
			return nil, fmt.Errorf("incomplete protocol definition: %+v", p)
		}
		if _, exists := r.protocols[p.Name]; exists {
			return nil, fmt.Errorf("duplicate protocol %q", p.Name)
		}
		r.protocols[p.Name] = p
	}

	if _, ok := r.protocols[defaultProtocol]; !ok {
		return nil, fmt.Errorf("default protocol %q is not registered", defaultProtocol)
	}

	return r, nil
}

// Get returns the named protocol, or the default one for an empty name.
func (r *Registry) Get(name string) (*Protocol, bool) {
	if name == "" {
		name = r.defaultProtocol
	}
	p, ok := r.protocols[name]
	return p, ok
}

// Default returns the default protocol name
func (r *Registry) Default() string {
	return r.defaultProtocol
}

// Names returns the registered protocol names in alphabetical order
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.protocols))
	for name := range r.protocols {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Info describes every registered protocol
func (r *Registry) Info() []ProtocolInfo {
	infos := make([]ProtocolInfo, 0, len(r.protocols))
	for _, name := range r.Names() {
		p := r.protocols[name]
		rules := p.Generator.Rules()

		info := ProtocolInfo{
			Name:          p.Name,
			Description:   p.Description,
			Table:         p.Table.Name(),
			Convention:    p.Table.Convention().String(),
			Factors:       p.Table.Factors(),
			Destinations:  p.Table.DestinationConstants(),
			Policy:        rules.Policy.Name(),
			MaxWeeks:      rules.MaxWeeks,
			SafetyCeiling: rules.SafetyCeiling,
			Default:       name == r.defaultProtocol,
		}
		if p.Table.Convention() == equivalence.MgPerReference {
			info.ReferenceMg = p.Table.ReferenceMg()
		}

		infos = append(infos, info)
	}
	return infos
}
