package payload

import (
	"sort"
	"strings"
)

// Requirement is the daemon's classification of a requested field.
type Requirement int

const (
	RequirementUnknown Requirement = iota
	Mandatory
	Informational
	Optional
	Alternate
	Control // VPN requests only
)

var requirementNames = map[Requirement]string{
	Mandatory:     "mandatory",
	Informational: "informational",
	Optional:      "optional",
	Alternate:     "alternate",
	Control:       "control",
}

// ParseRequirement classifies s case-insensitively. Anything outside the
// known vocabulary is RequirementUnknown.
func ParseRequirement(s string) Requirement {
	for r, name := range requirementNames {
		if strings.EqualFold(s, name) {
			return r
		}
	}
	return RequirementUnknown
}

func (r Requirement) String() string {
	if name, ok := requirementNames[r]; ok {
		return name
	}
	return "unknown"
}

// Filter is the set of requirements kept by Select.
type Filter uint8

// NewFilter builds a filter from the given requirements.
func NewFilter(reqs ...Requirement) Filter {
	var f Filter
	for _, r := range reqs {
		f |= 1 << uint(r)
	}
	return f
}

// Has reports whether r passes the filter. RequirementUnknown never does.
func (f Filter) Has(r Requirement) bool {
	if r == RequirementUnknown {
		return false
	}
	return f&(1<<uint(r)) != 0
}

var (
	AgentFilter = NewFilter(Mandatory, Informational)
	VPNFilter   = NewFilter(Mandatory, Informational, Control)
)

// Nested attribute keys inside a RawField.
const (
	AttrRequirement = "Requirement"
	AttrValue       = "Value"
)

// RawField is one requested field after its untyped value has been checked
// to be map-shaped. Attribute values are already stringified.
type RawField struct {
	Name  string
	Attrs map[string]string
}

// Requirement returns the field's classification and whether the
// Requirement attribute was present at all.
func (f RawField) Requirement() (Requirement, bool) {
	s, ok := f.Attrs[AttrRequirement]
	if !ok {
		return RequirementUnknown, false
	}
	return ParseRequirement(s), true
}

// Value returns the Value attribute, or "" when absent.
func (f RawField) Value() string {
	return f.Attrs[AttrValue]
}

// Fields is the decoded, filtered input map: field name to value.
type Fields map[string]string

// Keys returns the field names in sorted order.
func (f Fields) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Requirements maps each decoded field name to its classification, so a
// prompter can tell a field it only shows from one it must send back.
type Requirements map[string]Requirement
