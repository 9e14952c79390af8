package core

import "math"

// Param identifies one of the four timing parameters.
type Param uint8

const (
	ParamOffset Param = iota
	ParamLength
	ParamSpacing
	ParamRepeats

	paramCount
)

// ParamSpec describes a parameter's wire key, name and bounds. All values are
// in engine clock cycles except repeats, which is a count.
type ParamSpec struct {
	Key  byte
	Name string
	Min  uint32
	Max  uint32
}

var paramSpecs = [paramCount]ParamSpec{
	ParamOffset:  {Key: 'o', Name: "offset", Min: 2, Max: math.MaxUint32},
	ParamLength:  {Key: 'l', Name: "length", Min: 1, Max: 127},
	ParamSpacing: {Key: 's', Name: "spacing", Min: 6, Max: 1048575},
	ParamRepeats: {Key: 'r', Name: "repeats", Min: 0, Max: 31},
}

// Spec returns the parameter's description.
func (p Param) Spec() ParamSpec { return paramSpecs[p] }

// String returns the parameter's name.
func (p Param) String() string {
	if p >= paramCount {
		return "unknown"
	}
	return paramSpecs[p].Name
}

// Params lists every parameter in validation order.
func Params() []Param {
	return []Param{ParamOffset, ParamLength, ParamSpacing, ParamRepeats}
}

// ParamForKey maps a wire key to its parameter.
func ParamForKey(key byte) (Param, bool) {
	for i := range paramSpecs {
		if paramSpecs[i].Key == key {
			return Param(i), true
		}
	}
	return 0, false
}

// Values is a full set of parameter values in user units.
type Values [paramCount]uint32

// DefaultValues are loaded into the store at startup.
var DefaultValues = Values{
	ParamOffset:  10,
	ParamLength:  10,
	ParamSpacing: 20,
	ParamRepeats: 0,
}

// Get returns the value of p.
func (v Values) Get(p Param) uint32 { return v[p] }

// Validate checks every value against its minimum, in parameter order, and
// reports the first violation. Maximums are not checked here; the codec
// saturates oversized fields.
func (v Values) Validate() error {
	for _, p := range Params() {
		if v[p] < paramSpecs[p].Min {
			return &MinimumError{Param: p}
		}
	}
	return nil
}

// Store holds the authoritative parameter values. It has a single owner (the
// controller's poll loop) and is only replaced as a whole.
type Store struct {
	values Values
}

// NewStore creates a store holding initial.
func NewStore(initial Values) *Store {
	return &Store{values: initial}
}

// Get returns the current value of p.
func (s *Store) Get(p Param) uint32 { return s.values[p] }

// Snapshot returns a copy of all current values.
func (s *Store) Snapshot() Values { return s.values }

// Begin starts a pending update seeded from the current values.
func (s *Store) Begin() Pending {
	return Pending{values: s.values}
}

// Commit validates the pending update and, if it passes, replaces the store's
// values in one assignment. On error the store is unchanged.
func (s *Store) Commit(p Pending) (Values, error) {
	if err := p.values.Validate(); err != nil {
		return s.values, err
	}
	s.values = p.values
	return s.values, nil
}

// Pending collects the values named by one SET command. It is a plain value
// owned by the command being parsed and is dropped on any error.
type Pending struct {
	values Values
}

// Set records v for p, replacing any earlier value for p in this command.
func (p *Pending) Set(param Param, v uint32) {
	p.values[param] = v
}

// Values returns the candidate values.
func (p *Pending) Values() Values { return p.values }

// String formats v as "offset=.. length=.. spacing=.. repeats=..".
func (v Values) String() string {
	s := ""
	for _, p := range Params() {
		if s != "" {
			s += " "
		}
		s += p.String() + "=" + utoa(v[p])
	}
	return s
}
