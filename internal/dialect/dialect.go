package dialect

import (
	"fmt"
	"math/bits"
	"sort"
	"strings"
)

// versionsPerFamily is the number of bit slots reserved for each family.
const versionsPerFamily = 8

// Combo is an immutable set of (family, version) points.
// The zero value is the empty combo.
type Combo struct {
	bits [2]uint64
}

// Empty is the combo containing no dialects.
var Empty = Combo{}

func atomic(f Family, idx int) Combo {
	pos := int(f)*versionsPerFamily + idx
	var c Combo
	c.bits[pos/64] = 1 << uint(pos%64)
	return c
}

// Union returns the combo containing every point of c or other.
func (c Combo) Union(other Combo) Combo {
	return Combo{bits: [2]uint64{c.bits[0] | other.bits[0], c.bits[1] | other.bits[1]}}
}

// Intersect returns the combo containing the points shared by c and other.
func (c Combo) Intersect(other Combo) Combo {
	return Combo{bits: [2]uint64{c.bits[0] & other.bits[0], c.bits[1] & other.bits[1]}}
}

// Contains reports whether every point of other is also in c.
// An empty other is contained in everything.
func (c Combo) Contains(other Combo) bool {
	return c.Intersect(other) == other
}

// Intersects reports whether c and other share at least one point.
func (c Combo) Intersects(other Combo) bool {
	return !c.Intersect(other).IsEmpty()
}

// IsEmpty reports whether c holds no points.
func (c Combo) IsEmpty() bool {
	return c.bits[0] == 0 && c.bits[1] == 0
}

// Count returns the number of atomic points in c.
// Fewer points means a more specific combo.
func (c Combo) Count() int {
	return bits.OnesCount64(c.bits[0]) + bits.OnesCount64(c.bits[1])
}

// IsAtomic reports whether c is exactly one (family, version) point.
func (c Combo) IsAtomic() bool {
	return c.Count() == 1
}

// ToList decomposes c into its atomic points, ordered by family and version.
func (c Combo) ToList() []Combo {
	result := make([]Combo, 0, c.Count())
	for word := 0; word < len(c.bits); word++ {
		w := c.bits[word]
		for w != 0 {
			bit := bits.TrailingZeros64(w)
			var a Combo
			a.bits[word] = 1 << uint(bit)
			result = append(result, a)
			w &^= 1 << uint(bit)
		}
	}
	return result
}

// position returns the bit position of an atomic combo.
func (c Combo) position() int {
	if c.bits[0] != 0 {
		return bits.TrailingZeros64(c.bits[0])
	}
	return 64 + bits.TrailingZeros64(c.bits[1])
}

// Point returns the family and version name of an atomic combo.
// ok is false when c is not atomic.
func (c Combo) Point() (f Family, version string, ok bool) {
	if !c.IsAtomic() {
		return 0, "", false
	}
	pos := c.position()
	f = Family(pos / versionsPerFamily)
	idx := pos % versionsPerFamily
	return f, f.info().versions[idx], true
}

// Families returns the distinct families present in c.
func (c Combo) Families() []Family {
	var result []Family
	for f := Family(0); f < numFamilies; f++ {
		if c.Intersects(f.All()) {
			result = append(result, f)
		}
	}
	return result
}

// Family returns the single family of c. ok is false if c is empty or
// spans several families.
func (c Combo) Family() (Family, bool) {
	fams := c.Families()
	if len(fams) != 1 {
		return 0, false
	}
	return fams[0], true
}

// AndAbove returns the atomic combo c plus every later version of its family.
// Panics if c is not atomic: ranges are declared at registration time.
func (c Combo) AndAbove() Combo {
	f, version, ok := c.Point()
	if !ok {
		panic(fmt.Sprintf("dialect: AndAbove on non-atomic combo %s", c))
	}
	return f.AndAbove(version)
}

// String renders the combo as "|"-joined point names. A family whose
// versions are all present collapses to the bare family name.
func (c Combo) String() string {
	if c.IsEmpty() {
		return "EMPTY"
	}
	var parts []string
	for _, f := range c.Families() {
		all := f.All()
		if c.Contains(all) {
			parts = append(parts, f.String())
			continue
		}
		for _, a := range c.Intersect(all).ToList() {
			parts = append(parts, pointName(a))
		}
	}
	return strings.Join(parts, "|")
}

func pointName(a Combo) string {
	f, version, _ := a.Point()
	if version == "" {
		return f.String()
	}
	return f.String() + "_" + strings.ReplaceAll(version, ".", "_")
}

// Parse parses the output of String: "|"-joined family names or point names
// such as "POSTGRESQL_9_4".
func Parse(s string) (Combo, error) {
	var result Combo
	for _, part := range strings.Split(s, "|") {
		name := strings.ToUpper(strings.TrimSpace(part))
		if name == "" {
			continue
		}
		c, ok := byName()[name]
		if !ok {
			return Empty, fmt.Errorf("unknown dialect %q", part)
		}
		result = result.Union(c)
	}
	if result.IsEmpty() {
		return Empty, fmt.Errorf("empty dialect specification %q", s)
	}
	return result, nil
}

// MustParse is like Parse but panics on error.
// Use only in tests or for constant dialect names.
func MustParse(s string) Combo {
	c, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return c
}

// byName indexes every family and point name.
func byName() map[string]Combo {
	names := make(map[string]Combo)
	for f := Family(0); f < numFamilies; f++ {
		names[f.String()] = f.All()
		for _, a := range f.All().ToList() {
			names[pointName(a)] = a
		}
	}
	return names
}

// Names returns every atomic point name, sorted.
func Names() []string {
	var names []string
	for f := Family(0); f < numFamilies; f++ {
		for _, a := range f.All().ToList() {
			names = append(names, pointName(a))
		}
	}
	sort.Strings(names)
	return names
}
