package pulse

import "fmt"

// PseudoRole identifies one operator-facing axis. The numeric value is the
// axis index the host uses when registering roles.
type PseudoRole int

const (
	Delay PseudoRole = iota
	Width
	Amplitude

	NumPseudo = 3
)

// PhysicalRole identifies one pulse-generator setting. The order matches
// the host's role registration and must not change.
type PhysicalRole int

const (
	Ch1Delay PhysicalRole = iota
	Ch2Delay
	Ch1Width
	Ch2Width
	Ch1Low
	Ch2Low
	Ch1High
	Ch2High

	NumPhysical = 8
)

var pseudoNames = [NumPseudo]string{"Delay", "Width", "Amplitude"}

var physicalNames = [NumPhysical]string{
	"ch1_delay", "ch2_delay",
	"ch1_width", "ch2_width",
	"ch1_low", "ch2_low",
	"ch1_high", "ch2_high",
}

// Valid reports whether r is one of the three pseudo roles.
func (r PseudoRole) Valid() bool {
	return r >= 0 && r < NumPseudo
}

func (r PseudoRole) String() string {
	if !r.Valid() {
		return fmt.Sprintf("PseudoRole(%d)", int(r))
	}
	return pseudoNames[r]
}

// Valid reports whether r is one of the eight physical roles.
func (r PhysicalRole) Valid() bool {
	return r >= 0 && r < NumPhysical
}

func (r PhysicalRole) String() string {
	if !r.Valid() {
		return fmt.Sprintf("PhysicalRole(%d)", int(r))
	}
	return physicalNames[r]
}

// Channel returns the generator channel (1 or 2) the role belongs to.
func (r PhysicalRole) Channel() int {
	return int(r)%2 + 1
}

// PseudoRoleNames returns the pseudo role names in index order.
func PseudoRoleNames() []string {
	return append([]string(nil), pseudoNames[:]...)
}

// PhysicalRoleNames returns the physical role names in index order.
func PhysicalRoleNames() []string {
	return append([]string(nil), physicalNames[:]...)
}

// ParsePhysicalRole maps a role name such as "ch2_high" to its role.
func ParsePhysicalRole(name string) (PhysicalRole, error) {
	for i, n := range physicalNames {
		if n == name {
			return PhysicalRole(i), nil
		}
	}
	return 0, fmt.Errorf("unknown physical role %q", name)
}
