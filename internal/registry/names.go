package registry

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	numberedID   = regexp.MustCompile(`^(.+)_(\d+)$`)
	numberedName = regexp.MustCompile(`^(.+) #(\d+)$`)
)

// NextID derives a collision-free identity from base using the taken
// probe: base, then base_1, base_2 and so on. A numeric suffix already on
// the base is stripped before numbering so duplicating printer_a_1 yields
// printer_a_2 rather than printer_a_1_1.
func NextID(base string, taken func(string) (bool, error)) (string, error) {
	if m := numberedID.FindStringSubmatch(base); m != nil {
		base = m[1]
	}

	candidate := base
	for i := 1; ; i++ {
		inUse, err := taken(candidate)
		if err != nil {
			return "", err
		}
		if !inUse {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s_%d", base, i)
	}
}

// NextName derives a collision-free display name from base: base, then
// "base #2", "base #3" and so on.
func NextName(base string, taken func(string) (bool, error)) (string, error) {
	name := strings.TrimSpace(base)
	if m := numberedName.FindStringSubmatch(name); m != nil {
		name = m[1]
	}
	if name == "" {
		name = "Profile"
	}

	candidate := name
	for i := 2; ; i++ {
		inUse, err := taken(candidate)
		if err != nil {
			return "", err
		}
		if !inUse {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s #%d", name, i)
	}
}
