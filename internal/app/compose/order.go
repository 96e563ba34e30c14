package compose

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	errCycle   = errors.New("dependency cycle")
	errUnknown = errors.New("unknown dependency")
)

// StartupOrder groups the services into levels; a service starts only after every level before it.
// Names are sorted inside each level.
func StartupOrder(f *File) ([][]string, error) {
	return startupLevels(f, false)
}

// startupLevels sorts the services; with skipUnknown the edges to undeclared services are ignored.
func startupLevels(f *File, skipUnknown bool) ([][]string, error) {
	pending := make(map[string]int, len(f.Services))
	dependents := make(map[string][]string, len(f.Services))
	for _, name := range f.ServiceNames() {
		pending[name] = 0
		for _, dep := range sortedKeys(f.Services[name].DependsOn) {
			if _, ok := f.Services[dep]; !ok {
				if skipUnknown {
					continue
				}
				return nil, fmt.Errorf("%w: %s depends on %s", errUnknown, name, dep)
			}
			pending[name]++
			dependents[dep] = append(dependents[dep], name)
		}
	}
	var levels [][]string
	var level []string
	for name, n := range pending {
		if n == 0 {
			level = append(level, name)
		}
	}
	done := 0
	for len(level) > 0 {
		sort.Strings(level)
		levels = append(levels, level)
		done += len(level)
		var next []string
		for _, name := range level {
			for _, d := range dependents[name] {
				pending[d]--
				if pending[d] == 0 {
					next = append(next, d)
				}
			}
		}
		level = next
	}
	if done < len(f.Services) {
		var stuck []string
		for name, n := range pending {
			if n > 0 {
				stuck = append(stuck, name)
			}
		}
		sort.Strings(stuck)
		return nil, fmt.Errorf("%w between %s", errCycle, strings.Join(stuck, ", "))
	}
	return levels, nil
}
