package compose

import (
	"fmt"
	"path"
	"strings"
)

// VolumeMount is a parsed service volume entry.
type VolumeMount struct {
	Type     string
	Source   string
	Target   string
	ReadOnly bool
	Options  []string
}

// Named tells whether the mount refers to a top-level volume.
func (v VolumeMount) Named() bool {
	return v.Type == MountVolume && v.Source != ""
}

var mountOptions = map[string]bool{
	"ro": true, "rw": true, "z": true, "Z": true,
	"cached": true, "delegated": true, "consistent": true, "nocopy": true,
}

// Parse parses the entry whichever syntax it is written in.
func (m Mount) Parse() (VolumeMount, error) {
	if m.Short != "" {
		return ParseVolumeMount(m.Short)
	}
	v := VolumeMount{Type: m.Type, Source: m.Source, Target: m.Target, ReadOnly: m.ReadOnly}
	switch v.Type {
	case MountVolume, MountBind, MountTmpfs:
	case "":
		return v, fmt.Errorf("volume type is required")
	default:
		return v, fmt.Errorf("unsupported volume type %q", v.Type)
	}
	if v.Type == MountBind && v.Source == "" {
		return v, fmt.Errorf("bind mount to %q has no source", v.Target)
	}
	if !path.IsAbs(v.Target) {
		return v, fmt.Errorf("volume target %q must be an absolute path", v.Target)
	}
	return v, nil
}

// ParseVolumeMount parses the short volume syntax: [source:]target[:options].
func ParseVolumeMount(s string) (VolumeMount, error) {
	var v VolumeMount
	parts := strings.Split(strings.TrimSpace(s), ":")
	switch len(parts) {
	case 1:
		v.Target = parts[0]
	case 2:
		v.Source, v.Target = parts[0], parts[1]
	case 3:
		v.Source, v.Target = parts[0], parts[1]
		v.Options = strings.Split(parts[2], ",")
	default:
		return v, fmt.Errorf("invalid volume %q", s)
	}
	if v.Target == "" || !path.IsAbs(v.Target) {
		return v, fmt.Errorf("volume target %q must be an absolute path", v.Target)
	}
	for _, o := range v.Options {
		if !mountOptions[o] {
			return v, fmt.Errorf("invalid volume option %q in %q", o, s)
		}
		if o == "ro" {
			v.ReadOnly = true
		}
	}
	v.Type = MountVolume
	if isHostPath(v.Source) {
		v.Type = MountBind
	}
	return v, nil
}

func isHostPath(s string) bool {
	return strings.HasPrefix(s, ".") || strings.HasPrefix(s, "/") || strings.HasPrefix(s, "~")
}
