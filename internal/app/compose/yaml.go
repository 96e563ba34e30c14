package compose

import (
	"fmt"
	"gopkg.in/yaml.v3"
	"sort"
	"strconv"
	"strings"
	"time"
)

// StringList accepts either a single string or a list of strings.
type StringList []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (l *StringList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		*l = StringList{value.Value}
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := value.Decode(&items); err != nil {
			return err
		}
		*l = items
		return nil
	}
	return nodeError(value, "expected a string or a list of strings")
}

// HealthTest is the health check command. A plain string means CMD-SHELL.
type HealthTest []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (t *HealthTest) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		*t = HealthTest{"CMD-SHELL", value.Value}
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := value.Decode(&items); err != nil {
			return err
		}
		*t = items
		return nil
	}
	return nodeError(value, "expected a string or a list of strings")
}

// Duration is a compose duration such as "10s" or "1m30s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return nodeError(value, "expected a duration")
	}
	v, err := time.ParseDuration(value.Value)
	if err != nil {
		return nodeError(value, "invalid duration %q", value.Value)
	}
	*d = Duration(v)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the value as time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Environment accepts the list form ("KEY=value") and the map form.
type Environment map[string]string

// UnmarshalYAML implements yaml.Unmarshaler.
func (e *Environment) UnmarshalYAML(value *yaml.Node) error {
	res := make(Environment)
	switch value.Kind {
	case yaml.SequenceNode:
		for _, item := range value.Content {
			if item.Kind != yaml.ScalarNode {
				return nodeError(item, "expected KEY=value")
			}
			k, v, _ := strings.Cut(item.Value, "=")
			res[k] = v
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(value.Content); i += 2 {
			k, v := value.Content[i], value.Content[i+1]
			if v.Kind != yaml.ScalarNode {
				return nodeError(v, "expected a scalar value for %s", k.Value)
			}
			if v.ShortTag() == "!!null" {
				res[k.Value] = ""
				continue
			}
			res[k.Value] = v.Value
		}
	default:
		return nodeError(value, "expected a list or a map")
	}
	*e = res
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (b *Build) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		*b = Build{Context: value.Value}
		return nil
	}
	type plain Build
	var p plain
	if err := value.Decode(&p); err != nil {
		return err
	}
	*b = Build(p)
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *DependsOn) UnmarshalYAML(value *yaml.Node) error {
	res := make(DependsOn)
	switch value.Kind {
	case yaml.SequenceNode:
		for _, item := range value.Content {
			if item.Kind != yaml.ScalarNode {
				return nodeError(item, "expected a service name")
			}
			res[item.Value] = Dependency{Condition: ConditionStarted}
		}
	case yaml.MappingNode:
		var m map[string]Dependency
		if err := value.Decode(&m); err != nil {
			return err
		}
		for k, v := range m {
			if v.Condition == "" {
				v.Condition = ConditionStarted
			}
			res[k] = v
		}
	default:
		return nodeError(value, "expected a list or a map")
	}
	*d = res
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (n *ServiceNetworks) UnmarshalYAML(value *yaml.Node) error {
	res := make(ServiceNetworks)
	switch value.Kind {
	case yaml.SequenceNode:
		for _, item := range value.Content {
			if item.Kind != yaml.ScalarNode {
				return nodeError(item, "expected a network name")
			}
			res[item.Value] = nil
		}
	case yaml.MappingNode:
		var m map[string]*ServiceNetwork
		if err := value.Decode(&m); err != nil {
			return err
		}
		for k, v := range m {
			res[k] = v
		}
	default:
		return nodeError(value, "expected a list or a map")
	}
	*n = res
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (p *Port) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		*p = Port{Short: value.Value}
		return nil
	case yaml.MappingNode:
		var long struct {
			Target    int    `yaml:"target"`
			Published string `yaml:"published"`
			HostIP    string `yaml:"host_ip"`
			Protocol  string `yaml:"protocol"`
			Mode      string `yaml:"mode"`
		}
		if err := value.Decode(&long); err != nil {
			return err
		}
		*p = Port{
			Target:    long.Target,
			Published: long.Published,
			HostIP:    long.HostIP,
			Protocol:  long.Protocol,
			Mode:      long.Mode,
		}
		return nil
	}
	return nodeError(value, "expected a port string or a port map")
}

// MarshalYAML implements yaml.Marshaler.
func (p Port) MarshalYAML() (interface{}, error) {
	if p.Short != "" {
		return p.Short, nil
	}
	m := map[string]interface{}{"target": p.Target}
	if p.Published != "" {
		m["published"] = p.Published
	}
	if p.HostIP != "" {
		m["host_ip"] = p.HostIP
	}
	if p.Protocol != "" {
		m["protocol"] = p.Protocol
	}
	if p.Mode != "" {
		m["mode"] = p.Mode
	}
	return m, nil
}

// String returns the entry in the short syntax.
func (p Port) String() string {
	if p.Short != "" {
		return p.Short
	}
	var b strings.Builder
	if p.HostIP != "" {
		b.WriteString(p.HostIP + ":")
	}
	if p.Published != "" {
		b.WriteString(p.Published + ":")
	}
	b.WriteString(strconv.Itoa(p.Target))
	if p.Protocol != "" {
		b.WriteString("/" + p.Protocol)
	}
	return b.String()
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (m *Mount) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		*m = Mount{Short: value.Value}
		return nil
	case yaml.MappingNode:
		var long struct {
			Type     string `yaml:"type"`
			Source   string `yaml:"source"`
			Target   string `yaml:"target"`
			ReadOnly bool   `yaml:"read_only"`
		}
		if err := value.Decode(&long); err != nil {
			return err
		}
		*m = Mount{Type: long.Type, Source: long.Source, Target: long.Target, ReadOnly: long.ReadOnly}
		return nil
	}
	return nodeError(value, "expected a volume string or a volume map")
}

// MarshalYAML implements yaml.Marshaler.
func (m Mount) MarshalYAML() (interface{}, error) {
	if m.Short != "" {
		return m.Short, nil
	}
	res := map[string]interface{}{"type": m.Type, "target": m.Target}
	if m.Source != "" {
		res["source"] = m.Source
	}
	if m.ReadOnly {
		res["read_only"] = true
	}
	return res, nil
}

func nodeError(n *yaml.Node, format string, args ...interface{}) error {
	return fmt.Errorf("line %d: %s", n.Line, fmt.Sprintf(format, args...))
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
