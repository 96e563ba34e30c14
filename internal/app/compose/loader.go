package compose

import (
	"bytes"
	"fmt"
	"github.com/beldeveloper/ecomet/internal/app/errtype"
	"github.com/beldeveloper/go-errors-context"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
	"os"
	"path/filepath"
)

// DefaultEnvFile is the dotenv file next to the compose file used for interpolation.
const DefaultEnvFile = ".env"

// Options configures loading of the compose file.
type Options struct {
	// Lookup resolves variables; when nil the process environment overlaid on the env file is used.
	Lookup LookupFunc
	// EnvFile overrides the dotenv file path.
	EnvFile string
	// SkipInterpolation keeps ${...} expressions as they are.
	SkipInterpolation bool
}

// Load reads and parses the compose file.
func Load(path string, opts Options) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapContext(err, errors.Context{
			Path:   "compose.Load.ReadFile",
			Params: errors.Params{"path": path},
		})
	}
	if opts.EnvFile == "" {
		opts.EnvFile = filepath.Join(filepath.Dir(path), DefaultEnvFile)
	}
	f, err := Parse(data, opts)
	return f, errors.WrapContext(err, errors.Context{
		Path:   "compose.Load.Parse",
		Params: errors.Params{"path": path},
	})
}

// Parse parses the compose file content.
func Parse(data []byte, opts Options) (*File, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", errtype.ErrInvalidCompose, err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, fmt.Errorf("%w: the file is empty", errtype.ErrInvalidCompose)
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: top level must be a map", errtype.ErrInvalidCompose)
	}
	for _, section := range []string{"services", "volumes", "networks"} {
		if err := checkUniqueKeys(root, section); err != nil {
			return nil, err
		}
	}
	if !opts.SkipInterpolation {
		lookup := opts.Lookup
		if lookup == nil {
			var err error
			lookup, err = envLookup(opts.EnvFile)
			if err != nil {
				return nil, err
			}
		}
		if err := interpolateNode(root, lookup); err != nil {
			return nil, fmt.Errorf("%w: %v", errtype.ErrInvalidCompose, err)
		}
	}
	var f File
	if err := root.Decode(&f); err != nil {
		return nil, fmt.Errorf("%w: %v", errtype.ErrInvalidCompose, err)
	}
	return &f, nil
}

// Marshal renders the file in the normalized form.
func Marshal(f *File) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return nil, errors.WrapContext(err, errors.Context{Path: "compose.Marshal.Encode"})
	}
	if err := enc.Close(); err != nil {
		return nil, errors.WrapContext(err, errors.Context{Path: "compose.Marshal.Close"})
	}
	return buf.Bytes(), nil
}

func checkUniqueKeys(root *yaml.Node, section string) error {
	m := mappingValue(root, section)
	if m == nil {
		return nil
	}
	if m.Kind != yaml.MappingNode {
		if m.ShortTag() == "!!null" {
			return nil
		}
		return fmt.Errorf("%w: line %d: %s must be a map", errtype.ErrInvalidCompose, m.Line, section)
	}
	seen := make(map[string]int, len(m.Content)/2)
	for i := 0; i+1 < len(m.Content); i += 2 {
		k := m.Content[i]
		if line, ok := seen[k.Value]; ok {
			return fmt.Errorf("%w: line %d: %s %q is already declared at line %d",
				errtype.ErrInvalidCompose, k.Line, section, k.Value, line)
		}
		seen[k.Value] = k.Line
	}
	return nil
}

func mappingValue(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

// interpolateNode substitutes variables in scalar values; mapping keys are left untouched.
func interpolateNode(n *yaml.Node, lookup LookupFunc) error {
	switch n.Kind {
	case yaml.ScalarNode:
		v, err := Interpolate(n.Value, lookup)
		if err != nil {
			return fmt.Errorf("line %d: %v", n.Line, err)
		}
		if v != n.Value {
			n.Value = v
			// a substituted value is resolved again, so "${PORT}" may become an int
			n.Tag = ""
			n.Style = 0
		}
	case yaml.MappingNode:
		for i := 1; i < len(n.Content); i += 2 {
			if err := interpolateNode(n.Content[i], lookup); err != nil {
				return err
			}
		}
	case yaml.SequenceNode, yaml.DocumentNode:
		for _, c := range n.Content {
			if err := interpolateNode(c, lookup); err != nil {
				return err
			}
		}
	}
	return nil
}

func envLookup(envFile string) (LookupFunc, error) {
	fileEnv := map[string]string{}
	if envFile != "" {
		values, err := godotenv.Read(envFile)
		if err != nil && !os.IsNotExist(err) {
			return nil, errors.WrapContext(err, errors.Context{
				Path:   "compose.envLookup.Read",
				Params: errors.Params{"file": envFile},
			})
		}
		if err == nil {
			fileEnv = values
		}
	}
	return func(name string) (string, bool) {
		if v, ok := os.LookupEnv(name); ok {
			return v, true
		}
		v, ok := fileEnv[name]
		return v, ok
	}, nil
}
