package compose

const (
	// ConditionStarted waits for the dependency container to be started.
	ConditionStarted = "service_started"
	// ConditionHealthy waits for the dependency health check to pass.
	ConditionHealthy = "service_healthy"
	// ConditionCompleted waits for the dependency to exit with code 0.
	ConditionCompleted = "service_completed_successfully"

	// DefaultNetwork is the network every service joins when none is listed.
	DefaultNetwork = "default"
	// DriverBridge is the default network driver.
	DriverBridge = "bridge"

	// MountVolume is a mount of a named or anonymous volume.
	MountVolume = "volume"
	// MountBind is a mount of a host path.
	MountBind = "bind"
	// MountTmpfs is an in-memory mount.
	MountTmpfs = "tmpfs"
)

// File is a model that represents the compose file.
type File struct {
	Name     string              `yaml:"name,omitempty"`
	Version  string              `yaml:"version,omitempty"`
	Services map[string]Service  `yaml:"services"`
	Volumes  map[string]*Volume  `yaml:"volumes,omitempty"`
	Networks map[string]*Network `yaml:"networks,omitempty"`
}

// Service is a model that represents the compose service configuration.
type Service struct {
	Build         *Build                 `yaml:"build,omitempty"`
	Image         string                 `yaml:"image,omitempty"`
	ContainerName string                 `yaml:"container_name,omitempty"`
	Command       StringList             `yaml:"command,omitempty"`
	Ports         []Port                 `yaml:"ports,omitempty"`
	Environment   Environment            `yaml:"environment,omitempty"`
	EnvFile       StringList             `yaml:"env_file,omitempty"`
	Volumes       []Mount                `yaml:"volumes,omitempty"`
	Restart       string                 `yaml:"restart,omitempty"`
	HealthCheck   *HealthCheck           `yaml:"healthcheck,omitempty"`
	DependsOn     DependsOn              `yaml:"depends_on,omitempty"`
	Networks      ServiceNetworks        `yaml:"networks,omitempty"`
	Labels        Environment            `yaml:"labels,omitempty"`
	Extra         map[string]interface{} `yaml:",inline"`
}

// Build is the build section of the service. The short form sets only the context.
type Build struct {
	Context    string      `yaml:"context,omitempty"`
	Dockerfile string      `yaml:"dockerfile,omitempty"`
	Args       Environment `yaml:"args,omitempty"`
	Target     string      `yaml:"target,omitempty"`
}

// HealthCheck is the health probe the runtime polls.
type HealthCheck struct {
	Test        HealthTest `yaml:"test,omitempty"`
	Interval    Duration   `yaml:"interval,omitempty"`
	Timeout     Duration   `yaml:"timeout,omitempty"`
	StartPeriod Duration   `yaml:"start_period,omitempty"`
	Retries     int        `yaml:"retries,omitempty"`
	Disable     bool       `yaml:"disable,omitempty"`
}

// Enabled tells whether the health check actually probes something.
func (h *HealthCheck) Enabled() bool {
	if h == nil || h.Disable || len(h.Test) == 0 {
		return false
	}
	return h.Test[0] != "NONE"
}

// Dependency is a single depends_on edge.
type Dependency struct {
	Condition string `yaml:"condition,omitempty"`
	Restart   bool   `yaml:"restart,omitempty"`
	Required  *bool  `yaml:"required,omitempty"`
}

// DependsOn maps the dependency service name to the edge settings.
type DependsOn map[string]Dependency

// ServiceNetwork is the per-service network attachment.
type ServiceNetwork struct {
	Aliases     []string `yaml:"aliases,omitempty"`
	IPv4Address string   `yaml:"ipv4_address,omitempty"`
}

// ServiceNetworks maps the network name to the attachment settings.
type ServiceNetworks map[string]*ServiceNetwork

// Volume is a top-level named volume.
type Volume struct {
	Driver     string            `yaml:"driver,omitempty"`
	DriverOpts map[string]string `yaml:"driver_opts,omitempty"`
	External   bool              `yaml:"external,omitempty"`
	Name       string            `yaml:"name,omitempty"`
}

// Network is a top-level network.
type Network struct {
	Driver     string            `yaml:"driver,omitempty"`
	DriverOpts map[string]string `yaml:"driver_opts,omitempty"`
	External   bool              `yaml:"external,omitempty"`
	Name       string            `yaml:"name,omitempty"`
}

// Port is a port entry as written in the file; either Short or the long fields are set.
type Port struct {
	Short     string
	Target    int
	Published string
	HostIP    string
	Protocol  string
	Mode      string
}

// Mount is a service volume entry as written in the file; either Short or the long fields are set.
type Mount struct {
	Short    string
	Type     string
	Source   string
	Target   string
	ReadOnly bool
}

// ServiceNames returns the declared service names in lexical order.
func (f *File) ServiceNames() []string {
	return sortedKeys(f.Services)
}
