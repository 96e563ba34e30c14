package compose

import (
	"fmt"
	"github.com/beldeveloper/ecomet/internal/app/errtype"
	"regexp"
	"strings"
)

const (
	// SeverityError marks an issue that makes the file invalid.
	SeverityError = "error"
	// SeverityWarning marks a suspicious but accepted setting.
	SeverityWarning = "warning"
)

var (
	restartPolicy = regexp.MustCompile(`^(no|always|unless-stopped|on-failure(:[0-9]+)?)$`)
	knownDrivers  = map[string]bool{
		"bridge": true, "host": true, "overlay": true, "macvlan": true, "ipvlan": true, "none": true,
	}
	conditions = map[string]bool{ConditionStarted: true, ConditionHealthy: true, ConditionCompleted: true}
)

// Issue is a single validation finding.
type Issue struct {
	Severity string `json:"severity"`
	Path     string `json:"path"`
	Message  string `json:"message"`
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s: %s", i.Severity, i.Path, i.Message)
}

// Report is the validation result.
type Report struct {
	Issues []Issue `json:"issues"`
}

// Valid tells whether the report has no errors; warnings are allowed.
func (r Report) Valid() bool {
	for _, i := range r.Issues {
		if i.Severity == SeverityError {
			return false
		}
	}
	return true
}

// Errors returns the issues of the error severity.
func (r Report) Errors() []Issue {
	return r.filter(SeverityError)
}

// Warnings returns the issues of the warning severity.
func (r Report) Warnings() []Issue {
	return r.filter(SeverityWarning)
}

// Err returns nil for a valid report and an ErrInvalidCompose error listing the problems otherwise.
func (r Report) Err() error {
	errs := r.Errors()
	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Path + ": " + e.Message
	}
	return fmt.Errorf("%w: %s", errtype.ErrInvalidCompose, strings.Join(msgs, "; "))
}

func (r Report) filter(severity string) []Issue {
	var res []Issue
	for _, i := range r.Issues {
		if i.Severity == severity {
			res = append(res, i)
		}
	}
	return res
}

type validator struct {
	f      *File
	issues []Issue
}

func (v *validator) errorf(path, format string, args ...interface{}) {
	v.issues = append(v.issues, Issue{Severity: SeverityError, Path: path, Message: fmt.Sprintf(format, args...)})
}

func (v *validator) warnf(path, format string, args ...interface{}) {
	v.issues = append(v.issues, Issue{Severity: SeverityWarning, Path: path, Message: fmt.Sprintf(format, args...)})
}

// Validate checks the file for the configuration errors the runtime would reject
// or would only discover while starting the stack.
func Validate(f *File) Report {
	v := validator{f: f}
	if len(f.Services) == 0 {
		v.errorf("services", "at least one service is required")
	}
	containers := make(map[string]string)
	for _, name := range f.ServiceNames() {
		s := f.Services[name]
		path := "services." + name
		if s.Image == "" && s.Build == nil {
			v.errorf(path, "either image or build is required")
		}
		if s.Build != nil && s.Build.Context == "" && s.Image == "" {
			v.errorf(path+".build", "build context is required")
		}
		if s.ContainerName != "" {
			if other, ok := containers[s.ContainerName]; ok {
				v.errorf(path+".container_name", "%q is already used by service %s", s.ContainerName, other)
			} else {
				containers[s.ContainerName] = name
			}
		}
		if s.Restart != "" && !restartPolicy.MatchString(s.Restart) {
			v.errorf(path+".restart", "invalid restart policy %q", s.Restart)
		}
		v.dependencies(path, name, s)
		v.healthCheck(path+".healthcheck", s.HealthCheck)
		v.volumes(path, s)
		v.networks(path, s)
	}
	v.ports()
	v.cycles()
	for _, name := range sortedKeys(f.Networks) {
		n := f.Networks[name]
		if n != nil && n.Driver != "" && !knownDrivers[n.Driver] {
			v.warnf("networks."+name+".driver", "unknown network driver %q", n.Driver)
		}
	}
	return Report{Issues: v.issues}
}

func (v *validator) dependencies(path, name string, s Service) {
	for _, dep := range sortedKeys(s.DependsOn) {
		d := s.DependsOn[dep]
		p := path + ".depends_on." + dep
		if dep == name {
			v.errorf(p, "service depends on itself")
			continue
		}
		target, ok := v.f.Services[dep]
		if !ok {
			v.errorf(p, "service %q is not declared", dep)
			continue
		}
		if !conditions[d.Condition] {
			v.errorf(p+".condition", "invalid condition %q", d.Condition)
			continue
		}
		if d.Condition == ConditionHealthy && !target.HealthCheck.Enabled() {
			// the image may still carry its own HEALTHCHECK
			v.warnf(p+".condition", "service %q declares no healthcheck", dep)
		}
	}
}

func (v *validator) healthCheck(path string, h *HealthCheck) {
	if h == nil {
		return
	}
	if h.Retries < 0 {
		v.errorf(path+".retries", "must not be negative")
	}
	if h.Interval < 0 || h.Timeout < 0 || h.StartPeriod < 0 {
		v.errorf(path, "durations must not be negative")
	}
	if h.Disable {
		return
	}
	if len(h.Test) == 0 {
		v.errorf(path+".test", "test is required unless the healthcheck is disabled")
		return
	}
	switch h.Test[0] {
	case "NONE":
		return
	case "CMD", "CMD-SHELL":
		if len(h.Test) < 2 || strings.TrimSpace(h.Test[1]) == "" {
			v.errorf(path+".test", "%s requires a command", h.Test[0])
			return
		}
	default:
		v.errorf(path+".test", "test must start with NONE, CMD or CMD-SHELL, got %q", h.Test[0])
		return
	}
	if h.Interval == 0 || h.Timeout == 0 {
		v.warnf(path, "interval or timeout is not set, runtime defaults apply")
	}
}

func (v *validator) volumes(path string, s Service) {
	for i, m := range s.Volumes {
		p := fmt.Sprintf("%s.volumes[%d]", path, i)
		vm, err := m.Parse()
		if err != nil {
			v.errorf(p, "%v", err)
			continue
		}
		if !vm.Named() {
			continue
		}
		if _, ok := v.f.Volumes[vm.Source]; !ok {
			v.errorf(p, "volume %q is not declared", vm.Source)
		}
	}
}

func (v *validator) networks(path string, s Service) {
	for _, name := range sortedKeys(s.Networks) {
		if name == DefaultNetwork {
			continue
		}
		if _, ok := v.f.Networks[name]; !ok {
			v.errorf(path+".networks."+name, "network %q is not declared", name)
		}
	}
}

type hostPort struct {
	ip       string
	port     int
	protocol string
}

// ports parses every mapping and detects host ports published twice. An empty host ip
// binds every interface, so it collides with any ip on the same port.
func (v *validator) ports() {
	owners := make(map[hostPort]string)
	for _, name := range v.f.ServiceNames() {
		for i, p := range v.f.Services[name].Ports {
			path := fmt.Sprintf("services.%s.ports[%d]", name, i)
			m, err := p.Mapping()
			if err != nil {
				v.errorf(path, "%v", err)
				continue
			}
			for _, port := range m.HostPorts() {
				key := hostPort{ip: normalizeIP(m.HostIP), port: port, protocol: m.Protocol}
				if owner, ok := v.portOwner(owners, key); ok {
					v.errorf(path, "host port %d/%s is already published by %s", port, m.Protocol, owner)
					continue
				}
				owners[key] = path
			}
		}
	}
}

func (v *validator) portOwner(owners map[hostPort]string, key hostPort) (string, bool) {
	if owner, ok := owners[key]; ok {
		return owner, true
	}
	for k, owner := range owners {
		if k.port == key.port && k.protocol == key.protocol && (k.ip == "" || key.ip == "") {
			return owner, true
		}
	}
	return "", false
}

func normalizeIP(ip string) string {
	if ip == "0.0.0.0" || ip == "::" {
		return ""
	}
	return ip
}

func (v *validator) cycles() {
	// undeclared targets are reported by dependencies
	if _, err := startupLevels(v.f, true); err != nil {
		v.errorf("services", "%v", err)
	}
}
