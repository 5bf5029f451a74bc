// Package inventory loads the set of devices to audit.
//
// The inventory file has three sections. Host attributes that are left empty
// are inherited from the host's groups (in listed order) and then from
// defaults:
//
//	defaults:
//	  username: admin
//	  source: ssh
//	groups:
//	  ios:
//	    platform: ios
//	    port: 22
//	hosts:
//	  core1:
//	    hostname: 10.0.0.1
//	    groups: [ios]
package inventory

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/newtron-network/netaudit/pkg/util"
)

// DefaultFile is the inventory file used when none is configured
const DefaultFile = "inventory.yaml"

// Attributes are the connection parameters shared by hosts, groups and defaults
type Attributes struct {
	Hostname string            `yaml:"hostname,omitempty" json:"hostname,omitempty"`
	Port     int               `yaml:"port,omitempty" json:"port,omitempty"`
	Username string            `yaml:"username,omitempty" json:"username,omitempty"`
	Password string            `yaml:"password,omitempty" json:"-"`
	Platform string            `yaml:"platform,omitempty" json:"platform,omitempty"`
	Source   string            `yaml:"source,omitempty" json:"source,omitempty"`
	Data     map[string]string `yaml:"data,omitempty" json:"data,omitempty"`
}

// HostSpec is a host as written in the inventory file
type HostSpec struct {
	Attributes `yaml:",inline"`
	Groups     []string `yaml:"groups,omitempty"`
}

// File is the on-disk inventory document
type File struct {
	Defaults Attributes            `yaml:"defaults"`
	Groups   map[string]Attributes `yaml:"groups"`
	Hosts    map[string]HostSpec   `yaml:"hosts"`
}

// Host is a fully resolved device entry
type Host struct {
	Name string `json:"name"`
	Attributes
	Groups []string `json:"groups,omitempty"`
}

// Address returns hostname, falling back to the host's name
func (h *Host) Address() string {
	if h.Hostname != "" {
		return h.Hostname
	}
	return h.Name
}

// Get returns a data value or def when unset
func (h *Host) Get(key, def string) string {
	if v, ok := h.Data[key]; ok && v != "" {
		return v
	}
	return def
}

// Inventory is the resolved, name-ordered host list
type Inventory struct {
	hosts []*Host
	index map[string]*Host
}

// Load reads and resolves an inventory file
func Load(path string) (*Inventory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading inventory %s: %w", path, err)
	}
	inv, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("inventory %s: %w", path, err)
	}
	return inv, nil
}

// Parse decodes and resolves an inventory document
func Parse(data []byte) (*Inventory, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing: %w", err)
	}
	return f.Resolve()
}

// Resolve applies group and default inheritance and validates the result
func (f *File) Resolve() (*Inventory, error) {
	v := &util.ValidationBuilder{}

	names := make([]string, 0, len(f.Hosts))
	for name := range f.Hosts {
		names = append(names, name)
	}
	sort.Strings(names)

	inv := &Inventory{index: make(map[string]*Host, len(names))}
	for _, name := range names {
		spec := f.Hosts[name]
		layers := []Attributes{spec.Attributes}
		for _, g := range spec.Groups {
			ga, ok := f.Groups[g]
			if !ok {
				v.AddErrorf("host %s: unknown group %q", name, g)
				continue
			}
			layers = append(layers, ga)
		}
		layers = append(layers, f.Defaults)

		h := &Host{Name: name, Attributes: merge(layers), Groups: spec.Groups}
		v.Add(h.Port >= 0 && h.Port <= 65535, fmt.Sprintf("host %s: port %d out of range", name, h.Port))

		inv.hosts = append(inv.hosts, h)
		inv.index[name] = h
	}

	if err := v.Build(); err != nil {
		return nil, err
	}
	return inv, nil
}

// merge resolves attributes, earlier layers taking precedence
func merge(layers []Attributes) Attributes {
	var out Attributes
	for i := len(layers) - 1; i >= 0; i-- {
		l := layers[i]
		if l.Hostname != "" {
			out.Hostname = l.Hostname
		}
		if l.Port != 0 {
			out.Port = l.Port
		}
		if l.Username != "" {
			out.Username = l.Username
		}
		if l.Password != "" {
			out.Password = l.Password
		}
		if l.Platform != "" {
			out.Platform = l.Platform
		}
		if l.Source != "" {
			out.Source = l.Source
		}
		for k, val := range l.Data {
			if out.Data == nil {
				out.Data = make(map[string]string)
			}
			out.Data[k] = val
		}
	}
	return out
}

// Hosts returns all hosts in name order
func (inv *Inventory) Hosts() []*Host {
	return inv.hosts
}

// Len returns the number of hosts
func (inv *Inventory) Len() int {
	return len(inv.hosts)
}

// Host looks up a host by name
func (inv *Inventory) Host(name string) (*Host, error) {
	h, ok := inv.index[name]
	if !ok {
		return nil, fmt.Errorf("host '%s': %w", name, util.ErrNotFound)
	}
	return h, nil
}

// Filter returns the named hosts in inventory order. With no names it
// returns every host.
func (inv *Inventory) Filter(names ...string) ([]*Host, error) {
	if len(names) == 0 {
		return inv.hosts, nil
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		if _, err := inv.Host(n); err != nil {
			return nil, err
		}
		want[n] = true
	}
	var out []*Host
	for _, h := range inv.hosts {
		if want[h.Name] {
			out = append(out, h)
		}
	}
	return out, nil
}
