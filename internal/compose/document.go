package compose

import (
	"bytes"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Document is a docker compose file.
type Document struct {
	Services Services           `yaml:"services"`
	Volumes  map[string]Volume  `yaml:"volumes,omitempty"`
	Networks map[string]Network `yaml:"networks,omitempty"`
}

// Service is one compose service definition.
type Service struct {
	Image         string        `yaml:"image"`
	PullPolicy    string        `yaml:"pull_policy,omitempty"`
	ContainerName string        `yaml:"container_name,omitempty"`
	Restart       string        `yaml:"restart,omitempty"`
	Ports         []PortMapping `yaml:"ports,omitempty"`
	Environment   Environment   `yaml:"environment,omitempty"`
	Networks      []string      `yaml:"networks,omitempty"`
	DependsOn     []string      `yaml:"depends_on,omitempty"`
	Volumes       []string      `yaml:"volumes,omitempty"`
	Command       string        `yaml:"command,omitempty"`
}

// NamedService pairs a service with its key in the services block.
type NamedService struct {
	Name    string
	Service Service
}

// Services keeps services in declaration order.
type Services []NamedService

// MarshalYAML implements yaml.Marshaler.
func (s Services) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, ns := range s {
		var val yaml.Node
		if err := val.Encode(ns.Service); err != nil {
			return nil, err
		}
		node.Content = append(node.Content, strNode(ns.Name, 0), &val)
	}
	return node, nil
}

// Lookup returns the service registered under name.
func (s Services) Lookup(name string) (Service, bool) {
	for _, ns := range s {
		if ns.Name == name {
			return ns.Service, true
		}
	}
	return Service{}, false
}

// Volume is a top-level named volume.
type Volume struct {
	Driver string `yaml:"driver,omitempty"`
}

// Network is a top-level named network.
type Network struct {
	Driver string `yaml:"driver,omitempty"`
}

// PortMapping publishes a container port on the host.
type PortMapping struct {
	Host      int
	Container int
}

func (p PortMapping) String() string {
	return strconv.Itoa(p.Host) + ":" + strconv.Itoa(p.Container)
}

// MarshalYAML implements yaml.Marshaler. Mappings are always quoted so that
// YAML 1.1 readers do not take them for base 60 numbers.
func (p PortMapping) MarshalYAML() (interface{}, error) {
	return strNode(p.String(), yaml.DoubleQuotedStyle), nil
}

// EnvVar is a single environment entry.
type EnvVar struct {
	Name  string
	Value string
}

// Environment is an ordered environment block. Values are emitted single-quoted
// so secrets and JSON payloads are never reinterpreted by the YAML reader.
type Environment []EnvVar

// Get returns the value of name.
func (e Environment) Get(name string) (string, bool) {
	for _, v := range e {
		if v.Name == name {
			return v.Value, true
		}
	}
	return "", false
}

// MarshalYAML implements yaml.Marshaler.
func (e Environment) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, v := range e {
		node.Content = append(node.Content, strNode(v.Name, 0), strNode(v.Value, yaml.SingleQuotedStyle))
	}
	return node, nil
}

// Marshal renders the document as YAML with two-space indentation.
func (d *Document) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func strNode(value string, style yaml.Style) *yaml.Node {
	return &yaml.Node{
		Kind:  yaml.ScalarNode,
		Tag:   "!!str",
		Value: value,
		Style: style,
	}
}
