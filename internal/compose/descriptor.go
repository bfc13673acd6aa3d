// Package compose builds and writes the per-node docker compose descriptors.
//
// Every descriptor contains one ocean node service bound to a single wallet and a
// distinct port range, plus the shared typesense indexer, its data volume and the
// bridge network both services join. Documents are built as structured values and
// serialized with yaml.v3; nothing is spliced into template text.
package compose

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	logging "github.com/ipfs/go-log/v2"
	ma "github.com/multiformats/go-multiaddr"

	"github.com/spacedatanetwork/ocean-fleet/internal/config"
	"github.com/spacedatanetwork/ocean-fleet/internal/wallet"
)

var log = logging.Logger("fleet-compose")

// Descriptor is the deployment description of one node instance.
type Descriptor struct {
	Index    int    // zero-based position in the run
	Name     string // service name
	Path     string // set once written
	Ports    PortSet
	Announce []ma.Multiaddr
	Document Document
}

// Build assembles the descriptor of the node at the zero-based index.
func Build(cfg *config.Config, id wallet.Identity, index int, ip string) (*Descriptor, error) {
	ports := NewPortPlan(cfg.Ports).Ports(index)

	announce, err := AnnounceAddrs(ip, ports)
	if err != nil {
		return nil, err
	}

	env, err := nodeEnvironment(cfg, id, ports, announce)
	if err != nil {
		return nil, err
	}

	name := cfg.Node.NamePrefix + strconv.Itoa(index)
	indexer := cfg.Indexer

	mappings := make([]PortMapping, 0, len(ports.All()))
	for _, p := range ports.All() {
		mappings = append(mappings, PortMapping{Host: p, Container: p})
	}

	doc := Document{
		Services: Services{
			{
				Name: name,
				Service: Service{
					Image:         cfg.Node.Image,
					PullPolicy:    cfg.Node.PullPolicy,
					ContainerName: fmt.Sprintf("%s-%d", cfg.Node.NamePrefix, index),
					Restart:       cfg.Node.Restart,
					Ports:         mappings,
					Environment:   env,
					Networks:      []string{cfg.Network.Name},
					DependsOn:     []string{indexer.ContainerName},
				},
			},
			{
				Name: indexer.ContainerName,
				Service: Service{
					Image:         indexer.Image,
					ContainerName: indexer.ContainerName,
					Ports:         []PortMapping{{Host: indexer.Port, Container: indexer.Port}},
					Networks:      []string{cfg.Network.Name},
					Volumes:       []string{indexer.Volume + ":" + indexer.DataDir},
					Command:       fmt.Sprintf("--data-dir %s --api-key=%s", indexer.DataDir, indexer.APIKey),
				},
			},
		},
		Volumes: map[string]Volume{
			indexer.Volume: {Driver: indexer.VolumeDriver},
		},
		Networks: map[string]Network{
			cfg.Network.Name: {Driver: cfg.Network.Driver},
		},
	}

	return &Descriptor{
		Index:    index,
		Name:     name,
		Ports:    ports,
		Announce: announce,
		Document: doc,
	}, nil
}

func nodeEnvironment(cfg *config.Config, id wallet.Identity, ports PortSet, announce []ma.Multiaddr) (Environment, error) {
	rpcs, err := cfg.RPCs.JSON()
	if err != nil {
		return nil, fmt.Errorf("failed to encode rpcs: %w", err)
	}
	interfaces, err := jsonString(cfg.Node.Interfaces)
	if err != nil {
		return nil, err
	}
	admins, err := jsonString([]string{id.Address})
	if err != nil {
		return nil, err
	}
	addrs := make([]string, len(announce))
	for i, a := range announce {
		addrs[i] = a.String()
	}
	announceJSON, err := jsonString(addrs)
	if err != nil {
		return nil, err
	}

	indexer := cfg.Indexer
	dbURL := fmt.Sprintf("http://%s:%d/?apiKey=%s", indexer.ContainerName, indexer.Port, url.QueryEscape(indexer.APIKey))

	env := Environment{
		{"PRIVATE_KEY", id.PrivateKey},
		{"RPCS", rpcs},
		{"DB_URL", dbURL},
		{"IPFS_GATEWAY", cfg.Node.IPFSGateway},
		{"ARWEAVE_GATEWAY", cfg.Node.ArweaveGateway},
		{"INTERFACES", interfaces},
		{"ALLOWED_ADMINS", admins},
		{"HTTP_API_PORT", strconv.Itoa(ports.HTTPAPI)},
		{"DASHBOARD", strconv.FormatBool(cfg.Node.Dashboard)},
		{"P2P_ENABLE_IPV4", strconv.FormatBool(cfg.Node.EnableIPv4)},
		{"P2P_ipV4BindAddress", cfg.Node.BindAddress},
		{"P2P_ipV4BindTcpPort", strconv.Itoa(ports.P2PTCP)},
		{"P2P_ipV4BindWsPort", strconv.Itoa(ports.P2PWS)},
		{"P2P_ANNOUNCE_ADDRESSES", announceJSON},
	}
	for _, s := range cfg.Node.Settings {
		env = append(env, EnvVar{s.Name, s.Value})
	}
	return env, nil
}

func jsonString(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
