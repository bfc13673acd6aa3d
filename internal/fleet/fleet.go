// Package fleet runs a provisioning pass: it generates one wallet per node,
// persists the wallet list and writes a compose descriptor for every node.
//
// All wallets are generated before anything touches the filesystem. Files are
// then written one after another; the first failure stops the run and files
// written before it are left in place.
package fleet

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/facebookgo/atomicfile"
	logging "github.com/ipfs/go-log/v2"
	"gopkg.in/yaml.v3"

	"github.com/spacedatanetwork/ocean-fleet/internal/compose"
	"github.com/spacedatanetwork/ocean-fleet/internal/config"
	"github.com/spacedatanetwork/ocean-fleet/internal/wallet"
)

var log = logging.Logger("fleet")

// Node summarizes one provisioned instance.
type Node struct {
	Name       string   `yaml:"name"`
	Container  string   `yaml:"container"`
	Descriptor string   `yaml:"descriptor"`
	Address    string   `yaml:"address"`
	PeerID     string   `yaml:"peer_id"`
	Ports      []int    `yaml:"ports"`
	Announce   []string `yaml:"announce"`
}

// Result describes everything a run wrote.
type Result struct {
	IP          string `yaml:"ip"`
	WalletsFile string `yaml:"wallets_file"`
	Nodes       []Node `yaml:"nodes"`

	Wallets []wallet.Identity `yaml:"-"`
}

// Provisioner generates wallets and descriptors for a fleet of nodes.
type Provisioner struct {
	cfg *config.Config
	gen wallet.Generator
	out io.Writer
}

// Option configures a Provisioner.
type Option func(*Provisioner)

// WithGenerator replaces the wallet generator.
func WithGenerator(g wallet.Generator) Option {
	return func(p *Provisioner) { p.gen = g }
}

// WithOutput sets where progress lines are printed.
func WithOutput(w io.Writer) Option {
	return func(p *Provisioner) { p.out = w }
}

// New creates a provisioner for cfg.
func New(cfg *config.Config, opts ...Option) *Provisioner {
	p := &Provisioner{
		cfg: cfg,
		out: io.Discard,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Provision runs a full pass with the default generator.
func Provision(cfg *config.Config, ip string, count int) (*Result, error) {
	return New(cfg).Run(ip, count)
}

// Run provisions count nodes announcing on ip.
func (p *Provisioner) Run(ip string, count int) (*Result, error) {
	if count < 0 {
		return nil, fmt.Errorf("%w: %d", wallet.ErrInvalidCount, count)
	}

	plan := compose.NewPortPlan(p.cfg.Ports)
	if _, err := compose.AnnounceAddrs(ip, plan.Ports(0)); err != nil {
		return nil, err
	}
	if err := plan.Validate(count); err != nil {
		return nil, err
	}

	ids, err := p.gen.Generate(count)
	if err != nil {
		return nil, fmt.Errorf("failed to generate wallets: %w", err)
	}

	res := &Result{
		IP:          ip,
		WalletsFile: filepath.Join(p.cfg.Output.Dir, p.cfg.Output.WalletsFile),
		Wallets:     ids,
	}
	if err := wallet.Save(res.WalletsFile, ids); err != nil {
		return nil, err
	}
	fmt.Fprintf(p.out, "Generated wallets saved to %s\n", p.cfg.Output.WalletsFile)

	emitter := compose.NewEmitter(p.cfg)
	for i, id := range ids {
		d, err := emitter.Emit(id, i, ip)
		if err != nil {
			return res, fmt.Errorf("failed to emit descriptor for node %d: %w", i, err)
		}

		node, err := summarize(d, id)
		if err != nil {
			return res, err
		}
		res.Nodes = append(res.Nodes, node)

		fmt.Fprintf(p.out, "Generated %s for %s\n", filepath.Base(d.Path), node.Container)
		log.Infof("%s: address %s, peer %s", node.Name, node.Address, node.PeerID)
	}

	return res, nil
}

func summarize(d *compose.Descriptor, id wallet.Identity) (Node, error) {
	pid, err := id.PeerID()
	if err != nil {
		return Node{}, fmt.Errorf("failed to derive peer id for %s: %w", d.Name, err)
	}

	svc, _ := d.Document.Services.Lookup(d.Name)
	announce := make([]string, len(d.Announce))
	for i, a := range d.Announce {
		announce[i] = a.String()
	}

	return Node{
		Name:       d.Name,
		Container:  svc.ContainerName,
		Descriptor: d.Path,
		Address:    id.Address,
		PeerID:     pid.String(),
		Ports:      d.Ports.All(),
		Announce:   announce,
	}, nil
}

// WriteInventory writes the run summary as YAML. Private keys are not included.
func WriteInventory(path string, res *Result) error {
	data, err := yaml.Marshal(res)
	if err != nil {
		return fmt.Errorf("failed to encode inventory: %w", err)
	}

	f, err := atomicfile.New(path, 0644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Abort()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	log.Infof("Wrote inventory of %d nodes to %s", len(res.Nodes), path)
	return nil
}

// ReadInventory loads an inventory written by WriteInventory.
func ReadInventory(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var res Result
	if err := yaml.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return &res, nil
}
