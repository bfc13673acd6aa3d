package compose

import (
	"fmt"
	"path/filepath"

	"github.com/facebookgo/atomicfile"

	"github.com/spacedatanetwork/ocean-fleet/internal/config"
	"github.com/spacedatanetwork/ocean-fleet/internal/wallet"
)

// Emitter writes descriptors into the configured output directory.
type Emitter struct {
	cfg *config.Config
}

// NewEmitter creates an emitter for cfg.
func NewEmitter(cfg *config.Config) *Emitter {
	return &Emitter{cfg: cfg}
}

// Filename returns the path of the descriptor for the zero-based index.
// File numbering starts at 1.
func (e *Emitter) Filename(index int) string {
	return filepath.Join(e.cfg.Output.Dir, fmt.Sprintf(e.cfg.Output.DescriptorPattern, index+1))
}

// Emit builds the descriptor for id and writes it, replacing any existing file.
func (e *Emitter) Emit(id wallet.Identity, index int, ip string) (*Descriptor, error) {
	d, err := Build(e.cfg, id, index, ip)
	if err != nil {
		return nil, err
	}

	data, err := d.Document.Marshal()
	if err != nil {
		return nil, fmt.Errorf("failed to encode descriptor %d: %w", index, err)
	}

	path := e.Filename(index)
	// Descriptors embed the private key.
	f, err := atomicfile.New(path, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", path, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Abort()
		return nil, fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", path, err)
	}

	d.Path = path
	log.Debugf("Wrote %s for %s", path, d.Name)
	return d, nil
}
