package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/newtron-network/netaudit/pkg/util"
)

// View file base names inside a device snapshot directory
const (
	RoutesFile = "routes"
	BGPFile    = "bgp"
	OSPFFile   = "ospf"
)

var extensions = []string{".json", ".yaml", ".yml"}

// LoadDir reads <dir>/<device>/{routes,bgp,ospf}.{json,yaml,yml}. A missing
// or unparseable file leaves that document nil; only an unreadable device
// directory is an error.
func LoadDir(dir, device string) (*Snapshot, error) {
	devDir := filepath.Join(dir, device)
	info, err := os.Stat(devDir)
	if err != nil {
		return nil, fmt.Errorf("snapshot for %s: %w", device, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("snapshot for %s: %s is not a directory", device, devDir)
	}

	s := &Snapshot{Device: device}
	s.Routes = loadView(devDir, device, RoutesFile)
	s.BGP = loadView(devDir, device, BGPFile)
	s.OSPF = loadView(devDir, device, OSPFFile)
	return s, nil
}

func loadView(dir, device, base string) any {
	for _, ext := range extensions {
		path := filepath.Join(dir, base+ext)
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			util.WithDevice(device).Warnf("reading %s: %v", path, err)
			return nil
		}
		doc, err := decodeFile(ext, data)
		if err != nil {
			util.WithDevice(device).Warnf("parsing %s: %v", path, err)
			return nil
		}
		return doc
	}
	return nil
}

func decodeFile(ext string, data []byte) (any, error) {
	if ext == ".json" {
		return DecodeJSON(data)
	}
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// DecodeJSON decodes command output emitted as JSON
func DecodeJSON(data []byte) (any, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Save writes a snapshot as JSON files under <dir>/<device>, the layout
// LoadDir reads. Nil documents are skipped.
func Save(dir string, s *Snapshot) error {
	devDir := filepath.Join(dir, s.Device)
	if err := os.MkdirAll(devDir, 0755); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}
	docs := map[string]any{RoutesFile: s.Routes, BGPFile: s.BGP, OSPFFile: s.OSPF}
	for base, doc := range docs {
		if doc == nil {
			continue
		}
		data, err := json.MarshalIndent(normalize(doc), "", "  ")
		if err != nil {
			return fmt.Errorf("encoding %s snapshot: %w", base, err)
		}
		if err := os.WriteFile(filepath.Join(devDir, base+".json"), data, 0644); err != nil {
			return err
		}
	}
	return nil
}
