package collector

import (
	"context"
	"fmt"

	"github.com/newtron-network/netaudit/pkg/compliance"
	"github.com/newtron-network/netaudit/pkg/inventory"
	"github.com/newtron-network/netaudit/pkg/snapshot"
	"github.com/newtron-network/netaudit/pkg/util"
)

// FileSource reads saved show-command output from <Dir>/<host>/. The host's
// data key snapshot_dir overrides Dir.
type FileSource struct {
	Dir string
}

// Name returns the source name
func (s *FileSource) Name() string {
	return KindFile
}

// Collect loads the host's snapshot and extracts views with its platform's
// queries
func (s *FileSource) Collect(ctx context.Context, h *inventory.Host) (*compliance.ObservedState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir := h.Get("snapshot_dir", s.Dir)
	if dir == "" {
		return nil, fmt.Errorf("host %s: no snapshot directory: %w", h.Name, util.ErrInvalidConfig)
	}

	extractor, err := snapshot.ForPlatform(h.Platform)
	if err != nil {
		return nil, fmt.Errorf("host %s: %w", h.Name, err)
	}

	snap, err := snapshot.LoadDir(dir, h.Name)
	if err != nil {
		return nil, util.NewCollectError(h.Name, KindFile, "", err)
	}
	return extractor.Extract(snap), nil
}
