package pointcloud

import (
	"fmt"
	"sync"
	"time"

	"github.com/banshee-data/pointfeatures/internal/timeutil"
	"github.com/banshee-data/pointfeatures/internal/version"
)

// ProvenanceRecord describes one processing step applied to a cloud.
type ProvenanceRecord struct {
	Time       time.Time              `json:"time"`
	Module     string                 `json:"module"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
	Version    string                 `json:"version"`
}

func (r ProvenanceRecord) clone() ProvenanceRecord {
	out := r
	if r.Parameters != nil {
		out.Parameters = make(map[string]interface{}, len(r.Parameters))
		for k, v := range r.Parameters {
			out.Parameters[k] = v
		}
	}
	return out
}

var (
	clockMu sync.RWMutex
	clock   timeutil.Clock = timeutil.RealClock{}
)

// SetClock replaces the clock used to timestamp provenance records.
// Passing nil restores the real clock.
func SetClock(c timeutil.Clock) {
	clockMu.Lock()
	defer clockMu.Unlock()
	if c == nil {
		c = timeutil.RealClock{}
	}
	clock = c
}

func now() time.Time {
	clockMu.RLock()
	c := clock
	clockMu.RUnlock()
	return c.Now().UTC()
}

// AddMetadata appends a provenance record for module to the cloud's audit
// trail. Parameters are recorded only when params is non-empty.
func AddMetadata(pc *PointCloud, module string, params map[string]interface{}) error {
	if pc == nil {
		return fmt.Errorf("%w: nil point cloud", ErrInvalidInput)
	}
	if module == "" {
		return fmt.Errorf("%w: empty module name", ErrInvalidInput)
	}
	rec := ProvenanceRecord{
		Time:    now(),
		Module:  module,
		Version: version.String(),
	}
	if len(params) > 0 {
		rec.Parameters = make(map[string]interface{}, len(params))
		for k, v := range params {
			rec.Parameters[k] = v
		}
	}
	pc.Provenance = append(pc.Provenance, rec)
	return nil
}
