package acquisition

import (
	"context"
	"time"

	"robotmesh/node/mesh"
)

// Cycler runs one scan → rank → connect pass. *mesh.Controller satisfies it.
type Cycler interface {
	Cycle(ctx context.Context) (mesh.CycleReport, error)
}

// Recorder receives loop measurements.
type Recorder interface {
	// ObserveAcquisition is called each time a scan finds peers, with the
	// time since the previous such scan (or since the loop started).
	ObserveAcquisition(since time.Duration)
	ObserveScanRetry(wait time.Duration)
}
