// Package telemetry defines the raw input records the engine consumes:
// one sample per call, eight named scalars plus a timestamp.
package telemetry

import (
	"time"

	"github.com/kestrelops/cascade/internal/fault"
)

// #region dimensions

// DimensionCount is the fixed width of the burden vector.
const DimensionCount = 8

// Dimension names one of the eight telemetry inputs.
type Dimension string

const (
	DimCPULoad        Dimension = "cpu_load"
	DimMemoryPressure Dimension = "memory_pressure"
	DimIOWait         Dimension = "io_wait"
	DimQueueDepth     Dimension = "queue_depth"
	DimErrorRate      Dimension = "error_rate"
	DimLatencyDrift   Dimension = "latency_drift"
	DimSaturation     Dimension = "saturation"
	DimChurn          Dimension = "churn"
)

// Dimensions is the canonical ordering used for vector layouts everywhere.
var Dimensions = [DimensionCount]Dimension{
	DimCPULoad,
	DimMemoryPressure,
	DimIOWait,
	DimQueueDepth,
	DimErrorRate,
	DimLatencyDrift,
	DimSaturation,
	DimChurn,
}

// Index returns the canonical position of d, or -1 if d is unknown.
func Index(d Dimension) int {
	for i, known := range Dimensions {
		if known == d {
			return i
		}
	}
	return -1
}

// #endregion dimensions

// #region sample

// Sample is one raw telemetry record. DT is the elapsed time in seconds
// since the previous sample; zero means "unset", and the engine
// substitutes its configured default.
type Sample struct {
	Raw       map[Dimension]float64
	Timestamp time.Time
	DT        float64
}

// Validate checks that the sample carries exactly the eight canonical
// dimensions and a non-negative DT. A violation is a per-call
// SampleError, recoverable by the caller; domain checks happen later, at
// calibration.
func (s Sample) Validate() error {
	if len(s.Raw) != DimensionCount {
		return fault.Samplef("expected %d dimensions, got %d", DimensionCount, len(s.Raw))
	}
	for _, d := range Dimensions {
		if _, ok := s.Raw[d]; !ok {
			return fault.Samplef("missing dimension %q", d)
		}
	}
	if s.DT < 0 {
		return fault.Samplef("negative dt %g", s.DT)
	}
	return nil
}

// Vector returns the raw values in canonical order. The sample must have
// passed Validate.
func (s Sample) Vector() [DimensionCount]float64 {
	var v [DimensionCount]float64
	for i, d := range Dimensions {
		v[i] = s.Raw[d]
	}
	return v
}

// #endregion sample
