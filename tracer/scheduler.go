package tracer

import "math"

// The BlockScheduler interface is implemented by all block scheduling algorithms.
type BlockScheduler interface {
	// Split frame into blocks of variable height and assign to the pool
	// of tracers using feedback collected from previous frames.
	//
	// This function returns the block height assignment for each tracer
	// in the input list.
	Schedule(tracers []Tracer, frameH uint32) []uint32
}

// The naive scheduler distributes rows proportionally to each tracer's
// static speed estimate.
type naiveScheduler struct {
	blockAssignment []uint32
}

// Create a new naive scheduler instance.
func NaiveScheduler() BlockScheduler {
	return &naiveScheduler{}
}

func (sch *naiveScheduler) Schedule(tracers []Tracer, frameH uint32) []uint32 {
	if len(sch.blockAssignment) != len(tracers) {
		sch.blockAssignment = make([]uint32, len(tracers))
	}

	var total float64
	for _, tr := range tracers {
		total += float64(tr.Speed())
	}
	scaler := float64(frameH) / total

	var scheduledRows uint32
	for idx, tr := range tracers {
		sch.blockAssignment[idx] = uint32(math.Max(1.0, math.Floor(float64(tr.Speed())*scaler)))
		scheduledRows += sch.blockAssignment[idx]
	}

	// In case rows don't add up to the frame height append the missing
	// ones to the first tracer.
	sch.blockAssignment[0] += frameH - scheduledRows

	return sch.blockAssignment
}

// The perfect scheduler assumes that the volume of tracing work between two
// subsequent frames is approximately the same and uses the per-tracer render
// times from the previous frame to rebalance block heights.
type perfectScheduler struct {
	naive           BlockScheduler
	blockAssignment []uint32
}

// Create a new perfect scheduler instance.
func PerfectScheduler() BlockScheduler {
	return &perfectScheduler{
		naive: NaiveScheduler(),
	}
}

// Split frame into blocks of variable height and assign to the pool of
// tracers using feedback collected from previous frames.
//
// When previous frame information is available the scheduler estimates the
// workload for tracer w and frame i+1 as:
// w_i, f_i+1 = (blockH,w_i / time,w_i) / Σ(blockH_i / time_i)
func (sch *perfectScheduler) Schedule(tracers []Tracer, frameH uint32) []uint32 {
	// If this is the first time we try to schedule, the number of
	// tracers has changed or no timing feedback is available yet fall
	// back to the naive speed-based assignment.
	feedback := true
	for _, tr := range tracers {
		stats := tr.Stats()
		if stats.BlockH == 0 || stats.RenderTime == 0 {
			feedback = false
			break
		}
	}
	if len(sch.blockAssignment) != len(tracers) || !feedback {
		if len(sch.blockAssignment) != len(tracers) {
			sch.blockAssignment = make([]uint32, len(tracers))
		}
		copy(sch.blockAssignment, sch.naive.Schedule(tracers, frameH))
		return sch.blockAssignment
	}

	var total float64
	for _, tr := range tracers {
		stats := tr.Stats()
		total += float64(stats.BlockH) / float64(stats.RenderTime)
	}

	scaler := float64(frameH) / total
	var scheduledRows uint32
	for idx, tr := range tracers {
		stats := tr.Stats()
		sch.blockAssignment[idx] = uint32(math.Max(1.0, math.Floor(float64(stats.BlockH)/float64(stats.RenderTime)*scaler)))
		scheduledRows += sch.blockAssignment[idx]
	}

	// In case rows don't add up to the frame height append the missing
	// ones to the first tracer.
	sch.blockAssignment[0] += frameH - scheduledRows

	return sch.blockAssignment
}
