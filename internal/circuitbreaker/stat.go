package circuitbreaker

import "github.com/polarismesh/go-mesh-guard/internal/resource"

// RetStatus is the coarse outcome of an invocation.
type RetStatus int32

const (
	RetSuccess RetStatus = iota
	RetFail
	RetUnknown
)

// ResourceStat is a single sample reported to the registry.
type ResourceStat struct {
	Resource    resource.Resource
	Status      RetStatus
	RetCode     int32
	DelayMillis uint64
	TimestampMs uint64
}
