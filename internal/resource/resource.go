// Package resource defines the stable identifiers circuit breaking and
// routing operate over. Resources are immutable value types; identity is
// value-equality of all fields, and Key() produces a deterministic string
// usable as a map key or log field.
package resource

import (
	"fmt"
	"sort"
	"strings"
)

// Kind classifies a Resource by the granularity it guards.
type Kind int32

const (
	KindService Kind = iota
	KindMethod
	KindSubset
	KindInstance
)

func (k Kind) String() string {
	switch k {
	case KindService:
		return "SERVICE"
	case KindMethod:
		return "METHOD"
	case KindSubset:
		return "SUBSET"
	case KindInstance:
		return "INSTANCE"
	default:
		return "UNDEFINED"
	}
}

// Resource is a stable identifier for a target of circuit breaking.
type Resource interface {
	Kind() Kind
	Namespace() string
	Service() string
	// Key returns a deterministic string identity, usable as a map key.
	Key() string
	String() string
}

// ServiceResource identifies an entire service within a namespace.
type ServiceResource struct {
	NamespaceV string
	ServiceV   string
}

func (r ServiceResource) Kind() Kind          { return KindService }
func (r ServiceResource) Namespace() string   { return r.NamespaceV }
func (r ServiceResource) Service() string     { return r.ServiceV }
func (r ServiceResource) Key() string         { return fmt.Sprintf("svc://%s/%s", r.NamespaceV, r.ServiceV) }
func (r ServiceResource) String() string      { return r.Key() }

// MethodResource identifies a single RPC method of a service.
type MethodResource struct {
	NamespaceV string
	ServiceV   string
	MethodV    string
}

func (r MethodResource) Kind() Kind        { return KindMethod }
func (r MethodResource) Namespace() string { return r.NamespaceV }
func (r MethodResource) Service() string   { return r.ServiceV }
func (r MethodResource) Method() string    { return r.MethodV }
func (r MethodResource) Key() string {
	return fmt.Sprintf("method://%s/%s/%s", r.NamespaceV, r.ServiceV, r.MethodV)
}
func (r MethodResource) String() string { return r.Key() }

// SubsetResource identifies a named, metadata-defined partition of a
// service's instances — the granularity the router checks against the
// breaker registry before handing out a destination group.
type SubsetResource struct {
	NamespaceV      string
	ServiceV        string
	SubsetName      string
	SubsetMetadataV map[string]string
}

func (r SubsetResource) Kind() Kind        { return KindSubset }
func (r SubsetResource) Namespace() string { return r.NamespaceV }
func (r SubsetResource) Service() string   { return r.ServiceV }
func (r SubsetResource) SubsetMetadata() map[string]string {
	return r.SubsetMetadataV
}
func (r SubsetResource) Key() string {
	keys := make([]string, 0, len(r.SubsetMetadataV))
	for k := range r.SubsetMetadataV {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(r.SubsetMetadataV[k])
		b.WriteByte(',')
	}
	return fmt.Sprintf("subset://%s/%s/%s?%s", r.NamespaceV, r.ServiceV, r.SubsetName, b.String())
}
func (r SubsetResource) String() string { return r.Key() }

// InstanceResource identifies a single host:port instance of a service.
type InstanceResource struct {
	NamespaceV string
	ServiceV   string
	Host       string
	Port       uint32
}

func (r InstanceResource) Kind() Kind        { return KindInstance }
func (r InstanceResource) Namespace() string { return r.NamespaceV }
func (r InstanceResource) Service() string   { return r.ServiceV }
func (r InstanceResource) Key() string {
	return fmt.Sprintf("instance://%s/%s/%s:%d", r.NamespaceV, r.ServiceV, r.Host, r.Port)
}
func (r InstanceResource) String() string { return r.Key() }
