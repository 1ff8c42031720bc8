package resource

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubsetResource_KeyIsDeterministicRegardlessOfMapOrder(t *testing.T) {
	a := SubsetResource{
		NamespaceV:      "ns",
		ServiceV:        "svc",
		SubsetName:      "canary",
		SubsetMetadataV: map[string]string{"region": "west", "az": "az1"},
	}
	b := SubsetResource{
		NamespaceV:      "ns",
		ServiceV:        "svc",
		SubsetName:      "canary",
		SubsetMetadataV: map[string]string{"az": "az1", "region": "west"},
	}
	assert.Equal(t, a.Key(), b.Key())
}

func TestResourceKinds(t *testing.T) {
	tests := []struct {
		name string
		res  Resource
		kind Kind
	}{
		{"service", ServiceResource{NamespaceV: "ns", ServiceV: "svc"}, KindService},
		{"method", MethodResource{NamespaceV: "ns", ServiceV: "svc", MethodV: "Do"}, KindMethod},
		{"subset", SubsetResource{NamespaceV: "ns", ServiceV: "svc", SubsetName: "canary"}, KindSubset},
		{"instance", InstanceResource{NamespaceV: "ns", ServiceV: "svc", Host: "10.0.0.1", Port: 8080}, KindInstance},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, tt.res.Kind())
			assert.Equal(t, "ns", tt.res.Namespace())
			assert.Equal(t, "svc", tt.res.Service())
			assert.NotEmpty(t, tt.res.Key())
			assert.Equal(t, tt.res.Key(), tt.res.String())
		})
	}
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "SERVICE", KindService.String())
	assert.Equal(t, "METHOD", KindMethod.String())
	assert.Equal(t, "SUBSET", KindSubset.String())
	assert.Equal(t, "INSTANCE", KindInstance.String())
}
