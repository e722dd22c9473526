package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveTenant(t *testing.T) {
	tests := []struct {
		name     string
		claims   map[string]interface{}
		fallback string
		want     string
	}{
		{
			name:   "TenantId string wins over all other keys",
			claims: map[string]interface{}{"TenantId": "acme", "tenant_id": "other", "tenant": "another"},
			want:   "acme",
		},
		{
			name:   "TenantId array uses first element",
			claims: map[string]interface{}{"TenantId": []interface{}{"first", "second"}},
			want:   "first",
		},
		{
			name:   "empty TenantId array falls through to tenant_id",
			claims: map[string]interface{}{"TenantId": []interface{}{}, "tenant_id": "snake"},
			want:   "snake",
		},
		{
			name:   "tenant_id before tenantId",
			claims: map[string]interface{}{"tenant_id": "snake", "tenantId": "camel"},
			want:   "snake",
		},
		{
			name:   "tenantId before Tenant",
			claims: map[string]interface{}{"tenantId": "camel", "Tenant": "title"},
			want:   "camel",
		},
		{
			name:   "Tenant before tenant",
			claims: map[string]interface{}{"Tenant": "title", "tenant": "lower"},
			want:   "title",
		},
		{
			name:   "lowercase tenant as last claim candidate",
			claims: map[string]interface{}{"tenant": "lower"},
			want:   "lower",
		},
		{
			name:     "fallback when no claim matches",
			claims:   map[string]interface{}{"preferred_username": "alice"},
			fallback: "session-tenant",
			want:     "session-tenant",
		},
		{
			name:   "default when no claim and no fallback",
			claims: map[string]interface{}{},
			want:   "Default",
		},
		{
			name:   "non-string TenantId falls through",
			claims: map[string]interface{}{"TenantId": 42, "tenant": "lower"},
			want:   "lower",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveTenant(tt.claims, tt.fallback))
		})
	}
}
