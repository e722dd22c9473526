package token

import "github.com/golang-jwt/jwt/v5"

// DefaultTenant is used when no claim and no fallback yields a tenant.
const DefaultTenant = "Default"

// tenantClaimKeys is the ordered precedence of tenant claim names.
// Federated identity systems disagree on the key; this order decides
// which convention wins and must not be reordered.
var tenantClaimKeys = []string{"TenantId", "tenant_id", "tenantId", "Tenant", "tenant"}

// ResolveTenant extracts the tenant identifier from a claim map.
// "TenantId" may be a string or an array of strings; a non-empty array
// contributes its first element, an empty array falls through to the
// next candidate key. When no claim matches, fallback is used, and when
// fallback is empty, DefaultTenant.
func ResolveTenant(claims jwt.MapClaims, fallback string) string {
	for _, key := range tenantClaimKeys {
		value, ok := claims[key]
		if !ok {
			continue
		}
		switch v := value.(type) {
		case string:
			return v
		case []interface{}:
			if len(v) == 0 {
				continue
			}
			if s, ok := v[0].(string); ok {
				return s
			}
		case []string:
			if len(v) == 0 {
				continue
			}
			return v[0]
		}
	}
	if fallback != "" {
		return fallback
	}
	return DefaultTenant
}
