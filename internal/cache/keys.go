package cache

import "fmt"

// Cache keys are derived deterministically from (entity type, entity id,
// optional cursor) so mutations can construct every key or pattern that could
// serve a stale view without enumerating live keys.

// TenantsListActiveKey caches the list of active tenants.
const TenantsListActiveKey = "tenants:list:active"

// TenantsListAllKey caches the list of all tenants, active and inactive.
const TenantsListAllKey = "tenants:list:all"

// TenantKey returns the cache key for a single tenant.
func TenantKey(tenantID string) string {
	return fmt.Sprintf("tenant:%s", tenantID)
}

// TenantLogsKey returns the cache key for one page of a tenant's login logs.
func TenantLogsKey(tenantID string, page int) string {
	return fmt.Sprintf("logs:%s:page:%d", tenantID, page)
}

// UserTenantLogsKey returns the cache key for a user's login logs within a tenant.
func UserTenantLogsKey(userID, tenantID string) string {
	return fmt.Sprintf("logs:user:%s:tenant:%s", userID, tenantID)
}

// TenantPattern matches every cache key derived from a tenant entity.
func TenantPattern(tenantID string) string {
	return fmt.Sprintf("tenant:%s*", tenantID)
}

// LogsPattern matches every cached per-user log view within the tenant.
func LogsPattern(tenantID string) string {
	return fmt.Sprintf("logs:*tenant:%s", tenantID)
}

// TenantLogsPagePattern matches every cached log page for the tenant.
func TenantLogsPagePattern(tenantID string) string {
	return fmt.Sprintf("logs:%s:page:*", tenantID)
}
