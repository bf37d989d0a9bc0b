package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"tenant-identity-service/internal/tenant/domain"
	"tenant-identity-service/internal/tenant/service"
)

type memTenantRepo struct {
	tenants map[string]*domain.Tenant
}

func (r *memTenantRepo) GetByTenantID(_ context.Context, tenantID string) (*domain.Tenant, error) {
	t, ok := r.tenants[tenantID]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (r *memTenantRepo) GetByDocument(_ context.Context, document string) (*domain.Tenant, error) {
	for _, t := range r.tenants {
		if t.Document == document {
			cp := *t
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memTenantRepo) List(_ context.Context, activeOnly bool) ([]*domain.Tenant, error) {
	out := []*domain.Tenant{}
	for _, t := range r.tenants {
		if activeOnly && !t.Active {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	return out, nil
}

func (r *memTenantRepo) Create(_ context.Context, t *domain.Tenant) error {
	cp := *t
	r.tenants[t.TenantID] = &cp
	return nil
}

func (r *memTenantRepo) Update(_ context.Context, tenantID string, upd domain.Update) (*domain.Tenant, error) {
	t, ok := r.tenants[tenantID]
	if !ok {
		return nil, nil
	}
	if upd.Name != nil {
		t.Name = *upd.Name
	}
	if upd.Document != nil {
		t.Document = *upd.Document
	}
	if upd.Description != nil {
		t.Description = *upd.Description
	}
	if upd.Active != nil {
		t.Active = *upd.Active
	}
	cp := *t
	return &cp, nil
}

func (r *memTenantRepo) SetActive(_ context.Context, tenantID string, active bool) (bool, error) {
	t, ok := r.tenants[tenantID]
	if !ok {
		return false, nil
	}
	t.Active = active
	return true, nil
}

func (r *memTenantRepo) Delete(_ context.Context, tenantID string) (bool, error) {
	if _, ok := r.tenants[tenantID]; !ok {
		return false, nil
	}
	delete(r.tenants, tenantID)
	return true, nil
}

func newTestMux(t *testing.T) *http.ServeMux {
	t.Helper()
	svc := service.New(&memTenantRepo{tenants: make(map[string]*domain.Tenant)}, nil, nil)
	mux := http.NewServeMux()
	New(svc).Register(mux)
	return mux
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func createTenant(t *testing.T, mux *http.ServeMux, name, document string) *domain.Tenant {
	t.Helper()
	rec := doJSON(t, mux, "POST", "/admin/tenants", `{"name":"`+name+`","document":"`+document+`"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	var created domain.Tenant
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decoding create response failed: %v", err)
	}
	return &created
}

func TestCreateAndGet(t *testing.T) {
	mux := newTestMux(t)

	created := createTenant(t, mux, "Acme", "12345")
	if created.TenantID == "" || !created.Active {
		t.Fatalf("created tenant = %+v", created)
	}

	rec := doJSON(t, mux, "GET", "/admin/tenants/"+created.TenantID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	if rec.Header().Get("X-Cache") != "MISS" {
		t.Fatalf("X-Cache = %q, want MISS", rec.Header().Get("X-Cache"))
	}

	rec = doJSON(t, mux, "POST", "/admin/tenants", `{"name":"Other","document":"12345"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate document status = %d, want 409", rec.Code)
	}
	rec = doJSON(t, mux, "POST", "/admin/tenants", `{"document":"999"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("nameless create status = %d, want 400", rec.Code)
	}
}

func TestGetUnknown(t *testing.T) {
	mux := newTestMux(t)

	rec := doJSON(t, mux, "GET", "/admin/tenants/no-such-id", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestListFilter(t *testing.T) {
	mux := newTestMux(t)

	createTenant(t, mux, "A", "1")
	b := createTenant(t, mux, "B", "2")
	if rec := doJSON(t, mux, "POST", "/admin/tenants/"+b.TenantID+"/deactivate", ""); rec.Code != http.StatusOK {
		t.Fatalf("deactivate status = %d", rec.Code)
	}

	var all, active []*domain.Tenant
	rec := doJSON(t, mux, "GET", "/admin/tenants", "")
	if err := json.NewDecoder(rec.Body).Decode(&all); err != nil {
		t.Fatalf("decoding list failed: %v", err)
	}
	rec = doJSON(t, mux, "GET", "/admin/tenants?active=true", "")
	if err := json.NewDecoder(rec.Body).Decode(&active); err != nil {
		t.Fatalf("decoding list failed: %v", err)
	}
	if len(all) != 2 || len(active) != 1 {
		t.Fatalf("list sizes = %d all, %d active", len(all), len(active))
	}
	if active[0].Name != "A" {
		t.Fatalf("active tenant = %+v", active[0])
	}
}

func TestUpdate(t *testing.T) {
	mux := newTestMux(t)

	created := createTenant(t, mux, "Acme", "12345")

	rec := doJSON(t, mux, "PATCH", "/admin/tenants/"+created.TenantID, `{"name":"Acme Corp"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, body %s", rec.Code, rec.Body.String())
	}
	var updated domain.Tenant
	if err := json.NewDecoder(rec.Body).Decode(&updated); err != nil {
		t.Fatalf("decoding update response failed: %v", err)
	}
	if updated.Name != "Acme Corp" || updated.Document != "12345" {
		t.Fatalf("updated tenant = %+v", updated)
	}

	rec = doJSON(t, mux, "PATCH", "/admin/tenants/"+created.TenantID, `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty update status = %d, want 400", rec.Code)
	}
	rec = doJSON(t, mux, "PATCH", "/admin/tenants/no-such-id", `{"name":"X"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("update unknown status = %d, want 404", rec.Code)
	}
}

func TestActivationCycle(t *testing.T) {
	mux := newTestMux(t)

	created := createTenant(t, mux, "Acme", "12345")

	if rec := doJSON(t, mux, "POST", "/admin/tenants/"+created.TenantID+"/deactivate", ""); rec.Code != http.StatusOK {
		t.Fatalf("deactivate status = %d", rec.Code)
	}
	rec := doJSON(t, mux, "GET", "/admin/tenants/"+created.TenantID, "")
	var got domain.Tenant
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decoding get response failed: %v", err)
	}
	if got.Active {
		t.Fatal("tenant still active after deactivate")
	}

	if rec := doJSON(t, mux, "POST", "/admin/tenants/"+created.TenantID+"/activate", ""); rec.Code != http.StatusOK {
		t.Fatalf("activate status = %d", rec.Code)
	}
	if rec := doJSON(t, mux, "POST", "/admin/tenants/no-such-id/activate", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("activate unknown status = %d, want 404", rec.Code)
	}
}

func TestDelete(t *testing.T) {
	mux := newTestMux(t)

	created := createTenant(t, mux, "Acme", "12345")

	rec := doJSON(t, mux, "DELETE", "/admin/tenants/"+created.TenantID, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	rec = doJSON(t, mux, "GET", "/admin/tenants/"+created.TenantID, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete status = %d, want 404", rec.Code)
	}
	rec = doJSON(t, mux, "DELETE", "/admin/tenants/"+created.TenantID, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d, want 404", rec.Code)
	}
}
