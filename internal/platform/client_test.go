package platform

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linguaops/payrecon/internal/payment"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := New(nil, "secret")
	c.APIURL = srv.URL
	c.HTTPClient = srv.Client()
	return c
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	assert.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestGetItemsFollowsPages(t *testing.T) {
	var pages []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, userAgent, r.Header.Get("User-Agent"))
		assert.Equal(t, perPage, r.URL.Query().Get("per_page"))

		page := r.URL.Query().Get("page")
		pages = append(pages, page)
		if page == "" {
			page = "0"
		}
		writeJSON(t, w, map[string]any{
			"items": []map[string]any{{"id": "item-" + page}},
			"pages": 3,
			"page":  map[string]int{"0": 0, "1": 1, "2": 2}[page],
		})
	})

	items, err := c.GetItems(context.Background(), c.APIURL+"/things", nil)

	require.NoError(t, err)
	assert.Len(t, items, 3)
	assert.Equal(t, []string{"", "1", "2"}, pages)
}

func TestGetItemsReadsGzip(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		defer gz.Close()
		fmt.Fprint(gz, `{"items":[{"id":"a"},{"id":"b"}],"pages":1,"page":0}`)
	})

	items, err := c.GetItems(context.Background(), c.APIURL+"/things", nil)

	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestStatusErrorSurfacesBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "token expired", http.StatusForbidden)
	})

	_, err := c.TeamRoster(context.Background())

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Contains(t, statusErr.Status, "403")
	assert.Equal(t, "token expired", statusErr.Body)
	assert.Contains(t, err.Error(), "fetching team roster")
}

func TestStatusErrorTruncatesLongBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, strings.Repeat("x", maxErrorBody*2))
	})

	_, err := c.TeamRoster(context.Background())

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Len(t, statusErr.Body, maxErrorBody+len("..."))
}

func TestTeamRoster(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, apiTeamPath, r.URL.Path)
		writeJSON(t, w, map[string]any{
			"items": []map[string]any{
				{"id": 42, "name": "Jane Doe", "email": "jane@x.com", "supplier_type": "freelancer", "languages": []string{"en", "de"}, "completed_units": 12, "matched_vendor_id": "v1"},
				{"id": "sup-2", "name": "John Smith"},
			},
			"pages": 1,
		})
	})

	roster, err := c.TeamRoster(context.Background())

	require.NoError(t, err)
	require.Equal(t, 2, roster.Len())
	jane := roster.Items[0]
	assert.Equal(t, "42", jane.ExternalID)
	assert.Equal(t, []string{"en", "de"}, jane.Languages)
	assert.Equal(t, 12, jane.CompletedUnits)

	assert.Same(t, jane, roster.FindByVendorID("v1"))
	assert.Same(t, jane, roster.FindByEmail(" JANE@x.com"))
	assert.Same(t, roster.Items[1], roster.FindByName("john smith"))
	assert.Same(t, roster.Items[1], roster.FindByExternalID("sup-2"))
	assert.Nil(t, roster.FindByName(""))
	assert.Nil(t, (*Roster)(nil).FindByEmail("jane@x.com"))
}

func TestCompletedJobs(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, apiJobsPath, r.URL.Path)
		assert.Equal(t, completedStatus, q.Get("status"))
		assert.Equal(t, "2026-09-01", q.Get("date_from"))
		assert.Equal(t, "2026-09-30", q.Get("date_to"))
		writeJSON(t, w, map[string]any{
			"items": []map[string]any{
				{"id": "j1", "units": 100, "amount": 12.5, "supplier": map[string]any{"id": "s1", "name": "Jane Doe", "languages": []string{"en"}}},
				{"id": "j2", "units": 50, "supplier": map[string]any{"id": "s2", "name": "John Smith"}},
				{"id": "j3", "units": 25, "supplier": map[string]any{"id": "s1", "name": "Jane Doe", "languages": []string{"en", "fr"}}},
			},
			"pages": 1,
		})
	})

	from := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC)
	jobs, err := c.CompletedJobs(context.Background(), from, to)

	require.NoError(t, err)
	require.Equal(t, 3, jobs.Len())
	assert.Equal(t, 12.5, jobs.Items[0].Amount)

	roster := jobs.Roster()
	require.Equal(t, 2, roster.Len())
	assert.Equal(t, "s1", roster.Items[0].ExternalID)
	assert.Equal(t, 125, roster.Items[0].CompletedUnits)
	assert.Equal(t, []string{"en", "fr"}, roster.Items[0].Languages)
	assert.Equal(t, 50, roster.Items[1].CompletedUnits)
	// Folding must not touch the jobs themselves.
	assert.Equal(t, []string{"en"}, jobs.Items[0].Supplier.Languages)
}

func TestCompletedJobsRejectsInvertedPeriod(t *testing.T) {
	c := New(nil, "secret")
	from := time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC)

	_, err := c.CompletedJobs(context.Background(), from, from.AddDate(0, 0, -1))

	assert.Error(t, err)
}

func TestCreatePayments(t *testing.T) {
	var got createPaymentsRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, apiPaymentsPath, r.URL.Path)
		assert.Equal(t, contentType, r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		writeJSON(t, w, createPaymentsResponse{Created: len(got.Payments)})
	})

	created, err := c.CreatePayments(context.Background(), []payment.Payload{{
		InvoiceCode:   "INV001",
		SupplierEmail: "jane@x.com",
		ServiceType:   "Translation",
		UnitsType:     "Words",
		UnitsAmount:   decimal.NewFromInt(1000),
		PricePerUnit:  decimal.RequireFromString("0.1"),
		Currency:      "EUR",
	}})

	require.NoError(t, err)
	assert.Equal(t, 1, created)
	require.Len(t, got.Payments, 1)
	assert.Equal(t, "INV001", got.Payments[0].InvoiceCode)
	assert.Equal(t, 1000.0, got.Payments[0].UnitsAmount)
	assert.Equal(t, 0.1, got.Payments[0].PricePerUnit)
}

func TestCreatePaymentsFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "duplicate invoice INV001", http.StatusConflict)
	})

	_, err := c.CreatePayments(context.Background(), []payment.Payload{{InvoiceCode: "INV001"}})

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, "duplicate invoice INV001", statusErr.Body)

	_, err = c.CreatePayments(context.Background(), nil)
	assert.Error(t, err)
}
