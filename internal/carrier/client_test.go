package carrier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/fulfillment-agent/internal/types"
)

// newTestClient starts a fake carrier with a working login endpoint plus the given routes.
func newTestClient(t *testing.T, routes map[string]http.HandlerFunc) (*Client, *int32) {
	t.Helper()

	var logins int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/external/auth/login", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&logins, 1)
		var req loginRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"Invalid email and password combination"}`))
			return
		}
		_, _ = w.Write([]byte(`{"token":"tok-123"}`))
	})
	for pattern, h := range routes {
		mux.HandleFunc(pattern, h)
	}

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client := New(Config{BaseURL: server.URL, Email: "ops@example.com", Password: "secret"})
	return client, &logins
}

func assertBearer(t *testing.T, r *http.Request) {
	t.Helper()
	assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
}

func TestAuthenticate_Memoizes(t *testing.T) {
	client, logins := newTestClient(t, nil)

	token, err := client.Authenticate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-123", token)

	_, err = client.Authenticate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(logins))

	client.ResetToken()
	_, err = client.Authenticate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(logins))
}

func TestAuthenticate_Rejected(t *testing.T) {
	client, _ := newTestClient(t, nil)
	client.password = "wrong"

	_, err := client.Authenticate(context.Background())
	require.Error(t, err)

	var authErr *AuthenticationError
	require.ErrorAs(t, err, &authErr)
	assert.True(t, IsAuthenticationError(err))
	assert.Contains(t, err.Error(), "Shiprocket Authentication Failed")
	assert.Contains(t, err.Error(), "Invalid email and password combination")
}

func TestGetWalletBalance(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    *float64
		wantErr bool
	}{
		{name: "numeric balance", status: http.StatusOK, body: `{"data":{"wallet_balance":1250.5}}`, want: ptr(1250.5)},
		{name: "quoted balance", status: http.StatusOK, body: `{"data":{"wallet_balance":"80.00"}}`, want: ptr(80.0)},
		{name: "zero balance is known", status: http.StatusOK, body: `{"data":{"wallet_balance":0}}`, want: ptr(0.0)},
		{name: "missing field is unknown", status: http.StatusOK, body: `{"data":{}}`},
		{name: "server error is unknown", status: http.StatusInternalServerError, body: `{"message":"oops"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, map[string]http.HandlerFunc{
				"GET /v1/external/account/details": func(w http.ResponseWriter, r *http.Request) {
					assertBearer(t, r)
					w.WriteHeader(tt.status)
					_, _ = w.Write([]byte(tt.body))
				},
			})

			got, err := client.GetWalletBalance(context.Background())
			require.NoError(t, err)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tt.want, *got, 0.001)
		})
	}
}

func TestGetWalletBalance_AuthFailureIsFatal(t *testing.T) {
	client, _ := newTestClient(t, nil)
	client.password = "wrong"

	got, err := client.GetWalletBalance(context.Background())
	assert.Nil(t, got)
	assert.True(t, IsAuthenticationError(err))
}

func TestGetWalletBalance_Unreachable(t *testing.T) {
	client, _ := newTestClient(t, nil)
	client.token = "tok-123"
	client.baseURL = "http://127.0.0.1:1"

	got, err := client.GetWalletBalance(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func orderPage(entries ...string) string {
	out := `{"data":[`
	for i, e := range entries {
		if i > 0 {
			out += ","
		}
		out += e
	}
	return out + `]}`
}

func TestFindOrderByExternalID_MatchesExactly(t *testing.T) {
	client, _ := newTestClient(t, map[string]http.HandlerFunc{
		"GET /v1/external/orders": func(w http.ResponseWriter, r *http.Request) {
			assertBearer(t, r)
			assert.Equal(t, "1573", r.URL.Query().Get("search"))
			assert.Equal(t, "100", r.URL.Query().Get("per_page"))
			_, _ = w.Write([]byte(orderPage(
				`{"id":900,"channel_order_id":"15730","status":"NEW","shipments":[{"id":1}]}`,
				`{"id":901,"channel_order_id":1573,"status":"NEW","status_code":1,"shipments":[{"id":7001}]}`,
			)))
		},
	})

	got, err := client.FindOrderByExternalID(context.Background(), "1573")
	require.NoError(t, err)
	assert.True(t, got.Found)
	assert.Equal(t, int64(7001), got.ShipmentID)
	assert.Equal(t, int64(901), got.OrderID)
	assert.Equal(t, "NEW", got.Status)
	assert.Equal(t, 1, got.StatusCode)
}

func TestFindOrderByExternalID_PaginatesUpToLimit(t *testing.T) {
	var pages int32
	client, _ := newTestClient(t, map[string]http.HandlerFunc{
		"GET /v1/external/orders": func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&pages, 1)
			_, _ = w.Write([]byte(orderPage(`{"id":1,"channel_order_id":"other"}`, `{"id":2,"channel_order_id":"other"}`)))
		},
	})
	client.pageSize = 2
	client.maxPages = 3

	got, err := client.FindOrderByExternalID(context.Background(), "#1573")
	require.NoError(t, err)
	assert.False(t, got.Found)
	assert.Equal(t, int32(3), atomic.LoadInt32(&pages))
}

func TestFindOrderByExternalID_FoundOnLaterPage(t *testing.T) {
	client, _ := newTestClient(t, map[string]http.HandlerFunc{
		"GET /v1/external/orders": func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("page") == "1" {
				_, _ = w.Write([]byte(orderPage(`{"id":1,"channel_order_id":"a"}`, `{"id":2,"channel_order_id":"b"}`)))
				return
			}
			_, _ = w.Write([]byte(orderPage(`{"id":3,"channel_order_id":"#1573","shipments":[{"id":"42"}]}`)))
		},
	})
	client.pageSize = 2

	got, err := client.FindOrderByExternalID(context.Background(), "#1573")
	require.NoError(t, err)
	assert.True(t, got.Found)
	assert.Equal(t, int64(42), got.ShipmentID)
}

func TestFindOrderByExternalID_StopsOnShortPage(t *testing.T) {
	var pages int32
	client, _ := newTestClient(t, map[string]http.HandlerFunc{
		"GET /v1/external/orders": func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&pages, 1)
			_, _ = w.Write([]byte(orderPage()))
		},
	})

	got, err := client.FindOrderByExternalID(context.Background(), "1573")
	require.NoError(t, err)
	assert.False(t, got.Found)
	assert.Equal(t, int32(1), atomic.LoadInt32(&pages))
}

func TestFindOrderByExternalID_APIError(t *testing.T) {
	client, _ := newTestClient(t, map[string]http.HandlerFunc{
		"GET /v1/external/orders": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"message":"Too Many Attempts."}`))
		},
	})

	_, err := client.FindOrderByExternalID(context.Background(), "1573")
	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Equal(t, "Too Many Attempts.", Message(err))
}

func TestAssignCourier(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		success bool
		awb     string
		kind    FailureKind
		message string
	}{
		{
			name:    "assigned",
			status:  http.StatusOK,
			body:    `{"awb_assign_status":1,"response":{"data":{"awb_code":"AWB123","courier_name":"Delhivery"}}}`,
			success: true,
			awb:     "AWB123",
		},
		{
			name:    "low wallet",
			status:  http.StatusBadRequest,
			body:    `{"message":"Insufficient wallet balance to assign AWB"}`,
			kind:    FailureLowWallet,
			message: "Insufficient wallet balance to assign AWB",
		},
		{
			name:    "missing dimensions",
			status:  http.StatusUnprocessableEntity,
			body:    `{"message":"Please add package dimensions and weight"}`,
			kind:    FailureDimensions,
			message: "Please add package dimensions and weight",
		},
		{
			name:    "ok status without awb",
			status:  http.StatusOK,
			body:    `{"awb_assign_status":0,"response":{"data":{"awb_assign_error":"Courier not serviceable"}}}`,
			kind:    FailureGeneric,
			message: "Courier not serviceable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, map[string]http.HandlerFunc{
				"POST /v1/external/courier/assign/awb": func(w http.ResponseWriter, r *http.Request) {
					var req assignRequest
					assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
					assert.Equal(t, int64(7001), req.ShipmentID)
					w.WriteHeader(tt.status)
					_, _ = w.Write([]byte(tt.body))
				},
			})

			got := client.AssignCourier(context.Background(), 7001)
			assert.Equal(t, tt.success, got.Success)
			assert.Equal(t, tt.awb, got.AWB)
			if !tt.success {
				assert.Equal(t, tt.kind, got.Kind)
				assert.Equal(t, tt.message, got.Message)
			}
		})
	}
}

func TestBulkAssignCouriers_NeverAborts(t *testing.T) {
	client, _ := newTestClient(t, map[string]http.HandlerFunc{
		"POST /v1/external/courier/assign/awb": func(w http.ResponseWriter, r *http.Request) {
			var req assignRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			if req.ShipmentID == 2 {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"message":"weight is required"}`))
				return
			}
			_, _ = w.Write([]byte(`{"response":{"data":{"awb_code":"AWB"}}}`))
		},
	})

	result := client.BulkAssignCouriers(context.Background(), []types.ShipmentAssignment{
		{ShipmentID: 1}, {ShipmentID: 2}, {ShipmentID: 3},
	})
	assert.Equal(t, []int64{1, 3}, result.Successful)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, int64(2), result.Failed[0].Assignment.ShipmentID)
	assert.Equal(t, FailureDimensions, result.Failed[0].Kind)
}

func TestBulkGenerateLabel(t *testing.T) {
	client, _ := newTestClient(t, map[string]http.HandlerFunc{
		"POST /v1/external/courier/generate/label": func(w http.ResponseWriter, r *http.Request) {
			var req labelRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			if len(req.ShipmentID) == 1 && req.ShipmentID[0] == 99 {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"message":"AWB not assigned"}`))
				return
			}
			assert.Equal(t, []int64{1, 2}, req.ShipmentID)
			_, _ = w.Write([]byte(`{"label_created":1,"label_url":"https://cdn.example.com/label.pdf"}`))
		},
	})

	got := client.BulkGenerateLabel(context.Background(), []int64{1, 2})
	assert.True(t, got.Success)
	assert.Equal(t, "https://cdn.example.com/label.pdf", got.URL)

	got = client.GenerateLabel(context.Background(), 99)
	assert.False(t, got.Success)
	assert.Equal(t, "AWB not assigned", got.Error)

	got = client.BulkGenerateLabel(context.Background(), nil)
	assert.False(t, got.Success)
}

func TestSchedulePickup_FallsBackToTomorrow(t *testing.T) {
	var (
		mu    sync.Mutex
		dates []string
	)
	client, _ := newTestClient(t, map[string]http.HandlerFunc{
		"POST /v1/external/courier/generate/pickup": func(w http.ResponseWriter, r *http.Request) {
			var req pickupRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, []int64{7001}, req.ShipmentID)
			mu.Lock()
			dates = append(dates, req.PickupDate)
			first := len(dates) == 1
			mu.Unlock()
			if first {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"message":"Pickup cut-off time passed"}`))
				return
			}
			_, _ = w.Write([]byte(`{"pickup_status":1}`))
		},
	})
	client.now = func() time.Time { return time.Date(2026, 3, 31, 18, 0, 0, 0, time.Local) }

	got := client.SchedulePickup(context.Background(), 7001)
	assert.True(t, got.Success)
	assert.Equal(t, "2026-04-01", got.Date)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"2026-03-31", "2026-04-01"}, dates)
}

func TestSchedulePickup_BothFail(t *testing.T) {
	client, _ := newTestClient(t, map[string]http.HandlerFunc{
		"POST /v1/external/courier/generate/pickup": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"message":"Already in pickup queue"}`))
		},
	})

	got := client.SchedulePickup(context.Background(), 7001)
	assert.False(t, got.Success)
	assert.Equal(t, "Already in pickup queue", got.Error)
}

func TestClassifyFailure(t *testing.T) {
	tests := []struct {
		message string
		want    FailureKind
	}{
		{"Insufficient balance", FailureLowWallet},
		{"Please recharge your WALLET", FailureLowWallet},
		{"balance low and weight missing", FailureLowWallet},
		{"Invalid package dimension", FailureDimensions},
		{"Breadth must be greater than 0.5", FailureDimensions},
		{"Height is required", FailureDimensions},
		{"Courier not serviceable", FailureGeneric},
		{"", FailureGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyFailure(tt.message))
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	client := New(Config{})
	assert.Equal(t, DefaultBaseURL, client.baseURL)
	assert.Equal(t, DefaultMaxSearchPages, client.maxPages)
	assert.Equal(t, DefaultSearchPageSize, client.pageSize)
	assert.Equal(t, DefaultTimeout, client.httpClient.Timeout)
}

func ptr(v float64) *float64 {
	return &v
}
