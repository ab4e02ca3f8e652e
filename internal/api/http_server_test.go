package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"shareit/internal/config"
	"shareit/internal/database"
	"shareit/internal/domain"
	"shareit/internal/events"
	"shareit/internal/service"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2030, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, cfg config.APIConfig) *httptest.Server {
	t.Helper()
	logger := zerolog.Nop()

	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	clock := domain.FixedClock(testNow)
	dir := service.NewDirectory(db, db, &logger)
	services := Services{
		Bookings: service.NewBookingService(db, dir, events.NewEventBus(), clock, service.DateGuard{}, &logger),
		Items:    service.NewItemService(db, db, dir, clock, &logger),
		Users:    service.NewUserService(db, dir, &logger),
		Store:    db,
	}

	srv := NewHTTPServer(cfg, services, &logger)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

// call sends a JSON request; a zero userID omits the identity header.
func call(t *testing.T, ts *httptest.Server, method, path string, userID int64, body any) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, ts.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if userID != 0 {
		req.Header.Set(UserIDHeader, strconv.FormatInt(userID, 10))
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func createUser(t *testing.T, ts *httptest.Server, name string) int64 {
	t.Helper()
	resp, data := call(t, ts, http.MethodPost, "/users", 0, map[string]string{"name": name, "email": name + "@example.com"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))

	var u struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(data, &u))
	return u.ID
}

func createItem(t *testing.T, ts *httptest.Server, ownerID int64, name string) int64 {
	t.Helper()
	body := map[string]any{"name": name, "description": name + " for rent", "available": true}
	resp, data := call(t, ts, http.MethodPost, "/items", ownerID, body)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))

	var it struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(data, &it))
	return it.ID
}

func bookingBody(itemID int64, start, end time.Time) map[string]any {
	return map[string]any{
		"itemId": itemID,
		"start":  start.Format("2006-01-02T15:04:05"),
		"end":    end.Format("2006-01-02T15:04:05"),
	}
}

type bookingJSON struct {
	ID     int64     `json:"id"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Status string    `json:"status"`
	Booker struct {
		ID int64 `json:"id"`
	} `json:"booker"`
	Item struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	} `json:"item"`
}

func errorMessage(t *testing.T, data []byte) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(data, &body))
	return body["error"]
}

func TestBookingLifecycleHTTP(t *testing.T) {
	ts := newTestServer(t, config.APIConfig{})

	owner := createUser(t, ts, "owner")
	booker := createUser(t, ts, "booker")
	outsider := createUser(t, ts, "outsider")
	item := createItem(t, ts, owner, "ladder")

	start := testNow.Add(24 * time.Hour)
	resp, data := call(t, ts, http.MethodPost, "/bookings", booker, bookingBody(item, start, start.Add(2*time.Hour)))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))

	var created bookingJSON
	require.NoError(t, json.Unmarshal(data, &created))
	assert.Equal(t, "WAITING", created.Status)
	assert.Equal(t, booker, created.Booker.ID)
	assert.Equal(t, item, created.Item.ID)
	assert.Equal(t, "ladder", created.Item.Name)
	assert.True(t, start.Equal(created.Start))

	path := fmt.Sprintf("/bookings/%d", created.ID)

	resp, _ = call(t, ts, http.MethodPatch, path+"?approved=true", booker, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = call(t, ts, http.MethodGet, path, outsider, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, data = call(t, ts, http.MethodPatch, path+"?approved=true", owner, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	var approved bookingJSON
	require.NoError(t, json.Unmarshal(data, &approved))
	assert.Equal(t, "APPROVED", approved.Status)

	resp, data = call(t, ts, http.MethodPatch, path+"?approved=false", owner, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "booking status must be WAITING", errorMessage(t, data))

	for _, actor := range []int64{owner, booker} {
		resp, data = call(t, ts, http.MethodGet, path, actor, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var got bookingJSON
		require.NoError(t, json.Unmarshal(data, &got))
		assert.Equal(t, "APPROVED", got.Status)
	}

	resp, data = call(t, ts, http.MethodGet, "/bookings?state=FUTURE", booker, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []bookingJSON
	require.NoError(t, json.Unmarshal(data, &list))
	assert.Len(t, list, 1)

	resp, data = call(t, ts, http.MethodGet, "/bookings/owner", owner, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(data, &list))
	assert.Len(t, list, 1)

	resp, data = call(t, ts, http.MethodGet, "/bookings/owner?state=WAITING", owner, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(data, &list))
	assert.Empty(t, list)

	resp, data = call(t, ts, http.MethodGet, "/bookings?state=UNSUPPORTED_STATUS", booker, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, "[]", string(data))

	// tokens are matched exactly
	for _, state := range []string{"ALL%20", "%20ALL", "all"} {
		resp, data = call(t, ts, http.MethodGet, "/bookings?state="+state, booker, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode, state)
		assert.JSONEq(t, "[]", string(data), state)
	}
}

func TestBookingErrorsHTTP(t *testing.T) {
	ts := newTestServer(t, config.APIConfig{})

	owner := createUser(t, ts, "owner")
	booker := createUser(t, ts, "booker")
	item := createItem(t, ts, owner, "tent")
	start := testNow.Add(time.Hour)

	tests := []struct {
		name   string
		method string
		path   string
		userID int64
		body   any
		want   int
	}{
		{"missing identity", http.MethodPost, "/bookings", 0, bookingBody(item, start, start.Add(time.Hour)), http.StatusBadRequest},
		{"malformed json", http.MethodPost, "/bookings", booker, "{", http.StatusBadRequest},
		{"malformed timestamp", http.MethodPost, "/bookings", booker, map[string]any{"itemId": item, "start": "soon", "end": "later"}, http.StatusBadRequest},
		{"unknown item", http.MethodPost, "/bookings", booker, bookingBody(999, start, start.Add(time.Hour)), http.StatusNotFound},
		{"unknown booker", http.MethodPost, "/bookings", 999, bookingBody(item, start, start.Add(time.Hour)), http.StatusNotFound},
		{"equal dates", http.MethodPost, "/bookings", booker, bookingBody(item, start, start), http.StatusBadRequest},
		{"end before start", http.MethodPost, "/bookings", booker, bookingBody(item, start, start.Add(-time.Hour)), http.StatusBadRequest},
		{"missing booking", http.MethodGet, "/bookings/999", booker, nil, http.StatusNotFound},
		{"non numeric id", http.MethodGet, "/bookings/abc", booker, nil, http.StatusBadRequest},
		{"approved not bool", http.MethodPatch, "/bookings/1?approved=maybe", owner, nil, http.StatusBadRequest},
		{"list for unknown user", http.MethodGet, "/bookings", 999, nil, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, data := call(t, ts, tt.method, tt.path, tt.userID, tt.body)
			assert.Equal(t, tt.want, resp.StatusCode, string(data))
			assert.NotEmpty(t, errorMessage(t, data))
		})
	}
}

func TestUnavailableItemHTTP(t *testing.T) {
	ts := newTestServer(t, config.APIConfig{})

	owner := createUser(t, ts, "owner")
	booker := createUser(t, ts, "booker")
	item := createItem(t, ts, owner, "kayak")

	resp, _ := call(t, ts, http.MethodPatch, fmt.Sprintf("/items/%d", item), owner, map[string]any{"available": false})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	start := testNow.Add(time.Hour)
	resp, data := call(t, ts, http.MethodPost, "/bookings", booker, bookingBody(item, start, start.Add(time.Hour)))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, string(data))
}

func TestItemsHTTP(t *testing.T) {
	ts := newTestServer(t, config.APIConfig{})

	owner := createUser(t, ts, "owner")
	booker := createUser(t, ts, "booker")
	item := createItem(t, ts, owner, "drill")

	past := testNow.Add(-48 * time.Hour)
	future := testNow.Add(48 * time.Hour)
	for _, start := range []time.Time{past, future} {
		resp, data := call(t, ts, http.MethodPost, "/bookings", booker, bookingBody(item, start, start.Add(time.Hour)))
		require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	}

	type itemJSON struct {
		ID          int64      `json:"id"`
		Name        string     `json:"name"`
		LastBooking *time.Time `json:"lastBooking"`
		NextBooking *time.Time `json:"nextBooking"`
	}

	path := fmt.Sprintf("/items/%d", item)
	resp, data := call(t, ts, http.MethodGet, path, owner, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var ownerView itemJSON
	require.NoError(t, json.Unmarshal(data, &ownerView))
	require.NotNil(t, ownerView.LastBooking)
	require.NotNil(t, ownerView.NextBooking)
	assert.True(t, past.Add(time.Hour).Equal(*ownerView.LastBooking))
	assert.True(t, future.Equal(*ownerView.NextBooking))

	resp, data = call(t, ts, http.MethodGet, path, booker, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var bookerView itemJSON
	require.NoError(t, json.Unmarshal(data, &bookerView))
	assert.Nil(t, bookerView.LastBooking)
	assert.Nil(t, bookerView.NextBooking)

	resp, data = call(t, ts, http.MethodGet, "/items", owner, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var owned []itemJSON
	require.NoError(t, json.Unmarshal(data, &owned))
	require.Len(t, owned, 1)
	assert.NotNil(t, owned[0].NextBooking)

	resp, _ = call(t, ts, http.MethodPatch, path, booker, map[string]any{"name": "hijacked"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, data = call(t, ts, http.MethodGet, "/items/search?text=DRI", booker, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var found []itemJSON
	require.NoError(t, json.Unmarshal(data, &found))
	assert.Len(t, found, 1)

	resp, data = call(t, ts, http.MethodGet, "/items/search?text=", booker, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, "[]", string(data))
}

func TestUsersHTTP(t *testing.T) {
	ts := newTestServer(t, config.APIConfig{})

	id := createUser(t, ts, "ann")

	resp, data := call(t, ts, http.MethodPost, "/users", 0, map[string]string{"name": "other", "email": "ann@example.com"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode, string(data))

	resp, data = call(t, ts, http.MethodPatch, fmt.Sprintf("/users/%d", id), 0, map[string]string{"name": "Ann"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	assert.Contains(t, string(data), `"name":"Ann"`)
	assert.Contains(t, string(data), `"email":"ann@example.com"`)

	resp, _ = call(t, ts, http.MethodGet, "/users/999", 0, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestProbesAndRequestID(t *testing.T) {
	ts := newTestServer(t, config.APIConfig{})

	for _, path := range []string{"/healthz", "/readyz"} {
		resp, _ := call(t, ts, http.MethodGet, path, 0, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.NotEmpty(t, resp.Header.Get(RequestIDHeader))
	}

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/healthz", nil)
	require.NoError(t, err)
	req.Header.Set(RequestIDHeader, "req-42")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "req-42", resp.Header.Get(RequestIDHeader))
}
