package gateway

import (
	"testing"
	"time"

	"shareit/internal/domain"

	"github.com/stretchr/testify/assert"
)

var gatewayNow = time.Date(2030, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestValidator() *Validator {
	return NewValidator(domain.FixedClock(gatewayNow), 2*time.Second)
}

func TestValidateUserID(t *testing.T) {
	v := newTestValidator()

	id, err := v.UserID(" 7 ")
	assert.NoError(t, err)
	assert.Equal(t, int64(7), id)

	for _, raw := range []string{"", "0", "-3", "abc"} {
		_, err := v.UserID(raw)
		var verr *ValidationError
		assert.ErrorAs(t, err, &verr, raw)
	}
}

func TestValidateBooking(t *testing.T) {
	v := newTestValidator()

	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid", `{"itemId":1,"start":"2030-06-02T10:00:00","end":"2030-06-03T10:00:00"}`, false},
		{"start within tolerance", `{"itemId":1,"start":"2030-06-01T11:59:59","end":"2030-06-03T10:00:00"}`, false},
		{"missing item", `{"start":"2030-06-02T10:00:00","end":"2030-06-03T10:00:00"}`, true},
		{"zero item", `{"itemId":0,"start":"2030-06-02T10:00:00","end":"2030-06-03T10:00:00"}`, true},
		{"missing start", `{"itemId":1,"end":"2030-06-03T10:00:00"}`, true},
		{"missing end", `{"itemId":1,"start":"2030-06-02T10:00:00"}`, true},
		{"start in past", `{"itemId":1,"start":"2030-05-30T10:00:00","end":"2030-06-03T10:00:00"}`, true},
		{"end in past", `{"itemId":1,"start":"2030-06-02T10:00:00","end":"2030-05-31T10:00:00"}`, true},
		{"bad timestamp", `{"itemId":1,"start":"soon","end":"2030-06-03T10:00:00"}`, true},
		{"not json", `{`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Booking([]byte(tt.body))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateApprovedAndState(t *testing.T) {
	v := newTestValidator()

	assert.NoError(t, v.Approved("true"))
	assert.NoError(t, v.Approved("false"))
	assert.Error(t, v.Approved(""))
	assert.Error(t, v.Approved("yes please"))

	assert.NoError(t, v.State(""))
	for _, s := range []string{"ALL", "CURRENT", "PAST", "FUTURE", "WAITING", "REJECTED"} {
		assert.NoError(t, v.State(s))
	}
	err := v.State("UNSUPPORTED_STATUS")
	assert.EqualError(t, err, "Unknown state: UNSUPPORTED_STATUS")
}

func TestValidateUsersAndItems(t *testing.T) {
	v := newTestValidator()

	assert.NoError(t, v.NewUser([]byte(`{"name":"Ann","email":"ann@example.com"}`)))
	assert.Error(t, v.NewUser([]byte(`{"name":" ","email":"ann@example.com"}`)))
	assert.Error(t, v.NewUser([]byte(`{"name":"Ann","email":"ann.example.com"}`)))
	assert.Error(t, v.NewUser([]byte(`{"name":"Ann"}`)))

	assert.NoError(t, v.UserPatch([]byte(`{"name":"Ann"}`)))
	assert.NoError(t, v.UserPatch([]byte(`{}`)))
	assert.Error(t, v.UserPatch([]byte(`{"email":"@"}`)))

	assert.NoError(t, v.NewItem([]byte(`{"name":"Drill","description":"cordless","available":true}`)))
	assert.Error(t, v.NewItem([]byte(`{"name":"Drill","description":"cordless"}`)))
	assert.Error(t, v.NewItem([]byte(`{"name":"","description":"cordless","available":true}`)))
	assert.Error(t, v.NewItem([]byte(`{"name":"Drill","description":"  ","available":false}`)))

	assert.NoError(t, v.ItemPatch([]byte(`{"available":false}`)))
	assert.Error(t, v.ItemPatch([]byte(`[`)))
}

func TestValidateUserEmail(t *testing.T) {
	v := newTestValidator()

	tests := []struct {
		email   string
		wantErr bool
	}{
		{"ann@example.com", false},
		{"ann.lee+tools@mail.example.org", false},
		{"a@@b", true},
		{"a b@c", true},
		{"a@b@c", true},
		{"ann.example.com", true},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			body := `{"name":"Ann","email":"` + tt.email + `"}`
			err := v.NewUser([]byte(body))
			patchErr := v.UserPatch([]byte(`{"email":"` + tt.email + `"}`))
			if tt.wantErr {
				assert.EqualError(t, err, "email must be a valid address")
				assert.Error(t, patchErr)
			} else {
				assert.NoError(t, err)
				assert.NoError(t, patchErr)
			}
		})
	}
}

func TestValidateFieldMessages(t *testing.T) {
	v := newTestValidator()

	assert.EqualError(t, v.Booking([]byte(`{"start":"2030-06-02T10:00:00","end":"2030-06-03T10:00:00"}`)), "itemId is required")
	assert.EqualError(t, v.Booking([]byte(`{"itemId":-4,"start":"2030-06-02T10:00:00","end":"2030-06-03T10:00:00"}`)), "itemId must be a positive integer")
	assert.EqualError(t, v.Booking([]byte(`{"itemId":1,"end":"2030-06-03T10:00:00"}`)), "start is required")
	assert.EqualError(t, v.NewUser([]byte(`{"email":"ann@example.com"}`)), "name is required")
	assert.EqualError(t, v.NewUser([]byte(`{"name":"  ","email":"ann@example.com"}`)), "name must not be blank")
	assert.EqualError(t, v.NewItem([]byte(`{"name":"Drill","description":"cordless"}`)), "available is required")
	assert.EqualError(t, v.NewItem([]byte(`{"name":"Drill","description":" ","available":true}`)), "description must not be blank")
	assert.EqualError(t, v.UserPatch([]byte(`{"name":""}`)), "name must not be blank")
}
