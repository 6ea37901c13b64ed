package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"innotour.org/internal/auth"
	"innotour.org/internal/scheduling"
)

func newSchedulingTestServer(t *testing.T) (*httptest.Server, sqlmock.Sqlmock, *auth.Codec) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	codec, err := auth.NewCodec("test-secret")
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	svc, err := scheduling.NewService(scheduling.NewPGStore(db))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	api := NewSchedulingAPI(svc, NewGate(auth.NewClaimsVerifier(codec)), "internal-key", "test")
	srv := httptest.NewServer(api.Router())
	t.Cleanup(srv.Close)
	return srv, mock, codec
}

func mintToken(t *testing.T, codec *auth.Codec, user *auth.User) string {
	t.Helper()
	token, _, err := codec.Encode(user, auth.ScopeAccess, time.Minute)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return token
}

func TestSchedulingRoleEnforcement(t *testing.T) {
	srv, mock, codec := newSchedulingTestServer(t)
	client := srv.Client()

	agency := int64(5)
	managerToken := mintToken(t, codec, &auth.User{ID: 2, Email: "m@a.example", Role: auth.RoleAgencyManager, AgencyID: &agency})
	adminToken := mintToken(t, codec, &auth.User{ID: 1, Email: "a@c.example", Role: auth.RoleCenterAdmin})

	// Manager cannot register agencies.
	resp := postJSON(t, client, srv.URL+"/agency/register",
		`{"name":"Wonder Tours","agency_type":"outer"}`,
		map[string]string{"Authorization": "Bearer " + managerToken})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("manager register agency: status %d, want 403", resp.StatusCode)
	}
	resp.Body.Close()

	// Admin can.
	mock.ExpectQuery("insert into agencies").
		WithArgs("Wonder Tours", scheduling.AgencyOuter).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(5), time.Now()))
	resp = postJSON(t, client, srv.URL+"/agency/register",
		`{"name":"Wonder Tours","agency_type":"outer"}`,
		map[string]string{"Authorization": "Bearer " + adminToken})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("admin register agency: status %d, want 201", resp.StatusCode)
	}
	resp.Body.Close()

	// Admin cannot query slot info; that surface is manager-only.
	resp = postJSON(t, client, srv.URL+"/time_slot/get_info",
		`{"day":"2026-03-02"}`,
		map[string]string{"Authorization": "Bearer " + adminToken})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("admin slot info: status %d, want 403", resp.StatusCode)
	}
	resp.Body.Close()

	// No token at all.
	resp = postJSON(t, client, srv.URL+"/agency/register",
		`{"name":"X","agency_type":"outer"}`, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("anonymous register agency: status %d, want 401", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestSlotInfoAndBooking(t *testing.T) {
	srv, mock, codec := newSchedulingTestServer(t)
	client := srv.Client()

	agency := int64(5)
	managerToken := mintToken(t, codec, &auth.User{ID: 2, Email: "m@a.example", Role: auth.RoleAgencyManager, AgencyID: &agency})

	mock.ExpectQuery("select t.id, to_char").
		WithArgs("2026-03-02").
		WillReturnRows(sqlmock.NewRows([]string{"id", "slot_time", "capacity"}).
			AddRow(int64(1), "07:30", 40).
			AddRow(int64(2), "08:00", 0))

	resp := postJSON(t, client, srv.URL+"/time_slot/get_info",
		`{"day":"2026-03-02"}`,
		map[string]string{"Authorization": "Bearer " + managerToken})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("slot info: status %d", resp.StatusCode)
	}
	var info struct {
		Slots []scheduling.SlotCapacity `json:"slots"`
	}
	decodeBody(t, resp, &info)
	if len(info.Slots) != 2 || info.Slots[0].SlotTime != "07:30" || info.Slots[1].Capacity != 0 {
		t.Fatalf("unexpected slot info: %+v", info)
	}

	// Booking rides on the agency id from the token claims.
	mock.ExpectBegin()
	mock.ExpectQuery("select c.capacity").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"capacity"}).AddRow(40))
	mock.ExpectQuery("select coalesce").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"booked"}).AddRow(0))
	mock.ExpectQuery("insert into bookings").
		WithArgs(int64(1), agency, 10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(7), time.Now()))
	mock.ExpectCommit()

	resp = postJSON(t, client, srv.URL+"/time_slot/book",
		`{"time_slot_id":1,"participants_count":10}`,
		map[string]string{"Authorization": "Bearer " + managerToken})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("book: status %d", resp.StatusCode)
	}
	var booking scheduling.Booking
	decodeBody(t, resp, &booking)
	if booking.AgencyID != agency || booking.ParticipantsCount != 10 {
		t.Fatalf("unexpected booking: %+v", booking)
	}

	// A full slot is a conflict.
	mock.ExpectBegin()
	mock.ExpectQuery("select c.capacity").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"capacity"}).AddRow(40))
	mock.ExpectQuery("select coalesce").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"booked"}).AddRow(10))
	mock.ExpectRollback()

	resp = postJSON(t, client, srv.URL+"/time_slot/book",
		`{"time_slot_id":1,"participants_count":100}`,
		map[string]string{"Authorization": "Bearer " + managerToken})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("overbook: status %d, want 409", resp.StatusCode)
	}
	var body errorBody
	decodeBody(t, resp, &body)
	if body.Error != "slot_full" {
		t.Fatalf("unexpected error code: %s", body.Error)
	}
}

func TestInternalAgencyLookup(t *testing.T) {
	srv, mock, _ := newSchedulingTestServer(t)
	client := srv.Client()

	// Missing key.
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/agency/get?id=5", nil)
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("get agency: %v", err)
	}
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("missing internal key: status %d, want 403", resp.StatusCode)
	}
	resp.Body.Close()

	// Correct key.
	mock.ExpectQuery("select id, name, agency_type").
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "agency_type", "created_at"}).
			AddRow(int64(5), "Wonder Tours", "outer", time.Now()))

	req, _ = http.NewRequest(http.MethodGet, srv.URL+"/agency/get?id=5", nil)
	req.Header.Set("X-Internal-Token", "internal-key")
	resp, err = client.Do(req)
	if err != nil {
		t.Fatalf("get agency: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("internal lookup: status %d", resp.StatusCode)
	}
	var agency scheduling.Agency
	if err := json.NewDecoder(resp.Body).Decode(&agency); err != nil {
		t.Fatalf("decode agency: %v", err)
	}
	resp.Body.Close()
	if agency.ID != 5 || agency.Type != scheduling.AgencyOuter {
		t.Fatalf("unexpected agency: %+v", agency)
	}
}
