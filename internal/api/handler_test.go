package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushub/campushub/internal/event"
	"github.com/campushub/campushub/internal/logger"
	"github.com/campushub/campushub/internal/storage"
	"github.com/campushub/campushub/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Status string          `json:"status"`
	Error  *Error          `json:"error"`
	Data   json.RawMessage `json:"data"`
}

type recordingNotifier struct {
	registrations []string
	announced     []string
	err           error
}

func (r *recordingNotifier) NotifyRegistration(ctx context.Context, evt *event.Event, attendee *event.Attendee) error {
	r.registrations = append(r.registrations, evt.ID+"/"+attendee.Email)
	return r.err
}

func (r *recordingNotifier) AnnounceEvent(ctx context.Context, evt *event.Event) error {
	r.announced = append(r.announced, evt.ID)
	return r.err
}

type testServer struct {
	router   *gin.Engine
	store    *store.EventStore
	blob     *storage.MemoryBlob
	notifier *recordingNotifier
	metrics  *logger.Metrics
}

func newTestServer(t *testing.T, extra ...Option) *testServer {
	t.Helper()

	blob := storage.NewMemoryBlob()
	metrics := logger.NewMetrics()
	s := store.New(blob, store.WithLogger(logger.Nop()), store.WithMetrics(metrics))
	n := &recordingNotifier{}

	h := NewHandler(s,
		WithLogger(logger.Nop()),
		WithMetrics(metrics),
		WithNotifier(n),
		WithAnnouncer(n),
		WithLocation(time.UTC),
	)
	for _, opt := range extra {
		opt(h)
	}

	return &testServer{
		router:   NewRouter(h),
		store:    s,
		blob:     blob,
		notifier: n,
		metrics:  metrics,
	}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func techFestPayload() event.NewEventPayload {
	return event.NewEventPayload{
		Name:        "Tech Fest",
		Date:        "2025-03-01",
		Time:        "14:00",
		Location:    "Hall A",
		Description: "A day of talks and demos",
		Organizers:  "CS Dept",
	}
}

func (ts *testServer) seed(t *testing.T, p event.NewEventPayload) *event.Event {
	t.Helper()
	evt, err := ts.store.Create(context.Background(), p)
	require.NoError(t, err)
	return evt
}

func TestCreateEvent(t *testing.T) {
	ts := newTestServer(t)

	rec, env := ts.do(t, http.MethodPost, "/v1/events", techFestPayload())
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "ok", env.Status)

	var created event.Event
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Tech Fest", created.Name)
	assert.NotNil(t, created.Attendees)
	assert.Empty(t, created.Attendees)
	assert.Equal(t, []string{created.ID}, ts.notifier.announced)
	assert.Contains(t, rec.Body.String(), `"attendees":[]`)
}

func TestCreateEventRejectsBadInput(t *testing.T) {
	short := techFestPayload()
	short.Description = "short"

	tests := []struct {
		name     string
		body     any
		wantCode string
	}{
		{name: "malformed json", body: "{", wantCode: FieldBadFormat},
		{name: "short description", body: short, wantCode: FieldIncorrect},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)

			rec, env := ts.do(t, http.MethodPost, "/v1/events", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.wantCode, env.Error.Code)
			assert.Nil(t, ts.blob.Bytes())
		})
	}
}

func TestListEvents(t *testing.T) {
	ts := newTestServer(t)

	later := techFestPayload()
	later.Name = "Robotics Expo"
	later.Date = "2025-04-12"
	ts.seed(t, later)
	ts.seed(t, techFestPayload())

	tests := []struct {
		query string
		want  []string
	}{
		{query: "", want: []string{"Robotics Expo", "Tech Fest"}},
		{query: "?sort=date", want: []string{"Tech Fest", "Robotics Expo"}},
		{query: "?sort=name", want: []string{"Robotics Expo", "Tech Fest"}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec, env := ts.do(t, http.MethodGet, "/v1/events"+tt.query, nil)
			require.Equal(t, http.StatusOK, rec.Code)

			var events []event.Event
			require.NoError(t, json.Unmarshal(env.Data, &events))
			require.Len(t, events, len(tt.want))
			for i, name := range tt.want {
				assert.Equal(t, name, events[i].Name)
			}
		})
	}

	rec, env := ts.do(t, http.MethodGet, "/v1/events?sort=attendees", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, FieldIncorrect, env.Error.Code)
}

func TestListEventsEmpty(t *testing.T) {
	ts := newTestServer(t)

	rec, _ := ts.do(t, http.MethodGet, "/v1/events", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","data":[]}`, rec.Body.String())
}

func TestListEventsFiltered(t *testing.T) {
	ts := newTestServer(t)

	expo := techFestPayload()
	expo.Name = "Robotics Expo"
	expo.Date = "2025-04-12"
	expo.Location = "Engineering Lab"
	ts.seed(t, expo)

	talk := techFestPayload()
	talk.Name = "Guest Lecture"
	talk.Date = "2025-04-15"
	talk.Organizers = "Robotics Society"
	ts.seed(t, talk)

	ts.seed(t, techFestPayload())

	tests := []struct {
		query string
		want  []string
	}{
		{query: "?q=robotics", want: []string{"Robotics Expo", "Guest Lecture"}},
		{query: "?q=LAB", want: []string{"Robotics Expo"}},
		{query: "?dates=2025-04-01..2025-04-30&sort=date", want: []string{"Robotics Expo", "Guest Lecture"}},
		{query: "?weekends=true&sort=date", want: []string{"Tech Fest", "Robotics Expo"}},
		{query: "?location=hall&location=nowhere", want: []string{"Guest Lecture", "Tech Fest"}},
		{query: "?q=nothing-matches", want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec, env := ts.do(t, http.MethodGet, "/v1/events"+tt.query, nil)
			require.Equal(t, http.StatusOK, rec.Code)

			var events []event.Event
			require.NoError(t, json.Unmarshal(env.Data, &events))
			names := make([]string, 0, len(events))
			for _, e := range events {
				names = append(names, e.Name)
			}
			assert.Equal(t, tt.want, names)
		})
	}

	for _, bad := range []string{"?dates=someday", "?weekends=maybe"} {
		rec, env := ts.do(t, http.MethodGet, "/v1/events"+bad, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, bad)
		assert.Equal(t, FieldIncorrect, env.Error.Code, bad)
	}
}

func TestGetEvent(t *testing.T) {
	ts := newTestServer(t)
	evt := ts.seed(t, techFestPayload())

	rec, env := ts.do(t, http.MethodGet, "/v1/events/"+evt.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got event.Event
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, evt.ID, got.ID)

	rec, env = ts.do(t, http.MethodGet, "/v1/events/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, EventNotFound, env.Error.Code)
}

func TestUpdateEvent(t *testing.T) {
	ts := newTestServer(t)
	evt := ts.seed(t, techFestPayload())
	_, err := ts.store.Register(context.Background(), evt.ID, "Jane Doe", "jane@x.com")
	require.NoError(t, err)

	current, err := ts.store.GetByID(context.Background(), evt.ID)
	require.NoError(t, err)
	current.Name = "Tech Fest 2025"

	rec, _ := ts.do(t, http.MethodPut, "/v1/events/"+evt.ID, current)
	require.Equal(t, http.StatusOK, rec.Code)

	got, err := ts.store.GetByID(context.Background(), evt.ID)
	require.NoError(t, err)
	assert.Equal(t, "Tech Fest 2025", got.Name)
	assert.Len(t, got.Attendees, 1)

	t.Run("body without attendees drops them", func(t *testing.T) {
		body := map[string]string{
			"name":        "Tech Fest 2025",
			"date":        "2025-03-01",
			"time":        "14:00",
			"location":    "Hall A",
			"description": "A day of talks and demos",
			"organizers":  "CS Dept",
		}
		rec, _ := ts.do(t, http.MethodPut, "/v1/events/"+evt.ID, body)
		require.Equal(t, http.StatusOK, rec.Code)

		got, err := ts.store.GetByID(context.Background(), evt.ID)
		require.NoError(t, err)
		assert.Empty(t, got.Attendees)
	})

	t.Run("unknown id", func(t *testing.T) {
		missing := current.Clone()
		missing.ID = ""
		rec, env := ts.do(t, http.MethodPut, "/v1/events/missing", missing)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, EventNotFound, env.Error.Code)
	})

	t.Run("repeated attendee email", func(t *testing.T) {
		before := ts.blob.Bytes()

		dup := current.Clone()
		dup.Attendees = []event.Attendee{
			{ID: "a-1", Name: "Jane Doe", Email: "jane@x.com"},
			{ID: "a-2", Name: "Jane Again", Email: "jane@x.com"},
		}
		rec, env := ts.do(t, http.MethodPut, "/v1/events/"+evt.ID, dup)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		require.NotNil(t, env.Error)
		assert.Equal(t, FieldIncorrect, env.Error.Code)
		assert.Equal(t, before, ts.blob.Bytes())
	})

	t.Run("attendee without id", func(t *testing.T) {
		noID := current.Clone()
		noID.Attendees = []event.Attendee{{Name: "Jane Doe", Email: "jane@x.com"}}
		rec, env := ts.do(t, http.MethodPut, "/v1/events/"+evt.ID, noID)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		require.NotNil(t, env.Error)
		assert.Equal(t, FieldIncorrect, env.Error.Code)
	})

	t.Run("mismatched id", func(t *testing.T) {
		rec, env := ts.do(t, http.MethodPut, "/v1/events/other", current)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, FieldBadFormat, env.Error.Code)
	})
}

func TestDeleteEvent(t *testing.T) {
	ts := newTestServer(t)
	evt := ts.seed(t, techFestPayload())

	rec, env := ts.do(t, http.MethodDelete, "/v1/events/"+evt.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":"`+evt.ID+`","deleted":true}`, string(env.Data))

	rec, env = ts.do(t, http.MethodDelete, "/v1/events/"+evt.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, EventNotFound, env.Error.Code)
}

func TestRegister(t *testing.T) {
	ts := newTestServer(t)
	evt := ts.seed(t, techFestPayload())
	path := "/v1/events/" + evt.ID + "/register"

	rec, env := ts.do(t, http.MethodPost, path, RegistrationRequest{Name: "Jane Doe", Email: "jane@x.com"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var attendee event.Attendee
	require.NoError(t, json.Unmarshal(env.Data, &attendee))
	assert.NotEmpty(t, attendee.ID)
	assert.Equal(t, "jane@x.com", attendee.Email)
	assert.Equal(t, []string{evt.ID + "/jane@x.com"}, ts.notifier.registrations)

	rec, env = ts.do(t, http.MethodPost, path, RegistrationRequest{Name: "Jane Doe", Email: "jane@x.com"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, RegistrationDuplicate, env.Error.Code)

	rec, env = ts.do(t, http.MethodPost, path, RegistrationRequest{Name: "Jane Doe", Email: "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, FieldIncorrect, env.Error.Code)

	rec, env = ts.do(t, http.MethodPost, "/v1/events/missing/register", RegistrationRequest{Name: "Jane Doe", Email: "jane@x.com"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, EventNotFound, env.Error.Code)

	got, err := ts.store.GetByID(context.Background(), evt.ID)
	require.NoError(t, err)
	assert.Len(t, got.Attendees, 1)
}

func TestRegisterNotifyFailureStillSucceeds(t *testing.T) {
	ts := newTestServer(t)
	ts.notifier.err = errors.New("broker down")
	evt := ts.seed(t, techFestPayload())

	rec, _ := ts.do(t, http.MethodPost, "/v1/events/"+evt.ID+"/register", RegistrationRequest{Name: "Jane Doe", Email: "jane@x.com"})
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, int64(1), ts.metrics.Counter("notify.failed"))
}

func TestWriteFailureIsInternalError(t *testing.T) {
	ts := newTestServer(t)
	evt := ts.seed(t, techFestPayload())
	ts.blob.FailSaves(errors.New("disk full"))

	rec, env := ts.do(t, http.MethodPost, "/v1/events/"+evt.ID+"/register", RegistrationRequest{Name: "Jane Doe", Email: "jane@x.com"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, ServiceUnavailable, env.Error.Code)
	assert.Empty(t, ts.notifier.registrations)
}

func TestEventCalendar(t *testing.T) {
	ts := newTestServer(t)
	evt := ts.seed(t, techFestPayload())

	rec, _ := ts.do(t, http.MethodGet, "/v1/events/"+evt.ID+"/ics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/calendar; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="tech_fest.ics"`, rec.Header().Get("Content-Disposition"))
	assert.Contains(t, rec.Body.String(), "UID:"+evt.ID+"@campushub.events")
	assert.Contains(t, rec.Body.String(), "DTSTART:20250301T140000Z")
}

func TestExportCSV(t *testing.T) {
	ts := newTestServer(t)
	ts.seed(t, techFestPayload())

	rec, _ := ts.do(t, http.MethodGet, "/v1/export.csv", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "id,name,date,time,location,description,organizers,keywords,attendees\n"))
}

func TestImportCSV(t *testing.T) {
	csvBody := "name,date,time,location,description,organizers\n" +
		"Tech Fest,2025-03-01,14:00,Hall A,A day of talks and demos,CS Dept\n" +
		"X,2025-03-01,14:00,Hall A,A day of talks and demos,CS Dept\n"

	t.Run("raw body", func(t *testing.T) {
		ts := newTestServer(t)

		req := httptest.NewRequest(http.MethodPost, "/v1/import", strings.NewReader(csvBody))
		req.Header.Set("Content-Type", "text/csv")
		rec := httptest.NewRecorder()
		ts.router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var env envelope
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
		var resp ImportResponse
		require.NoError(t, json.Unmarshal(env.Data, &resp))
		assert.Equal(t, 1, resp.Created)
		assert.Len(t, resp.IDs, 1)
		require.Len(t, resp.Skipped, 1)
		assert.True(t, strings.HasPrefix(resp.Skipped[0], "line 3: "))
	})

	t.Run("multipart", func(t *testing.T) {
		ts := newTestServer(t)

		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, err := mw.CreateFormFile("file", "events.csv")
		require.NoError(t, err)
		_, err = fw.Write([]byte(csvBody))
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/v1/import", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		rec := httptest.NewRecorder()
		ts.router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		events, err := ts.store.List(context.Background())
		require.NoError(t, err)
		assert.Len(t, events, 1)
	})

	t.Run("missing column", func(t *testing.T) {
		ts := newTestServer(t)

		rec, env := ts.do(t, http.MethodPost, "/v1/import", "name,date\n")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, FieldIncorrect, env.Error.Code)
	})
}

func TestImportCSVRejectsOversizedUpload(t *testing.T) {
	header := "name,date,time,location,description,organizers\n"
	first := "Tech Fest,2025-03-01,14:00,Hall A,A day of talks and demos,CS Dept\n"
	last := "Last Event,2025-03-02,10:00,Hall B,Closing talks and demos,Computer Science Department\n"
	body := header + first + last
	// the cut would land inside the organizers of the last row
	limit := int64(len(body) - 12)

	t.Run("raw body", func(t *testing.T) {
		ts := newTestServer(t, WithImportLimit(limit))

		req := httptest.NewRequest(http.MethodPost, "/v1/import", strings.NewReader(body))
		req.Header.Set("Content-Type", "text/csv")
		rec := httptest.NewRecorder()
		ts.router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
		var env envelope
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
		require.NotNil(t, env.Error)
		assert.Equal(t, PayloadTooLarge, env.Error.Code)
		assert.Nil(t, ts.blob.Bytes())
	})

	t.Run("multipart", func(t *testing.T) {
		ts := newTestServer(t, WithImportLimit(limit))

		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, err := mw.CreateFormFile("file", "events.csv")
		require.NoError(t, err)
		_, err = fw.Write([]byte(body))
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/v1/import", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		rec := httptest.NewRecorder()
		ts.router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
		assert.Nil(t, ts.blob.Bytes())
	})

	t.Run("exactly at the limit", func(t *testing.T) {
		ts := newTestServer(t, WithImportLimit(int64(len(body))))

		req := httptest.NewRequest(http.MethodPost, "/v1/import", strings.NewReader(body))
		req.Header.Set("Content-Type", "text/csv")
		rec := httptest.NewRecorder()
		ts.router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		events, err := ts.store.List(context.Background())
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, "Computer Science Department", events[1].Organizers)
	})
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodPost, "/v1/events", techFestPayload())

	rec, env := ts.do(t, http.MethodGet, "/v1/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var snap logger.Snapshot
	require.NoError(t, json.Unmarshal(env.Data, &snap))
	assert.Equal(t, int64(1), snap.Counters["store.create"])
	assert.Contains(t, snap.Timings, "http.POST")
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	rec, _ := ts.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
