package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campushub/campushub/internal/bulk"
	"github.com/campushub/campushub/internal/calendar"
	"github.com/campushub/campushub/internal/event"
	"github.com/campushub/campushub/internal/filter"
	"github.com/campushub/campushub/internal/logger"
	"github.com/campushub/campushub/internal/notifier"
	"github.com/campushub/campushub/internal/store"
	"github.com/campushub/campushub/internal/validate"
)

const (
	// DefaultImportLimit caps the CSV bytes one import request may carry
	DefaultImportLimit = 5 << 20

	// room for multipart boundaries and headers around the file
	multipartOverhead = 64 << 10
)

var errImportTooLarge = errors.New("import body too large")

// EventStore is the store surface the handlers use
type EventStore interface {
	List(ctx context.Context) ([]*event.Event, error)
	GetByID(ctx context.Context, id string) (*event.Event, error)
	Create(ctx context.Context, payload event.NewEventPayload) (*event.Event, error)
	Update(ctx context.Context, evt *event.Event) error
	Delete(ctx context.Context, id string) (bool, error)
	Register(ctx context.Context, eventID, name, email string) (*event.Attendee, error)
}

// Handler serves the event endpoints
type Handler struct {
	store     EventStore
	notifier  notifier.Notifier
	announcer notifier.Announcer
	metrics   *logger.Metrics
	log       *logger.Logger
	loc       *time.Location
	maxImport int64
}

// Option configures a Handler
type Option func(*Handler)

// WithNotifier sets who hears about registrations
func WithNotifier(n notifier.Notifier) Option {
	return func(h *Handler) {
		h.notifier = n
	}
}

// WithAnnouncer sets who hears about new events
func WithAnnouncer(a notifier.Announcer) Option {
	return func(h *Handler) {
		h.announcer = a
	}
}

// WithMetrics sets the tracker served at /v1/metrics
func WithMetrics(m *logger.Metrics) Option {
	return func(h *Handler) {
		h.metrics = m
	}
}

// WithLogger sets the logger
func WithLogger(l *logger.Logger) Option {
	return func(h *Handler) {
		h.log = l
	}
}

// WithLocation sets the zone event dates and times are read in
func WithLocation(loc *time.Location) Option {
	return func(h *Handler) {
		h.loc = loc
	}
}

// WithImportLimit sets the largest CSV upload accepted, in bytes
func WithImportLimit(n int64) Option {
	return func(h *Handler) {
		h.maxImport = n
	}
}

// NewHandler creates a Handler over s
func NewHandler(s EventStore, opts ...Option) *Handler {
	h := &Handler{
		store:     s,
		notifier:  notifier.Nop{},
		announcer: notifier.Nop{},
		metrics:   logger.NewMetrics(),
		log:       logger.Default(),
		loc:       time.Local,
		maxImport: DefaultImportLimit,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) storeError(c *gin.Context, err error, op string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		EventNotFoundError(c)
	case errors.Is(err, store.ErrDuplicateRegistration):
		RegistrationDuplicateError(c)
	default:
		h.log.Error("store operation failed", logger.Fields{"op": op}, err)
		InternalServerError(c)
	}
}

func (h *Handler) ListEvents(c *gin.Context) {
	order, err := event.ParseSortOrder(c.Query("sort"))
	if err != nil {
		BadResponseError(c, FieldIncorrect, err.Error())
		return
	}

	f, err := listFilter(c)
	if err != nil {
		BadResponseError(c, FieldIncorrect, err.Error())
		return
	}

	events, err := h.store.List(c.Request.Context())
	if err != nil {
		h.storeError(c, err, "list")
		return
	}

	events = f.Apply(events)
	event.Sort(events, order)
	SuccessResponse(c, events)
}

// listFilter reads q, dates, weekends and location query parameters.
// location may repeat.
func listFilter(c *gin.Context) (*filter.Filter, error) {
	f := &filter.Filter{
		Query:     c.Query("q"),
		Locations: c.QueryArray("location"),
	}
	if dates := c.Query("dates"); dates != "" {
		from, to, err := filter.ParseDateRange(dates)
		if err != nil {
			return nil, err
		}
		f.DateFrom, f.DateTo = from, to
	}
	if weekends := c.Query("weekends"); weekends != "" {
		v, err := strconv.ParseBool(weekends)
		if err != nil {
			return nil, fmt.Errorf("invalid weekends value %q", weekends)
		}
		f.WeekendsOnly = v
	}
	return f, nil
}

func (h *Handler) GetEvent(c *gin.Context) {
	evt, err := h.store.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.storeError(c, err, "get")
		return
	}
	SuccessResponse(c, evt)
}

func (h *Handler) CreateEvent(c *gin.Context) {
	var req event.NewEventPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		BadResponseError(c, FieldBadFormat, "Invalid JSON format")
		return
	}

	ctx := c.Request.Context()
	if verr := validate.Payload(ctx, req); verr != nil {
		BadResponseError(c, FieldIncorrect, verr.Error())
		return
	}

	evt, err := h.store.Create(ctx, req)
	if err != nil {
		h.storeError(c, err, "create")
		return
	}

	if err := h.announcer.AnnounceEvent(ctx, evt); err != nil {
		h.metrics.IncrCounter("notify.failed")
		h.log.Warn("event announcement failed", logger.Fields{"event_id": evt.ID, "error": err.Error()})
	}

	SuccessCreatedResponse(c, evt)
}

// UpdateEvent replaces the whole record. Attendees missing from the body are dropped.
func (h *Handler) UpdateEvent(c *gin.Context) {
	var req event.Event
	if err := c.ShouldBindJSON(&req); err != nil {
		BadResponseError(c, FieldBadFormat, "Invalid JSON format")
		return
	}

	id := c.Param("id")
	if req.ID != "" && req.ID != id {
		FieldBadFormatError(c, "id")
		return
	}
	req.ID = id

	ctx := c.Request.Context()
	if verr := validate.Event(ctx, &req); verr != nil {
		BadResponseError(c, FieldIncorrect, verr.Error())
		return
	}

	if err := h.store.Update(ctx, &req); err != nil {
		h.storeError(c, err, "update")
		return
	}

	if req.Attendees == nil {
		req.Attendees = []event.Attendee{}
	}
	SuccessResponse(c, &req)
}

func (h *Handler) DeleteEvent(c *gin.Context) {
	id := c.Param("id")

	deleted, err := h.store.Delete(c.Request.Context(), id)
	if err != nil {
		h.storeError(c, err, "delete")
		return
	}
	if !deleted {
		EventNotFoundError(c)
		return
	}

	SuccessResponse(c, DeleteResponse{ID: id, Deleted: true})
}

func (h *Handler) Register(c *gin.Context) {
	var req RegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadResponseError(c, FieldBadFormat, "Invalid JSON format")
		return
	}

	ctx := c.Request.Context()
	if verr := validate.Registration(ctx, req.Name, req.Email); verr != nil {
		BadResponseError(c, FieldIncorrect, verr.Error())
		return
	}

	eventID := c.Param("id")
	attendee, err := h.store.Register(ctx, eventID, req.Name, req.Email)
	if err != nil {
		h.storeError(c, err, "register")
		return
	}

	h.notifyRegistration(ctx, eventID, attendee)
	SuccessCreatedResponse(c, attendee)
}

func (h *Handler) notifyRegistration(ctx context.Context, eventID string, attendee *event.Attendee) {
	evt, err := h.store.GetByID(ctx, eventID)
	if err == nil {
		err = h.notifier.NotifyRegistration(ctx, evt, attendee)
	}
	if err != nil {
		h.metrics.IncrCounter("notify.failed")
		h.log.Warn("registration notice failed", logger.Fields{"event_id": eventID, "error": err.Error()})
	}
}

func (h *Handler) EventCalendar(c *gin.Context) {
	evt, err := h.store.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.storeError(c, err, "ics")
		return
	}

	var buf bytes.Buffer
	if err := calendar.Encode(&buf, evt, h.loc); err != nil {
		BadResponseError(c, FieldIncorrect, "Event has an invalid date or time")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, calendar.Filename(evt)))
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", buf.Bytes())
}

func (h *Handler) ExportCSV(c *gin.Context) {
	var buf bytes.Buffer
	if _, err := bulk.Export(c.Request.Context(), h.store, &buf); err != nil {
		h.log.Error("csv export failed", nil, err)
		InternalServerError(c)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="events.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// ImportCSV accepts either a raw CSV body or a multipart form with a "file" field
func (h *Handler) ImportCSV(c *gin.Context) {
	data, err := h.importBody(c)
	if errors.Is(err, errImportTooLarge) {
		h.log.Warn("csv import rejected", logger.Fields{"limit": h.maxImport})
		PayloadTooLargeError(c, h.maxImport)
		return
	}
	if err != nil {
		BadResponseError(c, FieldBadFormat, err.Error())
		return
	}

	result, err := bulk.Import(c.Request.Context(), h.store, bytes.NewReader(data))
	if errors.Is(err, bulk.ErrMissingColumn) {
		BadResponseError(c, FieldIncorrect, err.Error())
		return
	}

	resp := ImportResponse{IDs: []string{}, Skipped: []string{}}
	if result != nil {
		resp.Created = len(result.Created)
		resp.Skipped = result.Failures()
		for _, evt := range result.Created {
			resp.IDs = append(resp.IDs, evt.ID)
		}
	}

	if err != nil {
		h.log.Error("csv import stopped", logger.Fields{"created": resp.Created}, err)
		InternalServerError(c)
		return
	}

	h.log.Info("csv import finished", logger.Fields{"created": resp.Created, "skipped": len(resp.Skipped)})
	SuccessResponse(c, resp)
}

// importBody reads the whole upload. Anything past maxImport is rejected
// rather than cut, so a partial last row never reaches the importer.
func (h *Handler) importBody(c *gin.Context) ([]byte, error) {
	var body io.ReadCloser = c.Request.Body

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxImport+multipartOverhead)
		fh, err := c.FormFile("file")
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return nil, errImportTooLarge
			}
			return nil, errors.New("field 'file' is required")
		}
		if fh.Size > h.maxImport {
			return nil, errImportTooLarge
		}
		if body, err = fh.Open(); err != nil {
			return nil, fmt.Errorf("opening upload: %w", err)
		}
	}
	defer body.Close()

	data, err := io.ReadAll(io.LimitReader(body, h.maxImport+1))
	if err != nil {
		return nil, fmt.Errorf("reading upload: %w", err)
	}
	if int64(len(data)) > h.maxImport {
		return nil, errImportTooLarge
	}
	return data, nil
}

func (h *Handler) Metrics(c *gin.Context) {
	SuccessResponse(c, h.metrics.GetSnapshot())
}

func (h *Handler) Health(c *gin.Context) {
	SuccessResponse(c, gin.H{"healthy": true})
}
