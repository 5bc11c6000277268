package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"parcel-backend/internal/apperr"
	"parcel-backend/internal/middleware"
	"parcel-backend/internal/models"
	"parcel-backend/internal/timeutil"
	"parcel-backend/pkg/utils"

	"github.com/gorilla/mux"
)

// actor returns the authenticated caller or writes a 401.
func actor(w http.ResponseWriter, r *http.Request) (models.Actor, bool) {
	a, ok := middleware.GetActorFromContext(r.Context())
	if !ok {
		utils.Error(w, apperr.New(apperr.KindUnauthorized, "Authentication required"))
	}
	return a, ok
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		utils.BadRequest(w, "Invalid request body")
		return false
	}
	return true
}

// decodeOptional accepts an empty body and leaves v at its zero value.
func decodeOptional(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		utils.BadRequest(w, "Invalid request body")
		return false
	}
	return true
}

func pathInt(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	v, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || v <= 0 {
		utils.BadRequest(w, "Invalid "+name)
		return 0, false
	}
	return v, true
}

func queryInt(r *http.Request, name string) int {
	v, _ := strconv.Atoi(r.URL.Query().Get(name))
	return v
}

// queryDates reads fromDate/toDate (YYYY-MM-DD, IST). toDate covers the whole day.
func queryDates(r *http.Request) (*time.Time, *time.Time, error) {
	q := r.URL.Query()
	var from, to *time.Time
	if s := q.Get("fromDate"); s != "" {
		t, err := timeutil.ParseDate(s)
		if err != nil {
			return nil, nil, apperr.Validation("invalid fromDate %q, expected YYYY-MM-DD", s)
		}
		from = &t
	}
	if s := q.Get("toDate"); s != "" {
		t, err := timeutil.ParseDate(s)
		if err != nil {
			return nil, nil, apperr.Validation("invalid toDate %q, expected YYYY-MM-DD", s)
		}
		end := timeutil.EndOfDay(t)
		to = &end
	}
	return from, to, nil
}

func bookingFilter(r *http.Request) (models.BookingFilter, error) {
	q := r.URL.Query()
	from, to, err := queryDates(r)
	if err != nil {
		return models.BookingFilter{}, err
	}
	f := models.BookingFilter{
		PickUpBranch: q.Get("pickUpBranch"),
		DropBranch:   q.Get("dropBranch"),
		FromCity:     q.Get("fromCity"),
		ToCity:       q.Get("toCity"),
		BookingType:  models.BookingType(q.Get("bookingType")),
		SenderName:   q.Get("senderName"),
		From:         from,
		To:           to,
		Limit:        queryInt(r, "limit"),
		Offset:       queryInt(r, "offset"),
	}
	if f.BookingType != "" && !f.BookingType.Valid() {
		return f, apperr.Validation("unknown bookingType %q", f.BookingType)
	}
	if s := q.Get("status"); s != "" {
		for _, part := range strings.Split(s, ",") {
			n, err := strconv.Atoi(strings.TrimSpace(part))
			status := models.BookingStatus(n)
			if err != nil || !status.Valid() {
				return f, apperr.Validation("unknown status %q", part)
			}
			f.Statuses = append(f.Statuses, status)
		}
	}
	return f, nil
}

func manifestFilter(r *http.Request, direction models.Direction) (models.ManifestFilter, error) {
	q := r.URL.Query()
	from, to, err := queryDates(r)
	if err != nil {
		return models.ManifestFilter{}, err
	}
	return models.ManifestFilter{
		Direction:  direction,
		FromBranch: q.Get("fromBranch"),
		ToBranch:   q.Get("toBranch"),
		FromCity:   q.Get("fromCity"),
		ToCity:     q.Get("toCity"),
		From:       from,
		To:         to,
		Limit:      queryInt(r, "limit"),
		Offset:     queryInt(r, "offset"),
	}, nil
}

func reportRequest(r *http.Request) (models.ReportRequest, error) {
	q := r.URL.Query()
	from, to, err := queryDates(r)
	if err != nil {
		return models.ReportRequest{}, err
	}
	req := models.ReportRequest{
		From:         from,
		To:           to,
		FromCity:     q.Get("fromCity"),
		ToCity:       q.Get("toCity"),
		PickUpBranch: q.Get("pickUpBranch"),
		SenderName:   q.Get("senderName"),
		BookingType:  models.BookingType(q.Get("bookingType")),
		GroupBy:      models.GroupBy(q.Get("groupBy")),
	}
	if req.BookingType != "" && !req.BookingType.Valid() {
		return req, apperr.Validation("unknown bookingType %q", req.BookingType)
	}
	return req, nil
}
