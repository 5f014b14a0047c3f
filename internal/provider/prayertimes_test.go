package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type providerStub struct {
	logins    int
	fetches   int
	rejectTok string // bearer token to reject with 401
	rows      []map[string]string
	status    int
}

func (p *providerStub) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/Auth/Login", func(w http.ResponseWriter, r *http.Request) {
		p.logins++
		var creds map[string]string
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil || creds["email"] == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		token := fmt.Sprintf("tok-%d", p.logins)
		json.NewEncoder(w).Encode(map[string]any{"data": map[string]string{"accessToken": token}})
	})
	mux.HandleFunc("/prayertime/", func(w http.ResponseWriter, r *http.Request) {
		p.fetches++
		bearer := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if bearer == "" || bearer == p.rejectTok {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if p.status != 0 {
			w.WriteHeader(p.status)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"data": p.rows})
	})
	return mux
}

func newTestSession(t *testing.T, stub *providerStub) *Session {
	t.Helper()
	srv := httptest.NewServer(stub.handler())
	t.Cleanup(srv.Close)
	s := NewSession(srv.URL, "svc@example.com", "secret")
	s.retry.BaseBackoff = time.Millisecond
	return s
}

func row(date string) map[string]string {
	return map[string]string{
		"date": date, "fajr": "05:12", "sunrise": "06:40", "dhuhr": "13:05",
		"asr": "16:41", "maghrib": "19:20", "isha": "20:42",
		"hijriDate": "17", "hijriMonth": "Rebiülevvel", "hijriYear": "1448",
	}
}

func TestPrayerTimesTransformsWireShape(t *testing.T) {
	stub := &providerStub{rows: []map[string]string{row("30.08.2026"), row("31.08.2026")}}
	s := newTestSession(t, stub)

	series, err := s.PrayerTimes(context.Background(), PeriodMonthly, "9858")
	if err != nil {
		t.Fatal(err)
	}
	if len(series) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(series))
	}
	if series[0].Date != "2026-08-30" || series[1].Date != "2026-08-31" {
		t.Fatalf("dates must be normalized to YYYY-MM-DD, got %s %s", series[0].Date, series[1].Date)
	}
	if series[0].Sun != "06:40" {
		t.Fatalf("the sunrise field must land in Sun, got %q", series[0].Sun)
	}
	if series[0].HijriMonth != "Rebiülevvel" {
		t.Fatalf("hijri fields must pass through, got %q", series[0].HijriMonth)
	}
}

func TestPrayerTimesDropsUnparseableDates(t *testing.T) {
	stub := &providerStub{rows: []map[string]string{row("not-a-date"), row("30.08.2026")}}
	s := newTestSession(t, stub)

	series, err := s.PrayerTimes(context.Background(), PeriodMonthly, "9858")
	if err != nil {
		t.Fatal(err)
	}
	if len(series) != 1 || series[0].Date != "2026-08-30" {
		t.Fatalf("bad rows must be dropped, good rows kept, got %+v", series)
	}
}

func TestPrayerTimesEmptyIsNotFound(t *testing.T) {
	s := newTestSession(t, &providerStub{})
	if _, err := s.PrayerTimes(context.Background(), PeriodMonthly, "9858"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for an empty window, got %v", err)
	}
}

func TestPrayerTimesServerErrorIsTransient(t *testing.T) {
	s := newTestSession(t, &providerStub{status: http.StatusBadGateway})
	if _, err := s.PrayerTimes(context.Background(), PeriodMonthly, "9858"); !errors.Is(err, ErrTransient) {
		t.Fatalf("5xx must surface as transient, got %v", err)
	}
}

func TestSessionReusesToken(t *testing.T) {
	stub := &providerStub{rows: []map[string]string{row("30.08.2026")}}
	s := newTestSession(t, stub)

	for i := 0; i < 3; i++ {
		if _, err := s.PrayerTimes(context.Background(), PeriodMonthly, "9858"); err != nil {
			t.Fatal(err)
		}
	}
	if stub.logins != 1 {
		t.Fatalf("token must be cached across calls, got %d logins", stub.logins)
	}
}

func TestSessionRefreshesRejectedToken(t *testing.T) {
	// the first issued token is rejected; the session must log in again
	// and replay the request once with the fresh one
	stub := &providerStub{rows: []map[string]string{row("30.08.2026")}, rejectTok: "tok-1"}
	s := newTestSession(t, stub)

	series, err := s.PrayerTimes(context.Background(), PeriodMonthly, "9858")
	if err != nil {
		t.Fatal(err)
	}
	if len(series) != 1 {
		t.Fatalf("expected the replayed request to succeed, got %+v", series)
	}
	if stub.logins != 2 {
		t.Fatalf("expected a re-login after the 401, got %d logins", stub.logins)
	}
}
