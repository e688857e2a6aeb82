package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cerita/nobat/internal/model"
)

func TestListTurnsDecodesPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/turns/next/1402-05-12" {
			t.Errorf("path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok123" {
			t.Errorf("auth header %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"date": model.DayContext{FaDate: "1402-05-13", EnDate: "2023-08-04"},
			"turns": []model.TurnWire{{
				ID:          "01H0000000000000000000TURN",
				RefPhone:    "0912xxxxxxx",
				Date:        "1402-05-13 10:30",
				CurrentTime: "2023-08-03T09:00:00Z",
				Status:      "booked,commentSms",
			}},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, NewSession("tok123"), srv.Client())
	page, err := c.ListTurns(context.Background(), "1402-05-12", "next")
	if err != nil {
		t.Fatalf("ListTurns: %v", err)
	}
	if page.Date.FaDate != "1402-05-13" {
		t.Fatalf("day cursor %q", page.Date.FaDate)
	}
	if len(page.Turns) != 1 {
		t.Fatalf("got %d turns", len(page.Turns))
	}
	turn := page.Turns[0]
	if turn.Slot != (model.Slot{Date: "1402-05-13", Time: "10:30"}) {
		t.Fatalf("slot %+v", turn.Slot)
	}
	if !turn.Status.Has(model.FlagCommentSMS) {
		t.Fatalf("status %v", turn.Status)
	}
}

func TestListTurnsPathForToday(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewEncoder(w).Encode(map[string]any{"date": model.DayContext{}, "turns": []model.TurnWire{}})
	}))
	defer srv.Close()

	c := New(srv.URL, nil, srv.Client())
	if _, err := c.ListTurns(context.Background(), "", ""); err != nil {
		t.Fatalf("ListTurns: %v", err)
	}
	if gotPath != "/turns" {
		t.Fatalf("path %q", gotPath)
	}
}

func TestCreateTurnSendsCompositeDate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/turn" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["date"] != "1402-05-12 10:30" {
			t.Errorf("composite date %q", body["date"])
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(model.TurnWire{
			ID:          "01H0000000000000000000TURN",
			RefPhone:    body["refphone"],
			Date:        body["date"],
			CurrentTime: "2023-08-03T09:00:00Z",
			Status:      "booked",
		})
	}))
	defer srv.Close()

	c := New(srv.URL, NewSession("tok123"), srv.Client())
	turn, err := c.CreateTurn(context.Background(), TurnInput{
		RefPhone: "0912xxxxxxx",
		Slot:     model.Slot{Date: "1402-05-12", Time: "10:30"},
	})
	if err != nil {
		t.Fatalf("CreateTurn: %v", err)
	}
	if turn.ID == "" || !turn.Status.Has(model.FlagBooked) {
		t.Fatalf("turn %+v", turn)
	}
}

func TestAPIErrorSurfacesServerMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "slot already taken"})
	}))
	defer srv.Close()

	c := New(srv.URL, NewSession("tok123"), srv.Client())
	_, err := c.CreateTurn(context.Background(), TurnInput{
		RefPhone: "0912xxxxxxx",
		Slot:     model.Slot{Date: "1402-05-12", Time: "10:30"},
	})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("want *APIError, got %v", err)
	}
	if apiErr.Status != http.StatusUnprocessableEntity || apiErr.Message != "slot already taken" {
		t.Fatalf("got %+v", apiErr)
	}
}

func TestAPIErrorFallsBackToStatusText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "plain text", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(srv.URL, nil, srv.Client())
	err := c.DeleteTurn(context.Background(), "x")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("want *APIError, got %v", err)
	}
	if apiErr.Message != http.StatusText(http.StatusBadGateway) {
		t.Fatalf("message %q", apiErr.Message)
	}
}

func TestLoginReturnsTokenWithoutMutatingSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["userId"] != "reception1" {
			t.Errorf("userId %q", body["userId"])
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "tok456"})
	}))
	defer srv.Close()

	session := NewSession("")
	c := New(srv.URL, session, srv.Client())
	token, err := c.Login(context.Background(), "reception1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if token != "tok456" {
		t.Fatalf("token %q", token)
	}
	if session.Token() != "" {
		t.Fatal("Login must not mutate the session")
	}
}
