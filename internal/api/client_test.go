package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tbourn/go-goal-sync/internal/domain"
)

func TestCreateGoal_PostsJSONAndDecodesRecord(t *testing.T) {
	var gotAuth, gotPath, gotMethod string
	var gotBody CreateGoalRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		gotMethod = r.Method
		_ = json.NewDecoder(r.Body).Decode(&gotBody)

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(GoalRecord{
			ID:           "srv-1",
			UserID:       "u1",
			GameMode:     domain.ModeBlitz,
			StartRating:  1200,
			TargetRating: 1400,
			Status:       domain.StatusActive,
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok-123")
	rec, err := c.CreateGoal(context.Background(), CreateGoalRequest{
		GameMode:     domain.ModeBlitz,
		StartRating:  1200,
		TargetRating: 1400,
		TargetDate:   time.Now().AddDate(0, 3, 0),
	})
	if err != nil {
		t.Fatalf("CreateGoal: %v", err)
	}

	if gotMethod != http.MethodPost || gotPath != "/goals" {
		t.Fatalf("request = %s %s, want POST /goals", gotMethod, gotPath)
	}
	if gotAuth != "Bearer tok-123" {
		t.Fatalf("auth header = %q", gotAuth)
	}
	if gotBody.GameMode != domain.ModeBlitz || gotBody.TargetRating != 1400 {
		t.Fatalf("body = %+v", gotBody)
	}
	if rec.ID != "srv-1" {
		t.Fatalf("record id = %q, want srv-1", rec.ID)
	}
}

func TestClient_4xxBecomesTypedError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"target rating must exceed start rating"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	_, err := c.CreateGoal(context.Background(), CreateGoalRequest{})
	if err == nil {
		t.Fatal("expected error")
	}

	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T: %v", err, err)
	}
	if apiErr.StatusCode != 400 || apiErr.Message != "target rating must exceed start rating" {
		t.Fatalf("apiErr = %+v", apiErr)
	}
}

func TestClient_NonEnvelopeErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream exploded"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	_, err := c.ListGoals(context.Background())

	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T: %v", err, err)
	}
	if apiErr.StatusCode != 502 || apiErr.Message != "upstream exploded" {
		t.Fatalf("apiErr = %+v", apiErr)
	}
}

func TestUpdateAndDeleteGoal_Paths(t *testing.T) {
	var paths []string
	var methods []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		methods = append(methods, r.Method)
		switch r.Method {
		case http.MethodPatch:
			_ = json.NewEncoder(w).Encode(GoalRecord{ID: "g1", Status: domain.StatusCompleted})
		case http.MethodDelete:
			_ = json.NewEncoder(w).Encode(map[string]string{"message": "goal deleted"})
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	status := domain.StatusCompleted
	rec, err := c.UpdateGoal(context.Background(), "g1", UpdateGoalRequest{Status: &status})
	if err != nil {
		t.Fatalf("UpdateGoal: %v", err)
	}
	if rec.Status != domain.StatusCompleted {
		t.Fatalf("status = %s", rec.Status)
	}
	if err := c.DeleteGoal(context.Background(), "g1"); err != nil {
		t.Fatalf("DeleteGoal: %v", err)
	}

	if paths[0] != "/goals/g1" || methods[0] != http.MethodPatch {
		t.Fatalf("update request = %s %s", methods[0], paths[0])
	}
	if paths[1] != "/goals/g1" || methods[1] != http.MethodDelete {
		t.Fatalf("delete request = %s %s", methods[1], paths[1])
	}
}

func TestGetBytes_RelativeAndAbsolute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("payload:" + r.URL.Path))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")

	rel, err := c.GetBytes(context.Background(), "/stats/magnus")
	if err != nil {
		t.Fatalf("GetBytes relative: %v", err)
	}
	if string(rel) != "payload:/stats/magnus" {
		t.Fatalf("relative payload = %s", rel)
	}

	abs, err := c.GetBytes(context.Background(), srv.URL+"/archive/2026-08")
	if err != nil {
		t.Fatalf("GetBytes absolute: %v", err)
	}
	if string(abs) != "payload:/archive/2026-08" {
		t.Fatalf("absolute payload = %s", abs)
	}
}

func TestGetBytes_NonOKIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"no such player"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	_, err := c.GetBytes(context.Background(), "/stats/ghost")

	var apiErr *Error
	if !errors.As(err, &apiErr) || !apiErr.IsNotFound() {
		t.Fatalf("expected 404 *Error, got %v", err)
	}
}
