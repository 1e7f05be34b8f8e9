package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClientVerify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		switch req["id_token"] {
		case "good-token":
			json.NewEncoder(w).Encode(Identity{
				UID:           "uid-1",
				Email:         "star@example.com",
				EmailVerified: true,
			})
		default:
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "invalid token"})
		}
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second)
	ctx := context.Background()

	identity, err := client.Verify(ctx, "good-token")
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if identity.UID != "uid-1" || identity.Email != "star@example.com" {
		t.Fatalf("unexpected identity: %+v", identity)
	}

	if _, err := client.Verify(ctx, "expired-token"); err == nil {
		t.Fatal("expected rejection for bad token")
	}
}

func TestClientVerifyRejectsMissingUID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"email": "nouid@example.com"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second)
	if _, err := client.Verify(context.Background(), "token"); err == nil {
		t.Fatal("expected error for identity without uid")
	}
}

func TestStaticVerifier(t *testing.T) {
	v := &StaticVerifier{Identities: map[string]Identity{
		"tok": {UID: "u1", Email: "u1@example.com"},
	}}

	identity, err := v.Verify(context.Background(), "tok")
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if identity.UID != "u1" {
		t.Fatalf("unexpected identity: %+v", identity)
	}

	if _, err := v.Verify(context.Background(), "nope"); err == nil {
		t.Fatal("expected rejection for unknown token")
	}
}
