package service

import (
	"context"
	"testing"

	"github.com/mrusso/postdeck/internal/models"
)

func TestGetUserInfo(t *testing.T) {
	repo := newStubUserRepo()
	repo.users["ana@example.com"] = &models.User{ID: 7, Email: "ana@example.com", Name: "Ana"}

	s := NewUserService(repo)
	user, err := s.GetUserInfo(context.Background(), 7)
	if err != nil {
		t.Fatal(err)
	}
	if user.Email != "ana@example.com" {
		t.Errorf("email = %q, want ana@example.com", user.Email)
	}
}

func TestGetUserInfoUnknownID(t *testing.T) {
	s := NewUserService(newStubUserRepo())
	if _, err := s.GetUserInfo(context.Background(), 99); err == nil {
		t.Fatal("expected error for unknown user id")
	}
}
