package store

import (
	"context"
	"errors"
	"testing"

	"ploxora/internal/errs"
	"ploxora/internal/model"
)

func TestUserRepo_Lookups(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	u := &model.User{
		ID:         "u1",
		Username:   "alice",
		Email:      "Alice@Example.com",
		ClientAPIs: []model.ClientAPIKey{{Key: "k1"}},
	}
	if err := s.Users.Save(ctx, u); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := s.Users.FindByEmail(ctx, " alice@example.com ")
	if err != nil || got == nil || got.ID != "u1" {
		t.Fatalf("FindByEmail = %v, %v", got, err)
	}

	missing, err := s.Users.FindByEmail(ctx, "bob@example.com")
	if err != nil || missing != nil {
		t.Errorf("Expected nil for unknown email, got %v, %v", missing, err)
	}

	owner, err := s.Users.FindByClientKey(ctx, "k1")
	if err != nil || owner == nil || owner.ID != "u1" {
		t.Errorf("FindByClientKey = %v, %v", owner, err)
	}

	if owner, _ := s.Users.FindByClientKey(ctx, ""); owner != nil {
		t.Error("Expected empty key to match nobody")
	}
}

func TestServerRepo_Queries(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	servers := []*model.Server{
		{ID: "s1", ContainerID: "c1", Node: "n1", User: "u1"},
		{ID: "s2", ContainerID: "c2", Node: "n2", User: "u2", Subusers: []model.Subuser{{Email: "u1@example.com"}}},
		{ID: "s3", ContainerID: "c3", Node: "n1", User: "u3"},
	}
	for _, srv := range servers {
		if err := s.Servers.Save(ctx, srv); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.Servers.FindByContainerID(ctx, "c2")
	if err != nil || got.ID != "s2" {
		t.Errorf("FindByContainerID = %v, %v", got, err)
	}

	if _, err := s.Servers.FindByContainerID(ctx, "nope"); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	onNode, err := s.Servers.ListByNode(ctx, "n1")
	if err != nil || len(onNode) != 2 {
		t.Errorf("ListByNode = %d servers, %v", len(onNode), err)
	}

	accessible, err := s.Servers.ListAccessible(ctx, "u1", "U1@example.com")
	if err != nil || len(accessible) != 2 {
		t.Errorf("ListAccessible = %d servers, %v", len(accessible), err)
	}
}

func TestSettingsRepo(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	if v, err := s.Settings.Get(ctx, "NAME"); err != nil || v != nil {
		t.Fatalf("Expected unset setting, got %v, %v", v, err)
	}

	_ = s.Settings.Set(ctx, "NAME", "Ploxora")
	_ = s.Settings.Set(ctx, "IsLogs", false)
	_ = s.Settings.Set(ctx, InitializedKey, true)

	name, err := s.Settings.GetString(ctx, "NAME")
	if err != nil || name != "Ploxora" {
		t.Errorf("GetString(NAME) = %q, %v", name, err)
	}

	isLogs, _ := s.Settings.GetString(ctx, "IsLogs")
	if isLogs != "false" {
		t.Errorf("Expected bool rendered as false, got %q", isLogs)
	}

	all, err := s.Settings.All(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := all[InitializedKey]; ok {
		t.Error("Expected internal marker to be hidden")
	}
	if len(all) != 2 {
		t.Errorf("Expected 2 settings, got %v", all)
	}
}
