package cli

import (
	"bytes"
	"strings"
	"testing"
)

func TestCreateUser(t *testing.T) {
	t.Setenv("SESSION_SECRET", "test-secret")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("ADMIN_USERS", "Root@Example.com")
	t.Setenv("NODE_HEALTH_WORKER_ENABLED", "false")

	var out bytes.Buffer
	RootCmd.SetOut(&out)
	RootCmd.SetArgs([]string{"create-user", "--username", "root", "--email", "root@example.com", "--password", "pw"})
	if err := RootCmd.Execute(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "Created root <root@example.com>") || !strings.HasSuffix(strings.TrimSpace(out.String()), "as admin") {
		t.Errorf("unexpected output %q", out.String())
	}
}

func TestCreateUser_Validation(t *testing.T) {
	t.Setenv("SESSION_SECRET", "test-secret")
	t.Setenv("STORE_DRIVER", "memory")

	RootCmd.SetOut(&bytes.Buffer{})
	RootCmd.SetArgs([]string{"create-user", "--username", "x", "--email", "not-an-email", "--password", "pw"})
	if err := RootCmd.Execute(); err == nil {
		t.Error("Expected invalid email to fail")
	}
}

func TestCreateUser_MissingConfig(t *testing.T) {
	t.Setenv("SESSION_SECRET", "")
	t.Setenv("STORE_DRIVER", "memory")

	RootCmd.SetOut(&bytes.Buffer{})
	RootCmd.SetArgs([]string{"create-user", "--username", "x", "--email", "x@example.com", "--password", "pw"})
	err := RootCmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "SESSION_SECRET") {
		t.Errorf("Expected config error, got %v", err)
	}
}
