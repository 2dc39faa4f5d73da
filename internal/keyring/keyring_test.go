package keyring

import (
	"testing"

	gokeyring "github.com/zalando/go-keyring"
)

func TestSetAndGetConnectionString(t *testing.T) {
	gokeyring.MockInit()

	testConnStr := "postgres://testuser@localhost:5432/daybell?sslmode=disable"
	if err := SetConnectionString(testConnStr); err != nil {
		t.Fatalf("SetConnectionString() failed: %v", err)
	}

	retrieved, err := GetConnectionString()
	if err != nil {
		t.Fatalf("GetConnectionString() failed: %v", err)
	}
	if retrieved != testConnStr {
		t.Errorf("GetConnectionString() = %q, want %q", retrieved, testConnStr)
	}
}

func TestSetEmpty(t *testing.T) {
	gokeyring.MockInit()

	if err := SetConnectionString(""); err == nil {
		t.Error("SetConnectionString(\"\") should return an error")
	}
	if err := SetTranscriptionKey(""); err == nil {
		t.Error("SetTranscriptionKey(\"\") should return an error")
	}
}

func TestGetNotFound(t *testing.T) {
	gokeyring.MockInit()

	for _, user := range Users {
		_ = Delete(user)
		if _, err := Get(user); err != ErrNotFound {
			t.Errorf("Get(%q) error = %v, want %v", user, err, ErrNotFound)
		}
	}
}

func TestDelete(t *testing.T) {
	gokeyring.MockInit()

	if err := SetTranscriptionKey("sk-test"); err != nil {
		t.Fatalf("SetTranscriptionKey() failed: %v", err)
	}
	if err := DeleteTranscriptionKey(); err != nil {
		t.Fatalf("DeleteTranscriptionKey() failed: %v", err)
	}
	if _, err := GetTranscriptionKey(); err != ErrNotFound {
		t.Errorf("after delete, GetTranscriptionKey() error = %v, want %v", err, ErrNotFound)
	}
	if err := DeleteTranscriptionKey(); err != ErrNotFound {
		t.Errorf("second delete error = %v, want %v", err, ErrNotFound)
	}
}

func TestSecretsAreIndependent(t *testing.T) {
	gokeyring.MockInit()

	if err := SetConnectionString("postgres://db"); err != nil {
		t.Fatal(err)
	}
	if err := SetTranscriptionKey("sk-live"); err != nil {
		t.Fatal(err)
	}
	conn, _ := GetConnectionString()
	key, _ := GetTranscriptionKey()
	if conn != "postgres://db" || key != "sk-live" {
		t.Errorf("conn=%q key=%q", conn, key)
	}
}

func TestIsAvailable(t *testing.T) {
	gokeyring.MockInit()

	if !IsAvailable() {
		t.Error("IsAvailable() = false with mock keyring, want true")
	}
}
