package store

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"
)

func TestAcquireBotLockExclusive(t *testing.T) {
	root := t.TempDir()
	lock, err := AcquireBotLock(root, "bot1", LockOptions{})
	if err != nil {
		t.Fatalf("AcquireBotLock() error = %v", err)
	}
	defer lock.Release()

	_, err = AcquireBotLock(root, "bot1", LockOptions{})
	if err == nil {
		t.Fatalf("second AcquireBotLock() error = nil, want error")
	}
	if !strings.Contains(err.Error(), "bot lock exists") {
		t.Fatalf("second AcquireBotLock() error = %q, want lock exists", err.Error())
	}
}

func TestAcquireBotLockIndependentPerBot(t *testing.T) {
	root := t.TempDir()
	first, err := AcquireBotLock(root, "bot1", LockOptions{})
	if err != nil {
		t.Fatalf("AcquireBotLock(bot1) error = %v", err)
	}
	defer first.Release()

	second, err := AcquireBotLock(root, "bot2", LockOptions{})
	if err != nil {
		t.Fatalf("AcquireBotLock(bot2) error = %v, want nil", err)
	}
	defer second.Release()
}

func TestAcquireBotLockTakeoverDeadPID(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "bot1.lock")
	payload := "bot_id=bot1\npid=999999\nstarted_at=" + time.Now().UTC().Format(time.RFC3339) + "\n"
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatalf("write stale lock failed: %v", err)
	}

	lock, err := AcquireBotLock(root, "bot1", LockOptions{
		TakeoverEnabled: true,
		StaleAfter:      10 * time.Minute,
	})
	if err != nil {
		t.Fatalf("AcquireBotLock() error = %v, want nil", err)
	}
	defer lock.Release()
}

func TestAcquireBotLockDoesNotTakeoverRunningPID(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "bot1.lock")
	payload := "bot_id=bot1\npid=" + strconv.Itoa(os.Getpid()) +
		"\nstarted_at=" + time.Now().UTC().Add(-time.Hour).Format(time.RFC3339) + "\n"
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatalf("write active lock failed: %v", err)
	}

	_, err := AcquireBotLock(root, "bot1", LockOptions{
		TakeoverEnabled: true,
		StaleAfter:      time.Second,
	})
	if err == nil {
		t.Fatalf("AcquireBotLock() error = nil, want active lock error")
	}
	if !strings.Contains(err.Error(), "owner_process_running") {
		t.Fatalf("AcquireBotLock() error = %q, want owner_process_running", err.Error())
	}
}

func TestAcquireBotLockTakeoverByAgeWithoutPID(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "bot1.lock")
	started := time.Now().UTC().Add(-2 * time.Minute)
	if err := os.WriteFile(path, []byte("bot_id=bot1\nstarted_at="+started.Format(time.RFC3339)+"\n"), 0o644); err != nil {
		t.Fatalf("write stale lock failed: %v", err)
	}

	lock, err := AcquireBotLock(root, "bot1", LockOptions{
		TakeoverEnabled: true,
		StaleAfter:      time.Minute,
		Now: func() time.Time {
			return started.Add(2 * time.Minute)
		},
	})
	if err != nil {
		t.Fatalf("AcquireBotLock() error = %v, want nil", err)
	}
	defer lock.Release()
}

func TestAcquireBotLockKeepsRecentUnknownLock(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "bot1.lock")
	started := time.Now().UTC()
	if err := os.WriteFile(path, []byte("bot_id=bot1\nstarted_at="+started.Format(time.RFC3339)+"\n"), 0o644); err != nil {
		t.Fatalf("write lock failed: %v", err)
	}

	_, err := AcquireBotLock(root, "bot1", LockOptions{
		TakeoverEnabled: true,
		StaleAfter:      10 * time.Minute,
		Now: func() time.Time {
			return started.Add(30 * time.Second)
		},
	})
	if err == nil {
		t.Fatalf("AcquireBotLock() error = nil, want lock active error")
	}
	if !strings.Contains(err.Error(), "lock_not_stale") {
		t.Fatalf("AcquireBotLock() error = %q, want lock_not_stale", err.Error())
	}
}
