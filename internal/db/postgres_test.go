package db

import (
	"os"
	"testing"
)

func TestOpen_EmptyDSN(t *testing.T) {
	db, err := Open("")
	if err == nil {
		if db != nil {
			db.Close()
		}
		t.Fatal("Open with empty DSN should return error")
	}
	if db != nil {
		t.Error("Open should return nil db when error occurs")
	}
}

func TestOpen_InvalidDSN(t *testing.T) {
	db, err := Open("not-a-dsn at all")
	if err == nil {
		if db != nil {
			db.Close()
		}
		t.Fatal("Open with malformed DSN should return error")
	}
	if db != nil {
		t.Error("Open should return nil db when error occurs")
	}
}

func TestOpen_Success(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}
	db, err := Open(dsn)
	if err != nil {
		t.Skipf("database connection failed: %v", err)
	}
	defer db.Close()
	var result int
	if err := db.QueryRow("SELECT 1").Scan(&result); err != nil {
		t.Errorf("should be able to query database: %v", err)
	}
}
