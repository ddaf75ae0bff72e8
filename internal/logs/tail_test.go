package logs_test

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"sift/internal/logs"
)

func writeLog(t *testing.T, path string, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
}

func TestTailLastLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sift.log")
	writeLog(t, path, "one\ntwo\nthree\nfour\n")

	res, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: -1, Limit: 2})
	if err != nil {
		t.Fatalf("Tail failed: %v", err)
	}
	if !reflect.DeepEqual(res.Lines, []string{"three", "four"}) {
		t.Fatalf("Lines = %v", res.Lines)
	}
	if res.Offset == 0 {
		t.Fatal("expected end-of-file offset")
	}
}

func TestTailResumeFromOffset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sift.log")
	writeLog(t, path, "one\ntwo\n")

	first, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: -1, Limit: 10})
	if err != nil {
		t.Fatalf("Tail failed: %v", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open append: %v", err)
	}
	if _, err := f.WriteString("three\n"); err != nil {
		t.Fatalf("append: %v", err)
	}
	_ = f.Close()

	second, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: first.Offset})
	if err != nil {
		t.Fatalf("Tail resume failed: %v", err)
	}
	if !reflect.DeepEqual(second.Lines, []string{"three"}) {
		t.Fatalf("Lines = %v", second.Lines)
	}
}

func TestTailFollowWaitsForNewLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sift.log")
	writeLog(t, path, "start\n")

	initial, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: -1})
	if err != nil {
		t.Fatalf("Tail failed: %v", err)
	}

	done := make(chan logs.TailResult, 1)
	go func() {
		res, followErr := logs.Tail(context.Background(), path, logs.TailOptions{
			Offset: initial.Offset,
			Follow: true,
			Wait:   5 * time.Second,
		})
		if followErr != nil {
			t.Errorf("follow failed: %v", followErr)
		}
		done <- res
	}()

	time.Sleep(100 * time.Millisecond)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open append: %v", err)
	}
	if _, err := f.WriteString("update\n"); err != nil {
		t.Fatalf("append: %v", err)
	}
	_ = f.Close()

	select {
	case res := <-done:
		if !reflect.DeepEqual(res.Lines, []string{"update"}) {
			t.Fatalf("Lines = %v", res.Lines)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("follow timed out")
	}
}

func TestTailMissingFile(t *testing.T) {
	res, err := logs.Tail(context.Background(), filepath.Join(t.TempDir(), "absent.log"), logs.TailOptions{Offset: -1, Limit: 5})
	if err != nil {
		t.Fatalf("Tail failed: %v", err)
	}
	if len(res.Lines) != 0 || res.Offset != 0 {
		t.Fatalf("unexpected result: %#v", res)
	}
}
