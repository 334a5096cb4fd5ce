package main

import (
	"runtime"
	"testing"
)

func TestWorkerCount(t *testing.T) {
	if got := workerCount(3); got != 3 {
		t.Errorf("workerCount(3) = %d, want 3", got)
	}
	if got := workerCount(0); got != runtime.NumCPU() {
		t.Errorf("workerCount(0) = %d, want %d", got, runtime.NumCPU())
	}
	if got := workerCount(-1); got < 1 {
		t.Errorf("workerCount(-1) = %d, want at least 1", got)
	}
}
