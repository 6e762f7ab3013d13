package device

import (
	"sync/atomic"
	"testing"
)

func TestDispatchCoversEveryIndexExactlyOnce(t *testing.T) {
	q := NewQueue()
	n := 10000
	hits := make([]int32, n)

	err := q.Dispatch("count", n, func(i int) {
		atomic.AddInt32(&hits[i], 1)
	})
	if err != nil {
		t.Fatal(err)
	}

	for i, h := range hits {
		if h != 1 {
			t.Fatalf("index %d visited %d times, want 1", i, h)
		}
	}
}

func TestDispatchWrapsPanicAsDeviceError(t *testing.T) {
	q := NewQueue()
	err := q.Dispatch("boom", 8, func(i int) {
		if i == 3 {
			panic("kaboom")
		}
	})
	if err == nil {
		t.Fatal("expected DeviceError from panicking kernel")
	}
	var de *DeviceError
	if !asDeviceError(err, &de) {
		t.Fatalf("expected *DeviceError, got %T: %v", err, err)
	}
	if de.Kernel != "boom" {
		t.Errorf("Kernel = %q, want %q", de.Kernel, "boom")
	}
}

func asDeviceError(err error, target **DeviceError) bool {
	de, ok := err.(*DeviceError)
	if ok {
		*target = de
	}
	return ok
}

func TestDispatchHandlesEmptyRange(t *testing.T) {
	q := NewQueue()
	if err := q.Dispatch("noop", 0, func(i int) { t.Fatal("should not be called") }); err != nil {
		t.Fatal(err)
	}
}
