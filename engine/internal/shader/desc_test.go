// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package shader

import "testing"

func TestNewDescHeap0(t *testing.T) {
	dh, err := newDescHeap0()
	if err != nil {
		t.Fatal(err)
	}
	defer dh.Destroy()
	if dh.Count() != 0 {
		t.Fatalf("newDescHeap0: got Count %d, want 0 before New", dh.Count())
	}
	if err := dh.New(1); err != nil {
		t.Fatal(err)
	}
	if dh.Count() != 1 {
		t.Fatalf("newDescHeap0: got Count %d, want 1", dh.Count())
	}
}

func TestNewDescHeap1(t *testing.T) {
	dh, err := newDescHeap1()
	if err != nil {
		t.Fatal(err)
	}
	defer dh.Destroy()
	if err := dh.New(1); err != nil {
		t.Fatal(err)
	}
}

func TestNewDescHeap2(t *testing.T) {
	dh, err := newDescHeap2()
	if err != nil {
		t.Fatal(err)
	}
	defer dh.Destroy()
	if err := dh.New(1); err != nil {
		t.Fatal(err)
	}
}

func TestNewDescTable(t *testing.T) {
	dt, err := newDescTable()
	if err != nil {
		t.Fatal(err)
	}
	dt.Destroy()
}
