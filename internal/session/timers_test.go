package session

import (
	"testing"
	"time"
)

func TestModifiersExpire(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	m := NewModifiers(clock)

	m.Publish(
		map[string]float64{"happiness": 5},
		map[string]float64{"checking": -40},
		nil,
		3*time.Second,
	)

	stat, financial, skill := m.Active()
	if stat["happiness"] != 5 {
		t.Errorf("stat = %+v", stat)
	}
	if financial["checking"] != -40 {
		t.Errorf("financial = %+v", financial)
	}
	if skill != nil {
		t.Errorf("skill = %+v, want nil", skill)
	}

	// Still visible just inside the window.
	now = now.Add(3 * time.Second)
	if stat, _, _ = m.Active(); stat == nil {
		t.Fatal("modifiers expired early")
	}

	// Gone once the window passes.
	now = now.Add(time.Millisecond)
	stat, financial, _ = m.Active()
	if stat != nil || financial != nil {
		t.Fatalf("modifiers survived expiry: %+v %+v", stat, financial)
	}
}

func TestModifiersRepublishResetsWindow(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	m := NewModifiers(func() time.Time { return now })

	m.Publish(map[string]float64{"happiness": 1}, nil, nil, 3*time.Second)
	now = now.Add(2 * time.Second)
	m.Publish(map[string]float64{"happiness": 2}, nil, nil, 3*time.Second)

	// The first window would have closed here; the second keeps it open.
	now = now.Add(2 * time.Second)
	stat, _, _ := m.Active()
	if stat["happiness"] != 2 {
		t.Fatalf("stat = %+v, want the republished value", stat)
	}
}

func TestModifiersEmptyPublishLeavesSlotAlone(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	m := NewModifiers(func() time.Time { return now })

	m.Publish(map[string]float64{"happiness": 1}, nil, nil, 3*time.Second)
	m.Publish(nil, map[string]float64{"savings": 10}, nil, 3*time.Second)

	stat, financial, _ := m.Active()
	if stat["happiness"] != 1 {
		t.Errorf("stat slot clobbered by empty publish: %+v", stat)
	}
	if financial["savings"] != 10 {
		t.Errorf("financial = %+v", financial)
	}
}

func TestModifiersClear(t *testing.T) {
	m := NewModifiers(nil)
	m.Publish(map[string]float64{"happiness": 1}, nil, nil, time.Hour)
	m.Clear()
	stat, financial, skill := m.Active()
	if stat != nil || financial != nil || skill != nil {
		t.Fatal("clear left entries behind")
	}
}
