package hotkey

import (
	"encoding/binary"
	"testing"
	"time"
)

func waitAction(t *testing.T, g *Gestures) Action {
	t.Helper()
	select {
	case a := <-g.Actions():
		return a
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for action")
	}
	return 0
}

func TestGestureTapToggles(t *testing.T) {
	fk := NewFake()
	g := NewGestures(fk, 200*time.Millisecond)
	defer g.Close()

	fk.SimKeydown()
	fk.SimKeyup()
	if a := waitAction(t, g); a != Toggle {
		t.Fatalf("got %v, want toggle", a)
	}
}

func TestGestureHoldPreviews(t *testing.T) {
	fk := NewFake()
	threshold := 50 * time.Millisecond
	g := NewGestures(fk, threshold)
	defer g.Close()

	fk.SimKeydown()
	if a := waitAction(t, g); a != Preview {
		t.Fatalf("got %v, want preview", a)
	}
	fk.SimKeyup()

	select {
	case a := <-g.Actions():
		t.Fatalf("unexpected %v after release", a)
	case <-time.After(3 * threshold):
	}
}

func TestGestureMultipleCycles(t *testing.T) {
	fk := NewFake()
	threshold := 50 * time.Millisecond
	g := NewGestures(fk, threshold)
	defer g.Close()

	fk.SimKeydown()
	fk.SimKeyup()
	if a := waitAction(t, g); a != Toggle {
		t.Fatalf("cycle 1: got %v", a)
	}

	fk.SimKeydown()
	if a := waitAction(t, g); a != Preview {
		t.Fatalf("cycle 2: got %v", a)
	}
	fk.SimKeyup()

	fk.SimKeydown()
	fk.SimKeyup()
	if a := waitAction(t, g); a != Toggle {
		t.Fatalf("cycle 3: got %v", a)
	}
}

func event(code uint16, value int32) []byte {
	b := make([]byte, inputEventSize)
	binary.LittleEndian.PutUint16(b[16:], evKey)
	binary.LittleEndian.PutUint16(b[18:], code)
	binary.LittleEndian.PutUint32(b[20:], uint32(value))
	return b
}

func TestComboDecode(t *testing.T) {
	var buf []byte
	for _, e := range [][2]int32{
		{keyM, keyPress}, {keyM, keyRelease}, // no modifiers
		{keyLCtrl, keyPress}, {keyRShift, keyPress},
		{keyM, keyPress}, {keyM, 2}, {keyM, 2}, // auto-repeat
		{keyM, keyRelease},
		{keyLCtrl, keyRelease},
		{keyM, keyPress}, {keyM, keyRelease}, // ctrl released
	} {
		buf = append(buf, event(uint16(e[0]), e[1])...)
	}
	// a trailing partial record is ignored
	buf = append(buf, make([]byte, 10)...)

	var c comboState
	var downs, ups int
	c.decode(buf, func() { downs++ }, func() { ups++ })
	if downs != 1 || ups != 1 {
		t.Fatalf("downs=%d ups=%d, want 1 and 1", downs, ups)
	}
}

func TestComboIgnoresOtherEventTypes(t *testing.T) {
	b := event(keyM, keyPress)
	binary.LittleEndian.PutUint16(b[16:], 4) // EV_MSC
	c := comboState{ctrl: true, shift: true}
	c.decode(b, func() { t.Fatal("unexpected keydown") }, func() {})
}
