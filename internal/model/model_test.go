package model

import "testing"

func TestSeatLabel(t *testing.T) {
	s := Seat{Section: "MAIN", RowLabel: "B", SeatNo: 12}
	if got := s.Label(); got != "MAIN-B12" {
		t.Fatalf("Label() = %q, want MAIN-B12", got)
	}
}

func TestSeatExpiredAction(t *testing.T) {
	if got := SeatExpiredAction(42); got != "BOOK_EXPIRED_SEAT_42" {
		t.Fatalf("SeatExpiredAction(42) = %q", got)
	}
	// Different seats must count independently, so the tag embeds the id.
	if SeatExpiredAction(1) == SeatExpiredAction(2) {
		t.Fatal("tags for different seats collided")
	}
}
