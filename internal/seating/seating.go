// Package seating builds the fixed seat inventory of an event and formats
// seat numbers for display.
package seating

import (
	"fmt"

	"github.com/iliyamo/reservita/internal/model"
)

const (
	seatsPerRow = 10
	maxRows     = 26
)

// Allocate returns the seats of an event numbered 1..vip+regular.  The VIP
// block comes first, so with 10 VIP seats the numbers 1..10 are VIP.
func Allocate(eventID uint64, vip, regular int) []model.Seat {
	if vip < 0 {
		vip = 0
	}
	if regular < 0 {
		regular = 0
	}
	seats := make([]model.Seat, 0, vip+regular)
	for n := 1; n <= vip+regular; n++ {
		t := model.SeatRegular
		if n <= vip {
			t = model.SeatVIP
		}
		seats = append(seats, model.Seat{EventID: eventID, SeatNumber: n, SeatType: t})
	}
	return seats
}

// Label converts a seat number into a row/position label: 1 is A1, 10 is
// A10, 11 is B1 and 260 is Z10.  Numbers outside that grid fall back to
// "#<n>".
func Label(n int) string {
	if n < 1 {
		return fmt.Sprintf("#%d", n)
	}
	row := (n - 1) / seatsPerRow
	if row >= maxRows {
		return fmt.Sprintf("#%d", n)
	}
	pos := (n-1)%seatsPerRow + 1
	return fmt.Sprintf("%c%d", rune('A'+row), pos)
}
