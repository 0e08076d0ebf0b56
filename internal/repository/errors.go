// Package repository implements the persistence layer of the booking
// engine on database/sql. Every seat state transition is a conditional
// UPDATE whose affected-row count decides the race: the WHERE clause
// encodes the expected prior state and at most one concurrent attempt
// can win a given seat. Multi-statement operations run inside a single
// transaction and roll back completely on any failure.
//
// This file defines the error taxonomy shared with the service layer.
// Precondition violations get their own sentinel each so handlers can
// map them to distinct responses; storage failures are wrapped with %w
// and keep their original cause.
package repository

import "errors"

// ErrSeatUnavailable is returned when a conditional hold update affects
// zero rows: the seat is held by someone else, already booked, blocked,
// or does not exist for the event. First-committer-wins; losers see this.
var ErrSeatUnavailable = errors.New("seat not available")

// ErrSeatBlocked is returned when the (user, seat) pair is permanently
// blocked after repeated hold expiries. It is deliberately distinct
// from ErrSeatUnavailable so callers can surface a dedicated message
// instead of silently downgrading the block to "not available".
var ErrSeatBlocked = errors.New("seat permanently blocked")

// ErrHoldExpired is returned by settlement when one of the booking's
// seats is no longer HELD by the paying user. The whole settlement is
// rolled back; no seat transitions to BOOKED.
var ErrHoldExpired = errors.New("seat hold expired")

// ErrBookingNotFound is returned when a booking does not exist or is
// not owned by the caller. Ownership failures are indistinguishable
// from absence on purpose.
var ErrBookingNotFound = errors.New("booking not found")

// ErrAlreadyCancelled is returned by a repeat cancellation. The first
// cancel wins; the second affects zero rows and must not be retried
// blindly.
var ErrAlreadyCancelled = errors.New("booking already cancelled")

// ErrBookingNotPending is returned when payment or cancellation is
// attempted against a booking that already reached a terminal status.
var ErrBookingNotPending = errors.New("booking is not pending")

// ErrEventNotFound is returned when an event id cannot be resolved.
var ErrEventNotFound = errors.New("event not found")

// ErrPaymentDeclined is returned when the payment provider refuses the
// charge. The booking stays PENDING and may be retried while the hold
// lives.
var ErrPaymentDeclined = errors.New("payment declined")

// ErrEmailExists is returned when registration hits the unique email
// constraint.
var ErrEmailExists = errors.New("email already exists")
