package model

import (
	"errors"
	"fmt"
)

// Actor identifies who drives a lifecycle transition.
type Actor string

const (
	ActorDriver  Actor = "driver"  // the reservation's driver
	ActorOwner   Actor = "owner"   // the lot owner
	ActorPayment Actor = "payment" // the payment collaborator
	ActorGate    Actor = "gate"    // the gate sensor
	ActorSystem  Actor = "system"  // capacity displacement and auto-approval
	ActorClock   Actor = "clock"   // the reconciliation sweep
)

// ErrIllegalTransition is returned by Transition when the table does not
// allow the move for the given actor.
var ErrIllegalTransition = errors.New("illegal status transition")

// transitions maps from -> to -> actors allowed to perform the move.
// Terminal statuses have no entry.
var transitions = map[Status]map[Status][]Actor{
	StatusPendingPayment: {
		StatusPending:   {ActorPayment},
		StatusConfirmed: {ActorPayment, ActorOwner, ActorSystem},
		StatusRejected:  {ActorOwner, ActorSystem, ActorPayment},
		StatusCancelled: {ActorDriver},
		StatusExpired:   {ActorClock},
	},
	StatusPending: {
		StatusConfirmed: {ActorPayment, ActorOwner, ActorSystem},
		StatusRejected:  {ActorOwner, ActorSystem},
		StatusCancelled: {ActorDriver},
		StatusExpired:   {ActorClock},
	},
	StatusConfirmed: {
		StatusActive:    {ActorGate, ActorClock},
		StatusCompleted: {ActorGate},
		StatusCancelled: {ActorDriver},
		StatusRejected:  {ActorOwner},
		StatusExpired:   {ActorClock},
	},
	StatusActive: {
		StatusCompleted: {ActorGate, ActorClock},
		StatusExpired:   {ActorClock},
	},
}

// CanTransition reports whether actor may move a reservation from one
// status to another.  A move to the same status is never a transition.
func CanTransition(from, to Status, actor Actor) bool {
	for _, a := range transitions[from][to] {
		if a == actor {
			return true
		}
	}
	return false
}

// Transition moves r to the target status when the table allows it.
func (r *Reservation) Transition(to Status, actor Actor) error {
	if !CanTransition(r.Status, to, actor) {
		return fmt.Errorf("%w: %s -> %s by %s", ErrIllegalTransition, r.Status, to, actor)
	}
	r.Status = to
	return nil
}
