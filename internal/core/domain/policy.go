package domain

type Action string

const (
	ActionCreateRide         Action = "create_ride"
	ActionStartRide          Action = "start_ride"
	ActionCompleteRide       Action = "complete_ride"
	ActionCancelRide         Action = "cancel_ride"
	ActionDeleteRide         Action = "delete_ride"
	ActionReviewVerification Action = "review_verification"
	ActionViewDashboard      Action = "view_dashboard"
)

// Authorize is the single authorization policy for every mutating operation.
// ride may be nil for actions that are not bound to a ride.
func Authorize(actor *User, action Action, ride *Ride) error {
	op := string(action)
	if actor == nil {
		return PermissionError(op, "authentication required")
	}

	switch action {
	case ActionCreateRide:
		if actor.Role == Organizer || actor.Role == Admin {
			return nil
		}
		return PermissionError(op, "only verified organizers can create rides; submit a verification request first")

	case ActionStartRide, ActionCompleteRide, ActionCancelRide:
		if ride == nil {
			return PermissionError(op, "ride required")
		}
		if ride.OrganizerID == actor.ID {
			return nil
		}
		return PermissionError(op, "only the ride organizer can do this")

	case ActionDeleteRide, ActionReviewVerification, ActionViewDashboard:
		if actor.Role == Admin {
			return nil
		}
		return PermissionError(op, "admin role required")
	}

	return PermissionError(op, "unknown action")
}
