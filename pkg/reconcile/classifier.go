package reconcile

// IsActiveStatus reports whether a subscription status counts as active for
// notification purposes: trialing, active, and past_due are active; canceled,
// unpaid, and both incomplete variants are not.
func IsActiveStatus(s SubscriptionStatus) bool {
	switch s {
	case StatusTrialing, StatusActive, StatusPastDue:
		return true
	default:
		return false
	}
}

// transition is the result of classifying a subscription event against the
// active/inactive boundary.
type transition struct {
	Transitioned bool
	ToActive     bool
}

// classifyCreated treats a newly created subscription as a transition only
// when it lands directly in the active set. There is no previous state to
// compare against; an incomplete creation transitions later via an update.
func classifyCreated(sub *Subscription) transition {
	active := IsActiveStatus(sub.Status)
	return transition{Transitioned: active, ToActive: active}
}

// classifyUpdated reports a transition only when the previous-attributes
// delta carries a status change that flips the active classification.
// Plan swaps, quantity changes, and other field-only updates never count,
// so they cannot double-fire cache invalidation or downstream records.
func classifyUpdated(prev PreviousAttributes, sub *Subscription) transition {
	toActive := IsActiveStatus(sub.Status)
	if prev.Status == nil {
		return transition{Transitioned: false, ToActive: toActive}
	}
	wasActive := IsActiveStatus(*prev.Status)
	return transition{Transitioned: wasActive != toActive, ToActive: toActive}
}

// classifyDeleted is unconditional: a deleted subscription always transitions
// out of the active set.
func classifyDeleted() transition {
	return transition{Transitioned: true, ToActive: false}
}

// emailKind selects the single update-email variant for an update event.
type emailKind int

const (
	emailNone emailKind = iota
	emailUpgrade
	emailDowngrade
	emailCancellation
	emailReactivation
)

// updateEmailKind derives the update email variant from the previous
// attributes delta. Exactly one variant fires per update that changed
// something relevant: cancellation flag changes win, then status flips
// across the active boundary (into the active set reads as a reactivation,
// out of it as a cancellation), then plan comparison. A plan change
// classifies as an upgrade when the new plan costs more or bills on a
// shorter interval, and as a downgrade otherwise.
func updateEmailKind(prev PreviousAttributes, sub *Subscription) emailKind {
	if prev.CancelAtPeriodEnd != nil {
		if sub.CancelAtPeriodEnd && !*prev.CancelAtPeriodEnd {
			return emailCancellation
		}
		if !sub.CancelAtPeriodEnd && *prev.CancelAtPeriodEnd {
			return emailReactivation
		}
	}

	if prev.Status != nil {
		wasActive := IsActiveStatus(*prev.Status)
		nowActive := IsActiveStatus(sub.Status)
		if !wasActive && nowActive {
			return emailReactivation
		}
		if wasActive && !nowActive {
			return emailCancellation
		}
	}

	newPlan := sub.ActivePlan()
	if prev.Plan == nil || newPlan == nil || prev.Plan.ID == newPlan.ID {
		return emailNone
	}
	if prev.Plan.Amount == newPlan.Amount && prev.Plan.periodDays() == newPlan.periodDays() {
		return emailNone
	}
	if isUpgrade(prev.Plan, newPlan) {
		return emailUpgrade
	}
	return emailDowngrade
}

// isUpgrade orders two plans: higher amount wins, then shorter billing
// period.
func isUpgrade(old, new *Plan) bool {
	if new.Amount != old.Amount {
		return new.Amount > old.Amount
	}
	return new.periodDays() < old.periodDays()
}
