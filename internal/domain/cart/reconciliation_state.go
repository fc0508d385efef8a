package cart

// ReconciliationState guards the one-time merge of an anonymous cart at sign-in
type ReconciliationState string

const (
	ReconciliationPending ReconciliationState = "pending"
	ReconciliationDone    ReconciliationState = "done"
)

// IsDone reports whether the merge for the current sign-in already ran
func (s ReconciliationState) IsDone() bool {
	return s == ReconciliationDone
}

// ReconciliationOutcome describes what a reconciliation did with the anonymous cart
type ReconciliationOutcome string

const (
	// OutcomeImported means local lines were copied into an empty remote cart
	OutcomeImported ReconciliationOutcome = "imported"
	// OutcomeRemoteKept means the remote cart was non-empty and the local cart was discarded
	OutcomeRemoteKept ReconciliationOutcome = "remote_kept"
	// OutcomeNoop means both carts were empty
	OutcomeNoop ReconciliationOutcome = "noop"
)
