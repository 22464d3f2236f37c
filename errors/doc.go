// Package errors implements the error taxonomy shared by every MarketStreams
// component.
//
// # Classification
//
// Errors fall into three handling classes:
//
//   - Transient: temporary conditions (connection loss, storage unavailable)
//     that callers may retry with backoff.
//   - Invalid: bad input, illegal lifecycle transitions, tenant mismatches.
//     Retrying without changing intent will fail again.
//   - Fatal: unrecoverable conditions such as broken configuration.
//
// Classification is carried either explicitly via ClassifiedError (produced
// by WrapTransient / WrapInvalid / WrapFatal) or inferred from standard error
// variables and message patterns by IsTransient / IsInvalid / IsFatal.
//
// # Domain errors
//
// Two typed errors carry structured diagnostics for the admission and
// lifecycle subsystem:
//
//	var limitErr *errors.StreamLimitExceededError
//	if stderrors.As(err, &limitErr) {
//	    // limitErr.TenantID, limitErr.CurrentCount, limitErr.MaxCount
//	}
//
//	var stateErr *errors.InvalidStreamStateError
//	if stderrors.As(err, &stateErr) {
//	    // stateErr.StreamID, stateErr.State, stateErr.Operation
//	}
//
// # Wrapping convention
//
// All wrapping follows "component.method: action failed: %w" so log lines and
// error chains read uniformly across packages:
//
//	return errors.WrapTransient(err, "Store", "Get", "get from KV")
package errors
