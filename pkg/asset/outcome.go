// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package asset

// Outcome says which source a result reflects.
type Outcome int

const (
	// OutcomeRemote means the object store answered and the cache agrees with it.
	OutcomeRemote Outcome = iota + 1
	// OutcomeLocalOnly means the store could not be reached and the result
	// comes from the local cache alone.
	OutcomeLocalOnly
	// OutcomeFailed means nothing was changed.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRemote:
		return "remote"
	case OutcomeLocalOnly:
		return "local_only"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}
