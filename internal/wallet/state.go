package wallet

import "goldwallet/types"

// State is the load-cycle state machine: Idle until the first load, Loading
// while one runs, then Success or Error. There is no cancelled state; loads
// are serialized, never abandoned.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateSuccess
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateSuccess:
		return "success"
	case StateError:
		return "error"
	}
	return "unknown"
}

// Update is one state transition as seen by observers. View is only set on
// Success; Err only on Error. The latest snapshot stays readable through
// Service.Snapshot either way.
type Update struct {
	State State
	View  *types.WalletView
	Err   error
}
