package session

import (
	"errors"
	"fmt"

	"github.com/roostapp/roost-go/credstore"
)

// CheckAndClearCorruptedStorage verifies that the three credential store
// keys are in a mutually consistent state: either all three are present
// (logged in) or all three are absent (logged out). Any partial state is
// treated as corruption and all three keys are cleared. It runs before
// any other session logic.
//
// A storage read failure is also treated as corruption: partial
// credential state is unsafe to reason about, so the safest recovery is
// a full clear. The returned bool reports whether a clear was performed.
func CheckAndClearCorruptedStorage(store credstore.Store) (bool, error) {
	present := 0
	readFailed := false

	for _, read := range []func() error{
		func() error { _, err := store.Token(); return err },
		func() error { _, err := store.RefreshToken(); return err },
		func() error { _, err := store.User(); return err },
	} {
		switch err := read(); {
		case err == nil:
			present++
		case errors.Is(err, credstore.ErrNotFound):
		default:
			readFailed = true
		}
	}

	if !readFailed && (present == 0 || present == 3) {
		return false, nil
	}
	if err := store.Clear(); err != nil {
		return false, fmt.Errorf("clearing corrupted session state: %w", err)
	}
	return true, nil
}
