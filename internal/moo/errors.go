package moo

import "fmt"

func errShort(what string, want, got int) error {
	return fmt.Errorf("moo: %s truncated: need %d bytes, have %d", what, want, got)
}
