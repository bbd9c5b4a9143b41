package stdlib

import (
	"github.com/thomasrohde/celviz/pkg/value"
)

// [1, 2].contains(2) → bool, using value equality
func listContains(recv value.Value, args []value.Value) (value.Value, error) {
	list := recv.(value.List)
	for _, item := range list.Items {
		if value.Equal(item, args[0]) {
			return value.NewBool(true), nil
		}
	}
	return value.NewBool(false), nil
}
