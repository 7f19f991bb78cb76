package memory_test

import (
	"testing"

	"github.com/xraph/billing/store/memory"
	"github.com/xraph/billing/store/storetest"
)

func TestStore(t *testing.T) {
	storetest.Run(t, memory.New())
}
