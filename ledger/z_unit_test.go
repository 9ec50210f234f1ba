package ledger_test

import (
	"testing"

	"github.com/zintix-labs/slot666/ledger"
	"github.com/zintix-labs/slot666/ledger/ledgertest"
)

func TestMemoryContract(t *testing.T) {
	ledgertest.Run(t, func(t *testing.T) ledger.Ledger { return ledger.NewMemory() })
}
