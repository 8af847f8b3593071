package ingestion

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"DutchAuction/internal/instruction"
	"DutchAuction/internal/ledger"
)

// Submission envelope wire format. Addresses are hex, instruction bytes are
// base64; field names use snake_case to match upstream producers.
type txEnvelopeJSON struct {
	TxID        string            `json:"tx_id"`
	Accounts    []accountMetaJSON `json:"accounts"`
	Instruction string            `json:"instruction"`
}

type accountMetaJSON struct {
	Address  string `json:"address"`
	Signer   bool   `json:"signer"`
	Writable bool   `json:"writable"`
}

// ParseTx converts a raw submission envelope into a transaction for the
// processor. program is the ledger's configured program identity; the
// envelope does not choose it. Instruction bytes are not decoded here;
// strict decoding is the processor's job, so a malformed instruction is
// rejected rather than dropped at the edge.
func ParseTx(data []byte, program ledger.Address) (*instruction.Transaction, error) {
	var env txEnvelopeJSON
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("parse tx envelope: %w", err)
	}
	if env.TxID == "" {
		return nil, fmt.Errorf("tx envelope missing tx_id")
	}

	accounts := make([]instruction.AccountMeta, 0, len(env.Accounts))
	for i, meta := range env.Accounts {
		addr, err := ledger.ParseAddress(meta.Address)
		if err != nil {
			return nil, fmt.Errorf("parse account %d: %w", i, err)
		}
		accounts = append(accounts, instruction.AccountMeta{
			Address:  addr,
			Signer:   meta.Signer,
			Writable: meta.Writable,
		})
	}

	ixData, err := base64.StdEncoding.DecodeString(env.Instruction)
	if err != nil {
		return nil, fmt.Errorf("parse instruction bytes: %w", err)
	}

	return &instruction.Transaction{
		TxID:     env.TxID,
		Program:  program,
		Accounts: accounts,
		Data:     ixData,
	}, nil
}

// EncodeTx is the inverse of ParseTx, used by clients and tests to build
// submission envelopes.
func EncodeTx(tx *instruction.Transaction) ([]byte, error) {
	env := txEnvelopeJSON{
		TxID:        tx.TxID,
		Instruction: base64.StdEncoding.EncodeToString(tx.Data),
	}
	for _, meta := range tx.Accounts {
		env.Accounts = append(env.Accounts, accountMetaJSON{
			Address:  meta.Address.String(),
			Signer:   meta.Signer,
			Writable: meta.Writable,
		})
	}
	return json.Marshal(env)
}
