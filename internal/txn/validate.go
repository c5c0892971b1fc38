package txn

import (
	"fmt"
	"strings"

	apperrors "github.com/AlexZinkM/agent-wallet/internal/errors"
	"github.com/AlexZinkM/agent-wallet/internal/model"
)

// ValidationResult lists every problem found in one pass.
type ValidationResult struct {
	Valid                 bool     `json:"valid"`
	Errors                []string `json:"errors"`
	Warnings              []string `json:"warnings"`
	EstimatedFee          uint64   `json:"estimated_fee"`
	EstimatedComputeUnits uint64   `json:"estimated_compute_units"`
	Size                  int      `json:"size"`
}

// Err is nil for a valid result, else a VALIDATION error naming every
// problem.
func (r *ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	return apperrors.New(apperrors.CodeValidation, strings.Join(r.Errors, "; "))
}

// Validate recomputes size, signature count and fee for t without stopping
// at the first problem. A valid built transaction moves to the validated
// stage.
func (p *Pipeline) Validate(t *Transaction, state *model.RuntimeState, opts Options) *ValidationResult {
	opts = opts.withDefaults()
	res := &ValidationResult{Errors: []string{}, Warnings: []string{}}

	if t.Empty() {
		res.Warnings = append(res.Warnings, "transaction has no instructions and will not be sent")
		res.Valid = true
		if t.Stage == StageBuilt {
			t.Stage = StageValidated
		}
		return res
	}

	size, err := SerializedSize(t.Tx)
	if err != nil {
		res.Errors = append(res.Errors, err.Error())
	}
	res.Size = size
	if size > opts.MaxTransactionSize {
		res.Errors = append(res.Errors, fmt.Sprintf("transaction size %d bytes exceeds maximum %d bytes", size, opts.MaxTransactionSize))
	}

	sigs := int(t.Tx.Message.Header.NumRequiredSignatures)
	if sigs > opts.MaxSignatures {
		res.Errors = append(res.Errors, fmt.Sprintf("transaction needs %d signatures, maximum is %d", sigs, opts.MaxSignatures))
	}

	payer := p.feePayer(opts)
	if !payer.Equals(p.owner) && !state.Permission.CanPerform(model.PermissionAdministrator) {
		res.Errors = append(res.Errors, fmt.Sprintf("custom fee payer %s requires %s permission", payer, model.PermissionAdministrator))
	}

	n := len(t.Tx.Message.Instructions)
	if n > MaxInstructions {
		res.Errors = append(res.Errors, fmt.Sprintf("transaction has %d instructions, limit is %d", n, MaxInstructions))
	}

	if t.placeholder {
		res.Warnings = append(res.Warnings, "recent blockhash is a placeholder and is replaced at signing")
	}
	if opts.ComputeUnitPrice > 0 && !opts.AddComputeBudget {
		res.Warnings = append(res.Warnings, "compute unit price is set but no compute budget instructions were added")
	}

	res.EstimatedFee = EstimateFee(t.Tx, opts)
	res.EstimatedComputeUnits = uint64(n) * computeUnitsPerInstruction
	res.Valid = len(res.Errors) == 0
	if res.Valid && t.Stage == StageBuilt {
		t.Stage = StageValidated
	}
	return res
}
