package outcome

import (
	"net/http"

	"github.com/iyhunko/product-catalog/internal/repository"
)

// Op is the kind of operation an outcome belongs to.
type Op string

const (
	OpCreate Op = "create"
	OpRead   Op = "read"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Success is the status reported when every branch of op succeeded.
func Success(op Op) int {
	if op == OpCreate {
		return http.StatusCreated
	}
	return http.StatusOK
}

var mutationStatus = map[Op]map[repository.Status]int{
	OpCreate: {
		repository.Applied:  http.StatusCreated,
		repository.Rejected: http.StatusConflict,
		repository.Failed:   http.StatusInternalServerError,
	},
	OpUpdate: {
		repository.Applied:  http.StatusOK,
		repository.Rejected: http.StatusBadRequest,
		repository.Failed:   http.StatusInternalServerError,
	},
	OpDelete: {
		repository.Applied:  http.StatusOK,
		repository.Rejected: http.StatusNotFound,
		repository.Failed:   http.StatusInternalServerError,
	},
}

// ForMutation maps a store mutation result to its status under op.
func ForMutation(op Op, res repository.Result) int {
	if codes, ok := mutationStatus[op]; ok {
		if code, ok := codes[res.Status]; ok {
			return code
		}
	}
	return http.StatusInternalServerError
}

// FirstFailure returns the first outcome that did not succeed.
func FirstFailure(outcomes ...Outcome) (Outcome, bool) {
	for _, o := range outcomes {
		if !o.Succeeded {
			return o, true
		}
	}
	return Outcome{}, false
}

// Resolve reduces the outcomes of one composite operation, given in
// precedence order, to one status: the success code for op when all
// succeeded, otherwise the status of the first failure, unchanged.
func Resolve(op Op, outcomes ...Outcome) int {
	if failed, ok := FirstFailure(outcomes...); ok {
		return failed.StatusCode
	}
	return Success(op)
}

// Satisfied turns outcomes with one of the given codes into successes.
// Deletes use it to count "not found" as already done.
func Satisfied(o Outcome, codes ...int) Outcome {
	for _, c := range codes {
		if o.StatusCode == c {
			o.Succeeded = true
			return o
		}
	}
	return o
}
