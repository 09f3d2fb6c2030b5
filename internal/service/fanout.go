package service

import (
	"log/slog"
	"sync"

	"github.com/iyhunko/product-catalog/internal/outcome"
)

// parallel runs every call concurrently and waits for all of them. Outcomes
// are returned in call order, whatever order the calls finish in, so callers
// can resolve precedence by position. A failing call never cancels its
// siblings, and a call that panics yields an internal error.
func parallel(calls ...func() outcome.Outcome) []outcome.Outcome {
	outcomes := make([]outcome.Outcome, len(calls))
	var wg sync.WaitGroup
	wg.Add(len(calls))
	for i, call := range calls {
		go func() {
			defer wg.Done()
			defer func() {
				if err := recover(); err != nil {
					slog.Error("Panic recovered in fan-out call", slog.Int("call", i), slog.Any("error", err))
					outcomes[i] = outcome.Internal()
				}
			}()
			outcomes[i] = call()
		}()
	}
	wg.Wait()
	return outcomes
}
