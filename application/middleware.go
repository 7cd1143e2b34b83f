package application

import "context"

// TurnHandler runs one agent turn.
type TurnHandler func(ctx context.Context, turn Turn) (TurnResult, error)

// TurnMiddleware wraps a TurnHandler.
type TurnMiddleware func(next TurnHandler) TurnHandler

// Chain composes middleware so that the first one runs outermost.
func Chain(mws ...TurnMiddleware) TurnMiddleware {
	return func(next TurnHandler) TurnHandler {
		for i := len(mws) - 1; i >= 0; i-- {
			if mws[i] != nil {
				next = mws[i](next)
			}
		}
		return next
	}
}
