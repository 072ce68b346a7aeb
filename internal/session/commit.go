package session

import "context"

// Committer dispatches the finalized transcript as the user's pending
// art prompt when a listening session stops with confirmed speech.
type Committer interface {
	Commit(context.Context, string) error
}

// CommitFunc adapts a function to the Committer interface.
type CommitFunc func(context.Context, string) error

func (f CommitFunc) Commit(ctx context.Context, prompt string) error {
	return f(ctx, prompt)
}
