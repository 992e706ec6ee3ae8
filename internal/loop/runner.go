package loop

// Runner starts a background task, typically a provider request whose
// result is sent back to a mailbox.
type Runner func(task func())

// Go runs every task on its own goroutine.
func Go(task func()) { go task() }

// Inline runs the task on the calling goroutine. Sends made by the task from
// inside a handler are queued, so results are still applied one at a time.
func Inline(task func()) { task() }
