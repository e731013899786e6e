package taskboard

// DeletePrompt is the question asked before a task is deleted.
const DeletePrompt = "Delete this task?"

// Confirmer answers a yes/no prompt. It runs on the board loop and blocks it.
type Confirmer interface {
	Confirm(prompt string) bool
}

type ConfirmFunc func(prompt string) bool

func (f ConfirmFunc) Confirm(prompt string) bool {
	return f(prompt)
}

// Answer is a Confirmer with a fixed reply, such as a form's confirm field.
type Answer bool

func (a Answer) Confirm(string) bool {
	return bool(a)
}
