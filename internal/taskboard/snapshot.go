package taskboard

import "github.com/templui/taskboard/internal/model"

// Mode is the signed-out sub-state.
type Mode int

const (
	ModeSignIn Mode = iota
	ModeSignUp
)

func (m Mode) String() string {
	if m == ModeSignUp {
		return "signup"
	}
	return "signin"
}

// ParseMode accepts the values produced by Mode.String.
func ParseMode(s string) Mode {
	if s == "signup" {
		return ModeSignUp
	}
	return ModeSignIn
}

// Form is the create-task form as last submitted.
type Form struct {
	Title       string
	Description string
}

// Snapshot is an immutable copy of a board's view state.
type Snapshot struct {
	Version  uint64
	Identity *model.Identity
	Mode     Mode
	Busy     bool
	Message  string
	// Tasks is replaced wholesale by each fetch, never patched.
	Tasks []model.Task
	Form  Form
	// EditDraft is one description draft shared by every task card.
	EditDraft string
}

func (s Snapshot) SignedIn() bool {
	return s.Identity != nil
}
