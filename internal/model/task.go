package model

// Task is one row of the shared tasks table. There is no owner column:
// every signed-in user sees and edits the same list.
type Task struct {
	ID          int64   `db:"id" json:"id"`
	Title       string  `db:"title" json:"title"`
	Description string  `db:"description" json:"description"`
	ImageURL    *string `db:"image_url" json:"image_url"`
	VideoURL    *string `db:"video_url" json:"video_url"`
}

func (t Task) HasImage() bool {
	return t.ImageURL != nil && *t.ImageURL != ""
}

func (t Task) HasVideo() bool {
	return t.VideoURL != nil && *t.VideoURL != ""
}

// NewTask is the insert payload; the id is assigned by the database.
type NewTask struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	ImageURL    *string `json:"image_url"`
	VideoURL    *string `json:"video_url"`
}

// TaskPatch lists the columns an update may touch. Nil fields are left alone.
type TaskPatch struct {
	Description *string `json:"description,omitempty"`
}

func (p TaskPatch) IsEmpty() bool {
	return p.Description == nil
}
