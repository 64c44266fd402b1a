package domain

// Patch is a partial task update. Nil fields are left untouched; the tenant
// service treats absent JSON keys the same way.
type Patch struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Status      *Status   `json:"status,omitempty"`
	DueDate     *string   `json:"due_date,omitempty"`
	Tags        *[]string `json:"tags,omitempty"`
	Priority    *Priority `json:"priority,omitempty"`
}

// StatusPatch builds the patch a column move sends.
func StatusPatch(s Status) Patch {
	return Patch{Status: &s}
}

// Empty reports whether the patch would change nothing.
func (p Patch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil &&
		p.DueDate == nil && p.Tags == nil && p.Priority == nil
}

// Apply merges the patch into t, normalizing enumerated fields.
func (p Patch) Apply(t *Task) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Status != nil {
		t.Status = NormalizeStatus(string(*p.Status))
	}
	if p.DueDate != nil {
		t.DueDate = *p.DueDate
	}
	if p.Tags != nil {
		t.Tags = append([]string(nil), (*p.Tags)...)
	}
	if p.Priority != nil {
		t.Priority = NormalizePriority(string(*p.Priority))
	}
}
