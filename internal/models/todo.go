// Package modelsはTodoを定義します。
package models

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	TitleMaxLength       = 100
	DescriptionMaxLength = 500
)

// Priority はTodoの優先度です。
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid は優先度が low / medium / high のいずれかかどうかを返します。
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Todo はコレクションに保存されるドキュメントであり、APIのレスポンスでもあります。
type Todo struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"` // 主キー (ストアが採番)
	Title       string             `json:"title" bson:"title"`
	Description *string            `json:"description" bson:"description"`
	Completed   bool               `json:"completed" bson:"completed"`
	Priority    Priority           `json:"priority" bson:"priority"`
	DueDate     *time.Time         `json:"dueDate" bson:"dueDate"`
	CreatedAt   time.Time          `json:"created_at" bson:"created_at"` // 作成日時 (以後変更しない)
	UpdatedAt   time.Time          `json:"updated_at" bson:"updated_at"` // 更新日時 (サーバーが設定)
}

// ErrEmptyUpdate は更新リクエストに有効なフィールドが一つもない場合のエラーです。
var ErrEmptyUpdate = errors.New("no valid data provided for update")

// ValidationError はリクエストのフィールド検証エラーです。
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ErrDueDateInPast は期限が過去の日時だった場合のエラーです。
var ErrDueDateInPast = &ValidationError{Field: "dueDate", Message: "due date cannot be in the past"}

// TodoCreateRequest はPOST /todos/ のリクエストボディです。
// 未知のフィールド (id, created_at など) は読み捨てます。
type TodoCreateRequest struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Completed   *bool    `json:"completed"`
	Priority    *string  `json:"priority"`
	DueDate     *DueDate `json:"dueDate"`
}

// Validate はリクエストを検証し、保存前のTodoを組み立てます。
// IDは空のまま (ストアが採番) で、created_at と updated_at には now を設定します。
func (r TodoCreateRequest) Validate(now time.Time) (*Todo, error) {
	if r.Title == nil {
		return nil, &ValidationError{Field: "title", Message: "field required"}
	}
	if err := validateTitle(*r.Title); err != nil {
		return nil, err
	}
	if r.Description != nil {
		if err := validateDescription(*r.Description); err != nil {
			return nil, err
		}
	}

	priority := PriorityMedium
	if r.Priority != nil {
		p, err := parsePriority(*r.Priority)
		if err != nil {
			return nil, err
		}
		priority = p
	}

	dueDate, err := validateDueDate(r.DueDate, now)
	if err != nil {
		return nil, err
	}

	todo := &Todo{
		Title:       *r.Title,
		Description: r.Description,
		Priority:    priority,
		DueDate:     dueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if r.Completed != nil {
		todo.Completed = *r.Completed
	}
	return todo, nil
}

// TodoUpdateRequest はPUT /todos/:id のリクエストボディです。
// null または省略されたフィールドは更新しません。
type TodoUpdateRequest struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Completed   *bool    `json:"completed"`
	Priority    *string  `json:"priority"`
	DueDate     *DueDate `json:"dueDate"`
}

// TodoPatch は既存ドキュメントにマージする差分です。
// nil のフィールドは変更せず、UpdatedAt は常に上書きします。
type TodoPatch struct {
	Title       *string
	Description *string
	Completed   *bool
	Priority    *Priority
	DueDate     *time.Time
	UpdatedAt   time.Time
}

// Validate はリクエストを検証し、指定されたフィールドだけを含む差分を返します。
func (r TodoUpdateRequest) Validate(now time.Time) (TodoPatch, error) {
	patch := TodoPatch{UpdatedAt: now}

	if r.Title != nil {
		if err := validateTitle(*r.Title); err != nil {
			return TodoPatch{}, err
		}
		patch.Title = r.Title
	}
	if r.Description != nil {
		if err := validateDescription(*r.Description); err != nil {
			return TodoPatch{}, err
		}
		patch.Description = r.Description
	}
	if r.Completed != nil {
		patch.Completed = r.Completed
	}
	if r.Priority != nil {
		p, err := parsePriority(*r.Priority)
		if err != nil {
			return TodoPatch{}, err
		}
		patch.Priority = &p
	}

	dueDate, err := validateDueDate(r.DueDate, now)
	if err != nil {
		return TodoPatch{}, err
	}
	patch.DueDate = dueDate

	if patch.Empty() {
		return TodoPatch{}, ErrEmptyUpdate
	}
	return patch, nil
}

// Empty は UpdatedAt 以外に変更するフィールドがない場合に true を返します。
func (p TodoPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Completed == nil &&
		p.Priority == nil && p.DueDate == nil
}

// Apply は差分をTodoにマージします。
func (p TodoPatch) Apply(t *Todo) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		d := *p.Description
		t.Description = &d
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.DueDate != nil {
		d := *p.DueDate
		t.DueDate = &d
	}
	t.UpdatedAt = NextUpdatedAt(t.UpdatedAt, p.UpdatedAt)
}

// NextUpdatedAt は更新後の updated_at を返します。
// 時計が前回値から進んでいなければ前回値の1ミリ秒後を使い、常に単調増加させます。
func NextUpdatedAt(prev, now time.Time) time.Time {
	if now.After(prev) {
		return now
	}
	return prev.Add(time.Millisecond)
}

func validateTitle(title string) error {
	n := utf8.RuneCountInString(title)
	if n == 0 {
		return &ValidationError{Field: "title", Message: "title must not be empty"}
	}
	if n > TitleMaxLength {
		return &ValidationError{Field: "title", Message: fmt.Sprintf("title must be at most %d characters", TitleMaxLength)}
	}
	return nil
}

func validateDescription(description string) error {
	if utf8.RuneCountInString(description) > DescriptionMaxLength {
		return &ValidationError{Field: "description", Message: fmt.Sprintf("description must be at most %d characters", DescriptionMaxLength)}
	}
	return nil
}

func parsePriority(s string) (Priority, error) {
	p := Priority(s)
	if !p.Valid() {
		return "", &ValidationError{Field: "priority", Message: "priority must be one of low, medium, high"}
	}
	return p, nil
}

// validateDueDate は期限が now より前であればエラーを返します。期限ちょうどは許可します。
func validateDueDate(d *DueDate, now time.Time) (*time.Time, error) {
	t := d.Ptr()
	if t == nil {
		return nil, nil
	}
	if t.Before(now) {
		return nil, ErrDueDateInPast
	}
	return t, nil
}
