package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// dueDateLayouts は受け付ける期限の書式です。タイムゾーンのない書式はUTCとして扱います。
var dueDateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// DueDate はJSONの dueDate を日付のみ ("2006-01-02") またはISO-8601日時として解釈します。
type DueDate struct{ t *time.Time }

// NewDueDate は時刻から DueDate を作成します。
func NewDueDate(t time.Time) *DueDate {
	return &DueDate{t: &t}
}

func (d *DueDate) UnmarshalJSON(data []byte) error {
	var raw *string
	if err := json.Unmarshal(data, &raw); err != nil {
		return &ValidationError{Field: "dueDate", Message: "due date must be a string"}
	}
	if raw == nil || strings.TrimSpace(*raw) == "" {
		d.t = nil
		return nil
	}
	parsed, err := ParseDueDate(*raw)
	if err != nil {
		return err
	}
	d.t = &parsed
	return nil
}

// Ptr はサービス層で使う *time.Time を返します。
func (d *DueDate) Ptr() *time.Time {
	if d == nil {
		return nil
	}
	return d.t
}

// ParseDueDate は文字列を期限として解析し、UTCに正規化します。
func ParseDueDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dueDateLayouts {
		parsed, err := time.Parse(layout, s)
		if err == nil {
			return parsed.UTC(), nil
		}
	}
	return time.Time{}, &ValidationError{
		Field:   "dueDate",
		Message: fmt.Sprintf("invalid datetime %q: use YYYY-MM-DD or ISO-8601", s),
	}
}
