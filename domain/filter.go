package domain

import "strings"

// Filter selects which tasks a listing shows.
type Filter string

const (
	FilterAll       Filter = "all"
	FilterActive    Filter = "active"
	FilterCompleted Filter = "completed"
)

// ParseFilter accepts the filter names case-insensitively; an empty value means all.
func ParseFilter(value string) (Filter, error) {
	switch Filter(strings.ToLower(strings.TrimSpace(value))) {
	case "", FilterAll:
		return FilterAll, nil
	case FilterActive:
		return FilterActive, nil
	case FilterCompleted:
		return FilterCompleted, nil
	default:
		return FilterAll, NewError(ErrCodeInvalid, "unknown filter "+value)
	}
}

// Match reports whether task passes the filter.
func (f Filter) Match(task Task) bool {
	switch f {
	case FilterActive:
		return !task.Completed
	case FilterCompleted:
		return task.Completed
	default:
		return true
	}
}

// FilterTasks returns the tasks matching f, preserving order.
func FilterTasks(tasks []Task, f Filter) []Task {
	out := make([]Task, 0, len(tasks))
	for _, task := range tasks {
		if f.Match(task) {
			out = append(out, task)
		}
	}
	return out
}

// Stats counts active and completed tasks.
type Stats struct {
	Active    int `json:"active"`
	Completed int `json:"completed"`
}

func CountTasks(tasks []Task) Stats {
	var s Stats
	for _, task := range tasks {
		if task.Completed {
			s.Completed++
		} else {
			s.Active++
		}
	}
	return s
}
