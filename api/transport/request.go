package transport

import "github.com/go-playground/validator/v10"

var validate = validator.New()

// TaskRequest is the body of POST /api/v1/tasks.
type TaskRequest struct {
	Title       string `json:"title" validate:"max=256"`
	Description string `json:"description" validate:"max=4096"`
}

// SaveTaskRequest is the body of PUT /api/v1/tasks/{id}; it stores the task as sent.
type SaveTaskRequest struct {
	Title       string `json:"title" validate:"max=256"`
	Description string `json:"description" validate:"max=4096"`
	Completed   bool   `json:"completed"`
}

// Validate checks the struct tags of a request body.
func Validate(req interface{}) error {
	return validate.Struct(req)
}
