package dto

// RegisterRequest is the body of POST /register.
type RegisterRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	UserName        string `json:"user_name"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// LoginRequest is the body of POST /login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ProfileRequest is the body of POST /user.
type ProfileRequest struct {
	Name     string `json:"name"`
	UserName string `json:"user_name"`
	Email    string `json:"email"`
}

// TaskListRequest is the body of POST and PUT /task-lists.
type TaskListRequest struct {
	Name string `json:"name"`
}

// ShareRequest is the body of POST /task-list/share/{id}.
// An absent is_edit grants view-only access.
type ShareRequest struct {
	UserID string `json:"user_id"`
	IsEdit *Bool  `json:"is_edit"`
}

// CreateTaskRequest is the body of POST /tasks.
type CreateTaskRequest struct {
	TaskListID string `json:"task_list_id"`
	Title      string `json:"title"`
}

// UpdateTaskRequest is the body of PUT /tasks/{id}. IsCompleted is only
// applied when present.
type UpdateTaskRequest struct {
	Title       string `json:"title"`
	IsCompleted *Bool  `json:"is_completed"`
}

// TaskStatusRequest is the body of PUT /task/status-update/{id}.
type TaskStatusRequest struct {
	IsCompleted *Bool `json:"is_completed"`
}
