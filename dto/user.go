package dto

type SaveUserRequest struct {
	Email      string `json:"email" validate:"required,email"`
	Name       string `json:"name" validate:"required,min=1,max=100"`
	Analogy    string `json:"analogy"`
	AdaptLevel int    `json:"adaptLevel" validate:"omitempty,min=1,max=10"`
	School     string `json:"school"`
	Country    string `json:"country"`
	Grade      string `json:"grade"`
	Bio        string `json:"bio" validate:"omitempty,max=1000"`
}

// UpdateUserRequest patches profile fields; nil means leave as-is.
type UpdateUserRequest struct {
	Name       *string `json:"name" validate:"omitempty,min=1,max=100"`
	Analogy    *string `json:"analogy"`
	AdaptLevel *int    `json:"adaptLevel" validate:"omitempty,min=1,max=10"`
	School     *string `json:"school"`
	Country    *string `json:"country"`
	Grade      *string `json:"grade"`
	Bio        *string `json:"bio" validate:"omitempty,max=1000"`
}

type UserResponse struct {
	UID        string `json:"uid"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	Analogy    string `json:"analogy"`
	AdaptLevel int    `json:"adaptLevel"`
	School     string `json:"school,omitempty"`
	Country    string `json:"country,omitempty"`
	Grade      string `json:"grade,omitempty"`
	Bio        string `json:"bio,omitempty"`
	CreatedAt  string `json:"createdAt"`
	UpdatedAt  string `json:"updatedAt"`
}
