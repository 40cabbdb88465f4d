package domain

import "errors"

var (
	ErrInvalidID          = errors.New("invalid id")
	ErrInvalidName        = errors.New("invalid name")
	ErrInvalidTitle       = errors.New("invalid title")
	ErrInvalidPriority    = errors.New("invalid priority")
	ErrInvalidColumn      = errors.New("invalid column")
	ErrInvalidSubtask     = errors.New("invalid subtask")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrInvalidColorIndex  = errors.New("invalid color index")
	ErrInvalidSubtaskName = errors.New("invalid subtask name")
)
