package service

import "github.com/pkg/errors"

var (
	ErrTaskNotFound  = errors.New("task not found")
	ErrGroupNotFound = errors.New("group not found")
	ErrInvalidDate   = errors.New("invalid date, expected YYYY-MM-DD")
)
