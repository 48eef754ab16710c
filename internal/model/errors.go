package model

import "errors"

var (
	ErrTrashRecordNotFound = errors.New("trash record not found")
	ErrJobNotFound         = errors.New("job not found")
	ErrJobFinished         = errors.New("job already finished")
	ErrInvalidInput        = errors.New("invalid input")
)
